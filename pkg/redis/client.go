// Package redis backs the change-notification bus with Redis pub/sub. Every
// session publishes row changes it performs and subscribes to the channels
// of the question it is viewing, which is how peer sessions' votes and
// comments reach the local aggregate cache.
package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kh1012/half/internal/events"
	"github.com/kh1012/half/pkg/logger"
)

// subscriptionBuffer bounds how many undelivered messages a subscription
// holds before the forwarder blocks.
const subscriptionBuffer = 64

// Client wraps a Redis connection used as the change-notification bus.
type Client struct {
	rdb *redis.Client
	log *logger.Logger
}

// NewClient creates a new Redis client and verifies connectivity.
func NewClient(redisURL string, log *logger.Logger) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb, log: log}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Health checks the Redis connection.
func (c *Client) Health(ctx context.Context) error {
	start := time.Now()
	err := c.rdb.Ping(ctx).Err()
	if err != nil {
		c.log.WithError(err).WithField("duration", time.Since(start)).Warn("redis_ping failed")
	}
	return err
}

// Publish sends a payload on a channel.
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	start := time.Now()
	err := c.rdb.Publish(ctx, channel, payload).Err()
	if err != nil {
		c.log.WithError(err).WithFields(map[string]interface{}{
			"channel":  channel,
			"duration": time.Since(start),
		}).Warn("redis_publish failed")
		return err
	}
	c.log.WithField("channel", channel).Debug("redis_publish")
	return nil
}

// Subscribe opens a subscription on the given channels. The subscription is
// released when Close is called or when ctx ends, whichever happens first.
func (c *Client) Subscribe(ctx context.Context, channels ...string) (events.Subscription, error) {
	ps := c.rdb.Subscribe(ctx, channels...)

	// Wait for the subscription to be confirmed so no early publish is lost.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %v: %w", channels, err)
	}

	sub := &subscription{
		ps:  ps,
		out: make(chan events.Message, subscriptionBuffer),
	}

	go sub.forward()
	go func() {
		<-ctx.Done()
		_ = sub.Close()
	}()

	c.log.WithField("channels", channels).Debug("redis_subscribe")
	return sub, nil
}

// subscription adapts go-redis PubSub to events.Subscription.
type subscription struct {
	ps        *redis.PubSub
	out       chan events.Message
	closeOnce sync.Once
}

func (s *subscription) forward() {
	for msg := range s.ps.Channel() {
		s.out <- events.Message{Channel: msg.Channel, Payload: []byte(msg.Payload)}
	}
	close(s.out)
}

// Messages returns the delivery channel.
func (s *subscription) Messages() <-chan events.Message {
	return s.out
}

// Close unsubscribes. Safe to call more than once.
func (s *subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.ps.Close()
	})
	return err
}
