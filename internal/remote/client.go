// Package remote implements the opaque remote data store over the Supabase
// PostgREST API. Row payloads are decoded into the tagged structs in
// internal/domain and validated at this boundary. After every successful
// insert or delete the client publishes a change event on the bus so peer
// sessions can reconcile.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kh1012/half/internal/events"
	apperrors "github.com/kh1012/half/pkg/errors"
	"github.com/kh1012/half/pkg/logger"
)

const (
	requestTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Client talks to the Supabase PostgREST endpoint.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	bus        events.Bus // nil when no broker is configured
	log        *logger.Logger
}

// NewClient creates a new remote store client. bus may be nil; change
// events are then simply not published.
func NewClient(baseURL, anonKey string, bus events.Bus, log *logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		anonKey: anonKey,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		bus: bus,
		log: log,
	}
}

// do performs one PostgREST request. body is JSON-encoded when non-nil;
// the response is decoded into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, table string, query url.Values, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.anonKey))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost || method == http.MethodPatch || method == http.MethodDelete {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewRemoteError(fmt.Sprintf("%s %s failed", method, table), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewRemoteError(fmt.Sprintf("failed to read %s response", table), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.NewRemoteError(
			fmt.Sprintf("%s %s returned status %d: %s", method, table, resp.StatusCode, string(respBody)),
			nil,
		)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			c.log.WithFields(map[string]interface{}{
				"table":       table,
				"status_code": resp.StatusCode,
			}).WithError(err).Error("Failed to parse remote store response")
			return apperrors.NewRemoteError(fmt.Sprintf("failed to parse %s response", table), err)
		}
	}

	return nil
}

// publish sends a change event without blocking the caller. Delivery is
// best-effort: a session that misses an event is corrected by the next
// periodic full refresh.
func (c *Client) publish(channel string, payload []byte, encodeErr error) {
	if c.bus == nil {
		return
	}
	if encodeErr != nil {
		c.log.WithError(encodeErr).WithField("channel", channel).Warn("Failed to encode change event")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := c.bus.Publish(ctx, channel, payload); err != nil {
			c.log.WithError(err).WithField("channel", channel).Warn("Failed to publish change event")
		}
	}()
}
