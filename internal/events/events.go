// Package events defines the change-notification abstraction between the
// remote store and the realtime reconciliation feed. The store publishes a
// typed event after every successful row insert or delete; peer sessions
// subscribe to the channels they care about and merge what arrives. Keeping
// the bus behind an interface lets the merge logic be tested without a live
// broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kh1012/half/internal/domain"
)

// Channel names. Questions are global; votes and comments are scoped per
// question so a session only hears about the question it is viewing.
const questionChannel = "half:questions"

// QuestionChannel returns the global new-question channel.
func QuestionChannel() string {
	return questionChannel
}

// VoteChannel returns the vote channel for one question.
func VoteChannel(questionID string) string {
	return fmt.Sprintf("half:votes:%s", questionID)
}

// CommentChannel returns the comment channel for one question.
func CommentChannel(questionID string) string {
	return fmt.Sprintf("half:comments:%s", questionID)
}

// Message is a raw delivery from the bus.
type Message struct {
	Channel string
	Payload []byte
}

// Subscription is a scoped acquisition of one or more channels. It must be
// closed on every exit path of the owning context.
type Subscription interface {
	// Messages returns the delivery channel. It is closed when the
	// subscription is closed or the context given to Subscribe ends.
	Messages() <-chan Message

	// Close releases the subscription.
	Close() error
}

// Bus is the publish/subscribe surface the store and the feed share.
type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channels ...string) (Subscription, error)
}

// EncodeQuestionEvent serializes a question event for the bus.
func EncodeQuestionEvent(ev domain.QuestionEvent) ([]byte, error) {
	return json.Marshal(ev)
}

// DecodeQuestionEvent parses a question event payload.
func DecodeQuestionEvent(payload []byte) (domain.QuestionEvent, error) {
	var ev domain.QuestionEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ev, fmt.Errorf("failed to decode question event: %w", err)
	}
	return ev, nil
}

// EncodeVoteEvent serializes a vote event for the bus.
func EncodeVoteEvent(ev domain.VoteEvent) ([]byte, error) {
	return json.Marshal(ev)
}

// DecodeVoteEvent parses a vote event payload.
func DecodeVoteEvent(payload []byte) (domain.VoteEvent, error) {
	var ev domain.VoteEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ev, fmt.Errorf("failed to decode vote event: %w", err)
	}
	return ev, nil
}

// EncodeCommentEvent serializes a comment event for the bus.
func EncodeCommentEvent(ev domain.CommentEvent) ([]byte, error) {
	return json.Marshal(ev)
}

// DecodeCommentEvent parses a comment event payload.
func DecodeCommentEvent(payload []byte) (domain.CommentEvent, error) {
	var ev domain.CommentEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ev, fmt.Errorf("failed to decode comment event: %w", err)
	}
	return ev, nil
}
