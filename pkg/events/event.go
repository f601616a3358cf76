package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is a domain event published after a state change has been committed.
type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType string, payload interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Publisher delivers events to downstream subscribers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
