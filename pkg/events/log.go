package events

import (
	"context"

	"go.uber.org/zap"
)

// LogPublisher writes events to the structured log. Used when no broker is configured.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher constructs a LogPublisher.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

// Publish logs the event.
func (p *LogPublisher) Publish(_ context.Context, event Event) error {
	p.logger.Info("domain event",
		zap.String("type", event.Type),
		zap.String("event_id", event.ID),
		zap.Time("occurred_at", event.OccurredAt),
		zap.Any("payload", event.Payload),
	)
	return nil
}

// Close is a no-op.
func (p *LogPublisher) Close() error { return nil }
