package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/family-fund-api/internal/models"
	"github.com/noah-isme/family-fund-api/pkg/events"
	"github.com/noah-isme/family-fund-api/pkg/jobs"
)

// Case event types.
const (
	EventCaseSubmitted        = "case.submitted"
	EventCaseApproved         = "case.approved"
	EventCaseRejected         = "case.rejected"
	EventCaseCompleted        = "case.completed"
	EventDisbursementRecorded = "disbursement.recorded"

	jobTypePublishEvent = "publish_event"
)

// CaseEventPayload is the body of every case lifecycle event.
type CaseEventPayload struct {
	CaseID          string            `json:"case_id"`
	BeneficiaryID   string            `json:"beneficiary_id"`
	From            models.CaseStatus `json:"from,omitempty"`
	To              models.CaseStatus `json:"to"`
	ApprovedAmount  string            `json:"approved_amount,omitempty"`
	DisbursedAmount string            `json:"disbursed_amount"`
	ActorID         string            `json:"actor_id,omitempty"`
	DisbursementID  string            `json:"disbursement_id,omitempty"`
}

type eventQueue interface {
	Enqueue(ctx context.Context, job jobs.Job) (string, error)
}

// EventService hands domain events to a publisher. Delivery runs on the queue
// when one is attached; failures are logged and counted, never returned.
type EventService struct {
	publisher events.Publisher
	queue     eventQueue
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewEventService constructs an EventService. A nil queue publishes inline.
func NewEventService(publisher events.Publisher, queue eventQueue, metrics *MetricsService, logger *zap.Logger) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{publisher: publisher, queue: queue, metrics: metrics, logger: logger}
}

// HandleJob is the queue handler that performs the actual publish.
func (s *EventService) HandleJob(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(events.Event)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", job.Payload)
	}
	err := s.publisher.Publish(ctx, event)
	s.metrics.RecordEventPublished(event.Type, err == nil)
	return err
}

// Emit publishes event without blocking the caller on delivery.
func (s *EventService) Emit(ctx context.Context, event events.Event) {
	if s == nil || s.publisher == nil {
		return
	}
	if s.queue == nil {
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.metrics.RecordEventPublished(event.Type, false)
			s.logger.Warn("publish event failed", zap.String("type", event.Type), zap.String("event_id", event.ID), zap.Error(err))
			return
		}
		s.metrics.RecordEventPublished(event.Type, true)
		return
	}
	if _, err := s.queue.Enqueue(ctx, jobs.Job{Type: jobTypePublishEvent, Payload: event}); err != nil {
		s.metrics.RecordEventPublished(event.Type, false)
		s.logger.Warn("enqueue event failed", zap.String("type", event.Type), zap.String("event_id", event.ID), zap.Error(err))
	}
}

// JobType is the queue routing key for event delivery.
func (s *EventService) JobType() string {
	return jobTypePublishEvent
}

func caseEvent(eventType string, c *models.AssistanceCase, from models.CaseStatus, actorID string) events.Event {
	payload := CaseEventPayload{
		CaseID:          c.ID,
		BeneficiaryID:   c.BeneficiaryID,
		From:            from,
		To:              c.Status,
		DisbursedAmount: c.DisbursedAmount.StringFixed(2),
		ActorID:         actorID,
	}
	if c.ApprovedAmount.Valid {
		payload.ApprovedAmount = c.ApprovedAmount.Decimal.StringFixed(2)
	}
	return events.New(eventType, payload)
}
