package usecase

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainErrors "github.com/oficiosya/subscription-engine/internal/domain/errors"
	"github.com/oficiosya/subscription-engine/internal/domain/model"
	"github.com/oficiosya/subscription-engine/internal/domain/repository"
)

// EventService is the audit trail surface. Lifecycle managers append their
// own events inside their transactions; this service exists for reads and
// for the rare out-of-band annotation an admin tool records.
type EventService struct {
	events repository.EventRepository
	logger *zap.Logger
}

// NewEventService creates a new event service instance.
func NewEventService(events repository.EventRepository, logger *zap.Logger) *EventService {
	return &EventService{events: events, logger: logger}
}

// RecordEvent appends one audit record. The event type must belong to the
// closed taxonomy; unknown types are rejected rather than stored.
func (s *EventService) RecordEvent(ctx context.Context, orgID uuid.UUID, eventType model.EventType, data model.JSONB, actorID *uuid.UUID) error {
	if !eventType.Valid() {
		return domainErrors.NewPolicyViolationError("event_taxonomy",
			"unknown event type: "+string(eventType))
	}

	event := &model.SubscriptionEvent{
		OrganizationID: orgID,
		EventType:      eventType,
		EventData:      data,
		ActorID:        actorID,
	}
	if err := s.events.Append(ctx, event); err != nil {
		s.logger.Error("failed to record event",
			zap.String("organization_id", orgID.String()),
			zap.String("event_type", string(eventType)),
			zap.Error(err))
		return err
	}
	return nil
}

// GetEventHistory returns an organization's audit trail, newest first.
func (s *EventService) GetEventHistory(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*model.SubscriptionEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.events.ListByOrganization(ctx, orgID, limit, offset)
}
