package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/oficiosya/subscription-engine/internal/domain/model"
	"github.com/oficiosya/subscription-engine/internal/domain/repository"
)

type eventRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *gorm.DB, logger *zap.Logger) repository.EventRepository {
	return &eventRepository{db: db, logger: logger}
}

func (r *eventRepository) Append(ctx context.Context, event *model.SubscriptionEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		r.logger.Error("Failed to append event",
			zap.String("organization_id", event.OrganizationID.String()),
			zap.String("event_type", string(event.EventType)),
			zap.Error(err))
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *eventRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*model.SubscriptionEvent, error) {
	var events []*model.SubscriptionEvent
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&events).Error
	if err != nil {
		r.logger.Error("Failed to list events",
			zap.String("organization_id", orgID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}
