package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/oficiosya/subscription-engine/internal/domain/model"
	"github.com/oficiosya/subscription-engine/internal/domain/repository"
)

type subscriptionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *gorm.DB, logger *zap.Logger) repository.SubscriptionRepository {
	return &subscriptionRepository{db: db, logger: logger}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *model.Subscription) error {
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		r.logger.Error("Failed to create subscription",
			zap.String("organization_id", sub.OrganizationID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) GetOpenByOrganization(ctx context.Context, orgID uuid.UUID) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND status IN ?", orgID,
			[]model.SubscriptionStatus{model.SubscriptionStatusTrialing, model.SubscriptionStatusActive}).
		Order("started_at DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get open subscription",
			zap.String("organization_id", orgID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get open subscription: %w", err)
	}
	return &sub, nil
}

func (r *subscriptionRepository) GetAnyByOrganization(ctx context.Context, orgID uuid.UUID) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("started_at DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get subscription",
			zap.String("organization_id", orgID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *model.Subscription) error {
	result := r.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("id = ?", sub.ID).
		Updates(map[string]interface{}{
			"status":        sub.Status,
			"tier":          sub.Tier,
			"billing_cycle": sub.BillingCycle,
			"trial_ends_at": sub.TrialEndsAt,
			"ended_at":      sub.EndedAt,
		})
	if result.Error != nil {
		r.logger.Error("Failed to update subscription",
			zap.Int64("subscription_id", sub.ID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update subscription: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("subscription not found: %d", sub.ID)
	}
	return nil
}

func (r *subscriptionRepository) ListTrialsEndingBetween(ctx context.Context, from, to time.Time) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	err := r.db.WithContext(ctx).
		Where("status = ?", model.SubscriptionStatusTrialing).
		Where("trial_ends_at >= ? AND trial_ends_at < ?", from, to).
		Find(&subs).Error
	if err != nil {
		r.logger.Error("Failed to list trials ending in window", zap.Error(err))
		return nil, fmt.Errorf("failed to list trials ending in window: %w", err)
	}
	return subs, nil
}

func (r *subscriptionRepository) ListTrialsEndedBefore(ctx context.Context, cutoff time.Time) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	err := r.db.WithContext(ctx).
		Where("status = ?", model.SubscriptionStatusTrialing).
		Where("trial_ends_at IS NOT NULL AND trial_ends_at < ?", cutoff).
		Find(&subs).Error
	if err != nil {
		r.logger.Error("Failed to list due trials", zap.Error(err))
		return nil, fmt.Errorf("failed to list due trials: %w", err)
	}
	return subs, nil
}
