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

type organizationRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *gorm.DB, logger *zap.Logger) repository.OrganizationRepository {
	return &organizationRepository{db: db, logger: logger}
}

func (r *organizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	var org model.Organization
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&org).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get organization",
			zap.String("organization_id", id.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &org, nil
}

func (r *organizationRepository) Create(ctx context.Context, org *model.Organization) error {
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(org).Error; err != nil {
		r.logger.Error("Failed to create organization",
			zap.String("name", org.Name),
			zap.Error(err))
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

func (r *organizationRepository) UpdateSubscriptionState(ctx context.Context, id uuid.UUID, status model.SubscriptionStatus, tier model.SubscriptionTier, trialEndsAt *time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.Organization{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"subscription_status": status,
			"subscription_tier":   tier,
			"trial_ends_at":       trialEndsAt,
		})
	if result.Error != nil {
		r.logger.Error("Failed to update subscription state",
			zap.String("organization_id", id.String()),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update subscription state: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("organization not found: %s", id)
	}
	return nil
}

func (r *organizationRepository) UpdateBlock(ctx context.Context, id uuid.UUID, update repository.BlockUpdate) error {
	result := r.db.WithContext(ctx).
		Model(&model.Organization{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"block_type":   update.Type,
			"block_reason": update.Reason,
			"blocked_at":   update.BlockedAt,
		})
	if result.Error != nil {
		r.logger.Error("Failed to update block state",
			zap.String("organization_id", id.String()),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update block state: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("organization not found: %s", id)
	}
	return nil
}

func (r *organizationRepository) UpdateVerificationStatus(ctx context.Context, id uuid.UUID, status model.VerificationStatus) error {
	result := r.db.WithContext(ctx).
		Model(&model.Organization{}).
		Where("id = ?", id).
		Update("verification_status", status)
	if result.Error != nil {
		r.logger.Error("Failed to update verification status",
			zap.String("organization_id", id.String()),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update verification status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("organization not found: %s", id)
	}
	return nil
}

func (r *organizationRepository) ListExpiredUnblocked(ctx context.Context, expiredBefore time.Time) ([]*model.Organization, error) {
	var orgs []*model.Organization
	err := r.db.WithContext(ctx).
		Where("subscription_status = ?", model.SubscriptionStatusExpired).
		Where("block_type IS NULL").
		Where("trial_ends_at IS NOT NULL AND trial_ends_at < ?", expiredBefore).
		Find(&orgs).Error
	if err != nil {
		r.logger.Error("Failed to list expired unblocked organizations", zap.Error(err))
		return nil, fmt.Errorf("failed to list expired organizations: %w", err)
	}
	return orgs, nil
}

func (r *organizationRepository) ListSoftBlockedBefore(ctx context.Context, blockedBefore time.Time) ([]*model.Organization, error) {
	var orgs []*model.Organization
	err := r.db.WithContext(ctx).
		Where("block_type = ?", model.BlockTypeSoft).
		Where("blocked_at IS NOT NULL AND blocked_at <= ?", blockedBefore).
		Find(&orgs).Error
	if err != nil {
		r.logger.Error("Failed to list stale soft blocks", zap.Error(err))
		return nil, fmt.Errorf("failed to list stale soft blocks: %w", err)
	}
	return orgs, nil
}

func (r *organizationRepository) ListBlocked(ctx context.Context, filter *model.BlockType) ([]*model.Organization, error) {
	query := r.db.WithContext(ctx).Where("block_type IS NOT NULL")
	if filter != nil {
		query = query.Where("block_type = ?", *filter)
	}

	var orgs []*model.Organization
	if err := query.Order("blocked_at DESC").Find(&orgs).Error; err != nil {
		r.logger.Error("Failed to list blocked organizations", zap.Error(err))
		return nil, fmt.Errorf("failed to list blocked organizations: %w", err)
	}
	return orgs, nil
}
