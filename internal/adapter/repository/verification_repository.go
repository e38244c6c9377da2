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

type verificationRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewVerificationRepository creates a new verification repository
func NewVerificationRepository(db *gorm.DB, logger *zap.Logger) repository.VerificationRepository {
	return &verificationRepository{db: db, logger: logger}
}

func (r *verificationRepository) GetRequirementByCode(ctx context.Context, code string) (*model.VerificationRequirement, error) {
	var req model.VerificationRequirement
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get requirement", zap.String("code", code), zap.Error(err))
		return nil, fmt.Errorf("failed to get requirement: %w", err)
	}
	return &req, nil
}

func (r *verificationRepository) ListActiveRequirements(ctx context.Context, scope model.RequirementScope, tier int) ([]*model.VerificationRequirement, error) {
	query := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("applies_to = ?", scope)
	if tier > 0 {
		query = query.Where("tier = ?", tier)
	}

	var reqs []*model.VerificationRequirement
	if err := query.Order("tier ASC, code ASC").Find(&reqs).Error; err != nil {
		r.logger.Error("Failed to list requirements",
			zap.String("scope", string(scope)),
			zap.Int("tier", tier),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list requirements: %w", err)
	}
	return reqs, nil
}

func (r *verificationRepository) GetActiveSubmission(ctx context.Context, orgID uuid.UUID, requirementID int64) (*model.VerificationSubmission, error) {
	var sub model.VerificationSubmission
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND requirement_id = ? AND user_id IS NULL", orgID, requirementID).
		Where("status <> ?", model.SubmissionStatusReplaced).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get active submission",
			zap.String("organization_id", orgID.String()),
			zap.Int64("requirement_id", requirementID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get active submission: %w", err)
	}
	return &sub, nil
}

func (r *verificationRepository) GetActiveUserSubmission(ctx context.Context, userID uuid.UUID, requirementID int64) (*model.VerificationSubmission, error) {
	var sub model.VerificationSubmission
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND requirement_id = ?", userID, requirementID).
		Where("status <> ?", model.SubmissionStatusReplaced).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get active user submission",
			zap.String("user_id", userID.String()),
			zap.Int64("requirement_id", requirementID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get active user submission: %w", err)
	}
	return &sub, nil
}

func (r *verificationRepository) CreateSubmission(ctx context.Context, sub *model.VerificationSubmission) error {
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		r.logger.Error("Failed to create submission",
			zap.String("organization_id", sub.OrganizationID.String()),
			zap.Int64("requirement_id", sub.RequirementID),
			zap.Error(err))
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (r *verificationRepository) GetSubmissionByID(ctx context.Context, id int64) (*model.VerificationSubmission, error) {
	var sub model.VerificationSubmission
	err := r.db.WithContext(ctx).Preload("Requirement").Where("id = ?", id).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get submission", zap.Int64("submission_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return &sub, nil
}

func (r *verificationRepository) UpdateSubmission(ctx context.Context, sub *model.VerificationSubmission) error {
	result := r.db.WithContext(ctx).
		Model(&model.VerificationSubmission{}).
		Where("id = ?", sub.ID).
		Updates(map[string]interface{}{
			"status":              sub.Status,
			"verified_at":         sub.VerifiedAt,
			"verified_by_user_id": sub.VerifiedByUserID,
			"rejection_reason":    sub.RejectionReason,
			"rejection_code":      sub.RejectionCode,
			"expires_at":          sub.ExpiresAt,
		})
	if result.Error != nil {
		r.logger.Error("Failed to update submission",
			zap.Int64("submission_id", sub.ID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update submission: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("submission not found: %d", sub.ID)
	}
	return nil
}

func (r *verificationRepository) MarkReplaced(ctx context.Context, submissionID int64) error {
	result := r.db.WithContext(ctx).
		Model(&model.VerificationSubmission{}).
		Where("id = ? AND status = ?", submissionID, model.SubmissionStatusInReview).
		Update("status", model.SubmissionStatusReplaced)
	if result.Error != nil {
		r.logger.Error("Failed to mark submission replaced",
			zap.Int64("submission_id", submissionID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to mark submission replaced: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("submission not pending review: %d", submissionID)
	}
	return nil
}

func (r *verificationRepository) ListSubmissionsForOrganization(ctx context.Context, orgID uuid.UUID) ([]*model.VerificationSubmission, error) {
	var subs []*model.VerificationSubmission
	err := r.db.WithContext(ctx).
		Preload("Requirement").
		Where("organization_id = ?", orgID).
		Where("status <> ?", model.SubmissionStatusReplaced).
		Order("created_at DESC").
		Find(&subs).Error
	if err != nil {
		r.logger.Error("Failed to list submissions",
			zap.String("organization_id", orgID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return subs, nil
}

func (r *verificationRepository) ListSubmissionsForUser(ctx context.Context, userID uuid.UUID) ([]*model.VerificationSubmission, error) {
	var subs []*model.VerificationSubmission
	err := r.db.WithContext(ctx).
		Preload("Requirement").
		Where("user_id = ?", userID).
		Where("status <> ?", model.SubmissionStatusReplaced).
		Order("created_at DESC").
		Find(&subs).Error
	if err != nil {
		r.logger.Error("Failed to list user submissions",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list user submissions: %w", err)
	}
	return subs, nil
}

func (r *verificationRepository) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*model.VerificationSubmission, error) {
	var subs []*model.VerificationSubmission
	err := r.db.WithContext(ctx).
		Preload("Requirement").
		Where("status = ?", model.SubmissionStatusApproved).
		Where("expires_at >= ? AND expires_at < ?", from, to).
		Find(&subs).Error
	if err != nil {
		r.logger.Error("Failed to list expiring submissions", zap.Error(err))
		return nil, fmt.Errorf("failed to list expiring submissions: %w", err)
	}
	return subs, nil
}
