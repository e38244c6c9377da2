package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/oficiosya/subscription-engine/internal/domain/model"
)

// VerificationRepository persists the requirement catalog and submissions.
type VerificationRepository interface {
	GetRequirementByCode(ctx context.Context, code string) (*model.VerificationRequirement, error)

	// ListActiveRequirements returns active catalog entries for a scope,
	// optionally filtered to one tier (0 means all tiers).
	ListActiveRequirements(ctx context.Context, scope model.RequirementScope, tier int) ([]*model.VerificationRequirement, error)

	// GetActiveSubmission returns the latest non-replaced submission for
	// the (organization, requirement) pair, nil when none exists.
	GetActiveSubmission(ctx context.Context, orgID uuid.UUID, requirementID int64) (*model.VerificationSubmission, error)

	// GetActiveUserSubmission is GetActiveSubmission scoped to a user.
	GetActiveUserSubmission(ctx context.Context, userID uuid.UUID, requirementID int64) (*model.VerificationSubmission, error)

	CreateSubmission(ctx context.Context, sub *model.VerificationSubmission) error
	GetSubmissionByID(ctx context.Context, id int64) (*model.VerificationSubmission, error)
	UpdateSubmission(ctx context.Context, sub *model.VerificationSubmission) error

	// MarkReplaced flips a still-pending submission to replaced before a
	// resubmission is inserted.
	MarkReplaced(ctx context.Context, submissionID int64) error

	ListSubmissionsForOrganization(ctx context.Context, orgID uuid.UUID) ([]*model.VerificationSubmission, error)
	ListSubmissionsForUser(ctx context.Context, userID uuid.UUID) ([]*model.VerificationSubmission, error)

	// ListExpiringBetween returns approved submissions whose expiry falls
	// in [from, to), for renewal reminders.
	ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*model.VerificationSubmission, error)
}
