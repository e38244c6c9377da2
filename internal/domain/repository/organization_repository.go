package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/oficiosya/subscription-engine/internal/domain/model"
)

// BlockUpdate is the block-state change applied to an organization.
// A nil Type clears the block.
type BlockUpdate struct {
	Type      *model.BlockType
	Reason    *string
	BlockedAt *time.Time
}

// OrganizationRepository persists the Organization aggregate.
type OrganizationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Organization, error)
	Create(ctx context.Context, org *model.Organization) error

	// UpdateSubscriptionState sets status/tier/trial deadline together so
	// the aggregate never holds a half-applied transition.
	UpdateSubscriptionState(ctx context.Context, id uuid.UUID, status model.SubscriptionStatus, tier model.SubscriptionTier, trialEndsAt *time.Time) error

	UpdateBlock(ctx context.Context, id uuid.UUID, update BlockUpdate) error
	UpdateVerificationStatus(ctx context.Context, id uuid.UUID, status model.VerificationStatus) error

	// ListExpiredUnblocked returns organizations whose subscription expired
	// before the cutoff and that carry no block yet.
	ListExpiredUnblocked(ctx context.Context, expiredBefore time.Time) ([]*model.Organization, error)

	// ListSoftBlockedBefore returns organizations soft-blocked at or before
	// the cutoff, candidates for escalation.
	ListSoftBlockedBefore(ctx context.Context, blockedBefore time.Time) ([]*model.Organization, error)

	// ListBlocked returns blocked organizations, optionally filtered by
	// block type.
	ListBlocked(ctx context.Context, filter *model.BlockType) ([]*model.Organization, error)
}
