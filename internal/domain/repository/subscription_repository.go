package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/oficiosya/subscription-engine/internal/domain/model"
)

// SubscriptionRepository persists subscription rows.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *model.Subscription) error
	GetOpenByOrganization(ctx context.Context, orgID uuid.UUID) (*model.Subscription, error)
	GetAnyByOrganization(ctx context.Context, orgID uuid.UUID) (*model.Subscription, error)
	Update(ctx context.Context, sub *model.Subscription) error

	// ListTrialsEndingBetween returns open trials whose deadline falls in
	// [from, to), for reminder dispatch.
	ListTrialsEndingBetween(ctx context.Context, from, to time.Time) ([]*model.Subscription, error)

	// ListTrialsEndedBefore returns open trials whose deadline already
	// passed, for the expiry cron.
	ListTrialsEndedBefore(ctx context.Context, cutoff time.Time) ([]*model.Subscription, error)
}
