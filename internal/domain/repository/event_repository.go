package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/oficiosya/subscription-engine/internal/domain/model"
)

// EventRepository appends to the audit trail. There is deliberately no
// update or delete: the event log is append-only.
type EventRepository interface {
	Append(ctx context.Context, event *model.SubscriptionEvent) error
	ListByOrganization(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*model.SubscriptionEvent, error)
}
