package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/oficiosya/subscription-engine/internal/domain/model"
)

// PaymentRepository persists subscription payments.
type PaymentRepository interface {
	Create(ctx context.Context, payment *model.SubscriptionPayment) error
	GetByID(ctx context.Context, id int64) (*model.SubscriptionPayment, error)
	GetByProviderRef(ctx context.Context, providerRef string) (*model.SubscriptionPayment, error)

	// Update applies a settlement transition guarded by the expected prior
	// status. When the row has already left that status (a concurrent
	// duplicate delivery won the race) it returns ErrStalePaymentStatus
	// without writing.
	Update(ctx context.Context, payment *model.SubscriptionPayment, from model.PaymentStatus) error

	// CountConsecutiveFailed counts failed payments newer than the
	// organization's most recent completed payment.
	CountConsecutiveFailed(ctx context.Context, orgID uuid.UUID) (int, error)

	ListByOrganization(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*model.SubscriptionPayment, error)
}
