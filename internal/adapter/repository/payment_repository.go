package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	domainErrors "github.com/oficiosya/subscription-engine/internal/domain/errors"
	"github.com/oficiosya/subscription-engine/internal/domain/model"
	"github.com/oficiosya/subscription-engine/internal/domain/repository"
)

type paymentRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB, logger *zap.Logger) repository.PaymentRepository {
	return &paymentRepository{db: db, logger: logger}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.SubscriptionPayment) error {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		r.logger.Error("Failed to create payment",
			zap.String("organization_id", payment.OrganizationID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id int64) (*model.SubscriptionPayment, error) {
	var payment model.SubscriptionPayment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get payment", zap.Int64("payment_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

func (r *paymentRepository) GetByProviderRef(ctx context.Context, providerRef string) (*model.SubscriptionPayment, error) {
	var payment model.SubscriptionPayment
	err := r.db.WithContext(ctx).Where("provider_ref = ?", providerRef).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get payment by provider ref",
			zap.String("provider_ref", providerRef),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get payment by provider ref: %w", err)
	}
	return &payment, nil
}

// Update writes the settlement transition with a status precondition so a
// concurrent duplicate delivery cannot settle the same payment twice.
func (r *paymentRepository) Update(ctx context.Context, payment *model.SubscriptionPayment, from model.PaymentStatus) error {
	result := r.db.WithContext(ctx).
		Model(&model.SubscriptionPayment{}).
		Where("id = ? AND status = ?", payment.ID, from).
		Updates(map[string]interface{}{
			"status":         payment.Status,
			"failure_reason": payment.FailureReason,
			"paid_at":        payment.PaidAt,
			"refunded_at":    payment.RefundedAt,
			"provider_data":  payment.ProviderData,
		})
	if result.Error != nil {
		r.logger.Error("Failed to update payment",
			zap.Int64("payment_id", payment.ID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update payment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		r.logger.Warn("Payment update matched no row in expected status",
			zap.Int64("payment_id", payment.ID),
			zap.String("expected_status", string(from)))
		return domainErrors.ErrStalePaymentStatus
	}
	return nil
}

// CountConsecutiveFailed counts failures newer than the organization's most
// recent completed payment. With no completed payment every failure counts.
func (r *paymentRepository) CountConsecutiveFailed(ctx context.Context, orgID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.SubscriptionPayment{}).
		Where("organization_id = ? AND status = ?", orgID, model.PaymentStatusFailed).
		Where(`created_at > COALESCE(
			(SELECT MAX(paid_at) FROM subscription_payments
			 WHERE organization_id = ? AND status = ?),
			'epoch'::timestamptz)`, orgID, model.PaymentStatusCompleted).
		Count(&count).Error
	if err != nil {
		r.logger.Error("Failed to count consecutive failed payments",
			zap.String("organization_id", orgID.String()),
			zap.Error(err))
		return 0, fmt.Errorf("failed to count failed payments: %w", err)
	}
	return int(count), nil
}

func (r *paymentRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*model.SubscriptionPayment, error) {
	var payments []*model.SubscriptionPayment
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&payments).Error
	if err != nil {
		r.logger.Error("Failed to list payments",
			zap.String("organization_id", orgID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}
