package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domainErrors "github.com/oficiosya/subscription-engine/internal/domain/errors"
	"github.com/oficiosya/subscription-engine/internal/domain/model"
	"github.com/oficiosya/subscription-engine/internal/domain/provider"
	"github.com/oficiosya/subscription-engine/internal/domain/repository"
	"github.com/oficiosya/subscription-engine/internal/infrastructure/metrics"
)

// PaymentService settles payments reported by the gateway and processes
// refunds under the Ley 24.240 cooling-off rules. Settlement is terminal:
// a payment leaves pending exactly once.
type PaymentService struct {
	uow      repository.UnitOfWork
	payments repository.PaymentRepository
	orgs     repository.OrganizationRepository
	gateway  provider.PaymentGateway
	cache    StatusCache
	logger   *zap.Logger
	now      func() time.Time
}

// NewPaymentService creates a new payment service instance. cache may be nil.
func NewPaymentService(
	uow repository.UnitOfWork,
	payments repository.PaymentRepository,
	orgs repository.OrganizationRepository,
	gateway provider.PaymentGateway,
	cache StatusCache,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		uow:      uow,
		payments: payments,
		orgs:     orgs,
		gateway:  gateway,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
	}
}

// RefundRequest carries the caller's intent for ProcessRefund. ForceRefund
// plus AdminID overrides the statutory window.
type RefundRequest struct {
	Reason      string     `json:"reason"`
	ForceRefund bool       `json:"force_refund"`
	AdminID     *uuid.UUID `json:"admin_id,omitempty"`
}

// RefundEligibility answers "can this payment still be refunded without an
// override" plus how many whole days of the window remain.
type RefundEligibility struct {
	Eligible      bool `json:"eligible"`
	DaysRemaining int  `json:"days_remaining"`
	IsLey24240    bool `json:"is_ley_24240"`
}

// CreatePayment records a pending payment for an organization. The provider
// reference, when already known, dedupes webhook deliveries later.
func (s *PaymentService) CreatePayment(ctx context.Context, orgID uuid.UUID, subscriptionID *int64, amount decimal.Decimal, providerRef *string) (*model.SubscriptionPayment, error) {
	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, domainErrors.NewNotFoundError("organization", orgID.String())
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, domainErrors.NewPolicyViolationError("payment_amount", "amount must be positive")
	}

	payment := &model.SubscriptionPayment{
		OrganizationID: orgID,
		SubscriptionID: subscriptionID,
		Amount:         amount,
		Currency:       "ARS",
		Status:         model.PaymentStatusPending,
		ProviderRef:    providerRef,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		s.logger.Error("failed to create payment",
			zap.String("organization_id", orgID.String()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("payment created",
		zap.Int64("payment_id", payment.ID),
		zap.String("organization_id", orgID.String()),
		zap.String("amount", amount.String()))
	return payment, nil
}

// GetPayment returns a payment by id.
func (s *PaymentService) GetPayment(ctx context.Context, paymentID int64) (*model.SubscriptionPayment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domainErrors.NewNotFoundError("payment", fmt.Sprintf("%d", paymentID))
	}
	return payment, nil
}

// GetPaymentByProviderRef resolves a gateway notification to our payment.
func (s *PaymentService) GetPaymentByProviderRef(ctx context.Context, providerRef string) (*model.SubscriptionPayment, error) {
	payment, err := s.payments.GetByProviderRef(ctx, providerRef)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domainErrors.NewNotFoundError("payment", providerRef)
	}
	return payment, nil
}

// ListPayments returns an organization's payment history, newest first.
func (s *PaymentService) ListPayments(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*model.SubscriptionPayment, error) {
	return s.payments.ListByOrganization(ctx, orgID, limit, offset)
}

// ProcessApprovedPayment settles a pending payment as completed, activates
// the organization and lifts any block, all in one transaction. Webhook
// retries for an already-settled payment get ErrPaymentAlreadyProcessed.
func (s *PaymentService) ProcessApprovedPayment(ctx context.Context, paymentID int64, providerData model.JSONB) error {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if payment == nil {
		return domainErrors.NewNotFoundError("payment", fmt.Sprintf("%d", paymentID))
	}
	if payment.Status != model.PaymentStatusPending {
		return domainErrors.ErrPaymentAlreadyProcessed
	}

	org, err := s.orgs.GetByID(ctx, payment.OrganizationID)
	if err != nil {
		return err
	}
	if org == nil {
		return domainErrors.NewNotFoundError("organization", payment.OrganizationID.String())
	}

	now := s.now()
	err = s.uow.Do(ctx, func(r *repository.Set) error {
		payment.Status = model.PaymentStatusCompleted
		payment.PaidAt = &now
		if providerData != nil {
			payment.ProviderData = providerData
		}
		if err := r.Payments.Update(ctx, payment, model.PaymentStatusPending); err != nil {
			return err
		}

		if err := r.Organizations.UpdateSubscriptionState(ctx, org.ID, model.SubscriptionStatusActive, org.SubscriptionTier, nil); err != nil {
			return err
		}

		sub, err := r.Subscriptions.GetOpenByOrganization(ctx, org.ID)
		if err != nil {
			return err
		}
		if sub != nil && sub.Status != model.SubscriptionStatusActive {
			sub.Status = model.SubscriptionStatusActive
			sub.TrialEndsAt = nil
			if err := r.Subscriptions.Update(ctx, sub); err != nil {
				return err
			}
		}

		if org.BlockType != nil {
			if err := r.Organizations.UpdateBlock(ctx, org.ID, repository.BlockUpdate{}); err != nil {
				return err
			}
			if err := r.Events.Append(ctx, &model.SubscriptionEvent{
				OrganizationID: org.ID,
				EventType:      model.EventBlockRemoved,
				EventData: model.JSONB{
					"reason":              "payment_received",
					"previous_block_type": string(*org.BlockType),
				},
			}); err != nil {
				return err
			}
		}

		return r.Events.Append(ctx, &model.SubscriptionEvent{
			OrganizationID: org.ID,
			EventType:      model.EventPaymentSucceeded,
			EventData: model.JSONB{
				"payment_id": payment.ID,
				"amount":     payment.Amount.String(),
				"currency":   payment.Currency,
			},
		})
	})
	if err != nil {
		// The guarded UPDATE matched no pending row: a concurrent delivery
		// settled this payment first.
		if errors.Is(err, domainErrors.ErrStalePaymentStatus) {
			return domainErrors.ErrPaymentAlreadyProcessed
		}
		s.logger.Error("failed to settle approved payment",
			zap.Int64("payment_id", paymentID),
			zap.Error(err))
		return err
	}

	s.invalidate(ctx, org.ID)
	metrics.PaymentsSettled.WithLabelValues(string(model.PaymentStatusCompleted)).Inc()
	s.logger.Info("payment completed",
		zap.Int64("payment_id", paymentID),
		zap.String("organization_id", org.ID.String()))
	return nil
}

// ProcessFailedPayment settles a pending payment as failed. When the
// organization has accumulated enough consecutive failures since its last
// completed payment and is not yet blocked, a soft block is applied in the
// same transaction.
func (s *PaymentService) ProcessFailedPayment(ctx context.Context, paymentID int64, failureReason string) error {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if payment == nil {
		return domainErrors.NewNotFoundError("payment", fmt.Sprintf("%d", paymentID))
	}
	if payment.Status != model.PaymentStatusPending {
		return domainErrors.ErrPaymentAlreadyProcessed
	}

	org, err := s.orgs.GetByID(ctx, payment.OrganizationID)
	if err != nil {
		return err
	}
	if org == nil {
		return domainErrors.NewNotFoundError("organization", payment.OrganizationID.String())
	}

	now := s.now()
	blocked := false
	err = s.uow.Do(ctx, func(r *repository.Set) error {
		payment.Status = model.PaymentStatusFailed
		payment.FailureReason = &failureReason
		if err := r.Payments.Update(ctx, payment, model.PaymentStatusPending); err != nil {
			return err
		}

		if err := r.Events.Append(ctx, &model.SubscriptionEvent{
			OrganizationID: org.ID,
			EventType:      model.EventPaymentFailed,
			EventData: model.JSONB{
				"payment_id": payment.ID,
				"amount":     payment.Amount.String(),
				"reason":     failureReason,
			},
		}); err != nil {
			return err
		}

		failures, err := r.Payments.CountConsecutiveFailed(ctx, org.ID)
		if err != nil {
			return err
		}
		if failures < model.PaymentFailureBlockThreshold || org.BlockType != nil {
			return nil
		}

		blocked = true
		blockType := model.BlockTypeSoft
		reason := fmt.Sprintf("%d consecutive failed payments", failures)
		if err := r.Organizations.UpdateBlock(ctx, org.ID, repository.BlockUpdate{
			Type:      &blockType,
			Reason:    &reason,
			BlockedAt: &now,
		}); err != nil {
			return err
		}
		return r.Events.Append(ctx, &model.SubscriptionEvent{
			OrganizationID: org.ID,
			EventType:      model.EventBlockApplied,
			EventData: model.JSONB{
				"block_type": string(blockType),
				"reason":     reason,
			},
		})
	})
	if err != nil {
		if errors.Is(err, domainErrors.ErrStalePaymentStatus) {
			return domainErrors.ErrPaymentAlreadyProcessed
		}
		s.logger.Error("failed to settle failed payment",
			zap.Int64("payment_id", paymentID),
			zap.Error(err))
		return err
	}

	if blocked {
		s.invalidate(ctx, org.ID)
		metrics.BlocksApplied.WithLabelValues(string(model.BlockTypeSoft)).Inc()
	}
	metrics.PaymentsSettled.WithLabelValues(string(model.PaymentStatusFailed)).Inc()
	s.logger.Warn("payment failed",
		zap.Int64("payment_id", paymentID),
		zap.String("organization_id", org.ID.String()),
		zap.String("reason", failureReason),
		zap.Bool("block_applied", blocked))
	return nil
}

// CheckRefundEligibility reports whether a completed payment is still inside
// the Ley 24.240 cooling-off window.
func (s *PaymentService) CheckRefundEligibility(ctx context.Context, paymentID int64) (*RefundEligibility, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domainErrors.NewNotFoundError("payment", fmt.Sprintf("%d", paymentID))
	}
	if payment.Status != model.PaymentStatusCompleted || payment.PaidAt == nil {
		return &RefundEligibility{IsLey24240: true}, nil
	}

	elapsed, remaining := s.refundWindow(*payment.PaidAt)
	return &RefundEligibility{
		Eligible:      elapsed <= model.Ley24240RefundDays,
		DaysRemaining: remaining,
		IsLey24240:    true,
	}, nil
}

// ProcessRefund refunds a completed payment through the gateway and then
// cancels the subscription. Outside the statutory window the caller must
// force the refund with an identified admin; the gateway call happens before
// any local state changes so a provider failure leaves nothing half-done.
func (s *PaymentService) ProcessRefund(ctx context.Context, paymentID int64, req RefundRequest) error {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if payment == nil {
		return domainErrors.NewNotFoundError("payment", fmt.Sprintf("%d", paymentID))
	}
	if payment.Status == model.PaymentStatusRefunded {
		return domainErrors.NewInvalidTransitionError("payment",
			string(payment.Status), "refund", "payment is already refunded")
	}
	if payment.Status != model.PaymentStatusCompleted || payment.PaidAt == nil {
		return domainErrors.ErrRefundNotCompleted
	}

	elapsed, remaining := s.refundWindow(*payment.PaidAt)
	if elapsed > model.Ley24240RefundDays {
		if !req.ForceRefund || req.AdminID == nil {
			return domainErrors.NewPolicyViolationError("ley_24240_refund_window",
				fmt.Sprintf("refund period (Ley 24.240, %d days) has elapsed; %d days remaining; force_refund with an admin identity is required",
					model.Ley24240RefundDays, remaining))
		}
	}

	if payment.ProviderRef == nil {
		return domainErrors.NewPolicyViolationError("refund_provider_ref",
			"payment has no provider reference to refund against")
	}
	refund, err := s.gateway.CreateRefund(ctx, *payment.ProviderRef, payment.Amount)
	if err != nil {
		var pe *provider.ProviderError
		if errors.As(err, &pe) {
			return domainErrors.NewExternalError("payment_gateway", pe.Message, pe.Retryable, err)
		}
		return domainErrors.NewExternalError("payment_gateway", "refund request failed", true, err)
	}

	now := s.now()
	err = s.uow.Do(ctx, func(r *repository.Set) error {
		payment.Status = model.PaymentStatusRefunded
		payment.RefundedAt = &now
		if err := r.Payments.Update(ctx, payment, model.PaymentStatusCompleted); err != nil {
			return err
		}

		if err := r.Organizations.UpdateSubscriptionState(ctx, payment.OrganizationID, model.SubscriptionStatusCancelled, model.TierFree, nil); err != nil {
			return err
		}

		sub, err := r.Subscriptions.GetOpenByOrganization(ctx, payment.OrganizationID)
		if err != nil {
			return err
		}
		if sub != nil {
			sub.Status = model.SubscriptionStatusCancelled
			sub.EndedAt = &now
			if err := r.Subscriptions.Update(ctx, sub); err != nil {
				return err
			}
		}

		return r.Events.Append(ctx, &model.SubscriptionEvent{
			OrganizationID: payment.OrganizationID,
			EventType:      model.EventPaymentRefunded,
			EventData: model.JSONB{
				"payment_id":   payment.ID,
				"amount":       payment.Amount.String(),
				"refund_ref":   refund.RefundRef,
				"reason":       req.Reason,
				"force_refund": req.ForceRefund,
			},
			ActorID: req.AdminID,
		})
	})
	if err != nil {
		if errors.Is(err, domainErrors.ErrStalePaymentStatus) {
			s.logger.Error("concurrent refund detected after gateway call",
				zap.Int64("payment_id", paymentID),
				zap.String("refund_ref", refund.RefundRef))
			return domainErrors.NewInvalidTransitionError("payment",
				string(model.PaymentStatusCompleted), "refund", "payment was refunded concurrently")
		}
		s.logger.Error("refund settled at gateway but local state update failed",
			zap.Int64("payment_id", paymentID),
			zap.String("refund_ref", refund.RefundRef),
			zap.Error(err))
		return err
	}

	s.invalidate(ctx, payment.OrganizationID)
	metrics.RefundsProcessed.Inc()
	s.logger.Info("payment refunded",
		zap.Int64("payment_id", paymentID),
		zap.String("organization_id", payment.OrganizationID.String()),
		zap.String("refund_ref", refund.RefundRef),
		zap.Bool("force_refund", req.ForceRefund))
	return nil
}

// refundWindow returns whole days elapsed since paidAt and whole days left
// in the Ley 24.240 window (never negative). A payment made exactly ten days
// ago is still eligible with zero days remaining.
func (s *PaymentService) refundWindow(paidAt time.Time) (elapsed, remaining int) {
	elapsed = int(s.now().Sub(paidAt).Hours() / 24)
	remaining = model.Ley24240RefundDays - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return elapsed, remaining
}

func (s *PaymentService) invalidate(ctx context.Context, orgID uuid.UUID) {
	if s.cache != nil {
		s.cache.InvalidateBlockStatus(ctx, orgID)
	}
}
