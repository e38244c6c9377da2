package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/oficiosya/subscription-engine/internal/middleware/auth"
	"github.com/oficiosya/subscription-engine/internal/usecase"
)

type PaymentHandler struct {
	logger         *zap.Logger
	paymentService *usecase.PaymentService
}

func NewPaymentHandler(logger *zap.Logger, paymentService *usecase.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		logger:         logger,
		paymentService: paymentService,
	}
}

type CreatePaymentRequest struct {
	OrganizationID string  `json:"organization_id" validate:"required,uuid"`
	SubscriptionID *int64  `json:"subscription_id,omitempty"`
	Amount         string  `json:"amount" validate:"required"`
	ProviderRef    *string `json:"provider_ref,omitempty"`
}

// CreatePayment registers a pending payment before it is sent to the
// gateway.
// POST /api/v1/payments
func (h *PaymentHandler) CreatePayment(c echo.Context) error {
	var req CreatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request body",
			"code":  "INVALID_BODY",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": err.Error(),
			"code":  "VALIDATION_FAILED",
		})
	}

	orgID, err := uuid.Parse(req.OrganizationID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "organization_id must be a UUID",
			"code":  "INVALID_ORGANIZATION_ID",
		})
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "amount must be a decimal string",
			"code":  "INVALID_AMOUNT",
		})
	}

	payment, err := h.paymentService.CreatePayment(c.Request().Context(), orgID, req.SubscriptionID, amount, req.ProviderRef)
	if err != nil {
		return writeDomainError(c, h.logger, err)
	}

	return c.JSON(http.StatusCreated, payment)
}

// GetPayment fetches one payment by local id.
// GET /api/v1/payments/:payment_id
func (h *PaymentHandler) GetPayment(c echo.Context) error {
	paymentID, handled, err := int64Param(c, "payment_id")
	if handled {
		return err
	}

	payment, err := h.paymentService.GetPayment(c.Request().Context(), paymentID)
	if err != nil {
		return writeDomainError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, payment)
}

// ListPayments lists an organization's payments, newest first.
// GET /api/v1/organizations/:organization_id/payments?limit=&offset=
func (h *PaymentHandler) ListPayments(c echo.Context) error {
	orgID, handled, err := uuidParam(c, "organization_id")
	if handled {
		return err
	}

	limit := queryInt(c, "limit", 20)
	offset := queryInt(c, "offset", 0)

	payments, err := h.paymentService.ListPayments(c.Request().Context(), orgID, limit, offset)
	if err != nil {
		return writeDomainError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"payments": payments,
		"count":    len(payments),
	})
}

// CheckRefundEligibility reports whether the statutory refund window is
// still open for a payment.
// GET /api/v1/payments/:payment_id/refund-eligibility
func (h *PaymentHandler) CheckRefundEligibility(c echo.Context) error {
	paymentID, handled, err := int64Param(c, "payment_id")
	if handled {
		return err
	}

	eligibility, err := h.paymentService.CheckRefundEligibility(c.Request().Context(), paymentID)
	if err != nil {
		return writeDomainError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, eligibility)
}

type RefundPaymentRequest struct {
	Reason      string `json:"reason" validate:"required,max=500"`
	ForceRefund bool   `json:"force_refund"`
}

// RefundPayment refunds a completed payment. Inside the Ley 24.240 window
// any authenticated caller may refund; forcing past the window requires
// the admin role.
// POST /api/v1/payments/:payment_id/refund
func (h *PaymentHandler) RefundPayment(c echo.Context) error {
	paymentID, handled, err := int64Param(c, "payment_id")
	if handled {
		return err
	}

	var req RefundPaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request body",
			"code":  "INVALID_BODY",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": err.Error(),
			"code":  "VALIDATION_FAILED",
		})
	}

	refundReq := usecase.RefundRequest{
		Reason:      req.Reason,
		ForceRefund: req.ForceRefund,
	}
	if req.ForceRefund {
		admin, err := auth.RequireAdmin(c)
		if err != nil {
			return c.JSON(http.StatusForbidden, echo.Map{
				"error": "Forced refunds require the admin role",
				"code":  "ADMIN_REQUIRED",
			})
		}
		adminID, err := uuid.Parse(admin.UserID)
		if err != nil {
			return c.JSON(http.StatusForbidden, echo.Map{
				"error": "Invalid admin identity",
				"code":  "INVALID_ADMIN_ID",
			})
		}
		refundReq.AdminID = &adminID
	}

	if err := h.paymentService.ProcessRefund(c.Request().Context(), paymentID, refundReq); err != nil {
		return writeDomainError(c, h.logger, err)
	}

	h.logger.Info("refund processed via API",
		zap.Int64("payment_id", paymentID),
		zap.Bool("force_refund", req.ForceRefund))

	return c.JSON(http.StatusOK, echo.Map{"status": "refunded"})
}
