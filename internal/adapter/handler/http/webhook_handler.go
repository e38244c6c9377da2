package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainErrors "github.com/oficiosya/subscription-engine/internal/domain/errors"
	"github.com/oficiosya/subscription-engine/internal/domain/model"
	"github.com/oficiosya/subscription-engine/internal/domain/provider"
	"github.com/oficiosya/subscription-engine/internal/usecase"
)

// WebhookHandler handles MercadoPago payment notifications. The webhook is
// a trigger, never a source of truth: the payment state is re-fetched from
// the gateway before any local transition.
type WebhookHandler struct {
	logger         *zap.Logger
	paymentService *usecase.PaymentService
	gateway        provider.PaymentGateway
	webhookSecret  string
}

func NewWebhookHandler(
	logger *zap.Logger,
	paymentService *usecase.PaymentService,
	gateway provider.PaymentGateway,
	webhookSecret string,
) *WebhookHandler {
	return &WebhookHandler{
		logger:         logger,
		paymentService: paymentService,
		gateway:        gateway,
		webhookSecret:  webhookSecret,
	}
}

type mercadoPagoNotification struct {
	Action string `json:"action"`
	Type   string `json:"type"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Handle processes a MercadoPago notification.
// POST /api/v1/webhooks/mercadopago
func (h *WebhookHandler) Handle(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		h.logger.Error("Failed to read webhook body", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Failed to read request body",
			"code":  "INVALID_REQUEST",
		})
	}

	var notification mercadoPagoNotification
	if err := json.Unmarshal(body, &notification); err != nil {
		h.logger.Warn("Failed to parse MercadoPago notification", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid notification payload",
			"code":  "INVALID_PAYLOAD",
		})
	}

	if h.webhookSecret != "" {
		if err := h.verifySignature(c, notification.Data.ID); err != nil {
			h.logger.Warn("MercadoPago signature verification failed",
				zap.String("data_id", notification.Data.ID),
				zap.Error(err))
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"error": "Invalid webhook signature",
				"code":  "INVALID_SIGNATURE",
			})
		}
	}

	h.logger.Info("Processing MercadoPago notification",
		zap.String("action", notification.Action),
		zap.String("type", notification.Type),
		zap.String("data_id", notification.Data.ID))

	// Only payment notifications matter; everything else is acknowledged
	// so MercadoPago stops retrying.
	if notification.Type != "payment" || notification.Data.ID == "" {
		return c.JSON(http.StatusOK, echo.Map{"status": "ignored"})
	}

	gatewayPayment, err := h.gateway.GetPayment(ctx, notification.Data.ID)
	if err != nil {
		h.logger.Error("Failed to fetch payment from MercadoPago",
			zap.String("provider_ref", notification.Data.ID),
			zap.Error(err))
		// 5xx so MercadoPago retries the notification later.
		return c.JSON(http.StatusBadGateway, echo.Map{
			"error": "Failed to fetch payment from gateway",
			"code":  "GATEWAY_FETCH_FAILED",
		})
	}

	payment, err := h.paymentService.GetPaymentByProviderRef(ctx, gatewayPayment.ProviderRef)
	if err != nil {
		if domainErrors.IsNotFound(err) {
			// Payment created outside this engine; acknowledge and move on.
			h.logger.Warn("No local payment for provider reference",
				zap.String("provider_ref", gatewayPayment.ProviderRef))
			return c.JSON(http.StatusOK, echo.Map{"status": "unknown_payment"})
		}
		return writeDomainError(c, h.logger, err)
	}

	switch gatewayPayment.Status {
	case "approved":
		providerData := model.JSONB{
			"provider_status": gatewayPayment.Status,
			"currency":        gatewayPayment.Currency,
			"amount":          gatewayPayment.Amount.String(),
		}
		if gatewayPayment.ApprovedAt != nil {
			providerData["approved_at"] = gatewayPayment.ApprovedAt.UTC().Format(time.RFC3339)
		}
		err = h.paymentService.ProcessApprovedPayment(ctx, payment.ID, providerData)
	case "rejected", "cancelled":
		err = h.paymentService.ProcessFailedPayment(ctx, payment.ID, "provider_"+gatewayPayment.Status)
	default:
		h.logger.Info("Ignoring non-terminal payment status",
			zap.String("provider_ref", gatewayPayment.ProviderRef),
			zap.String("status", gatewayPayment.Status))
		return c.JSON(http.StatusOK, echo.Map{"status": "ignored"})
	}

	if err != nil {
		// Settlement retries are expected; a repeated webhook for an
		// already-settled payment is a success from MercadoPago's side.
		if domainErrors.IsInvalidTransition(err) ||
			errors.Is(err, domainErrors.ErrPaymentAlreadyProcessed) {
			return c.JSON(http.StatusOK, echo.Map{"status": "already_processed"})
		}
		h.logger.Error("Failed to settle payment from webhook",
			zap.Int64("payment_id", payment.ID),
			zap.String("status", gatewayPayment.Status),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to process payment notification",
			"code":  "WEBHOOK_HANDLER_ERROR",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "processed"})
}

// verifySignature checks the MercadoPago x-signature header:
// "ts=<unix>,v1=<hmac>" over the manifest
// "id:<data.id>;request-id:<x-request-id>;ts:<ts>;".
func (h *WebhookHandler) verifySignature(c echo.Context, dataID string) error {
	header := c.Request().Header.Get("x-signature")
	if header == "" {
		return fmt.Errorf("missing x-signature header")
	}

	var ts, v1 string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "ts":
			ts = kv[1]
		case "v1":
			v1 = kv[1]
		}
	}
	if ts == "" || v1 == "" {
		return fmt.Errorf("malformed x-signature header")
	}

	requestID := c.Request().Header.Get("x-request-id")
	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, ts)

	mac := hmac.New(sha256.New, []byte(h.webhookSecret))
	mac.Write([]byte(manifest))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(v1)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}
