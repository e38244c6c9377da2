// Package mercadopago implements the payment gateway port against the
// MercadoPago REST API.
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/oficiosya/subscription-engine/internal/config"
	"github.com/oficiosya/subscription-engine/internal/domain/provider"
)

const defaultBaseURL = "https://api.mercadopago.com"

// Client is an HTTP client for the MercadoPago payments API.
type Client struct {
	baseURL     string
	accessToken string
	client      *http.Client
	logger      *zap.Logger
}

// NewClient creates a MercadoPago client from config.
func NewClient(cfg *config.MercadoPagoConfig, logger *zap.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:     baseURL,
		accessToken: cfg.AccessToken,
		client:      &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
	}
}

// GetPayment fetches a payment by its provider reference.
// GET /v1/payments/{id}
func (c *Client) GetPayment(ctx context.Context, providerRef string) (*provider.GatewayPayment, error) {
	url := fmt.Sprintf("%s/v1/payments/%s", c.baseURL, providerRef)
	respBody, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	var raw struct {
		ID           json.Number     `json:"id"`
		Status       string          `json:"status"`
		Amount       decimal.Decimal `json:"transaction_amount"`
		CurrencyID   string          `json:"currency_id"`
		DateApproved *time.Time      `json:"date_approved"`
	}
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "failed to parse payment response",
		}
	}

	return &provider.GatewayPayment{
		ProviderRef: raw.ID.String(),
		Status:      raw.Status,
		Amount:      raw.Amount,
		Currency:    raw.CurrencyID,
		ApprovedAt:  raw.DateApproved,
	}, nil
}

// CreateRefund refunds a payment, fully or partially.
// POST /v1/payments/{id}/refunds
func (c *Client) CreateRefund(ctx context.Context, providerRef string, amount decimal.Decimal) (*provider.GatewayRefund, error) {
	c.logger.Info("MercadoPago: creating refund",
		zap.String("provider_ref", providerRef),
		zap.String("amount", amount.String()))

	// MercadoPago expects a JSON number, not the quoted decimal encoding.
	body := map[string]interface{}{
		"amount": amount.InexactFloat64(),
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, &provider.ProviderError{
			Code:    "MARSHAL_ERROR",
			Message: "failed to prepare refund request",
		}
	}

	url := fmt.Sprintf("%s/v1/payments/%s/refunds", c.baseURL, providerRef)
	respBody, err := c.do(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}

	var raw struct {
		ID        json.Number     `json:"id"`
		PaymentID json.Number     `json:"payment_id"`
		Amount    decimal.Decimal `json:"amount"`
		Status    string          `json:"status"`
	}
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "failed to parse refund response",
		}
	}

	c.logger.Info("MercadoPago: refund created",
		zap.String("refund_ref", raw.ID.String()),
		zap.String("status", raw.Status))

	return &provider.GatewayRefund{
		RefundRef:   raw.ID.String(),
		ProviderRef: raw.PaymentID.String(),
		Amount:      raw.Amount,
		Status:      raw.Status,
	}, nil
}

func (c *Client) do(ctx context.Context, method, url string, body io.Reader) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, &provider.ProviderError{
			Code:    "REQUEST_ERROR",
			Message: "failed to create request",
		}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.Error("MercadoPago: request failed", zap.String("url", url), zap.Error(err))
		return nil, &provider.ProviderError{
			Code:      "API_ERROR",
			Message:   "MercadoPago API request failed: " + err.Error(),
			Retryable: true,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &provider.ProviderError{
			Code:      "RESPONSE_ERROR",
			Message:   "failed to read response",
			Retryable: true,
		}
	}

	if resp.StatusCode >= 300 {
		var errResp struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(respBody, &errResp)

		c.logger.Error("MercadoPago: API error",
			zap.String("url", url),
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(respBody)))

		code := errResp.Error
		if code == "" {
			code = http.StatusText(resp.StatusCode)
		}
		return nil, &provider.ProviderError{
			StatusCode: resp.StatusCode,
			Code:       code,
			Message:    errResp.Message,
			Retryable:  resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
		}
	}

	return respBody, nil
}
