// Package provider declares the ports the engine needs from external
// collaborators: the payment gateway, the document auto-verifier and the
// badge/profile sync. Implementations live under internal/infrastructure.
package provider

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// GatewayPayment is the gateway's view of a payment.
type GatewayPayment struct {
	ProviderRef string          `json:"id"`
	Status      string          `json:"status"`
	Amount      decimal.Decimal `json:"transaction_amount"`
	Currency    string          `json:"currency_id"`
	ApprovedAt  *time.Time      `json:"date_approved,omitempty"`
}

// GatewayRefund is the result of a refund request.
type GatewayRefund struct {
	RefundRef   string          `json:"id"`
	ProviderRef string          `json:"payment_id"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
}

// PaymentGateway is the only network dependency the core calls directly.
// Calls happen at most once per settlement/refund decision; the decision
// logic itself is pure and local.
type PaymentGateway interface {
	GetPayment(ctx context.Context, providerRef string) (*GatewayPayment, error)
	CreateRefund(ctx context.Context, providerRef string, amount decimal.Decimal) (*GatewayRefund, error)
}

// ProviderError is a failure reported by a provider client. Retryable
// follows HTTP semantics: 429 and 5xx are retryable, other 4xx are not.
type ProviderError struct {
	StatusCode int
	Code       string
	Message    string
	Retryable  bool
}

func (e *ProviderError) Error() string {
	return "provider error " + e.Code + ": " + e.Message
}
