package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus is the state of a subscription payment. The only legal
// transitions are pending -> completed, pending -> failed and
// completed -> refunded; everything else is an invalid transition.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// SubscriptionPayment is a single settlement attempt against an
// organization's subscription. A retry after failure creates a new record,
// it never resurrects a failed one.
type SubscriptionPayment struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrganizationID uuid.UUID       `gorm:"type:uuid;not null;index" json:"organization_id"`
	SubscriptionID *int64          `gorm:"index" json:"subscription_id,omitempty"`
	Amount         decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Currency       string          `gorm:"size:3;default:'ARS'" json:"currency"`
	Status         PaymentStatus   `gorm:"size:20;not null;default:'pending'" json:"status"`
	ProviderRef    *string         `gorm:"column:provider_ref;unique;size:100" json:"provider_ref,omitempty"`
	FailureReason  *string         `json:"failure_reason,omitempty"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	RefundedAt     *time.Time      `json:"refunded_at,omitempty"`
	ProviderData   JSONB           `gorm:"type:jsonb" json:"provider_data,omitempty"`
	CreatedAt      time.Time       `gorm:"default:now()" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"default:now()" json:"updated_at"`

	// Relations
	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	Subscription *Subscription `gorm:"foreignKey:SubscriptionID" json:"subscription,omitempty"`
}

// TableName specifies the table name for GORM
func (SubscriptionPayment) TableName() string {
	return "subscription_payments"
}
