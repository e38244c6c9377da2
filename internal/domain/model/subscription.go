package model

import (
	"time"

	"github.com/google/uuid"
)

// BillingCycle is the renewal cadence of a paid subscription.
type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleYearly  BillingCycle = "yearly"
)

// Subscription is the per-organization subscription row. An organization has
// at most one open subscription (trialing or active); expiry and
// cancellation close the row instead of deleting it.
type Subscription struct {
	ID             int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	OrganizationID uuid.UUID          `gorm:"type:uuid;not null;index" json:"organization_id"`
	Status         SubscriptionStatus `gorm:"type:subscription_status;not null;default:'trialing'" json:"status"`
	Tier           SubscriptionTier   `gorm:"size:20;not null" json:"tier"`
	BillingCycle   *BillingCycle      `gorm:"size:20" json:"billing_cycle,omitempty"`
	TrialEndsAt    *time.Time         `json:"trial_ends_at,omitempty"`
	StartedAt      time.Time          `gorm:"not null" json:"started_at"`
	EndedAt        *time.Time         `json:"ended_at,omitempty"`
	CreatedAt      time.Time          `gorm:"default:now()" json:"created_at"`
	UpdatedAt      time.Time          `gorm:"default:now()" json:"updated_at"`

	// Relations
	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
}

// TableName specifies the table name for GORM
func (Subscription) TableName() string {
	return "subscriptions"
}

// IsOpen reports whether the subscription row is still current.
func (s *Subscription) IsOpen() bool {
	return s.Status == SubscriptionStatusTrialing || s.Status == SubscriptionStatusActive
}
