package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus represents the lifecycle status of an organization's subscription
type SubscriptionStatus string

const (
	SubscriptionStatusTrialing  SubscriptionStatus = "trialing"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// Scan implements sql.Scanner interface
func (s *SubscriptionStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = SubscriptionStatus(v)
	case []byte:
		*s = SubscriptionStatus(v)
	default:
		*s = SubscriptionStatusExpired
	}
	return nil
}

// Value implements driver.Valuer interface
func (s SubscriptionStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// SubscriptionTier is the ordered plan tier of an organization.
// Ordering matters: feature grants are cumulative from FREE upward.
type SubscriptionTier string

const (
	TierFree        SubscriptionTier = "FREE"
	TierInicial     SubscriptionTier = "INICIAL"
	TierProfesional SubscriptionTier = "PROFESIONAL"
	TierEmpresa     SubscriptionTier = "EMPRESA"
)

// TrialTier is the tier a new trial runs at.
const TrialTier = TierProfesional

// BlockType represents the severity of an access block.
// Escalation is monotonic: none -> soft_block -> hard_block.
type BlockType string

const (
	BlockTypeSoft BlockType = "soft_block"
	BlockTypeHard BlockType = "hard_block"
)

// Scan implements sql.Scanner interface
func (b *BlockType) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*b = BlockType(v)
	case []byte:
		*b = BlockType(v)
	default:
		*b = ""
	}
	return nil
}

// Value implements driver.Valuer interface
func (b BlockType) Value() (driver.Value, error) {
	return string(b), nil
}

// VerificationStatus is the cached document-compliance state of an organization.
type VerificationStatus string

const (
	VerificationStatusPending  VerificationStatus = "pending"
	VerificationStatusInReview VerificationStatus = "in_review"
	VerificationStatusVerified VerificationStatus = "verified"
	VerificationStatusRejected VerificationStatus = "rejected"
)

// Organization is the aggregate root of the engine. It is mutated only by
// the trial, block, payment and verification managers, never by request
// handlers directly.
type Organization struct {
	ID                 uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	Name               string             `gorm:"size:200;not null" json:"name"`
	SubscriptionStatus SubscriptionStatus `gorm:"type:subscription_status;not null;default:'trialing'" json:"subscription_status"`
	SubscriptionTier   SubscriptionTier   `gorm:"size:20;not null;default:'FREE'" json:"subscription_tier"`
	TrialEndsAt        *time.Time         `json:"trial_ends_at,omitempty"`
	BlockType          *BlockType         `gorm:"type:block_type" json:"block_type,omitempty"`
	BlockReason        *string            `json:"block_reason,omitempty"`
	BlockedAt          *time.Time         `json:"blocked_at,omitempty"`
	VerificationStatus VerificationStatus `gorm:"size:20;not null;default:'pending'" json:"verification_status"`
	CreatedAt          time.Time          `gorm:"default:now()" json:"created_at"`
	UpdatedAt          time.Time          `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Organization) TableName() string {
	return "organizations"
}

// IsBlocked reports whether any block is currently applied.
func (o *Organization) IsBlocked() bool {
	return o.BlockType != nil
}
