package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType is the closed set of audit event identifiers. The string values
// are a stable contract for audit/observability consumers; never reuse or
// rename a value.
type EventType string

const (
	EventTrialStarted      EventType = "trial_started"
	EventTrialEnded        EventType = "trial_ended"
	EventBlockApplied      EventType = "block_applied"
	EventBlockRemoved      EventType = "block_removed"
	EventPaymentSucceeded  EventType = "payment.succeeded"
	EventPaymentFailed     EventType = "payment.failed"
	EventPaymentRefunded   EventType = "payment.refunded"
	EventDocumentSubmitted EventType = "document.submitted"
	EventDocumentApproved  EventType = "document.approved"
	EventDocumentRejected  EventType = "document.rejected"
)

// Valid reports whether t belongs to the closed event taxonomy.
func (t EventType) Valid() bool {
	switch t {
	case EventTrialStarted, EventTrialEnded,
		EventBlockApplied, EventBlockRemoved,
		EventPaymentSucceeded, EventPaymentFailed, EventPaymentRefunded,
		EventDocumentSubmitted, EventDocumentApproved, EventDocumentRejected:
		return true
	}
	return false
}

// SubscriptionEvent is an append-only audit record. Rows are never updated
// or deleted; this table is the canonical answer to "why did this
// organization's state change".
type SubscriptionEvent struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	OrganizationID uuid.UUID  `gorm:"type:uuid;not null;index" json:"organization_id"`
	EventType      EventType  `gorm:"size:50;not null;index" json:"event_type"`
	EventData      JSONB      `gorm:"type:jsonb" json:"event_data,omitempty"`
	ActorID        *uuid.UUID `gorm:"type:uuid" json:"actor_id,omitempty"`
	CreatedAt      time.Time  `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for GORM
func (SubscriptionEvent) TableName() string {
	return "subscription_events"
}

// JSONB represents a JSONB database type
type JSONB map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONB) Scan(src interface{}) error {
	if src == nil {
		*j = nil
		return nil
	}

	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		*j = make(JSONB)
		return nil
	}
}
