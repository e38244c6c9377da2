package model

import (
	"time"

	"github.com/google/uuid"
)

// Requirement tiers. Tier 2 documents are mandatory identity/legal papers
// that gate job-receiving; tier 4 documents are optional professional
// credentials that earn badges and feed the compliance score.
const (
	RequirementTierMandatory  = 2
	RequirementTierCredential = 4
)

// RequirementScope says which entity a requirement applies to.
type RequirementScope string

const (
	RequirementScopeOrganization RequirementScope = "organization"
	RequirementScopeUser         RequirementScope = "user"
)

// VerificationRequirement is a catalog entry. The catalog is rarely
// mutated; rows are toggled via IsActive instead of being deleted.
type VerificationRequirement struct {
	ID          int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	Code        string           `gorm:"size:50;not null;uniqueIndex" json:"code"`
	Name        string           `gorm:"size:200;not null" json:"name"`
	Tier        int              `gorm:"not null" json:"tier"`
	IsRequired  bool             `gorm:"not null;default:false" json:"is_required"`
	AppliesTo   RequirementScope `gorm:"size:20;not null;default:'organization'" json:"applies_to"`
	IsActive    bool             `gorm:"not null;default:true" json:"is_active"`
	BadgeCode   *string          `gorm:"size:50" json:"badge_code,omitempty"`
	BadgeName   *string          `gorm:"size:100" json:"badge_name,omitempty"`
	Description *string          `json:"description,omitempty"`
	CreatedAt   time.Time        `gorm:"default:now()" json:"created_at"`
	UpdatedAt   time.Time        `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (VerificationRequirement) TableName() string {
	return "verification_requirements"
}

// SubmissionStatus is the state of a verification submission.
type SubmissionStatus string

const (
	SubmissionStatusNotStarted SubmissionStatus = "not_started"
	SubmissionStatusInReview   SubmissionStatus = "in_review"
	SubmissionStatusApproved   SubmissionStatus = "approved"
	SubmissionStatusRejected   SubmissionStatus = "rejected"
	SubmissionStatusExpired    SubmissionStatus = "expired"
	SubmissionStatusReplaced   SubmissionStatus = "replaced"
)

// VerificationSubmission is one uploaded document against a requirement.
// At most one non-replaced submission exists per (entity, requirement)
// pair; a resubmission marks the prior pending one replaced.
type VerificationSubmission struct {
	ID               int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	OrganizationID   uuid.UUID        `gorm:"type:uuid;not null;index" json:"organization_id"`
	UserID           *uuid.UUID       `gorm:"type:uuid;index" json:"user_id,omitempty"`
	RequirementID    int64            `gorm:"not null;index" json:"requirement_id"`
	Status           SubmissionStatus `gorm:"size:20;not null;default:'in_review'" json:"status"`
	DocumentURL      string           `gorm:"not null" json:"document_url"`
	DocumentType     *string          `gorm:"size:50" json:"document_type,omitempty"`
	ExpiresAt        *time.Time       `json:"expires_at,omitempty"`
	VerifiedAt       *time.Time       `json:"verified_at,omitempty"`
	VerifiedByUserID *uuid.UUID       `gorm:"type:uuid" json:"verified_by_user_id,omitempty"`
	RejectionReason  *string          `json:"rejection_reason,omitempty"`
	RejectionCode    *string          `gorm:"size:50" json:"rejection_code,omitempty"`
	CreatedAt        time.Time        `gorm:"default:now()" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"default:now()" json:"updated_at"`

	// Relations
	Requirement *VerificationRequirement `gorm:"foreignKey:RequirementID" json:"requirement,omitempty"`
}

// TableName specifies the table name for GORM
func (VerificationSubmission) TableName() string {
	return "verification_submissions"
}

// ApprovedAndCurrent reports whether the submission is approved and not
// past its expiry as of now.
func (s *VerificationSubmission) ApprovedAndCurrent(now time.Time) bool {
	if s.Status != SubmissionStatusApproved {
		return false
	}
	return s.ExpiresAt == nil || s.ExpiresAt.After(now)
}
