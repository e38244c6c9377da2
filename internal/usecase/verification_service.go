package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainErrors "github.com/oficiosya/subscription-engine/internal/domain/errors"
	"github.com/oficiosya/subscription-engine/internal/domain/model"
	"github.com/oficiosya/subscription-engine/internal/domain/provider"
	"github.com/oficiosya/subscription-engine/internal/domain/repository"
)

// ComplianceScore weighting: mandatory tier-2 documents dominate, optional
// tier-4 credentials top it up.
const (
	complianceTier2Weight = 70
	complianceTier4Weight = 30
)

// VerificationService manages the document verification workflow: intake,
// review decisions, the organization's cached verification status and the
// derived compliance artifacts (score, badges, job-intake gate).
type VerificationService struct {
	uow          repository.UnitOfWork
	verification repository.VerificationRepository
	orgs         repository.OrganizationRepository
	autoVerifier provider.AutoVerifier
	badges       provider.BadgeSyncer
	logger       *zap.Logger
	now          func() time.Time
}

// NewVerificationService creates a new verification service instance.
// autoVerifier and badges may be nil.
func NewVerificationService(
	uow repository.UnitOfWork,
	verification repository.VerificationRepository,
	orgs repository.OrganizationRepository,
	autoVerifier provider.AutoVerifier,
	badges provider.BadgeSyncer,
	logger *zap.Logger,
) *VerificationService {
	return &VerificationService{
		uow:          uow,
		verification: verification,
		orgs:         orgs,
		autoVerifier: autoVerifier,
		badges:       badges,
		logger:       logger,
		now:          time.Now,
	}
}

// SubmitVerificationInput is the intake payload for one document.
type SubmitVerificationInput struct {
	OrganizationID  uuid.UUID  `json:"organization_id" validate:"required"`
	UserID          *uuid.UUID `json:"user_id,omitempty"`
	RequirementCode string     `json:"requirement_code" validate:"required"`
	DocumentURL     string     `json:"document_url" validate:"required,url"`
	DocumentType    *string    `json:"document_type,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

// RequirementStatus pairs a catalog entry with the organization's current
// submission state for it.
type RequirementStatus struct {
	Requirement *model.VerificationRequirement `json:"requirement"`
	Status      model.SubmissionStatus         `json:"status"`
	Submission  *model.VerificationSubmission  `json:"submission,omitempty"`
}

// Badge is an earned credential surfaced on the public profile.
type Badge struct {
	Code     string    `json:"code"`
	Name     string    `json:"name"`
	EarnedAt time.Time `json:"earned_at"`
}

// SubmitVerification stores a document against a requirement. A still-pending
// prior submission for the same requirement is marked replaced; an optional
// auto-verifier may approve the new one immediately.
func (s *VerificationService) SubmitVerification(ctx context.Context, input SubmitVerificationInput) (*model.VerificationSubmission, error) {
	req, err := s.verification.GetRequirementByCode(ctx, input.RequirementCode)
	if err != nil {
		return nil, err
	}
	if req == nil || !req.IsActive {
		return nil, domainErrors.NewNotFoundError("verification requirement", input.RequirementCode)
	}
	if req.AppliesTo == model.RequirementScopeUser && input.UserID == nil {
		return nil, domainErrors.NewPolicyViolationError("requirement_scope",
			fmt.Sprintf("requirement %s applies to a user; user_id is required", req.Code))
	}

	org, err := s.orgs.GetByID(ctx, input.OrganizationID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, domainErrors.NewNotFoundError("organization", input.OrganizationID.String())
	}

	prior, err := s.activeSubmission(ctx, input.OrganizationID, input.UserID, req)
	if err != nil {
		return nil, err
	}

	submission := &model.VerificationSubmission{
		OrganizationID: input.OrganizationID,
		UserID:         input.UserID,
		RequirementID:  req.ID,
		Status:         model.SubmissionStatusInReview,
		DocumentURL:    input.DocumentURL,
		DocumentType:   input.DocumentType,
		ExpiresAt:      input.ExpiresAt,
	}

	err = s.uow.Do(ctx, func(r *repository.Set) error {
		if prior != nil && prior.Status == model.SubmissionStatusInReview {
			if err := r.Verifications.MarkReplaced(ctx, prior.ID); err != nil {
				return err
			}
		}
		if err := r.Verifications.CreateSubmission(ctx, submission); err != nil {
			return err
		}
		return r.Events.Append(ctx, &model.SubscriptionEvent{
			OrganizationID: input.OrganizationID,
			EventType:      model.EventDocumentSubmitted,
			EventData: model.JSONB{
				"requirement_code": req.Code,
				"submission_id":    submission.ID,
				"tier":             req.Tier,
			},
			ActorID: input.UserID,
		})
	})
	if err != nil {
		s.logger.Error("failed to store verification submission",
			zap.String("organization_id", input.OrganizationID.String()),
			zap.String("requirement_code", req.Code),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("verification submitted",
		zap.Int64("submission_id", submission.ID),
		zap.String("organization_id", input.OrganizationID.String()),
		zap.String("requirement_code", req.Code))

	if s.autoVerifier != nil {
		approved, err := s.autoVerifier.Verify(ctx, submission, req)
		if err != nil {
			// Auto-verification is best effort; the document stays in review.
			s.logger.Warn("auto-verification failed, leaving submission in review",
				zap.Int64("submission_id", submission.ID),
				zap.Error(err))
		} else if approved {
			if err := s.ApproveSubmission(ctx, submission.ID, nil); err != nil {
				s.logger.Error("auto-approval failed",
					zap.Int64("submission_id", submission.ID),
					zap.Error(err))
			} else {
				return s.verification.GetSubmissionByID(ctx, submission.ID)
			}
		}
	}

	if err := s.recomputeOrgStatus(ctx, input.OrganizationID); err != nil {
		s.logger.Error("failed to recompute verification status",
			zap.String("organization_id", input.OrganizationID.String()),
			zap.Error(err))
	}
	return submission, nil
}

// ApproveSubmission marks an in-review submission approved and refreshes the
// organization's verification status. adminID is nil for automated approval.
func (s *VerificationService) ApproveSubmission(ctx context.Context, submissionID int64, adminID *uuid.UUID) error {
	submission, req, err := s.submissionForReview(ctx, submissionID, "approve")
	if err != nil {
		return err
	}

	now := s.now()
	err = s.uow.Do(ctx, func(r *repository.Set) error {
		submission.Status = model.SubmissionStatusApproved
		submission.VerifiedAt = &now
		submission.VerifiedByUserID = adminID
		if err := r.Verifications.UpdateSubmission(ctx, submission); err != nil {
			return err
		}
		return r.Events.Append(ctx, &model.SubscriptionEvent{
			OrganizationID: submission.OrganizationID,
			EventType:      model.EventDocumentApproved,
			EventData: model.JSONB{
				"requirement_code": req.Code,
				"submission_id":    submission.ID,
				"tier":             req.Tier,
			},
			ActorID: adminID,
		})
	})
	if err != nil {
		s.logger.Error("failed to approve submission",
			zap.Int64("submission_id", submissionID),
			zap.Error(err))
		return err
	}

	if err := s.recomputeOrgStatus(ctx, submission.OrganizationID); err != nil {
		s.logger.Error("failed to recompute verification status",
			zap.String("organization_id", submission.OrganizationID.String()),
			zap.Error(err))
	}
	s.syncBadge(ctx, submission, req)

	s.logger.Info("submission approved",
		zap.Int64("submission_id", submissionID),
		zap.String("requirement_code", req.Code))
	return nil
}

// RejectSubmission marks an in-review submission rejected with a reason the
// submitter can act on.
func (s *VerificationService) RejectSubmission(ctx context.Context, submissionID int64, adminID *uuid.UUID, reason string, code *string) error {
	submission, req, err := s.submissionForReview(ctx, submissionID, "reject")
	if err != nil {
		return err
	}

	err = s.uow.Do(ctx, func(r *repository.Set) error {
		submission.Status = model.SubmissionStatusRejected
		submission.RejectionReason = &reason
		submission.RejectionCode = code
		submission.VerifiedByUserID = adminID
		if err := r.Verifications.UpdateSubmission(ctx, submission); err != nil {
			return err
		}
		return r.Events.Append(ctx, &model.SubscriptionEvent{
			OrganizationID: submission.OrganizationID,
			EventType:      model.EventDocumentRejected,
			EventData: model.JSONB{
				"requirement_code": req.Code,
				"submission_id":    submission.ID,
				"reason":           reason,
			},
			ActorID: adminID,
		})
	})
	if err != nil {
		s.logger.Error("failed to reject submission",
			zap.Int64("submission_id", submissionID),
			zap.Error(err))
		return err
	}

	if err := s.recomputeOrgStatus(ctx, submission.OrganizationID); err != nil {
		s.logger.Error("failed to recompute verification status",
			zap.String("organization_id", submission.OrganizationID.String()),
			zap.Error(err))
	}
	s.syncBadge(ctx, submission, req)

	s.logger.Info("submission rejected",
		zap.Int64("submission_id", submissionID),
		zap.String("requirement_code", req.Code),
		zap.String("reason", reason))
	return nil
}

// CheckTier2Complete reports whether every required, active tier-2
// organization requirement has a current approved submission. No tier-2
// requirements means trivially complete.
func (s *VerificationService) CheckTier2Complete(ctx context.Context, orgID uuid.UUID) (bool, error) {
	reqs, err := s.verification.ListActiveRequirements(ctx, model.RequirementScopeOrganization, model.RequirementTierMandatory)
	if err != nil {
		return false, err
	}

	now := s.now()
	for _, req := range reqs {
		if !req.IsRequired {
			continue
		}
		submission, err := s.verification.GetActiveSubmission(ctx, orgID, req.ID)
		if err != nil {
			return false, err
		}
		if submission == nil || !submission.ApprovedAndCurrent(now) {
			return false, nil
		}
	}
	return true, nil
}

// CheckEmployeeVerified reports whether a user's required tier-2 documents
// are all approved and current.
func (s *VerificationService) CheckEmployeeVerified(ctx context.Context, userID uuid.UUID) (bool, error) {
	reqs, err := s.verification.ListActiveRequirements(ctx, model.RequirementScopeUser, model.RequirementTierMandatory)
	if err != nil {
		return false, err
	}

	now := s.now()
	for _, req := range reqs {
		if !req.IsRequired {
			continue
		}
		submission, err := s.verification.GetActiveUserSubmission(ctx, userID, req.ID)
		if err != nil {
			return false, err
		}
		if submission == nil || !submission.ApprovedAndCurrent(now) {
			return false, nil
		}
	}
	return true, nil
}

// GetRequirementsForOrg returns the full active organization-scope catalog
// annotated with the organization's submission state. Requirements without a
// submission report not_started.
func (s *VerificationService) GetRequirementsForOrg(ctx context.Context, orgID uuid.UUID) ([]*RequirementStatus, error) {
	reqs, err := s.verification.ListActiveRequirements(ctx, model.RequirementScopeOrganization, 0)
	if err != nil {
		return nil, err
	}

	out := make([]*RequirementStatus, 0, len(reqs))
	for _, req := range reqs {
		submission, err := s.verification.GetActiveSubmission(ctx, orgID, req.ID)
		if err != nil {
			return nil, err
		}
		status := model.SubmissionStatusNotStarted
		if submission != nil {
			status = submission.Status
		}
		out = append(out, &RequirementStatus{Requirement: req, Status: status, Submission: submission})
	}
	return out, nil
}

// CalculateComplianceScore returns 0..100: tier-2 completion weighs 70,
// tier-4 completion weighs 30. A tier with no active requirements counts as
// fully complete for tier 2 and as zero for tier 4 (nothing to earn).
func (s *VerificationService) CalculateComplianceScore(ctx context.Context, orgID uuid.UUID) (int, error) {
	tier2Ratio, err := s.approvalRatio(ctx, orgID, model.RequirementTierMandatory)
	if err != nil {
		return 0, err
	}
	if tier2Ratio < 0 {
		tier2Ratio = 1
	}

	tier4Ratio, err := s.approvalRatio(ctx, orgID, model.RequirementTierCredential)
	if err != nil {
		return 0, err
	}
	if tier4Ratio < 0 {
		tier4Ratio = 0
	}

	return int(math.Round(complianceTier2Weight*tier2Ratio + complianceTier4Weight*tier4Ratio)), nil
}

// GetEarnedBadges returns the badges of every approved, current, badge-backed
// submission for the organization.
func (s *VerificationService) GetEarnedBadges(ctx context.Context, orgID uuid.UUID) ([]*Badge, error) {
	submissions, err := s.verification.ListSubmissionsForOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	badges := make([]*Badge, 0)
	for _, sub := range submissions {
		if !sub.ApprovedAndCurrent(now) || sub.Requirement == nil || sub.Requirement.BadgeCode == nil {
			continue
		}
		earnedAt := sub.CreatedAt
		if sub.VerifiedAt != nil {
			earnedAt = *sub.VerifiedAt
		}
		name := ""
		if sub.Requirement.BadgeName != nil {
			name = *sub.Requirement.BadgeName
		}
		badges = append(badges, &Badge{
			Code:     *sub.Requirement.BadgeCode,
			Name:     name,
			EarnedAt: earnedAt,
		})
	}
	return badges, nil
}

// CheckExpiringDocuments returns approved submissions expiring within
// daysAhead days, for renewal reminders.
func (s *VerificationService) CheckExpiringDocuments(ctx context.Context, daysAhead int) ([]*model.VerificationSubmission, error) {
	now := s.now()
	return s.verification.ListExpiringBetween(ctx, now, now.Add(time.Duration(daysAhead)*24*time.Hour))
}

// CanReceiveJobs is the composite job-intake gate: tier-2 verification
// complete, no block, and a live (trialing or active) subscription.
func (s *VerificationService) CanReceiveJobs(ctx context.Context, orgID uuid.UUID) (bool, error) {
	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return false, err
	}
	if org == nil {
		return false, domainErrors.NewNotFoundError("organization", orgID.String())
	}

	if org.IsBlocked() {
		return false, nil
	}
	if org.SubscriptionStatus != model.SubscriptionStatusTrialing && org.SubscriptionStatus != model.SubscriptionStatusActive {
		return false, nil
	}
	return s.CheckTier2Complete(ctx, orgID)
}

// recomputeOrgStatus refreshes the organization's cached verification
// status: verified when tier 2 is complete, otherwise rejected if any
// required document is rejected, in_review if anything is pending review,
// pending when nothing was submitted yet.
func (s *VerificationService) recomputeOrgStatus(ctx context.Context, orgID uuid.UUID) error {
	complete, err := s.CheckTier2Complete(ctx, orgID)
	if err != nil {
		return err
	}
	if complete {
		return s.orgs.UpdateVerificationStatus(ctx, orgID, model.VerificationStatusVerified)
	}

	reqs, err := s.verification.ListActiveRequirements(ctx, model.RequirementScopeOrganization, model.RequirementTierMandatory)
	if err != nil {
		return err
	}

	anyRejected := false
	anyInReview := false
	for _, req := range reqs {
		if !req.IsRequired {
			continue
		}
		submission, err := s.verification.GetActiveSubmission(ctx, orgID, req.ID)
		if err != nil {
			return err
		}
		if submission == nil {
			continue
		}
		switch submission.Status {
		case model.SubmissionStatusRejected:
			anyRejected = true
		case model.SubmissionStatusInReview:
			anyInReview = true
		}
	}

	status := model.VerificationStatusPending
	switch {
	case anyRejected:
		status = model.VerificationStatusRejected
	case anyInReview:
		status = model.VerificationStatusInReview
	}
	return s.orgs.UpdateVerificationStatus(ctx, orgID, status)
}

// approvalRatio returns the approved/current fraction of required active
// requirements at a tier, or -1 when the tier has no required requirements.
func (s *VerificationService) approvalRatio(ctx context.Context, orgID uuid.UUID, tier int) (float64, error) {
	reqs, err := s.verification.ListActiveRequirements(ctx, model.RequirementScopeOrganization, tier)
	if err != nil {
		return 0, err
	}

	now := s.now()
	total := 0
	approved := 0
	for _, req := range reqs {
		if tier == model.RequirementTierMandatory && !req.IsRequired {
			continue
		}
		total++
		submission, err := s.verification.GetActiveSubmission(ctx, orgID, req.ID)
		if err != nil {
			return 0, err
		}
		if submission != nil && submission.ApprovedAndCurrent(now) {
			approved++
		}
	}
	if total == 0 {
		return -1, nil
	}
	return float64(approved) / float64(total), nil
}

func (s *VerificationService) activeSubmission(ctx context.Context, orgID uuid.UUID, userID *uuid.UUID, req *model.VerificationRequirement) (*model.VerificationSubmission, error) {
	if req.AppliesTo == model.RequirementScopeUser {
		return s.verification.GetActiveUserSubmission(ctx, *userID, req.ID)
	}
	return s.verification.GetActiveSubmission(ctx, orgID, req.ID)
}

func (s *VerificationService) submissionForReview(ctx context.Context, submissionID int64, attempt string) (*model.VerificationSubmission, *model.VerificationRequirement, error) {
	submission, err := s.verification.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, nil, err
	}
	if submission == nil {
		return nil, nil, domainErrors.NewNotFoundError("submission", fmt.Sprintf("%d", submissionID))
	}
	if submission.Status != model.SubmissionStatusInReview {
		return nil, nil, domainErrors.NewInvalidTransitionError("submission",
			string(submission.Status), attempt, "only in_review submissions can be decided")
	}

	req := submission.Requirement
	if req == nil {
		req, err = s.requirementByID(ctx, submission.RequirementID)
		if err != nil {
			return nil, nil, err
		}
	}
	return submission, req, nil
}

func (s *VerificationService) requirementByID(ctx context.Context, requirementID int64) (*model.VerificationRequirement, error) {
	// The catalog is small; scan both scopes rather than grow the interface.
	for _, scope := range []model.RequirementScope{model.RequirementScopeOrganization, model.RequirementScopeUser} {
		reqs, err := s.verification.ListActiveRequirements(ctx, scope, 0)
		if err != nil {
			return nil, err
		}
		for _, req := range reqs {
			if req.ID == requirementID {
				return req, nil
			}
		}
	}
	return nil, domainErrors.NewNotFoundError("verification requirement", fmt.Sprintf("%d", requirementID))
}

func (s *VerificationService) syncBadge(ctx context.Context, submission *model.VerificationSubmission, req *model.VerificationRequirement) {
	if s.badges == nil || req.BadgeCode == nil {
		return
	}
	if err := s.badges.SyncVerificationResult(ctx, submission, req); err != nil {
		// Badge sync is fire and forget; the decision already committed.
		s.logger.Warn("badge sync failed",
			zap.Int64("submission_id", submission.ID),
			zap.String("badge_code", *req.BadgeCode),
			zap.Error(err))
	}
}
