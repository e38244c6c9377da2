package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	domainErrors "github.com/oficiosya/subscription-engine/internal/domain/errors"
	"github.com/oficiosya/subscription-engine/internal/domain/model"
)

func newVerificationService(f *testFixture, auto *mockAutoVerifier, badges *mockBadgeSyncer) *VerificationService {
	svc := NewVerificationService(f.uow, f.verifications, f.orgs, nil, nil, zap.NewNop())
	if auto != nil {
		svc.autoVerifier = auto
	}
	if badges != nil {
		svc.badges = badges
	}
	svc.now = func() time.Time { return testNow }
	return svc
}

func tier2Requirement(id int64, code string) *model.VerificationRequirement {
	return &model.VerificationRequirement{
		ID:         id,
		Code:       code,
		Name:       code,
		Tier:       model.RequirementTierMandatory,
		IsRequired: true,
		AppliesTo:  model.RequirementScopeOrganization,
		IsActive:   true,
	}
}

func tier4Requirement(id int64, code, badge string) *model.VerificationRequirement {
	return &model.VerificationRequirement{
		ID:        id,
		Code:      code,
		Name:      code,
		Tier:      model.RequirementTierCredential,
		AppliesTo: model.RequirementScopeOrganization,
		IsActive:  true,
		BadgeCode: &badge,
		BadgeName: &badge,
	}
}

func approvedSubmission(orgID uuid.UUID, reqID int64) *model.VerificationSubmission {
	verifiedAt := testNow.Add(-24 * time.Hour)
	return &model.VerificationSubmission{
		ID:             reqID * 100,
		OrganizationID: orgID,
		RequirementID:  reqID,
		Status:         model.SubmissionStatusApproved,
		DocumentURL:    "https://docs.example.com/dni.pdf",
		VerifiedAt:     &verifiedAt,
	}
}

func TestSubmitVerification(t *testing.T) {
	orgID := uuid.New()
	req := tier2Requirement(1, "dni_titular")

	t.Run("stores a new in_review submission and logs the event", func(t *testing.T) {
		f := newTestFixture()
		svc := newVerificationService(f, nil, nil)

		f.verifications.On("GetRequirementByCode", mock.Anything, "dni_titular").Return(req, nil)
		f.orgs.On("GetByID", mock.Anything, orgID).Return(&model.Organization{ID: orgID}, nil)
		f.verifications.On("GetActiveSubmission", mock.Anything, orgID, int64(1)).Return(nil, nil)
		f.verifications.On("CreateSubmission", mock.Anything, mock.MatchedBy(func(s *model.VerificationSubmission) bool {
			return s.Status == model.SubmissionStatusInReview && s.RequirementID == 1
		})).Return(nil)
		f.events.On("Append", mock.Anything, mock.MatchedBy(func(e *model.SubscriptionEvent) bool {
			return e.EventType == model.EventDocumentSubmitted && e.EventData["requirement_code"] == "dni_titular"
		})).Return(nil)
		// recompute: tier 2 incomplete, one doc in review
		f.verifications.On("ListActiveRequirements", mock.Anything, model.RequirementScopeOrganization, model.RequirementTierMandatory).
			Return([]*model.VerificationRequirement{req}, nil)
		f.orgs.On("UpdateVerificationStatus", mock.Anything, orgID, model.VerificationStatusPending).Return(nil)

		submission, err := svc.SubmitVerification(context.Background(), SubmitVerificationInput{
			OrganizationID:  orgID,
			RequirementCode: "dni_titular",
			DocumentURL:     "https://docs.example.com/dni.pdf",
		})

		assert.NoError(t, err)
		assert.Equal(t, model.SubmissionStatusInReview, submission.Status)
		f.verifications.AssertExpectations(t)
	})

	t.Run("resubmission replaces the prior pending document", func(t *testing.T) {
		f := newTestFixture()
		svc := newVerificationService(f, nil, nil)

		prior := &model.VerificationSubmission{ID: 40, OrganizationID: orgID, RequirementID: 1, Status: model.SubmissionStatusInReview}

		f.verifications.On("GetRequirementByCode", mock.Anything, "dni_titular").Return(req, nil)
		f.orgs.On("GetByID", mock.Anything, orgID).Return(&model.Organization{ID: orgID}, nil)
		f.verifications.On("GetActiveSubmission", mock.Anything, orgID, int64(1)).Return(prior, nil)
		f.verifications.On("MarkReplaced", mock.Anything, int64(40)).Return(nil)
		f.verifications.On("CreateSubmission", mock.Anything, mock.Anything).Return(nil)
		f.events.On("Append", mock.Anything, mock.Anything).Return(nil)
		f.verifications.On("ListActiveRequirements", mock.Anything, model.RequirementScopeOrganization, model.RequirementTierMandatory).
			Return([]*model.VerificationRequirement{req}, nil)
		f.orgs.On("UpdateVerificationStatus", mock.Anything, orgID, mock.Anything).Return(nil)

		_, err := svc.SubmitVerification(context.Background(), SubmitVerificationInput{
			OrganizationID:  orgID,
			RequirementCode: "dni_titular",
			DocumentURL:     "https://docs.example.com/dni-v2.pdf",
		})

		assert.NoError(t, err)
		f.verifications.AssertCalled(t, "MarkReplaced", mock.Anything, int64(40))
	})

	t.Run("unknown requirement code", func(t *testing.T) {
		f := newTestFixture()
		svc := newVerificationService(f, nil, nil)

		f.verifications.On("GetRequirementByCode", mock.Anything, "bogus").Return(nil, nil)

		_, err := svc.SubmitVerification(context.Background(), SubmitVerificationInput{
			OrganizationID:  orgID,
			RequirementCode: "bogus",
			DocumentURL:     "https://docs.example.com/x.pdf",
		})

		assert.True(t, domainErrors.IsNotFound(err))
	})

	t.Run("auto verifier failure leaves the submission in review", func(t *testing.T) {
		f := newTestFixture()
		auto := new(mockAutoVerifier)
		svc := newVerificationService(f, auto, nil)

		f.verifications.On("GetRequirementByCode", mock.Anything, "dni_titular").Return(req, nil)
		f.orgs.On("GetByID", mock.Anything, orgID).Return(&model.Organization{ID: orgID}, nil)
		f.verifications.On("GetActiveSubmission", mock.Anything, orgID, int64(1)).Return(nil, nil)
		f.verifications.On("CreateSubmission", mock.Anything, mock.Anything).Return(nil)
		f.events.On("Append", mock.Anything, mock.Anything).Return(nil)
		auto.On("Verify", mock.Anything, mock.Anything, req).Return(false, assert.AnError)
		f.verifications.On("ListActiveRequirements", mock.Anything, model.RequirementScopeOrganization, model.RequirementTierMandatory).
			Return([]*model.VerificationRequirement{req}, nil)
		f.orgs.On("UpdateVerificationStatus", mock.Anything, orgID, mock.Anything).Return(nil)

		submission, err := svc.SubmitVerification(context.Background(), SubmitVerificationInput{
			OrganizationID:  orgID,
			RequirementCode: "dni_titular",
			DocumentURL:     "https://docs.example.com/dni.pdf",
		})

		assert.NoError(t, err)
		assert.Equal(t, model.SubmissionStatusInReview, submission.Status)
	})
}

func TestApproveSubmission(t *testing.T) {
	orgID := uuid.New()
	adminID := uuid.New()
	req := tier2Requirement(1, "dni_titular")

	t.Run("approves an in_review submission and refreshes the org status", func(t *testing.T) {
		f := newTestFixture()
		svc := newVerificationService(f, nil, nil)

		submission := &model.VerificationSubmission{
			ID:             50,
			OrganizationID: orgID,
			RequirementID:  1,
			Status:         model.SubmissionStatusInReview,
			Requirement:    req,
		}

		f.verifications.On("GetSubmissionByID", mock.Anything, int64(50)).Return(submission, nil)
		f.verifications.On("UpdateSubmission", mock.Anything, mock.MatchedBy(func(s *model.VerificationSubmission) bool {
			return s.Status == model.SubmissionStatusApproved &&
				s.VerifiedAt.Equal(testNow) &&
				s.VerifiedByUserID != nil && *s.VerifiedByUserID == adminID
		})).Return(nil)
		f.events.On("Append", mock.Anything, mock.MatchedBy(func(e *model.SubscriptionEvent) bool {
			return e.EventType == model.EventDocumentApproved && e.ActorID != nil && *e.ActorID == adminID
		})).Return(nil)
		// recompute: the only tier-2 requirement is now approved -> verified
		f.verifications.On("ListActiveRequirements", mock.Anything, model.RequirementScopeOrganization, model.RequirementTierMandatory).
			Return([]*model.VerificationRequirement{req}, nil)
		f.verifications.On("GetActiveSubmission", mock.Anything, orgID, int64(1)).Return(approvedSubmission(orgID, 1), nil)
		f.orgs.On("UpdateVerificationStatus", mock.Anything, orgID, model.VerificationStatusVerified).Return(nil)

		err := svc.ApproveSubmission(context.Background(), 50, &adminID)

		assert.NoError(t, err)
		f.orgs.AssertCalled(t, "UpdateVerificationStatus", mock.Anything, orgID, model.VerificationStatusVerified)
	})

	t.Run("only in_review submissions can be decided", func(t *testing.T) {
		f := newTestFixture()
		svc := newVerificationService(f, nil, nil)

		f.verifications.On("GetSubmissionByID", mock.Anything, int64(50)).
			Return(approvedSubmission(orgID, 1), nil)

		err := svc.ApproveSubmission(context.Background(), 50, &adminID)

		assert.True(t, domainErrors.IsInvalidTransition(err))
	})
}

func TestRejectSubmission(t *testing.T) {
	orgID := uuid.New()
	adminID := uuid.New()
	req := tier2Requirement(1, "dni_titular")

	f := newTestFixture()
	svc := newVerificationService(f, nil, nil)

	submission := &model.VerificationSubmission{
		ID:             60,
		OrganizationID: orgID,
		RequirementID:  1,
		Status:         model.SubmissionStatusInReview,
		Requirement:    req,
	}
	code := "ILLEGIBLE"

	f.verifications.On("GetSubmissionByID", mock.Anything, int64(60)).Return(submission, nil)
	f.verifications.On("UpdateSubmission", mock.Anything, mock.MatchedBy(func(s *model.VerificationSubmission) bool {
		return s.Status == model.SubmissionStatusRejected &&
			*s.RejectionReason == "document is illegible" &&
			*s.RejectionCode == code
	})).Return(nil)
	f.events.On("Append", mock.Anything, mock.MatchedBy(func(e *model.SubscriptionEvent) bool {
		return e.EventType == model.EventDocumentRejected
	})).Return(nil)
	f.verifications.On("ListActiveRequirements", mock.Anything, model.RequirementScopeOrganization, model.RequirementTierMandatory).
		Return([]*model.VerificationRequirement{req}, nil)
	f.verifications.On("GetActiveSubmission", mock.Anything, orgID, int64(1)).Return(submission, nil)
	f.orgs.On("UpdateVerificationStatus", mock.Anything, orgID, model.VerificationStatusRejected).Return(nil)

	err := svc.RejectSubmission(context.Background(), 60, &adminID, "document is illegible", &code)

	assert.NoError(t, err)
	f.orgs.AssertCalled(t, "UpdateVerificationStatus", mock.Anything, orgID, model.VerificationStatusRejected)
}

func TestCheckTier2Complete(t *testing.T) {
	orgID := uuid.New()
	reqA := tier2Requirement(1, "dni_titular")
	reqB := tier2Requirement(2, "constancia_cuit")

	t.Run("no tier-2 requirements is trivially complete", func(t *testing.T) {
		f := newTestFixture()
		svc := newVerificationService(f, nil, nil)

		f.verifications.On("ListActiveRequirements", mock.Anything, model.RequirementScopeOrganization, model.RequirementTierMandatory).
			Return([]*model.VerificationRequirement{}, nil)

		complete, err := svc.CheckTier2Complete(context.Background(), orgID)

		assert.NoError(t, err)
		assert.True(t, complete)
	})

	t.Run("every required document approved", func(t *testing.T) {
		f := newTestFixture()
		svc := newVerificationService(f, nil, nil)

		f.verifications.On("ListActiveRequirements", mock.Anything, model.RequirementScopeOrganization, model.RequirementTierMandatory).
			Return([]*model.VerificationRequirement{reqA, reqB}, nil)
		f.verifications.On("GetActiveSubmission", mock.Anything, orgID, int64(1)).Return(approvedSubmission(orgID, 1), nil)
		f.verifications.On("GetActiveSubmission", mock.Anything, orgID, int64(2)).Return(approvedSubmission(orgID, 2), nil)

		complete, err := svc.CheckTier2Complete(context.Background(), orgID)

		assert.NoError(t, err)
		assert.True(t, complete)
	})

	t.Run("a missing document fails the gate", func(t *testing.T) {
		f := newTestFixture()
		svc := newVerificationService(f, nil, nil)

		f.verifications.On("ListActiveRequirements", mock.Anything, model.RequirementScopeOrganization, model.RequirementTierMandatory).
			Return([]*model.VerificationRequirement{reqA, reqB}, nil)
		f.verifications.On("GetActiveSubmission", mock.Anything, orgID, int64(1)).Return(approvedSubmission(orgID, 1), nil)
		f.verifications.On("GetActiveSubmission", mock.Anything, orgID, int64(2)).Return(nil, nil)

		complete, err := svc.CheckTier2Complete(context.Background(), orgID)

		assert.NoError(t, err)
		assert.False(t, complete)
	})

	t.Run("an expired approval fails the gate", func(t *testing.T) {
		f := newTestFixture()
		svc := newVerificationService(f, nil, nil)

		expired := approvedSubmission(orgID, 1)
		past := testNow.Add(-time.Hour)
		expired.ExpiresAt = &past

		f.verifications.On("ListActiveRequirements", mock.Anything, model.RequirementScopeOrganization, model.RequirementTierMandatory).
			Return([]*model.VerificationRequirement{reqA}, nil)
		f.verifications.On("GetActiveSubmission", mock.Anything, orgID, int64(1)).Return(expired, nil)

		complete, err := svc.CheckTier2Complete(context.Background(), orgID)

		assert.NoError(t, err)
		assert.False(t, complete)
	})
}

func TestCalculateComplianceScore(t *testing.T) {
	orgID := uuid.New()
	reqT2 := tier2Requirement(1, "dni_titular")
	reqT4 := tier4Requirement(2, "matricula_gas", "gasista_matriculado")

	setup := func(f *testFixture, t2Approved, t4Approved bool) {
		f.verifications.On("ListActiveRequirements", mock.Anything, model.RequirementScopeOrganization, model.RequirementTierMandatory).
			Return([]*model.VerificationRequirement{reqT2}, nil)
		f.verifications.On("ListActiveRequirements", mock.Anything, model.RequirementScopeOrganization, model.RequirementTierCredential).
			Return([]*model.VerificationRequirement{reqT4}, nil)
		if t2Approved {
			f.verifications.On("GetActiveSubmission", mock.Anything, orgID, int64(1)).Return(approvedSubmission(orgID, 1), nil)
		} else {
			f.verifications.On("GetActiveSubmission", mock.Anything, orgID, int64(1)).Return(nil, nil)
		}
		if t4Approved {
			f.verifications.On("GetActiveSubmission", mock.Anything, orgID, int64(2)).Return(approvedSubmission(orgID, 2), nil)
		} else {
			f.verifications.On("GetActiveSubmission", mock.Anything, orgID, int64(2)).Return(nil, nil)
		}
	}

	tests := []struct {
		name       string
		t2Approved bool
		t4Approved bool
		want       int
	}{
		{"everything approved", true, true, 100},
		{"mandatory only", true, false, 70},
		{"credentials only", false, true, 30},
		{"nothing approved", false, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFixture()
			svc := newVerificationService(f, nil, nil)
			setup(f, tt.t2Approved, tt.t4Approved)

			score, err := svc.CalculateComplianceScore(context.Background(), orgID)

			assert.NoError(t, err)
			assert.Equal(t, tt.want, score)
		})
	}

	t.Run("no tier-2 catalog means the mandatory share is granted", func(t *testing.T) {
		f := newTestFixture()
		svc := newVerificationService(f, nil, nil)

		f.verifications.On("ListActiveRequirements", mock.Anything, model.RequirementScopeOrganization, model.RequirementTierMandatory).
			Return([]*model.VerificationRequirement{}, nil)
		f.verifications.On("ListActiveRequirements", mock.Anything, model.RequirementScopeOrganization, model.RequirementTierCredential).
			Return([]*model.VerificationRequirement{}, nil)

		score, err := svc.CalculateComplianceScore(context.Background(), orgID)

		assert.NoError(t, err)
		assert.Equal(t, 70, score)
	})
}

func TestCanReceiveJobs(t *testing.T) {
	orgID := uuid.New()

	t.Run("blocked organizations never receive jobs", func(t *testing.T) {
		f := newTestFixture()
		svc := newVerificationService(f, nil, nil)

		blockType := model.BlockTypeSoft
		f.orgs.On("GetByID", mock.Anything, orgID).Return(&model.Organization{
			ID:                 orgID,
			SubscriptionStatus: model.SubscriptionStatusActive,
			BlockType:          &blockType,
		}, nil)

		ok, err := svc.CanReceiveJobs(context.Background(), orgID)

		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("cancelled subscriptions never receive jobs", func(t *testing.T) {
		f := newTestFixture()
		svc := newVerificationService(f, nil, nil)

		f.orgs.On("GetByID", mock.Anything, orgID).Return(&model.Organization{
			ID:                 orgID,
			SubscriptionStatus: model.SubscriptionStatusCancelled,
		}, nil)

		ok, err := svc.CanReceiveJobs(context.Background(), orgID)

		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("verified, unblocked, live subscription receives jobs", func(t *testing.T) {
		f := newTestFixture()
		svc := newVerificationService(f, nil, nil)

		f.orgs.On("GetByID", mock.Anything, orgID).Return(&model.Organization{
			ID:                 orgID,
			SubscriptionStatus: model.SubscriptionStatusTrialing,
		}, nil)
		f.verifications.On("ListActiveRequirements", mock.Anything, model.RequirementScopeOrganization, model.RequirementTierMandatory).
			Return([]*model.VerificationRequirement{}, nil)

		ok, err := svc.CanReceiveJobs(context.Background(), orgID)

		assert.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestGetEarnedBadges(t *testing.T) {
	orgID := uuid.New()
	reqT4 := tier4Requirement(2, "matricula_gas", "gasista_matriculado")

	f := newTestFixture()
	svc := newVerificationService(f, nil, nil)

	withBadge := approvedSubmission(orgID, 2)
	withBadge.Requirement = reqT4
	rejected := &model.VerificationSubmission{
		ID: 9, OrganizationID: orgID, RequirementID: 2,
		Status: model.SubmissionStatusRejected, Requirement: reqT4,
	}

	f.verifications.On("ListSubmissionsForOrganization", mock.Anything, orgID).
		Return([]*model.VerificationSubmission{withBadge, rejected}, nil)

	badges, err := svc.GetEarnedBadges(context.Background(), orgID)

	assert.NoError(t, err)
	assert.Len(t, badges, 1)
	assert.Equal(t, "gasista_matriculado", badges[0].Code)
}
