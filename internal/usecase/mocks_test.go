package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/oficiosya/subscription-engine/internal/domain/model"
	"github.com/oficiosya/subscription-engine/internal/domain/provider"
	"github.com/oficiosya/subscription-engine/internal/domain/repository"
)

// mockUnitOfWork runs the transactional function against the same mock
// repositories the service already holds, so expectations set on them cover
// both direct and in-transaction calls.
type mockUnitOfWork struct {
	set *repository.Set
}

func (m *mockUnitOfWork) Do(_ context.Context, fn func(s *repository.Set) error) error {
	return fn(m.set)
}

type mockOrganizationRepo struct {
	mock.Mock
}

func (m *mockOrganizationRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Organization), args.Error(1)
}

func (m *mockOrganizationRepo) Create(ctx context.Context, org *model.Organization) error {
	return m.Called(ctx, org).Error(0)
}

func (m *mockOrganizationRepo) UpdateSubscriptionState(ctx context.Context, id uuid.UUID, status model.SubscriptionStatus, tier model.SubscriptionTier, trialEndsAt *time.Time) error {
	return m.Called(ctx, id, status, tier, trialEndsAt).Error(0)
}

func (m *mockOrganizationRepo) UpdateBlock(ctx context.Context, id uuid.UUID, update repository.BlockUpdate) error {
	return m.Called(ctx, id, update).Error(0)
}

func (m *mockOrganizationRepo) UpdateVerificationStatus(ctx context.Context, id uuid.UUID, status model.VerificationStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockOrganizationRepo) ListExpiredUnblocked(ctx context.Context, expiredBefore time.Time) ([]*model.Organization, error) {
	args := m.Called(ctx, expiredBefore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Organization), args.Error(1)
}

func (m *mockOrganizationRepo) ListSoftBlockedBefore(ctx context.Context, blockedBefore time.Time) ([]*model.Organization, error) {
	args := m.Called(ctx, blockedBefore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Organization), args.Error(1)
}

func (m *mockOrganizationRepo) ListBlocked(ctx context.Context, filter *model.BlockType) ([]*model.Organization, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Organization), args.Error(1)
}

type mockSubscriptionRepo struct {
	mock.Mock
}

func (m *mockSubscriptionRepo) Create(ctx context.Context, sub *model.Subscription) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *mockSubscriptionRepo) GetOpenByOrganization(ctx context.Context, orgID uuid.UUID) (*model.Subscription, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepo) GetAnyByOrganization(ctx context.Context, orgID uuid.UUID) (*model.Subscription, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepo) Update(ctx context.Context, sub *model.Subscription) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *mockSubscriptionRepo) ListTrialsEndingBetween(ctx context.Context, from, to time.Time) ([]*model.Subscription, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepo) ListTrialsEndedBefore(ctx context.Context, cutoff time.Time) ([]*model.Subscription, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Subscription), args.Error(1)
}

type mockPaymentRepo struct {
	mock.Mock
}

func (m *mockPaymentRepo) Create(ctx context.Context, payment *model.SubscriptionPayment) error {
	return m.Called(ctx, payment).Error(0)
}

func (m *mockPaymentRepo) GetByID(ctx context.Context, id int64) (*model.SubscriptionPayment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SubscriptionPayment), args.Error(1)
}

func (m *mockPaymentRepo) GetByProviderRef(ctx context.Context, providerRef string) (*model.SubscriptionPayment, error) {
	args := m.Called(ctx, providerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SubscriptionPayment), args.Error(1)
}

func (m *mockPaymentRepo) Update(ctx context.Context, payment *model.SubscriptionPayment, from model.PaymentStatus) error {
	return m.Called(ctx, payment, from).Error(0)
}

func (m *mockPaymentRepo) CountConsecutiveFailed(ctx context.Context, orgID uuid.UUID) (int, error) {
	args := m.Called(ctx, orgID)
	return args.Int(0), args.Error(1)
}

func (m *mockPaymentRepo) ListByOrganization(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*model.SubscriptionPayment, error) {
	args := m.Called(ctx, orgID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.SubscriptionPayment), args.Error(1)
}

type mockEventRepo struct {
	mock.Mock
}

func (m *mockEventRepo) Append(ctx context.Context, event *model.SubscriptionEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockEventRepo) ListByOrganization(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*model.SubscriptionEvent, error) {
	args := m.Called(ctx, orgID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.SubscriptionEvent), args.Error(1)
}

type mockVerificationRepo struct {
	mock.Mock
}

func (m *mockVerificationRepo) GetRequirementByCode(ctx context.Context, code string) (*model.VerificationRequirement, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VerificationRequirement), args.Error(1)
}

func (m *mockVerificationRepo) ListActiveRequirements(ctx context.Context, scope model.RequirementScope, tier int) ([]*model.VerificationRequirement, error) {
	args := m.Called(ctx, scope, tier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.VerificationRequirement), args.Error(1)
}

func (m *mockVerificationRepo) GetActiveSubmission(ctx context.Context, orgID uuid.UUID, requirementID int64) (*model.VerificationSubmission, error) {
	args := m.Called(ctx, orgID, requirementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VerificationSubmission), args.Error(1)
}

func (m *mockVerificationRepo) GetActiveUserSubmission(ctx context.Context, userID uuid.UUID, requirementID int64) (*model.VerificationSubmission, error) {
	args := m.Called(ctx, userID, requirementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VerificationSubmission), args.Error(1)
}

func (m *mockVerificationRepo) CreateSubmission(ctx context.Context, sub *model.VerificationSubmission) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *mockVerificationRepo) GetSubmissionByID(ctx context.Context, id int64) (*model.VerificationSubmission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VerificationSubmission), args.Error(1)
}

func (m *mockVerificationRepo) UpdateSubmission(ctx context.Context, sub *model.VerificationSubmission) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *mockVerificationRepo) MarkReplaced(ctx context.Context, submissionID int64) error {
	return m.Called(ctx, submissionID).Error(0)
}

func (m *mockVerificationRepo) ListSubmissionsForOrganization(ctx context.Context, orgID uuid.UUID) ([]*model.VerificationSubmission, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.VerificationSubmission), args.Error(1)
}

func (m *mockVerificationRepo) ListSubmissionsForUser(ctx context.Context, userID uuid.UUID) ([]*model.VerificationSubmission, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.VerificationSubmission), args.Error(1)
}

func (m *mockVerificationRepo) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*model.VerificationSubmission, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.VerificationSubmission), args.Error(1)
}

type mockPaymentGateway struct {
	mock.Mock
}

func (m *mockPaymentGateway) GetPayment(ctx context.Context, providerRef string) (*provider.GatewayPayment, error) {
	args := m.Called(ctx, providerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.GatewayPayment), args.Error(1)
}

func (m *mockPaymentGateway) CreateRefund(ctx context.Context, providerRef string, amount decimal.Decimal) (*provider.GatewayRefund, error) {
	args := m.Called(ctx, providerRef, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.GatewayRefund), args.Error(1)
}

type mockTier2Checker struct {
	mock.Mock
}

func (m *mockTier2Checker) CheckTier2Complete(ctx context.Context, orgID uuid.UUID) (bool, error) {
	args := m.Called(ctx, orgID)
	return args.Bool(0), args.Error(1)
}

type mockAutoVerifier struct {
	mock.Mock
}

func (m *mockAutoVerifier) Verify(ctx context.Context, submission *model.VerificationSubmission, requirement *model.VerificationRequirement) (bool, error) {
	args := m.Called(ctx, submission, requirement)
	return args.Bool(0), args.Error(1)
}

type mockBadgeSyncer struct {
	mock.Mock
}

func (m *mockBadgeSyncer) SyncVerificationResult(ctx context.Context, submission *model.VerificationSubmission, requirement *model.VerificationRequirement) error {
	return m.Called(ctx, submission, requirement).Error(0)
}

// testFixture bundles every mock plus a unit of work bound to them.
type testFixture struct {
	orgs          *mockOrganizationRepo
	subs          *mockSubscriptionRepo
	payments      *mockPaymentRepo
	events        *mockEventRepo
	verifications *mockVerificationRepo
	uow           *mockUnitOfWork
}

func newTestFixture() *testFixture {
	f := &testFixture{
		orgs:          new(mockOrganizationRepo),
		subs:          new(mockSubscriptionRepo),
		payments:      new(mockPaymentRepo),
		events:        new(mockEventRepo),
		verifications: new(mockVerificationRepo),
	}
	f.uow = &mockUnitOfWork{set: &repository.Set{
		Organizations: f.orgs,
		Subscriptions: f.subs,
		Payments:      f.payments,
		Events:        f.events,
		Verifications: f.verifications,
	}}
	return f
}
