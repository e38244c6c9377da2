package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainErrors "github.com/oficiosya/subscription-engine/internal/domain/errors"
	"github.com/oficiosya/subscription-engine/internal/domain/model"
	"github.com/oficiosya/subscription-engine/internal/domain/repository"
	"github.com/oficiosya/subscription-engine/internal/infrastructure/metrics"
)

// TrialService creates and ages trial subscriptions and decides expiry and
// conversion. State machine: trialing -> active (convert) | expired (expire).
type TrialService struct {
	uow    repository.UnitOfWork
	orgs   repository.OrganizationRepository
	subs   repository.SubscriptionRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewTrialService creates a new trial service instance.
func NewTrialService(
	uow repository.UnitOfWork,
	orgs repository.OrganizationRepository,
	subs repository.SubscriptionRepository,
	logger *zap.Logger,
) *TrialService {
	return &TrialService{
		uow:    uow,
		orgs:   orgs,
		subs:   subs,
		logger: logger,
		now:    time.Now,
	}
}

// TrialStatus is the trial view returned to dashboards.
type TrialStatus struct {
	IsActive       bool       `json:"is_active"`
	IsExpired      bool       `json:"is_expired"`
	IsExpiringSoon bool       `json:"is_expiring_soon"`
	DaysRemaining  int        `json:"days_remaining"`
	TrialEndsAt    *time.Time `json:"trial_ends_at,omitempty"`
}

// CreateTrial attaches a trial subscription to a freshly signed-up
// organization. Fails when any subscription already exists; there is no
// silent overwrite.
func (s *TrialService) CreateTrial(ctx context.Context, orgID uuid.UUID) (*model.Subscription, error) {
	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, domainErrors.NewNotFoundError("organization", orgID.String())
	}

	existing, err := s.subs.GetAnyByOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domainErrors.ErrSubscriptionExists
	}

	now := s.now()
	endsAt := now.Add(model.TrialDays * 24 * time.Hour)

	sub := &model.Subscription{
		OrganizationID: orgID,
		Status:         model.SubscriptionStatusTrialing,
		Tier:           model.TrialTier,
		TrialEndsAt:    &endsAt,
		StartedAt:      now,
	}

	err = s.uow.Do(ctx, func(r *repository.Set) error {
		if err := r.Subscriptions.Create(ctx, sub); err != nil {
			return err
		}
		if err := r.Organizations.UpdateSubscriptionState(ctx, orgID, model.SubscriptionStatusTrialing, model.TrialTier, &endsAt); err != nil {
			return err
		}
		return r.Events.Append(ctx, &model.SubscriptionEvent{
			OrganizationID: orgID,
			EventType:      model.EventTrialStarted,
			EventData: model.JSONB{
				"trial_days":    model.TrialDays,
				"trial_ends_at": endsAt.Format(time.RFC3339),
				"tier":          string(model.TrialTier),
			},
		})
	})
	if err != nil {
		s.logger.Error("failed to create trial",
			zap.String("organization_id", orgID.String()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("trial created",
		zap.String("organization_id", orgID.String()),
		zap.Time("trial_ends_at", endsAt))

	return sub, nil
}

// GetTrialStatus reports the trial state from a single "now" snapshot.
// Non-trial organizations get an inactive status with a nil deadline.
func (s *TrialService) GetTrialStatus(ctx context.Context, orgID uuid.UUID) (*TrialStatus, error) {
	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, domainErrors.NewNotFoundError("organization", orgID.String())
	}

	if org.SubscriptionStatus != model.SubscriptionStatusTrialing || org.TrialEndsAt == nil {
		return &TrialStatus{
			IsExpired: org.SubscriptionStatus == model.SubscriptionStatusExpired,
		}, nil
	}

	now := s.now()
	endsAt := *org.TrialEndsAt
	if !endsAt.After(now) {
		return &TrialStatus{IsExpired: true, TrialEndsAt: &endsAt}, nil
	}

	daysRemaining := int(endsAt.Sub(now).Hours() / 24)
	return &TrialStatus{
		IsActive:       true,
		IsExpiringSoon: daysRemaining < model.TrialExpiringSoonDays,
		DaysRemaining:  daysRemaining,
		TrialEndsAt:    &endsAt,
	}, nil
}

// GetTrialsNeedingReminders returns trials ending within daysAhead days,
// for an external notification dispatcher.
func (s *TrialService) GetTrialsNeedingReminders(ctx context.Context, daysAhead int) ([]*model.Subscription, error) {
	now := s.now()
	return s.subs.ListTrialsEndingBetween(ctx, now, now.Add(time.Duration(daysAhead)*24*time.Hour))
}

// ExpireTrial closes a trial that ran out. Idempotent: expiring an already
// expired organization is a safe no-op.
func (s *TrialService) ExpireTrial(ctx context.Context, orgID uuid.UUID) error {
	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return err
	}
	if org == nil {
		return domainErrors.NewNotFoundError("organization", orgID.String())
	}

	if org.SubscriptionStatus == model.SubscriptionStatusExpired {
		return nil
	}
	if org.SubscriptionStatus != model.SubscriptionStatusTrialing {
		return domainErrors.NewInvalidTransitionError("organization",
			string(org.SubscriptionStatus), "expire_trial", "only trialing organizations can expire")
	}

	now := s.now()
	err = s.uow.Do(ctx, func(r *repository.Set) error {
		sub, err := r.Subscriptions.GetOpenByOrganization(ctx, orgID)
		if err != nil {
			return err
		}
		if sub != nil {
			sub.Status = model.SubscriptionStatusExpired
			sub.EndedAt = &now
			if err := r.Subscriptions.Update(ctx, sub); err != nil {
				return err
			}
		}
		if err := r.Organizations.UpdateSubscriptionState(ctx, orgID, model.SubscriptionStatusExpired, org.SubscriptionTier, org.TrialEndsAt); err != nil {
			return err
		}
		return r.Events.Append(ctx, &model.SubscriptionEvent{
			OrganizationID: orgID,
			EventType:      model.EventTrialEnded,
			EventData:      model.JSONB{"reason": "expired"},
		})
	})
	if err != nil {
		s.logger.Error("failed to expire trial",
			zap.String("organization_id", orgID.String()),
			zap.Error(err))
		return err
	}

	metrics.TrialsExpired.Inc()
	s.logger.Info("trial expired", zap.String("organization_id", orgID.String()))
	return nil
}

// ConvertTrialToActive upgrades a trialing organization onto a paid tier.
func (s *TrialService) ConvertTrialToActive(ctx context.Context, orgID uuid.UUID, tier model.SubscriptionTier, cycle model.BillingCycle) error {
	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return err
	}
	if org == nil {
		return domainErrors.NewNotFoundError("organization", orgID.String())
	}
	if org.SubscriptionStatus != model.SubscriptionStatusTrialing {
		return domainErrors.NewInvalidTransitionError("organization",
			string(org.SubscriptionStatus), "convert_trial", "only trialing organizations can convert")
	}

	err = s.uow.Do(ctx, func(r *repository.Set) error {
		sub, err := r.Subscriptions.GetOpenByOrganization(ctx, orgID)
		if err != nil {
			return err
		}
		if sub != nil {
			sub.Status = model.SubscriptionStatusActive
			sub.Tier = tier
			sub.BillingCycle = &cycle
			sub.TrialEndsAt = nil
			if err := r.Subscriptions.Update(ctx, sub); err != nil {
				return err
			}
		}
		if err := r.Organizations.UpdateSubscriptionState(ctx, orgID, model.SubscriptionStatusActive, tier, nil); err != nil {
			return err
		}
		return r.Events.Append(ctx, &model.SubscriptionEvent{
			OrganizationID: orgID,
			EventType:      model.EventTrialEnded,
			EventData: model.JSONB{
				"reason":        "converted",
				"tier":          string(tier),
				"billing_cycle": string(cycle),
			},
		})
	})
	if err != nil {
		s.logger.Error("failed to convert trial",
			zap.String("organization_id", orgID.String()),
			zap.String("tier", string(tier)),
			zap.Error(err))
		return err
	}

	s.logger.Info("trial converted",
		zap.String("organization_id", orgID.String()),
		zap.String("tier", string(tier)),
		zap.String("billing_cycle", string(cycle)))
	return nil
}

// ExpireDueTrials is the cron entry point: it expires every open trial
// whose deadline passed. One organization's failure does not abort the
// batch.
func (s *TrialService) ExpireDueTrials(ctx context.Context) (expired, failed int) {
	due, err := s.subs.ListTrialsEndedBefore(ctx, s.now())
	if err != nil {
		s.logger.Error("failed to list due trials", zap.Error(err))
		return 0, 0
	}

	for _, sub := range due {
		if err := s.ExpireTrial(ctx, sub.OrganizationID); err != nil {
			failed++
			s.logger.Error("failed to expire trial in batch",
				zap.String("organization_id", sub.OrganizationID.String()),
				zap.Error(err))
			continue
		}
		expired++
	}
	return expired, failed
}
