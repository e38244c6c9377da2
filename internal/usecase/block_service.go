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

// Tier2Checker is the slice of the verification manager the block manager
// needs to fill in the delegated canReceiveJobs cell of the capability
// matrix.
type Tier2Checker interface {
	CheckTier2Complete(ctx context.Context, orgID uuid.UUID) (bool, error)
}

// StatusCache is an optional read-through cache for block status lookups.
// The engine works identically with a nil cache.
type StatusCache interface {
	GetBlockStatus(ctx context.Context, orgID uuid.UUID) (*BlockStatus, bool)
	SetBlockStatus(ctx context.Context, orgID uuid.UUID, status *BlockStatus)
	InvalidateBlockStatus(ctx context.Context, orgID uuid.UUID)
}

// BlockService applies, escalates and removes access blocks and answers
// capability queries. Escalation is monotonic: none -> soft -> hard, only
// RemoveBlock goes back.
type BlockService struct {
	uow    repository.UnitOfWork
	orgs   repository.OrganizationRepository
	tier2  Tier2Checker
	cache  StatusCache
	logger *zap.Logger
	now    func() time.Time
}

// NewBlockService creates a new block service instance. cache may be nil.
func NewBlockService(
	uow repository.UnitOfWork,
	orgs repository.OrganizationRepository,
	tier2 Tier2Checker,
	cache StatusCache,
	logger *zap.Logger,
) *BlockService {
	return &BlockService{
		uow:    uow,
		orgs:   orgs,
		tier2:  tier2,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// BlockStatus is the capability view of an organization.
//
//	blockType   dashboard  billing  receive jobs
//	none        yes        yes      delegated to verification
//	soft_block  yes        yes      no
//	hard_block  no         yes      no
type BlockStatus struct {
	IsBlocked          bool             `json:"is_blocked"`
	BlockType          *model.BlockType `json:"block_type,omitempty"`
	BlockReason        *string          `json:"block_reason,omitempty"`
	CanAccessDashboard bool             `json:"can_access_dashboard"`
	CanAccessBilling   bool             `json:"can_access_billing"`
	CanReceiveJobs     bool             `json:"can_receive_jobs"`
}

// EscalateResult reports the outcome of an escalation.
type EscalateResult struct {
	NewBlockType    model.BlockType `json:"new_block_type"`
	AlreadyMaxBlock bool            `json:"already_max_block"`
}

// BatchBlockResult is what one CheckAndApplyBlocks run did.
type BatchBlockResult struct {
	BlocksApplied int `json:"blocks_applied"`
	Escalated     int `json:"escalated"`
	Failed        int `json:"failed"`
}

// ApplyBlock sets a block of the given type on an organization.
func (s *BlockService) ApplyBlock(ctx context.Context, orgID uuid.UUID, blockType model.BlockType, reason string) error {
	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return err
	}
	if org == nil {
		return domainErrors.NewNotFoundError("organization", orgID.String())
	}

	now := s.now()
	err = s.uow.Do(ctx, func(r *repository.Set) error {
		if err := r.Organizations.UpdateBlock(ctx, orgID, repository.BlockUpdate{
			Type:      &blockType,
			Reason:    &reason,
			BlockedAt: &now,
		}); err != nil {
			return err
		}
		return r.Events.Append(ctx, &model.SubscriptionEvent{
			OrganizationID: orgID,
			EventType:      model.EventBlockApplied,
			EventData: model.JSONB{
				"block_type": string(blockType),
				"reason":     reason,
			},
		})
	})
	if err != nil {
		s.logger.Error("failed to apply block",
			zap.String("organization_id", orgID.String()),
			zap.String("block_type", string(blockType)),
			zap.Error(err))
		return err
	}

	s.invalidate(ctx, orgID)
	metrics.BlocksApplied.WithLabelValues(string(blockType)).Inc()
	s.logger.Info("block applied",
		zap.String("organization_id", orgID.String()),
		zap.String("block_type", string(blockType)),
		zap.String("reason", reason))
	return nil
}

// RemoveBlock clears any block. Removal is naturally idempotent: removing
// from an unblocked organization succeeds without logging a new event.
func (s *BlockService) RemoveBlock(ctx context.Context, orgID uuid.UUID, reason string) error {
	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return err
	}
	if org == nil {
		return domainErrors.NewNotFoundError("organization", orgID.String())
	}

	if org.BlockType == nil {
		return nil
	}
	previous := *org.BlockType

	err = s.uow.Do(ctx, func(r *repository.Set) error {
		if err := r.Organizations.UpdateBlock(ctx, orgID, repository.BlockUpdate{}); err != nil {
			return err
		}
		return r.Events.Append(ctx, &model.SubscriptionEvent{
			OrganizationID: orgID,
			EventType:      model.EventBlockRemoved,
			EventData: model.JSONB{
				"reason":              reason,
				"previous_block_type": string(previous),
			},
		})
	})
	if err != nil {
		s.logger.Error("failed to remove block",
			zap.String("organization_id", orgID.String()),
			zap.Error(err))
		return err
	}

	s.invalidate(ctx, orgID)
	s.logger.Info("block removed",
		zap.String("organization_id", orgID.String()),
		zap.String("previous_block_type", string(previous)),
		zap.String("reason", reason))
	return nil
}

// EscalateBlock raises severity one step: none -> soft, soft -> hard. A
// hard-blocked organization stays hard and reports AlreadyMaxBlock.
func (s *BlockService) EscalateBlock(ctx context.Context, orgID uuid.UUID, reason string) (*EscalateResult, error) {
	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, domainErrors.NewNotFoundError("organization", orgID.String())
	}

	if org.BlockType != nil && *org.BlockType == model.BlockTypeHard {
		return &EscalateResult{NewBlockType: model.BlockTypeHard, AlreadyMaxBlock: true}, nil
	}

	next := model.BlockTypeSoft
	if org.BlockType != nil && *org.BlockType == model.BlockTypeSoft {
		next = model.BlockTypeHard
	}

	if err := s.ApplyBlock(ctx, orgID, next, reason); err != nil {
		return nil, err
	}
	return &EscalateResult{NewBlockType: next}, nil
}

// GetBlockStatus answers the capability matrix for an organization.
func (s *BlockService) GetBlockStatus(ctx context.Context, orgID uuid.UUID) (*BlockStatus, error) {
	if s.cache != nil {
		if cached, ok := s.cache.GetBlockStatus(ctx, orgID); ok {
			return cached, nil
		}
	}

	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, domainErrors.NewNotFoundError("organization", orgID.String())
	}

	status := &BlockStatus{
		IsBlocked:   org.BlockType != nil,
		BlockType:   org.BlockType,
		BlockReason: org.BlockReason,
	}

	switch {
	case org.BlockType == nil:
		status.CanAccessDashboard = true
		status.CanAccessBilling = true
		tier2OK, err := s.tier2.CheckTier2Complete(ctx, orgID)
		if err != nil {
			return nil, err
		}
		subscribed := org.SubscriptionStatus == model.SubscriptionStatusTrialing ||
			org.SubscriptionStatus == model.SubscriptionStatusActive
		status.CanReceiveJobs = tier2OK && subscribed
	case *org.BlockType == model.BlockTypeSoft:
		status.CanAccessDashboard = true
		status.CanAccessBilling = true
	case *org.BlockType == model.BlockTypeHard:
		status.CanAccessBilling = true
	}

	if s.cache != nil {
		s.cache.SetBlockStatus(ctx, orgID, status)
	}
	return status, nil
}

// GetBlockedOrganizations lists blocked organizations, optionally filtered
// by block type.
func (s *BlockService) GetBlockedOrganizations(ctx context.Context, filter *model.BlockType) ([]*model.Organization, error) {
	return s.orgs.ListBlocked(ctx, filter)
}

// CheckAndApplyBlocks is the cron entry point. Expired organizations past
// the 7-day grace get a soft block; soft blocks older than 14 days become
// hard blocks. Each organization is processed independently; one failure
// never aborts the batch.
func (s *BlockService) CheckAndApplyBlocks(ctx context.Context) (*BatchBlockResult, error) {
	now := s.now()
	result := &BatchBlockResult{}

	graceCutoff := now.Add(-model.TrialGraceDays * 24 * time.Hour)
	expired, err := s.orgs.ListExpiredUnblocked(ctx, graceCutoff)
	if err != nil {
		return nil, err
	}
	for _, org := range expired {
		if err := s.ApplyBlock(ctx, org.ID, model.BlockTypeSoft, "subscription expired beyond grace period"); err != nil {
			result.Failed++
			s.logger.Error("batch: failed to apply soft block",
				zap.String("organization_id", org.ID.String()),
				zap.Error(err))
			continue
		}
		result.BlocksApplied++
	}

	escalateCutoff := now.Add(-model.SoftBlockEscalationDays * 24 * time.Hour)
	stale, err := s.orgs.ListSoftBlockedBefore(ctx, escalateCutoff)
	if err != nil {
		// Soft blocks were already applied above; report what happened.
		s.logger.Error("batch: failed to list stale soft blocks", zap.Error(err))
		return result, err
	}
	for _, org := range stale {
		if _, err := s.EscalateBlock(ctx, org.ID, "soft block exceeded escalation period"); err != nil {
			result.Failed++
			s.logger.Error("batch: failed to escalate block",
				zap.String("organization_id", org.ID.String()),
				zap.Error(err))
			continue
		}
		result.Escalated++
		metrics.BlocksEscalated.Inc()
	}

	s.logger.Info("block batch finished",
		zap.Int("blocks_applied", result.BlocksApplied),
		zap.Int("escalated", result.Escalated),
		zap.Int("failed", result.Failed))
	return result, nil
}

func (s *BlockService) invalidate(ctx context.Context, orgID uuid.UUID) {
	if s.cache != nil {
		s.cache.InvalidateBlockStatus(ctx, orgID)
	}
}
