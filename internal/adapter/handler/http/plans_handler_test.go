package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oficiosya/subscription-engine/internal/domain/model"
	"github.com/oficiosya/subscription-engine/internal/domain/repository"
)

// stubOrgRepo serves a single organization; everything else is unused by
// the plans handler.
type stubOrgRepo struct {
	org *model.Organization
}

func (s *stubOrgRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	if s.org != nil && s.org.ID == id {
		return s.org, nil
	}
	return nil, nil
}

func (s *stubOrgRepo) Create(ctx context.Context, org *model.Organization) error { return nil }

func (s *stubOrgRepo) UpdateSubscriptionState(ctx context.Context, id uuid.UUID, status model.SubscriptionStatus, tier model.SubscriptionTier, trialEndsAt *time.Time) error {
	return nil
}

func (s *stubOrgRepo) UpdateBlock(ctx context.Context, id uuid.UUID, update repository.BlockUpdate) error {
	return nil
}

func (s *stubOrgRepo) UpdateVerificationStatus(ctx context.Context, id uuid.UUID, status model.VerificationStatus) error {
	return nil
}

func (s *stubOrgRepo) ListExpiredUnblocked(ctx context.Context, expiredBefore time.Time) ([]*model.Organization, error) {
	return nil, nil
}

func (s *stubOrgRepo) ListSoftBlockedBefore(ctx context.Context, blockedBefore time.Time) ([]*model.Organization, error) {
	return nil, nil
}

func (s *stubOrgRepo) ListBlocked(ctx context.Context, filter *model.BlockType) ([]*model.Organization, error) {
	return nil, nil
}

func planContext(t *testing.T, target string, org *model.Organization) (*PlansHandler, *httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return NewPlansHandler(zap.NewNop(), &stubOrgRepo{org: org}), rec, c
}

func TestGetPlans_FeatureGrantsAreCumulative(t *testing.T) {
	h, rec, c := planContext(t, "/api/v1/plans", nil)

	require.NoError(t, h.GetPlans(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Tiers []tierView `json:"tiers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Tiers, 4)

	// Each tier grants at least everything the previous one did.
	for i := 1; i < len(resp.Tiers); i++ {
		assert.GreaterOrEqual(t, len(resp.Tiers[i].Features), len(resp.Tiers[i-1].Features),
			"tier %s lost features over %s", resp.Tiers[i].Tier, resp.Tiers[i-1].Tier)
	}

	free := resp.Tiers[0]
	assert.Equal(t, "FREE", free.Tier)
	assert.Contains(t, free.Features, "jobs.receive")
	assert.NotContains(t, free.Features, "invoicing.afip")
	assert.Equal(t, 3, free.Limits["active_jobs"])

	empresa := resp.Tiers[3]
	assert.Equal(t, "EMPRESA", empresa.Tier)
	assert.Contains(t, empresa.Features, "invoicing.afip")
	assert.Equal(t, -1, empresa.Limits["active_jobs"])
}

func TestCheckFeature(t *testing.T) {
	org := &model.Organization{
		ID:               uuid.New(),
		SubscriptionTier: model.TierInicial,
	}

	t.Run("granted at tier", func(t *testing.T) {
		h, rec, c := planContext(t, "/", org)
		c.SetParamNames("organization_id", "feature")
		c.SetParamValues(org.ID.String(), "quotes.pdf_export")

		require.NoError(t, h.CheckFeature(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"granted":true`)
	})

	t.Run("denied below tier", func(t *testing.T) {
		h, rec, c := planContext(t, "/", org)
		c.SetParamNames("organization_id", "feature")
		c.SetParamValues(org.ID.String(), "invoicing.afip")

		require.NoError(t, h.CheckFeature(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"granted":false`)
	})

	t.Run("unknown feature", func(t *testing.T) {
		h, rec, c := planContext(t, "/", org)
		c.SetParamNames("organization_id", "feature")
		c.SetParamValues(org.ID.String(), "time.travel")

		require.NoError(t, h.CheckFeature(c))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCheckLimit_UsageGauges(t *testing.T) {
	org := &model.Organization{
		ID:               uuid.New(),
		SubscriptionTier: model.TierFree,
	}

	h, rec, c := planContext(t, "/?current=3", org)
	c.SetParamNames("organization_id", "key")
	c.SetParamValues(org.ID.String(), "active_jobs")

	require.NoError(t, h.CheckLimit(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var view limitView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, 3, view.Limit)
	assert.Equal(t, 100, view.UsagePercent)
	assert.True(t, view.ApproachingLimit)
	assert.False(t, view.Unlimited)
}
