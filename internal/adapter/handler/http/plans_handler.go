package http

import (
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainErrors "github.com/oficiosya/subscription-engine/internal/domain/errors"
	"github.com/oficiosya/subscription-engine/internal/domain/plan"
	"github.com/oficiosya/subscription-engine/internal/domain/repository"
)

type PlansHandler struct {
	logger *zap.Logger
	orgs   repository.OrganizationRepository
}

func NewPlansHandler(logger *zap.Logger, orgs repository.OrganizationRepository) *PlansHandler {
	return &PlansHandler{
		logger: logger,
		orgs:   orgs,
	}
}

type tierView struct {
	Tier     string         `json:"tier"`
	Features []string       `json:"features"`
	Limits   map[string]int `json:"limits"`
}

// GetPlans lists every tier with its cumulative feature grants and limits.
// Public: pricing pages browse this without authentication.
// GET /api/v1/plans
func (h *PlansHandler) GetPlans(c echo.Context) error {
	tiers := make([]tierView, 0, len(plan.TierOrder))
	for _, tier := range plan.TierOrder {
		features := make([]string, 0)
		for _, f := range plan.Features() {
			if plan.HasFeatureAccess(tier, f) {
				features = append(features, string(f))
			}
		}
		sort.Strings(features)

		limits := map[string]int{}
		for _, key := range []plan.LimitKey{
			plan.LimitActiveJobs,
			plan.LimitTeamMembers,
			plan.LimitMonthlyQuotes,
			plan.LimitPhotosPerJob,
		} {
			if v, ok := plan.LimitFor(tier, key); ok {
				limits[string(key)] = v
			}
		}

		tiers = append(tiers, tierView{
			Tier:     string(tier),
			Features: features,
			Limits:   limits,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"tiers": tiers})
}

// CheckFeature reports whether the organization's current tier grants a
// feature.
// GET /api/v1/organizations/:organization_id/features/:feature
func (h *PlansHandler) CheckFeature(c echo.Context) error {
	orgID, handled, err := uuidParam(c, "organization_id")
	if handled {
		return err
	}

	feature := plan.Feature(c.Param("feature"))
	if _, ok := plan.MinTierFor(feature); !ok {
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Unknown feature",
			"code":  "UNKNOWN_FEATURE",
		})
	}

	org, err := h.orgs.GetByID(c.Request().Context(), orgID)
	if err != nil {
		return writeDomainError(c, h.logger, err)
	}
	if org == nil {
		return writeDomainError(c, h.logger, domainErrors.NewNotFoundError("organization", orgID.String()))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"feature": string(feature),
		"tier":    string(org.SubscriptionTier),
		"granted": plan.HasFeatureAccess(org.SubscriptionTier, feature),
	})
}

type limitView struct {
	Key              string `json:"key"`
	Limit            int    `json:"limit"`
	Unlimited        bool   `json:"unlimited"`
	Current          int    `json:"current,omitempty"`
	UsagePercent     int    `json:"usage_percent"`
	ApproachingLimit bool   `json:"approaching_limit"`
}

// CheckLimit reports the limit value for a key at the organization's tier,
// with usage gauges when ?current= is supplied by the caller.
// GET /api/v1/organizations/:organization_id/limits/:key
func (h *PlansHandler) CheckLimit(c echo.Context) error {
	orgID, handled, err := uuidParam(c, "organization_id")
	if handled {
		return err
	}

	org, err := h.orgs.GetByID(c.Request().Context(), orgID)
	if err != nil {
		return writeDomainError(c, h.logger, err)
	}
	if org == nil {
		return writeDomainError(c, h.logger, domainErrors.NewNotFoundError("organization", orgID.String()))
	}

	key := plan.LimitKey(c.Param("key"))
	limit, ok := plan.LimitFor(org.SubscriptionTier, key)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Unknown limit key",
			"code":  "UNKNOWN_LIMIT_KEY",
		})
	}

	current := queryInt(c, "current", 0)
	return c.JSON(http.StatusOK, limitView{
		Key:              string(key),
		Limit:            limit,
		Unlimited:        limit == plan.Unlimited,
		Current:          current,
		UsagePercent:     plan.GetUsagePercentage(current, limit),
		ApproachingLimit: plan.IsApproachingLimit(current, limit),
	})
}
