package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oficiosya/subscription-engine/internal/domain/model"
)

func TestHasFeatureAccess_Cumulative(t *testing.T) {
	// Every feature unlocked at tier T must be unlocked at every tier above T.
	for _, feature := range Features() {
		min, ok := MinTierFor(feature)
		assert.True(t, ok)

		minOrd := TierOrdinal(min)
		for _, tier := range TierOrder {
			granted := HasFeatureAccess(tier, feature)
			if TierOrdinal(tier) >= minOrd {
				assert.True(t, granted, "feature %s should be granted at %s", feature, tier)
			} else {
				assert.False(t, granted, "feature %s should not be granted at %s", feature, tier)
			}
		}
	}
}

func TestHasFeatureAccess_Unknowns(t *testing.T) {
	assert.False(t, HasFeatureAccess(model.TierEmpresa, Feature("nope.unknown")))
	assert.False(t, HasFeatureAccess(model.SubscriptionTier("GOLD"), FeatureJobIntake))
}

func TestIsLimitExceeded(t *testing.T) {
	tests := []struct {
		name      string
		tier      model.SubscriptionTier
		key       LimitKey
		current   int
		increment int
		exceeded  bool
	}{
		{"free under limit", model.TierFree, LimitActiveJobs, 2, 1, false},
		{"free at limit boundary", model.TierFree, LimitActiveJobs, 3, 1, true},
		{"inicial within", model.TierInicial, LimitTeamMembers, 2, 1, false},
		{"profesional exact fill", model.TierProfesional, LimitTeamMembers, 9, 1, false},
		{"profesional overflow", model.TierProfesional, LimitTeamMembers, 10, 1, true},
		{"empresa unlimited never exceeded", model.TierEmpresa, LimitActiveJobs, 100000, 1, false},
		{"unknown key fails closed", model.TierEmpresa, LimitKey("bogus"), 0, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.exceeded, IsLimitExceeded(tt.tier, tt.key, tt.current, tt.increment))
		})
	}
}

func TestGetUsagePercentage(t *testing.T) {
	assert.Equal(t, 100, GetUsagePercentage(150, 100)) // capped
	assert.Equal(t, 0, GetUsagePercentage(50, Unlimited))
	assert.Equal(t, 50, GetUsagePercentage(50, 100))
	assert.Equal(t, 0, GetUsagePercentage(0, 100))
	assert.Equal(t, 0, GetUsagePercentage(-5, 100))
}

func TestIsApproachingLimit(t *testing.T) {
	assert.True(t, IsApproachingLimit(80, 100))
	assert.False(t, IsApproachingLimit(79, 100))
	assert.True(t, IsApproachingLimit(100, 100))
	assert.False(t, IsApproachingLimit(1000, Unlimited))
}

func TestGetFeatureForRoute(t *testing.T) {
	assert.Equal(t, FeatureQuotePDF, GetFeatureForRoute("/api/v1/quotes/export/123"))
	assert.Equal(t, FeatureAFIPInvoicing, GetFeatureForRoute("/api/v1/invoices/afip"))
	assert.Equal(t, Feature(""), GetFeatureForRoute("/api/v1/jobs"))
}

func TestLimitFor_UnknownTierFallsBackToFree(t *testing.T) {
	v, ok := LimitFor(model.SubscriptionTier("GOLD"), LimitActiveJobs)
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}
