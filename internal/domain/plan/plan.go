// Package plan is the tier/feature gate: pure, side-effect-free lookups
// over static tables. Feature grants are cumulative across the ordered
// tier list, so auditing who gets what is a matter of reading the tables.
package plan

import (
	"strings"

	"github.com/oficiosya/subscription-engine/internal/domain/model"
)

// Unlimited is the sentinel limit value meaning "no cap at this tier".
const Unlimited = -1

// ApproachingLimitPercent is the early-warning threshold for limit usage.
const ApproachingLimitPercent = 80

// TierOrder is the canonical tier ordering, lowest first.
var TierOrder = []model.SubscriptionTier{
	model.TierFree,
	model.TierInicial,
	model.TierProfesional,
	model.TierEmpresa,
}

// Feature identifies a gated capability.
type Feature string

const (
	FeatureJobIntake       Feature = "jobs.receive"
	FeatureQuotePDF        Feature = "quotes.pdf_export"
	FeatureSchedule        Feature = "schedule.calendar"
	FeatureWhatsApp        Feature = "integrations.whatsapp"
	FeatureAFIPInvoicing   Feature = "invoicing.afip"
	FeatureAdvancedReports Feature = "reports.advanced"
	FeatureTeamRoles       Feature = "team.roles"
	FeatureCustomBranding  Feature = "branding.custom"
	FeatureAPIAccess       Feature = "api.access"
	FeaturePrioritySupport Feature = "support.priority"
)

// featureMinTier maps each feature to the lowest tier that unlocks it.
// Grants are cumulative: every tier above the minimum also has the feature.
var featureMinTier = map[Feature]model.SubscriptionTier{
	FeatureJobIntake:       model.TierFree,
	FeatureSchedule:        model.TierFree,
	FeatureQuotePDF:        model.TierInicial,
	FeatureWhatsApp:        model.TierInicial,
	FeatureAFIPInvoicing:   model.TierProfesional,
	FeatureAdvancedReports: model.TierProfesional,
	FeatureTeamRoles:       model.TierProfesional,
	FeatureCustomBranding:  model.TierEmpresa,
	FeatureAPIAccess:       model.TierEmpresa,
	FeaturePrioritySupport: model.TierEmpresa,
}

// LimitKey identifies a numeric per-tier limit.
type LimitKey string

const (
	LimitActiveJobs    LimitKey = "active_jobs"
	LimitTeamMembers   LimitKey = "team_members"
	LimitMonthlyQuotes LimitKey = "monthly_quotes"
	LimitPhotosPerJob  LimitKey = "photos_per_job"
)

// tierLimits holds the per-tier value for every limit key.
var tierLimits = map[LimitKey]map[model.SubscriptionTier]int{
	LimitActiveJobs: {
		model.TierFree:        3,
		model.TierInicial:     15,
		model.TierProfesional: 50,
		model.TierEmpresa:     Unlimited,
	},
	LimitTeamMembers: {
		model.TierFree:        1,
		model.TierInicial:     3,
		model.TierProfesional: 10,
		model.TierEmpresa:     Unlimited,
	},
	LimitMonthlyQuotes: {
		model.TierFree:        5,
		model.TierInicial:     30,
		model.TierProfesional: 200,
		model.TierEmpresa:     Unlimited,
	},
	LimitPhotosPerJob: {
		model.TierFree:        3,
		model.TierInicial:     10,
		model.TierProfesional: 25,
		model.TierEmpresa:     50,
	},
}

// routeFeatures maps request-path prefixes to the feature that guards them.
// Consulted by request middleware outside this core.
var routeFeatures = []struct {
	Prefix  string
	Feature Feature
}{
	{"/api/v1/quotes/export", FeatureQuotePDF},
	{"/api/v1/integrations/whatsapp", FeatureWhatsApp},
	{"/api/v1/invoices/afip", FeatureAFIPInvoicing},
	{"/api/v1/reports/advanced", FeatureAdvancedReports},
	{"/api/v1/team/roles", FeatureTeamRoles},
	{"/api/v1/branding", FeatureCustomBranding},
	{"/api/v1/api-keys", FeatureAPIAccess},
}

// TierOrdinal returns the position of a tier in TierOrder, -1 for unknown.
func TierOrdinal(tier model.SubscriptionTier) int {
	for i, t := range TierOrder {
		if t == tier {
			return i
		}
	}
	return -1
}

// Features returns every feature identifier, in no particular order.
func Features() []Feature {
	out := make([]Feature, 0, len(featureMinTier))
	for f := range featureMinTier {
		out = append(out, f)
	}
	return out
}

// MinTierFor returns the lowest tier that grants a feature and whether the
// feature is known.
func MinTierFor(feature Feature) (model.SubscriptionTier, bool) {
	t, ok := featureMinTier[feature]
	return t, ok
}

// HasFeatureAccess reports whether a tier grants a feature. Unknown
// features and unknown tiers are never granted.
func HasFeatureAccess(tier model.SubscriptionTier, feature Feature) bool {
	min, ok := featureMinTier[feature]
	if !ok {
		return false
	}
	ord := TierOrdinal(tier)
	if ord < 0 {
		return false
	}
	return ord >= TierOrdinal(min)
}

// LimitFor returns the numeric limit for a tier and key, and whether the
// key is known. Unknown tiers fall back to the FREE value.
func LimitFor(tier model.SubscriptionTier, key LimitKey) (int, bool) {
	limits, ok := tierLimits[key]
	if !ok {
		return 0, false
	}
	if v, ok := limits[tier]; ok {
		return v, true
	}
	return limits[model.TierFree], true
}

// IsLimitExceeded reports whether current+increment would exceed the
// tier's limit. The Unlimited sentinel is never exceeded; unknown keys are
// treated as exceeded so a typo fails closed.
func IsLimitExceeded(tier model.SubscriptionTier, key LimitKey, current, increment int) bool {
	limit, ok := LimitFor(tier, key)
	if !ok {
		return true
	}
	if limit == Unlimited {
		return false
	}
	return current+increment > limit
}

// GetUsagePercentage returns usage as an integer percentage of the limit,
// capped at 100. Unlimited always reports 0.
func GetUsagePercentage(current, limit int) int {
	if limit == Unlimited || limit <= 0 {
		return 0
	}
	pct := current * 100 / limit
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}

// IsApproachingLimit reports whether usage has reached the early-warning
// threshold (80% of the limit).
func IsApproachingLimit(current, limit int) bool {
	if limit == Unlimited || limit <= 0 {
		return false
	}
	return GetUsagePercentage(current, limit) >= ApproachingLimitPercent
}

// GetFeatureForRoute returns the feature guarding a request path, or empty
// when the route is not feature-gated.
func GetFeatureForRoute(path string) Feature {
	for _, rf := range routeFeatures {
		if strings.HasPrefix(path, rf.Prefix) {
			return rf.Feature
		}
	}
	return ""
}
