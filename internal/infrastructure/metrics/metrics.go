// Package metrics exposes the engine's Prometheus collectors. Counters are
// registered with the default registry via promauto and served from the
// HTTP server's /metrics route.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TrialsExpired counts trials closed by the expiry path, both on-demand
	// and from the cron batch.
	TrialsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "subscription_engine",
		Name:      "trials_expired_total",
		Help:      "Number of trial subscriptions expired.",
	})

	// BlocksApplied counts access blocks by type (soft_block, hard_block).
	BlocksApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "subscription_engine",
		Name:      "blocks_applied_total",
		Help:      "Number of access blocks applied, by block type.",
	}, []string{"block_type"})

	// BlocksEscalated counts soft blocks escalated to hard blocks by cron.
	BlocksEscalated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "subscription_engine",
		Name:      "blocks_escalated_total",
		Help:      "Number of soft blocks escalated to hard blocks.",
	})

	// PaymentsSettled counts payments reaching a terminal provider outcome,
	// by resulting status (completed, failed).
	PaymentsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "subscription_engine",
		Name:      "payments_settled_total",
		Help:      "Number of payments settled, by resulting status.",
	}, []string{"status"})

	// RefundsProcessed counts refunds completed through the gateway.
	RefundsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "subscription_engine",
		Name:      "refunds_processed_total",
		Help:      "Number of refunds processed.",
	})
)
