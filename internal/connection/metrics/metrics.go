package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RefreshAttempts tracks token refresh attempts per provider and result
	RefreshAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudlink_token_refresh_total",
			Help: "Total number of token refresh attempts",
		},
		[]string{"provider", "result"},
	)

	// LiveProbes tracks live connectivity probes per provider and outcome
	LiveProbes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudlink_live_probes_total",
			Help: "Total number of live connectivity probes",
		},
		[]string{"provider", "outcome"},
	)

	// ProbeLatency tracks live probe latency
	ProbeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cloudlink_probe_latency_seconds",
			Help:    "Live probe latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// RateLimitDenials tracks rate-limited operations per class
	RateLimitDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudlink_rate_limit_denials_total",
			Help: "Total number of operations denied by rate limiting",
		},
		[]string{"provider", "operation"},
	)

	// RecoveryRuns tracks recovery runs per strategy and result
	RecoveryRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudlink_recovery_runs_total",
			Help: "Total number of automatic recovery runs",
		},
		[]string{"provider", "strategy", "result"},
	)

	// NotificationsSuppressed tracks notifications suppressed by cooldowns
	NotificationsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudlink_notifications_suppressed_total",
			Help: "Total number of notifications suppressed by cool-downs",
		},
		[]string{"provider", "type"},
	)

	// ConsolidatedStatus tracks the current consolidated status per pair
	ConsolidatedStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cloudlink_consolidated_status",
			Help: "Current consolidated status (1 = the labeled status is active)",
		},
		[]string{"provider", "status"},
	)
)
