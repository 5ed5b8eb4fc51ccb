package health

import (
	"time"

	"github.com/vietddude/cloudlink/internal/core/domain"
)

// consistencyCheck inspects a cached health record for a contradiction
// that warrants a fresh probe regardless of rate limiting. Each check is
// named so its trigger shows up in logs.
type consistencyCheck struct {
	name  string
	probe func(rec *domain.ConnectionHealthRecord, now time.Time, recentSpan time.Duration) bool
}

// consistencyChecks are evaluated before trusting cached state.
var consistencyChecks = []consistencyCheck{
	{
		// A healthy status cannot coexist with an already-expired token.
		name: "healthy_with_expired_token",
		probe: func(rec *domain.ConnectionHealthRecord, now time.Time, _ time.Duration) bool {
			return rec.ConsolidatedStatus == domain.ConsolidatedHealthy &&
				rec.TokenExpiresAt != nil && rec.TokenExpiresAt.Before(now)
		},
	},
	{
		// Not-connected contradicts a recent successful operation.
		name: "not_connected_with_recent_success",
		probe: func(rec *domain.ConnectionHealthRecord, now time.Time, recentSpan time.Duration) bool {
			return rec.ConsolidatedStatus == domain.ConsolidatedNotConnected &&
				rec.LastSuccessAt != nil && now.Sub(*rec.LastSuccessAt) < recentSpan
		},
	},
	{
		// Healthy must never be asserted while reconnection is required
		// and a hard-failure error type is recorded.
		name: "healthy_but_requires_reconnect",
		probe: func(rec *domain.ConnectionHealthRecord, _ time.Time, _ time.Duration) bool {
			return rec.ConsolidatedStatus == domain.ConsolidatedHealthy &&
				rec.RequiresReconnect && rec.LastErrorType.RequiresUserIntervention()
		},
	},
}

// detectContradiction returns the name of the first failing consistency
// check, or "" when the cached record is internally consistent.
func detectContradiction(rec *domain.ConnectionHealthRecord, now time.Time, recentSpan time.Duration) string {
	for _, check := range consistencyChecks {
		if check.probe(rec, now, recentSpan) {
			return check.name
		}
	}
	return ""
}
