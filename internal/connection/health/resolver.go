// Package health reconciles cached health state, live probes and
// consistency heuristics into one authoritative consolidated status per
// user x provider pair.
package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/cloudlink/internal/connection/metrics"
	"github.com/vietddude/cloudlink/internal/connection/ratelimit"
	"github.com/vietddude/cloudlink/internal/core/domain"
	"github.com/vietddude/cloudlink/internal/infra/storage"
)

// ResolverConfig tunes status consolidation.
type ResolverConfig struct {
	// FreshnessWindow bounds how stale a cached status may be while the
	// rate limiter blocks a fresh probe.
	FreshnessWindow time.Duration
	// RecentSuccessSpan is how recent a successful operation must be to
	// contradict a not_connected status.
	RecentSuccessSpan time.Duration
}

// DefaultResolverConfig provides the standard windows.
var DefaultResolverConfig = ResolverConfig{
	FreshnessWindow:   5 * time.Minute,
	RecentSuccessSpan: time.Hour,
}

// Resolver determines the consolidated status for a pair.
type Resolver struct {
	records   storage.HealthRepository
	tokens    storage.TokenRepository
	validator *Validator
	limiter   *ratelimit.Limiter
	cfg       ResolverConfig
	log       *slog.Logger
}

// NewResolver creates a consolidated status resolver.
func NewResolver(
	records storage.HealthRepository,
	tokens storage.TokenRepository,
	validator *Validator,
	limiter *ratelimit.Limiter,
	cfg ResolverConfig,
	log *slog.Logger,
) *Resolver {
	if cfg.FreshnessWindow == 0 {
		cfg = DefaultResolverConfig
	}
	return &Resolver{
		records:   records,
		tokens:    tokens,
		validator: validator,
		limiter:   limiter,
		cfg:       cfg,
		log:       log,
	}
}

// Determine resolves the pair's consolidated status. It always returns
// one of the five consolidated values and never an error: internal
// failures degrade to unknown with the cause logged, not propagated.
func (r *Resolver) Determine(ctx context.Context, userID, providerName string) domain.ConsolidatedStatus {
	now := time.Now()

	rec, err := r.records.Get(ctx, userID, providerName)
	if err != nil {
		r.log.Error("Failed to load health record", "user", userID, "provider", providerName, "error", err)
		return domain.ConsolidatedUnknown
	}
	if rec == nil {
		rec = r.newRecord(ctx, userID, providerName, now)
	}
	r.syncTokenExpiry(ctx, rec)

	// Contradiction checks run on cached state before anything else.
	// A detected contradiction forces a fresh probe past the rate limit.
	contradiction := detectContradiction(rec, now, r.cfg.RecentSuccessSpan)
	if contradiction != "" {
		r.log.Warn("Health record contradiction detected, forcing probe",
			"user", userID, "provider", providerName, "check", contradiction)
		return r.probeAndPersist(ctx, rec, userID, providerName)
	}

	allowed, err := r.limiter.Allow(ctx, userID, providerName, ratelimit.OpLiveValidation)
	if err != nil {
		r.log.Error("Rate limit check failed", "user", userID, "provider", providerName, "error", err)
		return rec.ConsolidatedStatus
	}
	if !allowed {
		metrics.RateLimitDenials.WithLabelValues(providerName, string(ratelimit.OpLiveValidation)).Inc()
		// A denied probe is the normal degrade path: reuse the cached
		// status whether or not it is still inside the freshness window,
		// since no fresh probe is permitted either way.
		if rec.LastLiveValidation == nil || now.Sub(*rec.LastLiveValidation) > r.cfg.FreshnessWindow {
			r.log.Debug("Cached status stale but probe not permitted",
				"user", userID, "provider", providerName)
		}
		return rec.ConsolidatedStatus
	}

	return r.probeAndPersist(ctx, rec, userID, providerName)
}

// probeAndPersist runs a live validation and writes the record back
// atomically with the supporting evidence.
func (r *Resolver) probeAndPersist(ctx context.Context, rec *domain.ConnectionHealthRecord, userID, providerName string) domain.ConsolidatedStatus {
	status, probe := r.validator.Validate(ctx, userID, providerName)
	now := time.Now()

	rec.ConsolidatedStatus = status.Consolidated
	rec.LastLiveValidation = &now
	rec.LiveValidationResult = probe
	if probe.APICall {
		rec.APITestedAt = &now
		rec.APIConnectivityResult = probe
	}

	if probe.Success {
		rec.RecordSuccess(now)
	} else {
		rec.RecordFailure(status.ErrorType, probe.Details["error"], now)
	}

	if err := r.records.Upsert(ctx, rec); err != nil {
		r.log.Error("Failed to persist health record", "user", userID, "provider", providerName, "error", err)
	}

	// The gauge is exhaustive per provider: exactly one status label
	// holds 1, so a transition clears the previous status.
	for _, s := range domain.ConsolidatedStatusValues {
		var v float64
		if s == rec.ConsolidatedStatus {
			v = 1
		}
		metrics.ConsolidatedStatus.WithLabelValues(providerName, string(s)).Set(v)
	}
	return rec.ConsolidatedStatus
}

// syncTokenExpiry copies the current token expiry onto the record so
// the contradiction checks see fresh evidence.
func (r *Resolver) syncTokenExpiry(ctx context.Context, rec *domain.ConnectionHealthRecord) {
	token, err := r.tokens.Get(ctx, rec.UserID, rec.Provider)
	if err != nil || token == nil {
		return
	}
	expiry := token.ExpiresAt
	rec.TokenExpiresAt = &expiry
}

// newRecord builds a baseline record for a pair seen for the first
// time, seeding token expiry evidence when a token exists.
func (r *Resolver) newRecord(ctx context.Context, userID, providerName string, now time.Time) *domain.ConnectionHealthRecord {
	rec := &domain.ConnectionHealthRecord{
		UserID:             userID,
		Provider:           providerName,
		Status:             domain.StatusDisconnected,
		ConsolidatedStatus: domain.ConsolidatedNotConnected,
		UpdatedAt:          now,
	}
	token, err := r.tokens.Get(ctx, userID, providerName)
	if err != nil {
		r.log.Warn("Failed to load token for new health record", "user", userID, "provider", providerName, "error", err)
		return rec
	}
	if token != nil {
		expiry := token.ExpiresAt
		rec.TokenExpiresAt = &expiry
		rec.Status = domain.StatusHealthy
		rec.ConsolidatedStatus = domain.ConsolidatedUnknown
	}
	return rec
}
