// Package refresh coordinates token refresh per user x provider pair.
// At most one provider refresh call runs per pair system-wide; callers
// that lose the race observe the winner's result.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/cloudlink/internal/connection/classify"
	"github.com/vietddude/cloudlink/internal/connection/metrics"
	"github.com/vietddude/cloudlink/internal/connection/ratelimit"
	"github.com/vietddude/cloudlink/internal/core/domain"
	"github.com/vietddude/cloudlink/internal/infra/provider"
	"github.com/vietddude/cloudlink/internal/infra/storage"
)

// Outcome names the result of one Coordinate call.
type Outcome string

const (
	OutcomeAlreadyValid       Outcome = "already_valid"
	OutcomeRefreshedByAnother Outcome = "refreshed_by_another_process"
	OutcomeRefreshed          Outcome = "refreshed"
	OutcomeFailed             Outcome = "failed"
)

// Result is the structured outcome of one Coordinate call. On failure,
// ErrorType carries the classified cause.
type Result struct {
	Outcome   Outcome
	ErrorType domain.ErrorType
	Cause     string
	// FailureCount is the token's accumulated refresh failure count
	// after this attempt, for failure notifications.
	FailureCount int
}

func failed(errType domain.ErrorType, cause string) Result {
	return Result{Outcome: OutcomeFailed, ErrorType: errType, Cause: cause}
}

// Config tunes the coordinator.
type Config struct {
	// ProactiveThreshold is how close to expiry a token must be before a
	// refresh is attempted.
	ProactiveThreshold time.Duration
	LockWait           time.Duration
	LockTTL            time.Duration
}

// DefaultConfig provides the standard thresholds.
var DefaultConfig = Config{
	ProactiveThreshold: 15 * time.Minute,
	LockWait:           5 * time.Second,
	LockTTL:            30 * time.Second,
}

// Coordinator runs refresh-if-needed under the per-pair lock.
type Coordinator struct {
	tokens     storage.TokenRepository
	providers  *provider.Registry
	classifier *classify.Chain
	lock       *RefreshLock
	limiter    *ratelimit.Limiter
	cfg        Config
	log        *slog.Logger
}

// NewCoordinator creates a refresh coordinator. limiter may be nil; a
// nil limiter leaves refresh attempts uncapped.
func NewCoordinator(
	tokens storage.TokenRepository,
	providers *provider.Registry,
	classifier *classify.Chain,
	lockStore SharedLock,
	limiter *ratelimit.Limiter,
	cfg Config,
	log *slog.Logger,
) *Coordinator {
	if cfg.ProactiveThreshold == 0 {
		cfg = DefaultConfig
	}
	return &Coordinator{
		tokens:     tokens,
		providers:  providers,
		classifier: classifier,
		lock:       NewRefreshLock(lockStore, cfg.LockWait, cfg.LockTTL),
		limiter:    limiter,
		cfg:        cfg,
		log:        log,
	}
}

// Coordinate refreshes the pair's token if it is expiring, serialized
// against concurrent callers. It never returns a Go error: every failure
// is classified into the Result.
func (c *Coordinator) Coordinate(ctx context.Context, userID, providerName string) Result {
	token, err := c.tokens.Get(ctx, userID, providerName)
	if err != nil {
		return failed(domain.ErrUnknown, fmt.Sprintf("token lookup failed: %v", err))
	}
	if token == nil {
		return failed(domain.ErrInvalidRefreshToken, "no token")
	}
	if token.RequiresUserIntervention {
		// Sticky flag: no network call until the user reconnects.
		return failed(domain.ErrInvalidRefreshToken, "user intervention required")
	}

	now := time.Now()
	if !token.ExpiresWithin(c.cfg.ProactiveThreshold, now) {
		return Result{Outcome: OutcomeAlreadyValid}
	}

	acquired, err := c.lock.Acquire(ctx, userID, providerName)
	if err != nil {
		return failed(domain.ErrUnknown, fmt.Sprintf("lock error: %v", err))
	}
	if !acquired {
		return failed(domain.ErrUnknown, "lock timeout")
	}
	defer func() {
		if err := c.lock.Release(ctx, userID, providerName); err != nil {
			c.log.Warn("Failed to release refresh lock", "user", userID, "provider", providerName, "error", err)
		}
	}()

	// Re-read under the lock: another holder may have refreshed already.
	token, err = c.tokens.Get(ctx, userID, providerName)
	if err != nil {
		return failed(domain.ErrUnknown, fmt.Sprintf("token re-read failed: %v", err))
	}
	if token == nil {
		return failed(domain.ErrInvalidRefreshToken, "token cleared during refresh")
	}
	if !token.ExpiresWithin(c.cfg.ProactiveThreshold, time.Now()) {
		return Result{Outcome: OutcomeRefreshedByAnother}
	}

	// The budget counts provider calls only: callers that observed the
	// winner's result above never consumed an attempt.
	if !c.refreshAllowed(ctx, userID, providerName) {
		metrics.RateLimitDenials.WithLabelValues(providerName, string(ratelimit.OpTokenRefresh)).Inc()
		return failed(domain.ErrTokenRefreshRateLimited, "refresh attempts exhausted for the current window")
	}

	result := c.doRefresh(ctx, token, providerName)
	metrics.RefreshAttempts.WithLabelValues(providerName, string(result.Outcome)).Inc()
	return result
}

// refreshAllowed consumes one attempt from the pair's refresh budget.
// A counter error never blocks a refresh: losing a near-expiry token to
// a coordination blip is worse than briefly exceeding the cap.
func (c *Coordinator) refreshAllowed(ctx context.Context, userID, providerName string) bool {
	if c.limiter == nil {
		return true
	}
	allowed, err := c.limiter.Allow(ctx, userID, providerName, ratelimit.OpTokenRefresh)
	if err != nil {
		c.log.Warn("Refresh rate limit check failed, allowing", "user", userID, "provider", providerName, "error", err)
		return true
	}
	return allowed
}

// doRefresh performs the provider call and persists the outcome. Runs
// only while holding the pair's lock.
func (c *Coordinator) doRefresh(ctx context.Context, token *domain.TokenRecord, providerName string) Result {
	p, err := c.providers.Get(providerName)
	if err != nil {
		return failed(domain.ErrUnknown, err.Error())
	}

	now := time.Now()
	token.LastRefreshAttemptAt = &now

	// The provider call is bounded by the lock TTL so a wedged refresh
	// cannot outlive the lock.
	callCtx, cancel := context.WithTimeout(ctx, c.lock.TTL())
	defer cancel()

	newExpiry, refreshErr := p.RefreshToken(callCtx, token.UserID)
	if refreshErr != nil {
		errType := c.classifier.Classify(providerName, refreshErr)
		token.RefreshFailureCount++
		if errType.RequiresUserIntervention() {
			token.RequiresUserIntervention = true
		}
		if saveErr := c.tokens.Save(ctx, token); saveErr != nil {
			c.log.Error("Failed to persist refresh failure", "user", token.UserID, "provider", providerName, "error", saveErr)
		}
		res := failed(errType, refreshErr.Error())
		res.FailureCount = token.RefreshFailureCount
		return res
	}

	if newExpiry.IsZero() {
		// The provider reported success without a usable expiry. Treat as
		// a failure rather than persisting a token we cannot trust.
		token.RefreshFailureCount++
		if saveErr := c.tokens.Save(ctx, token); saveErr != nil {
			c.log.Error("Failed to persist refresh failure", "user", token.UserID, "provider", providerName, "error", saveErr)
		}
		res := failed(domain.ErrUnknown, "unspecified failure")
		res.FailureCount = token.RefreshFailureCount
		return res
	}

	token.ExpiresAt = newExpiry
	token.RefreshFailureCount = 0
	if err := c.tokens.Save(ctx, token); err != nil {
		return failed(domain.ErrUnknown, fmt.Sprintf("failed to persist refreshed token: %v", err))
	}

	c.log.Info("Token refreshed", "user", token.UserID, "provider", providerName, "expires_at", newExpiry)
	return Result{Outcome: OutcomeRefreshed}
}
