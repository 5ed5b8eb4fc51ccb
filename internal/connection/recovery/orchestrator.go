// Package recovery selects and executes an automated response to a
// failing connection, and requeues operations stranded by the outage.
package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/vietddude/cloudlink/internal/connection/health"
	"github.com/vietddude/cloudlink/internal/connection/metrics"
	"github.com/vietddude/cloudlink/internal/connection/notify"
	"github.com/vietddude/cloudlink/internal/connection/ratelimit"
	"github.com/vietddude/cloudlink/internal/connection/refresh"
	"github.com/vietddude/cloudlink/internal/core/domain"
	"github.com/vietddude/cloudlink/internal/infra/storage"
)

// Config tunes pending-operation retry selection.
type Config struct {
	// RetryBatch caps how many operations one recovery run requeues.
	RetryBatch int
	// RetryCooldown skips operations retried too recently.
	RetryCooldown time.Duration
	// MaxRetryCount abandons operations past this many attempts.
	MaxRetryCount int
}

// DefaultConfig provides the standard retry bounds.
var DefaultConfig = Config{
	RetryBatch:    10,
	RetryCooldown: 5 * time.Minute,
	MaxRetryCount: 5,
}

// Orchestrator runs automatic recovery for one pair at a time.
type Orchestrator struct {
	records     storage.HealthRepository
	queue       storage.PendingOperationQueue
	validator   *health.Validator
	coordinator *refresh.Coordinator
	throttler   *notify.Throttler
	limiter     *ratelimit.Limiter
	cfg         Config
	log         *slog.Logger

	mu       sync.Mutex
	attempts map[string]domain.RecoveryAttempt
}

// NewOrchestrator creates a recovery orchestrator. limiter may be nil;
// a nil limiter leaves retry probes uncapped.
func NewOrchestrator(
	records storage.HealthRepository,
	queue storage.PendingOperationQueue,
	validator *health.Validator,
	coordinator *refresh.Coordinator,
	throttler *notify.Throttler,
	limiter *ratelimit.Limiter,
	cfg Config,
	log *slog.Logger,
) *Orchestrator {
	if cfg.RetryBatch == 0 {
		cfg = DefaultConfig
	}
	return &Orchestrator{
		records:     records,
		queue:       queue,
		validator:   validator,
		coordinator: coordinator,
		throttler:   throttler,
		limiter:     limiter,
		cfg:         cfg,
		log:         log,
		attempts:    make(map[string]domain.RecoveryAttempt),
	}
}

// LastAttempt returns the most recent recovery attempt for the pair in
// this process, if any.
func (o *Orchestrator) LastAttempt(userID, providerName string) (domain.RecoveryAttempt, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	attempt, ok := o.attempts[userID+":"+providerName]
	return attempt, ok
}

// Attempt probes the pair, picks a strategy for the last known error
// and executes it. Every path returns a structured result; nothing
// propagates past this boundary.
func (o *Orchestrator) Attempt(ctx context.Context, userID, providerName string) domain.RecoveryResult {
	status, probe := o.validator.Validate(ctx, userID, providerName)
	if probe.Success {
		requeued := o.retryPendingOperations(ctx, userID, providerName)
		res := domain.RecoveryResult{
			Strategy:   domain.StrategyNoActionNeeded,
			Successful: true,
			Message:    fmt.Sprintf("connection healthy, requeued %d pending operations", requeued),
		}
		o.finish(userID, providerName, res)
		return res
	}

	errType := o.lastErrorType(ctx, userID, providerName, status)
	strategy := DetermineStrategy(errType)
	res := o.execute(ctx, userID, providerName, strategy, errType)
	o.finish(userID, providerName, res)
	return res
}

// lastErrorType prefers the persisted last error over the probe's
// classification, since the record may carry a more specific cause.
func (o *Orchestrator) lastErrorType(ctx context.Context, userID, providerName string, probed health.Status) domain.ErrorType {
	rec, err := o.records.Get(ctx, userID, providerName)
	if err != nil {
		o.log.Warn("Failed to read health record for recovery", "user", userID, "provider", providerName, "error", err)
	}
	if rec != nil && rec.LastErrorType != "" {
		return rec.LastErrorType
	}
	if probed.ErrorType != "" {
		return probed.ErrorType
	}
	return domain.ErrUnknown
}

func (o *Orchestrator) execute(ctx context.Context, userID, providerName string, strategy domain.RecoveryStrategy, errType domain.ErrorType) domain.RecoveryResult {
	switch strategy {
	case domain.StrategyTokenRefresh:
		return o.executeTokenRefresh(ctx, userID, providerName)

	case domain.StrategyNetworkRetry, domain.StrategyServiceRetry, domain.StrategyHealthCheckRetry:
		// One bounded probe; successful only if the probe itself succeeds.
		if !o.probeAllowed(ctx, userID, providerName) {
			metrics.RateLimitDenials.WithLabelValues(providerName, string(ratelimit.OpConnectivityTest)).Inc()
			return domain.RecoveryResult{Strategy: strategy, Successful: false, Message: "connectivity test rate limited, deferred to next sweep"}
		}
		_, probe := o.validator.Validate(ctx, userID, providerName)
		if probe.Success {
			return domain.RecoveryResult{Strategy: strategy, Successful: true, Message: "connectivity restored"}
		}
		return domain.RecoveryResult{Strategy: strategy, Successful: false, Message: "connectivity still failing"}

	case domain.StrategyQuotaWait:
		delay := errType.Policy().BaseRetryDelay
		return domain.RecoveryResult{
			Strategy:   strategy,
			Successful: false,
			Message:    fmt.Sprintf("quota exhausted, retry after %s", delay),
		}

	case domain.StrategyUserIntervention:
		o.throttler.Notify(ctx, userID, providerName, domain.NotifyReconnectRequired, map[string]string{
			"error_type": string(errType),
		})
		return domain.RecoveryResult{
			Strategy:   strategy,
			Successful: false,
			Message:    "user action required",
			RecommendedActions: []string{
				"Reconnect the storage account",
				"Verify the account grants the required permissions",
			},
		}

	default:
		return domain.RecoveryResult{Strategy: strategy, Successful: false, Message: "no automated recovery available"}
	}
}

// probeAllowed consumes one attempt from the pair's connectivity-test
// budget. A counter error never blocks a probe.
func (o *Orchestrator) probeAllowed(ctx context.Context, userID, providerName string) bool {
	if o.limiter == nil {
		return true
	}
	allowed, err := o.limiter.Allow(ctx, userID, providerName, ratelimit.OpConnectivityTest)
	if err != nil {
		o.log.Warn("Connectivity test rate limit check failed, allowing", "user", userID, "provider", providerName, "error", err)
		return true
	}
	return allowed
}

// executeTokenRefresh delegates to the coordinator and notifies either
// way. A failed refresh is not retried by this call.
func (o *Orchestrator) executeTokenRefresh(ctx context.Context, userID, providerName string) domain.RecoveryResult {
	res := o.coordinator.Coordinate(ctx, userID, providerName)
	switch res.Outcome {
	case refresh.OutcomeRefreshed, refresh.OutcomeRefreshedByAnother, refresh.OutcomeAlreadyValid:
		o.throttler.Notify(ctx, userID, providerName, domain.NotifyConnectionRestored, nil)
		return domain.RecoveryResult{
			Strategy:   domain.StrategyTokenRefresh,
			Successful: true,
			Message:    "token refreshed",
		}
	default:
		o.throttler.Notify(ctx, userID, providerName, domain.NotifyRefreshFailed, map[string]string{
			"error_type":    string(res.ErrorType),
			"attempt_count": strconv.Itoa(res.FailureCount),
		})
		return domain.RecoveryResult{
			Strategy:   domain.StrategyTokenRefresh,
			Successful: false,
			Message:    fmt.Sprintf("token refresh failed: %s", res.ErrorType),
		}
	}
}

// retryPendingOperations requeues stranded operations after the
// connection recovers. Selection guards against retry storms: only this
// pair's incomplete operations, skipping items whose last failure is
// not recoverable, items retried inside the cooldown, and items past
// the attempt ceiling, never exceeding the batch limit.
func (o *Orchestrator) retryPendingOperations(ctx context.Context, userID, providerName string) int {
	// Fetch with headroom so ineligible candidates cannot starve the
	// batch; the batch cap applies at requeue time.
	ops, err := o.queue.FindRetryable(ctx, userID, providerName, o.cfg.RetryBatch*4)
	if err != nil {
		o.log.Warn("Failed to list pending operations", "user", userID, "provider", providerName, "error", err)
		return 0
	}

	now := time.Now()
	requeued := 0
	for _, op := range ops {
		if requeued >= o.cfg.RetryBatch {
			break
		}
		if !o.eligibleForRetry(op, userID, now) {
			continue
		}
		if err := o.queue.EnqueueRetry(ctx, op); err != nil {
			o.log.Warn("Failed to requeue operation", "operation", op.ID, "error", err)
			continue
		}
		requeued++
	}
	return requeued
}

func (o *Orchestrator) eligibleForRetry(op *domain.PendingOperation, userID string, now time.Time) bool {
	if op.UserID != userID {
		return false
	}
	if op.Status == domain.OperationCompleted || op.Status == domain.OperationAbandoned {
		return false
	}
	if op.LastErrorType != "" && !op.LastErrorType.Recoverable() {
		return false
	}
	if op.RetryAttempts >= o.cfg.MaxRetryCount {
		return false
	}
	if op.LastRetryAt != nil && now.Sub(*op.LastRetryAt) < o.cfg.RetryCooldown {
		return false
	}
	return true
}

func (o *Orchestrator) finish(userID, providerName string, res domain.RecoveryResult) {
	result := "failure"
	if res.Successful {
		result = "success"
	}
	metrics.RecoveryRuns.WithLabelValues(providerName, string(res.Strategy), result).Inc()

	o.mu.Lock()
	o.attempts[userID+":"+providerName] = domain.RecoveryAttempt{
		UserID:     userID,
		Provider:   providerName,
		Strategy:   res.Strategy,
		Successful: res.Successful,
		At:         time.Now(),
	}
	o.mu.Unlock()

	o.log.Info("Recovery run finished", "user", userID, "provider", providerName, "strategy", res.Strategy, "successful", res.Successful)
}
