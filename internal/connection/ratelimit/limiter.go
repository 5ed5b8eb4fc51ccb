// Package ratelimit caps how often an operation class may run per
// user x provider pair, using a shared atomic counter so the cap holds
// across processes.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// SharedCounter is the backing store port. Increment must be an atomic
// check-and-increment with window expiry.
type SharedCounter interface {
	Increment(ctx context.Context, name string, window time.Duration) (int64, error)
	Get(ctx context.Context, name string) (int64, error)
	Reset(ctx context.Context, name string) error
}

// OperationClass names a rate-limited operation family.
type OperationClass string

const (
	OpLiveValidation   OperationClass = "live_validation"
	OpTokenRefresh     OperationClass = "token_refresh"
	OpConnectivityTest OperationClass = "connectivity_test"
)

// Limit defines the cap for one operation class.
type Limit struct {
	Max    int64
	Window time.Duration
}

// DefaultLimits caps the operation classes the health core uses.
var DefaultLimits = map[OperationClass]Limit{
	OpLiveValidation:   {Max: 6, Window: time.Minute},
	OpTokenRefresh:     {Max: 10, Window: time.Minute},
	OpConnectivityTest: {Max: 6, Window: time.Minute},
}

// Limiter enforces per-(user, provider, operation-class) caps.
type Limiter struct {
	counter SharedCounter
	limits  map[OperationClass]Limit
}

// NewLimiter creates a limiter with the given limits; nil means
// DefaultLimits.
func NewLimiter(counter SharedCounter, limits map[OperationClass]Limit) *Limiter {
	if limits == nil {
		limits = DefaultLimits
	}
	return &Limiter{counter: counter, limits: limits}
}

func key(userID, providerName string, op OperationClass) string {
	return fmt.Sprintf("ratelimit:%s:%s:%s", userID, providerName, op)
}

// Allow atomically consumes one attempt and reports whether the
// operation may run. A denied call is a normal degrade path for the
// caller, not an error.
func (l *Limiter) Allow(ctx context.Context, userID, providerName string, op OperationClass) (bool, error) {
	limit, ok := l.limits[op]
	if !ok {
		return true, nil
	}

	count, err := l.counter.Increment(ctx, key(userID, providerName, op), limit.Window)
	if err != nil {
		return false, fmt.Errorf("rate limit increment failed: %w", err)
	}
	return count <= limit.Max, nil
}

// Remaining reports how many attempts are left in the current window.
func (l *Limiter) Remaining(ctx context.Context, userID, providerName string, op OperationClass) (int64, error) {
	limit, ok := l.limits[op]
	if !ok {
		return 0, nil
	}

	count, err := l.counter.Get(ctx, key(userID, providerName, op))
	if err != nil {
		return 0, fmt.Errorf("rate limit read failed: %w", err)
	}
	if count >= limit.Max {
		return 0, nil
	}
	return limit.Max - count, nil
}

// Reset clears the window for one pair and operation class.
func (l *Limiter) Reset(ctx context.Context, userID, providerName string, op OperationClass) error {
	return l.counter.Reset(ctx, key(userID, providerName, op))
}
