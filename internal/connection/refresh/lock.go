package refresh

import (
	"context"
	"fmt"
	"time"
)

// SharedLock is the backing store port for the per-pair refresh lock.
// Acquire must be atomic acquire-with-TTL; an expired holder loses the
// lock to the next acquirer.
type SharedLock interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string) error
}

// RefreshLock serializes token refresh per user x provider pair. The
// acquire wait is bounded; the TTL bounds how long a wedged refresh can
// hold the lock.
type RefreshLock struct {
	store     SharedLock
	wait      time.Duration
	ttl       time.Duration
	pollEvery time.Duration
}

// NewRefreshLock creates a refresh lock with the given acquire wait and
// execution TTL.
func NewRefreshLock(store SharedLock, wait, ttl time.Duration) *RefreshLock {
	return &RefreshLock{
		store:     store,
		wait:      wait,
		ttl:       ttl,
		pollEvery: 100 * time.Millisecond,
	}
}

func refreshLockName(userID, provider string) string {
	return fmt.Sprintf("token_refresh:%s:%s", userID, provider)
}

// Acquire blocks up to the configured wait for the pair's lock.
// Returns false when the wait elapses without acquiring.
func (l *RefreshLock) Acquire(ctx context.Context, userID, provider string) (bool, error) {
	name := refreshLockName(userID, provider)
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.store.Acquire(ctx, name, l.ttl)
		if err != nil {
			return false, fmt.Errorf("lock acquire failed: %w", err)
		}
		if ok {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(l.pollEvery):
		}
	}
}

// Release releases the pair's lock.
func (l *RefreshLock) Release(ctx context.Context, userID, provider string) error {
	return l.store.Release(ctx, refreshLockName(userID, provider))
}

// TTL returns the lock execution TTL, which also bounds the provider
// refresh call.
func (l *RefreshLock) TTL() time.Duration { return l.ttl }
