package memory

import (
	"context"
	"sync"
	"time"
)

// LockStore implements a TTL-bounded named lock in process memory.
// Single-process only; deployments that run multiple processes must use
// the Redis lock store.
type LockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time
}

// NewLockStore creates an empty in-memory lock store.
func NewLockStore() *LockStore {
	return &LockStore{locks: make(map[string]time.Time)}
}

// Acquire attempts to take the named lock for the given TTL. An expired
// holder is evicted, matching Redis key-expiry semantics.
func (s *LockStore) Acquire(_ context.Context, name string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expiry, held := s.locks[name]; held && time.Now().Before(expiry) {
		return false, nil
	}
	s.locks[name] = time.Now().Add(ttl)
	return true, nil
}

// Release releases the named lock.
func (s *LockStore) Release(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, name)
	return nil
}

type windowCounter struct {
	count  int64
	expiry time.Time
}

// CounterStore implements an increment-with-expiry counter in memory.
type CounterStore struct {
	mu       sync.Mutex
	counters map[string]*windowCounter
}

// NewCounterStore creates an empty in-memory counter store.
func NewCounterStore() *CounterStore {
	return &CounterStore{counters: make(map[string]*windowCounter)}
}

// Increment atomically increments the named counter and returns the new
// value. The counter resets when its window expires.
func (s *CounterStore) Increment(_ context.Context, name string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[name]
	if !ok || time.Now().After(c.expiry) {
		c = &windowCounter{expiry: time.Now().Add(window)}
		s.counters[name] = c
	}
	c.count++
	return c.count, nil
}

// Get returns the current value of the named counter.
func (s *CounterStore) Get(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[name]
	if !ok || time.Now().After(c.expiry) {
		return 0, nil
	}
	return c.count, nil
}

// Reset clears the named counter.
func (s *CounterStore) Reset(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counters, name)
	return nil
}

// CooldownStore tracks notification cool-downs in memory.
type CooldownStore struct {
	mu        sync.Mutex
	cooldowns map[string]time.Time
}

// NewCooldownStore creates an empty in-memory cooldown store.
func NewCooldownStore() *CooldownStore {
	return &CooldownStore{cooldowns: make(map[string]time.Time)}
}

// Active reports whether the named cooldown is still in effect.
func (s *CooldownStore) Active(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.cooldowns[name]
	return ok && time.Now().Before(expiry), nil
}

// Mark starts the named cooldown for the given duration.
func (s *CooldownStore) Mark(_ context.Context, name string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cooldowns[name] = time.Now().Add(ttl)
	return nil
}

// Clear removes the named cooldown.
func (s *CooldownStore) Clear(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cooldowns, name)
	return nil
}
