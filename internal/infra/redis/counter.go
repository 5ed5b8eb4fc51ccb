package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CounterStore implements an atomic increment-with-expiry counter on
// Redis. INCR and EXPIRE run in one pipeline so concurrent callers never
// undercount; the expiry is only set when the key is first created.
type CounterStore struct {
	rdb *redis.Client
}

// NewCounterStore creates a Redis-backed counter store.
func NewCounterStore(client *Client) *CounterStore {
	return &CounterStore{rdb: client.rdb}
}

func counterKey(name string) string {
	return fmt.Sprintf("counter:%s", name)
}

// Increment atomically increments the named counter and returns the new
// value. The counter expires after the window elapses.
func (s *CounterStore) Increment(ctx context.Context, name string, window time.Duration) (int64, error) {
	key := counterKey(name)

	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("counter pipeline failed: %w", err)
	}

	return incr.Val(), nil
}

// Get returns the current value of the named counter without touching it.
func (s *CounterStore) Get(ctx context.Context, name string) (int64, error) {
	val, err := s.rdb.Get(ctx, counterKey(name)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("counter get failed: %w", err)
	}
	return val, nil
}

// Reset clears the named counter.
func (s *CounterStore) Reset(ctx context.Context, name string) error {
	return s.rdb.Del(ctx, counterKey(name)).Err()
}
