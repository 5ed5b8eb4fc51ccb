package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore implements a TTL-bounded named lock on Redis SetNX. The TTL
// makes a lock held by a wedged or dead process force-releasable: the key
// expires and a later acquirer wins.
type LockStore struct {
	rdb *redis.Client
}

// NewLockStore creates a Redis-backed lock store.
func NewLockStore(client *Client) *LockStore {
	return &LockStore{rdb: client.rdb}
}

func lockKey(name string) string {
	return fmt.Sprintf("lock:%s", name)
}

// Acquire attempts to take the named lock for the given TTL.
func (s *LockStore) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, lockKey(name), "locked", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx failed: %w", err)
	}
	return ok, nil
}

// Release releases the named lock.
func (s *LockStore) Release(ctx context.Context, name string) error {
	return s.rdb.Del(ctx, lockKey(name)).Err()
}
