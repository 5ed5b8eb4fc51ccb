package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CooldownStore tracks notification cool-downs as TTL keys. A key being
// present means the notification was sent recently and duplicates are
// suppressed until the key expires.
type CooldownStore struct {
	rdb *redis.Client
}

// NewCooldownStore creates a Redis-backed cooldown store.
func NewCooldownStore(client *Client) *CooldownStore {
	return &CooldownStore{rdb: client.rdb}
}

func cooldownKey(name string) string {
	return fmt.Sprintf("cooldown:%s", name)
}

// Active reports whether the named cooldown is still in effect.
func (s *CooldownStore) Active(ctx context.Context, name string) (bool, error) {
	n, err := s.rdb.Exists(ctx, cooldownKey(name)).Result()
	if err != nil {
		return false, fmt.Errorf("cooldown check failed: %w", err)
	}
	return n > 0, nil
}

// Mark starts the named cooldown for the given duration.
func (s *CooldownStore) Mark(ctx context.Context, name string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, cooldownKey(name), time.Now().UTC().Format(time.RFC3339), ttl).Err(); err != nil {
		return fmt.Errorf("cooldown set failed: %w", err)
	}
	return nil
}

// Clear removes the named cooldown.
func (s *CooldownStore) Clear(ctx context.Context, name string) error {
	return s.rdb.Del(ctx, cooldownKey(name)).Err()
}
