package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vietddude/cloudlink/internal/core/domain"
)

// OperationQueue implements storage.PendingOperationQueue using Redis.
// Operations live in per-(user, provider) sorted sets scored by retry
// count so the least-retried item is picked first; the payloads are JSON
// values with a retention TTL.
type OperationQueue struct {
	rdb *redis.Client
}

// NewOperationQueue creates a Redis-backed pending operation queue.
func NewOperationQueue(client *Client) *OperationQueue {
	return &OperationQueue{rdb: client.rdb}
}

const operationTTL = 7 * 24 * time.Hour

func (q *OperationQueue) queueKey(userID, provider string) string {
	return fmt.Sprintf("pending_ops:%s:%s", userID, provider)
}

func (q *OperationQueue) opKey(id string) string {
	return fmt.Sprintf("pending_op:%s", id)
}

// Add stores a pending operation and places it in the retry queue.
func (q *OperationQueue) Add(ctx context.Context, op *domain.PendingOperation) error {
	data, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("failed to marshal operation: %w", err)
	}

	if err := q.rdb.Set(ctx, q.opKey(op.ID), data, operationTTL).Err(); err != nil {
		return fmt.Errorf("failed to set operation: %w", err)
	}

	if err := q.rdb.ZAdd(ctx, q.queueKey(op.UserID, op.Provider), redis.Z{
		Score:  float64(op.RetryAttempts),
		Member: op.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to queue: %w", err)
	}

	return nil
}

// FindRetryable returns up to limit pending operations for the pair,
// least-retried first. Expired payloads are dropped from the queue.
func (q *OperationQueue) FindRetryable(ctx context.Context, userID, provider string, limit int) ([]*domain.PendingOperation, error) {
	key := q.queueKey(userID, provider)

	ids, err := q.rdb.ZRange(ctx, key, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}

	var ops []*domain.PendingOperation
	for _, id := range ids {
		data, err := q.rdb.Get(ctx, q.opKey(id)).Bytes()
		if err == redis.Nil {
			// Payload expired but ID still queued, drop it
			q.rdb.ZRem(ctx, key, id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get operation: %w", err)
		}

		var op domain.PendingOperation
		if err := json.Unmarshal(data, &op); err != nil {
			return nil, fmt.Errorf("failed to unmarshal operation: %w", err)
		}
		ops = append(ops, &op)
	}

	return ops, nil
}

// EnqueueRetry records a retry attempt and requeues the operation with a
// lower priority.
func (q *OperationQueue) EnqueueRetry(ctx context.Context, op *domain.PendingOperation) error {
	now := time.Now()
	op.RetryAttempts++
	op.LastRetryAt = &now
	op.Status = domain.OperationRetrying
	return q.Add(ctx, op)
}

// MarkCompleted removes a finished operation from the queue.
func (q *OperationQueue) MarkCompleted(ctx context.Context, op *domain.PendingOperation) error {
	op.Status = domain.OperationCompleted
	if err := q.rdb.ZRem(ctx, q.queueKey(op.UserID, op.Provider), op.ID).Err(); err != nil {
		return fmt.Errorf("failed to remove from queue: %w", err)
	}
	return q.rdb.Del(ctx, q.opKey(op.ID)).Err()
}
