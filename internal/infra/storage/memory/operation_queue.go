package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vietddude/cloudlink/internal/core/domain"
)

// OperationQueue implements storage.PendingOperationQueue in memory.
type OperationQueue struct {
	mu  sync.Mutex
	ops map[string]*domain.PendingOperation
}

// NewOperationQueue creates an empty in-memory operation queue.
func NewOperationQueue() *OperationQueue {
	return &OperationQueue{ops: make(map[string]*domain.PendingOperation)}
}

// Add stores a pending operation.
func (q *OperationQueue) Add(_ context.Context, op *domain.PendingOperation) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	cp := *op
	q.ops[op.ID] = &cp
	return nil
}

// FindRetryable returns up to limit pending operations for the pair,
// least-retried first.
func (q *OperationQueue) FindRetryable(_ context.Context, userID, provider string, limit int) ([]*domain.PendingOperation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []*domain.PendingOperation
	for _, op := range q.ops {
		if op.UserID != userID || op.Provider != provider {
			continue
		}
		if op.Status == domain.OperationCompleted || op.Status == domain.OperationAbandoned {
			continue
		}
		cp := *op
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RetryAttempts < out[j].RetryAttempts })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// EnqueueRetry records a retry attempt and requeues the operation.
func (q *OperationQueue) EnqueueRetry(_ context.Context, op *domain.PendingOperation) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	op.RetryAttempts++
	op.LastRetryAt = &now
	op.Status = domain.OperationRetrying
	cp := *op
	q.ops[op.ID] = &cp
	return nil
}

// MarkCompleted removes a finished operation.
func (q *OperationQueue) MarkCompleted(_ context.Context, op *domain.PendingOperation) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	op.Status = domain.OperationCompleted
	delete(q.ops, op.ID)
	return nil
}
