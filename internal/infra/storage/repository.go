package storage

import (
	"context"
	"time"

	"github.com/vietddude/cloudlink/internal/core/domain"
)

// TokenRepository handles OAuth token persistence.
type TokenRepository interface {
	// Get retrieves the token for a user x provider pair.
	// Returns (nil, nil) when no token exists.
	Get(ctx context.Context, userID, provider string) (*domain.TokenRecord, error)

	// Save upserts a token record.
	Save(ctx context.Context, token *domain.TokenRecord) error

	// Clear removes the token. Used by explicit disconnection only.
	Clear(ctx context.Context, userID, provider string) error

	// FindExpiringWithin returns tokens expiring inside the window that
	// are not flagged for user intervention, for proactive refresh.
	FindExpiringWithin(ctx context.Context, window time.Duration) ([]*domain.TokenRecord, error)
}

// HealthRepository handles connection health record persistence.
type HealthRepository interface {
	// Get retrieves the health record for a user x provider pair.
	// Returns (nil, nil) when no record exists.
	Get(ctx context.Context, userID, provider string) (*domain.ConnectionHealthRecord, error)

	// Upsert writes the full record atomically.
	Upsert(ctx context.Context, record *domain.ConnectionHealthRecord) error

	// ListUnhealthy returns records whose raw status is degraded or worse,
	// for the recovery sweeper.
	ListUnhealthy(ctx context.Context, limit int) ([]*domain.ConnectionHealthRecord, error)

	// ListAll returns every record, for the status endpoint.
	ListAll(ctx context.Context) ([]*domain.ConnectionHealthRecord, error)
}

// PendingOperationQueue handles operations waiting for a connection to
// recover.
type PendingOperationQueue interface {
	// Add stores a new pending operation.
	Add(ctx context.Context, op *domain.PendingOperation) error

	// FindRetryable returns up to limit pending operations for the pair.
	FindRetryable(ctx context.Context, userID, provider string, limit int) ([]*domain.PendingOperation, error)

	// EnqueueRetry records a retry attempt and requeues the operation.
	EnqueueRetry(ctx context.Context, op *domain.PendingOperation) error

	// MarkCompleted removes a finished operation.
	MarkCompleted(ctx context.Context, op *domain.PendingOperation) error
}
