package domain

import "time"

// OperationStatus tracks a pending upload/transfer through retry.
type OperationStatus string

const (
	OperationPending   OperationStatus = "pending"
	OperationRetrying  OperationStatus = "retrying"
	OperationCompleted OperationStatus = "completed"
	OperationAbandoned OperationStatus = "abandoned"
)

// PendingOperation represents an upload (or similar provider operation)
// that failed and is waiting for the connection to recover.
type PendingOperation struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Provider      string          `json:"provider"`
	Kind          string          `json:"kind"`
	Status        OperationStatus `json:"status"`
	LastErrorType ErrorType       `json:"last_error_type,omitempty"`
	RetryAttempts int             `json:"retry_attempts"`
	LastRetryAt   *time.Time      `json:"last_retry_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// RecoveryAttempt records the outcome of one automatic recovery run.
type RecoveryAttempt struct {
	UserID     string
	Provider   string
	Strategy   RecoveryStrategy
	Successful bool
	At         time.Time
}
