package domain

import "time"

// ConnectionStatus is the raw health signal derived from consecutive
// failure counting.
type ConnectionStatus string

const (
	StatusHealthy      ConnectionStatus = "healthy"
	StatusDegraded     ConnectionStatus = "degraded"
	StatusUnhealthy    ConnectionStatus = "unhealthy"
	StatusDisconnected ConnectionStatus = "disconnected"
)

// ConsolidatedStatus is the single user-facing status reconciled from
// cached state, live probes and consistency checks.
type ConsolidatedStatus string

const (
	ConsolidatedHealthy          ConsolidatedStatus = "healthy"
	ConsolidatedAuthRequired     ConsolidatedStatus = "authentication_required"
	ConsolidatedConnectionIssues ConsolidatedStatus = "connection_issues"
	ConsolidatedNotConnected     ConsolidatedStatus = "not_connected"
	ConsolidatedUnknown          ConsolidatedStatus = "unknown"
)

// ConsolidatedStatusValues lists every consolidated status value.
var ConsolidatedStatusValues = []ConsolidatedStatus{
	ConsolidatedHealthy,
	ConsolidatedAuthRequired,
	ConsolidatedConnectionIssues,
	ConsolidatedNotConnected,
	ConsolidatedUnknown,
}

// ProbeResult is a structured snapshot of a single connectivity probe.
// APICall reports whether the probe actually reached the provider; a
// probe that fails before issuing a request leaves it false.
type ProbeResult struct {
	Success   bool              `json:"success"`
	APICall   bool              `json:"api_call"`
	LatencyMs int64             `json:"latency_ms"`
	ErrorType ErrorType         `json:"error_type,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	At        time.Time         `json:"at"`
}

// ConnectionHealthRecord is the persisted health state for one
// user x provider pair.
type ConnectionHealthRecord struct {
	UserID                string
	Provider              string
	Status                ConnectionStatus
	ConsolidatedStatus    ConsolidatedStatus
	ConsecutiveFailures   int
	LastErrorType         ErrorType
	LastErrorMessage      string
	RequiresReconnect     bool
	TokenExpiresAt        *time.Time
	LastSuccessAt         *time.Time
	LastLiveValidation    *time.Time
	APITestedAt           *time.Time
	LiveValidationResult  *ProbeResult
	APIConnectivityResult *ProbeResult
	ProviderData          map[string]string
	UpdatedAt             time.Time
}

// StatusForFailures maps a consecutive-failure count to the raw status.
// A single failure does not demote the connection.
func StatusForFailures(n int) ConnectionStatus {
	switch {
	case n <= 1:
		return StatusHealthy
	case n <= 4:
		return StatusDegraded
	default:
		return StatusUnhealthy
	}
}

// RecordSuccess resets failure tracking after a successful operation.
func (r *ConnectionHealthRecord) RecordSuccess(now time.Time) {
	r.ConsecutiveFailures = 0
	r.Status = StatusHealthy
	r.LastErrorType = ""
	r.LastErrorMessage = ""
	r.RequiresReconnect = false
	r.LastSuccessAt = &now
	r.UpdatedAt = now
}

// RecordFailure increments failure tracking and re-derives the raw status.
func (r *ConnectionHealthRecord) RecordFailure(errType ErrorType, msg string, now time.Time) {
	r.ConsecutiveFailures++
	r.Status = StatusForFailures(r.ConsecutiveFailures)
	r.LastErrorType = errType
	r.LastErrorMessage = msg
	if errType.RequiresUserIntervention() {
		r.RequiresReconnect = true
	}
	r.UpdatedAt = now
}
