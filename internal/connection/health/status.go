package health

import "github.com/vietddude/cloudlink/internal/core/domain"

// Status is the value object a live validation produces. Each
// constructor fixes the raw and consolidated classification; Details
// carries probe evidence for persistence and debugging.
type Status struct {
	Raw          domain.ConnectionStatus
	Consolidated domain.ConsolidatedStatus
	ErrorType    domain.ErrorType
	Details      map[string]string
}

// Healthy reports a fully working connection.
func Healthy(details map[string]string) Status {
	return Status{
		Raw:          domain.StatusHealthy,
		Consolidated: domain.ConsolidatedHealthy,
		Details:      details,
	}
}

// AuthenticationRequired reports a connection the user must re-authorize.
func AuthenticationRequired(errType domain.ErrorType, details map[string]string) Status {
	return Status{
		Raw:          domain.StatusUnhealthy,
		Consolidated: domain.ConsolidatedAuthRequired,
		ErrorType:    errType,
		Details:      details,
	}
}

// Degraded reports a connection that works but is failing intermittently.
func Degraded(errType domain.ErrorType, details map[string]string) Status {
	return Status{
		Raw:          domain.StatusDegraded,
		Consolidated: domain.ConsolidatedConnectionIssues,
		ErrorType:    errType,
		Details:      details,
	}
}

// Unhealthy reports a connection that is currently not working.
func Unhealthy(errType domain.ErrorType, details map[string]string) Status {
	return Status{
		Raw:          domain.StatusUnhealthy,
		Consolidated: domain.ConsolidatedConnectionIssues,
		ErrorType:    errType,
		Details:      details,
	}
}

// Disconnected reports a pair with no usable connection at all.
func Disconnected(details map[string]string) Status {
	return Status{
		Raw:          domain.StatusDisconnected,
		Consolidated: domain.ConsolidatedNotConnected,
		Details:      details,
	}
}
