package notify

import (
	"fmt"
	"time"

	"github.com/vietddude/cloudlink/internal/core/domain"
)

// MessageContext is one simultaneously-true error signal competing for
// the user's attention.
type MessageContext struct {
	ErrorType           domain.ErrorType
	ConsolidatedStatus  domain.ConsolidatedStatus
	ConsecutiveFailures int
	// RetryAfter is set for rate-limited errors when the provider told
	// us how long to back off.
	RetryAfter time.Duration
}

// Priority ranks, lower wins. Rate limiting outranks authentication,
// which outranks quota, which outranks network, which outranks generic
// status messages.
const (
	prioRateLimit = iota
	prioAuth
	prioQuota
	prioNetwork
	prioStatus
	prioHealthy
)

func rank(c MessageContext) int {
	switch c.ErrorType {
	case domain.ErrTokenRefreshRateLimited:
		return prioRateLimit
	case domain.ErrTokenExpired, domain.ErrInvalidCredentials,
		domain.ErrInvalidRefreshToken, domain.ErrInsufficientPermissions:
		return prioAuth
	case domain.ErrAPIQuotaExceeded, domain.ErrStorageQuotaExceeded:
		return prioQuota
	case domain.ErrNetwork, domain.ErrTimeout, domain.ErrServiceUnavailable:
		return prioNetwork
	}
	if c.ConsolidatedStatus == domain.ConsolidatedHealthy {
		return prioHealthy
	}
	return prioStatus
}

// ResolveMessage picks the single highest-priority user-facing message
// from the given contexts. Only canned, parameterized text is produced;
// raw provider error text never reaches the user.
func ResolveMessage(contexts []MessageContext) string {
	if len(contexts) == 0 {
		return "Connection is working normally."
	}

	best := contexts[0]
	bestRank := rank(best)
	for _, c := range contexts[1:] {
		if r := rank(c); r < bestRank {
			best, bestRank = c, r
		}
	}
	return messageFor(best)
}

func messageFor(c MessageContext) string {
	switch c.ErrorType {
	case domain.ErrTokenRefreshRateLimited:
		wait := c.RetryAfter
		if wait == 0 {
			wait = 5 * time.Minute
		}
		return fmt.Sprintf("Too many connection attempts. Please wait %s before trying again.", humanDuration(wait))
	case domain.ErrTokenExpired:
		return "Your connection has expired. Please reconnect your account."
	case domain.ErrInvalidCredentials, domain.ErrInvalidRefreshToken:
		return "Your account authorization is no longer valid. Please reconnect your account."
	case domain.ErrInsufficientPermissions:
		return "The connected account does not have the required permissions. Please reconnect and grant access."
	case domain.ErrStorageQuotaExceeded:
		return "Your cloud storage is full. Free up space to continue uploading."
	case domain.ErrAPIQuotaExceeded:
		return "The storage service usage limit was reached. Uploads will resume automatically."
	case domain.ErrNetwork, domain.ErrTimeout:
		return "Network connection issue. Uploads will retry automatically."
	case domain.ErrServiceUnavailable:
		return "The storage service is temporarily unavailable. Uploads will retry automatically."
	}

	switch c.ConsolidatedStatus {
	case domain.ConsolidatedHealthy:
		return "Connection is working normally."
	case domain.ConsolidatedAuthRequired:
		return "Your connection needs to be re-authorized. Please reconnect your account."
	case domain.ConsolidatedNotConnected:
		return "No storage connection is set up yet."
	default:
		return "Connection issues detected. Uploads will retry automatically."
	}
}

// humanDuration renders a wait hint in whole minutes or seconds.
func humanDuration(d time.Duration) string {
	if d >= time.Minute {
		mins := int(d.Round(time.Minute) / time.Minute)
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	secs := int(d / time.Second)
	if secs == 1 {
		return "1 second"
	}
	return fmt.Sprintf("%d seconds", secs)
}
