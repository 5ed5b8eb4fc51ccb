package provider

import "fmt"

// Error is the structured failure a provider integration raises. The
// classifier inspects the structured fields before falling back to
// message matching, so integrations should fill Code and StatusCode
// whenever the SDK exposes them.
type Error struct {
	Provider   string
	Code       string // provider error code, e.g. "invalid_grant", "NoSuchBucket"
	StatusCode int    // HTTP status, 0 when not applicable
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }
