package domain

import "time"

// ErrorType is the closed taxonomy of classified provider failures.
// Every provider error is mapped into this set before it reaches the
// rest of the system.
type ErrorType string

const (
	ErrTokenExpired            ErrorType = "token_expired"
	ErrInvalidCredentials      ErrorType = "invalid_credentials"
	ErrInvalidRefreshToken     ErrorType = "invalid_refresh_token"
	ErrInsufficientPermissions ErrorType = "insufficient_permissions"
	ErrTokenRefreshRateLimited ErrorType = "token_refresh_rate_limited"
	ErrAPIQuotaExceeded        ErrorType = "api_quota_exceeded"
	ErrStorageQuotaExceeded    ErrorType = "storage_quota_exceeded"
	ErrNetwork                 ErrorType = "network_error"
	ErrServiceUnavailable      ErrorType = "service_unavailable"
	ErrTimeout                 ErrorType = "timeout"
	ErrFileNotFound            ErrorType = "file_not_found"
	ErrFeatureNotSupported     ErrorType = "feature_not_supported"
	ErrBucketNotFound          ErrorType = "bucket_not_found"
	ErrInvalidBucketName       ErrorType = "invalid_bucket_name"
	ErrUnknown                 ErrorType = "unknown_error"
)

// ErrorPolicy holds the static retry/intervention attributes of an ErrorType.
type ErrorPolicy struct {
	Recoverable              bool
	RequiresUserIntervention bool
	MaxRetryAttempts         int
	BaseRetryDelay           time.Duration
}

// errorPolicies maps every ErrorType to its policy. Types absent from the
// map fall back to the UNKNOWN policy.
var errorPolicies = map[ErrorType]ErrorPolicy{
	ErrTokenExpired:            {Recoverable: true, MaxRetryAttempts: 3, BaseRetryDelay: 2 * time.Second},
	ErrInvalidCredentials:      {RequiresUserIntervention: true},
	ErrInvalidRefreshToken:     {RequiresUserIntervention: true},
	ErrInsufficientPermissions: {RequiresUserIntervention: true},
	ErrTokenRefreshRateLimited: {Recoverable: true, MaxRetryAttempts: 1, BaseRetryDelay: 5 * time.Minute},
	ErrAPIQuotaExceeded:        {Recoverable: true, MaxRetryAttempts: 2, BaseRetryDelay: 15 * time.Minute},
	ErrStorageQuotaExceeded:    {RequiresUserIntervention: true},
	ErrNetwork:                 {Recoverable: true, MaxRetryAttempts: 5, BaseRetryDelay: 1 * time.Second},
	ErrServiceUnavailable:      {Recoverable: true, MaxRetryAttempts: 3, BaseRetryDelay: 30 * time.Second},
	ErrTimeout:                 {Recoverable: true, MaxRetryAttempts: 3, BaseRetryDelay: 5 * time.Second},
	ErrFileNotFound:            {},
	ErrFeatureNotSupported:     {},
	ErrBucketNotFound:          {RequiresUserIntervention: true},
	ErrInvalidBucketName:       {RequiresUserIntervention: true},
	ErrUnknown:                 {Recoverable: true, MaxRetryAttempts: 1, BaseRetryDelay: 1 * time.Minute},
}

// Policy returns the static policy attributes for the error type.
func (e ErrorType) Policy() ErrorPolicy {
	if p, ok := errorPolicies[e]; ok {
		return p
	}
	return errorPolicies[ErrUnknown]
}

// Recoverable reports whether automatic recovery may be attempted.
func (e ErrorType) Recoverable() bool { return e.Policy().Recoverable }

// RequiresUserIntervention reports whether the user must act before the
// connection can work again.
func (e ErrorType) RequiresUserIntervention() bool { return e.Policy().RequiresUserIntervention }
