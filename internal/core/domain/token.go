package domain

import "time"

// TokenRecord holds the OAuth credentials for one user x provider pair.
// It is created on the first successful OAuth exchange and mutated by
// every refresh attempt. Disconnection clears it explicitly; it is never
// deleted as a side effect.
type TokenRecord struct {
	UserID       string
	Provider     string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time

	RefreshFailureCount int
	// RequiresUserIntervention is sticky: once set by an unrecoverable
	// refresh failure it clears only on an explicit reconnect.
	RequiresUserIntervention bool
	LastRefreshAttemptAt     *time.Time
	LastNotificationSentAt   *time.Time
	ProactiveRefreshAt       *time.Time
	UpdatedAt                time.Time
}

// ExpiresWithin reports whether the token expires inside the given window.
func (t *TokenRecord) ExpiresWithin(window time.Duration, now time.Time) bool {
	return !t.ExpiresAt.After(now.Add(window))
}

// Expired reports whether the token is already past its expiry.
func (t *TokenRecord) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
