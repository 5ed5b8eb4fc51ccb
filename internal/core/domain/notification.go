package domain

import "time"

// NotificationType identifies a user-facing notification template.
type NotificationType string

const (
	NotifyTokenExpired       NotificationType = "token_expired"
	NotifyRefreshFailed      NotificationType = "refresh_failed"
	NotifyConnectionRestored NotificationType = "connection_restored"
	NotifyQuotaExceeded      NotificationType = "quota_exceeded"
	NotifyReconnectRequired  NotificationType = "reconnect_required"
	NotifyTransientFailure   NotificationType = "transient_failure"
)

// Cooldown returns how long duplicate notifications of this type are
// suppressed for the same user x provider.
func (n NotificationType) Cooldown() time.Duration {
	switch n {
	case NotifyTokenExpired, NotifyReconnectRequired:
		return 24 * time.Hour
	case NotifyRefreshFailed, NotifyQuotaExceeded:
		return 6 * time.Hour
	case NotifyConnectionRestored:
		return time.Hour
	default:
		return 30 * time.Minute
	}
}

// Notification is the payload handed to a NotificationSink.
type Notification struct {
	ID       string
	UserID   string
	Provider string
	Type     NotificationType
	Payload  map[string]string
	At       time.Time
}
