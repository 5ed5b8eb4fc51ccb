// Package notify delivers user-facing notifications with per-type
// cool-downs and picks the single highest-priority message when several
// error signals are true at once.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vietddude/cloudlink/internal/connection/metrics"
	"github.com/vietddude/cloudlink/internal/core/domain"
)

// Sink is the transport port for outbound notifications.
type Sink interface {
	Send(ctx context.Context, n *domain.Notification) error
}

// CooldownStore is the shared store port for suppression windows.
type CooldownStore interface {
	Active(ctx context.Context, name string) (bool, error)
	Mark(ctx context.Context, name string, ttl time.Duration) error
	Clear(ctx context.Context, name string) error
}

// escalateAfter is how many consecutive transport failures for the same
// notification trigger an admin escalation.
const escalateAfter = 3

// Throttler suppresses duplicate notifications per (user, provider,
// type) and escalates repeated transport failures to the admin sink.
type Throttler struct {
	sink      Sink
	adminSink Sink
	cooldowns CooldownStore
	log       *slog.Logger

	failures failureCounter
}

// NewThrottler creates a notification throttler. adminSink may be nil
// when no escalation channel is configured.
func NewThrottler(sink, adminSink Sink, cooldowns CooldownStore, log *slog.Logger) *Throttler {
	return &Throttler{sink: sink, adminSink: adminSink, cooldowns: cooldowns, log: log}
}

func cooldownName(userID, providerName string, nt domain.NotificationType) string {
	return fmt.Sprintf("notify:%s:%s:%s", userID, providerName, nt)
}

// ShouldSend reports whether a notification of this type is currently
// permitted for the pair. Cool-downs are keyed per user, provider and
// type independently.
func (t *Throttler) ShouldSend(ctx context.Context, userID, providerName string, nt domain.NotificationType) bool {
	active, err := t.cooldowns.Active(ctx, cooldownName(userID, providerName, nt))
	if err != nil {
		t.log.Warn("Cooldown check failed, allowing send", "user", userID, "provider", providerName, "type", nt, "error", err)
		return true
	}
	return !active
}

// Notify sends the notification unless its cool-down is active. Send
// failures count toward escalation; escalation failures are swallowed.
func (t *Throttler) Notify(ctx context.Context, userID, providerName string, nt domain.NotificationType, payload map[string]string) {
	if !t.ShouldSend(ctx, userID, providerName, nt) {
		metrics.NotificationsSuppressed.WithLabelValues(providerName, string(nt)).Inc()
		return
	}

	n := &domain.Notification{
		ID:       uuid.New().String(),
		UserID:   userID,
		Provider: providerName,
		Type:     nt,
		Payload:  payload,
		At:       time.Now(),
	}

	if err := t.sink.Send(ctx, n); err != nil {
		t.log.Error("Notification send failed", "user", userID, "provider", providerName, "type", nt, "error", err)
		if t.failures.record(cooldownName(userID, providerName, nt)) >= escalateAfter {
			t.escalate(ctx, n, err)
		}
		return
	}

	t.failures.clear(cooldownName(userID, providerName, nt))
	t.RecordSent(ctx, userID, providerName, nt)
}

// RecordSent starts the type's cool-down for the pair.
func (t *Throttler) RecordSent(ctx context.Context, userID, providerName string, nt domain.NotificationType) {
	if err := t.cooldowns.Mark(ctx, cooldownName(userID, providerName, nt), nt.Cooldown()); err != nil {
		t.log.Warn("Failed to record cooldown", "user", userID, "provider", providerName, "type", nt, "error", err)
	}
}

// Clear lifts the cool-down for one type, or for every type when nt is
// empty. Used when a connection is restored so the next incident
// notifies immediately.
func (t *Throttler) Clear(ctx context.Context, userID, providerName string, nt domain.NotificationType) {
	types := []domain.NotificationType{nt}
	if nt == "" {
		types = []domain.NotificationType{
			domain.NotifyTokenExpired, domain.NotifyRefreshFailed,
			domain.NotifyConnectionRestored, domain.NotifyQuotaExceeded,
			domain.NotifyReconnectRequired, domain.NotifyTransientFailure,
		}
	}
	for _, typ := range types {
		if err := t.cooldowns.Clear(ctx, cooldownName(userID, providerName, typ)); err != nil {
			t.log.Warn("Failed to clear cooldown", "user", userID, "provider", providerName, "type", typ, "error", err)
		}
	}
}

// escalate notifies the admin channel about repeated delivery failures.
// Never raises: an unreachable admin sink only logs.
func (t *Throttler) escalate(ctx context.Context, n *domain.Notification, cause error) {
	if t.adminSink == nil {
		return
	}
	esc := &domain.Notification{
		ID:       uuid.New().String(),
		UserID:   n.UserID,
		Provider: n.Provider,
		Type:     n.Type,
		Payload: map[string]string{
			"escalation": "notification delivery failing",
			"cause":      cause.Error(),
		},
		At: time.Now(),
	}
	if err := t.adminSink.Send(ctx, esc); err != nil {
		t.log.Error("Admin escalation failed", "user", n.UserID, "provider", n.Provider, "error", err)
	}
}
