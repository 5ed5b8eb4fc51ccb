package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/cloudlink/internal/core/domain"
	"github.com/vietddude/cloudlink/internal/infra/storage/memory"
)

type captureSink struct {
	mu   sync.Mutex
	sent []*domain.Notification
	err  error
}

func (s *captureSink) Send(_ context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, n)
	return nil
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestThrottler_SuppressesDuplicates(t *testing.T) {
	sink := &captureSink{}
	th := NewThrottler(sink, nil, memory.NewCooldownStore(), slog.Default())
	ctx := context.Background()

	th.Notify(ctx, "u1", "drive", domain.NotifyTokenExpired, nil)
	th.Notify(ctx, "u1", "drive", domain.NotifyTokenExpired, nil)

	if sink.count() != 1 {
		t.Errorf("Expected 1 send, got %d", sink.count())
	}
}

func TestThrottler_IndependentKeys(t *testing.T) {
	sink := &captureSink{}
	th := NewThrottler(sink, nil, memory.NewCooldownStore(), slog.Default())
	ctx := context.Background()

	th.Notify(ctx, "u1", "drive", domain.NotifyTokenExpired, nil)
	// Different provider, different type, different user: none suppressed.
	th.Notify(ctx, "u1", "s3", domain.NotifyTokenExpired, nil)
	th.Notify(ctx, "u1", "drive", domain.NotifyRefreshFailed, nil)
	th.Notify(ctx, "u2", "drive", domain.NotifyTokenExpired, nil)

	if sink.count() != 4 {
		t.Errorf("Expected 4 sends, got %d", sink.count())
	}
}

func TestThrottler_ClearLiftsCooldown(t *testing.T) {
	sink := &captureSink{}
	th := NewThrottler(sink, nil, memory.NewCooldownStore(), slog.Default())
	ctx := context.Background()

	th.Notify(ctx, "u1", "drive", domain.NotifyTokenExpired, nil)
	th.Clear(ctx, "u1", "drive", domain.NotifyTokenExpired)
	th.Notify(ctx, "u1", "drive", domain.NotifyTokenExpired, nil)

	if sink.count() != 2 {
		t.Errorf("Expected 2 sends after clear, got %d", sink.count())
	}
}

func TestThrottler_EscalatesRepeatedSendFailures(t *testing.T) {
	sink := &captureSink{err: errors.New("smtp down")}
	admin := &captureSink{}
	th := NewThrottler(sink, admin, memory.NewCooldownStore(), slog.Default())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		th.Notify(ctx, "u1", "drive", domain.NotifyRefreshFailed, nil)
	}

	if admin.count() != 1 {
		t.Errorf("Expected 1 admin escalation after 3 failures, got %d", admin.count())
	}
}

func TestThrottler_EscalationFailureSwallowed(t *testing.T) {
	sink := &captureSink{err: errors.New("smtp down")}
	admin := &captureSink{err: errors.New("admin channel down")}
	th := NewThrottler(sink, admin, memory.NewCooldownStore(), slog.Default())
	ctx := context.Background()

	// Must not panic or propagate.
	for i := 0; i < 5; i++ {
		th.Notify(ctx, "u1", "drive", domain.NotifyRefreshFailed, nil)
	}
}

func TestResolveMessage_PriorityOrder(t *testing.T) {
	contexts := []MessageContext{
		{ConsolidatedStatus: domain.ConsolidatedConnectionIssues},
		{ErrorType: domain.ErrNetwork},
		{ErrorType: domain.ErrTokenRefreshRateLimited, RetryAfter: 300 * time.Second},
	}

	msg := ResolveMessage(contexts)
	if !strings.Contains(msg, "5 minute") {
		t.Errorf("Expected retry hint mentioning 5 minutes, got %q", msg)
	}
	if strings.Contains(msg, "Connection issues detected") || strings.Contains(msg, "Network connection issue") {
		t.Errorf("Lower-priority message leaked: %q", msg)
	}
}

func TestResolveMessage_AuthOutranksQuotaAndNetwork(t *testing.T) {
	contexts := []MessageContext{
		{ErrorType: domain.ErrNetwork},
		{ErrorType: domain.ErrStorageQuotaExceeded},
		{ErrorType: domain.ErrTokenExpired},
	}

	msg := ResolveMessage(contexts)
	if !strings.Contains(msg, "reconnect") {
		t.Errorf("Expected authentication message, got %q", msg)
	}
}

func TestResolveMessage_HealthyHasNoErrorWords(t *testing.T) {
	msg := ResolveMessage([]MessageContext{
		{ConsolidatedStatus: domain.ConsolidatedHealthy, ConsecutiveFailures: 0},
	})

	lower := strings.ToLower(msg)
	for _, banned := range []string{"error", "failed", "problem"} {
		if strings.Contains(lower, banned) {
			t.Errorf("Healthy message contains %q: %q", banned, msg)
		}
	}
}

func TestResolveMessage_NoTechnicalLeakage(t *testing.T) {
	// Messages are canned per type: no HTTP codes or exception text.
	for _, et := range []domain.ErrorType{
		domain.ErrTokenExpired, domain.ErrNetwork, domain.ErrServiceUnavailable,
		domain.ErrAPIQuotaExceeded, domain.ErrInsufficientPermissions,
	} {
		msg := ResolveMessage([]MessageContext{{ErrorType: et}})
		for _, leaked := range []string{"401", "403", "500", "503", "Error:", "exception"} {
			if strings.Contains(msg, leaked) {
				t.Errorf("Message for %v leaks technical text %q: %q", et, leaked, msg)
			}
		}
	}
}
