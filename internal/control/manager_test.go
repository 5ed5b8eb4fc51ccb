package control

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/cloudlink/internal/core/config"
	"github.com/vietddude/cloudlink/internal/core/domain"
	"github.com/vietddude/cloudlink/internal/infra/provider"
)

// memoryConfig builds a config with no database or redis URL so the
// manager falls back to the in-process backends.
func memoryConfig() config.AppConfig {
	return config.AppConfig{
		Server: config.ServerConfig{Port: 0},
		Health: config.HealthConfig{
			ProbeTimeout:      time.Second,
			ProbesPerMinute:   6,
			FreshnessWindow:   5 * time.Minute,
			RecentSuccessSpan: time.Hour,
		},
		Refresh: config.RefreshConfig{
			ProactiveThreshold: 15 * time.Minute,
			LockWait:           time.Second,
			LockTTL:            30 * time.Second,
			SweepInterval:      time.Minute,
		},
		Recovery: config.RecoveryConfig{
			SweepInterval: time.Minute,
			RetryBatch:    10,
			RetryCooldown: 5 * time.Minute,
			MaxRetryCount: 5,
		},
	}
}

func TestNewManager_MemoryBackends(t *testing.T) {
	m, err := NewManager(memoryConfig(), provider.NewRegistry(), nil, nil)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	if m.tokens == nil || m.records == nil || m.queue == nil {
		t.Fatal("Expected storage backends to be initialized")
	}
	if m.resolver == nil || m.coordinator == nil || m.orchestrator == nil {
		t.Fatal("Expected connection components to be initialized")
	}
}

func TestManager_GracefulShutdown(t *testing.T) {
	m, err := NewManager(memoryConfig(), provider.NewRegistry(), nil, nil)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := m.Stop(stopCtx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestManager_DisconnectClearsIntervention(t *testing.T) {
	m, err := NewManager(memoryConfig(), provider.NewRegistry(), nil, nil)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	ctx := context.Background()

	if err := m.tokens.Save(ctx, &domain.TokenRecord{
		UserID: "u1", Provider: "drive", RefreshToken: "r",
		ExpiresAt:                time.Now().Add(-time.Hour),
		RequiresUserIntervention: true,
	}); err != nil {
		t.Fatalf("Failed to seed token: %v", err)
	}
	if err := m.records.Upsert(ctx, &domain.ConnectionHealthRecord{
		UserID: "u1", Provider: "drive",
		Status:              domain.StatusUnhealthy,
		ConsolidatedStatus:  domain.ConsolidatedAuthRequired,
		ConsecutiveFailures: 6,
		LastErrorType:       domain.ErrInvalidRefreshToken,
		RequiresReconnect:   true,
	}); err != nil {
		t.Fatalf("Failed to seed health record: %v", err)
	}

	if err := m.Disconnect(ctx, "u1", "drive"); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}

	token, err := m.tokens.Get(ctx, "u1", "drive")
	if err != nil {
		t.Fatalf("Failed to read token: %v", err)
	}
	if token != nil {
		t.Error("Expected token to be removed")
	}

	rec, err := m.records.Get(ctx, "u1", "drive")
	if err != nil {
		t.Fatalf("Failed to read health record: %v", err)
	}
	if rec == nil {
		t.Fatal("Expected health record to remain")
	}
	if rec.RequiresReconnect {
		t.Error("Expected reconnect flag to be cleared")
	}
	if rec.ConsolidatedStatus != domain.ConsolidatedNotConnected {
		t.Errorf("Expected not_connected, got %v", rec.ConsolidatedStatus)
	}
	if rec.ConsecutiveFailures != 0 {
		t.Errorf("Expected failure count reset, got %d", rec.ConsecutiveFailures)
	}
}

type failingSink struct{}

func (s *failingSink) Send(_ context.Context, _ *domain.Notification) error {
	return errors.New("transport down")
}

type captureSink struct {
	mu   sync.Mutex
	sent []*domain.Notification
}

func (s *captureSink) Send(_ context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	return nil
}

func TestManager_EscalatesToAdminSink(t *testing.T) {
	admin := &captureSink{}
	m, err := NewManager(memoryConfig(), provider.NewRegistry(), &failingSink{}, admin)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	ctx := context.Background()

	// A failed delivery marks no cooldown, so each attempt reaches the
	// sink and counts toward escalation.
	for i := 0; i < 3; i++ {
		m.throttler.Notify(ctx, "u1", "drive", domain.NotifyTokenExpired, nil)
	}

	admin.mu.Lock()
	defer admin.mu.Unlock()
	if len(admin.sent) != 1 {
		t.Fatalf("Expected 1 admin escalation, got %d", len(admin.sent))
	}
	if admin.sent[0].Payload["escalation"] == "" {
		t.Error("Expected escalation payload to name the delivery failure")
	}
}
