package health

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/vietddude/cloudlink/internal/connection/classify"
	"github.com/vietddude/cloudlink/internal/connection/metrics"
	"github.com/vietddude/cloudlink/internal/connection/ratelimit"
	"github.com/vietddude/cloudlink/internal/core/domain"
	"github.com/vietddude/cloudlink/internal/infra/provider"
	"github.com/vietddude/cloudlink/internal/infra/storage/memory"
)

type fakeProvider struct {
	name       string
	probeCalls int64
	probeErr   error
	success    bool
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) RefreshToken(ctx context.Context, userID string) (time.Time, error) {
	return time.Now().Add(time.Hour), nil
}

func (f *fakeProvider) ProbeConnectivity(ctx context.Context, userID string) (*provider.ProbeOutcome, error) {
	atomic.AddInt64(&f.probeCalls, 1)
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	return &provider.ProbeOutcome{Success: f.success, Latency: 5 * time.Millisecond}, nil
}

type resolverFixture struct {
	resolver *Resolver
	records  *memory.HealthStore
	tokens   *memory.TokenStore
	provider *fakeProvider
}

func newFixture(t *testing.T, p *fakeProvider, probeLimit int64) *resolverFixture {
	t.Helper()
	registry := provider.NewRegistry()
	registry.Register(p)

	records := memory.NewHealthStore()
	tokens := memory.NewTokenStore()
	limiter := ratelimit.NewLimiter(memory.NewCounterStore(), map[ratelimit.OperationClass]ratelimit.Limit{
		ratelimit.OpLiveValidation: {Max: probeLimit, Window: time.Minute},
	})
	validator := NewValidator(registry, classify.NewChain(), 2*time.Second)

	return &resolverFixture{
		resolver: NewResolver(records, tokens, validator, limiter,
			ResolverConfig{FreshnessWindow: 5 * time.Minute, RecentSuccessSpan: time.Hour},
			slog.Default()),
		records:  records,
		tokens:   tokens,
		provider: p,
	}
}

func TestDetermine_HealthyProbe(t *testing.T) {
	fx := newFixture(t, &fakeProvider{name: "drive", success: true}, 6)

	status := fx.resolver.Determine(context.Background(), "u1", "drive")
	if status != domain.ConsolidatedHealthy {
		t.Errorf("Expected healthy, got %v", status)
	}

	rec, _ := fx.records.Get(context.Background(), "u1", "drive")
	if rec == nil {
		t.Fatal("Expected record persisted")
	}
	if rec.ConsecutiveFailures != 0 || rec.Status != domain.StatusHealthy {
		t.Errorf("Expected reset failure state, got failures=%d status=%v", rec.ConsecutiveFailures, rec.Status)
	}
	if rec.LastLiveValidation == nil || rec.LiveValidationResult == nil {
		t.Error("Expected probe evidence persisted")
	}
}

func TestDetermine_AuthFailureProbe(t *testing.T) {
	p := &fakeProvider{
		name:     "drive",
		probeErr: &provider.Error{Provider: "drive", Code: "authError", StatusCode: 401, Message: "invalid token"},
	}
	fx := newFixture(t, p, 6)

	status := fx.resolver.Determine(context.Background(), "u1", "drive")
	if status != domain.ConsolidatedAuthRequired {
		t.Errorf("Expected authentication_required, got %v", status)
	}

	rec, _ := fx.records.Get(context.Background(), "u1", "drive")
	if rec.LastErrorType != domain.ErrTokenExpired {
		t.Errorf("Expected token_expired recorded, got %v", rec.LastErrorType)
	}
}

func TestDetermine_RateLimitReturnsCached(t *testing.T) {
	fx := newFixture(t, &fakeProvider{name: "drive", success: true}, 1)
	ctx := context.Background()

	// First call consumes the only permitted probe.
	if status := fx.resolver.Determine(ctx, "u1", "drive"); status != domain.ConsolidatedHealthy {
		t.Fatalf("Expected healthy, got %v", status)
	}

	// Second call must not probe and must return the cached value.
	status := fx.resolver.Determine(ctx, "u1", "drive")
	if status != domain.ConsolidatedHealthy {
		t.Errorf("Expected cached healthy, got %v", status)
	}
	if calls := atomic.LoadInt64(&fx.provider.probeCalls); calls != 1 {
		t.Errorf("Expected exactly 1 probe, got %d", calls)
	}
}

func TestDetermine_ExpiredTokenContradictionForcesProbe(t *testing.T) {
	p := &fakeProvider{
		name:     "drive",
		probeErr: &provider.Error{Provider: "drive", Code: "invalid_grant", StatusCode: 400, Message: "grant expired"},
	}
	// Zero probes permitted: only a contradiction can trigger one.
	fx := newFixture(t, p, 0)
	ctx := context.Background()

	expired := time.Now().Add(-2 * time.Hour)
	fx.tokens.Save(ctx, &domain.TokenRecord{
		UserID: "u1", Provider: "drive", ExpiresAt: expired,
	})
	fx.records.Upsert(ctx, &domain.ConnectionHealthRecord{
		UserID: "u1", Provider: "drive",
		Status:             domain.StatusHealthy,
		ConsolidatedStatus: domain.ConsolidatedHealthy,
		TokenExpiresAt:     &expired,
	})

	status := fx.resolver.Determine(ctx, "u1", "drive")
	if status != domain.ConsolidatedAuthRequired {
		t.Errorf("Expected authentication_required after forced probe, got %v", status)
	}
	if calls := atomic.LoadInt64(&p.probeCalls); calls != 1 {
		t.Errorf("Contradiction must force exactly 1 probe past the rate limit, got %d", calls)
	}
}

func TestDetermine_NotConnectedContradictionForcesProbe(t *testing.T) {
	p := &fakeProvider{name: "drive", success: true}
	fx := newFixture(t, p, 0)
	ctx := context.Background()

	recent := time.Now().Add(-10 * time.Minute)
	fx.records.Upsert(ctx, &domain.ConnectionHealthRecord{
		UserID: "u1", Provider: "drive",
		Status:             domain.StatusDisconnected,
		ConsolidatedStatus: domain.ConsolidatedNotConnected,
		LastSuccessAt:      &recent,
	})

	status := fx.resolver.Determine(ctx, "u1", "drive")
	if status != domain.ConsolidatedHealthy {
		t.Errorf("Expected corrected healthy status, got %v", status)
	}
	if calls := atomic.LoadInt64(&p.probeCalls); calls != 1 {
		t.Errorf("Expected 1 forced probe, got %d", calls)
	}
}

func TestDetermine_RoundTrip(t *testing.T) {
	// A status produced by the validator, persisted, and reloaded must
	// classify identically.
	fx := newFixture(t, &fakeProvider{name: "drive", success: true}, 6)
	ctx := context.Background()

	first := fx.resolver.Determine(ctx, "u1", "drive")
	rec, _ := fx.records.Get(ctx, "u1", "drive")
	if rec.ConsolidatedStatus != first {
		t.Errorf("Persisted status %v differs from returned %v", rec.ConsolidatedStatus, first)
	}

	second := fx.resolver.Determine(ctx, "u1", "drive")
	if second != first {
		t.Errorf("Reloaded status %v differs from original %v", second, first)
	}
}

func TestDetermine_NeverErrors(t *testing.T) {
	// Unknown provider: still resolves to one of the five values.
	fx := newFixture(t, &fakeProvider{name: "drive", success: true}, 6)

	status := fx.resolver.Determine(context.Background(), "u1", "nonexistent")
	switch status {
	case domain.ConsolidatedHealthy, domain.ConsolidatedAuthRequired,
		domain.ConsolidatedConnectionIssues, domain.ConsolidatedNotConnected,
		domain.ConsolidatedUnknown:
	default:
		t.Errorf("Determine returned a value outside the taxonomy: %v", status)
	}
}

func TestDetermine_StatusGaugeTracksTransition(t *testing.T) {
	// Exactly one status label per provider may hold 1; a transition
	// must zero the previous status.
	p := &fakeProvider{name: "box", success: true}
	fx := newFixture(t, p, 6)
	ctx := context.Background()

	if status := fx.resolver.Determine(ctx, "u1", "box"); status != domain.ConsolidatedHealthy {
		t.Fatalf("Expected healthy, got %v", status)
	}
	if got := testutil.ToFloat64(metrics.ConsolidatedStatus.WithLabelValues("box", "healthy")); got != 1 {
		t.Errorf("Expected healthy gauge 1, got %v", got)
	}

	p.probeErr = errors.New("token expired for user")
	if status := fx.resolver.Determine(ctx, "u1", "box"); status != domain.ConsolidatedAuthRequired {
		t.Fatalf("Expected authentication_required, got %v", status)
	}
	if got := testutil.ToFloat64(metrics.ConsolidatedStatus.WithLabelValues("box", "authentication_required")); got != 1 {
		t.Errorf("Expected authentication_required gauge 1, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.ConsolidatedStatus.WithLabelValues("box", "healthy")); got != 0 {
		t.Errorf("Expected healthy gauge zeroed after transition, got %v", got)
	}
}

func TestDetermine_APIEvidenceOnlyOnProviderCall(t *testing.T) {
	fx := newFixture(t, &fakeProvider{name: "drive", success: true}, 6)
	ctx := context.Background()

	// A probe that never reaches a provider leaves no API evidence.
	fx.resolver.Determine(ctx, "u1", "unregistered")
	rec, _ := fx.records.Get(ctx, "u1", "unregistered")
	if rec.APITestedAt != nil || rec.APIConnectivityResult != nil {
		t.Error("Unregistered provider must not record API connectivity evidence")
	}
	if rec.LastLiveValidation == nil {
		t.Error("Validation attempt itself must still be recorded")
	}

	fx.resolver.Determine(ctx, "u1", "drive")
	rec, _ = fx.records.Get(ctx, "u1", "drive")
	if rec.APITestedAt == nil || rec.APIConnectivityResult == nil {
		t.Error("Provider call must record API connectivity evidence")
	}
}

func TestStatusForFailures_Thresholds(t *testing.T) {
	tests := []struct {
		failures int
		expect   domain.ConnectionStatus
	}{
		{0, domain.StatusHealthy},
		{1, domain.StatusHealthy},
		{2, domain.StatusDegraded},
		{4, domain.StatusDegraded},
		{5, domain.StatusUnhealthy},
		{12, domain.StatusUnhealthy},
	}
	for _, tt := range tests {
		if got := domain.StatusForFailures(tt.failures); got != tt.expect {
			t.Errorf("StatusForFailures(%d) = %v, want %v", tt.failures, got, tt.expect)
		}
	}
}
