package health

import (
	"context"
	"time"

	"github.com/vietddude/cloudlink/internal/connection/classify"
	"github.com/vietddude/cloudlink/internal/connection/metrics"
	"github.com/vietddude/cloudlink/internal/core/domain"
	"github.com/vietddude/cloudlink/internal/infra/provider"
)

// Validator performs live, bounded probes against a provider,
// independent of any cached state.
type Validator struct {
	providers  *provider.Registry
	classifier *classify.Chain
	timeout    time.Duration
}

// NewValidator creates a live health validator. Every probe is bounded
// by the timeout; a probe that exceeds it classifies as TIMEOUT rather
// than staying pending.
func NewValidator(providers *provider.Registry, classifier *classify.Chain, timeout time.Duration) *Validator {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Validator{providers: providers, classifier: classifier, timeout: timeout}
}

// Validate probes the pair's connectivity and returns the resulting
// Status with the structured probe snapshot. It never returns an error:
// probe failures are classified into the Status.
func (v *Validator) Validate(ctx context.Context, userID, providerName string) (Status, *domain.ProbeResult) {
	p, err := v.providers.Get(providerName)
	if err != nil {
		probe := &domain.ProbeResult{Success: false, ErrorType: domain.ErrUnknown, At: time.Now()}
		return Disconnected(map[string]string{"reason": "provider not registered"}), probe
	}

	probeCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	start := time.Now()
	outcome, probeErr := p.ProbeConnectivity(probeCtx, userID)
	latency := time.Since(start)
	metrics.ProbeLatency.WithLabelValues(providerName).Observe(latency.Seconds())

	probe := &domain.ProbeResult{
		APICall:   true,
		LatencyMs: latency.Milliseconds(),
		At:        time.Now(),
	}

	if probeErr != nil {
		errType := v.classifier.Classify(providerName, probeErr)
		probe.ErrorType = errType
		probe.Details = map[string]string{"error": probeErr.Error()}
		metrics.LiveProbes.WithLabelValues(providerName, "failure").Inc()
		return statusForError(errType, probe.Details), probe
	}

	if outcome == nil || !outcome.Success {
		probe.ErrorType = domain.ErrUnknown
		metrics.LiveProbes.WithLabelValues(providerName, "failure").Inc()
		return Unhealthy(domain.ErrUnknown, detailsOf(outcome)), probe
	}

	probe.Success = true
	probe.Details = outcome.Details
	metrics.LiveProbes.WithLabelValues(providerName, "success").Inc()
	return Healthy(outcome.Details), probe
}

// statusForError maps a classified probe failure onto a Status value.
func statusForError(errType domain.ErrorType, details map[string]string) Status {
	switch errType {
	case domain.ErrTokenExpired, domain.ErrInvalidCredentials, domain.ErrInvalidRefreshToken,
		domain.ErrInsufficientPermissions:
		return AuthenticationRequired(errType, details)
	case domain.ErrNetwork, domain.ErrTimeout:
		return Degraded(errType, details)
	default:
		return Unhealthy(errType, details)
	}
}

func detailsOf(outcome *provider.ProbeOutcome) map[string]string {
	if outcome == nil {
		return nil
	}
	return outcome.Details
}
