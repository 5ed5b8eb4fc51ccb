package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/cloudlink/internal/connection/notify"
	"github.com/vietddude/cloudlink/internal/core/domain"
	"github.com/vietddude/cloudlink/internal/infra/storage"
)

// Server provides HTTP endpoints for connection health monitoring.
type Server struct {
	records  storage.HealthRepository
	resolver *Resolver
	server   *http.Server
}

// NewServer creates a new health server.
func NewServer(records storage.HealthRepository, resolver *Resolver, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		records:  records,
		resolver: resolver,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/connections", s.handleConnections)
	mux.HandleFunc("/connections/status", s.handleStatus)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	records, err := s.records.ListAll(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "critical", "error": "storage unavailable"})
		return
	}

	// Aggregate status (worst case wins)
	status := "healthy"
	for _, rec := range records {
		switch rec.ConsolidatedStatus {
		case domain.ConsolidatedAuthRequired, domain.ConsolidatedConnectionIssues:
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	records, err := s.records.ListAll(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage unavailable"})
		return
	}

	out := make([]connectionView, 0, len(records))
	for _, rec := range records {
		out = append(out, viewOf(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleStatus resolves the live consolidated status for one pair.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	providerName := r.URL.Query().Get("provider")
	if userID == "" || providerName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id and provider are required"})
		return
	}

	status := s.resolver.Determine(r.Context(), userID, providerName)

	// The user-facing message picks the single highest-priority signal
	// from the refreshed record.
	var contexts []notify.MessageContext
	rec, err := s.records.Get(r.Context(), userID, providerName)
	if err == nil && rec != nil {
		contexts = append(contexts, notify.MessageContext{
			ErrorType:           rec.LastErrorType,
			ConsolidatedStatus:  rec.ConsolidatedStatus,
			ConsecutiveFailures: rec.ConsecutiveFailures,
		})
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"user_id":  userID,
		"provider": providerName,
		"status":   string(status),
		"message":  notify.ResolveMessage(contexts),
	})
}

// connectionView is the wire shape for one health record.
type connectionView struct {
	UserID              string                    `json:"user_id"`
	Provider            string                    `json:"provider"`
	Status              domain.ConnectionStatus   `json:"status"`
	ConsolidatedStatus  domain.ConsolidatedStatus `json:"consolidated_status"`
	ConsecutiveFailures int                       `json:"consecutive_failures"`
	LastErrorType       domain.ErrorType          `json:"last_error_type,omitempty"`
	RequiresReconnect   bool                      `json:"requires_reconnect"`
	TokenExpiresAt      *time.Time                `json:"token_expires_at,omitempty"`
	LastSuccessAt       *time.Time                `json:"last_success_at,omitempty"`
	LastLiveValidation  *time.Time                `json:"last_live_validation,omitempty"`
	UpdatedAt           time.Time                 `json:"updated_at"`
}

func viewOf(rec *domain.ConnectionHealthRecord) connectionView {
	return connectionView{
		UserID:              rec.UserID,
		Provider:            rec.Provider,
		Status:              rec.Status,
		ConsolidatedStatus:  rec.ConsolidatedStatus,
		ConsecutiveFailures: rec.ConsecutiveFailures,
		LastErrorType:       rec.LastErrorType,
		RequiresReconnect:   rec.RequiresReconnect,
		TokenExpiresAt:      rec.TokenExpiresAt,
		LastSuccessAt:       rec.LastSuccessAt,
		LastLiveValidation:  rec.LastLiveValidation,
		UpdatedAt:           rec.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
