package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/cloudlink/internal/connection/refresh"
	"github.com/vietddude/cloudlink/internal/infra/storage"
)

// RefreshSweeper proactively refreshes tokens approaching expiry so
// user-facing operations rarely hit an expired token.
type RefreshSweeper struct {
	tokens      storage.TokenRepository
	coordinator *refresh.Coordinator
	window      time.Duration
	interval    time.Duration
	log         *slog.Logger
}

// NewRefreshSweeper creates a proactive token refresh worker.
func NewRefreshSweeper(
	tokens storage.TokenRepository,
	coordinator *refresh.Coordinator,
	window time.Duration,
	interval time.Duration,
	log *slog.Logger,
) *RefreshSweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &RefreshSweeper{
		tokens:      tokens,
		coordinator: coordinator,
		window:      window,
		interval:    interval,
		log:         log,
	}
}

// Start runs the sweeper loop.
func (s *RefreshSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Initial sweep
	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *RefreshSweeper) sweep(ctx context.Context) {
	expiring, err := s.tokens.FindExpiringWithin(ctx, s.window)
	if err != nil {
		s.log.Error("Failed to list expiring tokens", "error", err)
		return
	}
	if len(expiring) == 0 {
		return
	}

	s.log.Info("Proactive refresh sweep", "expiring", len(expiring))
	for _, token := range expiring {
		res := s.coordinator.Coordinate(ctx, token.UserID, token.Provider)
		if res.Outcome == refresh.OutcomeFailed {
			s.log.Warn("Proactive refresh failed",
				"user", token.UserID, "provider", token.Provider,
				"error_type", res.ErrorType, "cause", res.Cause)
		}
	}
}
