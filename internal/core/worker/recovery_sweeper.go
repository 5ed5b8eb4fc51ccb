package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/cloudlink/internal/connection/recovery"
	"github.com/vietddude/cloudlink/internal/infra/storage"
)

// RecoverySweeper periodically attempts automatic recovery for
// connections whose raw status has degraded.
type RecoverySweeper struct {
	records      storage.HealthRepository
	orchestrator *recovery.Orchestrator
	interval     time.Duration
	batch        int
	log          *slog.Logger
}

// NewRecoverySweeper creates a background recovery worker.
func NewRecoverySweeper(
	records storage.HealthRepository,
	orchestrator *recovery.Orchestrator,
	interval time.Duration,
	batch int,
	log *slog.Logger,
) *RecoverySweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if batch <= 0 {
		batch = 50
	}
	return &RecoverySweeper{
		records:      records,
		orchestrator: orchestrator,
		interval:     interval,
		batch:        batch,
		log:          log,
	}
}

// Start runs the sweeper loop.
func (s *RecoverySweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *RecoverySweeper) sweep(ctx context.Context) {
	unhealthy, err := s.records.ListUnhealthy(ctx, s.batch)
	if err != nil {
		s.log.Error("Failed to list unhealthy connections", "error", err)
		return
	}
	if len(unhealthy) == 0 {
		return
	}

	s.log.Info("Recovery sweep", "unhealthy", len(unhealthy))
	for _, rec := range unhealthy {
		// Connections awaiting an explicit reconnect are not retried;
		// the user has already been notified.
		if rec.RequiresReconnect {
			continue
		}
		// Skip pairs attempted within the last sweep interval so a
		// short interval does not hammer the same broken connection.
		if last, ok := s.orchestrator.LastAttempt(rec.UserID, rec.Provider); ok {
			if !last.Successful && time.Since(last.At) < s.interval {
				continue
			}
		}
		res := s.orchestrator.Attempt(ctx, rec.UserID, rec.Provider)
		s.log.Debug("Recovery attempt finished",
			"user", rec.UserID, "provider", rec.Provider,
			"strategy", res.Strategy, "successful", res.Successful)
	}
}
