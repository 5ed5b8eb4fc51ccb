// Package control wires storage, coordination backends and the
// connection health components into one runnable service.
package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"

	"github.com/vietddude/cloudlink/internal/connection/classify"
	"github.com/vietddude/cloudlink/internal/connection/health"
	"github.com/vietddude/cloudlink/internal/connection/notify"
	"github.com/vietddude/cloudlink/internal/connection/ratelimit"
	"github.com/vietddude/cloudlink/internal/connection/recovery"
	"github.com/vietddude/cloudlink/internal/connection/refresh"
	"github.com/vietddude/cloudlink/internal/core/config"
	"github.com/vietddude/cloudlink/internal/core/domain"
	"github.com/vietddude/cloudlink/internal/core/worker"
	"github.com/vietddude/cloudlink/internal/infra/provider"
	redisclient "github.com/vietddude/cloudlink/internal/infra/redis"
	"github.com/vietddude/cloudlink/internal/infra/storage"
	"github.com/vietddude/cloudlink/internal/infra/storage/memory"
	"github.com/vietddude/cloudlink/internal/infra/storage/postgres"
)

// Manager is the main application struct that owns the component
// lifecycle.
type Manager struct {
	cfg           config.AppConfig
	tokens        storage.TokenRepository
	records       storage.HealthRepository
	queue         storage.PendingOperationQueue
	resolver      *health.Resolver
	coordinator   *refresh.Coordinator
	orchestrator  *recovery.Orchestrator
	throttler     *notify.Throttler
	healthServer  *health.Server
	refreshSweep  *worker.RefreshSweeper
	recoverySweep *worker.RecoverySweeper
	db            *postgres.DB
	redisClient   *redisclient.Client
	log           *slog.Logger
}

// NewManager creates a Manager with all dependencies initialized.
// Providers must already be registered; the registry decides which
// cloud storage backends the service can probe and refresh. adminSink
// receives escalations about repeated notification delivery failures.
func NewManager(cfg config.AppConfig, providers *provider.Registry, sink, adminSink notify.Sink) (*Manager, error) {
	log := slog.Default()

	// 1. Storage: postgres when configured, memory otherwise.
	var (
		tokens  storage.TokenRepository
		records storage.HealthRepository
		db      *postgres.DB
	)
	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}

		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		tokens = postgres.NewTokenRepo(db)
		records = postgres.NewHealthRepo(db)
		log.Info("Using PostgreSQL storage")
	} else {
		tokens = memory.NewTokenStore()
		records = memory.NewHealthStore()
		log.Info("Using Memory storage")
	}

	// 2. Coordination backends: redis when configured, memory otherwise.
	// Memory backends are process-local; the cross-process guarantees
	// only hold with redis.
	var (
		lockStore   refresh.SharedLock
		counter     ratelimit.SharedCounter
		cooldowns   notify.CooldownStore
		queue       storage.PendingOperationQueue
		redisClient *redisclient.Client
	)
	if cfg.Redis.URL != "" {
		var err error
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		lockStore = redisclient.NewLockStore(redisClient)
		counter = redisclient.NewCounterStore(redisClient)
		cooldowns = redisclient.NewCooldownStore(redisClient)
		queue = redisclient.NewOperationQueue(redisClient)
		log.Info("Using Redis coordination")
	} else {
		lockStore = memory.NewLockStore()
		counter = memory.NewCounterStore()
		cooldowns = memory.NewCooldownStore()
		queue = memory.NewOperationQueue()
		log.Info("Using Memory coordination")
	}

	// 3. Connection health components.
	chain := classify.NewChain()

	limits := ratelimit.DefaultLimits
	if cfg.Health.ProbesPerMinute > 0 {
		limits = map[ratelimit.OperationClass]ratelimit.Limit{
			ratelimit.OpLiveValidation:   {Max: int64(cfg.Health.ProbesPerMinute), Window: ratelimit.DefaultLimits[ratelimit.OpLiveValidation].Window},
			ratelimit.OpTokenRefresh:     ratelimit.DefaultLimits[ratelimit.OpTokenRefresh],
			ratelimit.OpConnectivityTest: {Max: int64(cfg.Health.ProbesPerMinute), Window: ratelimit.DefaultLimits[ratelimit.OpConnectivityTest].Window},
		}
	}
	limiter := ratelimit.NewLimiter(counter, limits)

	validator := health.NewValidator(providers, chain, cfg.Health.ProbeTimeout)
	resolver := health.NewResolver(records, tokens, validator, limiter, health.ResolverConfig{
		FreshnessWindow:   cfg.Health.FreshnessWindow,
		RecentSuccessSpan: cfg.Health.RecentSuccessSpan,
	}, log)

	coordinator := refresh.NewCoordinator(tokens, providers, chain, lockStore, limiter, refresh.Config{
		ProactiveThreshold: cfg.Refresh.ProactiveThreshold,
		LockWait:           cfg.Refresh.LockWait,
		LockTTL:            cfg.Refresh.LockTTL,
	}, log)

	if sink == nil {
		sink = &LogSink{}
	}
	if adminSink == nil {
		// Escalations still surface in the logs when no admin channel
		// is configured.
		adminSink = &LogSink{}
	}
	throttler := notify.NewThrottler(sink, adminSink, cooldowns, log)

	orchestrator := recovery.NewOrchestrator(records, queue, validator, coordinator, throttler, limiter, recovery.Config{
		RetryBatch:    cfg.Recovery.RetryBatch,
		RetryCooldown: cfg.Recovery.RetryCooldown,
		MaxRetryCount: cfg.Recovery.MaxRetryCount,
	}, log)

	// 4. Background workers and HTTP surface.
	refreshSweep := worker.NewRefreshSweeper(tokens, coordinator, cfg.Refresh.ProactiveThreshold, cfg.Refresh.SweepInterval, log)
	recoverySweep := worker.NewRecoverySweeper(records, orchestrator, cfg.Recovery.SweepInterval, cfg.Recovery.RetryBatch*5, log)
	healthServer := health.NewServer(records, resolver, cfg.Server.Port)

	return &Manager{
		cfg:           cfg,
		tokens:        tokens,
		records:       records,
		queue:         queue,
		resolver:      resolver,
		coordinator:   coordinator,
		orchestrator:  orchestrator,
		throttler:     throttler,
		healthServer:  healthServer,
		refreshSweep:  refreshSweep,
		recoverySweep: recoverySweep,
		db:            db,
		redisClient:   redisClient,
		log:           log,
	}, nil
}

// Start starts the health server and background sweepers.
func (m *Manager) Start(ctx context.Context) error {
	go func() {
		if err := m.healthServer.Start(); err != nil {
			m.log.Error("Health server failed", "error", err)
		}
	}()

	go m.refreshSweep.Start(ctx)
	go m.recoverySweep.Start(ctx)

	return nil
}

// Stop stops the manager.
func (m *Manager) Stop(ctx context.Context) error {
	m.log.Info("Stopping manager...")

	if m.redisClient != nil {
		if err := m.redisClient.Close(); err != nil {
			m.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if m.db != nil {
		if err := m.db.Close(); err != nil {
			m.log.Warn("Failed to close database", "error", err)
		}
	}

	return m.healthServer.Stop(ctx)
}

// Resolver exposes the consolidated status resolver.
func (m *Manager) Resolver() *health.Resolver { return m.resolver }

// Coordinator exposes the refresh coordinator.
func (m *Manager) Coordinator() *refresh.Coordinator { return m.coordinator }

// Orchestrator exposes the recovery orchestrator.
func (m *Manager) Orchestrator() *recovery.Orchestrator { return m.orchestrator }

// Disconnect removes the pair's token, resets its health record to
// not_connected and lifts notification cool-downs. This is the explicit
// user action that clears the intervention flag.
func (m *Manager) Disconnect(ctx context.Context, userID, providerName string) error {
	if err := m.tokens.Clear(ctx, userID, providerName); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}

	rec, err := m.records.Get(ctx, userID, providerName)
	if err != nil {
		return fmt.Errorf("failed to load health record: %w", err)
	}
	if rec != nil {
		rec.Status = domain.StatusDisconnected
		rec.ConsolidatedStatus = domain.ConsolidatedNotConnected
		rec.RequiresReconnect = false
		rec.ConsecutiveFailures = 0
		rec.LastErrorType = ""
		rec.LastErrorMessage = ""
		if err := m.records.Upsert(ctx, rec); err != nil {
			return fmt.Errorf("failed to reset health record: %w", err)
		}
	}

	m.throttler.Clear(ctx, userID, providerName, "")
	m.log.Info("Connection disconnected", "user", userID, "provider", providerName)
	return nil
}

// LogSink implements notify.Sink by logging the notification. Used when
// no delivery transport is configured.
type LogSink struct{}

func (s *LogSink) Send(_ context.Context, n *domain.Notification) error {
	slog.Info("[NOTIFY]", "user", n.UserID, "provider", n.Provider, "type", n.Type, "payload", n.Payload)
	return nil
}
