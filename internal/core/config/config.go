package config

import (
	"time"

	redisclient "github.com/vietddude/cloudlink/internal/infra/redis"
	"github.com/vietddude/cloudlink/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Health   HealthConfig       `yaml:"health"`
	Refresh  RefreshConfig      `yaml:"refresh"`
	Recovery RecoveryConfig     `yaml:"recovery"`
	Redis    redisclient.Config `yaml:"redis"`
	Logging  LoggingConfig      `yaml:"logging"`
	Database postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// HealthConfig tunes live validation and status consolidation.
type HealthConfig struct {
	ProbeTimeout      time.Duration `yaml:"probe_timeout"`
	ProbesPerMinute   int           `yaml:"probes_per_minute"`
	FreshnessWindow   time.Duration `yaml:"freshness_window"`
	RecentSuccessSpan time.Duration `yaml:"recent_success_span"`
}

// RefreshConfig tunes token refresh coordination.
type RefreshConfig struct {
	ProactiveThreshold time.Duration `yaml:"proactive_threshold"`
	LockWait           time.Duration `yaml:"lock_wait"`
	LockTTL            time.Duration `yaml:"lock_ttl"`
	SweepInterval      time.Duration `yaml:"sweep_interval"`
}

// RecoveryConfig tunes the automatic recovery worker.
type RecoveryConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
	RetryBatch    int           `yaml:"retry_batch"`
	RetryCooldown time.Duration `yaml:"retry_cooldown"`
	MaxRetryCount int           `yaml:"max_retry_count"`
}
