package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Health.ProbeTimeout == 0 {
		cfg.Health.ProbeTimeout = 10 * time.Second
	}
	if cfg.Health.ProbesPerMinute == 0 {
		cfg.Health.ProbesPerMinute = 6
	}
	if cfg.Health.FreshnessWindow == 0 {
		cfg.Health.FreshnessWindow = 5 * time.Minute
	}
	if cfg.Health.RecentSuccessSpan == 0 {
		cfg.Health.RecentSuccessSpan = time.Hour
	}
	if cfg.Refresh.ProactiveThreshold == 0 {
		cfg.Refresh.ProactiveThreshold = 15 * time.Minute
	}
	if cfg.Refresh.LockWait == 0 {
		cfg.Refresh.LockWait = 5 * time.Second
	}
	if cfg.Refresh.LockTTL == 0 {
		cfg.Refresh.LockTTL = 30 * time.Second
	}
	if cfg.Refresh.SweepInterval == 0 {
		cfg.Refresh.SweepInterval = 5 * time.Minute
	}
	if cfg.Recovery.SweepInterval == 0 {
		cfg.Recovery.SweepInterval = 2 * time.Minute
	}
	if cfg.Recovery.RetryBatch == 0 {
		cfg.Recovery.RetryBatch = 10
	}
	if cfg.Recovery.RetryCooldown == 0 {
		cfg.Recovery.RetryCooldown = 5 * time.Minute
	}
	if cfg.Recovery.MaxRetryCount == 0 {
		cfg.Recovery.MaxRetryCount = 5
	}
}
