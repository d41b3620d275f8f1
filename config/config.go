package config

import (
	"fmt"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
	"os"
	"time"
)

const envPrefix = "TIERCACHE_"

// Reference limits of the safe reload controller.
const (
	DefaultMaxReloadAttempts = 2
	DefaultMinReloadInterval = 30 * time.Second
	DefaultOnlineGrace       = 5 * time.Second
)

const (
	defaultShards            = 64
	defaultCleanupInterval   = 30 * time.Minute
	defaultTelemetryInterval = time.Minute
	defaultSignalsPerSec     = 100
	defaultSnapshotKey       = "__tiercache_memory_snapshot__"
	defaultStateKey          = "__tiercache_network_state__"
	defaultLocalPath         = "tiercache.db"
	defaultCompressMinBytes  = 1024
)

var (
	defaultNetworkKeywords  = []string{"network", "connection", "unavailable"}
	defaultExcludedPatterns = []string{
		"chunkloaderror",
		"loading chunk",
		"loading css chunk",
		"failed to fetch dynamically imported module",
	}
)

// Default returns a configuration with every subsystem enabled and the reference limits.
func Default() *Cache {
	cfg := &Cache{
		Cleanup:    &CleanupCfg{OnClose: true},
		Stabilizer: &StabilizerCfg{PersistState: true},
	}
	cfg.AdjustConfig()
	return cfg
}

// AdjustConfig fills zero values with defaults. It is idempotent.
func (cfg *Cache) AdjustConfig() {
	if cfg.Memory.Shards <= 0 {
		cfg.Memory.Shards = defaultShards
	}

	if cfg.Session.Backend == "" {
		cfg.Session.Backend = BackendFile
	}
	if cfg.Local.Backend == "" {
		cfg.Local.Backend = BackendSQLite
	}
	if cfg.Local.Backend == BackendSQLite && cfg.Local.Path == "" {
		cfg.Local.Path = defaultLocalPath
	}

	if cfg.Snapshot.Tier == "" {
		cfg.Snapshot.Tier = TierSession
	}
	if cfg.Snapshot.Key == "" {
		cfg.Snapshot.Key = defaultSnapshotKey
	}

	if cfg.Compression.Enabled() && cfg.Compression.MinBytes <= 0 {
		cfg.Compression.MinBytes = defaultCompressMinBytes
	}

	if cfg.Cleanup.Enabled() && cfg.Cleanup.Interval <= 0 {
		cfg.Cleanup.Interval = defaultCleanupInterval
	}

	if cfg.Telemetry.Enabled() && cfg.Telemetry.Interval <= 0 {
		cfg.Telemetry.Interval = defaultTelemetryInterval
	}

	if !cfg.Stabilizer.Enabled() {
		cfg.Stabilizer = &StabilizerCfg{}
	}
	s := cfg.Stabilizer
	if s.MaxReloadAttempts <= 0 {
		s.MaxReloadAttempts = DefaultMaxReloadAttempts
	}
	if s.MinReloadInterval <= 0 {
		s.MinReloadInterval = DefaultMinReloadInterval
	}
	if s.OnlineGrace <= 0 {
		s.OnlineGrace = DefaultOnlineGrace
	}
	if s.SignalsPerSec <= 0 {
		s.SignalsPerSec = defaultSignalsPerSec
	}
	if len(s.NetworkKeywords) == 0 {
		s.NetworkKeywords = append([]string(nil), defaultNetworkKeywords...)
	}
	if len(s.ExcludedPatterns) == 0 {
		s.ExcludedPatterns = append([]string(nil), defaultExcludedPatterns...)
	}
	if s.StateKey == "" {
		s.StateKey = defaultStateKey
	}
}

// Validate reports configuration values AdjustConfig cannot repair.
func (cfg *Cache) Validate() error {
	for name, tier := range map[TierName]TierCfg{TierSession: cfg.Session, TierLocal: cfg.Local} {
		switch tier.Backend {
		case BackendMemory, BackendFile:
		case BackendSQLite:
			if tier.Path == "" {
				return fmt.Errorf("%s tier: sqlite backend requires a path", name)
			}
		default:
			return fmt.Errorf("%s tier: unknown backend %q", name, tier.Backend)
		}
		if tier.QuotaBytes < 0 {
			return fmt.Errorf("%s tier: negative quota %d", name, tier.QuotaBytes)
		}
	}
	if cfg.Snapshot.Tier != TierSession && cfg.Snapshot.Tier != TierLocal {
		return fmt.Errorf("snapshot: unknown tier %q", cfg.Snapshot.Tier)
	}
	return nil
}

// ParseEnv applies TIERCACHE_* environment overrides on top of cfg.
func ParseEnv(cfg *Cache) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func LoadConfig(path string) (*Cache, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config yaml file %s: %w", path, err)
	}

	cfg := &Cache{}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml from %s: %w", path, err)
	}
	if err = ParseEnv(cfg); err != nil {
		return nil, err
	}
	cfg.AdjustConfig()

	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}
	return cfg, nil
}
