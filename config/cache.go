package config

// Cache groups configuration of all tiercache subsystems.
// Optional components are disabled by leaving their section nil.
type Cache struct {
	// SessionID names the current session. The session tier directory and the
	// persisted reload counter belong to it. Empty means a new random session;
	// a process restarted by a safe reload inherits it through TIERCACHE_SESSION_ID.
	SessionID string `yaml:"session_id" env:"SESSION_ID"`

	// Memory configures the in-process TTL cache.
	Memory MemoryCfg `yaml:"memory" envPrefix:"MEMORY_"`

	// Session configures the session-scoped durable tier.
	// It survives a safe reload of the process but not a new session.
	Session TierCfg `yaml:"session" envPrefix:"SESSION_"`

	// Local configures the long-lived durable tier.
	Local TierCfg `yaml:"local" envPrefix:"LOCAL_"`

	// Snapshot configures where the memory tier is persisted before a safe reload.
	Snapshot SnapshotCfg `yaml:"snapshot" envPrefix:"SNAPSHOT_"`

	// Compression enables gzip for durable payloads.
	// If nil, payloads are stored as plain JSON.
	Compression *CompressionCfg `yaml:"compression"`

	// Cleanup configures the periodic sweep of expired memory entries.
	// If nil, expired entries are only skipped on read and never physically purged
	// unless Cleanup() is called by hand.
	Cleanup *CleanupCfg `yaml:"cleanup"`

	// Stabilizer configures the network error classifier and the safe reload limiter.
	// If nil, a stabilizer with default limits is still built (it is the crash-loop guard).
	Stabilizer *StabilizerCfg `yaml:"stabilizer"`

	// Telemetry enables periodic stats logs.
	// If nil, no stats are logged.
	Telemetry *TelemetryCfg `yaml:"telemetry"`
}
