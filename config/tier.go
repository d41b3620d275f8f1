package config

// Backend selects a TierStore implementation.
type Backend string

const (
	// BackendMemory keeps the tier in a process-local map (tests, ephemeral hosts).
	BackendMemory Backend = "memory"
	// BackendFile stores one file per key under Dir.
	BackendFile Backend = "file"
	// BackendSQLite stores records in an SQLite database at Path.
	BackendSQLite Backend = "sqlite"
)

type MemoryCfg struct {
	// Shards is the number of independently locked segments of the memory tier.
	// Rounded up to a power of two.
	Shards int `yaml:"shards" env:"SHARDS"`
}

type TierCfg struct {
	// Backend picks the storage implementation. Defaults: session=file, local=sqlite.
	Backend Backend `yaml:"backend" env:"BACKEND"`

	// Dir is the root directory of a file backend.
	// For the session tier an empty Dir means a fresh directory under os.TempDir() per session.
	Dir string `yaml:"dir" env:"DIR"`

	// Path is the database file of an sqlite backend.
	Path string `yaml:"path" env:"PATH"`

	// QuotaBytes caps the total payload size kept by the tier.
	// Writes over the cap fail with a quota error. Zero means unbounded.
	QuotaBytes int64 `yaml:"quota_bytes" env:"QUOTA_BYTES"`

	// Ephemeral removes the tier's storage when the service is closed normally.
	// A safe reload does not close the service, so ephemeral data survives it.
	Ephemeral bool `yaml:"ephemeral" env:"EPHEMERAL"`
}

// TierName identifies one durable tier.
type TierName string

const (
	TierSession TierName = "session"
	TierLocal   TierName = "local"
)

type SnapshotCfg struct {
	// Tier is the durable tier the memory snapshot is written to before a safe reload.
	Tier TierName `yaml:"tier" env:"TIER"`

	// Key is the well-known key the snapshot record is stored under.
	Key string `yaml:"key" env:"KEY"`
}

// CompressionCfg
//   - Supported levels:
//     CompressNoCompression      = 0
//     CompressBestSpeed          = 1
//     CompressBestCompression    = 9
//     CompressDefaultCompression = -1 // gzip.DefaultCompression
//     CompressHuffmanOnly        = -2 // gzip.HuffmanOnly
type CompressionCfg struct {
	Level int `yaml:"level"`

	// MinBytes is the smallest encoded payload worth compressing.
	MinBytes int `yaml:"min_bytes"`
}

func (cfg *CompressionCfg) Enabled() bool {
	return cfg != nil
}
