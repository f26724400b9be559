// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New(); Load() layers file and env on top.
// - External errors are wrapped via this package's sentinel kinds.
package config

// Store backend names accepted by the Store field.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Store selects the persistence backend: memory, file, or sqlite.
	Store string `koanf:"store"`

	// DataDir is the root directory for the file store.
	DataDir string `koanf:"data_dir"`

	// SQLitePath is the database path for the sqlite store.
	SQLitePath string `koanf:"sqlite_path"`

	// EmbeddingDim is the required face embedding dimension D.
	EmbeddingDim int `koanf:"embedding_dim"`

	// Tolerance is the default match distance threshold; lower is stricter.
	Tolerance float64 `koanf:"tolerance"`

	// MaxPerIdentity bounds embeddings kept per identity by optimize.
	MaxPerIdentity int `koanf:"max_per_identity"`

	// HistoryDaysBack is the default trailing window for history lookups.
	HistoryDaysBack int `koanf:"history_days_back"`

	// TopN bounds the top-identities ranking in statistics.
	TopN int `koanf:"top_n"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":8080",
		Store:           StoreMemory,
		DataDir:         "data/attendance",
		SQLitePath:      "data/rollcall.db",
		EmbeddingDim:    128,
		Tolerance:       0.4,
		MaxPerIdentity:  10,
		HistoryDaysBack: 30,
		TopN:            10,
	}
}
