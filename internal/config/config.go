// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package config

import (
	"time"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in defaults for every setting
//  2. Config File: Optional YAML config file (config.yaml or CONFIG_PATH)
//  3. Environment Variables: Override any mapped setting
//
// Configuration Categories:
//
//  1. Ingestion:
//     - Jetstream: upstream WebSocket endpoint and transport timeouts
//     - Ingest: reconnect policy and cursor checkpointing
//     - Cursor: Badger checkpoint store
//     - Backfill: bulk import from the relay and PDS before streaming starts
//
//  2. Infrastructure:
//     - Database: DuckDB path and resource limits
//     - Server: HTTP listener
//     - Supervisor: suture restart policy
//
//  3. API & Security:
//     - API: Pagination limits and query cache
//     - Security: CORS and rate limiting
//
//  4. Observability:
//     - Logging: Log level and output format
type Config struct {
	Jetstream  JetstreamConfig  `koanf:"jetstream"`
	Ingest     IngestConfig     `koanf:"ingest"`
	Cursor     CursorConfig     `koanf:"cursor"`
	Backfill   BackfillConfig   `koanf:"backfill"`
	Database   DatabaseConfig   `koanf:"database"`
	Server     ServerConfig     `koanf:"server"`
	API        APIConfig        `koanf:"api"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// JetstreamConfig holds the upstream subscription settings.
type JetstreamConfig struct {
	// URL is the Jetstream base address (ws or wss). The /subscribe path is
	// appended by the client.
	URL string `koanf:"url"`

	// WantedCollections filters the stream server-side.
	WantedCollections []string `koanf:"wanted_collections"`

	HandshakeTimeout time.Duration `koanf:"handshake_timeout"`

	// PingInterval is the keepalive period. The read deadline is twice this.
	PingInterval time.Duration `koanf:"ping_interval"`
}

// IngestConfig holds the ingestion supervisor's reconnect policy.
type IngestConfig struct {
	BaseDelay   time.Duration `koanf:"base_delay"`
	MaxDelay    time.Duration `koanf:"max_delay"`
	MaxAttempts int           `koanf:"max_attempts"`

	// ResumeFromCursor reconnects from the last checkpointed time_us.
	ResumeFromCursor bool `koanf:"resume_from_cursor"`

	// CursorFlushInterval is how often the processed cursor is persisted.
	CursorFlushInterval time.Duration `koanf:"cursor_flush_interval"`

	// CursorRewind is subtracted from the saved cursor on resume so that
	// events around the disconnect are replayed rather than skipped.
	CursorRewind time.Duration `koanf:"cursor_rewind"`
}

// CursorConfig holds the Badger checkpoint store settings.
type CursorConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// BackfillConfig holds the startup backfill settings.
type BackfillConfig struct {
	Enabled           bool          `koanf:"enabled"`
	RelayURL          string        `koanf:"relay_url"`
	PDSURL            string        `koanf:"pds_url"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	PageLimit         int           `koanf:"page_limit"`
	MaxRepos          int           `koanf:"max_repos"` // 0 = unlimited
	Timeout           time.Duration `koanf:"timeout"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = use NumCPU

	// CheckpointInterval is how often the WAL is folded into the database
	// file. Zero disables periodic checkpoints.
	CheckpointInterval time.Duration `koanf:"checkpoint_interval"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// APIConfig holds API pagination and caching settings.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`

	// PopularCacheTTL caches popularity rankings, the only aggregate query.
	// Zero disables the cache.
	PopularCacheTTL time.Duration `koanf:"popular_cache_ttl"`

	// LiveFeed serves committed mutations on /api/v1/statuses/live.
	LiveFeed bool `koanf:"live_feed"`
}

// SecurityConfig holds CORS and rate limiting settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller"`
}

// SupervisorConfig holds the suture restart policy.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// Load loads configuration using Koanf. See LoadWithKoanf.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
