// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/statusphere/internal/models"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/statusphere/config.yaml",
	"/etc/statusphere/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Jetstream: JetstreamConfig{
			URL:               "wss://jetstream2.us-east.bsky.network",
			WantedCollections: []string{models.StatusCollection},
			HandshakeTimeout:  10 * time.Second,
			PingInterval:      30 * time.Second,
		},
		Ingest: IngestConfig{
			BaseDelay:           1 * time.Second,
			MaxDelay:            30 * time.Second,
			MaxAttempts:         10,
			ResumeFromCursor:    true,
			CursorFlushInterval: 5 * time.Second,
			CursorRewind:        5 * time.Second,
		},
		Cursor: CursorConfig{
			Enabled:  true,
			Path:     "/data/cursor",
			InMemory: false,
		},
		Backfill: BackfillConfig{
			Enabled:           false, // opt-in, hammers the relay on first start
			RelayURL:          "https://relay1.us-east.bsky.network",
			PDSURL:            "https://bsky.social",
			RequestsPerSecond: 2,
			PageLimit:         100,
			MaxRepos:          0,
			Timeout:           30 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "/data/statusphere.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = use runtime.NumCPU()

			CheckpointInterval: 5 * time.Minute,
		},
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		API: APIConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
			PopularCacheTTL: 5 * time.Second,
			LiveFeed:        true,
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   1 * time.Minute,
			RateLimitDisabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any mapped setting
//
// Precedence is ENV > File > Defaults.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// JETSTREAM_URL -> jetstream.url
	// INGEST_MAX_ATTEMPTS -> ingest.max_attempts
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file found, or "" if none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"jetstream.wanted_collections",
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars always arrive as strings while the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Jetstream
	"jetstream_url":                "jetstream.url",
	"jetstream_wanted_collections": "jetstream.wanted_collections",
	"jetstream_handshake_timeout":  "jetstream.handshake_timeout",
	"jetstream_ping_interval":      "jetstream.ping_interval",

	// Ingest
	"ingest_base_delay":            "ingest.base_delay",
	"ingest_max_delay":             "ingest.max_delay",
	"ingest_max_attempts":          "ingest.max_attempts",
	"ingest_resume_from_cursor":    "ingest.resume_from_cursor",
	"ingest_cursor_flush_interval": "ingest.cursor_flush_interval",
	"ingest_cursor_rewind":         "ingest.cursor_rewind",

	// Cursor store
	"cursor_enabled":   "cursor.enabled",
	"cursor_path":      "cursor.path",
	"cursor_in_memory": "cursor.in_memory",

	// Backfill
	"backfill_enabled":             "backfill.enabled",
	"relay_url":                    "backfill.relay_url",
	"pds_url":                      "backfill.pds_url",
	"backfill_requests_per_second": "backfill.requests_per_second",
	"backfill_page_limit":          "backfill.page_limit",
	"backfill_max_repos":           "backfill.max_repos",
	"backfill_timeout":             "backfill.timeout",

	// Database
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	"duckdb_checkpoint_interval": "database.checkpoint_interval",

	// Server
	"http_host":        "server.host",
	"http_port":        "server.port",
	"server_timeout":   "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",

	// API
	"api_default_page_size": "api.default_page_size",
	"api_max_page_size":     "api.max_page_size",
	"api_popular_cache_ttl": "api.popular_cache_ttl",
	"api_live_feed":         "api.live_feed",

	// Security
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Supervisor
	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - JETSTREAM_URL -> jetstream.url
//   - DUCKDB_PATH -> database.path
//   - HTTP_PORT -> server.port
//   - LOG_LEVEL -> logging.level
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}

	// Unmapped keys are skipped so random environment variables never
	// pollute the config.
	return ""
}
