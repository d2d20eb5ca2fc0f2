// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package config

import (
	"fmt"
	"strings"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateJetstream(); err != nil {
		return err
	}

	if err := c.validateIngest(); err != nil {
		return err
	}

	if err := c.validateCursor(); err != nil {
		return err
	}

	if err := c.validateBackfill(); err != nil {
		return err
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateJetstream() error {
	if c.Jetstream.URL == "" {
		return fmt.Errorf("JETSTREAM_URL is required")
	}
	if err := validateWebSocketURL(c.Jetstream.URL, "JETSTREAM_URL"); err != nil {
		return fmt.Errorf("JETSTREAM_URL is invalid: %w", err)
	}
	if len(c.Jetstream.WantedCollections) == 0 {
		return fmt.Errorf("JETSTREAM_WANTED_COLLECTIONS must name at least one collection")
	}
	if c.Jetstream.HandshakeTimeout <= 0 {
		return fmt.Errorf("JETSTREAM_HANDSHAKE_TIMEOUT must be positive, got %v", c.Jetstream.HandshakeTimeout)
	}
	if c.Jetstream.PingInterval <= 0 {
		return fmt.Errorf("JETSTREAM_PING_INTERVAL must be positive, got %v", c.Jetstream.PingInterval)
	}
	return nil
}

func (c *Config) validateIngest() error {
	if c.Ingest.BaseDelay <= 0 {
		return fmt.Errorf("INGEST_BASE_DELAY must be positive, got %v", c.Ingest.BaseDelay)
	}
	if c.Ingest.MaxDelay < c.Ingest.BaseDelay {
		return fmt.Errorf("INGEST_MAX_DELAY (%v) must not be less than INGEST_BASE_DELAY (%v)",
			c.Ingest.MaxDelay, c.Ingest.BaseDelay)
	}
	if c.Ingest.MaxAttempts < 1 {
		return fmt.Errorf("INGEST_MAX_ATTEMPTS must be at least 1, got %d", c.Ingest.MaxAttempts)
	}
	if c.Ingest.CursorFlushInterval <= 0 {
		return fmt.Errorf("INGEST_CURSOR_FLUSH_INTERVAL must be positive, got %v", c.Ingest.CursorFlushInterval)
	}
	if c.Ingest.CursorRewind < 0 {
		return fmt.Errorf("INGEST_CURSOR_REWIND must not be negative, got %v", c.Ingest.CursorRewind)
	}
	return nil
}

func (c *Config) validateCursor() error {
	if !c.Cursor.Enabled || c.Cursor.InMemory {
		return nil
	}
	if c.Cursor.Path == "" {
		return fmt.Errorf("CURSOR_PATH is required when CURSOR_ENABLED=true")
	}
	return nil
}

func (c *Config) validateBackfill() error {
	if !c.Backfill.Enabled {
		return nil
	}
	if err := validateHTTPURL(c.Backfill.RelayURL, "RELAY_URL"); err != nil {
		return fmt.Errorf("RELAY_URL is invalid: %w", err)
	}
	if err := validateHTTPURL(c.Backfill.PDSURL, "PDS_URL"); err != nil {
		return fmt.Errorf("PDS_URL is invalid: %w", err)
	}
	if c.Backfill.RequestsPerSecond <= 0 {
		return fmt.Errorf("BACKFILL_REQUESTS_PER_SECOND must be positive, got %v", c.Backfill.RequestsPerSecond)
	}
	if c.Backfill.PageLimit < 1 || c.Backfill.PageLimit > 100 {
		return fmt.Errorf("BACKFILL_PAGE_LIMIT must be between 1 and 100, got %d", c.Backfill.PageLimit)
	}
	if c.Backfill.MaxRepos < 0 {
		return fmt.Errorf("BACKFILL_MAX_REPOS must not be negative, got %d", c.Backfill.MaxRepos)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must not be negative, got %d", c.Database.Threads)
	}
	if c.Database.CheckpointInterval < 0 {
		return fmt.Errorf("DUCKDB_CHECKPOINT_INTERVAL must not be negative, got %v", c.Database.CheckpointInterval)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.API.DefaultPageSize < 1 {
		return fmt.Errorf("API_DEFAULT_PAGE_SIZE must be at least 1, got %d", c.API.DefaultPageSize)
	}
	if c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("API_MAX_PAGE_SIZE (%d) must not be less than API_DEFAULT_PAGE_SIZE (%d)",
			c.API.MaxPageSize, c.API.DefaultPageSize)
	}
	if c.API.PopularCacheTTL < 0 {
		return fmt.Errorf("API_POPULAR_CACHE_TTL must not be negative, got %v", c.API.PopularCacheTTL)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got %d", c.Security.RateLimitReqs)
	}
	if c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %v", c.Security.RateLimitWindow)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
