// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"empty jetstream url", func(c *Config) { c.Jetstream.URL = "" }, "JETSTREAM_URL is required"},
		{"http jetstream url", func(c *Config) { c.Jetstream.URL = "http://example.com" }, "ws or wss"},
		{"no collections", func(c *Config) { c.Jetstream.WantedCollections = nil }, "JETSTREAM_WANTED_COLLECTIONS"},
		{"zero base delay", func(c *Config) { c.Ingest.BaseDelay = 0 }, "INGEST_BASE_DELAY"},
		{"max below base", func(c *Config) { c.Ingest.MaxDelay = 500 * time.Millisecond }, "INGEST_MAX_DELAY"},
		{"zero attempts", func(c *Config) { c.Ingest.MaxAttempts = 0 }, "INGEST_MAX_ATTEMPTS"},
		{"negative rewind", func(c *Config) { c.Ingest.CursorRewind = -time.Second }, "INGEST_CURSOR_REWIND"},
		{"cursor without path", func(c *Config) { c.Cursor.Path = "" }, "CURSOR_PATH"},
		{"in-memory cursor without path", func(c *Config) {
			c.Cursor.Path = ""
			c.Cursor.InMemory = true
		}, ""},
		{"backfill bad relay", func(c *Config) {
			c.Backfill.Enabled = true
			c.Backfill.RelayURL = "ftp://relay"
		}, "RELAY_URL"},
		{"backfill page limit", func(c *Config) {
			c.Backfill.Enabled = true
			c.Backfill.PageLimit = 500
		}, "BACKFILL_PAGE_LIMIT"},
		{"disabled backfill ignores urls", func(c *Config) { c.Backfill.RelayURL = "" }, ""},
		{"empty db path", func(c *Config) { c.Database.Path = "" }, "DUCKDB_PATH"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "HTTP_PORT"},
		{"max page below default", func(c *Config) { c.API.MaxPageSize = 10 }, "API_MAX_PAGE_SIZE"},
		{"zero rate limit", func(c *Config) { c.Security.RateLimitReqs = 0 }, "RATE_LIMIT_REQUESTS"},
		{"rate limit disabled", func(c *Config) {
			c.Security.RateLimitReqs = 0
			c.Security.RateLimitDisabled = true
		}, ""},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateHTTPURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://bsky.social", false},
		{"http://localhost:2583/", false},
		{"https://bsky.social/xrpc", true},
		{"https://bsky.social?x=1", true},
		{"wss://bsky.social", true},
		{"https://", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			err := validateHTTPURL(tt.url, "PDS_URL")
			if (err != nil) != tt.wantErr {
				t.Errorf("validateHTTPURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}
