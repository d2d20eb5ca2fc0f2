// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

// Package config loads and validates Statusphere configuration.
//
// Settings are layered with Koanf v2: struct defaults, then an optional
// YAML file (CONFIG_PATH, config.yaml or /etc/statusphere/config.yaml),
// then environment variables. Only mapped environment variables are read;
// see envMappings for the full list.
//
// Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Failed to load configuration")
//	}
//
// Example config.yaml:
//
//	jetstream:
//	  url: wss://jetstream2.us-east.bsky.network
//	ingest:
//	  max_attempts: 10
//	database:
//	  path: /data/statusphere.duckdb
//	backfill:
//	  enabled: true
package config
