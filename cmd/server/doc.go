// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

/*
Package main is the entry point for the Statusphere indexer.

Statusphere subscribes to a Jetstream relay for xyz.statusphere.status
records, validates and projects them into DuckDB, and serves the recent,
latest-per-author and popular views over a small JSON API.

# Application Architecture

	RootSupervisor ("statusphere")
	├── DataSupervisor ("data-layer")
	│   └── DuckDB checkpoint service
	├── IngestSupervisor ("ingest-layer")
	│   └── Jetstream ingestion supervisor
	│       └── Backfill (optional, runs before the first connection)
	└── APISupervisor ("api-layer")
	    ├── WebSocket Hub (live feed, optional)
	    └── HTTP Server

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and config files
 2. Logging: zerolog with JSON/console output modes
 3. Database: DuckDB with versioned migrations
 4. Projector: circuit-breaker guarded writes into the store
 5. Cursor store: Badger (optional)
 6. Backfill: relay/PDS bulk import (optional)
 7. Ingestion supervisor: Jetstream client with reconnect backoff
 8. HTTP Server: Chi router with middleware stack
 9. Supervisor Tree: Suture v4 process supervision

# Graceful Shutdown

SIGINT or SIGTERM cancels the root context. The tree stops the API layer,
the ingestion supervisor flushes its final cursor, and the database is closed
after the tree has returned.

# Configuration

See internal/config for every option. The most common ones:

	JETSTREAM_URL=wss://jetstream2.us-east.bsky.network
	DUCKDB_PATH=/data/statusphere.duckdb
	CURSOR_ENABLED=true
	BACKFILL_ENABLED=false
	HTTP_PORT=8080
	LOG_LEVEL=info
*/
package main
