// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

/*
Package supervisor provides process supervision for the indexer using suture v4.

# Overview

Long-running services are organized into three layers for failure isolation:

	RootSupervisor ("statusphere")
	├── DataSupervisor ("data-layer")
	│   └── CheckpointService (if DUCKDB_CHECKPOINT_INTERVAL > 0)
	├── IngestSupervisor ("ingest-layer")
	│   └── ingest.Supervisor ("ingest-supervisor")
	└── APISupervisor ("api-layer")
	    ├── websocket.Hub (if API_LIVE_FEED)
	    └── HTTPServerService

The Jetstream supervisor keeps its own reconnect policy. When it gives up
(Failed) or is stopped it returns suture.ErrDoNotRestart, so the tree does
not second-guess it; the API layer keeps serving and /health reports
"degraded". A backfill, when enabled, runs inside the Jetstream supervisor
before its first connection rather than as a sibling service.

# Logging

Supervisor events (service panics, restarts, backoff) go through
sutureslog to an slog.Logger backed by the zerolog adapter in
internal/logging.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFrom(&cfg.Supervisor))
	if err != nil {
	    return err
	}
	tree.AddDataService(services.NewCheckpointService(db, cfg.Database.CheckpointInterval))
	tree.AddIngestService(ingester)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	errCh := tree.ServeBackground(ctx)
*/
package supervisor
