// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

/*
Package services provides suture.Service wrappers for components that do not
implement Serve themselves.

HTTPServerService translates http.Server's ListenAndServe/Shutdown pair into
a context-aware Serve with a bounded graceful shutdown.

CheckpointService runs DuckDB CHECKPOINT on a ticker. It never fails the
tree: a failed checkpoint is logged and retried on the next tick.

The ingestion supervisor and the live feed hub implement suture.Service
directly and are added to the tree without a wrapper.
*/
package services
