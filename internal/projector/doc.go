// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

// Package projector applies validated status mutations to the store.
//
// Writes are last-write-wins with no version check. A failed write is
// returned as *StorageError and the caller drops the event; nothing is
// retried because Jetstream cannot replay a single event on demand.
//
// All writes pass through a gobreaker circuit breaker named "store-writes".
// When DuckDB is wedged the breaker opens and writes fail fast instead of
// piling up behind a stuck connection.
//
// An optional Listener (WithListener) sees every committed write; the live
// feed hub uses it.
package projector
