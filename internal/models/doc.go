// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

/*
Package models defines data structures shared across the Statusphere indexer.

Key Components:

  - StatusRecord: the projected row held by the store (one per AT-URI)
  - StatusCount: one entry of the popularity ranking
  - JetstreamEvent / JetstreamCommit: the wire shape of Jetstream events
  - ListReposResponse / ListRecordsResponse: XRPC pages used by backfill

Models carry JSON tags for both the Jetstream wire format and the query API.
They hold no behaviour beyond small helpers; validation lives in the
validation package and persistence in the database package.
*/
package models
