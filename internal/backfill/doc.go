// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

// Package backfill imports status records published before the indexer
// started listening.
//
// The run asks the relay which repositories hold xyz.statusphere.status
// records (com.atproto.sync.listReposByCollection), then pages through each
// repository's records on the PDS (com.atproto.repo.listRecords). Requests
// share one token-bucket limiter, 2 per second by default.
//
// Every record goes through the same validation and projection as live
// Jetstream events. A record whose AT-URI names another repository or
// collection is rejected, and the stored URI is rebuilt from the listed DID
// and record key.
//
// The Backfiller is an ingest.Preloader: the Jetstream supervisor runs it
// before connecting, then replays the stream from the moment it started.
// Live updates and deletes made during the backfill therefore land after
// the snapshot instead of being overwritten by it.
package backfill
