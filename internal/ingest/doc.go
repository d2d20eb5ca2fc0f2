// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

// Package ingest drives the Jetstream consume loop.
//
// The Supervisor is an explicit state machine:
//
//	Idle ──Start──> Connecting ──handshake──> Streaming
//	                    ^                        │ stream error
//	                    │ delay elapsed          v
//	                    └─────────────────── Backoff ──attempts exhausted──> Failed
//
// Stop moves Streaming or Backoff to Idle. Reconnect delays follow
// min(BaseDelay * 2^(attempt-1), MaxDelay). The attempt counter resets only
// once a fresh connection delivers its first frame, so a server that accepts
// the handshake and immediately drops still exhausts the budget.
//
// Event dispatch:
//   - create/update: decode, validation.ValidateStatus, projector Upsert
//   - delete: projector Delete by AT-URI, no validation
//   - anything else: ignored
//
// Events are handled one at a time in arrival order. A rejected or
// unwritable event is logged and dropped; only transport failures reach the
// reconnect policy.
//
// A Preloader (the listRecords backfill) runs once in Connecting before the
// first dial. That connection replays from the saved cursor if there is
// one, else from the preload's start time, so the stream wins over the
// snapshot.
//
// Failed is terminal for the process lifetime. It is reported through the
// statusphere_ingest_state gauge and /health while the API keeps serving
// whatever the store holds.
package ingest
