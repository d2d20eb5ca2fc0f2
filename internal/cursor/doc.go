// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

// Package cursor checkpoints the Jetstream replay cursor.
//
// Jetstream events carry time_us, a microsecond timestamp that doubles as a
// replay cursor. The Tracker keeps the newest processed value in memory and
// the Store persists it to BadgerDB so a restarted indexer resumes where it
// stopped instead of missing the gap.
package cursor
