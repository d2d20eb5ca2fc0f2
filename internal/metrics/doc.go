// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

// Package metrics defines the Prometheus collectors for Statusphere.
//
// All collectors are registered on the default registry through promauto
// and exposed by the API at /metrics. The ingest state gauge is the
// operator-facing signal for a halted ingester: a value of 4 means reconnect
// attempts were exhausted and the store is serving stale data.
package metrics
