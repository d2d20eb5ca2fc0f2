// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

/*
Package middleware provides HTTP instrumentation shared by the query API.

PrometheusMetrics is chi-compatible and labels requests by route pattern
rather than raw path:

	r := chi.NewRouter()
	r.Use(middleware.PrometheusMetrics)
	r.Get("/api/v1/statuses/recent", h.Recent)

Requests that match no route are counted under "unmatched".
*/
package middleware
