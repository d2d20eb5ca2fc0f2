// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

/*
Package api serves the read-only HTTP query API over the status store.

Endpoints:

	GET /api/v1/statuses/recent?limit=N    newest statuses by created_at
	GET /api/v1/statuses/latest?limit=N    each author's newest status
	GET /api/v1/statuses/popular?limit=N   statuses ranked by use count
	GET /api/v1/statuses/live              WebSocket feed of committed writes
	GET /health                            ok, degraded or down
	GET /health/live                       liveness check
	GET /metrics                           Prometheus exposition

limit defaults to the configured DefaultPageSize and must lie in
[1, MaxPageSize]; anything else is a 400 VALIDATION_FAILED.

Every JSON response uses one envelope:

	{
	  "success": true,
	  "data": [...],
	  "meta": {"request_id": "...", "timestamp": "...", "duration_ms": 1,
	           "pagination": {"count": 20, "limit": 20, "has_more": true}}
	}

Errors replace data with {"code": "...", "message": "...", "details": ...}.

Middleware (go-chi): request ids tied to the logging context, real IP,
panic recovery, CORS, per-IP rate limiting (httprate), security headers,
Prometheus instrumentation and gzip for query responses.

Usage Example:

	handler := api.NewHandler(db, cfg.API, api.WithIngestStatus(ingester))
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(&cfg.Security)))
	srv := &http.Server{Addr: ":8080", Handler: router.SetupChi()}
*/
package api
