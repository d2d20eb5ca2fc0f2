// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/statusphere/internal/middleware"
)

// compressionLevel is the gzip level for JSON list responses.
const compressionLevel = 5

// Router wires handlers and middleware into a chi router.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil middleware factory uses defaults.
func NewRouter(handler *Handler, chiMw *ChiMiddleware) *Router {
	if chiMw == nil {
		chiMw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: chiMw}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered
	r.Use(RequestLogging())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).MethodNotAllowed()
	})

	// ========================
	// Health Endpoints
	// ========================
	r.Route("/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
	})

	// ========================
	// Query Endpoints
	// ========================
	r.Route("/api/v1/statuses", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())

		r.Group(func(r chi.Router) {
			r.Use(middleware.PrometheusMetrics)
			r.Use(chimiddleware.Compress(compressionLevel, "application/json"))

			r.Get("/recent", router.handler.Recent)
			r.Get("/latest", router.handler.Latest)
			r.Get("/popular", router.handler.Popular)
		})

		// Upgraded connections bypass compression and request metrics.
		r.Get("/live", router.handler.Live)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
