// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/statusphere/internal/ingest"
	"github.com/tomtom215/statusphere/internal/logging"
)

// Health status values.
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
	HealthDown     = "down"
)

// healthCheckTimeout bounds the database check.
const healthCheckTimeout = 2 * time.Second

// HealthStatus is the /health payload.
type HealthStatus struct {
	Status            string  `json:"status"`
	DatabaseConnected bool    `json:"database_connected"`
	StatusCount       int64   `json:"status_count"`
	IngestState       string  `json:"ingest_state,omitempty"`
	IngestAttempt     int     `json:"ingest_attempt"`
	IngestError       string  `json:"ingest_error,omitempty"`
	CircuitBreaker    string  `json:"circuit_breaker,omitempty"`
	Uptime            float64 `json:"uptime_seconds"`
}

// Health reports the indexer's condition.
//
// The response is 200 while the store answers, with status "degraded" when
// ingestion has given up or the write breaker is open, and 503 with status
// "down" when the store cannot be reached.
//
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	health := HealthStatus{
		Status: HealthOK,
		Uptime: time.Since(h.startTime).Seconds(),
	}

	if err := h.store.Ping(ctx); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Health check: database unreachable")
		health.Status = HealthDown
	} else {
		health.DatabaseConnected = true
		if n, err := h.store.CountStatuses(ctx); err == nil {
			health.StatusCount = n
		}
	}

	if h.ingest != nil {
		state := h.ingest.State()
		health.IngestState = state.String()
		health.IngestAttempt = h.ingest.Attempt()
		if err := h.ingest.Err(); err != nil {
			health.IngestError = err.Error()
		}
		if state == ingest.StateFailed && health.Status == HealthOK {
			health.Status = HealthDegraded
		}
	}

	if h.breaker != nil {
		health.CircuitBreaker = h.breaker.BreakerState()
		if health.CircuitBreaker == "open" && health.Status == HealthOK {
			health.Status = HealthDegraded
		}
	}

	statusCode := http.StatusOK
	if !health.DatabaseConnected {
		statusCode = http.StatusServiceUnavailable
	}
	NewResponseWriter(w, r).SuccessWithStatus(statusCode, health)
}

// HealthLive answers 200 whenever the process can serve HTTP.
//
// GET /health/live
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":          true,
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	})
}
