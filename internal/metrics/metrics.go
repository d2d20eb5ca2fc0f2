// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion Metrics
	IngestEventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statusphere_ingest_events_received_total",
			Help: "Jetstream events received, by kind and commit operation",
		},
		[]string{"kind", "operation"}, // operation is "" for non-commit events
	)

	IngestRecordsAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statusphere_records_accepted_total",
			Help: "Status records that passed validation",
		},
		[]string{"source"}, // "jetstream", "backfill"
	)

	IngestRecordsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statusphere_records_rejected_total",
			Help: "Status records rejected by validation",
		},
		[]string{"source", "reason"},
	)

	IngestRecordsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "statusphere_records_deleted_total",
			Help: "Delete commits applied to the store",
		},
	)

	IngestReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "statusphere_ingest_reconnect_attempts_total",
			Help: "Reconnect attempts scheduled after a stream failure",
		},
	)

	IngestBackoffSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "statusphere_ingest_backoff_seconds",
			Help:    "Reconnect delays applied by the ingest supervisor",
			Buckets: []float64{1, 2, 4, 8, 16, 30, 60},
		},
	)

	IngestState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "statusphere_ingest_state",
			Help: "Ingest supervisor state (0=idle, 1=connecting, 2=streaming, 3=backoff, 4=failed)",
		},
	)

	IngestCursor = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "statusphere_ingest_cursor_microseconds",
			Help: "time_us of the last processed Jetstream event",
		},
	)

	// Store Metrics
	StoreWriteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "statusphere_store_write_duration_seconds",
			Help:    "Duration of store mutations in seconds",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		},
		[]string{"operation"}, // "upsert", "delete"
	)

	StoreWriteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statusphere_store_write_errors_total",
			Help: "Store mutations that failed and were dropped",
		},
		[]string{"operation"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "statusphere_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statusphere_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statusphere_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Backfill Metrics
	BackfillRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statusphere_backfill_requests_total",
			Help: "XRPC requests issued by backfill",
		},
		[]string{"endpoint", "result"},
	)

	BackfillReposProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "statusphere_backfill_repos_total",
			Help: "Repositories walked by backfill",
		},
	)

	// Live Feed Metrics
	LiveClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "statusphere_live_clients",
			Help: "Connected live feed WebSocket clients",
		},
	)

	LiveMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "statusphere_live_messages_dropped_total",
			Help: "Live feed messages dropped because the hub or a client buffer was full",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statusphere_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "statusphere_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordEventReceived counts one Jetstream event.
func RecordEventReceived(kind, operation string) {
	IngestEventsReceived.WithLabelValues(kind, operation).Inc()
}

// RecordAccepted counts one record admitted by validation.
func RecordAccepted(source string) {
	IngestRecordsAccepted.WithLabelValues(source).Inc()
}

// RecordRejected counts one record refused by validation.
func RecordRejected(source, reason string) {
	IngestRecordsRejected.WithLabelValues(source, reason).Inc()
}

// RecordReconnect counts a scheduled reconnect and its delay.
func RecordReconnect(delay time.Duration) {
	IngestReconnects.Inc()
	IngestBackoffSeconds.Observe(delay.Seconds())
}

// RecordStoreWrite records a store mutation metric
func RecordStoreWrite(operation string, duration time.Duration, err error) {
	StoreWriteDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		StoreWriteErrors.WithLabelValues(operation).Inc()
	}
}

// RecordBackfillRequest counts one backfill XRPC call.
func RecordBackfillRequest(endpoint string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	BackfillRequests.WithLabelValues(endpoint, result).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
