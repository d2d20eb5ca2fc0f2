// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/statusphere/internal/metrics"
)

func newTestRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Get("/things/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/boom", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.WriteHeader(http.StatusOK) // superfluous, must not change the label
	})
	r.Get("/implicit", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok")) //nolint:errcheck // test handler
	})
	return r
}

func TestPrometheusMetrics(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		name     string
		path     string
		endpoint string
		code     string
	}{
		{"route pattern label", "/things/abc", "/things/{id}", "200"},
		{"first status wins", "/boom", "/boom", "500"},
		{"implicit 200", "/implicit", "/implicit", "200"},
		{"unmatched path", "/nope/xyz", unmatchedRoute, "404"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, tt.endpoint, tt.code)
			before := testutil.ToFloat64(counter)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if got := testutil.ToFloat64(counter) - before; got != 1 {
				t.Errorf("counter delta for %s %s = %v, want 1", tt.endpoint, tt.code, got)
			}
		})
	}
}

func TestPrometheusMetrics_WithoutRouter(t *testing.T) {
	counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodPost, unmatchedRoute, "201")
	before := testutil.ToFloat64(counter)

	handler := PrometheusMetrics(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/raw", nil))

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("counter delta = %v, want 1", got)
	}
}
