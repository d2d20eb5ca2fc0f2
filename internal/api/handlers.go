// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/statusphere/internal/cache"
	"github.com/tomtom215/statusphere/internal/config"
	"github.com/tomtom215/statusphere/internal/ingest"
	"github.com/tomtom215/statusphere/internal/models"
	"github.com/tomtom215/statusphere/internal/validation"
	ws "github.com/tomtom215/statusphere/internal/websocket"
)

// Store is the read side of the status store.
type Store interface {
	Recent(ctx context.Context, limit int) ([]models.StatusRecord, error)
	LatestPerAuthor(ctx context.Context, limit int) ([]models.StatusRecord, error)
	Popular(ctx context.Context, limit int) ([]models.StatusCount, error)
	CountStatuses(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// IngestStatus reports the ingestion supervisor's lifecycle.
type IngestStatus interface {
	State() ingest.State
	Attempt() int
	Err() error
}

// BreakerStatus reports the store write breaker.
type BreakerStatus interface {
	BreakerState() string
}

// Handler serves the read-only query API.
type Handler struct {
	store     Store
	ingest    IngestStatus
	breaker   BreakerStatus
	popular   *cache.Cache
	live      *ws.Hub
	origins   []string
	cfg       config.APIConfig
	startTime time.Time
}

// Option configures optional Handler dependencies.
type Option func(*Handler)

// WithIngestStatus reports ingestion state on /health.
func WithIngestStatus(s IngestStatus) Option {
	return func(h *Handler) { h.ingest = s }
}

// WithBreakerStatus reports the write breaker on /health.
func WithBreakerStatus(b BreakerStatus) Option {
	return func(h *Handler) { h.breaker = b }
}

// WithPopularCache serves popularity rankings from c.
func WithPopularCache(c *cache.Cache) Option {
	return func(h *Handler) { h.popular = c }
}

// WithLiveFeed serves committed mutations from hub over WebSocket.
// allowedOrigins follows the CORS list; "*" or an empty list admits any origin.
func WithLiveFeed(hub *ws.Hub, allowedOrigins []string) Option {
	return func(h *Handler) {
		h.live = hub
		h.origins = allowedOrigins
	}
}

// NewHandler creates the query API handler.
//
//	handler := api.NewHandler(db, cfg.API,
//	    api.WithIngestStatus(ingester),
//	    api.WithBreakerStatus(proj),
//	)
//	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(&cfg.Security)))
func NewHandler(store Store, cfg config.APIConfig, opts ...Option) *Handler {
	if cfg.DefaultPageSize < 1 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		cfg.MaxPageSize = cfg.DefaultPageSize
	}

	h := &Handler{
		store:     store,
		cfg:       cfg,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Recent lists the newest statuses by created_at.
//
// GET /api/v1/statuses/recent?limit=N
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	limit, ok := h.parseLimit(rw, r)
	if !ok {
		return
	}

	rows, err := h.store.Recent(r.Context(), limit)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.SuccessWithPagination(rows, pagination(len(rows), limit))
}

// Latest lists each author's newest status, newest authors first.
//
// GET /api/v1/statuses/latest?limit=N
func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	limit, ok := h.parseLimit(rw, r)
	if !ok {
		return
	}

	rows, err := h.store.LatestPerAuthor(r.Context(), limit)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.SuccessWithPagination(rows, pagination(len(rows), limit))
}

// Popular ranks statuses by how many records use them.
//
// GET /api/v1/statuses/popular?limit=N
func (h *Handler) Popular(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	limit, ok := h.parseLimit(rw, r)
	if !ok {
		return
	}

	key := cache.GenerateKey("popular", limit)
	if h.popular != nil {
		if cached, hit := h.popular.Get(key); hit {
			if rows, typed := cached.([]models.StatusCount); typed {
				rw.SuccessWithPagination(rows, pagination(len(rows), limit))
				return
			}
		}
	}

	rows, err := h.store.Popular(r.Context(), limit)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if h.popular != nil {
		h.popular.Set(key, rows)
	}
	rw.SuccessWithPagination(rows, pagination(len(rows), limit))
}

// parseLimit reads ?limit=, defaulting to DefaultPageSize and bounded by
// MaxPageSize. It writes the error response itself and reports false.
func (h *Handler) parseLimit(rw *ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return h.cfg.DefaultPageSize, true
	}

	limit, err := strconv.Atoi(raw)
	if err != nil {
		rw.ValidationError("limit must be an integer", map[string]interface{}{"field": "limit", "value": raw})
		return 0, false
	}

	if verr := validation.ValidateVar("limit", limit, fmt.Sprintf("min=1,max=%d", h.cfg.MaxPageSize)); verr != nil {
		rw.ValidationError(verr.Error(), verr.Details())
		return 0, false
	}
	return limit, true
}

func pagination(count, limit int) *PaginationMeta {
	return &PaginationMeta{Count: count, Limit: limit, HasMore: count >= limit}
}
