// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package projector

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/statusphere/internal/logging"
	"github.com/tomtom215/statusphere/internal/metrics"
	"github.com/tomtom215/statusphere/internal/models"
)

// BreakerName labels the store write circuit breaker in logs and metrics.
const BreakerName = "store-writes"

// Store is the subset of the database the projector mutates.
type Store interface {
	InsertOrReplace(ctx context.Context, rec *models.StatusRecord) error
	DeleteStatus(ctx context.Context, uri string) error
}

// StorageError reports a dropped mutation. Err is the database error or a
// gobreaker rejection when the breaker is open.
type StorageError struct {
	Op  string // "upsert" or "delete"
	URI string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.URI, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Config tunes the write breaker.
type Config struct {
	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
}

// DefaultConfig returns the production breaker settings.
func DefaultConfig() Config {
	return Config{FailureThreshold: 5, OpenTimeout: 30 * time.Second}
}

// Listener observes mutations after they are committed.
type Listener interface {
	StatusUpserted(rec *models.StatusRecord)
	StatusDeleted(uri string)
}

// Option configures optional Projector dependencies.
type Option func(*Projector)

// WithListener notifies l after every successful write. l must not block.
func WithListener(l Listener) Option {
	return func(p *Projector) {
		p.listener = l
	}
}

// Projector applies validated mutations to the store. It keeps no state
// beyond the store handle and the breaker; retries are never attempted.
type Projector struct {
	store    Store
	cb       *gobreaker.CircuitBreaker[struct{}]
	listener Listener
}

// New creates a projector over store.
func New(store Store, cfg Config, opts ...Option) *Projector {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultConfig().OpenTimeout
	}

	metrics.CircuitBreakerState.WithLabelValues(BreakerName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        BreakerName,
		MaxRequests: 1, // one trial write in half-open state
		Timeout:     cfg.OpenTimeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			shouldTrip := counts.ConsecutiveFailures >= cfg.FailureThreshold
			if shouldTrip {
				logging.Warn().Uint32("consecutive_failures", counts.ConsecutiveFailures).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		// A cancelled write says nothing about database health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	p := &Projector{store: store, cb: cb}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Upsert writes or replaces the row keyed by rec.URI.
func (p *Projector) Upsert(ctx context.Context, rec *models.StatusRecord) error {
	err := p.execute("upsert", rec.URI, func() error {
		return p.store.InsertOrReplace(ctx, rec)
	})
	if err == nil && p.listener != nil {
		p.listener.StatusUpserted(rec)
	}
	return err
}

// Delete removes the row for uri. An absent row is not an error.
func (p *Projector) Delete(ctx context.Context, uri string) error {
	err := p.execute("delete", uri, func() error {
		return p.store.DeleteStatus(ctx, uri)
	})
	if err == nil {
		metrics.IngestRecordsDeleted.Inc()
		if p.listener != nil {
			p.listener.StatusDeleted(uri)
		}
	}
	return err
}

// BreakerState reports the write breaker state for health checks.
func (p *Projector) BreakerState() string {
	return stateToString(p.cb.State())
}

func (p *Projector) execute(op, uri string, fn func() error) error {
	start := time.Now()
	_, err := p.cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	metrics.RecordStoreWrite(op, time.Since(start), err)

	if err == nil {
		metrics.CircuitBreakerRequests.WithLabelValues(BreakerName, "success").Inc()
		return nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.CircuitBreakerRequests.WithLabelValues(BreakerName, "rejected").Inc()
	} else {
		metrics.CircuitBreakerRequests.WithLabelValues(BreakerName, "failure").Inc()
	}
	return &StorageError{Op: op, URI: uri, Err: err}
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
