// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package services

import (
	"context"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/statusphere/internal/logging"
)

// Checkpointer folds the write-ahead log into the database file.
type Checkpointer interface {
	Checkpoint(ctx context.Context) error
}

// CheckpointService checkpoints the store periodically so the WAL stays small
// and a restart does not replay hours of upserts.
type CheckpointService struct {
	db       Checkpointer
	interval time.Duration
	name     string
}

// NewCheckpointService creates the service. A non-positive interval makes
// Serve return immediately without restarts.
func NewCheckpointService(db Checkpointer, interval time.Duration) *CheckpointService {
	return &CheckpointService{
		db:       db,
		interval: interval,
		name:     "duckdb-checkpoint",
	}
}

// Serve implements suture.Service. A failed checkpoint is logged and
// retried at the next tick; only the context ends the loop.
func (c *CheckpointService) Serve(ctx context.Context) error {
	if c.interval <= 0 {
		return suture.ErrDoNotRestart
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := c.db.Checkpoint(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logging.Warn().Err(err).Msg("Periodic database checkpoint failed")
				continue
			}
			logging.Debug().Dur("duration", time.Since(start)).Msg("Database checkpoint complete")
		}
	}
}

// String implements fmt.Stringer for suture logs.
func (c *CheckpointService) String() string {
	return c.name
}
