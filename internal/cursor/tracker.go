// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package cursor

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/tomtom215/statusphere/internal/logging"
	"github.com/tomtom215/statusphere/internal/metrics"
)

// Saver persists a cursor value.
type Saver interface {
	Save(ctx context.Context, timeUS int64) error
}

// Tracker remembers the newest processed time_us in memory and writes it
// to a Saver periodically, so the hot path never touches disk.
type Tracker struct {
	saver Saver
	last  atomic.Int64
	saved atomic.Int64
}

// NewTracker creates a tracker over saver.
func NewTracker(saver Saver) *Tracker {
	return &Tracker{saver: saver}
}

// Observe records a processed event time. Older values are ignored.
func (t *Tracker) Observe(timeUS int64) {
	for {
		cur := t.last.Load()
		if timeUS <= cur {
			return
		}
		if t.last.CompareAndSwap(cur, timeUS) {
			metrics.IngestCursor.Set(float64(timeUS))
			return
		}
	}
}

// Last returns the newest observed time_us.
func (t *Tracker) Last() int64 {
	return t.last.Load()
}

// Flush saves the newest observed value if it has not been saved yet.
func (t *Tracker) Flush(ctx context.Context) error {
	last := t.last.Load()
	if last == 0 || last == t.saved.Load() {
		return nil
	}
	if err := t.saver.Save(ctx, last); err != nil {
		return err
	}
	t.saved.Store(last)
	return nil
}

// Run flushes every interval until ctx is done, then flushes once more
// with a short detached deadline.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			if err := t.Flush(flushCtx); err != nil {
				logging.Warn().Err(err).Msg("Final cursor flush failed")
			}
			cancel()
			return
		case <-ticker.C:
			if err := t.Flush(ctx); err != nil {
				logging.Warn().Err(err).Msg("Cursor flush failed")
			}
		}
	}
}
