// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package ingest

import (
	"context"
	"time"
)

// BackoffDelay returns min(base * 2^(attempt-1), maxDelay).
// Attempts below 1 are treated as 1.
func BackoffDelay(base, maxDelay time.Duration, attempt int) time.Duration {
	if base >= maxDelay {
		return maxDelay
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxDelay {
			return maxDelay
		}
	}
	return d
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
