// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

/*
Package cache provides a thread-safe in-memory TTL cache for query results.

The API uses it for the popularity ranking, the one query that aggregates
the whole statuses table. With a TTL of a few seconds the ranking is at most
that stale, while bursts of dashboard requests hit DuckDB once.

# Usage

	c := cache.New(5 * time.Second)
	defer c.Close()

	key := cache.GenerateKey("popular", 10)
	if v, ok := c.Get(key); ok {
	    return v.([]models.StatusCount), nil
	}
	rows, err := db.Popular(ctx, 10)
	if err == nil {
	    c.Set(key, rows)
	}

# Thread Safety

All methods are safe for concurrent use. Values are returned as stored, so
callers must not mutate cached slices.
*/
package cache
