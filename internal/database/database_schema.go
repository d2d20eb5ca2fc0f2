// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext bounds schema DDL at startup.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// getTableCreationQueries returns the DDL for the status store.
//
// created_at is the author-supplied time as fixed-width UTC text
// (2006-01-02T15:04:05.000Z), so lexical order is chronological;
// indexed_at is ingestion time and is informational only.
func (db *DB) getTableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS statuses (
			uri TEXT PRIMARY KEY,
			author TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TEXT NOT NULL,
			indexed_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_statuses_created_at ON statuses(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_statuses_author ON statuses(author);`,
	}
}

// createTables creates the core database tables
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range db.getTableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}
