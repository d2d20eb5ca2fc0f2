// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tomtom215/statusphere/internal/models"
)

// ErrNotFound is returned by GetStatus when no row has the uri.
var ErrNotFound = errors.New("status not found")

const statusColumns = `uri, author, status, created_at`

// maxQueryLimit caps caller limits below DuckDB's LIMIT range.
const maxQueryLimit = math.MaxInt32

func clampLimit(limit int) int {
	return min(limit, maxQueryLimit)
}

// InsertOrReplace writes rec keyed by rec.URI, replacing any existing row.
// Last write wins; no version check is made.
//
// DuckDB rejects ON CONFLICT DO UPDATE on indexed columns (created_at), so
// the replace is a delete and insert inside one transaction.
func (db *DB) InsertOrReplace(ctx context.Context, rec *models.StatusRecord) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM statuses WHERE uri = ?`, rec.URI); err != nil {
		return fmt.Errorf("failed to clear status %s: %w", rec.URI, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO statuses (uri, author, status, created_at, indexed_at) VALUES (?, ?, ?, ?, ?)`,
		rec.URI, rec.Author, rec.Status, rec.CreatedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert status %s: %w", rec.URI, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit status %s: %w", rec.URI, err)
	}
	return nil
}

// DeleteStatus removes the row for uri. Deleting an absent uri is a no-op.
func (db *DB) DeleteStatus(ctx context.Context, uri string) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	if _, err := db.conn.ExecContext(ctx, `DELETE FROM statuses WHERE uri = ?`, uri); err != nil {
		return fmt.Errorf("failed to delete status %s: %w", uri, err)
	}
	return nil
}

// GetStatus returns the row for uri or ErrNotFound.
func (db *DB) GetStatus(ctx context.Context, uri string) (*models.StatusRecord, error) {
	var rec models.StatusRecord
	err := db.conn.QueryRowContext(ctx,
		`SELECT `+statusColumns+` FROM statuses WHERE uri = ?`, uri,
	).Scan(&rec.URI, &rec.Author, &rec.Status, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get status %s: %w", uri, err)
	}
	return &rec, nil
}

// Recent returns up to limit rows ordered by created_at descending.
// created_at is compared as text; the validator stores it fixed width.
func (db *DB) Recent(ctx context.Context, limit int) ([]models.StatusRecord, error) {
	if limit <= 0 {
		return []models.StatusRecord{}, nil
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+statusColumns+`
		FROM statuses
		ORDER BY created_at DESC, uri DESC
		LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query recent statuses: %w", err)
	}
	return scanStatuses(rows)
}

// LatestPerAuthor returns up to limit rows, one per author, each being that
// author's newest row, ordered by created_at descending.
func (db *DB) LatestPerAuthor(ctx context.Context, limit int) ([]models.StatusRecord, error) {
	if limit <= 0 {
		return []models.StatusRecord{}, nil
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+statusColumns+`
		FROM statuses
		QUALIFY row_number() OVER (PARTITION BY author ORDER BY created_at DESC, uri DESC) = 1
		ORDER BY created_at DESC, uri DESC
		LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query latest statuses per author: %w", err)
	}
	return scanStatuses(rows)
}

// Popular returns up to limit (status, count) pairs ordered by count
// descending, ties broken by status ascending.
func (db *DB) Popular(ctx context.Context, limit int) ([]models.StatusCount, error) {
	if limit <= 0 {
		return []models.StatusCount{}, nil
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT status, COUNT(*) AS cnt
		FROM statuses
		GROUP BY status
		ORDER BY cnt DESC, status ASC
		LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query popular statuses: %w", err)
	}
	defer rows.Close()

	counts := []models.StatusCount{}
	for rows.Next() {
		var c models.StatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// CountStatuses returns the number of stored rows.
func (db *DB) CountStatuses(ctx context.Context) (int64, error) {
	var n int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM statuses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count statuses: %w", err)
	}
	return n, nil
}

func scanStatuses(rows *sql.Rows) ([]models.StatusRecord, error) {
	defer rows.Close()

	out := []models.StatusRecord{}
	for rows.Next() {
		var rec models.StatusRecord
		if err := rows.Scan(&rec.URI, &rec.Author, &rec.Status, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
