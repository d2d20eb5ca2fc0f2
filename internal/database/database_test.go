// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package database

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"testing"

	"github.com/tomtom215/statusphere/internal/config"
	"github.com/tomtom215/statusphere/internal/models"
)

// testDBSemaphore limits concurrent DuckDB instances; CGO calls can stall
// under resource pressure when many tests open databases at once.
var testDBSemaphore = make(chan struct{}, 4)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	db, err := New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB", Threads: 2})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})
	return db
}

func mustInsert(t *testing.T, db *DB, rec models.StatusRecord) {
	t.Helper()
	if err := db.InsertOrReplace(context.Background(), &rec); err != nil {
		t.Fatalf("InsertOrReplace(%s): %v", rec.URI, err)
	}
}

func uriFor(author string, rkey int) string {
	return models.RecordURI(author, models.StatusCollection, fmt.Sprintf("%d", rkey))
}

func TestNew_AppliesMigrations(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	version, err := db.GetCurrentSchemaVersion(ctx)
	if err != nil {
		t.Fatalf("GetCurrentSchemaVersion: %v", err)
	}
	if version != len(db.getMigrations()) {
		t.Errorf("schema version = %d, want %d", version, len(db.getMigrations()))
	}

	// Running again is a no-op.
	if err := db.runVersionedMigrations(); err != nil {
		t.Fatalf("second runVersionedMigrations: %v", err)
	}
	history, err := db.GetMigrationHistory(ctx)
	if err != nil {
		t.Fatalf("GetMigrationHistory: %v", err)
	}
	if len(history) != len(db.getMigrations()) {
		t.Errorf("history has %d entries, want %d", len(history), len(db.getMigrations()))
	}
}

func TestInsertOrReplace_SameURIKeepsOneRow(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	uri := "at://did:plc:abc/app.status/1"
	mustInsert(t, db, models.StatusRecord{URI: uri, Author: "did:plc:abc", Status: "🔥", CreatedAt: "2024-01-01T00:00:00Z"})
	mustInsert(t, db, models.StatusRecord{URI: uri, Author: "did:plc:abc", Status: "💯", CreatedAt: "2024-01-01T00:00:00Z"})

	n, err := db.CountStatuses(ctx)
	if err != nil {
		t.Fatalf("CountStatuses: %v", err)
	}
	if n != 1 {
		t.Fatalf("row count = %d, want 1", n)
	}

	got, err := db.GetStatus(ctx, uri)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if got.Status != "💯" {
		t.Errorf("status = %q, want 💯", got.Status)
	}
}

func TestInsertOrReplace_UpdatesIndexedColumn(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	uri := uriFor("did:plc:a", 1)
	mustInsert(t, db, models.StatusRecord{URI: uri, Author: "did:plc:a", Status: "🔥", CreatedAt: "2024-01-01T00:00:00Z"})
	mustInsert(t, db, models.StatusRecord{URI: uri, Author: "did:plc:a", Status: "🔥", CreatedAt: "2024-06-01T00:00:00Z"})

	got, err := db.GetStatus(ctx, uri)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if got.CreatedAt != "2024-06-01T00:00:00Z" {
		t.Errorf("created_at = %q, want the second write", got.CreatedAt)
	}
}

func TestDeleteStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	t.Run("absent uri is a no-op", func(t *testing.T) {
		if err := db.DeleteStatus(ctx, "at://did:plc:nobody/xyz.statusphere.status/none"); err != nil {
			t.Fatalf("DeleteStatus: %v", err)
		}
		n, _ := db.CountStatuses(ctx)
		if n != 0 {
			t.Errorf("row count = %d, want 0", n)
		}
	})

	t.Run("removes existing row only", func(t *testing.T) {
		keep, drop := uriFor("did:plc:a", 1), uriFor("did:plc:a", 2)
		mustInsert(t, db, models.StatusRecord{URI: keep, Author: "did:plc:a", Status: "🔥", CreatedAt: "2024-01-01T00:00:00Z"})
		mustInsert(t, db, models.StatusRecord{URI: drop, Author: "did:plc:a", Status: "💯", CreatedAt: "2024-01-02T00:00:00Z"})

		if err := db.DeleteStatus(ctx, drop); err != nil {
			t.Fatalf("DeleteStatus: %v", err)
		}
		if _, err := db.GetStatus(ctx, drop); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetStatus(deleted) error = %v, want ErrNotFound", err)
		}
		if _, err := db.GetStatus(ctx, keep); err != nil {
			t.Errorf("GetStatus(kept): %v", err)
		}
		// Deleting twice stays a no-op.
		if err := db.DeleteStatus(ctx, drop); err != nil {
			t.Errorf("second DeleteStatus: %v", err)
		}
	})
}

func TestRecent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	stamps := []string{"2024-01-03T00:00:00Z", "2024-01-01T00:00:00Z", "2024-01-05T00:00:00Z", "2024-01-02T00:00:00Z"}
	for i, ts := range stamps {
		mustInsert(t, db, models.StatusRecord{URI: uriFor("did:plc:a", i), Author: "did:plc:a", Status: "🔥", CreatedAt: ts})
	}

	got, err := db.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	want := []string{"2024-01-05T00:00:00Z", "2024-01-03T00:00:00Z", "2024-01-02T00:00:00Z"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].CreatedAt != want[i] {
			t.Errorf("[%d] created_at = %s, want %s", i, got[i].CreatedAt, want[i])
		}
	}

	for _, limit := range []int{0, -1} {
		rows, err := db.Recent(ctx, limit)
		if err != nil || len(rows) != 0 {
			t.Errorf("Recent(%d) = %v, %v; want empty", limit, rows, err)
		}
	}
}

func TestLatestPerAuthor(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	rows := []models.StatusRecord{
		{Author: "did:plc:a", Status: "🔥", CreatedAt: "2024-01-01T00:00:00Z"},
		{Author: "did:plc:a", Status: "💯", CreatedAt: "2024-01-09T00:00:00Z"},
		{Author: "did:plc:b", Status: "😀", CreatedAt: "2024-01-05T00:00:00Z"},
		{Author: "did:plc:c", Status: "🔥", CreatedAt: "2024-01-07T00:00:00Z"},
		{Author: "did:plc:c", Status: "🎉", CreatedAt: "2024-01-02T00:00:00Z"},
		{Author: "did:plc:d", Status: "🙂", CreatedAt: "2024-01-03T00:00:00Z"},
		{Author: "did:plc:e", Status: "🔥", CreatedAt: "2024-01-04T00:00:00Z"},
	}
	for i := range rows {
		rows[i].URI = uriFor(rows[i].Author, i)
		mustInsert(t, db, rows[i])
	}

	got, err := db.LatestPerAuthor(ctx, 3)
	if err != nil {
		t.Fatalf("LatestPerAuthor: %v", err)
	}

	want := []struct{ author, status, createdAt string }{
		{"did:plc:a", "💯", "2024-01-09T00:00:00Z"},
		{"did:plc:c", "🔥", "2024-01-07T00:00:00Z"},
		{"did:plc:b", "😀", "2024-01-05T00:00:00Z"},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].Author != w.author || got[i].Status != w.status || got[i].CreatedAt != w.createdAt {
			t.Errorf("[%d] = %+v, want %+v", i, got[i], w)
		}
	}

	all, err := db.LatestPerAuthor(ctx, 100)
	if err != nil {
		t.Fatalf("LatestPerAuthor(100): %v", err)
	}
	seen := map[string]bool{}
	for _, r := range all {
		if seen[r.Author] {
			t.Errorf("author %s returned twice", r.Author)
		}
		seen[r.Author] = true
	}
	if len(all) != 5 {
		t.Errorf("distinct authors = %d, want 5", len(all))
	}
}

func TestPopular(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	statuses := []string{"🔥", "💯", "🔥", "😀", "💯", "🔥", "🎉", "😀"}
	for i, s := range statuses {
		mustInsert(t, db, models.StatusRecord{URI: uriFor("did:plc:p", i), Author: "did:plc:p", Status: s, CreatedAt: "2024-01-01T00:00:00Z"})
	}

	got, err := db.Popular(ctx, 10)
	if err != nil {
		t.Fatalf("Popular: %v", err)
	}

	truth := map[string]int64{}
	for _, s := range statuses {
		truth[s]++
	}
	expected := make([]models.StatusCount, 0, len(truth))
	for s, c := range truth {
		expected = append(expected, models.StatusCount{Status: s, Count: c})
	}
	sort.Slice(expected, func(i, j int) bool {
		if expected[i].Count != expected[j].Count {
			return expected[i].Count > expected[j].Count
		}
		return expected[i].Status < expected[j].Status
	})

	if len(got) != len(expected) {
		t.Fatalf("len = %d, want %d", len(got), len(expected))
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("[%d] = %+v, want %+v", i, got[i], expected[i])
		}
	}

	top, err := db.Popular(ctx, 1)
	if err != nil || len(top) != 1 || top[0].Status != "🔥" || top[0].Count != 3 {
		t.Errorf("Popular(1) = %+v, %v", top, err)
	}
}

func TestQueries_UnboundedLimit(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for i, s := range []string{"🔥", "💯", "🔥"} {
		mustInsert(t, db, models.StatusRecord{URI: uriFor("did:plc:a", i), Author: "did:plc:a", Status: s, CreatedAt: "2024-01-01T00:00:00.000Z"})
	}

	popular, err := db.Popular(ctx, math.MaxInt)
	if err != nil || len(popular) != 2 {
		t.Errorf("Popular(MaxInt) = %+v, %v; want 2 rows", popular, err)
	}
	recent, err := db.Recent(ctx, math.MaxInt)
	if err != nil || len(recent) != 3 {
		t.Errorf("Recent(MaxInt) = %d rows, %v; want 3", len(recent), err)
	}
	latest, err := db.LatestPerAuthor(ctx, math.MaxInt)
	if err != nil || len(latest) != 1 {
		t.Errorf("LatestPerAuthor(MaxInt) = %d rows, %v; want 1", len(latest), err)
	}
}

func TestRecent_FractionalSecondsOrder(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	stamps := []string{"2024-01-01T00:00:00.000Z", "2024-01-01T00:00:00.500Z", "2024-01-01T00:00:01.000Z"}
	for i, ts := range stamps {
		mustInsert(t, db, models.StatusRecord{URI: uriFor("did:plc:a", i), Author: "did:plc:a", Status: "🔥", CreatedAt: ts})
	}

	got, err := db.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	for i, want := range []string{stamps[2], stamps[1], stamps[0]} {
		if got[i].CreatedAt != want {
			t.Errorf("[%d] created_at = %s, want %s", i, got[i].CreatedAt, want)
		}
	}
}

func TestConcurrentReadsDuringWrites(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			rec := models.StatusRecord{URI: uriFor("did:plc:w", i%5), Author: "did:plc:w", Status: "🔥", CreatedAt: fmt.Sprintf("2024-01-01T00:00:%02dZ", i)}
			if err := db.InsertOrReplace(ctx, &rec); err != nil {
				t.Errorf("write %d: %v", i, err)
				return
			}
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if _, err := db.LatestPerAuthor(ctx, 10); err != nil {
				t.Errorf("read %d: %v", i, err)
				return
			}
		}
	}()

	wg.Wait()

	n, err := db.CountStatuses(ctx)
	if err != nil {
		t.Fatalf("CountStatuses: %v", err)
	}
	if n != 5 {
		t.Errorf("row count = %d, want 5", n)
	}
}
