// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

/*
Package database is the DuckDB-backed status store.

It owns one table:

	statuses(uri TEXT PRIMARY KEY, author TEXT, status TEXT,
	         created_at TEXT, indexed_at TIMESTAMP)

The only mutators are InsertOrReplace and DeleteStatus, called by the
projector. Readers (Recent, LatestPerAuthor, Popular) run concurrently with
the writer; DuckDB gives each query its own snapshot.

Schema changes are versioned in schema_migrations; see migrations.go.

Usage:

	db, err := database.New(&cfg.Database)
	if err != nil {
	    return err
	}
	defer db.Close()

	recent, err := db.Recent(ctx, 20)
*/
package database
