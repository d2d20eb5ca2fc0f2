// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package cursor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/statusphere/internal/config"
	"github.com/tomtom215/statusphere/internal/logging"
)

// jetstreamKey holds the checkpoint for the live subscription.
const jetstreamKey = "cursor:jetstream"

// Checkpoint is the persisted form of a cursor.
type Checkpoint struct {
	TimeUS  int64     `json:"time_us"`
	SavedAt time.Time `json:"saved_at"`
}

// Store persists the Jetstream cursor in BadgerDB.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the cursor store described by cfg.
func Open(cfg *config.CursorConfig) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
		opts.SyncWrites = true
	}
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for cursor: %w", err)
	}

	logging.Info().Str("path", cfg.Path).Bool("in_memory", cfg.InMemory).Msg("Cursor store opened")
	return &Store{db: db}, nil
}

// NewStoreFromDB wraps an already opened BadgerDB.
func NewStoreFromDB(db *badger.DB) *Store {
	return &Store{db: db}
}

// Load returns the saved cursor, or 0 when none has been saved.
func (s *Store) Load(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var cp Checkpoint
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(jetstreamKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get cursor: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &cp)
		})
	})
	if err != nil {
		return 0, err
	}
	return cp.TimeUS, nil
}

// Save stores timeUS. Cursors never move backwards: a value older than the
// saved one is ignored.
func (s *Store) Save(ctx context.Context, timeUS int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if timeUS <= 0 {
		return nil
	}

	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(jetstreamKey))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return fmt.Errorf("get cursor: %w", err)
		default:
			var prev Checkpoint
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &prev) }); err != nil {
				return fmt.Errorf("decode cursor: %w", err)
			}
			if prev.TimeUS >= timeUS {
				return nil
			}
		}

		data, err := json.Marshal(Checkpoint{TimeUS: timeUS, SavedAt: time.Now().UTC()})
		if err != nil {
			return fmt.Errorf("marshal cursor: %w", err)
		}
		return txn.Set([]byte(jetstreamKey), data)
	})
}

// Reset deletes the saved cursor so the next subscription starts live.
func (s *Store) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(jetstreamKey)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete cursor: %w", err)
		}
		return nil
	})
}

// Close closes the underlying BadgerDB.
func (s *Store) Close() error {
	return s.db.Close()
}
