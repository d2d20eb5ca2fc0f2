// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrRetriesExhausted means the reconnect budget ran out and ingestion
	// halted in StateFailed. The store keeps serving what it already holds.
	ErrRetriesExhausted = errors.New("ingest: reconnect attempts exhausted")

	// ErrDecode marks a create or update commit that carries no record, or
	// an event frame that could not be decoded at all.
	ErrDecode = errors.New("ingest: undecodable commit")

	// ErrStopped is returned by Serve after Stop.
	ErrStopped = errors.New("ingest: stopped")
)

// ConnectionError is a transport failure while dialing or streaming.
// It is never fatal on its own; the supervisor backs off and reconnects.
type ConnectionError struct {
	Op  string // "dial" or "read"
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("jetstream %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
