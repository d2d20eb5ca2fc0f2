// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package ingest

// State is a position in the supervisor's connection lifecycle.
//
//	Idle -> Connecting -> Streaming -> Backoff -> Connecting ...
//	                                    Backoff -> Failed
//	Streaming, Backoff -> Idle (Stop)
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateStreaming
	StateBackoff
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateBackoff:
		return "backoff"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
