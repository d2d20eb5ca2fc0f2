// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package jetstream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/statusphere/internal/models"
)

var (
	// ErrStreamClosed is returned by Next after a normal close from either side.
	ErrStreamClosed = errors.New("jetstream: stream closed")

	// ErrMalformedEvent is returned by Next for a frame that is not a
	// JetstreamEvent. The subscription stays usable.
	ErrMalformedEvent = errors.New("jetstream: malformed event")
)

const writeWait = 10 * time.Second

// Subscription is one live Jetstream connection. Next must be called from a
// single goroutine; Close may be called from any goroutine.
type Subscription struct {
	conn         *websocket.Conn
	pingInterval time.Duration

	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

func newSubscription(conn *websocket.Conn, pingInterval time.Duration) *Subscription {
	s := &Subscription{
		conn:         conn,
		pingInterval: pingInterval,
		done:         make(chan struct{}),
	}

	// Pongs push the read deadline forward; a silent server trips it.
	_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout())) //nolint:errcheck // only fails on a closed conn
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.readTimeout()))
	})

	s.wg.Add(1)
	go s.pingLoop()
	return s
}

func (s *Subscription) readTimeout() time.Duration {
	return 2 * s.pingInterval
}

// Next blocks until the next event arrives or the stream ends. Cancelling
// ctx unblocks it by closing the connection.
func (s *Subscription) Next(ctx context.Context) (*models.JetstreamEvent, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.Close() //nolint:errcheck // unblocks ReadMessage
	})
	defer stop()

	_, data, err := s.conn.ReadMessage()
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case s.closed.Load():
			return nil, ErrStreamClosed
		case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
			return nil, ErrStreamClosed
		default:
			return nil, fmt.Errorf("jetstream read: %w", err)
		}
	}

	// Any frame proves the connection is alive.
	_ = s.conn.SetReadDeadline(time.Now().Add(s.readTimeout())) //nolint:errcheck // surfaced by the next read

	var evt models.JetstreamEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return &evt, nil
}

// Close sends a close frame and tears down the connection. Safe to call
// more than once and concurrently with Next.
func (s *Subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)

		// WriteControl is safe alongside the ping loop and a blocked reader.
		_ = s.conn.WriteControl( //nolint:errcheck // peer may already be gone
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		err = s.conn.Close()
		s.wg.Wait()
	})
	return err
}

func (s *Subscription) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				// The reader sees the broken connection and reports it.
				_ = s.conn.Close() //nolint:errcheck // already failing
				return
			}
		}
	}
}
