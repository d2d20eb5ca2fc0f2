// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/statusphere/internal/models"
)

var _ suture.Service = (*Hub)(nil)

// startHub runs a hub until the test ends.
func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

// newTestClient creates a connectionless client for hub-only tests.
func newTestClient(hub *Hub, buffer int) *Client {
	return &Client{id: clientIDCounter.Add(1), hub: hub, send: make(chan Message, buffer)}
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", hub.ClientCount(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func receive(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("send channel closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func TestHub_BroadcastsMutations(t *testing.T) {
	hub := startHub(t)
	a, b := newTestClient(hub, 8), newTestClient(hub, 8)
	hub.Register <- a
	hub.Register <- b
	waitForClients(t, hub, 2)

	rec := &models.StatusRecord{URI: "at://did:plc:a/xyz.statusphere.status/1", Author: "did:plc:a", Status: "👍", CreatedAt: "2024-01-01T00:00:00Z"}
	hub.StatusUpserted(rec)
	hub.StatusDeleted(rec.URI)

	for _, c := range []*Client{a, b} {
		msg := receive(t, c.send)
		if msg.Type != MessageTypeStatus {
			t.Fatalf("first message type = %q, want %q", msg.Type, MessageTypeStatus)
		}
		got, ok := msg.Data.(models.StatusRecord)
		if !ok || got != *rec {
			t.Errorf("status data = %#v", msg.Data)
		}

		msg = receive(t, c.send)
		if msg.Type != MessageTypeDelete {
			t.Fatalf("second message type = %q, want %q", msg.Type, MessageTypeDelete)
		}
		if del, ok := msg.Data.(DeleteData); !ok || del.URI != rec.URI {
			t.Errorf("delete data = %#v", msg.Data)
		}
	}
}

func TestHub_UpsertCopiesRecord(t *testing.T) {
	hub := startHub(t)
	c := newTestClient(hub, 1)
	hub.Register <- c
	waitForClients(t, hub, 1)

	rec := &models.StatusRecord{URI: "at://x", Status: "🔥"}
	hub.StatusUpserted(rec)
	rec.Status = "changed"

	msg := receive(t, c.send)
	if got := msg.Data.(models.StatusRecord).Status; got != "🔥" {
		t.Errorf("status = %q, want the value at broadcast time", got)
	}
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := startHub(t)
	c := newTestClient(hub, 1)
	hub.Register <- c
	waitForClients(t, hub, 1)

	hub.Unregister <- c
	waitForClients(t, hub, 0)

	if _, ok := <-c.send; ok {
		t.Error("send channel should be closed after unregister")
	}

	// A second unregister must not double-close.
	hub.Unregister <- c
	waitForClients(t, hub, 0)
}

func TestHub_SlowClientIsDisconnected(t *testing.T) {
	hub := startHub(t)
	slow := newTestClient(hub, 1)
	fast := newTestClient(hub, 8)
	hub.Register <- slow
	hub.Register <- fast
	waitForClients(t, hub, 2)

	hub.StatusDeleted("at://1")
	hub.StatusDeleted("at://2")

	receive(t, fast.send)
	receive(t, fast.send)
	waitForClients(t, hub, 1)

	// The buffered message is still delivered before the close.
	if msg := <-slow.send; msg.Type != MessageTypeDelete {
		t.Errorf("buffered message = %+v", msg)
	}
	if _, ok := <-slow.send; ok {
		t.Error("slow client should have been closed")
	}
}

func TestHub_BroadcastNeverBlocks(t *testing.T) {
	hub := NewHub() // not running

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.StatusDeleted("at://x")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked with no hub running")
	}
}

func TestHub_ServeClosesClientsOnCancel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- hub.Serve(ctx) }()

	c := newTestClient(hub, 1)
	hub.Register <- c
	waitForClients(t, hub, 1)

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
	if hub.ClientCount() != 0 {
		t.Errorf("client count = %d after shutdown", hub.ClientCount())
	}
	if _, ok := <-c.send; ok {
		t.Error("client send channel should be closed on shutdown")
	}
	if hub.String() != "websocket-hub" {
		t.Errorf("String() = %q", hub.String())
	}
}

func TestMarshalMessage(t *testing.T) {
	data, err := MarshalMessage(Message{Type: MessageTypeDelete, Data: DeleteData{URI: "at://x"}})
	if err != nil {
		t.Fatalf("MarshalMessage: %v", err)
	}
	if want := `{"type":"delete","data":{"uri":"at://x"}}`; string(data) != want {
		t.Errorf("MarshalMessage = %s, want %s", data, want)
	}
}

// serveWS upgrades every request and attaches it to hub.
func serveWS(t *testing.T, hub *Hub) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewClient(hub, conn).Attach()
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClient_EndToEnd(t *testing.T) {
	hub := startHub(t)
	url := serveWS(t, hub)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitForClients(t, hub, 1)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	hub.StatusUpserted(&models.StatusRecord{URI: "at://x", Author: "did:plc:a", Status: "😀", CreatedAt: "2024-01-01T00:00:00Z"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	seen := map[string]bool{}
	for len(seen) < 2 {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v (seen %v)", err, seen)
		}
		var msg struct {
			Type string              `json:"type"`
			Data models.StatusRecord `json:"data"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decode %s: %v", data, err)
		}
		seen[msg.Type] = true
		if msg.Type == MessageTypeStatus && msg.Data.Status != "😀" {
			t.Errorf("status payload = %+v", msg.Data)
		}
	}
	if !seen[MessageTypePong] || !seen[MessageTypeStatus] {
		t.Errorf("seen = %v, want pong and status", seen)
	}

	_ = conn.Close()
	waitForClients(t, hub, 0)
}

func TestClient_AttachFailsWithoutHub(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the registration timeout")
	}

	hub := NewHub() // never served
	url := serveWS(t, hub)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(writeWait + 5*time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("connection should be closed when the hub is not running")
	}
}
