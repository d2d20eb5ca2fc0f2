// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/statusphere/internal/models"
	ws "github.com/tomtom215/statusphere/internal/websocket"
)

func startLiveServer(t *testing.T, origins []string) (*ws.Hub, string) {
	t.Helper()

	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.Serve(ctx)
	}()

	h := NewHandler(&fakeStore{}, testAPIConfig(), WithLiveFeed(hub, origins))
	srv := httptest.NewServer(newTestServer(t, h, nil))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/statuses/live"
}

func TestLive_Disabled(t *testing.T) {
	srv := newTestServer(t, NewHandler(&fakeStore{}, testAPIConfig()), nil)

	rec, env := doGet(t, srv, "/api/v1/statuses/live")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if env.Error == nil || env.Error.Code != ErrCodeNotFound {
		t.Errorf("error = %+v", env.Error)
	}
}

func TestLive_StreamsThroughRouter(t *testing.T) {
	hub, url := startLiveServer(t, []string{"*"})

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	want := models.StatusRecord{URI: "at://did:plc:a/xyz.statusphere.status/1", Author: "did:plc:a", Status: "🦋", CreatedAt: "2024-01-01T00:00:00Z"}
	hub.StatusUpserted(&want)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var msg struct {
		Type string              `json:"type"`
		Data models.StatusRecord `json:"data"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	if msg.Type != ws.MessageTypeStatus || msg.Data != want {
		t.Errorf("message = %+v, want status %+v", msg, want)
	}
}

func TestLive_OriginCheck(t *testing.T) {
	_, url := startLiveServer(t, []string{"https://allowed.example"})

	tests := []struct {
		name   string
		origin string
		wantOK bool
	}{
		{"allowed origin", "https://allowed.example", true},
		{"foreign origin", "https://evil.example", false},
		{"no origin header", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}

			conn, resp, err := websocket.DefaultDialer.Dial(url, header)
			if tt.wantOK {
				if err != nil {
					t.Fatalf("dial: %v", err)
				}
				conn.Close()
				return
			}

			if err == nil {
				conn.Close()
				t.Fatal("dial should fail for a foreign origin")
			}
			if resp == nil || resp.StatusCode != http.StatusForbidden {
				t.Errorf("response = %+v, want 403", resp)
			}
		})
	}
}
