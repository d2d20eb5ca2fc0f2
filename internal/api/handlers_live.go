// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/statusphere/internal/logging"
	ws "github.com/tomtom215/statusphere/internal/websocket"
)

// Live upgrades to a WebSocket that receives every committed mutation as
// {"type":"status","data":{...}} or {"type":"delete","data":{"uri":...}}.
//
// GET /api/v1/statuses/live
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	if h.live == nil {
		NewResponseWriter(w, r).NotFound("Live feed is disabled")
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Ctx(r.Context()).Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	ws.NewClient(h.live, conn).Attach()
}

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  4096,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin filters browser origins. Requests without an Origin
// header come from non-browser clients and are admitted.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.origins) == 0 {
		return true
	}

	for _, allowed := range h.origins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Warn().Str("origin", origin).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}
