// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/statusphere/internal/logging"
	"github.com/tomtom215/statusphere/internal/metrics"
	"github.com/tomtom215/statusphere/internal/models"
)

// Message types for WebSocket communication
const (
	MessageTypeStatus = "status"
	MessageTypeDelete = "delete"
	MessageTypePing   = "ping"
	MessageTypePong   = "pong"
)

// Message represents a WebSocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// DeleteData is the payload of a delete message.
type DeleteData struct {
	URI string `json:"uri"`
}

// Hub maintains the set of active clients and broadcasts committed status
// mutations to them. It implements projector.Listener and suture.Service.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Serve runs the hub until ctx is cancelled, then closes every client.
//
// Lifecycle events are drained before broadcasts so a client registered
// before a message was queued always receives it.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.add(client)
			continue
		case client := <-h.Unregister:
			h.remove(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		case client := <-h.Register:
			h.add(client)
		case client := <-h.Unregister:
			h.remove(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

// String implements fmt.Stringer for suture logs.
func (h *Hub) String() string {
	return "websocket-hub"
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.LiveClients.Set(float64(total))
	logging.Debug().Uint64("client_id", client.id).Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.LiveClients.Set(float64(total))
	logging.Debug().Uint64("client_id", client.id).Int("total_clients", total).Msg("websocket client disconnected")
}

func (h *Hub) shutdown() {
	clientCount := h.ClientCount()
	h.closeAllClients()
	metrics.LiveClients.Set(0)

	logging.Info().
		Str("component", "websocket-hub").
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

// broadcastToClients delivers in client ID order. A client whose buffer is
// full is disconnected rather than allowed to stall the hub.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.sortedClients()

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
		metrics.LiveMessagesDropped.Inc()
		logging.Warn().Uint64("client_id", client.id).Msg("websocket client too slow, disconnected")
	}
	if len(toRemove) > 0 {
		metrics.LiveClients.Set(float64(len(h.clients)))
	}
}

// closeAllClients closes every client's send channel. Caller must not hold mu.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.sortedClients() {
		close(client.send)
		delete(h.clients, client)
	}
}

// sortedClients returns the clients ordered by ID. Caller must hold mu.
func (h *Hub) sortedClients() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// StatusUpserted broadcasts a committed upsert.
func (h *Hub) StatusUpserted(rec *models.StatusRecord) {
	// Copy so later mutation by the caller cannot race the writers.
	data := *rec
	h.BroadcastJSON(MessageTypeStatus, data)
}

// StatusDeleted broadcasts a committed delete.
func (h *Hub) StatusDeleted(uri string) {
	h.BroadcastJSON(MessageTypeDelete, DeleteData{URI: uri})
}

// BroadcastJSON queues a message for every connected client. It never blocks;
// when the hub is saturated the message is dropped.
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	message := Message{
		Type: messageType,
		Data: data,
	}

	select {
	case h.broadcast <- message:
	default:
		metrics.LiveMessagesDropped.Inc()
		logging.Warn().Str("message_type", messageType).Msg("broadcast channel full, dropping message")
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// register hands client to the hub, giving up if the hub is not running.
func (h *Hub) register(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-time.After(writeWait):
		return false
	}
}

// unregister is register's counterpart for pumps that are exiting.
func (h *Hub) unregister(client *Client) {
	select {
	case h.Unregister <- client:
	case <-time.After(writeWait):
	}
}

// MarshalMessage converts a message to JSON
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
