// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

/*
Package websocket fans committed status mutations out to live feed clients.

The Hub is registered with the projector as a listener, so a message is only
sent after the store accepted the write:

	{"type":"status","data":{"uri":"at://...","author":"did:plc:...","status":"...","created_at":"..."}}
	{"type":"delete","data":{"uri":"at://..."}}

Clients may send {"type":"ping"} and receive {"type":"pong"}; every other
client frame is ignored.

# Backpressure

Neither the projector nor the hub ever blocks on a client. A full broadcast
queue drops the message, and a client whose 256-message buffer is full is
disconnected. Both are counted in statusphere_live_messages_dropped_total.

# Supervision

Hub implements suture.Service and runs in the API layer. When its context is
cancelled every client receives a close frame.
*/
package websocket
