// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

// Package jetstream is a WebSocket client for the Bluesky Jetstream firehose.
//
// Jetstream re-encodes repository commits as JSON. A subscription is opened
// with a set of wantedCollections and an optional cursor (a time_us value)
// to replay from. Each frame is one JetstreamEvent:
//
//	{"did":"did:plc:...","time_us":1725911162329308,"kind":"commit",
//	 "commit":{"rev":"...","operation":"create","collection":"xyz.statusphere.status",
//	           "rkey":"3l3qo2vutsw2b","record":{...},"cid":"bafy..."}}
//
// The client only owns the transport: dialing, keepalive pings and
// decoding. Reconnect policy lives in the ingest package.
//
// Usage:
//
//	client := jetstream.NewClient(jetstream.Config{
//	    URL:               "wss://jetstream2.us-east.bsky.network",
//	    WantedCollections: []string{models.StatusCollection},
//	})
//	sub, err := client.Subscribe(ctx, cursor)
//	if err != nil { ... }
//	defer sub.Close()
//	for {
//	    evt, err := sub.Next(ctx)
//	    ...
//	}
package jetstream
