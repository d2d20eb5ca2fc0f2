// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package ingest

import (
	"context"

	"github.com/tomtom215/statusphere/internal/jetstream"
)

// JetstreamDialer adapts a jetstream.Client to Dialer.
type JetstreamDialer struct {
	Client *jetstream.Client
}

// Subscribe implements Dialer.
func (d JetstreamDialer) Subscribe(ctx context.Context, cursor int64) (Stream, error) {
	sub, err := d.Client.Subscribe(ctx, cursor)
	if err != nil {
		// Never return a typed nil inside the interface.
		return nil, err
	}
	return sub, nil
}
