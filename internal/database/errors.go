// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package database

import "io"

// closeQuietly closes a resource in an error path where Close errors are
// not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close() //nolint:errcheck // best-effort cleanup
	}
}
