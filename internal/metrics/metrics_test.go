// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordStoreWrite(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		err       error
		wantErrs  float64
	}{
		{"successful upsert", "upsert", nil, 0},
		{"failed upsert", "upsert", errors.New("disk full"), 1},
		{"failed delete", "delete", errors.New("database is locked"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(StoreWriteErrors.WithLabelValues(tt.operation))
			RecordStoreWrite(tt.operation, 3*time.Millisecond, tt.err)
			after := testutil.ToFloat64(StoreWriteErrors.WithLabelValues(tt.operation))

			if after-before != tt.wantErrs {
				t.Errorf("error counter delta = %v, want %v", after-before, tt.wantErrs)
			}
		})
	}
}

func TestRecordRejected(t *testing.T) {
	before := testutil.ToFloat64(IngestRecordsRejected.WithLabelValues("jetstream", "invalid_grapheme_count"))
	RecordRejected("jetstream", "invalid_grapheme_count")
	RecordRejected("jetstream", "invalid_grapheme_count")
	after := testutil.ToFloat64(IngestRecordsRejected.WithLabelValues("jetstream", "invalid_grapheme_count"))

	if after-before != 2 {
		t.Errorf("rejected delta = %v, want 2", after-before)
	}
}

func TestRecordReconnect(t *testing.T) {
	before := testutil.ToFloat64(IngestReconnects)
	RecordReconnect(4 * time.Second)
	if got := testutil.ToFloat64(IngestReconnects) - before; got != 1 {
		t.Errorf("reconnect delta = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(IngestBackoffSeconds); n != 1 {
		t.Errorf("histogram series = %d, want 1", n)
	}
}

func TestRecordBackfillRequest(t *testing.T) {
	okBefore := testutil.ToFloat64(BackfillRequests.WithLabelValues("listRecords", "success"))
	errBefore := testutil.ToFloat64(BackfillRequests.WithLabelValues("listRecords", "error"))

	RecordBackfillRequest("listRecords", nil)
	RecordBackfillRequest("listRecords", errors.New("502"))

	if d := testutil.ToFloat64(BackfillRequests.WithLabelValues("listRecords", "success")) - okBefore; d != 1 {
		t.Errorf("success delta = %v", d)
	}
	if d := testutil.ToFloat64(BackfillRequests.WithLabelValues("listRecords", "error")) - errBefore; d != 1 {
		t.Errorf("error delta = %v", d)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/statuses/recent", "200"))
	RecordAPIRequest("GET", "/api/v1/statuses/recent", "200", 5*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/statuses/recent", "200"))
	if after-before != 1 {
		t.Errorf("api request delta = %v, want 1", after-before)
	}
}
