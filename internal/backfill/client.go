// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package backfill

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/statusphere/internal/metrics"
	"github.com/tomtom215/statusphere/internal/models"
)

// XRPC methods used by the backfill.
const (
	methodListReposByCollection = "com.atproto.sync.listReposByCollection"
	methodListRecords           = "com.atproto.repo.listRecords"
)

// HTTPError is a non-200 XRPC response.
type HTTPError struct {
	Method     string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Method, e.StatusCode, e.Body)
}

// listRepos fetches one page of repositories holding the collection.
func (b *Backfiller) listRepos(ctx context.Context, cursor string) (*models.ListReposResponse, error) {
	q := url.Values{}
	q.Set("collection", b.cfg.Collection)
	q.Set("limit", strconv.Itoa(b.cfg.PageLimit))
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	var page models.ListReposResponse
	err := b.getJSON(ctx, b.cfg.RelayURL, methodListReposByCollection, q, &page)
	metrics.RecordBackfillRequest(methodListReposByCollection, err)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// listRecords fetches one page of a repository's records in the collection.
func (b *Backfiller) listRecords(ctx context.Context, did, cursor string) (*models.ListRecordsResponse, error) {
	q := url.Values{}
	q.Set("repo", did)
	q.Set("collection", b.cfg.Collection)
	q.Set("limit", strconv.Itoa(b.cfg.PageLimit))
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	var page models.ListRecordsResponse
	err := b.getJSON(ctx, b.cfg.PDSURL, methodListRecords, q, &page)
	metrics.RecordBackfillRequest(methodListRecords, err)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// getJSON waits for the rate limiter, then GETs {base}/xrpc/{method}.
func (b *Backfiller) getJSON(ctx context.Context, base, method string, query url.Values, result interface{}) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := strings.TrimSuffix(base, "/") + "/xrpc/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.URL.RawQuery = query.Encode()
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512)) //nolint:errcheck // best effort for the message
		return &HTTPError{Method: method, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode %s: %w", method, err)
	}
	return nil
}
