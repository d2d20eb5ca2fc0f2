// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package jetstream

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/statusphere/internal/logging"
)

// Default transport settings.
const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultPingInterval     = 30 * time.Second
	subscribePath           = "/subscribe"
)

// Config configures a Jetstream client.
type Config struct {
	// URL is the Jetstream base address, e.g. wss://jetstream2.us-east.bsky.network.
	URL               string
	WantedCollections []string
	HandshakeTimeout  time.Duration
	PingInterval      time.Duration
}

// ConnectError is a failed subscription handshake.
type ConnectError struct {
	URL        string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *ConnectError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("jetstream dial %s failed (HTTP %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("jetstream dial %s: %v", e.URL, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// Client opens Jetstream subscriptions. It holds no connection itself;
// each Subscribe call dials a fresh one.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
}

// NewClient creates a client, filling unset durations with defaults.
func NewClient(cfg Config) *Client {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPingInterval
	}
	return &Client{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
	}
}

// Subscribe dials the subscription endpoint. A positive cursor asks the
// server to replay from that time_us; zero means live tail.
func (c *Client) Subscribe(ctx context.Context, cursor int64) (*Subscription, error) {
	wsURL, err := c.BuildURL(cursor)
	if err != nil {
		return nil, err
	}

	conn, resp, err := c.dialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		connErr := &ConnectError{URL: wsURL, Err: err}
		if resp != nil {
			connErr.StatusCode = resp.StatusCode
		}
		return nil, connErr
	}

	logging.Ctx(ctx).Info().Str("url", wsURL).Int64("cursor", cursor).Msg("Jetstream connected")
	return newSubscription(conn, c.cfg.PingInterval), nil
}

// BuildURL returns the subscribe URL for the configured collections.
//
// Format: {base}/subscribe?wantedCollections={nsid}&...&cursor={time_us}
//
// http(s) base URLs are converted to ws(s).
func (c *Client) BuildURL(cursor int64) (string, error) {
	parsed, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse jetstream url: %w", err)
	}

	switch parsed.Scheme {
	case "ws", "wss":
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("jetstream url scheme must be ws or wss, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", errors.New("jetstream url has no host")
	}

	parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	if !strings.HasSuffix(parsed.Path, subscribePath) {
		parsed.Path += subscribePath
	}

	q := url.Values{}
	for _, collection := range c.cfg.WantedCollections {
		q.Add("wantedCollections", collection)
	}
	if cursor > 0 {
		q.Set("cursor", strconv.FormatInt(cursor, 10))
	}
	parsed.RawQuery = q.Encode()

	return parsed.String(), nil
}
