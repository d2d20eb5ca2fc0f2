// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"ERROR", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestInitWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Str("uri", "at://did:plc:abc/xyz.statusphere.status/1").Msg("stored")

	out := buf.String()
	if !strings.Contains(out, `"level":"info"`) {
		t.Errorf("expected level field, got: %s", out)
	}
	if !strings.Contains(out, `"message":"stored"`) {
		t.Errorf("expected message field, got: %s", out)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { Init(DefaultConfig()) })

	l := WithComponent("ingest")
	l.Info().Msg("hello")

	if !strings.Contains(buf.String(), `"component":"ingest"`) {
		t.Errorf("expected component field, got: %s", buf.String())
	}
}

func TestCtxAddsCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { Init(DefaultConfig()) })

	ctx := ContextWithCorrelationID(context.Background(), "abcd1234")
	ctx = ContextWithRequestID(ctx, "req-1")
	Ctx(ctx).Info().Msg("connected")

	out := buf.String()
	if !strings.Contains(out, `"correlation_id":"abcd1234"`) {
		t.Errorf("missing correlation id: %s", out)
	}
	if !strings.Contains(out, `"request_id":"req-1"`) {
		t.Errorf("missing request id: %s", out)
	}
}

func TestGenerateCorrelationID(t *testing.T) {
	t.Parallel()

	a, b := GenerateCorrelationID(), GenerateCorrelationID()
	if len(a) != 8 {
		t.Errorf("len = %d, want 8", len(a))
	}
	if a == b {
		t.Error("expected distinct ids")
	}
	if CorrelationIDFromContext(context.Background()) != "" {
		t.Error("expected empty id for bare context")
	}
}

func TestSlogHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	slogger := slog.New(NewSlogHandlerWithLogger(zerolog.New(&buf)))

	slogger.WithGroup("svc").Warn("service restarted", "name", "jetstream-ingest", "failures", 3)

	out := buf.String()
	for _, want := range []string{`"level":"warn"`, `"svc.name":"jetstream-ingest"`, `"svc.failures":3`, "service restarted"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output: %s", want, out)
		}
	}
}
