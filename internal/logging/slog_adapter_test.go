// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newBufferedSlog(buf *bytes.Buffer) *slog.Logger {
	return slog.New(NewSlogHandlerWithLogger(zerolog.New(buf)))
}

func TestSlogHandler_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level slog.Level
		want  string
	}{
		{slog.LevelInfo, "info"},
		{slog.LevelWarn, "warn"},
		{slog.LevelError, "error"},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		newBufferedSlog(&buf).Log(context.Background(), tt.level, "msg")
		if !strings.Contains(buf.String(), `"level":"`+tt.want+`"`) {
			t.Errorf("level %v: got %s", tt.level, buf.String())
		}
	}
}

func TestSlogHandler_Enabled(t *testing.T) {
	t.Parallel()

	h := NewSlogHandlerWithLogger(zerolog.New(&bytes.Buffer{}).Level(zerolog.WarnLevel))
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled for a warn logger")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled for a warn logger")
	}
}

func TestSlogHandler_AttrsAndGroups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newBufferedSlog(&buf).With("service", "scheduler").WithGroup("supervisor")
	logger.Info("restart",
		"attempt", 2,
		"backoff", 15*time.Second,
		"healthy", false,
		slog.Group("detail", "reason", "panic"),
	)

	out := buf.String()
	for _, want := range []string{
		`"service":"scheduler"`,
		`"supervisor.attempt":2`,
		`"supervisor.healthy":false`,
		`"supervisor.detail.reason":"panic"`,
		`"message":"restart"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}

func TestSlogHandler_WithGroupEmpty(t *testing.T) {
	t.Parallel()

	h := NewSlogHandler()
	if h.WithGroup("") != h {
		t.Error("WithGroup(\"\") should return the same handler")
	}
}

func TestSlogToZerologLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   slog.Level
		want zerolog.Level
	}{
		{slog.LevelDebug - 4, zerolog.TraceLevel},
		{slog.LevelDebug, zerolog.DebugLevel},
		{slog.LevelInfo, zerolog.InfoLevel},
		{slog.LevelWarn, zerolog.WarnLevel},
		{slog.LevelError + 4, zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		if got := slogToZerologLevel(tt.in); got != tt.want {
			t.Errorf("slogToZerologLevel(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewSlogLogger(t *testing.T) {
	t.Parallel()

	if NewSlogLogger() == nil {
		t.Fatal("expected logger")
	}
}
