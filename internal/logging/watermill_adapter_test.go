// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

func TestWatermillLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := NewWatermillLoggerWithLogger(zerolog.New(&buf))
	logger := base.With(watermill.LogFields{"topic": "run.completed"})

	logger.Info("published", watermill.LogFields{"uuid": "m-1"})
	out := buf.String()
	if !strings.Contains(out, `"topic":"run.completed"`) || !strings.Contains(out, `"uuid":"m-1"`) {
		t.Errorf("expected merged fields, got: %s", out)
	}

	buf.Reset()
	logger.Error("publish failed", errors.New("closed"), nil)
	if !strings.Contains(buf.String(), `"error":"closed"`) {
		t.Errorf("expected error field, got: %s", buf.String())
	}

	buf.Reset()
	base.Debug("plain", nil)
	if strings.Contains(buf.String(), "topic") {
		t.Errorf("With must not mutate the parent adapter: %s", buf.String())
	}
}
