// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package store

import (
	"context"
	"time"

	"github.com/tomtom215/curatarr/internal/logging"
	"github.com/tomtom215/curatarr/internal/metrics"
	"github.com/tomtom215/curatarr/internal/models"
)

const (
	defaultLogBufferSize  = 1024
	defaultLogRetainCount = 5000
	logFlushBatch         = 64
	logTrimEvery          = 256
)

// LogWriter is the persistence LogSink drains into.
type LogWriter interface {
	AppendLogs(ctx context.Context, entries []models.LogEntry) error
	TrimLogs(ctx context.Context, keep int) (int, error)
}

// LogSink accepts user-facing log entries without blocking the caller and
// writes them to the store from a single goroutine. Entries that arrive while
// the buffer is full are dropped and counted.
type LogSink struct {
	writer  LogWriter
	entries chan models.LogEntry
	retain  int
	now     func() time.Time
}

// NewLogSink creates a sink. Non-positive sizes use the defaults.
func NewLogSink(writer LogWriter, bufferSize, retain int) *LogSink {
	if bufferSize <= 0 {
		bufferSize = defaultLogBufferSize
	}
	if retain <= 0 {
		retain = defaultLogRetainCount
	}
	return &LogSink{
		writer:  writer,
		entries: make(chan models.LogEntry, bufferSize),
		retain:  retain,
		now:     time.Now,
	}
}

// Record enqueues an entry. It never blocks.
func (l *LogSink) Record(level models.LogLevel, message, source string) {
	entry := models.LogEntry{
		Time:    l.now().UTC(),
		Level:   level,
		Message: message,
		Source:  source,
	}
	select {
	case l.entries <- entry:
	default:
		metrics.LogEntriesDropped.Inc()
	}
}

// RunWithContext drains the buffer into the writer until ctx is canceled,
// then flushes what is still queued.
func (l *LogSink) RunWithContext(ctx context.Context) error {
	batch := make([]models.LogEntry, 0, logFlushBatch)
	written := 0

	flush := func(flushCtx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := l.writer.AppendLogs(flushCtx, batch); err != nil {
			logging.Warn().Err(err).Int("entries", len(batch)).Msg("Failed to persist log entries")
		}
		written += len(batch)
		batch = batch[:0]

		if written >= logTrimEvery {
			written = 0
			if n, err := l.writer.TrimLogs(flushCtx, l.retain); err != nil {
				logging.Warn().Err(err).Msg("Failed to trim log entries")
			} else if n > 0 {
				logging.Debug().Int("removed", n).Msg("Trimmed log entries")
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case entry := <-l.entries:
					batch = append(batch, entry)
				default:
					flush(context.Background())
					return ctx.Err()
				}
			}
		case entry := <-l.entries:
			batch = append(batch, entry)
			// Drain whatever is already queued before writing.
		drain:
			for len(batch) < logFlushBatch {
				select {
				case next := <-l.entries:
					batch = append(batch, next)
				default:
					break drain
				}
			}
			flush(ctx)
		}
	}
}
