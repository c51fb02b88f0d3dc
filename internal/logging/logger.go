// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

// Package logging provides the process-wide zerolog logger for Curatarr.
//
// Every package logs through this wrapper so that level, format and caller
// settings from configuration apply uniformly:
//
//	logging.Init(logging.Config{Level: "debug", Format: "console"})
//	logging.Info().Str("run_id", id).Msg("Run started")
//	logging.Ctx(ctx).Warn().Err(err).Msg("Library snapshot incomplete")
//
// Always terminate event chains with .Msg() or .Send(); an unterminated
// chain is never written.
package logging

import (
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration. The zero value logs JSON at info
// level to stderr with timestamps.
type Config struct {
	// Level is the minimum log level: trace, debug, info, warn, error,
	// fatal or disabled. Unknown values mean info.
	Level string

	// Format is json (default) or console.
	Format string

	// Caller adds file:line to every entry.
	Caller bool

	// OmitTimestamp drops the time field, for golden-output tests.
	OmitTimestamp bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "json", Output: os.Stderr}
}

var global atomic.Pointer[zerolog.Logger]

//nolint:gochecknoinits // logging must work before Init is called from main
func init() {
	Init(DefaultConfig())
}

// Init replaces the global logger and sets the global level. Safe to call
// more than once.
func Init(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	lc := zerolog.New(out).With()
	if !cfg.OmitTimestamp {
		lc = lc.Timestamp()
	}
	if cfg.Caller {
		lc = lc.Caller()
	}
	SetLogger(lc.Logger())
}

var levels = map[string]zerolog.Level{
	"trace":    zerolog.TraceLevel,
	"debug":    zerolog.DebugLevel,
	"info":     zerolog.InfoLevel,
	"warn":     zerolog.WarnLevel,
	"warning":  zerolog.WarnLevel,
	"error":    zerolog.ErrorLevel,
	"fatal":    zerolog.FatalLevel,
	"disabled": zerolog.Disabled,
}

func parseLevel(level string) zerolog.Level {
	if l, ok := levels[strings.ToLower(strings.TrimSpace(level))]; ok {
		return l
	}
	return zerolog.InfoLevel
}

// Logger returns a copy of the global logger.
func Logger() zerolog.Logger {
	return *global.Load()
}

// SetLogger replaces the global logger, mainly for tests.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func SetLogger(l zerolog.Logger) {
	global.Store(&l)
}

// SetLevelString updates the global level from a string.
func SetLevelString(level string) {
	zerolog.SetGlobalLevel(parseLevel(level))
}

// With creates a child logger context on the global logger.
func With() zerolog.Context { return global.Load().With() }

func Debug() *zerolog.Event { return global.Load().Debug() }

func Info() *zerolog.Event { return global.Load().Info() }

func Warn() *zerolog.Event { return global.Load().Warn() }

func Error() *zerolog.Event { return global.Load().Error() }

// Fatal starts a fatal message; os.Exit(1) follows the write.
func Fatal() *zerolog.Event { return global.Load().Fatal() }

// Err starts an error level message carrying err, or an info message when
// err is nil.
func Err(err error) *zerolog.Event { return global.Load().Err(err) }

// NewTestLogger creates a JSON logger that writes to w.
//
//	var buf bytes.Buffer
//	logger := logging.NewTestLogger(&buf)
func NewTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
