// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package logging

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// WatermillLogger routes watermill's internal logging into zerolog.
type WatermillLogger struct {
	logger zerolog.Logger
	fields watermill.LogFields
}

var _ watermill.LoggerAdapter = (*WatermillLogger)(nil)

// NewWatermillLogger wraps the global logger with component=events.
func NewWatermillLogger() *WatermillLogger {
	return NewWatermillLoggerWithLogger(WithComponent("events"))
}

// NewWatermillLoggerWithLogger wraps a specific zerolog logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewWatermillLoggerWithLogger(logger zerolog.Logger) *WatermillLogger {
	return &WatermillLogger{logger: logger}
}

// Error implements watermill.LoggerAdapter.
func (w *WatermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	w.write(w.logger.Error().Err(err), fields).Msg(msg)
}

// Info implements watermill.LoggerAdapter.
func (w *WatermillLogger) Info(msg string, fields watermill.LogFields) {
	w.write(w.logger.Info(), fields).Msg(msg)
}

// Debug implements watermill.LoggerAdapter.
func (w *WatermillLogger) Debug(msg string, fields watermill.LogFields) {
	w.write(w.logger.Debug(), fields).Msg(msg)
}

// Trace implements watermill.LoggerAdapter.
func (w *WatermillLogger) Trace(msg string, fields watermill.LogFields) {
	w.write(w.logger.Trace(), fields).Msg(msg)
}

// With implements watermill.LoggerAdapter.
func (w *WatermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &WatermillLogger{logger: w.logger, fields: w.fields.Add(fields)}
}

func (w *WatermillLogger) write(event *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	for k, v := range w.fields {
		event = event.Interface(k, v)
	}
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	return event
}
