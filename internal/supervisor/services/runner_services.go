// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package services

import (
	"context"
)

// ContextRunner is satisfied by every component that runs until its context
// is canceled: *websocket.Hub, *events.Forwarder and *store.LogSink.
type ContextRunner interface {
	RunWithContext(ctx context.Context) error
}

// runnerService delegates Serve to RunWithContext.
type runnerService struct {
	runner ContextRunner
	name   string
}

// Serve implements suture.Service.
func (s *runnerService) Serve(ctx context.Context) error {
	return s.runner.RunWithContext(ctx)
}

// String implements fmt.Stringer for suture's logs.
func (s *runnerService) String() string {
	return s.name
}

// WebSocketHubService supervises the websocket hub. On shutdown the hub
// closes every client before returning.
type WebSocketHubService struct{ runnerService }

// NewWebSocketHubService creates a new WebSocket hub service wrapper.
func NewWebSocketHubService(hub ContextRunner) *WebSocketHubService {
	return &WebSocketHubService{runnerService{runner: hub, name: "websocket-hub"}}
}

// EventForwarderService supervises the bus-to-websocket relay.
type EventForwarderService struct{ runnerService }

// NewEventForwarderService creates a new event forwarder service wrapper.
func NewEventForwarderService(fwd ContextRunner) *EventForwarderService {
	return &EventForwarderService{runnerService{runner: fwd, name: "event-forwarder"}}
}

// LogSinkService supervises the log sink. On shutdown the sink flushes what
// it has queued.
type LogSinkService struct{ runnerService }

// NewLogSinkService creates a new log sink service wrapper.
func NewLogSinkService(sink ContextRunner) *LogSinkService {
	return &LogSinkService{runnerService{runner: sink, name: "log-sink"}}
}
