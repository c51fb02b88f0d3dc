// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig tunes restart behavior. Zero fields take DefaultTreeConfig's
// values.
type TreeConfig struct {
	// FailureThreshold is the failure count that puts a layer into backoff.
	FailureThreshold float64

	// FailureDecay is the half-life of the failure count, in seconds.
	FailureDecay float64

	// FailureBackoff is how long a layer waits once over the threshold.
	FailureBackoff time.Duration

	// ShutdownTimeout bounds each service's stop on cancellation.
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns suture's own defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

func (c TreeConfig) withDefaults() TreeConfig {
	def := DefaultTreeConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = def.FailureThreshold
	}
	if c.FailureDecay <= 0 {
		c.FailureDecay = def.FailureDecay
	}
	if c.FailureBackoff <= 0 {
		c.FailureBackoff = def.FailureBackoff
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
	return c
}

func (c TreeConfig) spec() suture.Spec {
	return suture.Spec{
		FailureThreshold: c.FailureThreshold,
		FailureDecay:     c.FailureDecay,
		FailureBackoff:   c.FailureBackoff,
		Timeout:          c.ShutdownTimeout,
	}
}

// Layer names one child supervisor of the tree.
type Layer int

const (
	// DataLayer holds store maintenance: log sink, GC, backups.
	DataLayer Layer = iota
	// EngineLayer holds the websocket hub, event forwarder and scheduler.
	EngineLayer
	// APILayer holds the HTTP server.
	APILayer
)

var layerNames = [...]string{"data-layer", "engine-layer", "api-layer"}

func (l Layer) String() string {
	if l < 0 || int(l) >= len(layerNames) {
		return "unknown-layer"
	}
	return layerNames[l]
}

// SupervisorTree is the process supervision hierarchy. Each layer restarts
// and backs off on its own, so a crashing scheduler never takes the API
// down with it.
type SupervisorTree struct {
	root   *suture.Supervisor
	layers [len(layerNames)]*suture.Supervisor
	config TreeConfig
}

// NewSupervisorTree builds the root and its three layers. Supervisor events
// are logged to logger through sutureslog.
func NewSupervisorTree(logger *slog.Logger, config TreeConfig) (*SupervisorTree, error) {
	if logger == nil {
		return nil, errors.New("supervisor logger is required")
	}
	config = config.withDefaults()

	hook := (&sutureslog.Handler{Logger: logger}).MustHook()
	rootSpec := config.spec()
	rootSpec.EventHook = hook

	t := &SupervisorTree{
		root:   suture.New("curatarr", rootSpec),
		config: config,
	}
	// Children inherit the root's EventHook when added.
	for i := range t.layers {
		t.layers[i] = suture.New(layerNames[i], config.spec())
		t.root.Add(t.layers[i])
	}
	return t, nil
}

// Add adds svc to a layer. It panics on an unknown layer.
func (t *SupervisorTree) Add(layer Layer, svc suture.Service) suture.ServiceToken {
	return t.layers[layer].Add(svc)
}

func (t *SupervisorTree) AddDataService(svc suture.Service) suture.ServiceToken {
	return t.Add(DataLayer, svc)
}

func (t *SupervisorTree) AddEngineService(svc suture.Service) suture.ServiceToken {
	return t.Add(EngineLayer, svc)
}

func (t *SupervisorTree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.Add(APILayer, svc)
}

// ServeBackground starts the tree in a goroutine. The channel receives the
// result when the tree stops.
func (t *SupervisorTree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that missed the shutdown timeout.
func (t *SupervisorTree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
