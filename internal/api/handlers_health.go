// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/curatarr/internal/models"
)

const readinessTimeout = 2 * time.Second

// ReadyStatus is the body of a successful readiness probe.
type ReadyStatus struct {
	Ready           bool                  `json:"ready"`
	RunInProgress   bool                  `json:"run_in_progress"`
	Recommendations map[models.Status]int `json:"recommendations"`
	WSClients       int                   `json:"ws_clients"`
	Uptime          float64               `json:"uptime_seconds"`
}

// HealthLive handles liveness probe requests.
// Returns 200 OK if the process is alive, regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probe requests. The service is ready when
// the store answers a read; external services are not probed, since a run
// already tolerates them being down.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	counts, err := h.store.CountByStatus(ctx)
	if err != nil {
		NewResponseWriter(w, r).ServiceUnavailable("store not ready")
		return
	}

	status := ReadyStatus{
		Ready:           true,
		RunInProgress:   h.engine.Status().Running,
		Recommendations: counts,
		Uptime:          time.Since(h.startTime).Seconds(),
	}
	if h.hub != nil {
		status.WSClients = h.hub.GetClientCount()
	}
	WriteSuccess(w, r, status)
}
