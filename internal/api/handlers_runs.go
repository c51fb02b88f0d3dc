// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/curatarr/internal/models"
	"github.com/tomtom215/curatarr/internal/recommend"
)

const (
	apiTrigger      = "api"
	defaultRunLimit = 20
	maxRunLimit     = 200
)

// TriggerRun runs one reconciliation pass with the filters in the optional
// body and returns its result. The run is detached from the request, so a
// client disconnect does not abort it; it is bounded by the run timeout
// instead. A run already in progress yields 409.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	var filters models.Filters
	if !decodeAndValidate(w, r, &filters, true) {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.runTimeout)
	defer cancel()

	res, err := h.engine.RunOnce(recommend.WithTrigger(ctx, apiTrigger), filters)
	if errors.Is(err, recommend.ErrAlreadyRunning) {
		NewResponseWriter(w, r).Conflict(err.Error())
		return
	}
	if err != nil {
		NewResponseWriter(w, r).InternalError(err.Error())
		return
	}
	WriteSuccess(w, r, res)
}

// RunStatus returns the running flag and the last finished run.
func (h *Handler) RunStatus(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, h.engine.Status())
}

// ListRuns returns persisted run records, newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := getIntParam(r, "limit", defaultRunLimit, maxRunLimit)
	runs, err := h.store.ListRuns(r.Context(), limit)
	if err != nil {
		NewResponseWriter(w, r).StoreError(err)
		return
	}
	if runs == nil {
		runs = []models.RunRecord{}
	}
	NewResponseWriter(w, r).SuccessList(runs, len(runs))
}
