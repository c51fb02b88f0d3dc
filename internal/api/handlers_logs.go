// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package api

import (
	"net/http"

	"github.com/tomtom215/curatarr/internal/models"
)

const (
	defaultLogLimit = 100
	maxLogLimit     = 1000
)

// ListLogs returns the newest user-facing log entries.
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	limit := getIntParam(r, "limit", defaultLogLimit, maxLogLimit)
	entries, err := h.store.ListLogs(r.Context(), limit)
	if err != nil {
		NewResponseWriter(w, r).StoreError(err)
		return
	}
	if entries == nil {
		entries = []models.LogEntry{}
	}
	NewResponseWriter(w, r).SuccessList(entries, len(entries))
}
