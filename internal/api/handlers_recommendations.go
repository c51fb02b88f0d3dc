// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/curatarr/internal/models"
	"github.com/tomtom215/curatarr/internal/recommend"
	"github.com/tomtom215/curatarr/internal/store"
)

const (
	defaultRecommendationLimit = 100
	maxRecommendationLimit     = 1000
)

// StatusUpdateRequest is the body of PUT /recommendations/{id}/status.
// added is reachable only through a commit.
type StatusUpdateRequest struct {
	Status models.Status `json:"status" validate:"required,oneof=pending approved rejected"`
}

// ListRecommendations returns recommendations newest first, optionally
// filtered by ?status=.
func (h *Handler) ListRecommendations(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	status := models.Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		rw.BadRequest("status must be one of: pending approved rejected added")
		return
	}
	limit := getIntParam(r, "limit", defaultRecommendationLimit, maxRecommendationLimit)

	recs, err := h.store.List(r.Context(), status, limit)
	if err != nil {
		rw.StoreError(err)
		return
	}
	if recs == nil {
		recs = []models.Recommendation{}
	}
	rw.SuccessList(recs, len(recs))
}

// GetRecommendation returns a single recommendation.
func (h *Handler) GetRecommendation(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondRecordError(w, r, err)
		return
	}
	WriteSuccess(w, r, rec)
}

// UpdateRecommendationStatus moves a recommendation between pending,
// approved and rejected.
func (h *Handler) UpdateRecommendationStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusUpdateRequest
	if !decodeAndValidate(w, r, &req, false) {
		return
	}

	rec, err := h.engine.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.respondRecordError(w, r, err)
		return
	}
	WriteSuccess(w, r, rec)
}

// CommitRecommendation adds a recommendation to its library target. The
// body is optional. A title already in the library is a 200 whose result
// has success=false and already_exists=true; any other failed commit is a
// 422 carrying the result as details.
func (h *Handler) CommitRecommendation(w http.ResponseWriter, r *http.Request) {
	var opts recommend.CommitOptions
	if !decodeAndValidate(w, r, &opts, true) {
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := h.store.Get(r.Context(), id); err != nil {
		h.respondRecordError(w, r, err)
		return
	}

	res := h.engine.Commit(r.Context(), id, opts)
	switch {
	case res.Success, res.AlreadyExists:
		WriteSuccess(w, r, res)
	default:
		NewResponseWriter(w, r).ErrorWithDetails(http.StatusUnprocessableEntity, ErrCodeCommitFailed, res.Message, res)
	}
}

// respondRecordError maps store errors to responses.
func (h *Handler) respondRecordError(w http.ResponseWriter, r *http.Request, err error) {
	rw := NewResponseWriter(w, r)
	switch {
	case errors.Is(err, store.ErrNotFound):
		rw.NotFound("recommendation not found")
	case errors.Is(err, store.ErrInvalidTransition):
		rw.Conflict(err.Error())
	default:
		rw.StoreError(err)
	}
}
