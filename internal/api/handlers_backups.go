// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/curatarr/internal/backup"
	"github.com/tomtom215/curatarr/internal/logging"
)

const backupsDisabled = "backups are disabled"

// BackupVerification is the body of a verify response. A snapshot that
// fails verification is still a 200; Valid says whether it can be restored.
type BackupVerification struct {
	ID    string `json:"id"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ListBackups returns the snapshots on disk, newest first.
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		NewResponseWriter(w, r).ServiceUnavailable(backupsDisabled)
		return
	}
	list, err := h.backups.List()
	if err != nil {
		NewResponseWriter(w, r).StoreError(err)
		return
	}
	if list == nil {
		list = []backup.Backup{}
	}
	NewResponseWriter(w, r).SuccessList(list, len(list))
}

// CreateBackup takes a snapshot synchronously and returns it with 201.
func (h *Handler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		NewResponseWriter(w, r).ServiceUnavailable(backupsDisabled)
		return
	}
	b, err := h.backups.Create(r.Context(), backup.TriggerManual)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Manual backup failed")
		NewResponseWriter(w, r).Error(http.StatusInternalServerError, ErrCodeBackupFailed, "backup failed")
		return
	}
	NewResponseWriter(w, r).Created(b)
}

// VerifyBackup checks one snapshot's checksum and gzip stream.
func (h *Handler) VerifyBackup(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		NewResponseWriter(w, r).ServiceUnavailable(backupsDisabled)
		return
	}
	id := chi.URLParam(r, "id")
	err := h.backups.Verify(id)
	if errors.Is(err, backup.ErrNotFound) {
		NewResponseWriter(w, r).NotFound("backup not found")
		return
	}
	result := BackupVerification{ID: id, Valid: err == nil}
	if err != nil {
		result.Error = err.Error()
	}
	WriteSuccess(w, r, result)
}
