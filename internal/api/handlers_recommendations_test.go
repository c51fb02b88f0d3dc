// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/tomtom215/curatarr/internal/models"
	"github.com/tomtom215/curatarr/internal/recommend"
	"github.com/tomtom215/curatarr/internal/store"
)

func seedRecommendation(env *testEnv, id, title string, status models.Status) {
	env.store.recs[id] = &models.Recommendation{
		ID:        id,
		Candidate: models.Candidate{Title: title, Kind: models.MediaMovie, TMDBID: 603},
		Status:    status,
	}
}

func TestListRecommendations(t *testing.T) {
	env := newTestEnv(t)
	seedRecommendation(env, "a", "The Matrix", models.StatusPending)
	seedRecommendation(env, "b", "Heat", models.StatusApproved)

	rec := env.do(t, http.MethodGet, "/api/v1/recommendations?status=approved&limit=10", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	var recs []models.Recommendation
	decodeData(t, rec, &recs)
	if len(recs) != 1 || recs[0].ID != "b" {
		t.Errorf("recs = %+v", recs)
	}
	if env.store.listArg.status != models.StatusApproved || env.store.listArg.limit != 10 {
		t.Errorf("store args = %+v", env.store.listArg)
	}
}

func TestListRecommendations_Defaults(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/recommendations", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if env.store.listArg.status != "" || env.store.listArg.limit != defaultRecommendationLimit {
		t.Errorf("store args = %+v", env.store.listArg)
	}
	if resp := decodeResponse(t, rec); string(resp.Data) != "[]" {
		t.Errorf("data = %s, want []", resp.Data)
	}
}

func TestListRecommendations_InvalidStatus(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/recommendations?status=bogus", "")
	expectError(t, rec, http.StatusBadRequest, ErrCodeBadRequest)
}

func TestGetRecommendation(t *testing.T) {
	env := newTestEnv(t)
	seedRecommendation(env, "a", "The Matrix", models.StatusPending)

	rec := env.do(t, http.MethodGet, "/api/v1/recommendations/a", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got models.Recommendation
	decodeData(t, rec, &got)
	if got.Title != "The Matrix" || got.TMDBID != 603 {
		t.Errorf("recommendation = %+v", got)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/recommendations/missing", "")
	expectError(t, rec, http.StatusNotFound, ErrCodeNotFound)
}

func TestUpdateRecommendationStatus(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/v1/recommendations/a/status", `{"status":"approved"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	if len(env.engine.setStatusIDs) != 1 || env.engine.setStatusIDs[0] != "a" ||
		env.engine.setStatusTo[0] != models.StatusApproved {
		t.Errorf("SetStatus calls = %v %v", env.engine.setStatusIDs, env.engine.setStatusTo)
	}
	var got models.Recommendation
	decodeData(t, rec, &got)
	if got.Status != models.StatusApproved {
		t.Errorf("status = %q, want approved", got.Status)
	}
}

func TestUpdateRecommendationStatus_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"added only via commit", `{"status":"added"}`, ErrCodeValidationFailed},
		{"unknown status", `{"status":"maybe"}`, ErrCodeValidationFailed},
		{"missing status", `{}`, ErrCodeValidationFailed},
		{"empty body", ``, ErrCodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(t, http.MethodPut, "/api/v1/recommendations/a/status", tt.body)
			resp := expectError(t, rec, http.StatusBadRequest, tt.code)
			if tt.code == ErrCodeValidationFailed && resp.Error.Details == nil {
				t.Error("validation error has no details")
			}
			if len(env.engine.setStatusIDs) != 0 {
				t.Error("SetStatus called for invalid input")
			}
		})
	}
}

func TestUpdateRecommendationStatus_EngineErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", store.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"illegal transition", fmt.Errorf("added to pending: %w", store.ErrInvalidTransition), http.StatusConflict, ErrCodeConflict},
		{"store failure", fmt.Errorf("write: %w", errFake), http.StatusInternalServerError, ErrCodeStoreError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.engine.setStatusErr = tt.err
			rec := env.do(t, http.MethodPut, "/api/v1/recommendations/a/status", `{"status":"pending"}`)
			expectError(t, rec, tt.status, tt.code)
		})
	}
}

func TestCommitRecommendation(t *testing.T) {
	tests := []struct {
		name   string
		result recommend.CommitResult
		status int
	}{
		{"success", recommend.CommitResult{Success: true, Message: "added The Matrix to Radarr"}, http.StatusOK},
		{"already exists", recommend.CommitResult{AlreadyExists: true, Message: "The Matrix is already in Radarr"}, http.StatusOK},
		{"refused", recommend.CommitResult{Message: "could not find title in Radarr"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			seedRecommendation(env, "a", "The Matrix", models.StatusApproved)
			env.engine.commitResult = tt.result

			rec := env.do(t, http.MethodPost, "/api/v1/recommendations/a/commit", "")
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d; body %s", rec.Code, tt.status, rec.Body.String())
			}
			resp := decodeResponse(t, rec)
			if tt.status == http.StatusOK {
				var got recommend.CommitResult
				decodeData(t, rec, &got)
				if got != tt.result {
					t.Errorf("result = %+v, want %+v", got, tt.result)
				}
				return
			}
			if resp.Error == nil || resp.Error.Code != ErrCodeCommitFailed || resp.Error.Message != tt.result.Message {
				t.Errorf("error = %+v", resp.Error)
			}
		})
	}
}

func TestCommitRecommendation_Options(t *testing.T) {
	env := newTestEnv(t)
	seedRecommendation(env, "a", "The Matrix", models.StatusApproved)
	env.engine.commitResult = recommend.CommitResult{Success: true}

	body := `{"quality_profile_id":4,"root_folder_path":"/movies","search_immediately":false}`
	rec := env.do(t, http.MethodPost, "/api/v1/recommendations/a/commit", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	opts := env.engine.commitOpts[0]
	if opts.QualityProfileID != 4 || opts.RootFolderPath != "/movies" ||
		opts.SearchImmediately == nil || *opts.SearchImmediately {
		t.Errorf("options = %+v", opts)
	}
}

func TestCommitRecommendation_InvalidOptions(t *testing.T) {
	env := newTestEnv(t)
	seedRecommendation(env, "a", "The Matrix", models.StatusApproved)

	rec := env.do(t, http.MethodPost, "/api/v1/recommendations/a/commit", `{"quality_profile_id":-1}`)
	expectError(t, rec, http.StatusBadRequest, ErrCodeValidationFailed)
	if len(env.engine.commitOpts) != 0 {
		t.Error("Commit called with invalid options")
	}
}

func TestCommitRecommendation_NotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/v1/recommendations/missing/commit", "")
	expectError(t, rec, http.StatusNotFound, ErrCodeNotFound)
	if len(env.engine.commitOpts) != 0 {
		t.Error("Commit called for a missing recommendation")
	}
}
