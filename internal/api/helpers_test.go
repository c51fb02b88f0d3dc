// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/curatarr/internal/auth"
	"github.com/tomtom215/curatarr/internal/config"
	"github.com/tomtom215/curatarr/internal/logging"
	"github.com/tomtom215/curatarr/internal/models"
	"github.com/tomtom215/curatarr/internal/recommend"
	"github.com/tomtom215/curatarr/internal/store"
	"github.com/tomtom215/curatarr/internal/websocket"
)

//nolint:gochecknoinits // init keeps test output quiet
func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

var errFake = errors.New("fake failure")

type mockEngine struct {
	mu sync.Mutex

	runResult   *models.RunResult
	runErr      error
	runFilters  []models.Filters
	runDeadline bool
	runCanceled bool

	status recommend.Status

	setStatusErr error
	setStatusIDs []string
	setStatusTo  []models.Status

	commitResult recommend.CommitResult
	commitOpts   []recommend.CommitOptions
}

func (m *mockEngine) RunOnce(ctx context.Context, filters models.Filters) (*models.RunResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runFilters = append(m.runFilters, filters)
	_, m.runDeadline = ctx.Deadline()
	m.runCanceled = ctx.Err() != nil
	if m.runErr != nil {
		return nil, m.runErr
	}
	if m.runResult != nil {
		return m.runResult, nil
	}
	return models.NewRunResult(), nil
}

func (m *mockEngine) Status() recommend.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *mockEngine) SetStatus(_ context.Context, id string, status models.Status) (*models.Recommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setStatusIDs = append(m.setStatusIDs, id)
	m.setStatusTo = append(m.setStatusTo, status)
	if m.setStatusErr != nil {
		return nil, m.setStatusErr
	}
	return &models.Recommendation{ID: id, Status: status}, nil
}

func (m *mockEngine) Commit(_ context.Context, _ string, opts recommend.CommitOptions) recommend.CommitResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commitOpts = append(m.commitOpts, opts)
	return m.commitResult
}

type mockStore struct {
	recs    map[string]*models.Recommendation
	listArg struct {
		status models.Status
		limit  int
	}
	runs     []models.RunRecord
	runLimit int
	logs     []models.LogEntry
	logLimit int
	counts   map[models.Status]int
	err      error
}

func (s *mockStore) Get(_ context.Context, id string) (*models.Recommendation, error) {
	if s.err != nil {
		return nil, s.err
	}
	rec, ok := s.recs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return rec, nil
}

func (s *mockStore) List(_ context.Context, status models.Status, limit int) ([]models.Recommendation, error) {
	s.listArg.status, s.listArg.limit = status, limit
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Recommendation
	for _, rec := range s.recs {
		if status == "" || rec.Status == status {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (s *mockStore) CountByStatus(context.Context) (map[models.Status]int, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.counts, nil
}

func (s *mockStore) ListRuns(_ context.Context, limit int) ([]models.RunRecord, error) {
	s.runLimit = limit
	return s.runs, s.err
}

func (s *mockStore) ListLogs(_ context.Context, limit int) ([]models.LogEntry, error) {
	s.logLimit = limit
	return s.logs, s.err
}

// testEnv is a router over mocks with auth disabled unless a test swaps
// the auth middleware.
type testEnv struct {
	engine  *mockEngine
	store   *mockStore
	hub     *websocket.Hub
	backups Backups
	cfg     *config.Config
	handler *Handler
	router  http.Handler
}

func newTestConfig() *config.Config {
	return &config.Config{
		Schedule: config.ScheduleConfig{RunTimeout: time.Minute},
		Security: config.SecurityConfig{
			AuthMode:          "none",
			RateLimitDisabled: true,
			CORSOrigins:       []string{"http://localhost:3000"},
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		engine: &mockEngine{},
		store:  &mockStore{recs: map[string]*models.Recommendation{}},
		hub:    websocket.NewHub(),
		cfg:    newTestConfig(),
	}
	env.build(t, auth.AuthModeNone, nil, nil)
	return env
}

func (env *testEnv) build(t *testing.T, mode auth.AuthMode, jm *auth.JWTManager, admin *auth.BasicAuthManager) {
	t.Helper()
	env.handler = NewHandler(HandlerDeps{
		Engine:  env.engine,
		Store:   env.store,
		Hub:     env.hub,
		Backups: env.backups,
		JWT:     jm,
		Admin:   admin,
		Lockout: auth.NewLockoutManager(auth.LockoutConfig{MaxAttempts: 2, LockoutDuration: time.Minute}),
	}, env.cfg)
	mw, err := auth.NewMiddleware(jm, admin, mode, AuthDenied)
	if err != nil {
		t.Fatalf("NewMiddleware() error = %v", err)
	}
	env.router = NewRouter(env.handler, mw, NewChiMiddleware(ChiMiddlewareConfigFromSecurity(&env.cfg.Security))).SetupChi()
}

func (env *testEnv) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

type testResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) testResponse {
	t.Helper()
	var resp testResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) testResponse {
	t.Helper()
	resp := decodeResponse(t, rec)
	if err := json.Unmarshal(resp.Data, dst); err != nil {
		t.Fatalf("decode data %s: %v", resp.Data, err)
	}
	return resp
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) testResponse {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d; body %s", rec.Code, status, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	if resp.Success || resp.Error == nil {
		t.Fatalf("expected error envelope, got %s", rec.Body.String())
	}
	if resp.Error.Code != code {
		t.Errorf("error code = %q, want %q", resp.Error.Code, code)
	}
	return resp
}
