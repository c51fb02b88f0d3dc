// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/curatarr/internal/auth"
	"github.com/tomtom215/curatarr/internal/backup"
)

type mockBackups struct {
	list      []backup.Backup
	listErr   error
	createErr error
	triggers  []backup.Trigger
	verify    map[string]error
}

func (m *mockBackups) Create(_ context.Context, trigger backup.Trigger) (*backup.Backup, error) {
	m.triggers = append(m.triggers, trigger)
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &backup.Backup{
		ID:        "ab12cd34",
		Trigger:   trigger,
		File:      "backup-manual-20260301T120000Z-ab12cd34.badger.gz",
		Size:      512,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}, nil
}

func (m *mockBackups) List() ([]backup.Backup, error) {
	return m.list, m.listErr
}

func (m *mockBackups) Verify(id string) error {
	err, ok := m.verify[id]
	if !ok {
		return backup.ErrNotFound
	}
	return err
}

func newBackupEnv(t *testing.T, mb *mockBackups) *testEnv {
	t.Helper()
	env := newTestEnv(t)
	env.backups = mb
	env.build(t, auth.AuthModeNone, nil, nil)
	return env
}

func TestBackups_DisabledReturns503(t *testing.T) {
	env := newTestEnv(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/backups"},
		{http.MethodPost, "/api/v1/backups"},
		{http.MethodPost, "/api/v1/backups/ab12cd34/verify"},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			resp := expectError(t, env.do(t, tc.method, tc.path, ""), http.StatusServiceUnavailable, ErrCodeServiceUnavailable)
			if resp.Error.Message != backupsDisabled {
				t.Errorf("message = %q", resp.Error.Message)
			}
		})
	}
}

func TestListBackups(t *testing.T) {
	mb := &mockBackups{list: []backup.Backup{
		{ID: "bbbb2222", Trigger: backup.TriggerScheduled},
		{ID: "aaaa1111", Trigger: backup.TriggerManual},
	}}
	env := newBackupEnv(t, mb)

	rec := env.do(t, http.MethodGet, "/api/v1/backups", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body.String())
	}
	var got []backup.Backup
	resp := decodeData(t, rec, &got)
	if len(got) != 2 || got[0].ID != "bbbb2222" {
		t.Errorf("backups = %+v", got)
	}
	if resp.Meta == nil || resp.Meta.Count == nil || *resp.Meta.Count != 2 {
		t.Errorf("meta count = %+v", resp.Meta)
	}
}

func TestListBackups_Empty(t *testing.T) {
	env := newBackupEnv(t, &mockBackups{})
	rec := env.do(t, http.MethodGet, "/api/v1/backups", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Errorf("body = %s, want empty array", rec.Body.String())
	}
}

func TestListBackups_Error(t *testing.T) {
	env := newBackupEnv(t, &mockBackups{listErr: fmt.Errorf("read /data/backups: %w", errFake)})
	rec := env.do(t, http.MethodGet, "/api/v1/backups", "")
	expectError(t, rec, http.StatusInternalServerError, ErrCodeStoreError)
	if strings.Contains(rec.Body.String(), "/data/backups") {
		t.Errorf("error leaked path: %s", rec.Body.String())
	}
}

func TestCreateBackup(t *testing.T) {
	mb := &mockBackups{}
	env := newBackupEnv(t, mb)

	rec := env.do(t, http.MethodPost, "/api/v1/backups", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body.String())
	}
	var got backup.Backup
	decodeData(t, rec, &got)
	if got.ID != "ab12cd34" || got.Size != 512 {
		t.Errorf("backup = %+v", got)
	}
	if len(mb.triggers) != 1 || mb.triggers[0] != backup.TriggerManual {
		t.Errorf("triggers = %v, want [manual]", mb.triggers)
	}
}

func TestCreateBackup_Failure(t *testing.T) {
	env := newBackupEnv(t, &mockBackups{createErr: errFake})
	rec := env.do(t, http.MethodPost, "/api/v1/backups", "")
	expectError(t, rec, http.StatusInternalServerError, ErrCodeBackupFailed)
	if strings.Contains(rec.Body.String(), errFake.Error()) {
		t.Errorf("error leaked cause: %s", rec.Body.String())
	}
}

func TestVerifyBackup(t *testing.T) {
	mb := &mockBackups{verify: map[string]error{
		"good0001": nil,
		"bad00002": fmt.Errorf("backup-x.badger.gz: %w", backup.ErrChecksumMismatch),
	}}
	env := newBackupEnv(t, mb)

	tests := []struct {
		id        string
		wantValid bool
	}{
		{"good0001", true},
		{"bad00002", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/backups/"+tt.id+"/verify", "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d; body %s", rec.Code, rec.Body.String())
			}
			var got BackupVerification
			decodeData(t, rec, &got)
			if got.ID != tt.id || got.Valid != tt.wantValid {
				t.Errorf("verification = %+v", got)
			}
			if !tt.wantValid && !strings.Contains(got.Error, "checksum mismatch") {
				t.Errorf("error = %q", got.Error)
			}
		})
	}

	expectError(t, env.do(t, http.MethodPost, "/api/v1/backups/missing0/verify", ""), http.StatusNotFound, ErrCodeNotFound)
}
