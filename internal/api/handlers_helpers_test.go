// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSanitizeLogValue(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"admin", "admin"},
		{"admin\nforged line", `admin\x0aforged line`},
		{"a\x7fb", `a\x7fb`},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeLogValue(tt.in); got != tt.want {
			t.Errorf("sanitizeLogValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

type decodeTarget struct {
	Name string `json:"name"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		optional bool
		wantErr  bool
		want     string
	}{
		{"valid", `{"name":"x"}`, false, false, "x"},
		{"empty optional", "", true, false, ""},
		{"whitespace optional", "  \n", true, false, ""},
		{"empty required", "", false, true, ""},
		{"unknown field", `{"nom":"x"}`, true, true, ""},
		{"trailing object", `{"name":"x"}{"name":"y"}`, true, true, ""},
		{"malformed", `{"name":`, true, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst decodeTarget
			err := decodeJSON(httptest.NewRecorder(), req, &dst, tt.optional)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if dst.Name != tt.want {
				t.Errorf("name = %q, want %q", dst.Name, tt.want)
			}
		})
	}
}

func TestDecodeJSON_EmptyRequiredSentinel(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	err := decodeJSON(httptest.NewRecorder(), req, &decodeTarget{}, false)
	if !errors.Is(err, errEmptyBody) {
		t.Errorf("error = %v, want errEmptyBody", err)
	}
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	body := `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	err := decodeJSON(httptest.NewRecorder(), req, &decodeTarget{}, false)
	if err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Errorf("error = %v, want size error", err)
	}
}

func TestGetIntParam(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 20},
		{"limit=5", 5},
		{"limit=500", 200},
		{"limit=0", 20},
		{"limit=-3", 20},
		{"limit=abc", 20},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
		if got := getIntParam(req, "limit", 20, 200); got != tt.want {
			t.Errorf("getIntParam(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}
