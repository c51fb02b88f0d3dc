// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/curatarr/internal/config"
)

const testSecret = "this_is_a_very_long_secret_key_for_testing_purposes_12345"

func newTestJWTManager(t *testing.T, timeout time.Duration) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret, SessionTimeout: timeout})
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	return m
}

func TestNewJWTManager(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *config.SecurityConfig
		wantErr     bool
		wantTimeout time.Duration
	}{
		{
			name:        "valid secret",
			cfg:         &config.SecurityConfig{JWTSecret: testSecret, SessionTimeout: time.Hour},
			wantTimeout: time.Hour,
		},
		{
			name:        "default timeout",
			cfg:         &config.SecurityConfig{JWTSecret: testSecret},
			wantTimeout: 24 * time.Hour,
		},
		{
			name:    "empty secret",
			cfg:     &config.SecurityConfig{SessionTimeout: time.Hour},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager, err := NewJWTManager(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("NewJWTManager() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewJWTManager() unexpected error = %v", err)
			}
			if manager.Timeout() != tt.wantTimeout {
				t.Errorf("Timeout() = %v, want %v", manager.Timeout(), tt.wantTimeout)
			}
		})
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	m := newTestJWTManager(t, time.Hour)

	token, expires, err := m.GenerateToken("admin")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if token == "" {
		t.Fatal("GenerateToken() returned empty token")
	}
	if d := time.Until(expires); d < 59*time.Minute || d > time.Hour {
		t.Errorf("expiry in %v, want about 1h", d)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Username != "admin" || claims.Subject != "admin" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.Issuer != tokenIssuer {
		t.Errorf("Issuer = %q", claims.Issuer)
	}
}

func TestValidateToken_Rejects(t *testing.T) {
	m := newTestJWTManager(t, time.Hour)

	expired := newTestJWTManager(t, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, _, err := expired.GenerateToken("admin")
	if err != nil {
		t.Fatal(err)
	}

	other, err := NewJWTManager(&config.SecurityConfig{JWTSecret: strings.Repeat("x", 40)})
	if err != nil {
		t.Fatal(err)
	}
	foreignToken, _, err := other.GenerateToken("admin")
	if err != nil {
		t.Fatal(err)
	}

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		Username:         "admin",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: tokenIssuer},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Username: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"expired", expiredToken},
		{"wrong secret", foreignToken},
		{"alg none", noneToken},
		{"wrong issuer", wrongIssuer},
		{"malformed", "not.a.token"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.ValidateToken(tt.token); err == nil {
				t.Error("ValidateToken() expected error, got nil")
			}
		})
	}
}
