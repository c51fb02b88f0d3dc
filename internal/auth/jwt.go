// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/curatarr/internal/config"
)

const (
	tokenIssuer           = "curatarr"
	defaultSessionTimeout = 24 * time.Hour
)

// Claims represents JWT claims
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWTManager handles JWT token creation and validation
type JWTManager struct {
	secret  []byte
	timeout time.Duration
	now     func() time.Time
}

// NewJWTManager creates a JWT manager from the security config. Tokens are
// signed with HS256 and expire after SessionTimeout (24h when unset).
//
//	jwtManager, err := auth.NewJWTManager(&cfg.Security)
//	if err != nil {
//	    return fmt.Errorf("jwt: %w", err)
//	}
func NewJWTManager(cfg *config.SecurityConfig) (*JWTManager, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required but was empty")
	}
	timeout := cfg.SessionTimeout
	if timeout <= 0 {
		timeout = defaultSessionTimeout
	}

	return &JWTManager{
		secret:  []byte(cfg.JWTSecret),
		timeout: timeout,
		now:     time.Now,
	}, nil
}

// Timeout returns the token lifetime.
func (m *JWTManager) Timeout() time.Duration {
	return m.timeout
}

// GenerateToken creates a signed token for username along with its expiry.
func (m *JWTManager) GenerateToken(username string) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.timeout)
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

// ValidateToken checks signature, algorithm, issuer and time claims and
// returns the embedded claims.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(m.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
