// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/tomtom215/curatarr/internal/logging"
)

// AuthMode selects how API requests are authenticated.
type AuthMode string

const (
	AuthModeNone  AuthMode = "none"
	AuthModeJWT   AuthMode = "jwt"
	AuthModeBasic AuthMode = "basic"
)

// TokenCookieName is the cookie the login handler sets. Browsers cannot add
// an Authorization header to a websocket handshake, so the cookie is
// accepted wherever a bearer token is.
const TokenCookieName = "token"

type contextKey string

// ClaimsContextKey holds the *Claims of an authenticated request.
const ClaimsContextKey contextKey = "claims"

// DeniedFunc writes the response for a rejected request.
type DeniedFunc func(w http.ResponseWriter, r *http.Request, message string)

// Middleware enforces the configured auth mode.
type Middleware struct {
	jwtManager       *JWTManager
	basicAuthManager *BasicAuthManager
	authMode         AuthMode
	denied           DeniedFunc
}

// NewMiddleware creates the authentication middleware. jwtManager is
// required in jwt mode and basicAuthManager in basic mode. A nil denied
// falls back to http.Error.
func NewMiddleware(jwtManager *JWTManager, basicAuthManager *BasicAuthManager, mode AuthMode, denied DeniedFunc) (*Middleware, error) {
	switch mode {
	case AuthModeNone:
	case AuthModeJWT:
		if jwtManager == nil {
			return nil, errors.New("jwt auth mode requires a JWT manager")
		}
	case AuthModeBasic:
		if basicAuthManager == nil {
			return nil, errors.New("basic auth mode requires admin credentials")
		}
	default:
		return nil, errors.New("unknown auth mode: " + string(mode))
	}
	if denied == nil {
		denied = func(w http.ResponseWriter, _ *http.Request, message string) {
			http.Error(w, message, http.StatusUnauthorized)
		}
	}
	return &Middleware{
		jwtManager:       jwtManager,
		basicAuthManager: basicAuthManager,
		authMode:         mode,
		denied:           denied,
	}, nil
}

// Mode returns the configured auth mode.
func (m *Middleware) Mode() AuthMode {
	return m.authMode
}

// Authenticate is chi-style middleware that rejects unauthenticated requests
// with 401 and stores the caller's claims in the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch m.authMode {
		case AuthModeNone:
			next.ServeHTTP(w, r)
		case AuthModeBasic:
			m.handleBasicAuth(w, r, next)
		default:
			m.handleJWTAuth(w, r, next)
		}
	})
}

func (m *Middleware) handleBasicAuth(w http.ResponseWriter, r *http.Request, next http.Handler) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		m.challenge(w, r, "authentication required")
		return
	}

	username, err := m.basicAuthManager.ValidateCredentials(authHeader)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("path", r.URL.Path).Msg("Basic auth validation failed")
		m.challenge(w, r, "invalid credentials")
		return
	}

	ctx := context.WithValue(r.Context(), ClaimsContextKey, &Claims{Username: username})
	next.ServeHTTP(w, r.WithContext(ctx))
}

func (m *Middleware) challenge(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("WWW-Authenticate", m.basicAuthManager.WWWAuthenticateHeader())
	m.denied(w, r, message)
}

func (m *Middleware) handleJWTAuth(w http.ResponseWriter, r *http.Request, next http.Handler) {
	token, err := extractToken(r)
	if err != nil {
		m.denied(w, r, err.Error())
		return
	}

	claims, err := m.jwtManager.ValidateToken(token)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("path", r.URL.Path).Msg("Token validation failed")
		m.denied(w, r, "invalid token")
		return
	}

	ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
	next.ServeHTTP(w, r.WithContext(ctx))
}

// extractToken reads a bearer token from the Authorization header, falling
// back to the token cookie.
func extractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		cookie, err := r.Cookie(TokenCookieName)
		if err != nil || cookie.Value == "" {
			return "", errors.New("missing token")
		}
		return cookie.Value, nil
	}

	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", errors.New("invalid authorization header")
	}
	return token, nil
}

// GetClaims returns the authenticated caller, or nil.
func GetClaims(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ClaimsContextKey).(*Claims)
	return claims
}
