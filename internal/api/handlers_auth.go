// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package api

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/tomtom215/curatarr/internal/auth"
	"github.com/tomtom215/curatarr/internal/logging"
)

// LoginRequest is the body of POST /auth/login. Credentials may instead be
// sent as an HTTP Basic Authorization header.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=1024"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login exchanges the admin credentials for a JWT, returned in the body
// and as an HTTP-only cookie. Repeated failures lock out the username and
// the client address.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.jwt == nil || h.admin == nil {
		rw.BadRequest("login is only available when auth_mode is jwt")
		return
	}

	var req LoginRequest
	if user, pass, ok := r.BasicAuth(); ok {
		req = LoginRequest{Username: user, Password: pass}
	} else if !decodeAndValidate(w, r, &req, false) {
		return
	}

	subjects := []string{req.Username, "ip:" + clientIP(r)}
	for _, subject := range subjects {
		if locked, remaining := h.lockout.CheckLocked(subject); locked {
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", remaining.Seconds()))
			rw.TooManyRequests("too many failed login attempts")
			return
		}
	}

	log := logging.Ctx(r.Context())
	if err := h.admin.Check(req.Username, req.Password); err != nil {
		for _, subject := range subjects {
			h.lockout.RecordFailure(subject)
		}
		log.Warn().
			Str("username", sanitizeLogValue(req.Username)).
			Str("remote_addr", r.RemoteAddr).
			Msg("Login failed")
		rw.Unauthorized("invalid username or password")
		return
	}
	for _, subject := range subjects {
		h.lockout.RecordSuccess(subject)
	}

	token, expires, err := h.jwt.GenerateToken(req.Username)
	if err != nil {
		log.Error().Err(err).Msg("Failed to issue token")
		rw.InternalError("failed to issue token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.config.IsProduction(),
		SameSite: http.SameSiteStrictMode,
	})
	log.Info().Str("username", sanitizeLogValue(req.Username)).Msg("Login succeeded")
	rw.Success(LoginResponse{Token: token, Username: req.Username, ExpiresAt: expires})
}

// clientIP returns the request's remote address without the port. chi's
// RealIP middleware has already applied X-Forwarded-For when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
