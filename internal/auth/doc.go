// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

/*
Package auth provides authentication for the Curatarr API.

There is a single administrator, configured through ADMIN_USERNAME and
ADMIN_PASSWORD. The password is hashed with bcrypt at startup and never kept
in plain text.

Authentication Modes (AUTH_MODE):

  - jwt (default): POST /api/v1/auth/login exchanges the admin credentials
    for an HS256 token. Requests carry it as "Authorization: Bearer <token>"
    or in the "token" cookie set by the login handler.
  - basic: every request carries HTTP Basic credentials.
  - none: no authentication; refused in production by config validation.

Key Components:

  - JWTManager: token generation and validation
  - BasicAuthManager: bcrypt credential check, Basic header parsing
  - LockoutManager: per-username and per-IP lockout after repeated failed
    logins, with doubling lockout periods
  - Middleware: chi-style Authenticate that stores *Claims in the context

Usage:

	jwtManager, _ := auth.NewJWTManager(&cfg.Security)
	admin, _ := auth.NewBasicAuthManager(cfg.Security.AdminUsername, cfg.Security.AdminPassword)
	mw, _ := auth.NewMiddleware(jwtManager, admin, auth.AuthMode(cfg.Security.AuthMode), nil)

	r.Use(mw.Authenticate)
*/
package auth
