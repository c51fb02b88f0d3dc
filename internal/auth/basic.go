// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is a variable so tests can use bcrypt.MinCost.
var bcryptCost = 12

// ErrInvalidCredentials is returned for any username/password mismatch.
var ErrInvalidCredentials = errors.New("invalid username or password")

// BasicAuthManager verifies the admin credentials. The password is held only
// as a bcrypt hash.
type BasicAuthManager struct {
	username     string
	passwordHash []byte
}

// NewBasicAuthManager hashes password once at startup.
func NewBasicAuthManager(username, password string) (*BasicAuthManager, error) {
	if username == "" {
		return nil, errors.New("username is required")
	}
	if password == "" {
		return nil, errors.New("password is required")
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters for security")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return &BasicAuthManager{
		username:     username,
		passwordHash: hash,
	}, nil
}

// ValidateCredentials parses an HTTP Basic Authorization header and checks
// it. It returns the username on success.
func (m *BasicAuthManager) ValidateCredentials(authHeader string) (string, error) {
	if !strings.HasPrefix(authHeader, "Basic ") {
		return "", errors.New("invalid authorization header format")
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(authHeader, "Basic "))
	if err != nil {
		return "", errors.New("failed to decode credentials")
	}

	username, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return "", errors.New("invalid credentials format")
	}

	if err := m.Check(username, password); err != nil {
		return "", err
	}
	return username, nil
}

// Check compares a username and password against the configured admin.
// Both comparisons always run.
func (m *BasicAuthManager) Check(username, password string) error {
	usernameMatch := subtle.ConstantTimeCompare([]byte(username), []byte(m.username)) == 1
	passwordMatch := bcrypt.CompareHashAndPassword(m.passwordHash, []byte(password)) == nil

	if !usernameMatch || !passwordMatch {
		return ErrInvalidCredentials
	}
	return nil
}

// WWWAuthenticateHeader is sent with 401 responses in basic mode.
func (m *BasicAuthManager) WWWAuthenticateHeader() string {
	return `Basic realm="Curatarr", charset="UTF-8"`
}
