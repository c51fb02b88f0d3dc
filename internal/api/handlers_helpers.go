// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/curatarr/internal/validation"
)

// maxBodyBytes caps request bodies; every body this API accepts is small.
const maxBodyBytes = 64 << 10

// errEmptyBody is returned by decodeJSON when optional is false and the
// request has no body.
var errEmptyBody = errors.New("request body is required")

// sanitizeLogValue removes control characters from strings to prevent log injection attacks.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&result, "\\x%02x", r)
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// decodeJSON reads a JSON body into dst. Unknown fields are rejected. An
// empty body leaves dst untouched when optional is true.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, optional bool) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return fmt.Errorf("failed to read body: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		if optional {
			return nil
		}
		return errEmptyBody
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid JSON body: trailing data")
	}
	return nil
}

// decodeAndValidate decodes and validates a body, writing the 400 response
// itself. It reports whether the handler may continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}, optional bool) bool {
	if err := decodeJSON(w, r, dst, optional); err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return false
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		apiErr := verr.ToAPIError()
		NewResponseWriter(w, r).ValidationError(apiErr.Message, apiErr.Details)
		return false
	}
	return true
}

// getIntParam extracts an integer query parameter, falling back to
// defaultValue when missing or malformed and clamping to [1, maxValue].
func getIntParam(r *http.Request, key string, defaultValue, maxValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return defaultValue
	}
	return min(n, maxValue)
}
