// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

/*
Package middleware provides HTTP middleware shared by the API router.

Both middlewares use the chi signature func(http.Handler) http.Handler:

  - RequestID: assigns or propagates X-Request-ID and seeds the logging
    context with request and correlation IDs, so logging.Ctx(r.Context())
    tags every line of a request.
  - PrometheusMetrics: api_requests_total, api_request_duration_seconds and
    api_active_requests, labeled by chi route pattern to keep cardinality
    bounded.

Usage:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
*/
package middleware
