// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

/*
Package api provides the HTTP REST API for Curatarr.

The API is a thin layer over the reconciliation engine and the store. Every
response uses the same envelope:

	{"success": true, "data": ..., "meta": {"request_id": "...", "timestamp": "..."}}
	{"success": false, "error": {"code": "NOT_FOUND", "message": "..."}}

Routes:

	GET  /metrics                               Prometheus exposition
	GET  /api/v1/health/live                    liveness
	GET  /api/v1/health/ready                   readiness (store reachable)
	POST /api/v1/auth/login                     exchange admin credentials for a JWT
	POST /api/v1/runs                           run one reconciliation pass
	GET  /api/v1/runs                           run history
	GET  /api/v1/runs/status                    running flag and last run
	GET  /api/v1/recommendations                list, ?status= and ?limit=
	GET  /api/v1/recommendations/{id}           one recommendation
	PUT  /api/v1/recommendations/{id}/status    pending, approved or rejected
	POST /api/v1/recommendations/{id}/commit    add to Radarr or Sonarr
	GET  /api/v1/backups                        store snapshots, newest first
	POST /api/v1/backups                        take a snapshot now
	POST /api/v1/backups/{id}/verify            check a snapshot's checksum and stream
	GET  /api/v1/logs                           user-facing run log
	GET  /api/v1/ws                             websocket event stream

Middleware:

Global middleware assigns a request ID, logs the request, resolves the real
client IP, recovers panics, sets security headers and answers CORS
preflights. Route groups add per-IP rate limits (go-chi/httprate),
Prometheus request metrics, and for /api/v1 the configured authentication
mode (none, jwt or basic).

Error codes:

	BAD_REQUEST          malformed body or query
	VALIDATION_FAILED    body failed validation; details lists the fields
	UNAUTHORIZED         missing or invalid credentials
	NOT_FOUND            unknown route, recommendation or backup
	CONFLICT             a run is in progress, or an illegal status change
	TOO_MANY_REQUESTS    rate limit or login lockout
	COMMIT_FAILED        the library target refused the title
	STORE_ERROR          the store failed
	BACKUP_FAILED        the snapshot could not be written
	SERVICE_UNAVAILABLE  not ready, or backups disabled
*/
package api
