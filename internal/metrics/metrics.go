// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

// Package metrics declares the Prometheus instrumentation for Curatarr:
// reconciliation runs, candidate flow through the pipeline, commits,
// outbound calls to collaborators, circuit breakers, the HTTP API and the
// websocket hub.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Reconciliation Run Metrics
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatarr_runs_total",
			Help: "Total number of reconciliation runs by outcome",
		},
		[]string{"outcome"}, // "completed", "history_failed", "empty_history", "rejected_busy"
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "curatarr_run_duration_seconds",
			Help:    "Duration of reconciliation runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	RunInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "curatarr_run_in_progress",
			Help: "1 while a reconciliation run is executing",
		},
	)

	RunLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "curatarr_run_last_success_timestamp",
			Help: "Unix timestamp of the last completed run",
		},
	)

	// Candidate Pipeline Metrics
	CandidatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatarr_candidates_total",
			Help: "Candidates gathered before deduplication, by source",
		},
		[]string{"source"}, // "catalog", "generative"
	)

	CandidatesExcluded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatarr_candidates_excluded_total",
			Help: "Candidates dropped because they are already known",
		},
		[]string{"reason"}, // "duplicate", "library_id", "library_title", "watched"
	)

	CandidatesFiltered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatarr_candidates_filtered_total",
			Help: "Candidates dropped by a run filter predicate",
		},
		[]string{"predicate"}, // "genre", "language", "year", "kind"
	)

	CandidatesEnriched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatarr_candidates_enriched_total",
			Help: "Enrichment attempts by result",
		},
		[]string{"result"}, // "filled", "miss", "error"
	)

	RecommendationsPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "curatarr_recommendations_persisted_total",
			Help: "New recommendations stored as pending",
		},
	)

	// Commit Metrics
	CommitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatarr_commits_total",
			Help: "Commit attempts to library targets by kind and outcome",
		},
		[]string{"kind", "outcome"}, // outcome: "added", "already_exists", "no_match", "not_found", "failed"
	)

	// External Collaborator Metrics
	ExternalRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curatarr_external_request_duration_seconds",
			Help:    "Duration of outbound requests to collaborators",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "operation"},
	)

	ExternalRequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatarr_external_request_errors_total",
			Help: "Failed outbound requests to collaborators",
		},
		[]string{"service", "operation"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of in-flight API requests",
		},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	// Log Sink Metrics
	LogEntriesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "curatarr_log_entries_dropped_total",
			Help: "Log sink entries dropped because the buffer was full",
		},
	)

	// Backup Metrics
	BackupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatarr_backups_total",
			Help: "Store snapshots by outcome (completed, failed)",
		},
		[]string{"outcome"},
	)

	BackupLastSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "curatarr_backup_last_size_bytes",
			Help: "Compressed size of the most recent successful snapshot",
		},
	)
)

// RecordRun records the outcome and duration of a finished run.
func RecordRun(outcome string, duration time.Duration) {
	RunsTotal.WithLabelValues(outcome).Inc()
	RunDuration.Observe(duration.Seconds())
	if outcome == "completed" {
		RunLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordExternalRequest records one outbound collaborator call.
func RecordExternalRequest(service, operation string, duration time.Duration, err error) {
	ExternalRequestDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
	if err != nil {
		ExternalRequestErrors.WithLabelValues(service, operation).Inc()
	}
}

// RecordCommit records a commit outcome for a media kind.
func RecordCommit(kind, outcome string) {
	CommitsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordBackup records a snapshot attempt. size is ignored on failure.
func RecordBackup(outcome string, size int64) {
	BackupsTotal.WithLabelValues(outcome).Inc()
	if outcome == "completed" {
		BackupLastSizeBytes.Set(float64(size))
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
