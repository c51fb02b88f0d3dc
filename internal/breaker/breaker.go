// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

// Package breaker wraps sony/gobreaker with Curatarr's default trip policy
// and Prometheus state reporting. Every external collaborator (history
// source, TMDB, LLM, Radarr, Sonarr) gets its own named breaker so that one
// unhealthy service never degrades the others.
//
// DETERMINISM NOTE: gobreaker uses wall-clock time for its interval and
// timeout. Tests exercise trip behavior by request counts, not by waiting.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/curatarr/internal/logging"
	"github.com/tomtom215/curatarr/internal/metrics"
)

// ErrCircuitOpen is wrapped into every rejection so callers outside this
// package need not import gobreaker.
var ErrCircuitOpen = errors.New("circuit breaker open")

// Settings configures a Breaker.
type Settings struct {
	Name string

	// MaxRequests is the number of trial requests allowed while half-open.
	MaxRequests uint32

	// Interval resets the closed-state counts. Zero never resets.
	Interval time.Duration

	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration

	// MinRequests and FailureRatio define the trip condition.
	MinRequests  uint32
	FailureRatio float64

	// IsSuccessful classifies errors that should not count as failures.
	// Defaults to treating nil and context cancellation as success.
	IsSuccessful func(err error) bool
}

// DefaultSettings returns the policy used for every collaborator:
// 3 half-open probes, 1 minute window, 2 minute cool-down, and a trip at
// 60% failures over at least 10 requests.
func DefaultSettings(name string) Settings {
	return Settings{
		Name:         name,
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      2 * time.Minute,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
}

// Breaker is a named circuit breaker.
type Breaker struct {
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

// New creates a Breaker and initializes its metrics to the closed state.
func New(s Settings) *Breaker {
	if s.IsSuccessful == nil {
		s.IsSuccessful = defaultIsSuccessful
	}

	metrics.CircuitBreakerState.WithLabelValues(s.Name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(s.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= s.FailureRatio {
				logging.Warn().
					Str("breaker", s.Name).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", ratio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit")
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
		IsSuccessful: s.IsSuccessful,
	})

	return &Breaker{cb: cb, name: s.Name}
}

func defaultIsSuccessful(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

// Name returns the breaker name used in metrics.
func (b *Breaker) Name() string { return b.name }

// State returns "closed", "half-open" or "open".
func (b *Breaker) State() string { return stateToString(b.cb.State()) }

// Execute runs fn under the breaker. A rejected call returns an error that
// satisfies IsOpen and never invokes fn.
func Execute[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T

	result, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		if IsOpen(err) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			logging.Warn().Str("breaker", b.name).Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
			return zero, fmt.Errorf("%s: %w: %w", b.name, ErrCircuitOpen, err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(float64(b.cb.Counts().ConsecutiveFailures))
		// fn's own result is still returned on failure so callers can
		// inspect partial responses.
		if typed, ok := result.(T); ok {
			return typed, err
		}
		return zero, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(0)

	typed, ok := result.(T)
	if !ok && result != nil {
		return zero, fmt.Errorf("circuit breaker %s: unexpected result type %T", b.name, result)
	}
	return typed, nil
}

// IsOpen reports whether err is a breaker rejection (open, or half-open
// with its probe budget exhausted).
func IsOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen) ||
		errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests)
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
