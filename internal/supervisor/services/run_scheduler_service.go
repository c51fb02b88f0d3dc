// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/curatarr/internal/models"
	"github.com/tomtom215/curatarr/internal/recommend"
)

const (
	defaultRunInterval = 6 * time.Hour
	defaultRunTimeout  = 30 * time.Minute
	scheduleTrigger    = "schedule"
)

// Runner is satisfied by *recommend.Engine.
type Runner interface {
	RunOnce(ctx context.Context, filters models.Filters) (*models.RunResult, error)
}

// RunSchedulerConfig holds configuration for the run scheduler.
type RunSchedulerConfig struct {
	// Interval between scheduled runs. Default: 6h.
	Interval time.Duration

	// RunOnStartup triggers a run as soon as the service starts.
	RunOnStartup bool

	// RunTimeout bounds a single run. Default: 30m.
	RunTimeout time.Duration

	// Filters are applied to every scheduled run.
	Filters models.Filters
}

// RunSchedulerService triggers reconciliation runs on a fixed interval.
// A tick that lands while a manual run is in progress is skipped.
type RunSchedulerService struct {
	runner Runner
	config RunSchedulerConfig
	logger zerolog.Logger
	name   string
}

// NewRunSchedulerService creates a new run scheduler.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRunSchedulerService(runner Runner, cfg RunSchedulerConfig, logger zerolog.Logger) *RunSchedulerService {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultRunInterval
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = defaultRunTimeout
	}
	return &RunSchedulerService{
		runner: runner,
		config: cfg,
		logger: logger.With().Str("service", "run-scheduler").Logger(),
		name:   "run-scheduler",
	}
}

// Serve implements suture.Service. Run failures are logged, never returned;
// a failed run is not a reason to restart the scheduler.
func (s *RunSchedulerService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("run_on_startup", s.config.RunOnStartup).
		Dur("interval", s.config.Interval).
		Msg("run scheduler starting")

	if s.config.RunOnStartup {
		s.runOnce(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("run scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *RunSchedulerService) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(recommend.WithTrigger(ctx, scheduleTrigger), s.config.RunTimeout)
	defer cancel()

	start := time.Now()
	res, err := s.runner.RunOnce(runCtx, s.config.Filters)
	switch {
	case errors.Is(err, recommend.ErrAlreadyRunning):
		s.logger.Debug().Msg("scheduled run skipped, a run is already in progress")
	case err != nil:
		s.logger.Warn().Err(err).Msg("scheduled run failed")
	default:
		s.logger.Info().
			Dur("duration", time.Since(start)).
			Int("new", res.TotalNew).
			Int("added", res.AddedToArr).
			Int("errors", len(res.Errors)).
			Msg("scheduled run complete")
	}
}

// String implements fmt.Stringer for suture's logs.
func (s *RunSchedulerService) String() string {
	return s.name
}
