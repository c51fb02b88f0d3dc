// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/curatarr/internal/events"
	"github.com/tomtom215/curatarr/internal/logging"
	"github.com/tomtom215/curatarr/internal/metrics"
	"github.com/tomtom215/curatarr/internal/models"
)

// Run outcomes, also used as metric labels.
const (
	outcomeCompleted = "completed"
	outcomeEmpty     = "empty"
	outcomeFailed    = "failed"
)

const logSource = "engine"

// Engine reconciles watch history against the recommenders and libraries.
// It is safe for concurrent use; at most one run executes at a time.
type Engine struct {
	config *Config
	logger zerolog.Logger
	deps   Deps
	kinds  bindings

	running atomic.Bool

	lastMu  sync.RWMutex
	lastRun *models.RunRecord

	now func() time.Time
}

// NewEngine creates an engine. History, Catalog and Store are required.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(deps Deps, cfg *Config, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	switch {
	case deps.History == nil:
		return nil, errors.New("history source is required")
	case deps.Catalog == nil:
		return nil, errors.New("catalog recommender is required")
	case deps.Store == nil:
		return nil, errors.New("record store is required")
	}

	return &Engine{
		config: cfg,
		logger: logger.With().Str("component", "recommend").Logger(),
		deps:   deps,
		kinds: bindings{
			movie:  movieBinding{t: deps.Movies},
			series: seriesBinding{t: deps.Series},
		},
		now: time.Now,
	}, nil
}

// Running reports whether a run is in progress.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Status returns the running flag and the last finished run.
func (e *Engine) Status() Status {
	e.lastMu.RLock()
	defer e.lastMu.RUnlock()
	st := Status{Running: e.running.Load()}
	if e.lastRun != nil {
		last := *e.lastRun
		st.LastRun = &last
	}
	return st
}

// RestoreLastRun seeds Status with a run persisted by a previous process.
// It is ignored once a run has finished in this process.
func (e *Engine) RestoreLastRun(run *models.RunRecord) {
	if run == nil {
		return
	}
	e.lastMu.Lock()
	defer e.lastMu.Unlock()
	if e.lastRun == nil {
		last := *run
		e.lastRun = &last
	}
}

// RunOnce executes one reconciliation pass. It returns ErrAlreadyRunning if
// another pass is in progress; every other failure is reported through the
// result's Errors.
func (e *Engine) RunOnce(ctx context.Context, filters models.Filters) (*models.RunResult, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer e.running.Store(false)

	metrics.RunInProgress.Set(1)
	defer metrics.RunInProgress.Set(0)

	record := models.RunRecord{
		ID:        uuid.New().String(),
		Trigger:   triggerFromContext(ctx),
		Filters:   filters,
		StartedAt: e.now().UTC(),
	}
	ctx = logging.ContextWithRunID(ctx, record.ID)

	r := &run{
		e:       e,
		filters: filters,
		result:  models.NewRunResult(),
		log:     e.logger.With().Str("run_id", record.ID).Logger(),
	}

	r.log.Info().
		Str("trigger", record.Trigger).
		Interface("filters", filters).
		Msg("Reconciliation run started")
	e.note(models.LogInfo, fmt.Sprintf("Run started (%s)", record.Trigger))
	e.publish(ctx, events.TopicRunStarted, record)

	outcome := r.execute(ctx)

	record.FinishedAt = e.now().UTC()
	record.Result = *r.result
	record.Result.Errors = append([]string{}, r.result.Errors...)
	duration := record.FinishedAt.Sub(record.StartedAt)
	metrics.RecordRun(outcome, duration)

	r.log.Info().
		Str("outcome", outcome).
		Dur("duration", duration).
		Int("watched", r.result.WatchedCount).
		Int("catalog", r.result.CatalogCount).
		Int("generative", r.result.GenerativeCount).
		Int("new", r.result.TotalNew).
		Int("added", r.result.AddedToArr).
		Int("errors", len(r.result.Errors)).
		Msg("Reconciliation run finished")
	e.note(models.LogInfo, fmt.Sprintf("Run %s: %d new, %d added, %d errors",
		outcome, r.result.TotalNew, r.result.AddedToArr, len(r.result.Errors)))

	e.finish(ctx, &record)
	return r.result, nil
}

// finish records the run and announces it.
func (e *Engine) finish(ctx context.Context, record *models.RunRecord) {
	e.lastMu.Lock()
	last := *record
	e.lastRun = &last
	e.lastMu.Unlock()

	if e.deps.Runs != nil {
		// The run itself may have been canceled; the record is still kept.
		if err := e.deps.Runs.SaveRun(context.WithoutCancel(ctx), *record); err != nil {
			e.logger.Warn().Err(err).Str("run_id", record.ID).Msg("Failed to save run record")
		}
	}
	e.publish(ctx, events.TopicRunCompleted, record)
}

// SetStatus changes a recommendation's review status and announces the
// change. Errors come from the store (not found, invalid transition).
func (e *Engine) SetStatus(ctx context.Context, id string, status models.Status) (*models.Recommendation, error) {
	rec, err := e.deps.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := e.transition(ctx, rec, status, ""); err != nil {
		return nil, err
	}
	return rec, nil
}

// transition persists a status change on rec and publishes it when the
// status actually changed. rec is updated in place.
func (e *Engine) transition(ctx context.Context, rec *models.Recommendation, status models.Status, reason string) error {
	from := rec.Status
	changed, err := e.deps.Store.SetStatus(ctx, rec.ID, status)
	if err != nil {
		return err
	}
	rec.Status = status
	if changed {
		rec.UpdatedAt = e.now().UTC()
		e.publish(ctx, events.TopicRecommendationStatus, StatusChange{
			ID:     rec.ID,
			Title:  rec.Title,
			Kind:   rec.Kind,
			From:   from,
			To:     status,
			Reason: reason,
		})
	}
	return nil
}

func (e *Engine) publish(ctx context.Context, topic string, payload any) {
	if e.deps.Events == nil {
		return
	}
	if err := e.deps.Events.Publish(ctx, topic, payload); err != nil {
		e.logger.Debug().Err(err).Str("topic", topic).Msg("Event publish failed")
	}
}

// note writes a user-facing log entry.
func (e *Engine) note(level models.LogLevel, message string) {
	if e.deps.Log != nil {
		e.deps.Log.Record(level, message, logSource)
	}
}
