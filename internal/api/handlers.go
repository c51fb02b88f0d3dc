// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package api

import (
	"context"
	"time"

	"github.com/tomtom215/curatarr/internal/auth"
	"github.com/tomtom215/curatarr/internal/backup"
	"github.com/tomtom215/curatarr/internal/config"
	"github.com/tomtom215/curatarr/internal/models"
	"github.com/tomtom215/curatarr/internal/recommend"
	"github.com/tomtom215/curatarr/internal/websocket"
)

// Engine is satisfied by *recommend.Engine.
type Engine interface {
	RunOnce(ctx context.Context, filters models.Filters) (*models.RunResult, error)
	Status() recommend.Status
	SetStatus(ctx context.Context, id string, status models.Status) (*models.Recommendation, error)
	Commit(ctx context.Context, id string, opts recommend.CommitOptions) recommend.CommitResult
}

// Store is the read side of *store.Store the API serves from.
type Store interface {
	Get(ctx context.Context, id string) (*models.Recommendation, error)
	List(ctx context.Context, status models.Status, limit int) ([]models.Recommendation, error)
	CountByStatus(ctx context.Context) (map[models.Status]int, error)
	ListRuns(ctx context.Context, limit int) ([]models.RunRecord, error)
	ListLogs(ctx context.Context, limit int) ([]models.LogEntry, error)
}

// Backups is satisfied by *backup.Manager.
type Backups interface {
	Create(ctx context.Context, trigger backup.Trigger) (*backup.Backup, error)
	List() ([]backup.Backup, error)
	Verify(id string) error
}

// Handler serves the Curatarr API.
type Handler struct {
	engine    Engine
	store     Store
	hub       *websocket.Hub
	backups   Backups
	config    *config.Config
	jwt       *auth.JWTManager
	admin     *auth.BasicAuthManager
	lockout   *auth.LockoutManager
	startTime time.Time

	// runTimeout bounds a manual run, which outlives its request.
	runTimeout time.Duration
}

// HandlerDeps holds the collaborators of a Handler. JWT and Admin are only
// needed for the login endpoint; Hub only for /ws. A nil Backups disables
// the backup routes.
type HandlerDeps struct {
	Engine  Engine
	Store   Store
	Hub     *websocket.Hub
	Backups Backups
	JWT     *auth.JWTManager
	Admin   *auth.BasicAuthManager
	Lockout *auth.LockoutManager
}

// NewHandler creates the API handler.
func NewHandler(deps HandlerDeps, cfg *config.Config) *Handler {
	lockout := deps.Lockout
	if lockout == nil {
		lockout = auth.NewLockoutManager(auth.DefaultLockoutConfig())
	}
	runTimeout := cfg.Schedule.RunTimeout
	if runTimeout <= 0 {
		runTimeout = 30 * time.Minute
	}
	return &Handler{
		engine:     deps.Engine,
		store:      deps.Store,
		hub:        deps.Hub,
		backups:    deps.Backups,
		config:     cfg,
		jwt:        deps.JWT,
		admin:      deps.Admin,
		lockout:    lockout,
		startTime:  time.Now(),
		runTimeout: runTimeout,
	}
}
