// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package recommend

import (
	"context"
	"errors"

	"github.com/tomtom215/curatarr/internal/library"
	"github.com/tomtom215/curatarr/internal/models"
)

// ErrAlreadyRunning is returned by RunOnce while another run is in progress.
var ErrAlreadyRunning = errors.New("reconciliation run already running")

// HistorySource supplies recently watched titles, most recent first.
// Satisfied by history.Source.
type HistorySource interface {
	Fetch(ctx context.Context, limit int) ([]models.WatchedItem, error)
}

// CatalogRecommender is the content-similarity catalog.
// Satisfied by *catalog.Client.
type CatalogRecommender interface {
	RelatedTo(ctx context.Context, id int, kind models.MediaKind, limit int) ([]models.Candidate, error)
	Discover(ctx context.Context, filters models.Filters, kind models.MediaKind, limit int) ([]models.Candidate, error)
	// SearchByTitle returns nil, nil when nothing matches.
	SearchByTitle(ctx context.Context, title string, kind models.MediaKind) (*models.Candidate, error)
	ExternalIDs(ctx context.Context, id int, kind models.MediaKind) (models.ExternalIDs, error)
	Details(ctx context.Context, id int, kind models.MediaKind) (*models.Candidate, error)
}

// GenerativeRecommender suggests titles from a free-text history summary.
// Satisfied by *generative.Client.
type GenerativeRecommender interface {
	Suggest(ctx context.Context, summary string, count int, filters models.Filters) ([]models.Candidate, error)
}

// LibraryTarget is a library manager for one media kind.
// Satisfied by *library.Radarr and *library.Sonarr.
type LibraryTarget interface {
	ListAll(ctx context.Context) ([]library.Item, error)
	ExistsByNativeID(ctx context.Context, id int) (bool, error)
	LookupByTitle(ctx context.Context, title string) ([]library.Match, error)
	Add(ctx context.Context, id int, opts library.AddOptions) (library.AddResult, error)
}

// RecordStore persists recommendations. Satisfied by *store.Store.
type RecordStore interface {
	UpsertByIdentity(ctx context.Context, cand models.Candidate) (*models.Recommendation, bool, error)
	SetStatus(ctx context.Context, id string, status models.Status) (bool, error)
	Get(ctx context.Context, id string) (*models.Recommendation, error)
}

// RunRecorder keeps finished runs. Satisfied by *store.Store.
type RunRecorder interface {
	SaveRun(ctx context.Context, run models.RunRecord) error
}

// LogSink receives user-facing log entries. Record must not block.
// Satisfied by *store.LogSink.
type LogSink interface {
	Record(level models.LogLevel, message, source string)
}

// Publisher announces run and status events. Satisfied by *events.Bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Deps are the engine's collaborators. Generative, Movies, Series, Runs,
// Log and Events are optional; leave them nil when not configured.
type Deps struct {
	History    HistorySource
	Catalog    CatalogRecommender
	Generative GenerativeRecommender
	Movies     LibraryTarget
	Series     LibraryTarget
	Store      RecordStore
	Runs       RunRecorder
	Log        LogSink
	Events     Publisher
}

// CommitOptions override the library target's add defaults.
type CommitOptions struct {
	QualityProfileID  int    `json:"quality_profile_id,omitempty" validate:"omitempty,min=1"`
	RootFolderPath    string `json:"root_folder_path,omitempty" validate:"omitempty,max=4096"`
	SearchImmediately *bool  `json:"search_immediately,omitempty"`
}

// CommitResult is the outcome of a commit. AlreadyExists marks the expected
// negative where the title is already in the library.
type CommitResult struct {
	Success       bool   `json:"success"`
	AlreadyExists bool   `json:"already_exists,omitempty"`
	Message       string `json:"message"`
}

// Status reports whether a run is in progress and the last finished run.
type Status struct {
	Running bool              `json:"running"`
	LastRun *models.RunRecord `json:"last_run,omitempty"`
}

// StatusChange is the payload published when a recommendation changes status.
type StatusChange struct {
	ID     string           `json:"id"`
	Title  string           `json:"title"`
	Kind   models.MediaKind `json:"kind"`
	From   models.Status    `json:"from"`
	To     models.Status    `json:"to"`
	Reason string           `json:"reason,omitempty"`
}

type triggerKey struct{}

// WithTrigger labels runs started with ctx, e.g. "schedule" or "api".
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, triggerKey{}, trigger)
}

func triggerFromContext(ctx context.Context) string {
	if t, ok := ctx.Value(triggerKey{}).(string); ok && t != "" {
		return t
	}
	return "manual"
}
