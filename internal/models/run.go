// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package models

import (
	"strings"
	"time"
)

// Filters are the caller-supplied run filters. Zero values are inactive.
type Filters struct {
	Genres   []string  `json:"genres,omitempty" validate:"omitempty,max=20,dive,min=1,max=64"`
	Language string    `json:"language,omitempty" validate:"omitempty,max=16"`
	YearMin  int       `json:"year_min,omitempty" validate:"omitempty,min=1870,max=2200"`
	YearMax  int       `json:"year_max,omitempty" validate:"omitempty,min=1870,max=2200,gtefield=YearMin"`
	Kind     MediaKind `json:"kind,omitempty" validate:"omitempty,oneof=movie series"`
}

// HasAttributeFilter reports whether any genre, year or kind filter is set.
// Language alone does not trigger discovery.
func (f *Filters) HasAttributeFilter() bool {
	return len(f.Genres) > 0 || f.YearMin > 0 || f.YearMax > 0 || f.Kind != ""
}

// LanguageActive reports whether the language predicate applies.
func (f *Filters) LanguageActive() bool {
	return f.Language != "" && !strings.EqualFold(f.Language, "all")
}

// RunResult summarizes one reconciliation run.
type RunResult struct {
	WatchedCount    int      `json:"watched_count"`
	CatalogCount    int      `json:"catalog_count"`
	GenerativeCount int      `json:"generative_count"`
	// TotalNew counts recommendations first stored by this run. Titles
	// already on record from an earlier run, whatever their status, are not
	// new.
	TotalNew        int      `json:"total_new"`
	AddedToArr      int      `json:"added_to_arr"`
	Errors          []string `json:"errors"`
}

// NewRunResult returns a result with a non-nil, empty error list.
func NewRunResult() *RunResult {
	return &RunResult{Errors: []string{}}
}

// RunRecord is the persisted history entry for a finished run.
type RunRecord struct {
	ID         string    `json:"id"`
	Trigger    string    `json:"trigger"`
	Filters    Filters   `json:"filters"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Result     RunResult `json:"result"`
}

// LogLevel is the severity of a user-facing log entry.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// LogEntry is one user-facing log line persisted by the log sink.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   LogLevel  `json:"level"`
	Message string    `json:"message"`
	Source  string    `json:"source"`
}
