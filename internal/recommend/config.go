// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package recommend

import (
	"fmt"
	"strings"

	"github.com/tomtom215/curatarr/internal/config"
	"github.com/tomtom215/curatarr/internal/models"
)

const (
	// relatedSeedLimit is how many history items seed catalog lookups.
	relatedSeedLimit = 10

	// generativeBatchSize caps the generative suggestions per run.
	generativeBatchSize = 10

	// summaryItemLimit bounds the history summary sent to the generative
	// recommender.
	summaryItemLimit = 30
)

// Config tunes a reconciliation run.
type Config struct {
	// MaxPerRun is the catalog candidate budget, split across seed items.
	MaxPerRun int `json:"max_per_run"`

	// HistoryLimit bounds the watch-history fetch.
	HistoryLimit int `json:"history_limit"`

	// Concurrency bounds parallel catalog calls.
	Concurrency int `json:"concurrency"`

	// AutoCommit commits every survivor at the end of a run.
	AutoCommit bool `json:"auto_commit"`
}

// DefaultConfig returns conservative defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxPerRun:    20,
		HistoryLimit: 50,
		Concurrency:  4,
	}
}

// ConfigFromApp maps the application config onto engine settings.
func ConfigFromApp(cfg *config.Config) *Config {
	return &Config{
		MaxPerRun:    cfg.Engine.MaxPerRun,
		HistoryLimit: cfg.History.Limit,
		Concurrency:  cfg.Engine.Concurrency,
		AutoCommit:   cfg.Engine.AutoCommit,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.MaxPerRun < 1 {
		return fmt.Errorf("max_per_run must be positive, got %d", c.MaxPerRun)
	}
	if c.HistoryLimit < 1 {
		return fmt.Errorf("history_limit must be positive, got %d", c.HistoryLimit)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	return nil
}

// FiltersFromConfig converts configured default filters. An unknown kind is
// ignored.
func FiltersFromConfig(fc config.FiltersConfig) models.Filters {
	f := models.Filters{
		Language: strings.TrimSpace(fc.Language),
		YearMin:  fc.YearMin,
		YearMax:  fc.YearMax,
	}
	for _, g := range fc.Genres {
		if g = strings.TrimSpace(g); g != "" {
			f.Genres = append(f.Genres, g)
		}
	}
	if kind, ok := models.ParseMediaKind(fc.Kind); ok {
		f.Kind = kind
	}
	return f
}
