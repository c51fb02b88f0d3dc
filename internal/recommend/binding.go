// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package recommend

import (
	"github.com/tomtom215/curatarr/internal/models"
)

// kindBinding ties a media kind to its library target and to the candidate
// ID that target uses natively. The set of variants is closed.
type kindBinding interface {
	kind() models.MediaKind
	target() LibraryTarget
	// nativeID is the candidate's ID in the target's numbering, 0 if unknown.
	// It keys the library snapshot and is the commit fallback.
	nativeID(c *models.Candidate) int
	// fallbackName labels the fallback ID in logs and messages.
	fallbackName() string
}

// movieBinding: Radarr keys movies by catalog (TMDB) ID.
type movieBinding struct{ t LibraryTarget }

func (b movieBinding) kind() models.MediaKind           { return models.MediaMovie }
func (b movieBinding) target() LibraryTarget            { return b.t }
func (b movieBinding) nativeID(c *models.Candidate) int { return c.TMDBID }
func (b movieBinding) fallbackName() string             { return "tmdb" }

// seriesBinding: Sonarr keys series by TVDB ID.
type seriesBinding struct{ t LibraryTarget }

func (b seriesBinding) kind() models.MediaKind           { return models.MediaSeries }
func (b seriesBinding) target() LibraryTarget            { return b.t }
func (b seriesBinding) nativeID(c *models.Candidate) int { return c.TVDBID }
func (b seriesBinding) fallbackName() string             { return "tvdb" }

// bindings holds one binding per kind, selected once per candidate.
type bindings struct {
	movie  movieBinding
	series seriesBinding
}

func (b *bindings) forKind(kind models.MediaKind) kindBinding {
	switch kind {
	case models.MediaMovie:
		return b.movie
	case models.MediaSeries:
		return b.series
	default:
		return nil
	}
}

func (b *bindings) all() []kindBinding {
	return []kindBinding{b.movie, b.series}
}
