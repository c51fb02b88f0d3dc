// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

// Package models holds the data types shared by the reconciliation engine,
// its collaborators, the store and the API.
package models

import (
	"strings"
	"time"
)

// MediaKind is the media kind of a title. Each kind maps to exactly one
// library target: movies to Radarr, series to Sonarr.
type MediaKind string

const (
	MediaMovie  MediaKind = "movie"
	MediaSeries MediaKind = "series"
)

// AllMediaKinds lists the kinds in their canonical order.
var AllMediaKinds = []MediaKind{MediaMovie, MediaSeries}

// Valid reports whether k is one of the known kinds.
func (k MediaKind) Valid() bool {
	return k == MediaMovie || k == MediaSeries
}

// ParseMediaKind normalizes the spellings used by media servers, TMDB and
// model output ("tv", "show", "episode", "film").
func ParseMediaKind(s string) (MediaKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "movies", "film":
		return MediaMovie, true
	case "series", "tv", "show", "shows", "tvshow", "tv_show", "episode", "season":
		return MediaSeries, true
	default:
		return "", false
	}
}

// ExternalIDs are identifiers in schemes other than the catalog's own.
type ExternalIDs struct {
	TVDBID int    `json:"tvdb_id,omitempty"`
	IMDBID string `json:"imdb_id,omitempty"`
}

// WatchedItem is one distinct title from the watch history. Episodes are
// collapsed into their series by the history source.
type WatchedItem struct {
	Title      string    `json:"title"`
	Year       int       `json:"year,omitempty"`
	Kind       MediaKind `json:"kind"`
	TMDBID     int       `json:"tmdb_id,omitempty"`
	TVDBID     int       `json:"tvdb_id,omitempty"`
	IMDBID     string    `json:"imdb_id,omitempty"`
	Genres     []string  `json:"genres,omitempty"`
	LastPlayed time.Time `json:"last_played,omitempty"`
	PlayCount  int       `json:"play_count,omitempty"`
	Overview   string    `json:"overview,omitempty"`
	PosterURL  string    `json:"poster_url,omitempty"`
}

// TitleKey is the case-insensitive key used for title matching.
func TitleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
