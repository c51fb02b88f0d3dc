// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package models

import (
	"strconv"
	"time"
)

// Source identifies which recommender produced a candidate.
type Source string

const (
	SourceCatalog    Source = "catalog"
	SourceGenerative Source = "generative"
)

// ProvenanceFilterDiscovery tags candidates that came from attribute-based
// discovery rather than from a watched title.
const ProvenanceFilterDiscovery = "filter-discovery"

// Status is the review state of a persisted recommendation.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusAdded    Status = "added"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusAdded:
		return true
	}
	return false
}

// statusTransitions lists the allowed non-identity moves. added is terminal
// and reachable only from pending or approved via a successful commit.
var statusTransitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected, StatusAdded},
	StatusApproved: {StatusPending, StatusAdded},
	StatusRejected: {StatusPending},
}

// CanTransition reports whether a record may move from one status to another.
// Re-applying the current status is always allowed.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, s := range statusTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Candidate is a not-yet-persisted recommendation. Zero values mean absent:
// a zero TMDBID or Year is unknown, an empty PosterURL has no poster.
type Candidate struct {
	Title     string    `json:"title"`
	Year      int       `json:"year,omitempty"`
	Language  string    `json:"language,omitempty"`
	Kind      MediaKind `json:"kind"`
	TMDBID    int       `json:"tmdb_id,omitempty"` // catalog ID
	TVDBID    int       `json:"tvdb_id,omitempty"` // cross-reference ID used by Sonarr
	IMDBID    string    `json:"imdb_id,omitempty"`
	Overview  string    `json:"overview,omitempty"`
	PosterURL string    `json:"poster_url,omitempty"`
	Genres    []string  `json:"genres,omitempty"`
	Rating    float64   `json:"rating,omitempty"`
	Source    Source    `json:"source"`
	Reason    string    `json:"reason,omitempty"`   // generative rationale
	BasedOn   string    `json:"based_on,omitempty"` // provenance
}

// IdentityKey is the dedup key: the kind-qualified catalog ID when known,
// otherwise the lower-cased title. TMDB numbers movies and TV separately, so
// the same ID under two kinds is two titles.
func (c *Candidate) IdentityKey() string {
	if c.TMDBID > 0 {
		return CatalogKey(c.Kind, c.TMDBID)
	}
	return "title:" + TitleKey(c.Title)
}

// CatalogKey is the identity key for a catalog ID of the given kind.
func CatalogKey(kind MediaKind, id int) string {
	return "tmdb:" + string(kind) + ":" + strconv.Itoa(id)
}

// Recommendation is a persisted candidate with review state.
type Recommendation struct {
	ID string `json:"id"`
	Candidate
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MergeMissing copies each field of src into c only where c has no value.
// Fields c already carries are never overwritten, so the first source of a
// value keeps it.
func (c *Candidate) MergeMissing(src *Candidate) {
	if src == nil {
		return
	}
	if c.Title == "" {
		c.Title = src.Title
	}
	if c.Year == 0 {
		c.Year = src.Year
	}
	if c.Language == "" {
		c.Language = src.Language
	}
	if c.Kind == "" {
		c.Kind = src.Kind
	}
	if c.TMDBID == 0 {
		c.TMDBID = src.TMDBID
	}
	if c.TVDBID == 0 {
		c.TVDBID = src.TVDBID
	}
	if c.IMDBID == "" {
		c.IMDBID = src.IMDBID
	}
	if c.Overview == "" {
		c.Overview = src.Overview
	}
	if c.PosterURL == "" {
		c.PosterURL = src.PosterURL
	}
	if len(c.Genres) == 0 && len(src.Genres) > 0 {
		c.Genres = append([]string(nil), src.Genres...)
	}
	if c.Rating == 0 {
		c.Rating = src.Rating
	}
	if c.Reason == "" {
		c.Reason = src.Reason
	}
	if c.BasedOn == "" {
		c.BasedOn = src.BasedOn
	}
}
