// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package library

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tomtom215/curatarr/internal/config"
	"github.com/tomtom215/curatarr/internal/models"
)

// Radarr is the movie library target. Its native ID is the TMDB movie ID.
type Radarr struct {
	*arrClient
}

var _ Target = (*Radarr)(nil)

type radarrMovie struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Year   int    `json:"year"`
	TMDBID int    `json:"tmdbId"`
	IMDBID string `json:"imdbId"`
}

// NewRadarr creates a Radarr client.
func NewRadarr(cfg config.ArrConfig) (*Radarr, error) {
	c, err := newArrClient("radarr", cfg)
	if err != nil {
		return nil, err
	}
	return &Radarr{arrClient: c}, nil
}

// Name implements Target.
func (r *Radarr) Name() string { return "radarr" }

// Kind implements Target.
func (r *Radarr) Kind() models.MediaKind { return models.MediaMovie }

// ListAll returns every movie in the library.
func (r *Radarr) ListAll(ctx context.Context) ([]Item, error) {
	var movies []radarrMovie
	if err := r.do(ctx, "list", http.MethodGet, "/api/v3/movie", nil, &movies); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(movies))
	for _, m := range movies {
		items = append(items, Item{NativeID: m.TMDBID, CatalogID: m.TMDBID, Title: m.Title, Year: m.Year})
	}
	return items, nil
}

// ExistsByNativeID reports whether a movie with the TMDB ID is in the library.
func (r *Radarr) ExistsByNativeID(ctx context.Context, id int) (bool, error) {
	var movies []radarrMovie
	endpoint := fmt.Sprintf("/api/v3/movie?tmdbId=%d", id)
	if err := r.do(ctx, "exists", http.MethodGet, endpoint, nil, &movies); err != nil {
		return false, err
	}
	for _, m := range movies {
		if m.TMDBID == id {
			return true, nil
		}
	}
	return false, nil
}

// LookupByTitle searches Radarr's metadata provider by title.
func (r *Radarr) LookupByTitle(ctx context.Context, title string) ([]Match, error) {
	var movies []radarrMovie
	endpoint := "/api/v3/movie/lookup?term=" + url.QueryEscape(title)
	if err := r.do(ctx, "lookup", http.MethodGet, endpoint, nil, &movies); err != nil {
		return nil, err
	}
	matches := make([]Match, 0, len(movies))
	for _, m := range movies {
		matches = append(matches, Match{NativeID: m.TMDBID, Title: m.Title, Year: m.Year})
	}
	return matches, nil
}

// Add adds the movie with the given TMDB ID. An existing movie yields
// AlreadyExists and no request to add it.
func (r *Radarr) Add(ctx context.Context, id int, opts AddOptions) (AddResult, error) {
	exists, err := r.ExistsByNativeID(ctx, id)
	if err != nil {
		return AddResult{}, fmt.Errorf("radarr existence check: %w", err)
	}
	if exists {
		return AddResult{AlreadyExists: true, Message: "already exists"}, nil
	}

	var lookup []map[string]any
	endpoint := fmt.Sprintf("/api/v3/movie/lookup?term=%s", url.QueryEscape(fmt.Sprintf("tmdb:%d", id)))
	if err := r.do(ctx, "lookup", http.MethodGet, endpoint, nil, &lookup); err != nil {
		return AddResult{}, err
	}
	if len(lookup) == 0 {
		return AddResult{Message: fmt.Sprintf("could not find tmdb:%d in radarr lookup", id)}, nil
	}

	profile, root, search := r.resolve(opts)
	return r.addLookedUp(ctx, "/api/v3/movie", lookup[0], map[string]any{
		"qualityProfileId": profile,
		"rootFolderPath":   root,
		"monitored":        true,
		"tmdbId":           id,
		"addOptions": map[string]any{
			"searchForMovie": search,
		},
	})
}
