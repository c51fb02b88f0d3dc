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

// Sonarr is the series library target. Its native ID is the TVDB series ID.
type Sonarr struct {
	*arrClient
}

var _ Target = (*Sonarr)(nil)

type sonarrSeries struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Year   int    `json:"year"`
	TVDBID int    `json:"tvdbId"`
	TMDBID int    `json:"tmdbId"`
}

// NewSonarr creates a Sonarr client.
func NewSonarr(cfg config.ArrConfig) (*Sonarr, error) {
	c, err := newArrClient("sonarr", cfg)
	if err != nil {
		return nil, err
	}
	return &Sonarr{arrClient: c}, nil
}

// Name implements Target.
func (s *Sonarr) Name() string { return "sonarr" }

// Kind implements Target.
func (s *Sonarr) Kind() models.MediaKind { return models.MediaSeries }

// ListAll returns every series in the library.
func (s *Sonarr) ListAll(ctx context.Context) ([]Item, error) {
	var series []sonarrSeries
	if err := s.do(ctx, "list", http.MethodGet, "/api/v3/series", nil, &series); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(series))
	for _, sr := range series {
		items = append(items, Item{NativeID: sr.TVDBID, CatalogID: sr.TMDBID, Title: sr.Title, Year: sr.Year})
	}
	return items, nil
}

// ExistsByNativeID reports whether a series with the TVDB ID is in the library.
func (s *Sonarr) ExistsByNativeID(ctx context.Context, id int) (bool, error) {
	var series []sonarrSeries
	endpoint := fmt.Sprintf("/api/v3/series?tvdbId=%d", id)
	if err := s.do(ctx, "exists", http.MethodGet, endpoint, nil, &series); err != nil {
		return false, err
	}
	for _, sr := range series {
		if sr.TVDBID == id {
			return true, nil
		}
	}
	return false, nil
}

// LookupByTitle searches Sonarr's metadata provider by title.
func (s *Sonarr) LookupByTitle(ctx context.Context, title string) ([]Match, error) {
	var series []sonarrSeries
	endpoint := "/api/v3/series/lookup?term=" + url.QueryEscape(title)
	if err := s.do(ctx, "lookup", http.MethodGet, endpoint, nil, &series); err != nil {
		return nil, err
	}
	matches := make([]Match, 0, len(series))
	for _, sr := range series {
		matches = append(matches, Match{NativeID: sr.TVDBID, Title: sr.Title, Year: sr.Year})
	}
	return matches, nil
}

// Add adds the series with the given TVDB ID. An existing series yields
// AlreadyExists and no request to add it.
func (s *Sonarr) Add(ctx context.Context, id int, opts AddOptions) (AddResult, error) {
	exists, err := s.ExistsByNativeID(ctx, id)
	if err != nil {
		return AddResult{}, fmt.Errorf("sonarr existence check: %w", err)
	}
	if exists {
		return AddResult{AlreadyExists: true, Message: "already exists"}, nil
	}

	var lookup []map[string]any
	endpoint := fmt.Sprintf("/api/v3/series/lookup?term=%s", url.QueryEscape(fmt.Sprintf("tvdb:%d", id)))
	if err := s.do(ctx, "lookup", http.MethodGet, endpoint, nil, &lookup); err != nil {
		return AddResult{}, err
	}
	if len(lookup) == 0 {
		return AddResult{Message: fmt.Sprintf("could not find tvdb:%d in sonarr lookup", id)}, nil
	}

	profile, root, search := s.resolve(opts)
	return s.addLookedUp(ctx, "/api/v3/series", lookup[0], map[string]any{
		"qualityProfileId": profile,
		"rootFolderPath":   root,
		"monitored":        true,
		"seasonFolder":     true,
		"tvdbId":           id,
		"addOptions": map[string]any{
			"monitor":                  "all",
			"searchForMissingEpisodes": search,
		},
	})
}
