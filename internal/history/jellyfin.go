// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

/*
jellyfin.go - Jellyfin History Source

Jellyfin has no global play log; played state is per user. The source lists
the user's played movies and episodes sorted by DatePlayed and collapses the
episodes into their series.

API Reference: https://api.jellyfin.org/
*/

package history

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/curatarr/internal/breaker"
	"github.com/tomtom215/curatarr/internal/metrics"
	"github.com/tomtom215/curatarr/internal/models"
)

// JellyfinSource reads played items for one Jellyfin user.
type JellyfinSource struct {
	baseURL    string
	apiKey     string
	userID     string
	httpClient *http.Client
	cb         *breaker.Breaker
}

type jellyfinItemsResponse struct {
	Items            []jellyfinItem `json:"Items"`
	TotalRecordCount int            `json:"TotalRecordCount"`
}

type jellyfinItem struct {
	ID             string            `json:"Id"`
	Name           string            `json:"Name"`
	Type           string            `json:"Type"` // "Movie", "Episode", "Series"
	ProductionYear int               `json:"ProductionYear,omitempty"`
	SeriesName     string            `json:"SeriesName,omitempty"`
	Overview       string            `json:"Overview,omitempty"`
	Genres         []string          `json:"Genres,omitempty"`
	ProviderIDs    map[string]string `json:"ProviderIds,omitempty"`
	UserData       *struct {
		PlayCount      int       `json:"PlayCount"`
		LastPlayedDate time.Time `json:"LastPlayedDate"`
		Played         bool      `json:"Played"`
	} `json:"UserData,omitempty"`
}

// NewJellyfinSource creates a Jellyfin history source for userID.
func NewJellyfinSource(baseURL, apiKey, userID string) *JellyfinSource {
	return &JellyfinSource{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		userID:     userID,
		httpClient: &http.Client{Timeout: defaultTimeout},
		cb:         newBreaker("jellyfin"),
	}
}

// Name implements Source.
func (s *JellyfinSource) Name() string { return "jellyfin" }

// Fetch implements Source.
func (s *JellyfinSource) Fetch(ctx context.Context, limit int) ([]models.WatchedItem, error) {
	start := time.Now()
	items, err := breaker.Execute(s.cb, func() ([]jellyfinItem, error) {
		return s.getPlayedItems(ctx, rawLimit(limit))
	})
	metrics.RecordExternalRequest("jellyfin", "history", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	plays := make([]play, 0, len(items))
	for i := range items {
		if p, ok := jellyfinItemToPlay(&items[i]); ok {
			plays = append(plays, p)
		}
	}
	return collapse(plays, limit), nil
}

func jellyfinItemToPlay(it *jellyfinItem) (play, bool) {
	var p play
	if it.UserData != nil {
		p.at = it.UserData.LastPlayedDate
		p.count = it.UserData.PlayCount
	}

	switch it.Type {
	case "Movie":
		p.kind = models.MediaMovie
		p.title = it.Name
		p.year = it.ProductionYear
		p.genres = it.Genres
		p.overview = it.Overview
		p.ids = jellyfinProviderIDs(it.ProviderIDs)
	case "Series":
		p.kind = models.MediaSeries
		p.title = it.Name
		p.year = it.ProductionYear
		p.genres = it.Genres
		p.overview = it.Overview
		p.ids = jellyfinProviderIDs(it.ProviderIDs)
	case "Episode":
		p.kind = models.MediaSeries
		p.title = it.SeriesName
	default:
		return play{}, false
	}
	return p, p.title != ""
}

// jellyfinProviderIDs maps ProviderIds keys, which Jellyfin spells with
// inconsistent casing across versions.
func jellyfinProviderIDs(m map[string]string) providerIDs {
	var ids providerIDs
	for k, v := range m {
		switch strings.ToLower(k) {
		case "tmdb":
			ids.tmdb, _ = strconv.Atoi(v)
		case "tvdb":
			ids.tvdb, _ = strconv.Atoi(v)
		case "imdb":
			ids.imdb = v
		}
	}
	return ids
}

func (s *JellyfinSource) getPlayedItems(ctx context.Context, size int) ([]jellyfinItem, error) {
	query := url.Values{}
	query.Set("IsPlayed", "true")
	query.Set("Recursive", "true")
	query.Set("IncludeItemTypes", "Movie,Episode")
	query.Set("SortBy", "DatePlayed")
	query.Set("SortOrder", "Descending")
	query.Set("Fields", "ProviderIds,Genres,Overview,ProductionYear")
	query.Set("Limit", strconv.Itoa(size))

	endpoint := fmt.Sprintf("%s/Users/%s/Items?%s", s.baseURL, url.PathEscape(s.userID), query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Emby-Token", s.apiKey)
	req.Header.Set("X-Emby-Client", "Curatarr")
	req.Header.Set("X-Emby-Device-Name", "Curatarr")
	req.Header.Set("X-Emby-Device-Id", "curatarr")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jellyfin items request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jellyfin items returned status %d: %s", resp.StatusCode, readBodyForError(resp.Body))
	}

	var itemsResp jellyfinItemsResponse
	if err := json.NewDecoder(resp.Body).Decode(&itemsResp); err != nil {
		return nil, fmt.Errorf("failed to decode jellyfin items: %w", err)
	}
	return itemsResp.Items, nil
}
