// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

/*
plex.go - Plex Media Server History Source

Reads /status/sessions/history/all newest first and collapses the rows into
distinct titles.

Plex history rows carry the episode, not the show: episodes are keyed on
grandparentTitle and their episode-level GUIDs are ignored so that a series
never inherits an episode's TMDB ID.

Rate limiting:
  - Retries only HTTP 429, at most 5 times
  - Exponential backoff: 1s, 2s, 4s, 8s, 16s
  - Honors Retry-After (seconds) when present
*/

//nolint:staticcheck // File documentation, not package doc
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
	"github.com/tomtom215/curatarr/internal/logging"
	"github.com/tomtom215/curatarr/internal/metrics"
	"github.com/tomtom215/curatarr/internal/models"
)

// PlexSource reads watch history from Plex Media Server.
type PlexSource struct {
	baseURL    string
	token      string
	accountID  string
	httpClient *http.Client
	cb         *breaker.Breaker

	maxRetries     int
	retryBaseDelay time.Duration
}

type plexHistoryResponse struct {
	MediaContainer struct {
		Size     int            `json:"size"`
		Metadata []plexMetadata `json:"Metadata"`
	} `json:"MediaContainer"`
}

type plexMetadata struct {
	RatingKey        string `json:"ratingKey"`
	Type             string `json:"type"` // "movie", "episode", "track"
	Title            string `json:"title"`
	GrandparentTitle string `json:"grandparentTitle,omitempty"`
	ViewedAt         int64  `json:"viewedAt"`
	AccountID        int    `json:"accountID"`
	Year             int    `json:"year,omitempty"`
	Guid             string `json:"guid,omitempty"` //nolint:revive // matches Plex field name
	Thumb            string `json:"thumb,omitempty"`
}

// NewPlexSource creates a Plex history source. accountID optionally scopes
// history to one Plex account.
func NewPlexSource(baseURL, token, accountID string) *PlexSource {
	return &PlexSource{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		token:          token,
		accountID:      accountID,
		httpClient:     &http.Client{Timeout: defaultTimeout},
		cb:             newBreaker("plex"),
		maxRetries:     5,
		retryBaseDelay: time.Second,
	}
}

// Name implements Source.
func (s *PlexSource) Name() string { return "plex" }

// Fetch implements Source.
func (s *PlexSource) Fetch(ctx context.Context, limit int) ([]models.WatchedItem, error) {
	start := time.Now()
	rows, err := breaker.Execute(s.cb, func() ([]plexMetadata, error) {
		return s.getHistory(ctx, rawLimit(limit))
	})
	metrics.RecordExternalRequest("plex", "history", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	plays := make([]play, 0, len(rows))
	for i := range rows {
		if p, ok := plexRowToPlay(&rows[i]); ok {
			plays = append(plays, p)
		}
	}
	return collapse(plays, limit), nil
}

func plexRowToPlay(m *plexMetadata) (play, bool) {
	p := play{at: time.Unix(m.ViewedAt, 0).UTC()}
	switch m.Type {
	case "movie":
		p.kind = models.MediaMovie
		p.title = m.Title
		p.year = m.Year
		parseGUID(m.Guid, &p.ids)
	case "episode":
		p.kind = models.MediaSeries
		p.title = m.GrandparentTitle
	case "show":
		p.kind = models.MediaSeries
		p.title = m.Title
		p.year = m.Year
		parseGUID(m.Guid, &p.ids)
	default:
		return play{}, false
	}
	return p, p.title != ""
}

func (s *PlexSource) getHistory(ctx context.Context, size int) ([]plexMetadata, error) {
	query := url.Values{}
	query.Set("sort", "viewedAt:desc")
	query.Set("X-Plex-Container-Start", "0")
	query.Set("X-Plex-Container-Size", strconv.Itoa(size))
	if s.accountID != "" {
		query.Set("accountID", s.accountID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/status/sessions/history/all", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.URL.RawQuery = query.Encode()
	req.Header.Set("X-Plex-Token", s.token)
	req.Header.Set("Accept", "application/json")

	resp, err := s.doRequestWithRateLimit(req)
	if err != nil {
		return nil, fmt.Errorf("plex history request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("plex history returned status %d: %s", resp.StatusCode, readBodyForError(resp.Body))
	}

	var historyResp plexHistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&historyResp); err != nil {
		return nil, fmt.Errorf("failed to decode plex history: %w", err)
	}
	return historyResp.MediaContainer.Metadata, nil
}

// doRequestWithRateLimit executes req, retrying on HTTP 429 with
// exponential backoff. The caller must close the returned body.
func (s *PlexSource) doRequestWithRateLimit(req *http.Request) (*http.Response, error) {
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("execute request: %w", err)
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}
		_ = resp.Body.Close()

		if attempt == s.maxRetries {
			return nil, fmt.Errorf("rate limit exceeded after %d retries", s.maxRetries)
		}

		retryDelay := s.retryBaseDelay * (1 << attempt)
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds >= 0 {
				retryDelay = time.Duration(seconds) * time.Second
			}
		}

		logging.Warn().Dur("retry_delay", retryDelay).Int("attempt", attempt+1).Int("max_retries", s.maxRetries).Msg("Plex API rate limited (HTTP 429), retrying")

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(retryDelay):
		}
	}

	return nil, fmt.Errorf("unreachable code: retry loop should return or error")
}
