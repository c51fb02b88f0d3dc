// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

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

// TautulliSource reads watch history through Tautulli's get_history command.
type TautulliSource struct {
	baseURL    string
	apiKey     string
	user       string
	httpClient *http.Client
	cb         *breaker.Breaker
}

type tautulliHistoryResponse struct {
	Response struct {
		Result  string  `json:"result"`
		Message *string `json:"message"`
		Data    struct {
			RecordsFiltered int                   `json:"recordsFiltered"`
			Data            []tautulliHistoryItem `json:"data"`
		} `json:"data"`
	} `json:"response"`
}

type tautulliHistoryItem struct {
	Date             int64  `json:"date"`
	MediaType        string `json:"media_type"` // "movie", "episode", "track"
	Title            string `json:"title"`
	GrandparentTitle string `json:"grandparent_title"`
	Year             int    `json:"year"`
	GUID             string `json:"guid"`
	RatingKey        int    `json:"rating_key"`
}

// NewTautulliSource creates a Tautulli history source. user optionally
// filters history to one Plex username.
func NewTautulliSource(baseURL, apiKey, user string) *TautulliSource {
	return &TautulliSource{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		user:       user,
		httpClient: &http.Client{Timeout: defaultTimeout},
		cb:         newBreaker("tautulli"),
	}
}

// Name implements Source.
func (s *TautulliSource) Name() string { return "tautulli" }

// Fetch implements Source.
func (s *TautulliSource) Fetch(ctx context.Context, limit int) ([]models.WatchedItem, error) {
	start := time.Now()
	rows, err := breaker.Execute(s.cb, func() ([]tautulliHistoryItem, error) {
		return s.getHistory(ctx, rawLimit(limit))
	})
	metrics.RecordExternalRequest("tautulli", "history", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	plays := make([]play, 0, len(rows))
	for i := range rows {
		r := &rows[i]
		p := play{at: time.Unix(r.Date, 0).UTC()}
		switch r.MediaType {
		case "movie":
			p.kind = models.MediaMovie
			p.title = r.Title
			p.year = r.Year
			parseGUID(r.GUID, &p.ids)
		case "episode":
			p.kind = models.MediaSeries
			p.title = r.GrandparentTitle
		default:
			continue
		}
		plays = append(plays, p)
	}
	return collapse(plays, limit), nil
}

func (s *TautulliSource) getHistory(ctx context.Context, length int) ([]tautulliHistoryItem, error) {
	params := url.Values{}
	params.Set("apikey", s.apiKey)
	params.Set("cmd", "get_history")
	params.Set("start", "0")
	params.Set("length", strconv.Itoa(length))
	params.Set("order_column", "date")
	params.Set("order_dir", "desc")
	if s.user != "" {
		params.Set("user", s.user)
	}

	reqURL := fmt.Sprintf("%s/api/v2?%s", s.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make history request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("history request failed with status %d: %s", resp.StatusCode, readBodyForError(resp.Body))
	}

	var history tautulliHistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		return nil, fmt.Errorf("failed to decode history response: %w", err)
	}
	if history.Response.Result != "success" {
		msg := "unknown error"
		if history.Response.Message != nil {
			msg = *history.Response.Message
		}
		return nil, fmt.Errorf("tautulli get_history failed: %s", msg)
	}
	return history.Response.Data.Data, nil
}
