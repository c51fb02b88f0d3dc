// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

/*
tmdb.go - TMDB v3 Catalog Client

Client Features:
  - api_key query authentication, or Bearer for v4 read access tokens
  - Token-bucket request limiter (golang.org/x/time/rate)
  - Circuit breaker shared by all endpoints
  - TTL LRU cache for external IDs and details

Endpoints:
  - /search/{movie|tv}: SearchByTitle
  - /{movie|tv}/{id}/recommendations: RelatedTo
  - /discover/{movie|tv}: Discover
  - /{movie|tv}/{id}/external_ids: ExternalIDs
  - /{movie|tv}/{id}: Details

A 404 is reported as ErrNotFound and does not count against the breaker.
*/

//nolint:staticcheck // File documentation, not package doc
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/curatarr/internal/breaker"
	"github.com/tomtom215/curatarr/internal/cache"
	"github.com/tomtom215/curatarr/internal/config"
	"github.com/tomtom215/curatarr/internal/metrics"
	"github.com/tomtom215/curatarr/internal/models"
)

var (
	// ErrNotConfigured is returned by New when no API key is set.
	ErrNotConfigured = errors.New("tmdb api key not configured")

	// ErrNotFound is returned when TMDB has no record for an ID.
	ErrNotFound = errors.New("tmdb: not found")
)

const (
	maxErrorBodySize = 64 * 1024
	maxDiscoverPages = 5
)

// Client is the TMDB catalog recommender.
type Client struct {
	apiKey       string
	baseURL      string
	imageBaseURL string
	language     string
	httpClient   *http.Client
	limiter      *rate.Limiter
	cb           *breaker.Breaker

	externalIDs *cache.LRU[models.ExternalIDs]
	details     *cache.LRU[models.Candidate]
}

type tmdbResult struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	Name             string  `json:"name"`
	Overview         string  `json:"overview"`
	ReleaseDate      string  `json:"release_date"`
	FirstAirDate     string  `json:"first_air_date"`
	OriginalLanguage string  `json:"original_language"`
	PosterPath       string  `json:"poster_path"`
	VoteAverage      float64 `json:"vote_average"`
	Popularity       float64 `json:"popularity"`
	GenreIDs         []int   `json:"genre_ids"`
	Genres           []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"genres"`
	ExternalIDs *tmdbExternalIDs `json:"external_ids,omitempty"`
}

type tmdbPage struct {
	Page         int          `json:"page"`
	Results      []tmdbResult `json:"results"`
	TotalPages   int          `json:"total_pages"`
	TotalResults int          `json:"total_results"`
}

type tmdbExternalIDs struct {
	IMDBID string `json:"imdb_id"`
	TVDBID int    `json:"tvdb_id"`
}

// New creates a TMDB client from configuration.
func New(cfg config.TMDBConfig) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrNotConfigured
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 20
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	settings := breaker.DefaultSettings("tmdb")
	settings.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
	}

	return &Client{
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		imageBaseURL: strings.TrimRight(cfg.ImageBaseURL, "/"),
		language:     cfg.Language,
		httpClient:   &http.Client{Timeout: timeout},
		limiter:      rate.NewLimiter(rate.Limit(rps), max(1, int(rps))),
		cb:           breaker.New(settings),
		externalIDs:  cache.NewLRU[models.ExternalIDs](cfg.CacheSize, cfg.CacheTTL),
		details:      cache.NewLRU[models.Candidate](cfg.CacheSize, cfg.CacheTTL),
	}, nil
}

func kindPath(kind models.MediaKind) string {
	if kind == models.MediaSeries {
		return "tv"
	}
	return "movie"
}

// SearchByTitle returns the best match for title, or nil when TMDB has none.
func (c *Client) SearchByTitle(ctx context.Context, title string, kind models.MediaKind) (*models.Candidate, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("query must not be empty")
	}

	params := url.Values{}
	params.Set("query", title)
	params.Set("include_adult", "false")

	var page tmdbPage
	if err := c.get(ctx, "search", "/search/"+kindPath(kind), params, &page); err != nil {
		return nil, err
	}
	if len(page.Results) == 0 {
		return nil, nil
	}

	// Prefer an exact title match over TMDB's relevance order.
	best := &page.Results[0]
	for i := range page.Results {
		if strings.EqualFold(resultTitle(&page.Results[i]), title) {
			best = &page.Results[i]
			break
		}
	}
	cand := c.toCandidate(best, kind)
	return &cand, nil
}

// RelatedTo returns up to limit titles TMDB recommends for the given title.
func (c *Client) RelatedTo(ctx context.Context, id int, kind models.MediaKind, limit int) ([]models.Candidate, error) {
	if id <= 0 || limit <= 0 {
		return nil, nil
	}

	var page tmdbPage
	path := fmt.Sprintf("/%s/%d/recommendations", kindPath(kind), id)
	if err := c.get(ctx, "recommendations", path, url.Values{"page": {"1"}}, &page); err != nil {
		return nil, err
	}
	return c.toCandidates(page.Results, kind, limit), nil
}

// Discover returns up to limit popular titles matching the attribute filters.
func (c *Client) Discover(ctx context.Context, filters models.Filters, kind models.MediaKind, limit int) ([]models.Candidate, error) {
	if limit <= 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("sort_by", "popularity.desc")
	params.Set("include_adult", "false")
	if ids := GenreIDs(kind, filters.Genres); len(ids) > 0 {
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = strconv.Itoa(id)
		}
		// "|" is OR in TMDB discover; the genre filter is any-match.
		params.Set("with_genres", strings.Join(parts, "|"))
	}
	dateField := "primary_release_date"
	if kind == models.MediaSeries {
		dateField = "first_air_date"
	}
	if filters.YearMin > 0 {
		params.Set(dateField+".gte", fmt.Sprintf("%04d-01-01", filters.YearMin))
	}
	if filters.YearMax > 0 {
		params.Set(dateField+".lte", fmt.Sprintf("%04d-12-31", filters.YearMax))
	}
	if filters.LanguageActive() {
		params.Set("with_original_language", strings.ToLower(filters.Language))
	}

	out := make([]models.Candidate, 0, limit)
	for pageNum := 1; pageNum <= maxDiscoverPages && len(out) < limit; pageNum++ {
		params.Set("page", strconv.Itoa(pageNum))
		var page tmdbPage
		if err := c.get(ctx, "discover", "/discover/"+kindPath(kind), params, &page); err != nil {
			if len(out) > 0 {
				return out, nil
			}
			return nil, err
		}
		out = append(out, c.toCandidates(page.Results, kind, limit-len(out))...)
		if pageNum >= page.TotalPages {
			break
		}
	}
	return out, nil
}

// ExternalIDs returns the TVDB and IMDb IDs for a TMDB title.
func (c *Client) ExternalIDs(ctx context.Context, id int, kind models.MediaKind) (models.ExternalIDs, error) {
	key := fmt.Sprintf("%s:%d", kind, id)
	if ids, ok := c.externalIDs.Get(key); ok {
		return ids, nil
	}

	var ext tmdbExternalIDs
	path := fmt.Sprintf("/%s/%d/external_ids", kindPath(kind), id)
	if err := c.get(ctx, "external_ids", path, nil, &ext); err != nil {
		return models.ExternalIDs{}, err
	}

	ids := models.ExternalIDs{TVDBID: ext.TVDBID, IMDBID: ext.IMDBID}
	c.externalIDs.Add(key, ids)
	return ids, nil
}

// Details returns full metadata for a TMDB title, including external IDs.
func (c *Client) Details(ctx context.Context, id int, kind models.MediaKind) (*models.Candidate, error) {
	key := fmt.Sprintf("%s:%d", kind, id)
	if cand, ok := c.details.Get(key); ok {
		return &cand, nil
	}

	var res tmdbResult
	path := fmt.Sprintf("/%s/%d", kindPath(kind), id)
	if err := c.get(ctx, "details", path, url.Values{"append_to_response": {"external_ids"}}, &res); err != nil {
		return nil, err
	}

	cand := c.toCandidate(&res, kind)
	if res.ExternalIDs != nil {
		cand.TVDBID = res.ExternalIDs.TVDBID
		cand.IMDBID = res.ExternalIDs.IMDBID
		c.externalIDs.Add(key, models.ExternalIDs{TVDBID: cand.TVDBID, IMDBID: cand.IMDBID})
	}
	c.details.Add(key, cand)
	return &cand, nil
}

func (c *Client) toCandidates(results []tmdbResult, kind models.MediaKind, limit int) []models.Candidate {
	n := min(len(results), limit)
	out := make([]models.Candidate, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, c.toCandidate(&results[i], kind))
	}
	return out
}

func (c *Client) toCandidate(r *tmdbResult, kind models.MediaKind) models.Candidate {
	cand := models.Candidate{
		Title:    resultTitle(r),
		Year:     yearOf(r.ReleaseDate, r.FirstAirDate),
		Language: r.OriginalLanguage,
		Kind:     kind,
		TMDBID:   r.ID,
		Overview: r.Overview,
		Rating:   r.VoteAverage,
		Source:   models.SourceCatalog,
	}
	if r.PosterPath != "" {
		cand.PosterURL = c.imageBaseURL + r.PosterPath
	}
	if len(r.Genres) > 0 {
		for _, g := range r.Genres {
			cand.Genres = append(cand.Genres, g.Name)
		}
	} else {
		cand.Genres = GenreNames(kind, r.GenreIDs)
	}
	return cand
}

func resultTitle(r *tmdbResult) string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

// yearOf parses the year from the first non-empty YYYY-MM-DD date.
func yearOf(dates ...string) int {
	for _, d := range dates {
		if len(d) >= 4 {
			if y, err := strconv.Atoi(d[:4]); err == nil && y > 0 {
				return y
			}
		}
	}
	return 0
}

// get issues a rate-limited, breaker-guarded GET and decodes the JSON body.
func (c *Client) get(ctx context.Context, operation, path string, params url.Values, out any) error {
	start := time.Now()
	_, err := breaker.Execute(c.cb, func() (struct{}, error) {
		return struct{}{}, c.doGet(ctx, path, params, out)
	})
	metrics.RecordExternalRequest("tmdb", operation, time.Since(start), err)
	return err
}

func (c *Client) doGet(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("tmdb rate limiter: %w", err)
	}

	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	if c.language != "" {
		q.Set("language", c.language)
	}
	bearer := strings.HasPrefix(c.apiKey, "eyJ")
	if !bearer {
		q.Set("api_key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if bearer {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tmdb request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return fmt.Errorf("tmdb %s returned status %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode tmdb response: %w", err)
	}
	return nil
}
