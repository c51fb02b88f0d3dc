// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

// Package library talks to the media library managers that own each media
// kind: Radarr for movies and Sonarr for series. Both speak the *arr v3 API
// and share one HTTP layer; they differ in endpoint names, in which external
// ID is their native key (TMDB for Radarr, TVDB for Sonarr) and in their add
// options.
package library

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/curatarr/internal/breaker"
	"github.com/tomtom215/curatarr/internal/config"
	"github.com/tomtom215/curatarr/internal/metrics"
	"github.com/tomtom215/curatarr/internal/models"
)

// ErrNotConfigured is returned by the constructors when a target is
// disabled or incomplete.
var ErrNotConfigured = errors.New("library target not configured")

const maxErrorBodySize = 64 * 1024

// Item is one title already present in a library. CatalogID is the TMDB ID
// the target recorded for it, 0 when unknown; for Radarr it equals NativeID.
type Item struct {
	NativeID  int    `json:"native_id"`
	CatalogID int    `json:"catalog_id,omitempty"`
	Title     string `json:"title"`
	Year      int    `json:"year,omitempty"`
}

// Match is one result of a title lookup against the target's metadata
// provider. NativeID is zero when the provider knows the title but has no
// native key for it.
type Match struct {
	NativeID int    `json:"native_id"`
	Title    string `json:"title"`
	Year     int    `json:"year,omitempty"`
}

// AddOptions override the configured defaults for one add. Zero values keep
// the defaults.
type AddOptions struct {
	QualityProfileID  int    `json:"quality_profile_id,omitempty"`
	RootFolderPath    string `json:"root_folder_path,omitempty"`
	SearchImmediately *bool  `json:"search_immediately,omitempty"`
}

// AddResult reports an add attempt. AlreadyExists is an expected negative,
// not an error.
type AddResult struct {
	Success       bool   `json:"success"`
	AlreadyExists bool   `json:"already_exists,omitempty"`
	Message       string `json:"message"`
}

// Target is the operation set the engine needs from a library manager.
type Target interface {
	Name() string
	Kind() models.MediaKind
	ListAll(ctx context.Context) ([]Item, error)
	ExistsByNativeID(ctx context.Context, id int) (bool, error)
	LookupByTitle(ctx context.Context, title string) ([]Match, error)
	Add(ctx context.Context, id int, opts AddOptions) (AddResult, error)
}

// arrClient is the HTTP layer shared by Radarr and Sonarr.
type arrClient struct {
	service    string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cb         *breaker.Breaker

	qualityProfileID int
	rootFolderPath   string
	searchOnAdd      bool
}

func newArrClient(service string, cfg config.ArrConfig) (*arrClient, error) {
	if !cfg.Enabled || cfg.URL == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", service, ErrNotConfigured)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	settings := breaker.DefaultSettings(service)
	settings.IsSuccessful = isHealthyOutcome

	return &arrClient{
		service:          service,
		baseURL:          strings.TrimRight(cfg.URL, "/"),
		apiKey:           cfg.APIKey,
		httpClient:       &http.Client{Timeout: timeout},
		cb:               breaker.New(settings),
		qualityProfileID: cfg.QualityProfileID,
		rootFolderPath:   cfg.RootFolderPath,
		searchOnAdd:      cfg.SearchOnAdd,
	}, nil
}

// isHealthyOutcome keeps 4xx responses (validation, duplicates) from
// tripping the breaker.
func isHealthyOutcome(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var se *statusError
	return errors.As(err, &se) && se.StatusCode < http.StatusInternalServerError
}

// resolve applies per-call overrides to the configured defaults.
func (c *arrClient) resolve(opts AddOptions) (profile int, root string, search bool) {
	profile, root, search = c.qualityProfileID, c.rootFolderPath, c.searchOnAdd
	if opts.QualityProfileID > 0 {
		profile = opts.QualityProfileID
	}
	if opts.RootFolderPath != "" {
		root = opts.RootFolderPath
	}
	if opts.SearchImmediately != nil {
		search = *opts.SearchImmediately
	}
	return profile, root, search
}

// statusError carries a non-2xx response so callers can special-case it.
type statusError struct {
	Service    string
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s %s returned status %d: %s", e.Service, e.Endpoint, e.StatusCode, e.Body)
}

// do issues a breaker-guarded request and decodes a JSON response into out
// when out is non-nil.
func (c *arrClient) do(ctx context.Context, operation, method, endpoint string, body, out any) error {
	start := time.Now()
	_, err := breaker.Execute(c.cb, func() (struct{}, error) {
		return struct{}{}, c.doOnce(ctx, method, endpoint, body, out)
	})
	metrics.RecordExternalRequest(c.service, operation, time.Since(start), err)
	return err
}

func (c *arrClient) doOnce(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", c.service, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return &statusError{
			Service:    c.service,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", c.service, err)
	}
	return nil
}

// isAlreadyAddedError reports whether err is the *arr validation failure
// for a duplicate add, which races past the existence check.
func isAlreadyAddedError(err error) bool {
	var se *statusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadRequest {
		return false
	}
	lower := strings.ToLower(se.Body)
	return strings.Contains(lower, "already been added") || strings.Contains(lower, "already exists")
}

// addLookedUp posts a lookup result back to the target with the resolved
// add options merged in. The lookup object is forwarded as-is so the target
// receives every field it needs (titleSlug, images, seasons).
func (c *arrClient) addLookedUp(ctx context.Context, endpoint string, lookup map[string]any, extra map[string]any) (AddResult, error) {
	for k, v := range extra {
		lookup[k] = v
	}

	var created map[string]any
	err := c.do(ctx, "add", http.MethodPost, endpoint, lookup, &created)
	switch {
	case err == nil:
		title, _ := lookup["title"].(string)
		return AddResult{Success: true, Message: fmt.Sprintf("added %q to %s", title, c.service)}, nil
	case isAlreadyAddedError(err):
		return AddResult{AlreadyExists: true, Message: "already exists"}, nil
	default:
		return AddResult{}, err
	}
}
