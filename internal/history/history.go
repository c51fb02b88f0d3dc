// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

// Package history reads watch history from a media server.
//
// Exactly one source is active per deployment: Plex, Jellyfin or Tautulli.
// Every source returns distinct titles, most recently played first, with
// episodes collapsed into their series and repeated plays summed into
// PlayCount. Provider GUIDs are parsed into catalog (TMDB), cross-reference
// (TVDB) and industry (IMDb) IDs where the server exposes them.
package history

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/curatarr/internal/breaker"
	"github.com/tomtom215/curatarr/internal/config"
	"github.com/tomtom215/curatarr/internal/models"
)

// Source fetches up to limit distinct watched titles.
type Source interface {
	Fetch(ctx context.Context, limit int) ([]models.WatchedItem, error)
	Name() string
}

const (
	defaultTimeout = 30 * time.Second

	// rawRowsPerItem over-fetches raw rows because one binge of a series
	// can fill a page with episodes of the same show.
	rawRowsPerItem = 5
	maxRawRows     = 1000

	// maxErrorBodySize limits how much of an error response body is read.
	maxErrorBodySize = 64 * 1024
)

// New builds the configured history source, each wrapped in its own breaker.
func New(cfg *config.Config) (Source, error) {
	switch cfg.History.Source {
	case config.HistorySourcePlex:
		return NewPlexSource(cfg.Plex.URL, cfg.Plex.Token, cfg.Plex.AccountID), nil
	case config.HistorySourceJellyfin:
		return NewJellyfinSource(cfg.Jellyfin.URL, cfg.Jellyfin.APIKey, cfg.Jellyfin.UserID), nil
	case config.HistorySourceTautulli:
		return NewTautulliSource(cfg.Tautulli.URL, cfg.Tautulli.APIKey, cfg.Tautulli.User), nil
	default:
		return nil, fmt.Errorf("unknown history source %q", cfg.History.Source)
	}
}

// play is one raw history row normalized across servers.
type play struct {
	title    string
	year     int
	kind     models.MediaKind
	ids      providerIDs
	genres   []string
	at       time.Time
	count    int
	overview string
	poster   string
}

type providerIDs struct {
	tmdb int
	tvdb int
	imdb string
}

// collapse merges plays of the same title and kind into one WatchedItem.
// Input must be most-recent-first; output keeps first-seen order and is
// truncated to limit distinct items.
func collapse(plays []play, limit int) []models.WatchedItem {
	items := make([]models.WatchedItem, 0, min(len(plays), limit))
	index := make(map[string]int, len(plays))

	for i := range plays {
		p := &plays[i]
		if strings.TrimSpace(p.title) == "" || !p.kind.Valid() {
			continue
		}
		count := p.count
		if count <= 0 {
			count = 1
		}

		key := string(p.kind) + "|" + models.TitleKey(p.title)
		if pos, ok := index[key]; ok {
			item := &items[pos]
			item.PlayCount += count
			if item.Year == 0 {
				item.Year = p.year
			}
			if item.TMDBID == 0 {
				item.TMDBID = p.ids.tmdb
			}
			if item.TVDBID == 0 {
				item.TVDBID = p.ids.tvdb
			}
			if item.IMDBID == "" {
				item.IMDBID = p.ids.imdb
			}
			if len(item.Genres) == 0 {
				item.Genres = p.genres
			}
			continue
		}

		if len(items) >= limit {
			continue
		}
		index[key] = len(items)
		items = append(items, models.WatchedItem{
			Title:      strings.TrimSpace(p.title),
			Year:       p.year,
			Kind:       p.kind,
			TMDBID:     p.ids.tmdb,
			TVDBID:     p.ids.tvdb,
			IMDBID:     p.ids.imdb,
			Genres:     p.genres,
			LastPlayed: p.at,
			PlayCount:  count,
			Overview:   p.overview,
			PosterURL:  p.poster,
		})
	}
	return items
}

// parseGUID extracts provider IDs from the GUID spellings used by Plex
// agents and Tautulli:
//
//	tmdb://603, tvdb://81189, imdb://tt0133093
//	com.plexapp.agents.themoviedb://603?lang=en
//	com.plexapp.agents.thetvdb://81189/1/1?lang=en
//	com.plexapp.agents.imdb://tt0133093?lang=en
//
// Unrecognized schemes (plex://, local://) leave ids untouched.
func parseGUID(guid string, ids *providerIDs) {
	scheme, rest, ok := strings.Cut(strings.TrimSpace(guid), "://")
	if !ok || rest == "" {
		return
	}
	if i := strings.IndexAny(rest, "/?"); i >= 0 {
		rest = rest[:i]
	}

	switch strings.TrimPrefix(strings.ToLower(scheme), "com.plexapp.agents.") {
	case "tmdb", "themoviedb":
		if n, err := strconv.Atoi(rest); err == nil && n > 0 {
			ids.tmdb = n
		}
	case "tvdb", "thetvdb":
		if n, err := strconv.Atoi(rest); err == nil && n > 0 {
			ids.tvdb = n
		}
	case "imdb":
		if strings.HasPrefix(rest, "tt") {
			ids.imdb = rest
		}
	}
}

// readBodyForError reads a bounded prefix of an error response body.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

func rawLimit(limit int) int {
	return min(limit*rawRowsPerItem, maxRawRows)
}

func newBreaker(name string) *breaker.Breaker {
	return breaker.New(breaker.DefaultSettings(name))
}
