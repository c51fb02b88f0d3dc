// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package recommend

import (
	"context"

	"github.com/tomtom215/curatarr/internal/library"
	"github.com/tomtom215/curatarr/internal/models"
)

// Exclusion reasons, also used as metric labels.
const (
	excludeLibraryID        = "library_id"
	excludeLibraryCatalogID = "library_catalog_id"
	excludeLibraryTitle     = "library_title"
	excludeWatched          = "watched"
)

// libraryContents is what each configured target listed, by kind.
type libraryContents map[models.MediaKind][]library.Item

// fetchLibraries lists every configured target. A target that fails is left
// out; its error is returned for logging only.
func fetchLibraries(ctx context.Context, bs []kindBinding) (libraryContents, map[models.MediaKind]error) {
	contents := make(libraryContents, len(bs))
	failures := make(map[models.MediaKind]error)
	for _, b := range bs {
		t := b.target()
		if t == nil {
			continue
		}
		items, err := t.ListAll(ctx)
		if err != nil {
			failures[b.kind()] = err
			continue
		}
		contents[b.kind()] = items
	}
	return contents, failures
}

// librarySnapshot is the per-run "already known" index. Every set is filled
// by newLibrarySnapshot and only read afterwards.
type librarySnapshot struct {
	ids        map[models.MediaKind]map[int]struct{} // target-native IDs
	catalogIDs map[models.MediaKind]map[int]struct{} // TMDB IDs the targets recorded
	titles     map[models.MediaKind]map[string]struct{}
	watched    map[string]struct{}
}

func newLibrarySnapshot(contents libraryContents, history []models.WatchedItem) *librarySnapshot {
	s := &librarySnapshot{
		ids:        make(map[models.MediaKind]map[int]struct{}, len(models.AllMediaKinds)),
		catalogIDs: make(map[models.MediaKind]map[int]struct{}, len(models.AllMediaKinds)),
		titles:     make(map[models.MediaKind]map[string]struct{}, len(models.AllMediaKinds)),
		watched:    make(map[string]struct{}, len(history)),
	}
	for _, k := range models.AllMediaKinds {
		s.ids[k] = make(map[int]struct{})
		s.catalogIDs[k] = make(map[int]struct{})
		s.titles[k] = make(map[string]struct{})
	}

	for kind, items := range contents {
		if !kind.Valid() {
			continue
		}
		for _, it := range items {
			if it.NativeID > 0 {
				s.ids[kind][it.NativeID] = struct{}{}
			}
			if it.CatalogID > 0 {
				s.catalogIDs[kind][it.CatalogID] = struct{}{}
			}
			if key := models.TitleKey(it.Title); key != "" {
				s.titles[kind][key] = struct{}{}
			}
		}
	}
	for i := range history {
		if key := models.TitleKey(history[i].Title); key != "" {
			s.watched[key] = struct{}{}
		}
	}
	return s
}

// exclusion returns why c is already known, or "" when it is new.
func (s *librarySnapshot) exclusion(b kindBinding, c *models.Candidate) string {
	if id := b.nativeID(c); id > 0 {
		if _, ok := s.ids[b.kind()][id]; ok {
			return excludeLibraryID
		}
	}
	if c.TMDBID > 0 {
		if _, ok := s.catalogIDs[b.kind()][c.TMDBID]; ok {
			return excludeLibraryCatalogID
		}
	}
	key := models.TitleKey(c.Title)
	if _, ok := s.titles[b.kind()][key]; ok {
		return excludeLibraryTitle
	}
	if _, ok := s.watched[key]; ok {
		return excludeWatched
	}
	return ""
}
