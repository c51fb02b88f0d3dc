// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package catalog

import (
	"sort"
	"strings"

	"github.com/tomtom215/curatarr/internal/models"
)

// TMDB genre codes. The movie and TV tables overlap but are not identical:
// TV folds several movie genres into combined codes (10759, 10765, 10768).
var (
	movieGenres = map[int]string{
		28:    "Action",
		12:    "Adventure",
		16:    "Animation",
		35:    "Comedy",
		80:    "Crime",
		99:    "Documentary",
		18:    "Drama",
		10751: "Family",
		14:    "Fantasy",
		36:    "History",
		27:    "Horror",
		10402: "Music",
		9648:  "Mystery",
		10749: "Romance",
		878:   "Science Fiction",
		10770: "TV Movie",
		53:    "Thriller",
		10752: "War",
		37:    "Western",
	}

	tvGenres = map[int]string{
		10759: "Action & Adventure",
		16:    "Animation",
		35:    "Comedy",
		80:    "Crime",
		99:    "Documentary",
		18:    "Drama",
		10751: "Family",
		10762: "Kids",
		9648:  "Mystery",
		10763: "News",
		10764: "Reality",
		10765: "Sci-Fi & Fantasy",
		10766: "Soap",
		10767: "Talk",
		10768: "War & Politics",
		37:    "Western",
	}

	// tvGenreAliases maps movie genre names onto the combined TV codes so
	// a "Science Fiction" filter still discovers series.
	tvGenreAliases = map[string]int{
		"action":          10759,
		"adventure":       10759,
		"science fiction": 10765,
		"sci-fi":          10765,
		"fantasy":         10765,
		"war":             10768,
		"politics":        10768,
	}
)

func genreTable(kind models.MediaKind) map[int]string {
	if kind == models.MediaSeries {
		return tvGenres
	}
	return movieGenres
}

// GenreNames resolves TMDB genre codes to names, dropping unknown codes.
func GenreNames(kind models.MediaKind, ids []int) []string {
	if len(ids) == 0 {
		return nil
	}
	table := genreTable(kind)
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := table[id]; ok {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	return names
}

// GenreIDs resolves genre names to TMDB codes for kind, case-insensitively.
// The result is sorted and deduplicated; unknown names are dropped.
func GenreIDs(kind models.MediaKind, names []string) []int {
	table := genreTable(kind)
	seen := make(map[int]bool, len(names))
	var ids []int

	add := func(id int) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		found := false
		for id, genre := range table {
			if strings.ToLower(genre) == name {
				add(id)
				found = true
			}
		}
		if !found && kind == models.MediaSeries {
			if id, ok := tvGenreAliases[name]; ok {
				add(id)
			}
		}
	}
	sort.Ints(ids)
	return ids
}
