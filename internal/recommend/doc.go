// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

// Package recommend implements the reconciliation engine.
//
// # Run
//
// One run turns watch history into persisted, reviewable recommendations:
//
//  1. Snapshot both libraries (best effort)
//  2. Fetch watch history (fatal on failure)
//  3. Gather catalog candidates related to recent titles, plus attribute
//     discovery when filters are set
//  4. Ask the generative recommender for a small batch
//  5. Merge and deduplicate by identity key, first occurrence wins
//  6. Enrich incomplete candidates from the catalog
//  7. Exclude titles already owned or watched
//  8. Apply the genre, language, year and kind filters
//  9. Persist survivors as pending, optionally committing them
//
// Only one run executes at a time; a concurrent RunOnce fails fast with
// ErrAlreadyRunning. External failures never escape a run: they are either
// fatal (history), collected into RunResult.Errors, or logged and ignored.
//
// # Commit
//
// Commit adds a persisted recommendation to the library target for its kind.
// The target's own title lookup is authoritative; the catalog ID (movies) or
// TVDB ID (series) is only a fallback. Every outcome is a CommitResult.
//
// # Usage
//
//	engine, err := recommend.NewEngine(recommend.Deps{
//	    History: historySource,
//	    Catalog: tmdbClient,
//	    Movies:  radarr,
//	    Series:  sonarr,
//	    Store:   db,
//	}, recommend.ConfigFromApp(cfg), logger)
//
//	result, err := engine.RunOnce(ctx, filters)
package recommend
