// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/curatarr/internal/library"
	"github.com/tomtom215/curatarr/internal/metrics"
	"github.com/tomtom215/curatarr/internal/models"
	"github.com/tomtom215/curatarr/internal/store"
)

// Commit outcomes, also used as metric labels.
const (
	commitAdded        = "added"
	commitExists       = "exists"
	commitNoMatch      = "no_match"
	commitFailed       = "failed"
	commitUnconfigured = "unconfigured"
)

const msgNoMatch = "could not find title in lookup"

// Commit adds the recommendation to the library target for its kind and marks
// it added on success. It never returns an error; every outcome, including a
// missing recommendation, is a CommitResult.
func (e *Engine) Commit(ctx context.Context, id string, opts CommitOptions) CommitResult {
	rec, err := e.deps.Store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return CommitResult{Message: "recommendation not found"}
		}
		e.logger.Error().Err(err).Str("id", id).Msg("Failed to load recommendation for commit")
		return CommitResult{Message: fmt.Sprintf("failed to load recommendation: %v", err)}
	}
	return e.commitRecord(ctx, rec, opts)
}

func (e *Engine) commitRecord(ctx context.Context, rec *models.Recommendation, opts CommitOptions) CommitResult {
	log := e.logger.With().Str("id", rec.ID).Str("title", rec.Title).Str("kind", string(rec.Kind)).Logger()

	b := e.kinds.forKind(rec.Kind)
	if b == nil || b.target() == nil {
		metrics.RecordCommit(string(rec.Kind), commitUnconfigured)
		return CommitResult{Message: fmt.Sprintf("no library target configured for %s", rec.Kind)}
	}
	if !models.CanTransition(rec.Status, models.StatusAdded) {
		return CommitResult{Message: fmt.Sprintf("cannot commit a %s recommendation", rec.Status)}
	}

	nativeID, via := e.resolveNativeID(ctx, b, rec)
	if nativeID == 0 {
		metrics.RecordCommit(string(rec.Kind), commitNoMatch)
		log.Info().Msg("Commit failed, no match in library lookup")
		e.note(models.LogWarn, fmt.Sprintf("Commit %q: %s", rec.Title, msgNoMatch))
		return CommitResult{Message: msgNoMatch}
	}

	res, err := b.target().Add(ctx, nativeID, library.AddOptions{
		QualityProfileID:  opts.QualityProfileID,
		RootFolderPath:    opts.RootFolderPath,
		SearchImmediately: opts.SearchImmediately,
	})
	if err != nil {
		metrics.RecordCommit(string(rec.Kind), commitFailed)
		log.Warn().Err(err).Int("native_id", nativeID).Msg("Library add failed")
		e.note(models.LogError, fmt.Sprintf("Commit %q failed: %v", rec.Title, err))
		return CommitResult{Message: fmt.Sprintf("add failed: %v", err)}
	}
	if !res.Success {
		outcome := commitFailed
		if res.AlreadyExists {
			outcome = commitExists
		}
		metrics.RecordCommit(string(rec.Kind), outcome)
		log.Info().Int("native_id", nativeID).Str("message", res.Message).Msg("Library add did not succeed")
		return CommitResult{AlreadyExists: res.AlreadyExists, Message: res.Message}
	}

	metrics.RecordCommit(string(rec.Kind), commitAdded)
	log.Info().Int("native_id", nativeID).Str("via", via).Msg("Recommendation committed")
	e.note(models.LogInfo, fmt.Sprintf("Added %q (%s)", rec.Title, rec.Kind))

	if err := e.transition(ctx, rec, models.StatusAdded, "committed"); err != nil {
		// The title is in the library either way.
		log.Warn().Err(err).Msg("Failed to mark recommendation added")
	}
	return CommitResult{Success: true, Message: res.Message}
}

// resolveNativeID picks the ID to add with. The target's own lookup wins;
// the stored ID is the fallback. via is "lookup" or "fallback".
func (e *Engine) resolveNativeID(ctx context.Context, b kindBinding, rec *models.Recommendation) (id int, via string) {
	log := e.logger.With().Str("id", rec.ID).Str("title", rec.Title).Logger()

	matches, err := b.target().LookupByTitle(ctx, rec.Title)
	if err != nil {
		log.Warn().Err(err).Msg("Library lookup failed, trying stored ID")
	} else if m, ok := selectMatch(rec.Title, matches); ok && m.NativeID > 0 {
		return m.NativeID, "lookup"
	}

	if id := b.nativeID(&rec.Candidate); id > 0 {
		log.Info().Str("id_type", b.fallbackName()).Int("native_id", id).Msg("Falling back to stored ID")
		return id, "fallback"
	}

	// Series recommendations may predate their TVDB lookup.
	if b.kind() == models.MediaSeries && rec.TMDBID > 0 {
		ids, err := e.deps.Catalog.ExternalIDs(ctx, rec.TMDBID, rec.Kind)
		if err == nil && ids.TVDBID > 0 {
			log.Info().Int("native_id", ids.TVDBID).Msg("Falling back to TVDB ID from catalog")
			return ids.TVDBID, "fallback"
		}
	}
	return 0, ""
}

// selectMatch prefers an exact case-insensitive title match, then accepts
// the top result if either title contains the other.
func selectMatch(title string, matches []library.Match) (library.Match, bool) {
	if len(matches) == 0 {
		return library.Match{}, false
	}
	want := strings.TrimSpace(title)
	for _, m := range matches {
		if strings.EqualFold(strings.TrimSpace(m.Title), want) {
			return m, true
		}
	}

	top := matches[0]
	a, b := strings.ToLower(want), strings.ToLower(strings.TrimSpace(top.Title))
	if a != "" && b != "" && (strings.Contains(a, b) || strings.Contains(b, a)) {
		return top, true
	}
	return library.Match{}, false
}
