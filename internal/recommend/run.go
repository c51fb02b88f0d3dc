// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package recommend

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/curatarr/internal/metrics"
	"github.com/tomtom215/curatarr/internal/models"
)

// run holds the state of one pass. It is owned by the RunOnce goroutine;
// concurrent fetches write only to their own result slots.
type run struct {
	e       *Engine
	filters models.Filters
	result  *models.RunResult
	log     zerolog.Logger
	snap    *librarySnapshot
}

// collect records a non-fatal error.
func (r *run) collect(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.result.Errors = append(r.result.Errors, msg)
	r.log.Warn().Msg(msg)
	r.e.note(models.LogWarn, msg)
}

func (r *run) execute(ctx context.Context) string {
	cfg := r.e.config

	libraries, failures := fetchLibraries(ctx, r.e.kinds.all())
	for kind, err := range failures {
		r.log.Warn().Err(err).Str("kind", string(kind)).Msg("Library snapshot failed, nothing excluded by it")
		r.e.note(models.LogWarn, fmt.Sprintf("%s library snapshot failed: %v", kind, err))
	}

	history, err := r.e.deps.History.Fetch(ctx, cfg.HistoryLimit)
	if err != nil {
		r.result.Errors = append(r.result.Errors, fmt.Sprintf("history fetch failed: %v", err))
		r.log.Error().Err(err).Msg("History fetch failed, aborting run")
		r.e.note(models.LogError, fmt.Sprintf("History fetch failed: %v", err))
		return outcomeFailed
	}
	r.result.WatchedCount = len(history)
	if len(history) == 0 {
		r.log.Info().Msg("Watch history is empty, nothing to do")
		return outcomeEmpty
	}
	r.snap = newLibrarySnapshot(libraries, history)

	catalogCands := r.gatherRelated(ctx, r.seedHistory(history))
	catalogCands = append(catalogCands, r.discover(ctx)...)
	r.result.CatalogCount = len(catalogCands)
	metrics.CandidatesTotal.WithLabelValues(string(models.SourceCatalog)).Add(float64(len(catalogCands)))

	generative := r.suggest(ctx, history)
	r.result.GenerativeCount = len(generative)
	metrics.CandidatesTotal.WithLabelValues(string(models.SourceGenerative)).Add(float64(len(generative)))

	merged := make([]models.Candidate, 0, len(catalogCands)+len(generative))
	merged = append(merged, catalogCands...)
	merged = append(merged, generative...)
	unique := dedupe(merged)

	r.enrich(ctx, unique)
	// Enrichment can give two title-only candidates the same catalog ID.
	unique = dedupe(unique)
	r.resolveCrossRefs(ctx, unique)

	survivors := r.applyFilters(r.exclude(unique))
	persisted := r.persist(ctx, survivors)

	if cfg.AutoCommit {
		r.autoCommit(ctx, persisted)
	}
	return outcomeCompleted
}

// seedHistory restricts history to the kind filter, unless that leaves
// nothing to seed from.
func (r *run) seedHistory(history []models.WatchedItem) []models.WatchedItem {
	if r.filters.Kind == "" {
		return history
	}
	restricted := make([]models.WatchedItem, 0, len(history))
	for _, item := range history {
		if item.Kind == r.filters.Kind {
			restricted = append(restricted, item)
		}
	}
	if len(restricted) == 0 {
		r.log.Debug().Str("kind", string(r.filters.Kind)).Msg("No history of filtered kind, seeding from full history")
		return history
	}
	return restricted
}

// perItemBudget splits maxPerRun evenly over n seeds, rounding up.
func perItemBudget(maxPerRun, n int) int {
	if n <= 0 {
		return 0
	}
	return (maxPerRun + n - 1) / n
}

// gatherRelated fetches catalog recommendations for the first seeds
// concurrently and merges them in seed order.
func (r *run) gatherRelated(ctx context.Context, history []models.WatchedItem) []models.Candidate {
	seeds := history[:min(len(history), relatedSeedLimit)]
	budget := perItemBudget(r.e.config.MaxPerRun, len(seeds))

	slots := make([][]models.Candidate, len(seeds))
	errs := make([]error, len(seeds))

	var g errgroup.Group
	g.SetLimit(r.e.config.Concurrency)
	for i := range seeds {
		g.Go(func() error {
			slots[i], errs[i] = r.relatedFor(ctx, &seeds[i], budget)
			return nil
		})
	}
	_ = g.Wait()

	var out []models.Candidate
	for i := range seeds {
		if errs[i] != nil {
			r.collect("catalog recommendations for %q: %v", seeds[i].Title, errs[i])
			continue
		}
		out = append(out, slots[i]...)
	}
	return out
}

func (r *run) relatedFor(ctx context.Context, item *models.WatchedItem, budget int) ([]models.Candidate, error) {
	if !item.Kind.Valid() {
		return nil, nil
	}
	id := item.TMDBID
	if id == 0 {
		found, err := r.e.deps.Catalog.SearchByTitle(ctx, item.Title, item.Kind)
		if err != nil {
			return nil, fmt.Errorf("resolve catalog ID: %w", err)
		}
		if found == nil || found.TMDBID == 0 {
			r.log.Debug().Str("title", item.Title).Msg("No catalog match for watched title, skipping")
			return nil, nil
		}
		id = found.TMDBID
	}

	cands, err := r.e.deps.Catalog.RelatedTo(ctx, id, item.Kind, budget)
	if err != nil {
		return nil, err
	}
	for i := range cands {
		cands[i].Source = models.SourceCatalog
		if cands[i].Kind == "" {
			cands[i].Kind = item.Kind
		}
		if cands[i].BasedOn == "" {
			cands[i].BasedOn = item.Title
		}
	}
	return cands, nil
}

// discover runs attribute discovery when a genre, year or kind filter is set.
func (r *run) discover(ctx context.Context) []models.Candidate {
	if !r.filters.HasAttributeFilter() {
		return nil
	}
	kinds := models.AllMediaKinds
	if r.filters.Kind != "" {
		kinds = []models.MediaKind{r.filters.Kind}
	}

	var out []models.Candidate
	for _, kind := range kinds {
		cands, err := r.e.deps.Catalog.Discover(ctx, r.filters, kind, r.e.config.MaxPerRun)
		if err != nil {
			r.collect("%s discovery: %v", kind, err)
			continue
		}
		for i := range cands {
			cands[i].Source = models.SourceCatalog
			cands[i].Kind = kind
			cands[i].BasedOn = models.ProvenanceFilterDiscovery
		}
		out = append(out, cands...)
	}
	return out
}

func (r *run) suggest(ctx context.Context, history []models.WatchedItem) []models.Candidate {
	if r.e.deps.Generative == nil {
		return nil
	}
	cands, err := r.e.deps.Generative.Suggest(ctx, summarizeHistory(history), generativeBatchSize, r.filters)
	if err != nil {
		r.collect("generative suggestions: %v", err)
		return nil
	}
	if len(cands) > generativeBatchSize {
		cands = cands[:generativeBatchSize]
	}
	for i := range cands {
		cands[i].Source = models.SourceGenerative
	}
	return cands
}

// summarizeHistory renders history as one line per title for the prompt.
func summarizeHistory(history []models.WatchedItem) string {
	var b strings.Builder
	for i, item := range history {
		if i == summaryItemLimit {
			break
		}
		b.WriteString("- ")
		b.WriteString(item.Title)
		if item.Year > 0 {
			fmt.Fprintf(&b, " (%d)", item.Year)
		}
		fmt.Fprintf(&b, " [%s]", item.Kind)
		if len(item.Genres) > 0 {
			b.WriteString(" ")
			b.WriteString(strings.Join(item.Genres, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// dedupe keeps the first candidate per identity key, preserving order.
func dedupe(cands []models.Candidate) []models.Candidate {
	seen := make(map[string]struct{}, len(cands))
	out := make([]models.Candidate, 0, len(cands))
	for i := range cands {
		key := cands[i].IdentityKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, cands[i])
	}
	return out
}

// enrich backfills candidates missing a poster or catalog ID. Failures only
// leave the candidate as it was.
func (r *run) enrich(ctx context.Context, cands []models.Candidate) {
	var g errgroup.Group
	g.SetLimit(r.e.config.Concurrency)
	for i := range cands {
		c := &cands[i]
		if !c.Kind.Valid() || (c.PosterURL != "" && c.TMDBID != 0) {
			continue
		}
		g.Go(func() error {
			r.enrichOne(ctx, c)
			return nil
		})
	}
	_ = g.Wait()
}

func (r *run) enrichOne(ctx context.Context, c *models.Candidate) {
	catalog := r.e.deps.Catalog

	found, err := catalog.SearchByTitle(ctx, c.Title, c.Kind)
	switch {
	case err != nil:
		metrics.CandidatesEnriched.WithLabelValues("error").Inc()
		r.log.Debug().Err(err).Str("title", c.Title).Msg("Enrichment search failed")
	case found == nil, c.TMDBID != 0 && found.TMDBID != c.TMDBID:
		metrics.CandidatesEnriched.WithLabelValues("miss").Inc()
	default:
		c.MergeMissing(found)
		metrics.CandidatesEnriched.WithLabelValues("hit").Inc()
	}

	if c.PosterURL != "" || c.TMDBID == 0 {
		return
	}
	details, err := catalog.Details(ctx, c.TMDBID, c.Kind)
	if err != nil {
		r.log.Debug().Err(err).Int("tmdb_id", c.TMDBID).Msg("Enrichment details failed")
		return
	}
	c.MergeMissing(details)
}

// resolveCrossRefs makes one TVDB lookup for each series that lacks one.
func (r *run) resolveCrossRefs(ctx context.Context, cands []models.Candidate) {
	var g errgroup.Group
	g.SetLimit(r.e.config.Concurrency)
	for i := range cands {
		c := &cands[i]
		if c.Kind != models.MediaSeries || c.TVDBID != 0 || c.TMDBID == 0 {
			continue
		}
		g.Go(func() error {
			ids, err := r.e.deps.Catalog.ExternalIDs(ctx, c.TMDBID, c.Kind)
			if err != nil {
				r.log.Debug().Err(err).Str("title", c.Title).Msg("TVDB lookup failed")
				return nil
			}
			c.TVDBID = ids.TVDBID
			if c.IMDBID == "" {
				c.IMDBID = ids.IMDBID
			}
			return nil
		})
	}
	_ = g.Wait()
}

// exclude drops candidates already in a library or watched.
func (r *run) exclude(cands []models.Candidate) []models.Candidate {
	out := make([]models.Candidate, 0, len(cands))
	for i := range cands {
		c := &cands[i]
		b := r.e.kinds.forKind(c.Kind)
		if b == nil {
			r.log.Debug().Str("title", c.Title).Str("kind", string(c.Kind)).Msg("Dropping candidate of unknown kind")
			continue
		}
		if reason := r.snap.exclusion(b, c); reason != "" {
			metrics.CandidatesExcluded.WithLabelValues(reason).Inc()
			r.log.Debug().Str("title", c.Title).Str("reason", reason).Msg("Candidate excluded")
			continue
		}
		out = append(out, *c)
	}
	return out
}

func (r *run) applyFilters(cands []models.Candidate) []models.Candidate {
	out := make([]models.Candidate, 0, len(cands))
	for i := range cands {
		if pred := failedPredicate(&cands[i], &r.filters); pred != "" {
			metrics.CandidatesFiltered.WithLabelValues(pred).Inc()
			r.log.Debug().Str("title", cands[i].Title).Str("predicate", pred).Msg("Candidate filtered")
			continue
		}
		out = append(out, cands[i])
	}
	return out
}

// failedPredicate returns the first filter c fails, checked in the order
// genre, language, year, kind, or "" when c passes them all.
func failedPredicate(c *models.Candidate, f *models.Filters) string {
	if len(f.Genres) > 0 && !anyGenre(c.Genres, f.Genres) {
		return "genre"
	}
	if f.LanguageActive() && !strings.EqualFold(c.Language, strings.TrimSpace(f.Language)) {
		return "language"
	}
	if c.Year > 0 {
		if (f.YearMin > 0 && c.Year < f.YearMin) || (f.YearMax > 0 && c.Year > f.YearMax) {
			return "year"
		}
	}
	if f.Kind != "" && c.Kind != f.Kind {
		return "kind"
	}
	return ""
}

func anyGenre(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(w)) {
				return true
			}
		}
	}
	return false
}

// persist stores survivors as pending. Only records created by this run
// count toward TotalNew; survivors that match a stored record keep its
// status and are returned for auto-commit without being counted. A failed
// write is collected.
func (r *run) persist(ctx context.Context, cands []models.Candidate) []*models.Recommendation {
	out := make([]*models.Recommendation, 0, len(cands))
	for i := range cands {
		rec, created, err := r.e.deps.Store.UpsertByIdentity(ctx, cands[i])
		if err != nil {
			r.collect("persist %q: %v", cands[i].Title, err)
			continue
		}
		if created {
			r.result.TotalNew++
			metrics.RecommendationsPersisted.Inc()
		}
		r.log.Debug().
			Str("id", rec.ID).
			Str("title", rec.Title).
			Bool("created", created).
			Msg("Recommendation persisted")
		out = append(out, rec)
	}
	return out
}

// autoCommit commits each persisted survivor. Records the user already
// rejected, or that were added before, are left alone.
func (r *run) autoCommit(ctx context.Context, recs []*models.Recommendation) {
	for _, rec := range recs {
		if rec.Status == models.StatusRejected || rec.Status == models.StatusAdded {
			continue
		}
		res := r.e.commitRecord(ctx, rec, CommitOptions{})
		switch {
		case res.Success:
			r.result.AddedToArr++
		case res.AlreadyExists:
			r.log.Debug().Str("title", rec.Title).Msg("Auto-commit skipped, already in library")
		default:
			r.collect("commit %q: %s", rec.Title, res.Message)
		}
	}
}
