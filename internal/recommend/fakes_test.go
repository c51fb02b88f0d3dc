// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package recommend

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/curatarr/internal/library"
	"github.com/tomtom215/curatarr/internal/models"
	"github.com/tomtom215/curatarr/internal/store"
)

// --- history ---

type fakeHistory struct {
	mu      sync.Mutex
	items   []models.WatchedItem
	err     error
	calls   int
	limit   int
	entered chan struct{} // signaled on each Fetch when non-nil
	release chan struct{} // Fetch blocks on it when non-nil
	panics  bool
}

func (f *fakeHistory) Fetch(ctx context.Context, limit int) ([]models.WatchedItem, error) {
	f.mu.Lock()
	f.calls++
	f.limit = limit
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.panics {
		panic("history exploded")
	}
	return f.items, f.err
}

func (f *fakeHistory) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// --- catalog ---

type relatedCall struct {
	id    int
	kind  models.MediaKind
	limit int
}

type fakeCatalog struct {
	mu sync.Mutex

	related     map[int][]models.Candidate
	relatedErr  map[int]error
	relatedWait map[int]time.Duration
	search      map[string]*models.Candidate // by lower-cased title
	searchErr   error
	discover    map[models.MediaKind][]models.Candidate
	discoverErr error
	externalIDs map[int]models.ExternalIDs
	details     map[int]*models.Candidate

	relatedCalls  []relatedCall
	discoverCalls []models.MediaKind
	searchCalls   []string
	externalCalls []int
	detailsCalls  []int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		related:     map[int][]models.Candidate{},
		relatedErr:  map[int]error{},
		relatedWait: map[int]time.Duration{},
		search:      map[string]*models.Candidate{},
		discover:    map[models.MediaKind][]models.Candidate{},
		externalIDs: map[int]models.ExternalIDs{},
		details:     map[int]*models.Candidate{},
	}
}

func (f *fakeCatalog) RelatedTo(ctx context.Context, id int, kind models.MediaKind, limit int) ([]models.Candidate, error) {
	f.mu.Lock()
	f.relatedCalls = append(f.relatedCalls, relatedCall{id: id, kind: kind, limit: limit})
	wait := f.relatedWait[id]
	out, err := f.related[id], f.relatedErr[id]
	f.mu.Unlock()
	if wait > 0 {
		time.Sleep(wait)
	}
	if err != nil {
		return nil, err
	}
	return append([]models.Candidate(nil), out...), nil
}

func (f *fakeCatalog) Discover(ctx context.Context, filters models.Filters, kind models.MediaKind, limit int) ([]models.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discoverCalls = append(f.discoverCalls, kind)
	if f.discoverErr != nil {
		return nil, f.discoverErr
	}
	return append([]models.Candidate(nil), f.discover[kind]...), nil
}

func (f *fakeCatalog) SearchByTitle(ctx context.Context, title string, kind models.MediaKind) (*models.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls = append(f.searchCalls, title)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if c, ok := f.search[models.TitleKey(title)]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeCatalog) ExternalIDs(ctx context.Context, id int, kind models.MediaKind) (models.ExternalIDs, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.externalCalls = append(f.externalCalls, id)
	ids, ok := f.externalIDs[id]
	if !ok {
		return models.ExternalIDs{}, fmt.Errorf("no external ids for %d", id)
	}
	return ids, nil
}

func (f *fakeCatalog) Details(ctx context.Context, id int, kind models.MediaKind) (*models.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailsCalls = append(f.detailsCalls, id)
	if c, ok := f.details[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, fmt.Errorf("no details for %d", id)
}

// --- generative ---

type fakeGenerative struct {
	cands   []models.Candidate
	err     error
	count   int
	summary string
}

func (f *fakeGenerative) Suggest(ctx context.Context, summary string, count int, filters models.Filters) ([]models.Candidate, error) {
	f.count = count
	f.summary = summary
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.Candidate(nil), f.cands...), nil
}

// --- library target ---

type fakeTarget struct {
	mu        sync.Mutex
	items     []library.Item
	listErr   error
	matches   map[string][]library.Match // by lower-cased title
	lookupErr error
	existing  map[int]bool
	known     map[int]bool // IDs the target can add; nil accepts any
	addErr    map[int]error
	added     []int
	lookups   []string
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{
		matches:  map[string][]library.Match{},
		existing: map[int]bool{},
		addErr:   map[int]error{},
	}
}

func (f *fakeTarget) ListAll(ctx context.Context) ([]library.Item, error) {
	return f.items, f.listErr
}

func (f *fakeTarget) ExistsByNativeID(ctx context.Context, id int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.existing[id], nil
}

func (f *fakeTarget) LookupByTitle(ctx context.Context, title string) ([]library.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, title)
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.matches[models.TitleKey(title)], nil
}

// Add mirrors the real targets: existence check first, then the add.
func (f *fakeTarget) Add(ctx context.Context, id int, opts library.AddOptions) (library.AddResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existing[id] {
		return library.AddResult{AlreadyExists: true, Message: "already exists"}, nil
	}
	if err := f.addErr[id]; err != nil {
		return library.AddResult{}, err
	}
	if f.known != nil && !f.known[id] {
		return library.AddResult{Message: fmt.Sprintf("could not find %d in lookup", id)}, nil
	}
	f.added = append(f.added, id)
	f.existing[id] = true
	return library.AddResult{Success: true, Message: fmt.Sprintf("added %d", id)}, nil
}

func (f *fakeTarget) addedIDs() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.added...)
}

// --- record store ---

type memStore struct {
	mu        sync.Mutex
	recs      map[string]*models.Recommendation
	index     map[string]string
	order     []string
	upserts   int
	upsertErr map[string]error // by title
	seq       int
}

func newMemStore() *memStore {
	return &memStore{
		recs:      map[string]*models.Recommendation{},
		index:     map[string]string{},
		upsertErr: map[string]error{},
	}
}

func (m *memStore) UpsertByIdentity(ctx context.Context, cand models.Candidate) (*models.Recommendation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if err := m.upsertErr[cand.Title]; err != nil {
		return nil, false, err
	}
	key := cand.IdentityKey()
	if id, ok := m.index[key]; ok {
		rec := m.recs[id]
		rec.Candidate.MergeMissing(&cand)
		cp := *rec
		return &cp, false, nil
	}
	m.seq++
	rec := &models.Recommendation{
		ID:        fmt.Sprintf("rec-%d", m.seq),
		Candidate: cand,
		Status:    models.StatusPending,
	}
	m.recs[rec.ID] = rec
	m.index[key] = rec.ID
	m.order = append(m.order, rec.ID)
	cp := *rec
	return &cp, true, nil
}

func (m *memStore) SetStatus(ctx context.Context, id string, status models.Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return false, store.ErrNotFound
	}
	if rec.Status == status {
		return false, nil
	}
	if !models.CanTransition(rec.Status, status) {
		return false, store.ErrInvalidTransition
	}
	rec.Status = status
	return true, nil
}

func (m *memStore) Get(ctx context.Context, id string) (*models.Recommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// put seeds a record directly.
func (m *memStore) put(rec models.Recommendation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := rec
	m.recs[rec.ID] = &cp
	m.index[rec.IdentityKey()] = rec.ID
	m.order = append(m.order, rec.ID)
}

func (m *memStore) ordered() []models.Recommendation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Recommendation, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.recs[id])
	}
	return out
}

func (m *memStore) upsertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts
}

// --- sinks ---

type fakeRuns struct {
	mu   sync.Mutex
	runs []models.RunRecord
}

func (f *fakeRuns) SaveRun(ctx context.Context, run models.RunRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, run)
	return nil
}

type fakeLog struct {
	mu      sync.Mutex
	entries []models.LogEntry
}

func (f *fakeLog) Record(level models.LogLevel, message, source string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, models.LogEntry{Level: level, Message: message, Source: source})
}

type published struct {
	topic   string
	payload any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (f *fakePublisher) Publish(ctx context.Context, topic string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{topic: topic, payload: payload})
	return nil
}

func (f *fakePublisher) topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.topic)
	}
	return out
}

// --- harness ---

type harness struct {
	history    *fakeHistory
	catalog    *fakeCatalog
	generative *fakeGenerative
	movies     *fakeTarget
	series     *fakeTarget
	store      *memStore
	runs       *fakeRuns
	log        *fakeLog
	events     *fakePublisher
	cfg        *Config
}

func newHarness() *harness {
	return &harness{
		history:    &fakeHistory{},
		catalog:    newFakeCatalog(),
		generative: &fakeGenerative{},
		movies:     newFakeTarget(),
		series:     newFakeTarget(),
		store:      newMemStore(),
		runs:       &fakeRuns{},
		log:        &fakeLog{},
		events:     &fakePublisher{},
		cfg:        &Config{MaxPerRun: 20, HistoryLimit: 50, Concurrency: 4},
	}
}

func (h *harness) engine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(Deps{
		History:    h.history,
		Catalog:    h.catalog,
		Generative: h.generative,
		Movies:     h.movies,
		Series:     h.series,
		Store:      h.store,
		Runs:       h.runs,
		Log:        h.log,
		Events:     h.events,
	}, h.cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func movie(title string, tmdb int) models.Candidate {
	return models.Candidate{Title: title, Kind: models.MediaMovie, TMDBID: tmdb, PosterURL: "https://img/" + title, Source: models.SourceCatalog}
}

func watched(title string, kind models.MediaKind, tmdb int) models.WatchedItem {
	return models.WatchedItem{Title: title, Kind: kind, TMDBID: tmdb}
}
