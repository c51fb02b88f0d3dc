// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/curatarr/internal/models"
)

const maxConflictRetries = 3

// UpsertByIdentity stores cand under its identity key. When a record with
// that identity exists it keeps its ID, status and CreatedAt, and only its
// empty metadata fields are filled from cand. Otherwise a new pending record
// is created. created reports which case applied.
//
// A candidate that now carries a catalog ID also matches an older title-only
// record with the same title, which is then indexed under both keys.
func (s *Store) UpsertByIdentity(ctx context.Context, cand models.Candidate) (rec *models.Recommendation, created bool, err error) {
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		rec, created, err = s.upsertOnce(cand)
		if !errors.Is(err, badger.ErrConflict) {
			return rec, created, err
		}
	}
	return nil, false, fmt.Errorf("upsert recommendation: %w", err)
}

func (s *Store) upsertOnce(cand models.Candidate) (*models.Recommendation, bool, error) {
	var (
		rec     *models.Recommendation
		created bool
	)
	err := s.db.Update(func(txn *badger.Txn) error {
		existing, err := findByIdentity(txn, &cand)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		if existing != nil {
			existing.Candidate.MergeMissing(&cand)
			existing.UpdatedAt = now
			rec = existing
		} else {
			rec = &models.Recommendation{
				ID:        uuid.New().String(),
				Candidate: cand,
				Status:    models.StatusPending,
				CreatedAt: now,
				UpdatedAt: now,
			}
			created = true
		}

		if err := putRecommendation(txn, rec); err != nil {
			return err
		}
		if err := txn.Set([]byte(recIndexKeyPrefix+rec.IdentityKey()), []byte(rec.ID)); err != nil {
			return fmt.Errorf("set identity index: %w", err)
		}
		if created && rec.TMDBID == 0 {
			return nil
		}
		// Keep the title key pointing at the record so later title-only
		// candidates resolve to it.
		titleKey := []byte(recIndexKeyPrefix + "title:" + models.TitleKey(rec.Title))
		if _, err := txn.Get(titleKey); errors.Is(err, badger.ErrKeyNotFound) {
			if err := txn.Set(titleKey, []byte(rec.ID)); err != nil {
				return fmt.Errorf("set title index: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("get title index: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return rec, created, nil
}

// findByIdentity resolves cand to an existing record, or nil.
func findByIdentity(txn *badger.Txn, cand *models.Candidate) (*models.Recommendation, error) {
	rec, err := getByIndex(txn, cand.IdentityKey())
	if err != nil || rec != nil || cand.TMDBID == 0 {
		return rec, err
	}

	// Title fallback only matches records of the same kind that never had a
	// catalog ID.
	rec, err = getByIndex(txn, "title:"+models.TitleKey(cand.Title))
	if err != nil || rec == nil {
		return nil, err
	}
	if rec.TMDBID != 0 || rec.Kind != cand.Kind {
		return nil, nil
	}
	return rec, nil
}

func getByIndex(txn *badger.Txn, identityKey string) (*models.Recommendation, error) {
	item, err := txn.Get([]byte(recIndexKeyPrefix + identityKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get identity index: %w", err)
	}
	id, err := item.ValueCopy(nil)
	if err != nil {
		return nil, fmt.Errorf("read identity index: %w", err)
	}
	rec, err := getRecommendation(txn, string(id))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

func getRecommendation(txn *badger.Txn, id string) (*models.Recommendation, error) {
	item, err := txn.Get([]byte(recKeyPrefix + id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get recommendation: %w", err)
	}

	var rec models.Recommendation
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, fmt.Errorf("decode recommendation: %w", err)
	}
	return &rec, nil
}

func putRecommendation(txn *badger.Txn, rec *models.Recommendation) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal recommendation: %w", err)
	}
	if err := txn.Set([]byte(recKeyPrefix+rec.ID), data); err != nil {
		return fmt.Errorf("set recommendation: %w", err)
	}
	return nil
}

// Get retrieves a recommendation by ID.
func (s *Store) Get(ctx context.Context, id string) (*models.Recommendation, error) {
	var rec *models.Recommendation
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = getRecommendation(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// SetStatus moves a recommendation to status. It reports whether the stored
// status changed; setting the current status again is a no-op. Transitions
// outside models.CanTransition fail with ErrInvalidTransition.
func (s *Store) SetStatus(ctx context.Context, id string, status models.Status) (bool, error) {
	if !status.Valid() {
		return false, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}

	var changed bool
	err := s.db.Update(func(txn *badger.Txn) error {
		rec, err := getRecommendation(txn, id)
		if err != nil {
			return err
		}
		if rec.Status == status {
			return nil
		}
		if !models.CanTransition(rec.Status, status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.Status, status)
		}
		rec.Status = status
		rec.UpdatedAt = s.now().UTC()
		changed = true
		return putRecommendation(txn, rec)
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// List returns recommendations newest first. An empty status matches all.
// limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, status models.Status, limit int) ([]models.Recommendation, error) {
	var out []models.Recommendation
	err := s.scanPrefix(recKeyPrefix, false, 0, func(val []byte) (bool, error) {
		var rec models.Recommendation
		if err := json.Unmarshal(val, &rec); err != nil {
			return false, fmt.Errorf("decode recommendation: %w", err)
		}
		if status != "" && rec.Status != status {
			return false, nil
		}
		out = append(out, rec)
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountByStatus returns the number of records in each status.
func (s *Store) CountByStatus(ctx context.Context) (map[models.Status]int, error) {
	counts := make(map[models.Status]int, 4)
	err := s.scanPrefix(recKeyPrefix, false, 0, func(val []byte) (bool, error) {
		var rec struct {
			Status models.Status `json:"status"`
		}
		if err := json.Unmarshal(val, &rec); err != nil {
			return false, fmt.Errorf("decode recommendation: %w", err)
		}
		counts[rec.Status]++
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("count recommendations: %w", err)
	}
	return counts, nil
}
