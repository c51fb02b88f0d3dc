// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package store

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/curatarr/internal/models"
)

// SaveRun stores a finished run, keyed by its start time.
func (s *Store) SaveRun(ctx context.Context, run models.RunRecord) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = s.now().UTC()
	}
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	key := []byte(fmt.Sprintf("%s%020d", runKeyPrefix, run.StartedAt.UnixNano()))
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("set run: %w", err)
		}
		return nil
	})
}

// ListRuns returns up to limit runs, most recent first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]models.RunRecord, error) {
	var out []models.RunRecord
	err := s.scanPrefix(runKeyPrefix, true, limit, func(val []byte) (bool, error) {
		var run models.RunRecord
		if err := json.Unmarshal(val, &run); err != nil {
			return false, fmt.Errorf("decode run: %w", err)
		}
		out = append(out, run)
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}

// LastRun returns the most recent run, or nil when none was saved.
func (s *Store) LastRun(ctx context.Context) (*models.RunRecord, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return &runs[0], nil
}
