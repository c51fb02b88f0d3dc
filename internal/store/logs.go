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

func (s *Store) logKey(entry *models.LogEntry) []byte {
	seq := s.logSeq.Add(1) % 1_000_000
	return []byte(fmt.Sprintf("%s%020d:%06d", logKeyPrefix, entry.Time.UnixNano(), seq))
}

// AppendLog stores one log entry. A zero Time is set to now.
func (s *Store) AppendLog(ctx context.Context, entry models.LogEntry) error {
	return s.AppendLogs(ctx, []models.LogEntry{entry})
}

// AppendLogs stores entries in one transaction.
func (s *Store) AppendLogs(ctx context.Context, entries []models.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for i := range entries {
		entry := entries[i]
		if entry.Time.IsZero() {
			entry.Time = s.now().UTC()
		}
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal log entry: %w", err)
		}
		if err := wb.Set(s.logKey(&entry), data); err != nil {
			return fmt.Errorf("set log entry: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush log entries: %w", err)
	}
	return nil
}

// ListLogs returns up to limit entries, newest first.
func (s *Store) ListLogs(ctx context.Context, limit int) ([]models.LogEntry, error) {
	var out []models.LogEntry
	err := s.scanPrefix(logKeyPrefix, true, limit, func(val []byte) (bool, error) {
		var entry models.LogEntry
		if err := json.Unmarshal(val, &entry); err != nil {
			return false, fmt.Errorf("decode log entry: %w", err)
		}
		out = append(out, entry)
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	return out, nil
}

// TrimLogs deletes all but the newest keep entries and returns how many were
// removed.
func (s *Store) TrimLogs(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}

	var stale [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		opts.Prefix = []byte(logKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		seen := 0
		for it.Seek([]byte(logKeyPrefix + "\xff")); it.ValidForPrefix([]byte(logKeyPrefix)); it.Next() {
			seen++
			if seen > keep {
				stale = append(stale, it.Item().KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan logs: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return 0, fmt.Errorf("delete log entry: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flush log deletes: %w", err)
	}
	return len(stale), nil
}
