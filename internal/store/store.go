// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

// Package store persists recommendations, user-facing log entries and run
// results in an embedded BadgerDB.
//
// Key layout:
//
//	rec:<id>                  JSON models.Recommendation
//	recidx:<identityKey>      recommendation ID (tmdb:<kind>:<id> or title:<title>)
//	log:<unixnano>:<seq>      JSON models.LogEntry
//	run:<unixnano>            JSON models.RunRecord
//
// Timestamps in keys are zero-padded so lexical order is chronological.
package store

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/curatarr/internal/config"
	"github.com/tomtom215/curatarr/internal/logging"
)

// Key prefixes for BadgerDB storage
const (
	recKeyPrefix      = "rec:"
	recIndexKeyPrefix = "recidx:"
	logKeyPrefix      = "log:"
	runKeyPrefix      = "run:"
)

var (
	// ErrNotFound is returned when a recommendation ID is unknown.
	ErrNotFound = errors.New("recommendation not found")

	// ErrInvalidTransition is returned when a status change is not allowed
	// from the record's current status.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Store wraps a BadgerDB handle.
type Store struct {
	db     *badger.DB
	now    func() time.Time
	logSeq atomic.Uint64
}

// Open opens the database at cfg.Path, or an in-memory database when
// cfg.InMemory is set.
func Open(cfg config.StoreConfig) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("store path is required unless in_memory is set")
		}
		opts = badger.DefaultOptions(cfg.Path)
		opts.SyncWrites = true
	}

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrateIdentityIndex(); err != nil {
		_ = db.Close()
		return nil, err
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Msg("Store opened")

	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close BadgerDB: %w", err)
	}
	return nil
}

// RunGC reclaims value log space. It returns nil when there was nothing to
// rewrite.
func (s *Store) RunGC(discardRatio float64) error {
	if s.db.Opts().InMemory {
		return nil
	}
	err := s.db.RunValueLogGC(discardRatio)
	if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		return fmt.Errorf("value log GC: %w", err)
	}
	return nil
}

// Backup streams every key newer than since to w in badger's backup
// format and returns the version to pass as since for an incremental
// follow-up. The output can be restored offline with `badger restore`.
func (s *Store) Backup(w io.Writer, since uint64) (uint64, error) {
	version, err := s.db.Backup(w, since)
	if err != nil {
		return 0, fmt.Errorf("backup BadgerDB: %w", err)
	}
	return version, nil
}

// scanPrefix calls fn with every value under prefix, last key first when
// reverse is set. fn reports whether it accepted the value; iteration stops
// once limit values were accepted (limit > 0).
func (s *Store) scanPrefix(prefix string, reverse bool, limit int, fn func(val []byte) (bool, error)) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = reverse
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := []byte(prefix)
		if reverse {
			seek = append(seek, 0xff)
		}

		n := 0
		for it.Seek(seek); it.ValidForPrefix([]byte(prefix)); it.Next() {
			var keep bool
			err := it.Item().Value(func(val []byte) error {
				var ferr error
				keep, ferr = fn(val)
				return ferr
			})
			if err != nil {
				return err
			}
			if keep {
				n++
			}
			if limit > 0 && n >= limit {
				return nil
			}
		}
		return nil
	})
}
