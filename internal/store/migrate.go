// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package store

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/curatarr/internal/logging"
)

// migrateIdentityIndex rewrites catalog index entries written before keys
// carried the media kind (recidx:tmdb:<id>) to recidx:tmdb:<kind>:<id>.
// It is a no-op once no legacy entries remain.
func (s *Store) migrateIdentityIndex() error {
	prefix := []byte(recIndexKeyPrefix + "tmdb:")

	type legacyEntry struct {
		key   []byte
		recID string
	}
	var legacy []legacyEntry

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			if _, err := strconv.Atoi(string(item.Key()[len(prefix):])); err != nil {
				continue
			}
			id, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			legacy = append(legacy, legacyEntry{key: item.KeyCopy(nil), recID: string(id)})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan legacy identity index: %w", err)
	}
	if len(legacy) == 0 {
		return nil
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, e := range legacy {
			if err := txn.Delete(e.key); err != nil {
				return err
			}
			rec, err := getRecommendation(txn, e.recID)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if rec.TMDBID == 0 {
				continue
			}
			key := []byte(recIndexKeyPrefix + rec.IdentityKey())
			if _, err := txn.Get(key); err == nil {
				continue
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := txn.Set(key, []byte(rec.ID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("migrate identity index: %w", err)
	}

	logging.Info().Int("entries", len(legacy)).Msg("Migrated catalog identity index to kind-qualified keys")
	return nil
}
