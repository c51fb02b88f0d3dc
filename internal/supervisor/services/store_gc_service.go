// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultGCInterval     = 10 * time.Minute
	defaultGCDiscardRatio = 0.5
)

// GarbageCollector is satisfied by *store.Store.
type GarbageCollector interface {
	RunGC(discardRatio float64) error
}

// StoreGCService periodically reclaims BadgerDB value-log space.
type StoreGCService struct {
	store        GarbageCollector
	interval     time.Duration
	discardRatio float64
	logger       zerolog.Logger
	name         string
}

// NewStoreGCService creates a new store GC service. Zero values use a 10m
// interval and a 0.5 discard ratio.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewStoreGCService(store GarbageCollector, interval time.Duration, discardRatio float64, logger zerolog.Logger) *StoreGCService {
	if interval <= 0 {
		interval = defaultGCInterval
	}
	if discardRatio <= 0 || discardRatio >= 1 {
		discardRatio = defaultGCDiscardRatio
	}
	return &StoreGCService{
		store:        store,
		interval:     interval,
		discardRatio: discardRatio,
		logger:       logger.With().Str("service", "store-gc").Logger(),
		name:         "store-gc",
	}
}

// Serve implements suture.Service.
func (s *StoreGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := s.store.RunGC(s.discardRatio); err != nil {
				s.logger.Warn().Err(err).Msg("store garbage collection failed")
				continue
			}
			s.logger.Debug().Dur("duration", time.Since(start)).Msg("store garbage collection complete")
		}
	}
}

// String implements fmt.Stringer for suture's logs.
func (s *StoreGCService) String() string {
	return s.name
}
