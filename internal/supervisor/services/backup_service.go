// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/curatarr/internal/backup"
)

const defaultBackupInterval = 24 * time.Hour

// BackupCreator is satisfied by *backup.Manager.
type BackupCreator interface {
	Create(ctx context.Context, trigger backup.Trigger) (*backup.Backup, error)
}

// BackupService takes a scheduled store snapshot every interval. The first
// snapshot is taken one interval after start.
type BackupService struct {
	creator  BackupCreator
	interval time.Duration
	logger   zerolog.Logger
	name     string
}

// NewBackupService creates a new backup service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBackupService(creator BackupCreator, interval time.Duration, logger zerolog.Logger) *BackupService {
	if interval <= 0 {
		interval = defaultBackupInterval
	}
	return &BackupService{
		creator:  creator,
		interval: interval,
		logger:   logger.With().Str("service", "backup").Logger(),
		name:     "backup",
	}
}

// Serve implements suture.Service. Failed snapshots are logged and retried
// at the next tick.
func (s *BackupService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.creator.Create(ctx, backup.TriggerScheduled); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.Error().Err(err).Msg("scheduled backup failed")
			}
		}
	}
}

// String implements fmt.Stringer for suture's logs.
func (s *BackupService) String() string {
	return s.name
}
