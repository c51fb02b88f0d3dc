// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

// Package backup writes compressed snapshots of the store to a local
// directory and keeps the newest few.
//
// Each snapshot is a gzip-compressed BadgerDB backup stream with a
// sha256sum-style sidecar:
//
//	backup-{trigger}-{timestamp}-{id}.badger.gz
//	backup-{trigger}-{timestamp}-{id}.badger.gz.sha256
//
// The directory listing is the only metadata; there is no index file to
// drift out of sync. To restore, stop the server and load the decompressed
// stream into an empty store directory:
//
//	gunzip -c backup-....badger.gz > curatarr.bak
//	badger restore --dir /data/curatarr --backup-file curatarr.bak
//
// Usage:
//
//	mgr, err := backup.NewManager(cfg.Backup, store)
//	b, err := mgr.Create(ctx, backup.TriggerManual)
//	err = mgr.Verify(b.ID)
package backup
