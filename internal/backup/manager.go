// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package backup

import (
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/curatarr/internal/config"
	"github.com/tomtom215/curatarr/internal/logging"
	"github.com/tomtom215/curatarr/internal/metrics"
)

// Trigger records why a snapshot was taken.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
)

const (
	filePrefix      = "backup-"
	fileSuffix      = ".badger.gz"
	checksumSuffix  = ".sha256"
	timestampFormat = "20060102T150405Z"
)

var (
	// ErrNotFound is returned when no snapshot has the requested ID.
	ErrNotFound = errors.New("backup not found")

	// ErrChecksumMismatch is returned by Verify when the file no longer
	// matches its recorded checksum.
	ErrChecksumMismatch = errors.New("backup checksum mismatch")
)

// Backup describes one snapshot file.
type Backup struct {
	ID        string    `json:"id"`
	Trigger   Trigger   `json:"trigger"`
	File      string    `json:"file"`
	Size      int64     `json:"size_bytes"`
	Checksum  string    `json:"checksum,omitempty"` // sha256 of the compressed file
	CreatedAt time.Time `json:"created_at"`
}

// Snapshotter streams a full backup. Satisfied by *store.Store.
type Snapshotter interface {
	Backup(w io.Writer, since uint64) (uint64, error)
}

// Manager creates, lists, verifies and prunes snapshots. Creation is
// serialized.
type Manager struct {
	dir    string
	retain int
	level  int
	snap   Snapshotter
	now    func() time.Time

	mu sync.Mutex
}

// NewManager creates the backup directory if needed.
func NewManager(cfg config.BackupConfig, snap Snapshotter) (*Manager, error) {
	if snap == nil {
		return nil, errors.New("snapshotter is required")
	}
	if cfg.Dir == "" {
		return nil, errors.New("backup directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}
	retain := cfg.Retain
	if retain < 1 {
		retain = 1
	}
	return &Manager{
		dir:    cfg.Dir,
		retain: retain,
		level:  cfg.CompressionLevel,
		snap:   snap,
		now:    time.Now,
	}, nil
}

// Create writes a new snapshot, then prunes old ones. A failed prune is
// logged and does not fail the backup.
func (m *Manager) Create(ctx context.Context, trigger Trigger) (*Backup, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	b, err := m.write(trigger)
	if err != nil {
		metrics.RecordBackup("failed", 0)
		return nil, err
	}
	metrics.RecordBackup("completed", b.Size)

	log := logging.Ctx(ctx)
	log.Info().
		Str("backup_id", b.ID).
		Str("trigger", string(trigger)).
		Int64("size_bytes", b.Size).
		Dur("duration", time.Since(start)).
		Msg("Backup created")

	if removed, err := m.prune(); err != nil {
		log.Warn().Err(err).Msg("Backup retention failed")
	} else if removed > 0 {
		log.Debug().Int("removed", removed).Msg("Old backups removed")
	}
	return b, nil
}

func (m *Manager) write(trigger Trigger) (b *Backup, err error) {
	created := m.now().UTC()
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	name := fmt.Sprintf("%s%s-%s-%s%s", filePrefix, trigger, created.Format(timestampFormat), id, fileSuffix)

	tmp, err := os.CreateTemp(m.dir, ".backup-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	hasher := sha256.New()
	gz, err := gzip.NewWriterLevel(io.MultiWriter(tmp, hasher), m.level)
	if err != nil {
		return nil, fmt.Errorf("create gzip writer: %w", err)
	}
	if _, err = m.snap.Backup(gz, 0); err != nil {
		return nil, err
	}
	if err = gz.Close(); err != nil {
		return nil, fmt.Errorf("finish gzip stream: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return nil, fmt.Errorf("sync backup: %w", err)
	}
	info, err := tmp.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat backup: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return nil, fmt.Errorf("close backup: %w", err)
	}

	final := filepath.Join(m.dir, name)
	if err = os.Rename(tmp.Name(), final); err != nil {
		return nil, fmt.Errorf("rename backup: %w", err)
	}
	sum := hex.EncodeToString(hasher.Sum(nil))
	if err = os.WriteFile(final+checksumSuffix, []byte(sum+"  "+name+"\n"), 0o640); err != nil {
		_ = os.Remove(final)
		return nil, fmt.Errorf("write checksum: %w", err)
	}

	return &Backup{
		ID:        id,
		Trigger:   trigger,
		File:      name,
		Size:      info.Size(),
		Checksum:  sum,
		CreatedAt: created,
	}, nil
}

// List returns the snapshots in the directory, newest first. Files that do
// not follow the naming scheme are ignored.
func (m *Manager) List() ([]Backup, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	backups := make([]Backup, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		b, ok := parseName(e.Name())
		if !ok {
			continue
		}
		if info, err := e.Info(); err == nil {
			b.Size = info.Size()
		}
		b.Checksum = m.readChecksum(b.File)
		backups = append(backups, b)
	}

	sort.Slice(backups, func(i, j int) bool {
		if !backups[i].CreatedAt.Equal(backups[j].CreatedAt) {
			return backups[i].CreatedAt.After(backups[j].CreatedAt)
		}
		return backups[i].File > backups[j].File
	})
	return backups, nil
}

// Verify recomputes the checksum of a snapshot and checks that the gzip
// stream is complete.
func (m *Manager) Verify(id string) error {
	b, err := m.find(id)
	if err != nil {
		return err
	}
	if b.Checksum == "" {
		return fmt.Errorf("%s: %w: no checksum recorded", b.File, ErrChecksumMismatch)
	}

	path := filepath.Join(m.dir, b.File)
	sum, err := fileChecksum(path)
	if err != nil {
		return err
	}
	if sum != b.Checksum {
		return fmt.Errorf("%s: %w", b.File, ErrChecksumMismatch)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open backup: %w", err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("%s: corrupt gzip header: %w", b.File, err)
	}
	if _, err := io.Copy(io.Discard, gz); err != nil {
		return fmt.Errorf("%s: corrupt gzip stream: %w", b.File, err)
	}
	return nil
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open backup: %w", err)
	}
	defer f.Close()
	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("read backup: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func (m *Manager) find(id string) (*Backup, error) {
	backups, err := m.List()
	if err != nil {
		return nil, err
	}
	for i := range backups {
		if backups[i].ID == id {
			return &backups[i], nil
		}
	}
	return nil, ErrNotFound
}

// prune removes every snapshot beyond the newest retain. Callers hold mu.
func (m *Manager) prune() (int, error) {
	backups, err := m.List()
	if err != nil {
		return 0, err
	}
	removed := 0
	var errs []error
	for _, b := range backups[min(m.retain, len(backups)):] {
		path := filepath.Join(m.dir, b.File)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		_ = os.Remove(path + checksumSuffix)
		removed++
	}
	return removed, errors.Join(errs...)
}

func (m *Manager) readChecksum(file string) string {
	data, err := os.ReadFile(filepath.Join(m.dir, file+checksumSuffix))
	if err != nil {
		return ""
	}
	sum, _, _ := strings.Cut(strings.TrimSpace(string(data)), " ")
	return sum
}

// parseName splits backup-{trigger}-{timestamp}-{id}.badger.gz.
func parseName(name string) (Backup, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return Backup{}, false
	}
	parts := strings.Split(strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix), "-")
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return Backup{}, false
	}
	created, err := time.Parse(timestampFormat, parts[1])
	if err != nil {
		return Backup{}, false
	}
	return Backup{
		ID:        parts[2],
		Trigger:   Trigger(parts[0]),
		File:      name,
		CreatedAt: created,
	}, true
}
