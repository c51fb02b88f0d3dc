// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package auth

import (
	"sync"
	"time"

	"github.com/tomtom215/curatarr/internal/logging"
)

// LockoutConfig holds configuration for login lockout.
type LockoutConfig struct {
	// MaxAttempts is the number of failed attempts before lockout.
	MaxAttempts int

	// LockoutDuration is the base lockout period. Each further lockout of
	// the same subject doubles it, up to MaxLockoutDuration.
	LockoutDuration    time.Duration
	MaxLockoutDuration time.Duration
}

// DefaultLockoutConfig returns sensible defaults.
func DefaultLockoutConfig() LockoutConfig {
	return LockoutConfig{
		MaxAttempts:        5,
		LockoutDuration:    15 * time.Minute,
		MaxLockoutDuration: 24 * time.Hour,
	}
}

type lockoutEntry struct {
	failedAttempts int
	lockoutCount   int
	lastAttempt    time.Time
	lockedUntil    time.Time
}

// LockoutManager tracks failed logins per subject (a username, or "ip:"
// plus an address) in memory. State does not survive a restart.
type LockoutManager struct {
	config  LockoutConfig
	mu      sync.Mutex
	entries map[string]*lockoutEntry
	now     func() time.Time
}

// NewLockoutManager creates a lockout manager. Zero fields in cfg take the
// defaults.
func NewLockoutManager(cfg LockoutConfig) *LockoutManager {
	def := DefaultLockoutConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = def.LockoutDuration
	}
	if cfg.MaxLockoutDuration < cfg.LockoutDuration {
		cfg.MaxLockoutDuration = max(def.MaxLockoutDuration, cfg.LockoutDuration)
	}
	return &LockoutManager{
		config:  cfg,
		entries: make(map[string]*lockoutEntry),
		now:     time.Now,
	}
}

// CheckLocked reports whether subject is locked and for how much longer.
func (m *LockoutManager) CheckLocked(subject string) (bool, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[subject]
	if !ok {
		return false, 0
	}
	now := m.now()
	if now.Before(entry.lockedUntil) {
		return true, entry.lockedUntil.Sub(now)
	}
	return false, 0
}

// RecordFailure counts a failed attempt and reports whether subject is now
// locked.
func (m *LockoutManager) RecordFailure(subject string) (bool, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entry, ok := m.entries[subject]
	if !ok {
		entry = &lockoutEntry{}
		m.entries[subject] = entry
	}
	if now.Before(entry.lockedUntil) {
		return true, entry.lockedUntil.Sub(now)
	}

	entry.failedAttempts++
	entry.lastAttempt = now
	if entry.failedAttempts < m.config.MaxAttempts {
		return false, 0
	}

	duration := m.lockoutDuration(entry.lockoutCount)
	entry.lockedUntil = now.Add(duration)
	entry.lockoutCount++
	entry.failedAttempts = 0

	logging.Warn().
		Str("subject", subject).
		Dur("duration", duration).
		Int("lockout_count", entry.lockoutCount).
		Msg("Login locked out")
	return true, duration
}

// RecordSuccess clears the state for subject.
func (m *LockoutManager) RecordSuccess(subject string) {
	m.mu.Lock()
	delete(m.entries, subject)
	m.mu.Unlock()
}

// Cleanup drops entries that are neither locked nor recently active and
// returns how many were removed.
func (m *LockoutManager) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for subject, entry := range m.entries {
		if now.Before(entry.lockedUntil) || now.Sub(entry.lastAttempt) < m.config.MaxLockoutDuration {
			continue
		}
		delete(m.entries, subject)
		removed++
	}
	return removed
}

func (m *LockoutManager) lockoutDuration(lockoutCount int) time.Duration {
	d := m.config.LockoutDuration
	for i := 0; i < lockoutCount && d < m.config.MaxLockoutDuration; i++ {
		d *= 2
	}
	return min(d, m.config.MaxLockoutDuration)
}
