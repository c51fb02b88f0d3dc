// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package auth

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLockout(cfg LockoutConfig) (*LockoutManager, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewLockoutManager(cfg)
	m.now = clock.now
	return m, clock
}

func TestNewLockoutManager_Defaults(t *testing.T) {
	m := NewLockoutManager(LockoutConfig{})
	if m.config != DefaultLockoutConfig() {
		t.Errorf("config = %+v", m.config)
	}
}

func TestLockout_LocksAfterMaxAttempts(t *testing.T) {
	m, _ := newTestLockout(LockoutConfig{MaxAttempts: 3, LockoutDuration: time.Minute, MaxLockoutDuration: time.Hour})

	for i := 0; i < 2; i++ {
		if locked, _ := m.RecordFailure("admin"); locked {
			t.Fatalf("locked after %d failures", i+1)
		}
	}
	locked, remaining := m.RecordFailure("admin")
	if !locked || remaining != time.Minute {
		t.Fatalf("RecordFailure() = %v, %v; want locked for 1m", locked, remaining)
	}
	if locked, _ := m.CheckLocked("admin"); !locked {
		t.Error("CheckLocked() = false after lockout")
	}
	if locked, _ := m.CheckLocked("ip:10.0.0.1"); locked {
		t.Error("unrelated subject locked")
	}
}

func TestLockout_ExpiresAndBacksOff(t *testing.T) {
	m, clock := newTestLockout(LockoutConfig{MaxAttempts: 1, LockoutDuration: time.Minute, MaxLockoutDuration: 3 * time.Minute})

	want := []time.Duration{time.Minute, 2 * time.Minute, 3 * time.Minute, 3 * time.Minute}
	for i, w := range want {
		locked, d := m.RecordFailure("admin")
		if !locked || d != w {
			t.Fatalf("lockout %d: got %v %v, want %v", i+1, locked, d, w)
		}
		clock.advance(d)
		if locked, _ := m.CheckLocked("admin"); locked {
			t.Fatalf("lockout %d did not expire", i+1)
		}
	}
}

func TestLockout_SuccessClears(t *testing.T) {
	m, _ := newTestLockout(LockoutConfig{MaxAttempts: 2, LockoutDuration: time.Minute})

	m.RecordFailure("admin")
	m.RecordSuccess("admin")
	if locked, _ := m.RecordFailure("admin"); locked {
		t.Error("failure count survived a successful login")
	}
}

func TestLockout_Cleanup(t *testing.T) {
	m, clock := newTestLockout(LockoutConfig{MaxAttempts: 5, LockoutDuration: time.Minute, MaxLockoutDuration: time.Hour})

	m.RecordFailure("stale")
	clock.advance(2 * time.Hour)
	m.RecordFailure("fresh")

	if got := m.Cleanup(); got != 1 {
		t.Errorf("Cleanup() = %d, want 1", got)
	}
	if _, ok := m.entries["fresh"]; !ok {
		t.Error("fresh entry removed")
	}
}
