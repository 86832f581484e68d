// Package budget tracks daily call, token, and cost usage against hard caps.
// Counters reset lazily when the wall clock crosses UTC midnight; there is no
// background timer.
package budget

import (
	"fmt"
	"sync"
	"time"
)

// Config holds the daily limits a tracker enforces.
type Config struct {
	MaxCallsPerDay  int
	CostCapDailyUSD float64
}

// Stats is a read-only snapshot of today's usage.
type Stats struct {
	CallsToday       int
	CallsRemaining   int
	TokensToday      int
	CostTodayUSD     float64
	CostRemainingUSD float64
}

// Tracker accumulates usage for the current UTC day. Safe for concurrent
// use; the check-and-record sequence is serialized by a mutex so concurrent
// calls cannot overshoot the caps.
type Tracker struct {
	mu          sync.Mutex
	cfg         Config
	callsToday  int
	tokensToday int
	costToday   float64
	dayStart    time.Time
	clock       func() time.Time
}

// NewTracker creates a tracker for the given limits.
func NewTracker(cfg Config) *Tracker {
	return NewTrackerWithClock(cfg, time.Now)
}

// NewTrackerWithClock creates a tracker with an injected clock for
// deterministic tests.
func NewTrackerWithClock(cfg Config, clock func() time.Time) *Tracker {
	return &Tracker{
		cfg:      cfg,
		dayStart: clock().UTC().Truncate(24 * time.Hour),
		clock:    clock,
	}
}

// CanMakeCall reports whether another call fits today's budget. When denied
// it returns a human-readable reason; the call limit is checked before the
// cost cap, so the call-limit reason wins when both are violated.
func (t *Tracker) CanMakeCall() (bool, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()

	if t.callsToday >= t.cfg.MaxCallsPerDay {
		return false, fmt.Sprintf("daily call limit reached (%d/%d)", t.callsToday, t.cfg.MaxCallsPerDay)
	}
	if t.costToday >= t.cfg.CostCapDailyUSD {
		return false, fmt.Sprintf("daily cost cap reached ($%.4f/$%.4f)", t.costToday, t.cfg.CostCapDailyUSD)
	}
	return true, ""
}

// RecordUsage adds a completed call to today's counters. It never enforces
// caps; enforcement is CanMakeCall's job, which callers must run before any
// provider call.
func (t *Tracker) RecordUsage(tokens int, costUSD float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()

	t.callsToday++
	t.tokensToday += tokens
	t.costToday += costUSD
}

// Stats returns a snapshot of today's usage and what remains.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()

	callsRemaining := t.cfg.MaxCallsPerDay - t.callsToday
	if callsRemaining < 0 {
		callsRemaining = 0
	}
	costRemaining := t.cfg.CostCapDailyUSD - t.costToday
	if costRemaining < 0 {
		costRemaining = 0
	}

	return Stats{
		CallsToday:       t.callsToday,
		CallsRemaining:   callsRemaining,
		TokensToday:      t.tokensToday,
		CostTodayUSD:     t.costToday,
		CostRemainingUSD: costRemaining,
	}
}

// rolloverLocked zeroes the counters once per UTC day boundary. Must be
// called with t.mu held, before reading or writing any counter.
func (t *Tracker) rolloverLocked() {
	today := t.clock().UTC().Truncate(24 * time.Hour)
	if today.Equal(t.dayStart) {
		return
	}
	t.callsToday = 0
	t.tokensToday = 0
	t.costToday = 0
	t.dayStart = today
}
