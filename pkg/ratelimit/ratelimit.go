// Package ratelimit provides token-bucket admission control for agent calls.
// Capacity equals the configured calls-per-day and refills evenly across the
// day, so a denied call simply fails fast; there is no queueing.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const secondsPerDay = 24 * 60 * 60

// Limiter is a daily token bucket. Safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	bucket   *rate.Limiter
	capacity int
	clock    func() time.Time
}

// New creates a limiter sized to maxCallsPerDay. A capacity of zero (or
// less) denies every call.
func New(maxCallsPerDay int) *Limiter {
	return NewWithClock(maxCallsPerDay, time.Now)
}

// NewWithClock creates a limiter with an injected clock for deterministic
// tests.
func NewWithClock(maxCallsPerDay int, clock func() time.Time) *Limiter {
	return &Limiter{
		bucket:   newBucket(maxCallsPerDay),
		capacity: maxCallsPerDay,
		clock:    clock,
	}
}

func newBucket(capacity int) *rate.Limiter {
	if capacity <= 0 {
		return rate.NewLimiter(0, 0)
	}
	// Spread the daily allowance evenly: capacity tokens per 24h.
	return rate.NewLimiter(rate.Limit(float64(capacity)/secondsPerDay), capacity)
}

// TryConsume takes one token if a full token is available after refill.
// It returns false, leaving state untouched, when the bucket is empty.
func (l *Limiter) TryConsume() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bucket.AllowN(l.clock(), 1)
}

// Remaining reports the whole tokens currently available, for observability.
// Never exceeds the configured capacity.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	tokens := int(math.Floor(l.bucket.TokensAt(l.clock())))
	if tokens < 0 {
		return 0
	}
	if tokens > l.capacity {
		return l.capacity
	}
	return tokens
}

// Reset restores the bucket to full capacity immediately. Operator and test
// escape hatch.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bucket = newBucket(l.capacity)
}

// Capacity returns the configured maximum tokens.
func (l *Limiter) Capacity() int {
	return l.capacity
}
