package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fixedClock returns a clock stuck at t plus a function to advance it.
func fixedClock(t time.Time) (func() time.Time, func(d time.Duration)) {
	current := t
	return func() time.Time { return current },
		func(d time.Duration) { current = current.Add(d) }
}

func TestTryConsume(t *testing.T) {
	t.Run("should permit exactly capacity calls with no elapsed time", func(t *testing.T) {
		for _, capacity := range []int{1, 5, 20} {
			clock, _ := fixedClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
			l := NewWithClock(capacity, clock)

			for i := 0; i < capacity; i++ {
				assert.True(t, l.TryConsume(), "call %d of %d should be admitted", i+1, capacity)
			}
			assert.False(t, l.TryConsume(), "call %d should be denied", capacity+1)
		}
	})

	t.Run("should deny everything with zero capacity", func(t *testing.T) {
		clock, _ := fixedClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
		l := NewWithClock(0, clock)

		assert.False(t, l.TryConsume())
		assert.Equal(t, 0, l.Remaining())
	})

	t.Run("should refill as time passes", func(t *testing.T) {
		clock, advance := fixedClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
		l := NewWithClock(10, clock)

		for i := 0; i < 10; i++ {
			assert.True(t, l.TryConsume())
		}
		assert.False(t, l.TryConsume())

		// Half a day refills half the capacity.
		advance(12 * time.Hour)
		assert.Equal(t, 5, l.Remaining())
		assert.True(t, l.TryConsume())
	})
}

func TestRemaining(t *testing.T) {
	t.Run("should never exceed capacity regardless of elapsed time", func(t *testing.T) {
		clock, advance := fixedClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
		l := NewWithClock(7, clock)

		assert.Equal(t, 7, l.Remaining())

		advance(100 * 24 * time.Hour)
		assert.Equal(t, 7, l.Remaining())
	})

	t.Run("should report floor of available tokens", func(t *testing.T) {
		clock, advance := fixedClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
		l := NewWithClock(4, clock)

		for i := 0; i < 4; i++ {
			assert.True(t, l.TryConsume())
		}

		// A quarter day refills one token for capacity 4.
		advance(6*time.Hour + time.Minute)
		assert.Equal(t, 1, l.Remaining())
	})
}

func TestReset(t *testing.T) {
	t.Run("should restore full capacity immediately", func(t *testing.T) {
		clock, _ := fixedClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
		l := NewWithClock(3, clock)

		for i := 0; i < 3; i++ {
			assert.True(t, l.TryConsume())
		}
		assert.False(t, l.TryConsume())

		l.Reset()
		assert.Equal(t, 3, l.Remaining())
		assert.True(t, l.TryConsume())
	})
}

func TestCapacity(t *testing.T) {
	l := New(42)
	assert.Equal(t, 42, l.Capacity())
}
