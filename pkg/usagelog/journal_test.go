package usagelog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupJournal(t *testing.T) *Journal {
	t.Helper()

	dir, err := os.MkdirTemp("", "usagelog-test-*")
	require.NoError(t, err)

	j, err := Open(Config{
		Path:          filepath.Join(dir, "journal.db"),
		RetentionDays: 7,
		Logger:        zerolog.New(os.Stdout).Level(zerolog.ErrorLevel),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		j.Close()
		os.RemoveAll(dir)
	})

	return j
}

func TestOpen(t *testing.T) {
	t.Run("should require a path", func(t *testing.T) {
		_, err := Open(Config{})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "path")
	})
}

func TestRecordAndRecent(t *testing.T) {
	j := setupJournal(t)

	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	entries := []Entry{
		{ID: "a", Timestamp: base, Model: "claude-sonnet-4", Persona: "general", Success: true, Tokens: 120, CostUSD: 0.0004, LatencyMS: 900},
		{ID: "b", Timestamp: base.Add(time.Minute), Model: "gpt-4o", Persona: "security", Success: false, Tokens: 0, CostUSD: 0, LatencyMS: 30000},
	}
	for _, e := range entries {
		require.NoError(t, j.Record(e))
	}

	recent, err := j.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	// Newest first.
	assert.Equal(t, "b", recent[0].ID)
	assert.Equal(t, "security", recent[0].Persona)
	assert.False(t, recent[0].Success)

	assert.Equal(t, "a", recent[1].ID)
	assert.Equal(t, "claude-sonnet-4", recent[1].Model)
	assert.True(t, recent[1].Success)
	assert.Equal(t, 120, recent[1].Tokens)
	assert.Equal(t, base, recent[1].Timestamp)
}

func TestTotalsSince(t *testing.T) {
	j := setupJournal(t)

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, j.Record(Entry{ID: "old", Timestamp: base.Add(-48 * time.Hour), Model: "m", Persona: "general", Success: true, Tokens: 10, CostUSD: 0.1}))
	require.NoError(t, j.Record(Entry{ID: "new1", Timestamp: base.Add(time.Hour), Model: "m", Persona: "general", Success: true, Tokens: 100, CostUSD: 0.2}))
	require.NoError(t, j.Record(Entry{ID: "new2", Timestamp: base.Add(2 * time.Hour), Model: "m", Persona: "general", Success: false, Tokens: 0, CostUSD: 0}))

	totals, err := j.TotalsSince(base)
	require.NoError(t, err)

	assert.Equal(t, 2, totals.Calls)
	assert.Equal(t, 1, totals.Successes)
	assert.Equal(t, 100, totals.Tokens)
	assert.InDelta(t, 0.2, totals.CostUSD, 1e-9)
}

func TestPruneBefore(t *testing.T) {
	j := setupJournal(t)

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, j.Record(Entry{ID: "stale", Timestamp: base.Add(-30 * 24 * time.Hour), Model: "m", Persona: "general"}))
	require.NoError(t, j.Record(Entry{ID: "fresh", Timestamp: base, Model: "m", Persona: "general"}))

	removed, err := j.PruneBefore(base.Add(-7 * 24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	recent, err := j.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "fresh", recent[0].ID)
}
