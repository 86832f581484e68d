package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWatchedConfig(t *testing.T, path, model string) {
	t.Helper()
	err := os.WriteFile(path, []byte(`{"model": "`+model+`", "api_key": "test"}`), 0o600)
	require.NoError(t, err)
}

func TestWatcher(t *testing.T) {
	t.Run("should deliver a reloaded config after a write", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.json")
		writeWatchedConfig(t, path, "claude-sonnet-4")

		var mu sync.Mutex
		var got *Config
		w, err := NewWatcher(NewLoader(path), zerolog.Nop(), func(cfg *Config) {
			mu.Lock()
			got = cfg
			mu.Unlock()
		})
		require.NoError(t, err)
		defer w.Stop()

		writeWatchedConfig(t, path, "gpt-4o")

		require.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return got != nil && got.Model == "gpt-4o"
		}, 5*time.Second, 50*time.Millisecond)
	})

	t.Run("should skip an invalid file and keep waiting", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.json")
		writeWatchedConfig(t, path, "claude-sonnet-4")

		var mu sync.Mutex
		calls := 0
		w, err := NewWatcher(NewLoader(path), zerolog.Nop(), func(cfg *Config) {
			mu.Lock()
			calls++
			mu.Unlock()
		})
		require.NoError(t, err)
		defer w.Stop()

		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
		time.Sleep(time.Second)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 0, calls)
	})

	t.Run("should ignore sibling files", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.json")
		writeWatchedConfig(t, path, "claude-sonnet-4")

		var mu sync.Mutex
		calls := 0
		w, err := NewWatcher(NewLoader(path), zerolog.Nop(), func(cfg *Config) {
			mu.Lock()
			calls++
			mu.Unlock()
		})
		require.NoError(t, err)
		defer w.Stop()

		require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o600))
		time.Sleep(time.Second)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 0, calls)
	})
}
