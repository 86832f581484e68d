package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("should return defaults when file is missing", func(t *testing.T) {
		loader := NewLoader(filepath.Join(t.TempDir(), "config.json"))

		cfg, err := loader.Load()
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig().Model, cfg.Model)
		assert.Equal(t, DefaultConfig().Budget.MaxCallsPerDay, cfg.Budget.MaxCallsPerDay)
	})

	t.Run("should merge partial file over defaults", func(t *testing.T) {
		path := writeConfigFile(t, `{"model": "gpt-4o", "provider": "openai", "budget": {"max_calls_per_day": 5}}`)
		loader := NewLoader(path)

		cfg, err := loader.Load()
		require.NoError(t, err)

		assert.Equal(t, "gpt-4o", cfg.Model)
		assert.Equal(t, "openai", cfg.Provider)
		assert.Equal(t, 5, cfg.Budget.MaxCallsPerDay)

		// Untouched fields keep their defaults.
		assert.Equal(t, DefaultConfig().TimeoutMS, cfg.TimeoutMS)
		assert.Equal(t, DefaultConfig().Budget.CostCapDailyUSD, cfg.Budget.CostCapDailyUSD)
	})

	t.Run("should reject invalid file contents", func(t *testing.T) {
		path := writeConfigFile(t, `{"provider": "smoke-signals"}`)
		loader := NewLoader(path)

		_, err := loader.Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "provider")
	})

	t.Run("should fold environment overrides over the file", func(t *testing.T) {
		path := writeConfigFile(t, `{"model": "gpt-4o", "provider": "openai"}`)
		t.Setenv(envAPIKey, "from-env")
		t.Setenv(envModel, "gpt-4o-mini")
		t.Setenv(envLogLevel, "debug")

		cfg, err := NewLoader(path).Load()
		require.NoError(t, err)

		assert.Equal(t, "from-env", cfg.APIKey)
		assert.Equal(t, "gpt-4o-mini", cfg.Model)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("should round-trip through Save", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "config.json")
		loader := NewLoader(path)

		want := DefaultConfig()
		want.Model = "gpt-4o"
		want.Provider = "openai"
		require.NoError(t, loader.Save(want))

		got, err := loader.Load()
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o", got.Model)
		assert.Equal(t, "openai", got.Provider)
	})

	t.Run("should default data paths next to the config file", func(t *testing.T) {
		path := writeConfigFile(t, `{}`)
		cfg, err := NewLoader(path).Load()
		require.NoError(t, err)

		dir := filepath.Dir(path)
		assert.Equal(t, filepath.Join(dir, "console-agent.log"), cfg.Logging.File)
		assert.Equal(t, filepath.Join(dir, "usage.db"), cfg.Journal.Path)
	})
}
