package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	t.Run("should be fully populated and valid", func(t *testing.T) {
		cfg := DefaultConfig()

		assert.NotEmpty(t, cfg.Provider)
		assert.NotEmpty(t, cfg.Model)
		assert.NotEmpty(t, cfg.Persona)
		assert.NotEmpty(t, cfg.Mode)
		assert.Greater(t, cfg.TimeoutMS, 0)
		assert.Greater(t, cfg.Budget.MaxCallsPerDay, 0)
		assert.Greater(t, cfg.Budget.CostCapDailyUSD, 0.0)

		assert.NoError(t, cfg.Validate())
	})

	t.Run("should enable anonymization by default", func(t *testing.T) {
		assert.True(t, DefaultConfig().Anonymize)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Provider = "smoke-signals" },
			wantErr: "provider",
		},
		{
			name:    "empty model",
			mutate:  func(c *Config) { c.Model = "" },
			wantErr: "model",
		},
		{
			name:    "unknown persona",
			mutate:  func(c *Config) { c.Persona = "pirate" },
			wantErr: "persona",
		},
		{
			name:    "unknown mode",
			mutate:  func(c *Config) { c.Mode = "eventually" },
			wantErr: "mode",
		},
		{
			name:    "non-positive timeout",
			mutate:  func(c *Config) { c.TimeoutMS = 0 },
			wantErr: "timeout",
		},
		{
			name:    "negative call budget",
			mutate:  func(c *Config) { c.Budget.MaxCallsPerDay = -1 },
			wantErr: "max_calls_per_day",
		},
		{
			name:    "negative cost cap",
			mutate:  func(c *Config) { c.Budget.CostCapDailyUSD = -0.5 },
			wantErr: "cost_cap",
		},
		{
			name:    "journal enabled without retention",
			mutate:  func(c *Config) { c.Journal.Enabled = true; c.Journal.RetentionDays = 0 },
			wantErr: "retention",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("zero call budget is valid", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Budget.MaxCallsPerDay = 0
		assert.NoError(t, cfg.Validate())
	})
}

func TestString(t *testing.T) {
	t.Run("should mask the API key", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.APIKey = "sk-ant-very-secret-value"

		s := cfg.String()
		assert.NotContains(t, s, "sk-ant-very-secret-value")
		assert.Contains(t, s, "****")
	})
}
