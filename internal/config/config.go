// Package config owns the process-wide agent configuration: defaults,
// file/env loading, validation, and hot reload.
package config

import (
	"encoding/json"
	"fmt"

	"github.com/console-agent/console-agent/pkg/persona"
)

// Execution modes for the public call surface.
const (
	ModeBlocking = "blocking"
	ModeAsync    = "async"
)

// Config is the full agent configuration. Always fully populated: defaults
// fill every field and partial files merge over them.
type Config struct {
	// Provider selection: "anthropic" or "openai"
	Provider string `json:"provider" mapstructure:"provider"`

	// API credential for the selected provider
	APIKey string `json:"api_key" mapstructure:"api_key"`

	// Default model identifier
	Model string `json:"model" mapstructure:"model"`

	// Default persona when detection finds nothing
	Persona string `json:"persona" mapstructure:"persona"`

	// Execution mode: blocking or async (fire-and-forget)
	Mode string `json:"mode" mapstructure:"mode"`

	// Provider call deadline in milliseconds
	TimeoutMS int `json:"timeout_ms" mapstructure:"timeout_ms"`

	// Redact secrets/PII before transmission
	Anonymize bool `json:"anonymize" mapstructure:"anonymize"`

	// Suppress cloud-side capabilities (web search and the like)
	LocalOnly bool `json:"local_only" mapstructure:"local_only"`

	// Skip provider dispatch entirely, returning synthetic results
	DryRun bool `json:"dry_run" mapstructure:"dry_run"`

	Budget  BudgetConfig  `json:"budget" mapstructure:"budget"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
	Journal JournalConfig `json:"journal" mapstructure:"journal"`
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`
}

// BudgetConfig holds the daily resource limits.
type BudgetConfig struct {
	MaxCallsPerDay   int     `json:"max_calls_per_day" mapstructure:"max_calls_per_day"`
	CostCapDailyUSD  float64 `json:"cost_cap_daily_usd" mapstructure:"cost_cap_daily_usd"`
	MaxTokensPerCall int     `json:"max_tokens_per_call" mapstructure:"max_tokens_per_call"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// JournalConfig holds the call journal settings.
type JournalConfig struct {
	Enabled       bool   `json:"enabled" mapstructure:"enabled"`
	Path          string `json:"path" mapstructure:"path"`
	RetentionDays int    `json:"retention_days" mapstructure:"retention_days"`
}

// MetricsConfig holds the optional metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// DefaultConfig returns a config with default values.
func DefaultConfig() *Config {
	return &Config{
		Provider:  "anthropic",
		Model:     "claude-sonnet-4",
		Persona:   string(persona.General),
		Mode:      ModeAsync,
		TimeoutMS: 30000,
		Anonymize: true,
		LocalOnly: false,
		DryRun:    false,
		Budget: BudgetConfig{
			MaxCallsPerDay:   50,
			CostCapDailyUSD:  1.0,
			MaxTokensPerCall: 4096,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Pretty:    true,
			Redaction: true,
		},
		Journal: JournalConfig{
			Enabled:       true,
			RetentionDays: 30,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
	}
}

// String returns a JSON representation of the config with the credential
// masked.
func (c *Config) String() string {
	masked := *c
	if masked.APIKey != "" {
		masked.APIKey = "****"
	}
	data, _ := json.MarshalIndent(masked, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Provider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("invalid provider %q (must be: anthropic, openai)", c.Provider)
	}

	if c.Model == "" {
		return fmt.Errorf("model is required")
	}

	if !persona.Valid(persona.Name(c.Persona)) {
		return fmt.Errorf("invalid persona %q", c.Persona)
	}

	switch c.Mode {
	case ModeBlocking, ModeAsync:
	default:
		return fmt.Errorf("invalid mode %q (must be: %s, %s)", c.Mode, ModeBlocking, ModeAsync)
	}

	if c.TimeoutMS <= 0 {
		return fmt.Errorf("timeout_ms must be positive")
	}

	if c.Budget.MaxCallsPerDay < 0 {
		return fmt.Errorf("budget.max_calls_per_day cannot be negative")
	}
	if c.Budget.CostCapDailyUSD < 0 {
		return fmt.Errorf("budget.cost_cap_daily_usd cannot be negative")
	}
	if c.Budget.MaxTokensPerCall < 0 {
		return fmt.Errorf("budget.max_tokens_per_call cannot be negative")
	}

	if c.Journal.Enabled && c.Journal.RetentionDays <= 0 {
		return fmt.Errorf("journal.retention_days must be positive when the journal is enabled")
	}

	return nil
}
