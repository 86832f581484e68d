package agent

import (
	"github.com/console-agent/console-agent/pkg/persona"
)

// Result is the uniform shape every call resolves to, success or not.
type Result struct {
	Success    bool           `json:"success"`
	Summary    string         `json:"summary"`
	Reasoning  string         `json:"reasoning,omitempty"`
	Data       map[string]any `json:"data"`
	Actions    []string       `json:"actions"`
	Confidence float64        `json:"confidence"`
	Metadata   Metadata       `json:"metadata"`
}

// Metadata describes how a result was produced. Always fully populated,
// even on failure paths (zeros and empty slices, never nil).
type Metadata struct {
	Model      string           `json:"model"`
	TokensUsed int              `json:"tokens_used"`
	LatencyMS  int64            `json:"latency_ms"`
	ToolCalls  []ToolCallRecord `json:"tool_calls"`
	Cached     bool             `json:"cached"`
}

// ToolCallRecord captures one tool invocation reported by the provider.
type ToolCallRecord struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Result    string         `json:"result,omitempty"`
}

// CallOptions are per-call overrides. Zero values mean "use the configured
// default".
type CallOptions struct {
	Model        string
	Persona      persona.Name
	Mode         string
	OutputSchema map[string]any
	Capabilities []string
	TimeoutMS    int
	MaxTokens    int
	Temperature  float64
}

// Update is a partial configuration change applied through Reconfigure.
// Nil fields keep their current value; Budget is merged key-wise.
type Update struct {
	Provider  *string
	APIKey    *string
	Model     *string
	Persona   *string
	Mode      *string
	TimeoutMS *int
	Anonymize *bool
	LocalOnly *bool
	DryRun    *bool
	Budget    *BudgetUpdate
}

// BudgetUpdate is the key-wise merge for the budget sub-object.
type BudgetUpdate struct {
	MaxCallsPerDay   *int
	CostCapDailyUSD  *float64
	MaxTokensPerCall *int
}
