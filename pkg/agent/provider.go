package agent

import (
	"context"
	"fmt"

	"github.com/console-agent/console-agent/pkg/persona"
)

// Provider is the boundary between the orchestrator and a vendor API.
type Provider interface {
	// Complete performs the model call and returns a normalized result.
	Complete(ctx context.Context, request Request) (*Result, error)

	// Name returns the provider name
	Name() string
}

// Request carries everything an adapter needs for one call. Prompt and
// Context arrive post-anonymization.
type Request struct {
	Prompt       string
	Context      string
	Persona      persona.Persona
	Model        string
	MaxTokens    int
	Temperature  float64
	Capabilities []string
	OutputSchema map[string]any
}

// ProviderFactory creates providers by name.
type ProviderFactory struct{}

// NewProvider creates a provider for the named vendor.
func (f *ProviderFactory) NewProvider(name, apiKey string) (Provider, error) {
	switch name {
	case "anthropic":
		return NewAnthropicProvider(apiKey), nil
	case "openai":
		return NewOpenAIProvider(apiKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
}

// ProviderCreator creates providers; satisfied by ProviderFactory and test
// doubles.
type ProviderCreator interface {
	NewProvider(name, apiKey string) (Provider, error)
}
