package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider implements Provider for OpenAI
type OpenAIProvider struct {
	client openai.Client
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	return &OpenAIProvider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Complete makes an API call to OpenAI and normalizes the output.
func (p *OpenAIProvider) Complete(ctx context.Context, request Request) (*Result, error) {
	started := time.Now()

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(request.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPromptFor(request)),
			openai.UserMessage(userPromptFor(request)),
		},
	}

	if request.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(request.MaxTokens))
	}
	if request.Temperature > 0 {
		params.Temperature = openai.Float(request.Temperature)
	}

	response, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no response choices returned")
	}

	meta := Metadata{
		Model:      request.Model,
		TokensUsed: int(response.Usage.PromptTokens + response.Usage.CompletionTokens),
		LatencyMS:  time.Since(started).Milliseconds(),
		ToolCalls:  []ToolCallRecord{},
	}

	return normalizeContent(response.Choices[0].Message.Content, request.OutputSchema, meta), nil
}
