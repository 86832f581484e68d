package agent

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/console-agent/console-agent/pkg/persona"
)

func personaFixture() persona.Persona {
	return persona.Persona{
		Name:         persona.General,
		Instructions: "You are a test persona.",
	}
}

func testMeta() Metadata {
	return Metadata{
		Model:      "claude-sonnet-4",
		TokensUsed: 100,
		LatencyMS:  10,
		ToolCalls:  []ToolCallRecord{},
	}
}

func TestNormalizeContent(t *testing.T) {
	t.Run("should parse well-formed output", func(t *testing.T) {
		raw := `{"summary": "use an index", "reasoning": "the scan is linear",
			"data": {"table": "users"}, "actions": ["add index"], "confidence": 0.85}`

		result := normalizeContent(raw, nil, testMeta())

		assert.True(t, result.Success)
		assert.Equal(t, "use an index", result.Summary)
		assert.Equal(t, "the scan is linear", result.Reasoning)
		assert.Equal(t, "users", result.Data["table"])
		assert.Equal(t, []string{"add index"}, result.Actions)
		assert.Equal(t, 0.85, result.Confidence)
		assert.Equal(t, testMeta(), result.Metadata)
	})

	t.Run("should strip a markdown code fence", func(t *testing.T) {
		raw := "```json\n{\"summary\": \"fenced\", \"confidence\": 0.7}\n```"

		result := normalizeContent(raw, nil, testMeta())

		assert.Equal(t, "fenced", result.Summary)
		assert.Equal(t, 0.7, result.Confidence)
	})

	t.Run("should repair slightly malformed output", func(t *testing.T) {
		// Trailing comma and single quotes, the usual model sloppiness.
		raw := `{'summary': 'repaired', 'confidence': 0.6,}`

		result := normalizeContent(raw, nil, testMeta())

		assert.True(t, result.Success)
		assert.Equal(t, "repaired", result.Summary)
	})

	t.Run("should fall back to best effort on unparseable output", func(t *testing.T) {
		raw := "I could not produce JSON, sorry. Here is prose instead."

		result := normalizeContent(raw, nil, testMeta())

		assert.True(t, result.Success)
		assert.Equal(t, raw, result.Summary)
		assert.Empty(t, result.Data)
		assert.NotNil(t, result.Data)
		assert.Equal(t, 0.5, result.Confidence)
		assert.Equal(t, testMeta(), result.Metadata)
	})

	t.Run("should truncate a long raw summary in the fallback", func(t *testing.T) {
		raw := strings.Repeat("x", 500)

		result := normalizeContent(raw, nil, testMeta())

		require.True(t, len(result.Summary) < 500)
		assert.True(t, strings.HasSuffix(result.Summary, "..."))
	})

	t.Run("should truncate multi-byte text on a rune boundary", func(t *testing.T) {
		raw := strings.Repeat("é", 300)

		result := normalizeContent(raw, nil, testMeta())

		assert.True(t, utf8.ValidString(result.Summary))
		assert.True(t, strings.HasSuffix(result.Summary, "..."))
		assert.Equal(t, 100, strings.Count(result.Summary, "é"))
	})

	t.Run("should clamp confidence into the unit interval", func(t *testing.T) {
		result := normalizeContent(`{"summary": "sure", "confidence": 7.5}`, nil, testMeta())
		assert.Equal(t, 1.0, result.Confidence)

		result = normalizeContent(`{"summary": "unsure", "confidence": -3}`, nil, testMeta())
		assert.Equal(t, 0.0, result.Confidence)
	})

	t.Run("should default data and actions to empty, never nil", func(t *testing.T) {
		result := normalizeContent(`{"summary": "bare"}`, nil, testMeta())

		assert.NotNil(t, result.Data)
		assert.NotNil(t, result.Actions)
	})
}

func TestNormalizeContentSchema(t *testing.T) {
	schema := map[string]any{
		"type":     "object",
		"required": []any{"table"},
		"properties": map[string]any{
			"table": map[string]any{"type": "string"},
		},
	}

	t.Run("should accept data that matches the schema", func(t *testing.T) {
		raw := `{"summary": "found it", "data": {"table": "users"}, "confidence": 0.9}`

		result := normalizeContent(raw, schema, testMeta())

		assert.Equal(t, "found it", result.Summary)
		assert.Equal(t, "users", result.Data["table"])
	})

	t.Run("should degrade schema-invalid data to the fallback", func(t *testing.T) {
		raw := `{"summary": "found it", "data": {"table": 42}, "confidence": 0.9}`

		result := normalizeContent(raw, schema, testMeta())

		assert.True(t, result.Success)
		assert.Empty(t, result.Data)
		assert.Equal(t, 0.5, result.Confidence)
	})
}

func TestSystemPromptFor(t *testing.T) {
	req := Request{
		Persona: personaFixture(),
	}

	t.Run("should carry persona instructions and the output directive", func(t *testing.T) {
		prompt := systemPromptFor(req)

		assert.Contains(t, prompt, "You are a test persona.")
		assert.Contains(t, prompt, `"summary"`)
	})

	t.Run("should list capabilities when present", func(t *testing.T) {
		withCaps := req
		withCaps.Capabilities = []string{"web_search"}

		assert.Contains(t, systemPromptFor(withCaps), "web_search")
		assert.NotContains(t, systemPromptFor(req), "Available capabilities")
	})
}

func TestUserPromptFor(t *testing.T) {
	t.Run("should pass a bare prompt through", func(t *testing.T) {
		assert.Equal(t, "hello", userPromptFor(Request{Prompt: "hello"}))
	})

	t.Run("should append the context block", func(t *testing.T) {
		joined := userPromptFor(Request{Prompt: "hello", Context: "stack trace here"})

		assert.Contains(t, joined, "hello")
		assert.Contains(t, joined, "Context:\nstack trace here")
	})
}
