package agent

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kaptinlin/jsonrepair"
	"github.com/xeipuuv/gojsonschema"
)

// outputDirective instructs the model to answer in the normalized shape.
// Appended to every persona's system instructions.
const outputDirective = `Respond with a single JSON object and nothing else. Fields:
  "summary":    one-line answer (string, required)
  "reasoning":  brief explanation of how you got there (string)
  "data":       structured findings as key/value pairs (object)
  "actions":    suggested next steps, most important first (array of strings)
  "confidence": how sure you are, 0.0 to 1.0 (number)`

const maxFallbackSummary = 200

// structuredPayload is the wire shape models are asked to produce.
type structuredPayload struct {
	Summary    string         `json:"summary"`
	Reasoning  string         `json:"reasoning"`
	Data       map[string]any `json:"data"`
	Actions    []string       `json:"actions"`
	Confidence float64        `json:"confidence"`
}

// systemPromptFor builds the system prompt for a request: persona
// instructions, capability hints, then the output directive.
func systemPromptFor(req Request) string {
	var b strings.Builder
	b.WriteString(req.Persona.Instructions)
	if len(req.Capabilities) > 0 {
		b.WriteString("\n\nAvailable capabilities: ")
		b.WriteString(strings.Join(req.Capabilities, ", "))
		b.WriteString(".")
	}
	b.WriteString("\n\n")
	b.WriteString(outputDirective)
	return b.String()
}

// userPromptFor joins the prompt and serialized context into one message.
func userPromptFor(req Request) string {
	if req.Context == "" {
		return req.Prompt
	}
	return fmt.Sprintf("%s\n\nContext:\n%s", req.Prompt, req.Context)
}

// normalizeContent maps a provider's raw text into a Result. A parse failure
// is never propagated: malformed output goes through jsonrepair, and if that
// still does not yield the expected shape the raw text degrades to a
// best-effort result. Metadata is always fully populated by the caller's
// meta value.
func normalizeContent(raw string, schema map[string]any, meta Metadata) *Result {
	payload, ok := parsePayload(raw)
	if !ok {
		return bestEffortResult(raw, meta)
	}

	if schema != nil && !validateSchema(schema, payload.Data) {
		return bestEffortResult(raw, meta)
	}

	data := payload.Data
	if data == nil {
		data = map[string]any{}
	}
	actions := payload.Actions
	if actions == nil {
		actions = []string{}
	}

	return &Result{
		Success:    true,
		Summary:    payload.Summary,
		Reasoning:  payload.Reasoning,
		Data:       data,
		Actions:    actions,
		Confidence: clampConfidence(payload.Confidence),
		Metadata:   meta,
	}
}

// parsePayload tries strict JSON first, then a fenced-block strip, then
// jsonrepair. A payload without a summary is not considered parsed.
func parsePayload(raw string) (structuredPayload, bool) {
	candidate := stripCodeFence(strings.TrimSpace(raw))

	var payload structuredPayload
	if err := json.Unmarshal([]byte(candidate), &payload); err == nil && payload.Summary != "" {
		return payload, true
	}

	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return structuredPayload{}, false
	}
	if err := json.Unmarshal([]byte(repaired), &payload); err != nil || payload.Summary == "" {
		return structuredPayload{}, false
	}
	return payload, true
}

// stripCodeFence removes a surrounding markdown code fence if present.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// bestEffortResult is the malformed-output fallback: truncated raw text as
// the summary, empty data, mid-range confidence.
func bestEffortResult(raw string, meta Metadata) *Result {
	summary := strings.TrimSpace(raw)
	if len(summary) > maxFallbackSummary {
		// Back up to a rune boundary so the cut never splits a multi-byte
		// character.
		cut := maxFallbackSummary
		for cut > 0 && !utf8.RuneStart(summary[cut]) {
			cut--
		}
		summary = summary[:cut] + "..."
	}
	return &Result{
		Success:    true,
		Summary:    summary,
		Data:       map[string]any{},
		Actions:    []string{},
		Confidence: 0.5,
		Metadata:   meta,
	}
}

// validateSchema checks the data map against a caller-supplied JSON schema.
// Validation errors degrade the result rather than failing the call, so a
// schema that itself fails to compile counts as invalid data.
func validateSchema(schema, data map[string]any) bool {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return false
	}
	outcome, err := compiled.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return false
	}
	return outcome.Valid()
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
