package budget

import "strings"

// Combined USD rate per million tokens, keyed by model identifier. These are
// blended input/output figures good enough for daily cap accounting.
var ratePerMillion = map[string]float64{
	"claude-opus-4":    15.0,
	"claude-sonnet-4":  3.0,
	"claude-3-5-haiku": 0.8,
	"gpt-4o":           2.5,
	"gpt-4o-mini":      0.15,
	"gpt-4-turbo":      10.0,
	"o3-mini":          1.1,
	"deepseek-chat":    0.27,
}

// DefaultRatePerMillion is the conservative fallback for unknown models.
const DefaultRatePerMillion = 5.0

// RatePerMillion returns the per-million-token rate for a model. Versioned
// identifiers (claude-sonnet-4-20250514) match on their table prefix; unknown
// models fall back to DefaultRatePerMillion.
func RatePerMillion(model string) float64 {
	if rate, ok := ratePerMillion[model]; ok {
		return rate
	}
	for prefix, rate := range ratePerMillion {
		if strings.HasPrefix(model, prefix) {
			return rate
		}
	}
	return DefaultRatePerMillion
}

// CostFor computes the USD cost of a call: tokens / 1,000,000 x rate.
func CostFor(model string, tokens int) float64 {
	return float64(tokens) / 1_000_000 * RatePerMillion(model)
}
