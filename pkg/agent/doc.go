// Package agent orchestrates single LLM calls with admission control,
// redaction, and a uniform result contract.
//
// Invariants:
//   - Execute never returns an error; every failure path yields a Result with
//     Success=false and fully populated Metadata.
//   - Admission gates (rate, budget) run before any provider dispatch; a denied
//     call performs no network activity.
//   - A call abandoned by timeout cannot mutate budget or rate state afterward.
//
// Usage:
//
//	ag, _ := agent.New(cfg, agent.Options{Logger: logger})
//	result := ag.Execute(ctx, "why is this slow", errValue, nil)
//	_ = result.Summary
package agent
