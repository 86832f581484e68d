// Package persona defines the closed set of agent behavior profiles and the
// keyword scan that picks one from a prompt.
package persona

import (
	"fmt"
	"strings"
)

// Name identifies a persona. The set is closed; values outside the four
// constants are rejected by Get.
type Name string

const (
	General   Name = "general"
	Debugger  Name = "debugger"
	Security  Name = "security"
	Architect Name = "architect"
)

// Persona is a named behavior profile. Immutable after registration.
type Persona struct {
	Name                Name
	Label               string
	Icon                string
	Instructions        string
	DefaultCapabilities []string
	Keywords            []string
}

var registry = map[Name]Persona{
	General: {
		Name:  General,
		Label: "General Assistant",
		Icon:  "🤖",
		Instructions: "You are a pragmatic engineering assistant embedded in a developer console. " +
			"Answer directly, prefer concrete suggestions over theory, and keep summaries to one line.",
		DefaultCapabilities: []string{"web_search"},
		// No keywords: general is only reachable as the detection fallback.
		Keywords: nil,
	},
	Debugger: {
		Name:  Debugger,
		Label: "Debugger",
		Icon:  "🐛",
		Instructions: "You are a debugging specialist. Reason from the symptoms toward a root cause, " +
			"state the most likely culprit first, and propose the minimal change that fixes it. " +
			"Call out missing evidence you would need to confirm the diagnosis.",
		DefaultCapabilities: []string{"web_search", "code_execution"},
		Keywords: []string{
			"error", "bug", "crash", "broken", "fix", "slow", "stack trace",
			"exception", "undefined", "null pointer", "why is", "not working",
		},
	},
	Security: {
		Name:  Security,
		Label: "Security Auditor",
		Icon:  "🔒",
		Instructions: "You are a security auditor. Hunt for injection, authentication, and data-exposure " +
			"flaws. Rank findings by severity, cite the exact risky construct, and suggest a hardened " +
			"replacement for each.",
		DefaultCapabilities: []string{"web_search"},
		Keywords: []string{
			"security", "vulnerability", "injection", "xss", "csrf", "exploit",
			"sanitize", "escape", "cve", "auth bypass", "secret leak",
		},
	},
	Architect: {
		Name:  Architect,
		Label: "Architect",
		Icon:  "🏗️",
		Instructions: "You are a software architecture reviewer. Evaluate structure, boundaries, and " +
			"coupling. Recommend the smallest restructuring with the largest payoff and name the " +
			"trade-offs explicitly.",
		DefaultCapabilities: nil,
		Keywords: []string{
			"architecture", "design pattern", "refactor", "structure", "organize",
			"coupling", "modular", "scalab",
		},
	},
}

// detectionOrder is the fixed priority for keyword scanning. Security wins
// over debugging when a prompt matches both.
var detectionOrder = []Name{Security, Debugger, Architect}

// Valid reports whether n is one of the registered persona names.
func Valid(n Name) bool {
	_, ok := registry[n]
	return ok
}

// Get looks up a persona by name. Fails only for names outside the closed
// enumeration.
func Get(n Name) (Persona, error) {
	p, ok := registry[n]
	if !ok {
		return Persona{}, fmt.Errorf("unknown persona: %s", n)
	}
	return p, nil
}

// All returns the registered personas in detection-priority order, general
// last.
func All() []Persona {
	out := make([]Persona, 0, len(registry))
	for _, name := range detectionOrder {
		out = append(out, registry[name])
	}
	out = append(out, registry[General])
	return out
}

// Detect scans the prompt for specialized persona keywords in fixed priority
// order and returns the first match. Matching is a plain lowercase substring
// test. When nothing matches, the fallback persona is returned (general if
// the fallback name is itself unknown).
func Detect(prompt string, fallback Name) Persona {
	lowered := strings.ToLower(prompt)

	for _, name := range detectionOrder {
		p := registry[name]
		for _, keyword := range p.Keywords {
			if strings.Contains(lowered, keyword) {
				return p
			}
		}
	}

	if p, ok := registry[fallback]; ok {
		return p
	}
	return registry[General]
}
