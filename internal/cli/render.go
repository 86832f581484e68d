package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	"github.com/console-agent/console-agent/pkg/agent"
	"github.com/console-agent/console-agent/pkg/persona"
)

var (
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	cyan  = color.New(color.FgCyan).SprintFunc()
	dim   = color.New(color.FgHiBlack).SprintFunc()
	bold  = color.New(color.Bold).SprintFunc()
)

// renderResult prints a completed result. Rendering is a sink: it never
// returns an error and write failures are ignored, so a broken pipe cannot
// fail the call.
func renderResult(w io.Writer, result *agent.Result, p persona.Persona, verbose bool) {
	if result == nil {
		return
	}

	fmt.Fprintf(w, "%s %s\n", p.Icon, bold(p.Label))

	if result.Success {
		fmt.Fprintf(w, "%s %s\n", green("✔"), result.Summary)
	} else {
		fmt.Fprintf(w, "%s %s\n", red("✘"), result.Summary)
	}

	if verbose && result.Reasoning != "" {
		fmt.Fprintf(w, "\n%s\n", dim(result.Reasoning))
	}

	if verbose && len(result.Data) > 0 {
		fmt.Fprintf(w, "\n%s\n", bold("Data"))
		keys := make([]string, 0, len(result.Data))
		for k := range result.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s: %v\n", cyan(k), result.Data[k])
		}
	}

	if len(result.Actions) > 0 {
		fmt.Fprintf(w, "\n%s\n", bold("Next steps"))
		for i, action := range result.Actions {
			fmt.Fprintf(w, "  %d. %s\n", i+1, action)
		}
	}

	if verbose {
		fmt.Fprintf(w, "\n%s\n", dim(fmt.Sprintf("model=%s tokens=%d latency=%dms confidence=%.2f",
			result.Metadata.Model, result.Metadata.TokensUsed,
			result.Metadata.LatencyMS, result.Confidence)))
	}
}
