package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/console-agent/console-agent/pkg/persona"
)

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List available personas and their detection keywords",
	RunE:  runPersonas,
}

func init() {
	rootCmd.AddCommand(personasCmd)
}

func runPersonas(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for _, p := range persona.All() {
		fmt.Fprintf(out, "%s %s (%s)\n", p.Icon, bold(p.Label), p.Name)
		if len(p.Keywords) > 0 {
			fmt.Fprintf(out, "  %s\n", dim("keywords: "+strings.Join(p.Keywords, ", ")))
		} else {
			fmt.Fprintf(out, "  %s\n", dim("fallback persona, matched when nothing else is"))
		}
	}
	return nil
}
