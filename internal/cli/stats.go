package cli

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/console-agent/console-agent/internal/config"
	"github.com/console-agent/console-agent/pkg/usagelog"
)

var statsRecent int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show today's usage against the configured budget",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsRecent, "recent", 5, "number of recent calls to list")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return err
	}

	if !cfg.Journal.Enabled {
		fmt.Fprintln(cmd.OutOrStdout(), "Usage journal is disabled; no stats to show.")
		return nil
	}

	journal, err := usagelog.Open(usagelog.Config{
		Path:          cfg.Journal.Path,
		RetentionDays: cfg.Journal.RetentionDays,
		Logger:        zerolog.Nop(),
	})
	if err != nil {
		return fmt.Errorf("failed to open usage journal: %w", err)
	}
	defer journal.Close()

	midnight := time.Now().UTC().Truncate(24 * time.Hour)
	totals, err := journal.TotalsSince(midnight)
	if err != nil {
		return fmt.Errorf("failed to read usage totals: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n", bold("Today (UTC)"))
	fmt.Fprintf(out, "  calls:   %d / %d\n", totals.Calls, cfg.Budget.MaxCallsPerDay)
	fmt.Fprintf(out, "  cost:    $%.4f / $%.2f\n", totals.CostUSD, cfg.Budget.CostCapDailyUSD)
	fmt.Fprintf(out, "  tokens:  %d\n", totals.Tokens)
	fmt.Fprintf(out, "  success: %d of %d\n", totals.Successes, totals.Calls)

	if statsRecent <= 0 {
		return nil
	}

	entries, err := journal.Recent(statsRecent)
	if err != nil {
		return fmt.Errorf("failed to read recent calls: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	fmt.Fprintf(out, "\n%s\n", bold("Recent calls"))
	for _, e := range entries {
		status := green("ok")
		if !e.Success {
			status = red("failed")
		}
		fmt.Fprintf(out, "  %s  %-9s %-18s %6d tok  $%.4f  %s\n",
			e.Timestamp.UTC().Format("15:04:05"), e.Persona, e.Model,
			e.Tokens, e.CostUSD, status)
	}

	return nil
}
