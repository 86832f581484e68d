package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/console-agent/console-agent/internal/config"
	"github.com/console-agent/console-agent/internal/logger"
	"github.com/console-agent/console-agent/internal/observability"
	"github.com/console-agent/console-agent/pkg/agent"
	"github.com/console-agent/console-agent/pkg/persona"
	"github.com/console-agent/console-agent/pkg/usagelog"
)

var (
	runModel   string
	runPersona string
	runContext string
	runDryRun  bool
	runAsync   bool
	runVerbose bool
	runTimeout int
)

var runCmd = &cobra.Command{
	Use:   "run \"<prompt>\"",
	Short: "Run one agent call",
	Long: `Run one agent call through the full pipeline: persona resolution,
rate and budget gates, redaction, provider dispatch, and result rendering.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runModel, "model", "", "model override for this call")
	runCmd.Flags().StringVar(&runPersona, "persona", "", "persona override (general, debugger, security, architect)")
	runCmd.Flags().StringVar(&runContext, "context", "", "context string sent alongside the prompt")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "skip provider dispatch, return a synthetic result")
	runCmd.Flags().BoolVar(&runAsync, "async", false, "fire and forget; the outcome goes to the log only (default from config mode)")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "show reasoning, data, and call metadata")
	runCmd.Flags().IntVar(&runTimeout, "timeout-ms", 0, "per-call provider timeout override")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	prompt := args[0]

	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if runDryRun {
		cfg.DryRun = true
	}

	lg, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Redaction: cfg.Logging.Redaction,
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer lg.Close()
	zl := lg.GetZerolog()

	var journal *usagelog.Journal
	if cfg.Journal.Enabled {
		journal, err = usagelog.Open(usagelog.Config{
			Path:          cfg.Journal.Path,
			RetentionDays: cfg.Journal.RetentionDays,
			Logger:        lg.GetZerolog(),
		})
		if err != nil {
			zl.Warn().Err(err).Msg("Usage journal unavailable")
		} else {
			defer journal.Close()
		}
	}

	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.MetricsHandler())
			_ = http.ListenAndServe(cfg.Metrics.Addr, mux)
		}()
	}

	ag, err := agent.New(*cfg, agent.Options{
		Logger:  lg.GetZerolog(),
		Journal: journal,
	})
	if err != nil {
		return err
	}

	// Config edits made while a call is in flight apply to the next call.
	watcher, err := config.NewWatcher(config.NewLoader(cfgFile), lg.GetZerolog(), func(next *config.Config) {
		if err := ag.SetConfig(*next); err != nil {
			zl.Warn().Err(err).Msg("Rejected reloaded config")
		}
	})
	if err != nil {
		zl.Warn().Err(err).Msg("Config watcher unavailable")
	} else {
		defer watcher.Stop()
	}

	opts := &agent.CallOptions{
		Model:     runModel,
		Persona:   persona.Name(runPersona),
		TimeoutMS: runTimeout,
	}

	var callContext any
	if runContext != "" {
		callContext = runContext
	}

	mode := resolveRunMode(cmd.Flags().Changed("async"), runAsync, ag.EffectiveMode(opts))

	if mode == config.ModeAsync {
		ag.ExecuteAsync(context.Background(), prompt, callContext, opts)
		fmt.Fprintln(cmd.OutOrStdout(), dim("dispatched; outcome will be logged"))
		// Keep the process alive long enough for the call to settle.
		timeout := cfg.TimeoutMS
		if runTimeout > 0 {
			timeout = runTimeout
		}
		time.Sleep(time.Duration(timeout)*time.Millisecond + 500*time.Millisecond)
		return nil
	}

	result := ag.Execute(context.Background(), prompt, callContext, opts)

	p := resolveRenderPersona(prompt, runPersona, cfg.Persona)
	renderResult(cmd.OutOrStdout(), result, p, runVerbose)
	return nil
}

// resolveRunMode picks the execution mode: an explicit --async (or
// --async=false) wins, otherwise the agent's effective mode stands.
func resolveRunMode(flagSet, async bool, effective string) string {
	if !flagSet {
		return effective
	}
	if async {
		return config.ModeAsync
	}
	return config.ModeBlocking
}

// resolveRenderPersona mirrors the orchestrator's persona resolution so the
// rendered header matches what was dispatched.
func resolveRenderPersona(prompt, override, fallback string) persona.Persona {
	if override != "" {
		if p, err := persona.Get(persona.Name(override)); err == nil {
			return p
		}
	}
	return persona.Detect(prompt, persona.Name(fallback))
}
