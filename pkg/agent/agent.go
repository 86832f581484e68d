package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/console-agent/console-agent/internal/config"
	"github.com/console-agent/console-agent/internal/observability"
	"github.com/console-agent/console-agent/pkg/anonymizer"
	"github.com/console-agent/console-agent/pkg/budget"
	"github.com/console-agent/console-agent/pkg/persona"
	"github.com/console-agent/console-agent/pkg/ratelimit"
	"github.com/console-agent/console-agent/pkg/usagelog"
)

// Agent coordinates single LLM calls: persona resolution, admission gates,
// redaction, provider dispatch under a deadline, usage accounting, and
// result normalization.
type Agent struct {
	mu       sync.RWMutex
	cfg      config.Config
	provider Provider
	limiter  *ratelimit.Limiter
	tracker  *budget.Tracker

	redactor *anonymizer.Anonymizer
	logger   zerolog.Logger
	journal  *usagelog.Journal
	factory  ProviderCreator
	clock    func() time.Time
}

// Options holds the collaborators an Agent is wired with. Zero values get
// working defaults; Journal stays nil when no journal is wanted.
type Options struct {
	Logger  zerolog.Logger
	Journal *usagelog.Journal

	// Provider overrides factory-based creation. Reconfigure keeps using it.
	Provider Provider

	// Factory creates providers; defaults to ProviderFactory.
	Factory ProviderCreator

	// Clock is injected by tests to drive the limiter and tracker.
	Clock func() time.Time
}

// Capabilities that require provider-side execution; stripped when the
// local-only toggle is set.
var cloudCapabilities = map[string]bool{
	"web_search":     true,
	"code_execution": true,
}

// New creates an agent from a validated configuration.
func New(cfg config.Config, opts Options) (*Agent, error) {
	observability.EnsureRegistered()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	factory := opts.Factory
	if factory == nil {
		if opts.Provider != nil {
			factory = staticFactory{provider: opts.Provider}
		} else {
			factory = &ProviderFactory{}
		}
	}

	provider, err := factory.NewProvider(cfg.Provider, cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	return &Agent{
		cfg:      cfg,
		provider: provider,
		limiter:  ratelimit.NewWithClock(cfg.Budget.MaxCallsPerDay, clock),
		tracker:  budget.NewTrackerWithClock(budgetConfig(cfg), clock),
		redactor: anonymizer.New(),
		logger:   opts.Logger,
		journal:  opts.Journal,
		factory:  factory,
		clock:    clock,
	}, nil
}

// Execute runs one call end to end. It never returns an error: every failure
// path resolves to a Result with Success=false and populated Metadata.
func (a *Agent) Execute(ctx context.Context, prompt string, callContext any, opts *CallOptions) *Result {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts == nil {
		opts = &CallOptions{}
	}

	a.mu.RLock()
	cfg := a.cfg
	provider := a.provider
	limiter := a.limiter
	tracker := a.tracker
	a.mu.RUnlock()

	callID := uuid.NewString()
	logger := a.logger.With().Str("call_id", callID).Logger()
	started := time.Now()

	model := cfg.Model
	if opts.Model != "" {
		model = opts.Model
	}

	// Persona: explicit override wins and is looked up directly, otherwise
	// detect from the prompt with the configured default as fallback.
	var p persona.Persona
	if opts.Persona != "" {
		var err error
		p, err = persona.Get(opts.Persona)
		if err != nil {
			logger.Warn().Str("persona", string(opts.Persona)).Msg("Unknown persona override")
			return failureResult(cfg.Model, fmt.Sprintf("unknown persona: %s", opts.Persona))
		}
	} else {
		p = persona.Detect(prompt, persona.Name(cfg.Persona))
	}
	logger = logger.With().Str("persona", string(p.Name)).Logger()

	if cfg.DryRun {
		logger.Info().Str("model", model).Msg("Dry run, provider dispatch skipped")
		return &Result{
			Success:    true,
			Summary:    fmt.Sprintf("dry run: %s call skipped", model),
			Data:       map[string]any{"dryRun": true},
			Actions:    []string{},
			Confidence: 1,
			Metadata:   zeroMetadata(model),
		}
	}

	if !limiter.TryConsume() {
		observability.RecordDenial("rate")
		logger.Warn().Int("remaining", limiter.Remaining()).Msg("Call denied by rate limiter")
		return failureResult(cfg.Model, "rate limit exceeded, try again later")
	}

	if allowed, reason := tracker.CanMakeCall(); !allowed {
		observability.RecordDenial("budget")
		logger.Warn().Str("reason", reason).Msg("Call denied by budget tracker")
		return failureResult(cfg.Model, reason)
	}

	if cfg.Anonymize {
		prompt = a.redactor.Anonymize(prompt)
		callContext = anonymizeContext(callContext, a.redactor.Anonymize, a.redactor.AnonymizeValue)
	}

	serialized, err := serializeContext(callContext)
	if err != nil {
		logger.Error().Err(err).Msg("Context serialization failed")
		return failureResult(cfg.Model, err.Error())
	}

	capabilities := opts.Capabilities
	if capabilities == nil {
		capabilities = p.DefaultCapabilities
	}
	if cfg.LocalOnly {
		capabilities = stripCloudCapabilities(capabilities)
	}

	maxTokens := cfg.Budget.MaxTokensPerCall
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}
	timeoutMS := cfg.TimeoutMS
	if opts.TimeoutMS > 0 {
		timeoutMS = opts.TimeoutMS
	}

	request := Request{
		Prompt:       prompt,
		Context:      serialized,
		Persona:      p,
		Model:        model,
		MaxTokens:    maxTokens,
		Temperature:  opts.Temperature,
		Capabilities: capabilities,
		OutputSchema: opts.OutputSchema,
	}

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMS)*time.Millisecond)
	defer cancel()

	type outcome struct {
		result *Result
		err    error
	}

	// Buffered so the abandoned goroutine can always deliver and exit.
	ch := make(chan outcome, 1)
	go func() {
		res, err := provider.Complete(callCtx, request)
		ch <- outcome{result: res, err: err}
	}()

	var result *Result
	select {
	case out := <-ch:
		if out.err != nil {
			observability.RecordCall(string(p.Name), time.Since(started), false)
			logger.Error().Err(out.err).Msg("Provider call failed")
			a.journalBestEffort(callID, model, p, false, 0, 0, time.Since(started))
			return failureResult(cfg.Model, out.err.Error())
		}
		result = out.result
	case <-callCtx.Done():
		// The in-flight call is abandoned. Usage recording lives on the
		// success arm above, so a late result cannot mutate budget or rate
		// state.
		observability.RecordCall(string(p.Name), time.Since(started), false)
		logger.Error().Int("timeout_ms", timeoutMS).Msg("Provider call timed out")
		a.journalBestEffort(callID, model, p, false, 0, 0, time.Since(started))
		return failureResult(cfg.Model, fmt.Sprintf("provider call timed out after %dms", timeoutMS))
	}

	cost := budget.CostFor(result.Metadata.Model, result.Metadata.TokensUsed)
	tracker.RecordUsage(result.Metadata.TokensUsed, cost)

	observability.RecordCall(string(p.Name), time.Since(started), result.Success)
	observability.RecordUsage(result.Metadata.TokensUsed, cost)
	stats := tracker.Stats()
	observability.SetBudgetRemaining(stats.CallsRemaining, stats.CostRemainingUSD)

	a.journalBestEffort(callID, result.Metadata.Model, p, result.Success,
		result.Metadata.TokensUsed, cost, time.Since(started))

	logger.Info().
		Bool("success", result.Success).
		Int("tokens", result.Metadata.TokensUsed).
		Float64("cost_usd", cost).
		Int64("latency_ms", result.Metadata.LatencyMS).
		Msg("Call completed")

	return result
}

// ExecuteAsync runs the same code path in a goroutine and discards the
// result except for a log line. Nothing is awaiting it, so panics and
// failures are swallowed here.
func (a *Agent) ExecuteAsync(ctx context.Context, prompt string, callContext any, opts *CallOptions) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithoutCancel(ctx)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				a.logger.Error().Interface("panic", r).Msg("Async call panicked")
			}
		}()

		result := a.Execute(ctx, prompt, callContext, opts)
		a.logger.Info().
			Bool("success", result.Success).
			Str("summary", result.Summary).
			Msg("Async call completed")
	}()
}

// Reconfigure merges the update over the current configuration and swaps in
// a fresh limiter and tracker sized to the new limits. In-flight counters
// reset on every update; that is the documented behavior, not a bug.
func (a *Agent) Reconfigure(u Update) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	next := a.cfg
	if u.Provider != nil {
		next.Provider = *u.Provider
	}
	if u.APIKey != nil {
		next.APIKey = *u.APIKey
	}
	if u.Model != nil {
		next.Model = *u.Model
	}
	if u.Persona != nil {
		next.Persona = *u.Persona
	}
	if u.Mode != nil {
		next.Mode = *u.Mode
	}
	if u.TimeoutMS != nil {
		next.TimeoutMS = *u.TimeoutMS
	}
	if u.Anonymize != nil {
		next.Anonymize = *u.Anonymize
	}
	if u.LocalOnly != nil {
		next.LocalOnly = *u.LocalOnly
	}
	if u.DryRun != nil {
		next.DryRun = *u.DryRun
	}
	if u.Budget != nil {
		if u.Budget.MaxCallsPerDay != nil {
			next.Budget.MaxCallsPerDay = *u.Budget.MaxCallsPerDay
		}
		if u.Budget.CostCapDailyUSD != nil {
			next.Budget.CostCapDailyUSD = *u.Budget.CostCapDailyUSD
		}
		if u.Budget.MaxTokensPerCall != nil {
			next.Budget.MaxTokensPerCall = *u.Budget.MaxTokensPerCall
		}
	}

	if err := next.Validate(); err != nil {
		return fmt.Errorf("invalid configuration update: %w", err)
	}

	if next.Provider != a.cfg.Provider || next.APIKey != a.cfg.APIKey {
		provider, err := a.factory.NewProvider(next.Provider, next.APIKey)
		if err != nil {
			return fmt.Errorf("failed to create provider: %w", err)
		}
		a.provider = provider
	}

	a.cfg = next
	a.limiter = ratelimit.NewWithClock(next.Budget.MaxCallsPerDay, a.clock)
	a.tracker = budget.NewTrackerWithClock(budgetConfig(next), a.clock)

	a.logger.Info().Msg("Configuration updated, admission counters reset")
	return nil
}

// SetConfig replaces the whole configuration, with the same counter-reset
// semantics as Reconfigure.
func (a *Agent) SetConfig(cfg config.Config) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Provider != a.cfg.Provider || cfg.APIKey != a.cfg.APIKey {
		provider, err := a.factory.NewProvider(cfg.Provider, cfg.APIKey)
		if err != nil {
			return fmt.Errorf("failed to create provider: %w", err)
		}
		a.provider = provider
	}

	a.cfg = cfg
	a.limiter = ratelimit.NewWithClock(cfg.Budget.MaxCallsPerDay, a.clock)
	a.tracker = budget.NewTrackerWithClock(budgetConfig(cfg), a.clock)

	a.logger.Info().Msg("Configuration replaced, admission counters reset")
	return nil
}

// Config returns a copy of the current configuration. Mutating it does not
// affect the agent.
func (a *Agent) Config() config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// EffectiveMode resolves the execution mode for a call: the per-call option
// when set, the configured default otherwise. Callers route through Execute
// or ExecuteAsync based on the answer; the pipeline itself is mode-agnostic.
func (a *Agent) EffectiveMode(opts *CallOptions) string {
	if opts != nil && opts.Mode != "" {
		return opts.Mode
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg.Mode
}

// BudgetStats reports today's usage from the budget tracker.
func (a *Agent) BudgetStats() budget.Stats {
	a.mu.RLock()
	tracker := a.tracker
	a.mu.RUnlock()
	return tracker.Stats()
}

// RateRemaining reports whole tokens left in the admission bucket.
func (a *Agent) RateRemaining() int {
	a.mu.RLock()
	limiter := a.limiter
	a.mu.RUnlock()
	return limiter.Remaining()
}

func (a *Agent) journalBestEffort(callID, model string, p persona.Persona, success bool, tokens int, cost float64, latency time.Duration) {
	if a.journal == nil {
		return
	}
	err := a.journal.Record(usagelog.Entry{
		ID:        callID,
		Timestamp: a.clock(),
		Model:     model,
		Persona:   string(p.Name),
		Success:   success,
		Tokens:    tokens,
		CostUSD:   cost,
		LatencyMS: latency.Milliseconds(),
	})
	if err != nil {
		a.logger.Warn().Err(err).Msg("Failed to journal call")
	}
}

func budgetConfig(cfg config.Config) budget.Config {
	return budget.Config{
		MaxCallsPerDay:  cfg.Budget.MaxCallsPerDay,
		CostCapDailyUSD: cfg.Budget.CostCapDailyUSD,
	}
}

// failureResult builds the uniform failure shape: the message as summary and
// zeroed metadata. No real call metadata exists on a failure path, so the
// metadata reports the configured default model regardless of any per-call
// override.
func failureResult(model, summary string) *Result {
	return &Result{
		Success:  false,
		Summary:  summary,
		Data:     map[string]any{},
		Actions:  []string{},
		Metadata: zeroMetadata(model),
	}
}

func zeroMetadata(model string) Metadata {
	return Metadata{
		Model:     model,
		ToolCalls: []ToolCallRecord{},
	}
}

func stripCloudCapabilities(capabilities []string) []string {
	kept := make([]string, 0, len(capabilities))
	for _, c := range capabilities {
		if !cloudCapabilities[c] {
			kept = append(kept, c)
		}
	}
	return kept
}

// staticFactory always hands back the same provider instance.
type staticFactory struct {
	provider Provider
}

func (f staticFactory) NewProvider(name, apiKey string) (Provider, error) {
	return f.provider, nil
}
