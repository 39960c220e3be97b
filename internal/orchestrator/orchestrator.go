// Package orchestrator wires stores, the simulation runner and reporting together.
// It coordinates: seeding → simulation → metrics → report
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"opening-trade-lab/internal/config"
	"opening-trade-lab/internal/fixtures"
	"opening-trade-lab/internal/metrics"
	"opening-trade-lab/internal/observability"
	"opening-trade-lab/internal/reporting"
	"opening-trade-lab/internal/simulation"
	"opening-trade-lab/internal/verification"
)

// ErrNoDates is returned when no range is given and no candidate dates exist.
var ErrNoDates = errors.New("no candidate dates to simulate")

// Orchestrator coordinates a full run over one set of stores.
type Orchestrator struct {
	stores   *Stores
	cfg      *config.Config
	logger   zerolog.Logger
	metrics  *observability.Metrics
	observer simulation.Observer
	now      func() time.Time
}

// Options for creating an Orchestrator.
type Options struct {
	Stores   *Stores
	Config   *config.Config
	Logger   *zerolog.Logger
	Metrics  *observability.Metrics
	Observer simulation.Observer // optional, receives day events
}

// New creates a new Orchestrator. Nil stores default to memory, nil config to Default().
func New(opts Options) *Orchestrator {
	stores := opts.Stores
	if stores == nil {
		stores = MemoryStores()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Orchestrator{
		stores:   stores,
		cfg:      cfg,
		logger:   logger.With().Str("component", "orchestrator").Logger(),
		metrics:  opts.Metrics,
		observer: opts.Observer,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets the clock used to stamp reports.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// Stores returns the underlying stores.
func (o *Orchestrator) Stores() *Stores {
	return o.stores
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	Seeded     fixtures.SeedStats
	Simulation *simulation.Result
	Report     *reporting.Document // nil when the run produced no results
}

// Seed loads a dataset into the candidate and candle stores.
// Days already present are skipped.
func (o *Orchestrator) Seed(ctx context.Context, ds *fixtures.Dataset) (fixtures.SeedStats, error) {
	seeder := fixtures.NewSeeder(fixtures.SeederOptions{
		CandidateStore: o.stores.Candidates,
		CandleStore:    o.stores.Candles,
		SkipExisting:   true,
		Logger:         &o.logger,
	})
	return seeder.Seed(ctx, ds)
}

// Run executes the pipeline over [from, to].
// Phases:
//  1. Seed the dataset, if any
//  2. Resolve the range (zero from/to: first/last candidate date)
//  3. Simulate every day
//  4. Aggregate statistics into a report
func (o *Orchestrator) Run(ctx context.Context, ds *fixtures.Dataset, from, to time.Time) (*RunResult, error) {
	result := &RunResult{}

	// Phase 1: Seeding
	if ds != nil {
		stats, err := o.Seed(ctx, ds)
		if err != nil {
			return nil, fmt.Errorf("phase 1 (seed) failed: %w", err)
		}
		result.Seeded = stats
	}

	// Phase 2: Range
	from, to, err := o.resolveRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("phase 2 (range) failed: %w", err)
	}

	// Phase 3: Simulation
	runner, err := o.Runner()
	if err != nil {
		return nil, err
	}
	sim, err := runner.Run(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("phase 3 (simulation) failed: %w", err)
	}
	result.Simulation = sim

	// Phase 4: Report
	if len(sim.Results) > 0 {
		agg := o.Aggregator()
		report := agg.BuildReport(sim.Run, sim.Results, sim.Curve)
		result.Report = reporting.NewGenerator(o.stores.Runs, agg).WithClock(o.now).Wrap(report)
	}

	o.logger.Info().
		Str("run_id", sim.Run.RunID).
		Int("results", len(sim.Results)).
		Int("days", len(sim.Curve)).
		Msg("pipeline completed")
	return result, nil
}

// Runner builds a simulation runner over the orchestrator's stores.
func (o *Orchestrator) Runner() (*simulation.Runner, error) {
	return simulation.NewRunner(simulation.RunnerOptions{
		CandidateStore: o.stores.Candidates,
		CandleStore:    o.stores.Candles,
		ResultStore:    o.stores.Results,
		EquityStore:    o.stores.Equity,
		RunStore:       o.stores.Runs,
		Config:         o.cfg,
		Logger:         &o.logger,
		Metrics:        o.metrics,
		Observer:       o.observer,
	})
}

// Aggregator builds a metrics aggregator matching the configured selection and session.
func (o *Orchestrator) Aggregator() *metrics.Aggregator {
	agg := metrics.NewAggregator(o.stores.Results, o.stores.Equity, o.stores.Candidates)
	agg.Selection = o.cfg.Selection()
	agg.SessionOpen = o.cfg.SessionOpen()
	agg.SessionMinutes = o.cfg.Session.Minutes
	return agg
}

// Report generates the report of a stored run, or of the latest run when runID is empty.
func (o *Orchestrator) Report(ctx context.Context, runID string) (*reporting.Document, error) {
	return reporting.NewGenerator(o.stores.Runs, o.Aggregator()).WithClock(o.now).Generate(ctx, runID)
}

// Verify re-evaluates every stored result of runID and reports divergences.
// The verifying runner records no metrics and publishes no events.
func (o *Orchestrator) Verify(ctx context.Context, runID string) (*verification.VerificationReport, error) {
	runner, err := simulation.NewRunner(simulation.RunnerOptions{
		CandidateStore: o.stores.Candidates,
		CandleStore:    o.stores.Candles,
		Config:         o.cfg,
		Logger:         &o.logger,
	})
	if err != nil {
		return nil, err
	}
	return verification.NewReplayVerifier(verification.ReplayVerifierOptions{
		Runner:         runner,
		RunStore:       o.stores.Runs,
		ResultStore:    o.stores.Results,
		CandidateStore: o.stores.Candidates,
		CandleStore:    o.stores.Candles,
	}).VerifyRun(ctx, runID)
}

// resolveRange fills a zero bound with the first or last candidate date.
func (o *Orchestrator) resolveRange(ctx context.Context, from, to time.Time) (time.Time, time.Time, error) {
	if !from.IsZero() && !to.IsZero() {
		return from, to, nil
	}

	lo := from
	if lo.IsZero() {
		lo = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	hi := to
	if hi.IsZero() {
		hi = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	}
	dates, err := o.stores.Candidates.ListDates(ctx, lo, hi)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("list dates: %w", err)
	}
	if len(dates) == 0 {
		return time.Time{}, time.Time{}, ErrNoDates
	}
	if from.IsZero() {
		from = dates[0]
	}
	if to.IsZero() {
		to = dates[len(dates)-1]
	}
	return from, to, nil
}
