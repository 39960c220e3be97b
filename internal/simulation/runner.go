// Package simulation drives the per-day evaluation of candidates: entry gate,
// threshold scenarios and intraday variants, then compounds the equity curve.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"opening-trade-lab/internal/config"
	"opening-trade-lab/internal/domain"
	"opening-trade-lab/internal/entry"
	"opening-trade-lab/internal/idhash"
	"opening-trade-lab/internal/metrics"
	"opening-trade-lab/internal/observability"
	"opening-trade-lab/internal/outcome"
	"opening-trade-lab/internal/storage"
	"opening-trade-lab/internal/strategy"
)

// Runner errors
var (
	ErrMissingStore  = errors.New("runner requires candidate and candle stores")
	ErrMissingConfig = errors.New("runner requires a config")
	ErrInvalidRange  = errors.New("run range end precedes start")
)

// DayEvent is published after every finished trading day.
type DayEvent struct {
	RunID       string              `json:"run_id"`
	Date        time.Time           `json:"date"`
	Instruments int                 `json:"instruments"`
	OK          int                 `json:"ok"`
	NoData      int                 `json:"no_data"`
	Failed      int                 `json:"failed"`
	Actual      int                 `json:"actual"`
	Virtual     int                 `json:"virtual"`
	Point       *domain.EquityPoint `json:"point,omitempty"` // nil when the day had no tradable instrument
	Capital     float64             `json:"capital"`
}

// Observer receives day events. Implementations must not block.
type Observer interface {
	PublishDay(ev DayEvent)
}

// Result is the output of a complete run.
type Result struct {
	Run     *domain.Run
	Results []*domain.InstrumentResult
	Curve   []*domain.EquityPoint
}

// RunnerOptions contains configuration for creating a Runner.
// ResultStore, EquityStore, RunStore, Metrics and Observer are optional.
type RunnerOptions struct {
	CandidateStore storage.CandidateStore
	CandleStore    storage.CandleStore
	ResultStore    storage.ResultStore
	EquityStore    storage.EquityStore
	RunStore       storage.RunStore
	Config         *config.Config
	Logger         *zerolog.Logger
	Metrics        *observability.Metrics
	Observer       Observer
}

// Runner executes simulations over stored candidates and candles.
type Runner struct {
	candidateStore storage.CandidateStore
	candleStore    storage.CandleStore
	resultStore    storage.ResultStore
	equityStore    storage.EquityStore
	runStore       storage.RunStore

	cfg        *config.Config
	gate       *entry.Gate
	classifier *outcome.Classifier
	variants   *strategy.Set
	selection  metrics.Selection
	configHash string

	logger   zerolog.Logger
	metrics  *observability.Metrics
	observer Observer

	now func() time.Time
}

// NewRunner creates a simulation runner. The config is validated once here.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.CandidateStore == nil || opts.CandleStore == nil {
		return nil, ErrMissingStore
	}
	if opts.Config == nil {
		return nil, ErrMissingConfig
	}
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	variants, err := strategy.FromConfig(cfg.ScalpConfig(), cfg.Swing)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "runner").Logger()
	}

	return &Runner{
		candidateStore: opts.CandidateStore,
		candleStore:    opts.CandleStore,
		resultStore:    opts.ResultStore,
		equityStore:    opts.EquityStore,
		runStore:       opts.RunStore,
		cfg:            cfg,
		gate:           entry.NewGate(cfg.GateConfig()),
		classifier:     outcome.NewClassifier(cfg.Rounding),
		variants:       variants,
		selection:      cfg.Selection(),
		configHash:     idhash.ComputeConfigHash(cfg.Canonical()),
		logger:         logger,
		metrics:        opts.Metrics,
		observer:       opts.Observer,
		now:            time.Now,
	}, nil
}

// ConfigHash returns the hash of the engine configuration.
func (r *Runner) ConfigHash() string {
	return r.configHash
}

// RunID returns the deterministic id of a run over [from, to].
func (r *Runner) RunID(from, to time.Time) string {
	return idhash.ComputeRunID(domain.TradingDate(from), domain.TradingDate(to), r.cfg.Equity.InitialCapital, r.configHash)
}

// EvaluateInstrument runs every classifier over one instrument's series.
// Steps:
//  1. Entry gate at the checkpoint minute
//  2. Primary scenario, routed into actual or virtual
//  3. Comparison scenarios
//  4. Scalp and swing variants
//
// ErrNoData yields status no_data, any other failure yields status failed.
// Errors never escape, so one instrument cannot abort its siblings.
func (r *Runner) EvaluateInstrument(ctx context.Context, c *domain.Candidate, series domain.CandleSeries) *domain.InstrumentResult {
	res := newResult(c)
	defer r.recordInstrument(res)

	if err := ctx.Err(); err != nil {
		return fail(res, err)
	}

	// 1. Entry gate
	decision := r.gate.Evaluate(series, c.BaselineVolume)
	res.Entry = decision
	if len(series) == 0 {
		res.Status = domain.ResultStatusNoData
		return res
	}

	// 2. Primary scenario
	primary, err := r.classifier.Classify(series, decision.EntryPrice, decision.EntryTime, r.cfg.Primary)
	if err != nil {
		return fail(res, err)
	}
	routed := entry.Route(decision, primary)
	res.Primary = &routed

	// 3. Comparison scenarios
	res.Scenarios, err = r.classifier.ClassifyAll(series, decision.EntryPrice, decision.EntryTime, r.cfg.Scenarios)
	if err != nil {
		return fail(res, err)
	}

	// 4. Variants, each failing on its own
	variants, err := r.variants.Evaluate(series, decision.EntryPrice)
	if err != nil {
		return fail(res, err)
	}
	res.Scalp, res.Swing = variants.Scalp, variants.Swing
	if variants.ScalpErr != nil {
		res.ScalpError = variants.ScalpErr.Error()
	}
	if variants.SwingErr != nil {
		res.SwingError = variants.SwingErr.Error()
	}

	return res
}

func newResult(c *domain.Candidate) *domain.InstrumentResult {
	return &domain.InstrumentResult{
		Date:   domain.TradingDate(c.Date),
		Code:   c.Code,
		Name:   c.Name,
		Score:  c.Score,
		Status: domain.ResultStatusOK,
	}
}

func fail(res *domain.InstrumentResult, err error) *domain.InstrumentResult {
	if errors.Is(err, domain.ErrNoData) {
		res.Status = domain.ResultStatusNoData
		return res
	}
	res.Status = domain.ResultStatusFailed
	res.Error = err.Error()
	return res
}

func (r *Runner) recordInstrument(res *domain.InstrumentResult) {
	var bucket, firstHit, scalpState string
	if res.Primary != nil && res.Primary.Outcome != nil {
		bucket = string(res.Primary.Bucket)
		firstHit = string(res.Primary.Outcome.FirstHit)
	}
	if res.Scalp != nil {
		scalpState = string(res.Scalp.State)
	}
	r.metrics.RecordInstrument(string(res.Status), bucket, firstHit, scalpState)

	if res.Status == domain.ResultStatusFailed {
		r.logger.Warn().
			Str("date", res.Date.Format(domain.DateLayout)).
			Str("code", res.Code).
			Str("error", res.Error).
			Msg("instrument evaluation failed")
	}
	if res.ScalpError != "" || res.SwingError != "" {
		r.logger.Warn().
			Str("date", res.Date.Format(domain.DateLayout)).
			Str("code", res.Code).
			Str("scalp_error", res.ScalpError).
			Str("swing_error", res.SwingError).
			Msg("variant evaluation failed")
	}
}

// RunDay evaluates every candidate of one trading day.
// Instruments are evaluated in parallel, bounded by runner.parallelism.
// Results are ordered by code. A candidate-list error aborts the day; a candle
// load error fails only that instrument.
func (r *Runner) RunDay(ctx context.Context, runID string, date time.Time) ([]*domain.InstrumentResult, error) {
	date = domain.TradingDate(date)

	candidates, err := r.candidateStore.GetByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("load candidates %s: %w", date.Format(domain.DateLayout), err)
	}

	results := make([]*domain.InstrumentResult, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Runner.Parallelism)

	for i, c := range candidates {
		g.Go(func() error {
			var res *domain.InstrumentResult
			series, err := r.candleStore.GetSeries(gctx, date, c.Code)
			if err != nil {
				res = fail(newResult(c), fmt.Errorf("load candles: %w", err))
				r.recordInstrument(res)
			} else {
				res = r.EvaluateInstrument(gctx, c, series)
			}
			res.RunID = runID
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Code < results[j].Code
	})
	return results, nil
}

// Run simulates every candidate date within [from, to].
// Steps:
//  1. Derive the deterministic run id and register or resume the run
//  2. Per date ascending: RunDay, persist results, record progress, publish a DayEvent
//  3. Persist the compounded equity curve and finish the run
//
// A completed run is returned from storage without recomputation.
// Context cancellation stops before the next day and marks the run failed.
func (r *Runner) Run(ctx context.Context, from, to time.Time) (*Result, error) {
	from, to = domain.TradingDate(from), domain.TradingDate(to)
	if to.Before(from) {
		return nil, ErrInvalidRange
	}
	started := r.now()

	// 1. Register or resume
	run, prior, err := r.openRun(ctx, from, to)
	if err != nil {
		return nil, err
	}
	logger := r.logger.With().Str("run_id", run.RunID).Logger()

	if run.Status == domain.RunStatusCompleted {
		logger.Info().Msg("run already completed, loading stored results")
		return r.loadCompleted(ctx, run, prior)
	}

	dates, err := r.candidateStore.ListDates(ctx, from, to)
	if err != nil {
		return nil, r.finish(ctx, run, started, fmt.Errorf("list dates: %w", err))
	}

	all := prior
	var curve []*domain.EquityPoint

	// 2. Days
	for _, date := range dates {
		if run.LastDate != nil && !date.After(*run.LastDate) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, r.finish(context.WithoutCancel(ctx), run, started, err)
		}

		dayStart := r.now()
		results, err := r.RunDay(ctx, run.RunID, date)
		if err != nil {
			return nil, r.finish(context.WithoutCancel(ctx), run, started, err)
		}

		if r.resultStore != nil && len(results) > 0 {
			if results, err = r.persistDay(ctx, run.RunID, date, results); err != nil {
				return nil, r.finish(context.WithoutCancel(ctx), run, started, err)
			}
		}
		if r.runStore != nil {
			if err := r.runStore.SetProgress(ctx, run.RunID, date); err != nil {
				return nil, r.finish(context.WithoutCancel(ctx), run, started, fmt.Errorf("record progress: %w", err))
			}
		}

		all = append(all, results...)
		curve, err = metrics.BuildEquityCurve(metrics.CollectDayReturns(all, r.selection), run.InitialCapital)
		if err != nil {
			return nil, r.finish(context.WithoutCancel(ctx), run, started, err)
		}

		ev := dayEvent(run, date, results, curve)
		r.metrics.RecordDay(r.now().Sub(dayStart).Seconds())
		r.metrics.RecordCapital(ev.Capital)
		if r.observer != nil {
			r.observer.PublishDay(ev)
		}

		logger.Info().
			Str("date", date.Format(domain.DateLayout)).
			Int("instruments", ev.Instruments).
			Int("actual", ev.Actual).
			Int("failed", ev.Failed).
			Float64("capital", ev.Capital).
			Msg("day processed")
	}

	// 3. Equity curve
	curve, err = metrics.BuildEquityCurve(metrics.CollectDayReturns(all, r.selection), run.InitialCapital)
	if err != nil {
		return nil, r.finish(ctx, run, started, err)
	}
	if r.equityStore != nil && len(curve) > 0 {
		if err := r.equityStore.InsertBulk(ctx, run.RunID, curve); err != nil {
			return nil, r.finish(ctx, run, started, fmt.Errorf("persist equity: %w", err))
		}
	}
	if err := r.finish(ctx, run, started, nil); err != nil {
		return nil, err
	}

	return &Result{Run: run, Results: all, Curve: curve}, nil
}

// persistDay stores a day's results. A day written by an interrupted attempt
// whose progress was never recorded is read back instead.
func (r *Runner) persistDay(ctx context.Context, runID string, date time.Time, results []*domain.InstrumentResult) ([]*domain.InstrumentResult, error) {
	err := r.resultStore.InsertBulk(ctx, results)
	if errors.Is(err, storage.ErrDuplicateKey) {
		stored, gerr := r.resultStore.GetByRunDate(ctx, runID, date)
		if gerr != nil {
			return nil, fmt.Errorf("reload results: %w", gerr)
		}
		return stored, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persist results: %w", err)
	}
	return results, nil
}

// openRun registers a new run or loads an existing one with its stored results.
func (r *Runner) openRun(ctx context.Context, from, to time.Time) (*domain.Run, []*domain.InstrumentResult, error) {
	run := &domain.Run{
		RunID:          r.RunID(from, to),
		From:           from,
		To:             to,
		InitialCapital: r.cfg.Equity.InitialCapital,
		ConfigHash:     r.configHash,
		Status:         domain.RunStatusRunning,
		CreatedAt:      r.now().UnixMilli(),
	}
	if r.runStore == nil {
		return run, nil, nil
	}

	existing, err := r.runStore.Get(ctx, run.RunID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		if err := r.runStore.Insert(ctx, run); err != nil {
			return nil, nil, fmt.Errorf("register run: %w", err)
		}
		return run, nil, nil
	case err != nil:
		return nil, nil, fmt.Errorf("load run: %w", err)
	}

	var prior []*domain.InstrumentResult
	if r.resultStore != nil && existing.LastDate != nil {
		prior, err = r.resultStore.GetByRun(ctx, existing.RunID)
		if err != nil {
			return nil, nil, fmt.Errorf("load prior results: %w", err)
		}
	}
	if existing.Status != domain.RunStatusCompleted {
		existing.Status = domain.RunStatusRunning
		r.logger.Info().Str("run_id", existing.RunID).Msg("resuming run")
	}
	return existing, prior, nil
}

func (r *Runner) loadCompleted(ctx context.Context, run *domain.Run, results []*domain.InstrumentResult) (*Result, error) {
	var curve []*domain.EquityPoint
	var err error
	if r.equityStore != nil {
		curve, err = r.equityStore.GetByRun(ctx, run.RunID)
		if err != nil {
			return nil, fmt.Errorf("load equity: %w", err)
		}
	}
	if len(curve) == 0 {
		curve, err = metrics.BuildEquityCurve(metrics.CollectDayReturns(results, r.selection), run.InitialCapital)
		if err != nil {
			return nil, err
		}
	}
	return &Result{Run: run, Results: results, Curve: curve}, nil
}

// finish records the run's terminal state and returns runErr.
func (r *Runner) finish(ctx context.Context, run *domain.Run, started time.Time, runErr error) error {
	status := domain.RunStatusCompleted
	if runErr != nil {
		status = domain.RunStatusFailed
	}
	finished := r.now()
	finishedMs := finished.UnixMilli()
	run.Status = status
	run.FinishedAt = &finishedMs

	r.metrics.RecordRun(string(status), finished.Sub(started).Seconds(), finished.Unix())

	if r.runStore != nil {
		if err := r.runStore.Finish(ctx, run.RunID, status, finishedMs); err != nil {
			if runErr != nil {
				return errors.Join(runErr, err)
			}
			return fmt.Errorf("finish run: %w", err)
		}
	}
	if runErr != nil {
		r.logger.Error().Err(runErr).Str("run_id", run.RunID).Msg("run failed")
	}
	return runErr
}

func dayEvent(run *domain.Run, date time.Time, results []*domain.InstrumentResult, curve []*domain.EquityPoint) DayEvent {
	ev := DayEvent{
		RunID:       run.RunID,
		Date:        date,
		Instruments: len(results),
		Capital:     run.InitialCapital,
	}
	for _, res := range results {
		switch res.Status {
		case domain.ResultStatusOK:
			ev.OK++
		case domain.ResultStatusNoData:
			ev.NoData++
		default:
			ev.Failed++
		}
		if res.Usable() {
			if res.Primary.IsActual() {
				ev.Actual++
			} else {
				ev.Virtual++
			}
		}
	}
	if n := len(curve); n > 0 {
		last := curve[n-1]
		ev.Capital = last.CapitalAfter
		if last.Date.Equal(date) {
			ev.Point = last
		}
	}
	return ev
}
