package metrics

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"opening-trade-lab/internal/domain"
	"opening-trade-lab/internal/storage"
)

// ErrNoResults is returned when a run has no stored results.
var ErrNoResults = errors.New("no results available for aggregation")

// Report is the full statistics bundle of a run.
type Report struct {
	Run         *domain.Run           `json:"run"`
	Summary     *Summary              `json:"summary"`
	Curve       []*domain.EquityPoint `json:"equity_curve"`
	Trades      []Trade               `json:"-"`
	ByScore     []Bucket              `json:"by_score"`
	ByWeekday   []Bucket              `json:"by_weekday"`
	ByTimeOfDay []Bucket              `json:"by_time_of_day"`
	DataQuality []string              `json:"data_quality,omitempty"`
}

// Aggregator computes run reports from stored results and equity points.
type Aggregator struct {
	resultStore    storage.ResultStore
	equityStore    storage.EquityStore
	candidateStore storage.CandidateStore

	Selection      Selection
	SessionOpen    domain.Clock
	SessionMinutes int

	// MissingCandidates tracks results whose candidate row is gone (for data quality reporting).
	// Key: date/code, Value: count of results referencing it.
	MissingCandidates map[string]int
}

// NewAggregator creates a new metrics aggregator. candidateStore may be nil.
func NewAggregator(resultStore storage.ResultStore, equityStore storage.EquityStore, candidateStore storage.CandidateStore) *Aggregator {
	return &Aggregator{
		resultStore:       resultStore,
		equityStore:       equityStore,
		candidateStore:    candidateStore,
		Selection:         DefaultSelection(),
		SessionOpen:       domain.NewClock(9, 0, 0),
		SessionMinutes:    390,
		MissingCandidates: make(map[string]int),
	}
}

// ComputeReport loads a run's results and curve and computes every statistic.
// The stored curve is used when present; otherwise it is rebuilt from results.
// Returns ErrNoResults if the run has no results.
func (a *Aggregator) ComputeReport(ctx context.Context, run *domain.Run) (*Report, error) {
	results, err := a.resultStore.GetByRun(ctx, run.RunID)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrNoResults
	}

	if err := a.checkCandidates(ctx, results); err != nil {
		return nil, err
	}

	curve, err := a.equityStore.GetByRun(ctx, run.RunID)
	if err != nil {
		return nil, fmt.Errorf("load equity: %w", err)
	}
	if len(curve) == 0 {
		curve, err = BuildEquityCurve(CollectDayReturns(results, a.Selection), run.InitialCapital)
		if err != nil {
			return nil, err
		}
	}

	return a.BuildReport(run, results, curve), nil
}

// BuildReport computes every statistic from in-memory results and curve.
func (a *Aggregator) BuildReport(run *domain.Run, results []*domain.InstrumentResult, curve []*domain.EquityPoint) *Report {
	trades := SelectTrades(results, a.Selection)
	return &Report{
		Run:         run,
		Summary:     ComputeSummary(results, curve, run.InitialCapital, a.Selection),
		Curve:       curve,
		Trades:      trades,
		ByScore:     AnalyzeByScoreRange(trades),
		ByWeekday:   AnalyzeByWeekday(trades),
		ByTimeOfDay: AnalyzeByTimeOfDay(trades, a.SessionOpen, (a.SessionMinutes+29)/30),
		DataQuality: a.GetMissingCandidateErrors(),
	}
}

// checkCandidates records results whose candidate no longer exists.
func (a *Aggregator) checkCandidates(ctx context.Context, results []*domain.InstrumentResult) error {
	if a.candidateStore == nil {
		return nil
	}
	for _, r := range results {
		_, err := a.candidateStore.Get(ctx, r.Date, r.Code)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				a.MissingCandidates[r.Date.Format(domain.DateLayout)+"/"+r.Code]++
				continue
			}
			return err
		}
	}
	return nil
}

// GetMissingCandidateErrors returns data quality errors for missing candidates.
// Returns slice of error messages sorted by key for deterministic output.
func (a *Aggregator) GetMissingCandidateErrors() []string {
	if len(a.MissingCandidates) == 0 {
		return nil
	}

	keys := make([]string, 0, len(a.MissingCandidates))
	for k := range a.MissingCandidates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, len(keys))
	for i, k := range keys {
		msgs[i] = fmt.Sprintf("missing candidate %s referenced by %d result(s)", k, a.MissingCandidates[k])
	}
	return msgs
}
