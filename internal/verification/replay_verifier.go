package verification

import (
	"context"
	"errors"
	"fmt"

	"opening-trade-lab/internal/domain"
	"opening-trade-lab/internal/simulation"
	"opening-trade-lab/internal/storage"
)

var (
	// ErrRunNotFound is returned when the run ID doesn't exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrCandidateNotFound is returned when a result's candidate no longer exists.
	ErrCandidateNotFound = errors.New("candidate not found")

	// ErrConfigMismatch is returned when the run was produced under another configuration.
	ErrConfigMismatch = errors.New("run config hash differs from verifier config")
)

// ReplayVerifier re-evaluates stored results with a runner built from the run's configuration.
type ReplayVerifier struct {
	runner         *simulation.Runner
	runStore       storage.RunStore
	resultStore    storage.ResultStore
	candidateStore storage.CandidateStore
	candleStore    storage.CandleStore
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	Runner         *simulation.Runner
	RunStore       storage.RunStore
	ResultStore    storage.ResultStore
	CandidateStore storage.CandidateStore
	CandleStore    storage.CandleStore
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	return &ReplayVerifier{
		runner:         opts.Runner,
		runStore:       opts.RunStore,
		resultStore:    opts.ResultStore,
		candidateStore: opts.CandidateStore,
		candleStore:    opts.CandleStore,
	}
}

// VerifyResult re-evaluates one stored result and compares every field.
func (v *ReplayVerifier) VerifyResult(ctx context.Context, stored *domain.InstrumentResult) (*VerificationResult, error) {
	// 1. Load candidate
	candidate, err := v.candidateStore.Get(ctx, stored.Date, stored.Code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrCandidateNotFound
		}
		return nil, err
	}

	// 2. Load candles
	series, err := v.candleStore.GetSeries(ctx, stored.Date, stored.Code)
	if err != nil {
		return nil, err
	}

	// 3. Re-evaluate and compare
	replayed := v.runner.EvaluateInstrument(ctx, candidate, series)
	divergences := CompareResults(stored, replayed)

	return &VerificationResult{
		Date:        stored.Date.Format(domain.DateLayout),
		Code:        stored.Code,
		Match:       len(divergences) == 0,
		Divergences: divergences,
	}, nil
}

// VerifyRun verifies every stored result of a run.
// Per-result errors are recorded as divergences; only run-level failures are returned.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, runID string) (*VerificationReport, error) {
	run, err := v.runStore.Get(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	if run.ConfigHash != v.runner.ConfigHash() {
		return nil, fmt.Errorf("%w: run %s, verifier %s", ErrConfigMismatch, run.ConfigHash, v.runner.ConfigHash())
	}

	results, err := v.resultStore.GetByRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{
		RunID:        runID,
		TotalResults: len(results),
		Results:      make([]VerificationResult, 0, len(results)),
	}

	for _, stored := range results {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := v.VerifyResult(ctx, stored)
		if err != nil {
			report.Results = append(report.Results, VerificationResult{
				Date:  stored.Date.Format(domain.DateLayout),
				Code:  stored.Code,
				Match: false,
				Divergences: []FieldDivergence{
					{Field: "Error", Expected: nil, Actual: err.Error()},
				},
			})
			report.DivergentResults++
			continue
		}

		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedResults++
		} else {
			report.DivergentResults++
		}
	}

	return report, nil
}
