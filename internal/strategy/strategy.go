// Package strategy holds the intraday variant classifiers evaluated alongside
// the primary threshold scan: an opening-momentum scalp and an end-of-day swing.
package strategy

import (
	"fmt"

	"opening-trade-lab/internal/domain"
)

// Set bundles the variant classifiers run for every instrument.
type Set struct {
	Scalp *ScalpStrategy
	Swing *SwingStrategy
}

// Results holds one instrument's variant outputs.
// A variant that failed has a nil result and its error set.
type Results struct {
	Scalp    *domain.ScalpResult
	Swing    *domain.SwingResult
	ScalpErr error
	SwingErr error
}

// Evaluate runs both variants over the same series.
// The variants are independent: a failure in one is recorded on its own field
// and does not stop the other. Only an empty series fails the call, with ErrNoData.
func (s *Set) Evaluate(series domain.CandleSeries, entryPrice float64) (*Results, error) {
	if len(series) == 0 {
		return nil, domain.ErrNoData
	}

	res := &Results{}
	var err error
	if res.Scalp, err = s.Scalp.Evaluate(series); err != nil {
		res.Scalp, res.ScalpErr = nil, fmt.Errorf("scalp: %w", err)
	}
	if res.Swing, err = s.Swing.Evaluate(series, entryPrice); err != nil {
		res.Swing, res.SwingErr = nil, fmt.Errorf("swing: %w", err)
	}
	return res, nil
}

// ID returns an identifier including both variants' parameters.
func (s *Set) ID() string {
	return s.Scalp.ID() + "+" + s.Swing.ID()
}
