// Package outcome classifies which of a scenario's profit and loss thresholds
// an intraday candle series strikes first.
package outcome

import (
	"fmt"

	"github.com/shopspring/decimal"

	"opening-trade-lab/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Classifier runs the first-hit threshold scan.
// The zero value floors nothing; use NewClassifier for the default rounding.
type Classifier struct {
	Rounding domain.PriceRounding
}

// NewClassifier creates a Classifier with the given target price rounding.
func NewClassifier(rounding domain.PriceRounding) *Classifier {
	return &Classifier{Rounding: rounding}
}

// TargetPrice returns entry * (100 + pct) / 100, floored to the configured tick
// when rounding is enabled.
func (c *Classifier) TargetPrice(entryPrice, pct float64) float64 {
	p := decimal.NewFromFloat(entryPrice).
		Mul(hundred.Add(decimal.NewFromFloat(pct))).
		Div(hundred)
	if c.Rounding.Floor {
		p = p.Shift(c.Rounding.Decimals).Floor().Shift(-c.Rounding.Decimals)
	}
	return p.InexactFloat64()
}

// Targets computes both threshold prices for a scenario.
func (c *Classifier) Targets(entryPrice float64, sc domain.Scenario) domain.TargetPrices {
	return domain.TargetPrices{
		Profit: c.TargetPrice(entryPrice, sc.ProfitTargetPct),
		Loss:   c.TargetPrice(entryPrice, sc.LossTargetPct),
	}
}

// Classify scans series from entryTime and records which threshold fires first.
//
// Algorithm:
//  1. Compute profit and loss target prices.
//  2. Skip candles before entryTime.
//  3. Per candle: update running extrema, check profit then loss.
//  4. Stop once both thresholds have fired.
//  5. Closing price and pct come from the last candle of the series.
func (c *Classifier) Classify(series domain.CandleSeries, entryPrice float64, entryTime domain.Clock, sc domain.Scenario) (*domain.Outcome, error) {
	if len(series) == 0 {
		return nil, domain.ErrNoData
	}
	if entryPrice <= 0 {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidEntryPrice, entryPrice)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	targets := c.Targets(entryPrice, sc)
	out := &domain.Outcome{
		ScenarioName: sc.Name,
		EntryPrice:   entryPrice,
		EntryTime:    entryTime,
		TargetPrices: targets,
		FirstHit:     domain.FirstHitNone,
	}

	var maxFav, maxAdv float64
	for _, candle := range series {
		if candle.Time < entryTime {
			continue
		}

		if pct := domain.PctChange(entryPrice, candle.High); pct > maxFav {
			maxFav = pct
		}
		if pct := domain.PctChange(entryPrice, candle.Low); pct < maxAdv {
			maxAdv = pct
		}

		t := candle.Time
		if out.ProfitHitTime == nil && candle.High >= targets.Profit {
			out.ProfitHitTime = &t
			if out.FirstHit == domain.FirstHitNone {
				out.FirstHit = domain.FirstHitProfit
				out.FirstHitTime = &t
				price := targets.Profit
				out.FirstHitPrice = &price
			}
		}
		if out.LossHitTime == nil && candle.Low <= targets.Loss {
			out.LossHitTime = &t
			if out.FirstHit == domain.FirstHitNone {
				out.FirstHit = domain.FirstHitLoss
				out.FirstHitTime = &t
				price := targets.Loss
				out.FirstHitPrice = &price
			}
		}

		if out.ProfitHitTime != nil && out.LossHitTime != nil {
			break
		}
	}

	out.MaxFavorablePct = maxFav
	out.MaxAdversePct = maxAdv
	out.ClosingPrice = series.Last().Close
	out.ClosingPct = domain.PctChange(entryPrice, out.ClosingPrice)

	return out, nil
}

// ClassifyAll runs Classify independently per scenario, preserving input order.
// The first failing scenario aborts the call.
func (c *Classifier) ClassifyAll(series domain.CandleSeries, entryPrice float64, entryTime domain.Clock, scenarios []domain.Scenario) ([]*domain.Outcome, error) {
	out := make([]*domain.Outcome, 0, len(scenarios))
	for _, sc := range scenarios {
		o, err := c.Classify(series, entryPrice, entryTime, sc)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
		out = append(out, o)
	}
	return out, nil
}
