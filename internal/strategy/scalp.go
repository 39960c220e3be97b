package strategy

import (
	"fmt"

	"opening-trade-lab/internal/domain"
	"opening-trade-lab/internal/lookup"
)

// ScalpConfig holds the scalp phase boundaries (minutes after open) and targets.
type ScalpConfig struct {
	SessionOpen      domain.Clock // session open wall clock
	ObserveEndMinute int          // observe window is [0, ObserveEndMinute)
	EntryStartMinute int          // entry window is [EntryStartMinute, EntryEndMinute)
	EntryEndMinute   int          // exclusive end of the entry window
	DeadlineMinute   int          // holding ends at this minute
	MinMomentumPct   float64      // momentum needed for direction up
	ProfitTargetPct  float64      // exit target above entry
	LossTargetPct    float64      // exit target below entry
}

// DefaultScalpConfig returns observe 3m, entry [3,5), deadline 30m, 0.5% momentum, +2%/-1%.
func DefaultScalpConfig() ScalpConfig {
	return ScalpConfig{
		SessionOpen:      domain.NewClock(9, 0, 0),
		ObserveEndMinute: 3,
		EntryStartMinute: 3,
		EntryEndMinute:   5,
		DeadlineMinute:   30,
		MinMomentumPct:   0.5,
		ProfitTargetPct:  2.0,
		LossTargetPct:    -1.0,
	}
}

// ScalpStrategy is the observe / decide / exit-or-timeout state machine.
type ScalpStrategy struct {
	Config ScalpConfig
}

// NewScalpStrategy creates a new ScalpStrategy.
func NewScalpStrategy(cfg ScalpConfig) *ScalpStrategy {
	return &ScalpStrategy{Config: cfg}
}

// ID returns the strategy identifier including parameters.
func (s *ScalpStrategy) ID() string {
	c := s.Config
	return fmt.Sprintf("SCALP_obs%d_entry%d-%d_dl%d_mom%.2f_tp%.2f_sl%.2f",
		c.ObserveEndMinute, c.EntryStartMinute, c.EntryEndMinute, c.DeadlineMinute,
		c.MinMomentumPct, c.ProfitTargetPct, c.LossTargetPct)
}

// Evaluate runs the three phases over one day's series.
//   - observe: momentum from the first open to the last close in [0, ObserveEnd)
//   - decide: enter only on upward momentum, at the open of the first candle in the entry window
//   - hold: scan to the deadline, profit checked before loss, else time out
func (s *ScalpStrategy) Evaluate(series domain.CandleSeries) (*domain.ScalpResult, error) {
	if len(series) == 0 {
		return nil, domain.ErrNoData
	}
	cfg := s.Config

	res := &domain.ScalpResult{
		Direction: domain.DirectionFlat,
		State:     domain.ScalpStateNotEntered,
	}

	// observe
	window := lookup.Window(0, cfg.ObserveEndMinute, cfg.SessionOpen, series)
	if len(window) > 0 && window[0].Open > 0 {
		res.MomentumPct = domain.PctChange(window[0].Open, window.Last().Close)
	}
	switch {
	case res.MomentumPct >= cfg.MinMomentumPct:
		res.Direction = domain.DirectionUp
	case res.MomentumPct < 0:
		res.Direction = domain.DirectionDown
	}

	// decide
	res.ShouldEnter = res.Direction == domain.DirectionUp
	if !res.ShouldEnter {
		return res, nil
	}
	idx := lookup.IndexInMinuteRange(cfg.EntryStartMinute, cfg.EntryEndMinute, cfg.SessionOpen, series)
	if idx < 0 {
		return res, nil
	}
	entryPrice := series[idx].Open
	if entryPrice <= 0 {
		return nil, fmt.Errorf("%w: scalp entry %v", domain.ErrInvalidEntryPrice, entryPrice)
	}
	entryTime := series[idx].Time
	res.EntryPrice = &entryPrice
	res.EntryTime = &entryTime

	// hold
	profitPrice := entryPrice * (1 + cfg.ProfitTargetPct/100)
	lossPrice := entryPrice * (1 + cfg.LossTargetPct/100)

	for i := idx; i < len(series); i++ {
		c := series[i]
		if c.Time.MinuteOfSession(cfg.SessionOpen) >= cfg.DeadlineMinute {
			break
		}
		if c.High >= profitPrice {
			markExit(res, domain.ScalpExitProfit, cfg.ProfitTargetPct, c.Time)
			return res, nil
		}
		if c.Low <= lossPrice {
			markExit(res, domain.ScalpExitLoss, cfg.LossTargetPct, c.Time)
			return res, nil
		}
	}

	deadline := cfg.SessionOpen + domain.Clock(cfg.DeadlineMinute*60)
	last := series.Last()
	if j := lookup.IndexAtOrAfter(deadline, series[idx:]); j >= 0 {
		last = series[idx+j]
	}
	markExit(res, domain.ScalpExitTimeout, domain.PctChange(entryPrice, last.Close), last.Time)

	return res, nil
}

func markExit(res *domain.ScalpResult, how domain.ScalpExit, pct float64, at domain.Clock) {
	res.ExitResult = &how
	res.ExitPct = &pct
	res.ExitTime = &at
	switch how {
	case domain.ScalpExitProfit:
		res.State = domain.ScalpStateExitedProfit
	case domain.ScalpExitLoss:
		res.State = domain.ScalpStateExitedLoss
	default:
		res.State = domain.ScalpStateExitedTimeout
	}
}
