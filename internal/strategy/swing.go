package strategy

import (
	"fmt"

	"opening-trade-lab/internal/domain"
	"opening-trade-lab/internal/lookup"
)

// SwingConfig holds the four descending closing-pct thresholds.
type SwingConfig struct {
	StrongProfitPct float64 `json:"strong_profit_pct" mapstructure:"strong_profit_pct"` // >= strong_buy
	MildProfitPct   float64 `json:"mild_profit_pct" mapstructure:"mild_profit_pct"`     // >= hold
	MildLossPct     float64 `json:"mild_loss_pct" mapstructure:"mild_loss_pct"`         // >= watch
	StopLossPct     float64 `json:"stop_loss_pct" mapstructure:"stop_loss_pct"`         // >= warning, below is sell
}

// DefaultSwingConfig returns 3 / 0 / -2 / -3.
func DefaultSwingConfig() SwingConfig {
	return SwingConfig{
		StrongProfitPct: 3.0,
		MildProfitPct:   0.0,
		MildLossPct:     -2.0,
		StopLossPct:     -3.0,
	}
}

// SwingStrategy buckets the day's closing return into an action signal.
type SwingStrategy struct {
	Config SwingConfig
}

// NewSwingStrategy creates a new SwingStrategy.
func NewSwingStrategy(cfg SwingConfig) *SwingStrategy {
	return &SwingStrategy{Config: cfg}
}

// ID returns the strategy identifier including parameters.
func (s *SwingStrategy) ID() string {
	c := s.Config
	return fmt.Sprintf("SWING_%.2f_%.2f_%.2f_%.2f", c.StrongProfitPct, c.MildProfitPct, c.MildLossPct, c.StopLossPct)
}

// ClassifySignal maps a closing pct to its signal.
func (s *SwingStrategy) ClassifySignal(closingPct float64) domain.SwingSignal {
	c := s.Config
	switch {
	case closingPct >= c.StrongProfitPct:
		return domain.SwingStrongBuy
	case closingPct >= c.MildProfitPct:
		return domain.SwingHold
	case closingPct >= c.MildLossPct:
		return domain.SwingWatch
	case closingPct >= c.StopLossPct:
		return domain.SwingWarning
	default:
		return domain.SwingSell
	}
}

// Evaluate computes closing, day-high and day-low pct against entryPrice and the signal.
func (s *SwingStrategy) Evaluate(series domain.CandleSeries, entryPrice float64) (*domain.SwingResult, error) {
	if len(series) == 0 {
		return nil, domain.ErrNoData
	}
	if entryPrice <= 0 {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidEntryPrice, entryPrice)
	}

	high, low, err := lookup.Range(series)
	if err != nil {
		return nil, err
	}

	closingPct := domain.PctChange(entryPrice, series.Last().Close)
	return &domain.SwingResult{
		ClosingPct: closingPct,
		DayHighPct: domain.PctChange(entryPrice, high),
		DayLowPct:  domain.PctChange(entryPrice, low),
		Signal:     s.ClassifySignal(closingPct),
	}, nil
}
