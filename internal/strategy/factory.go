package strategy

import (
	"errors"
)

// Factory errors
var (
	ErrInvalidObserveWindow   = errors.New("SCALP requires ObserveEndMinute > 0")
	ErrInvalidEntryWindow     = errors.New("SCALP requires EntryStartMinute < EntryEndMinute")
	ErrInvalidDeadline        = errors.New("SCALP requires DeadlineMinute >= EntryEndMinute")
	ErrInvalidScalpTargets    = errors.New("SCALP requires ProfitTargetPct > 0 and LossTargetPct < 0")
	ErrInvalidSwingThresholds = errors.New("SWING requires StrongProfit > MildProfit > MildLoss > StopLoss")
)

// FromConfig builds the variant Set.
// Validates boundaries and thresholds, returning the first violation.
func FromConfig(scalp ScalpConfig, swing SwingConfig) (*Set, error) {
	if err := validateScalpConfig(scalp); err != nil {
		return nil, err
	}
	if err := validateSwingConfig(swing); err != nil {
		return nil, err
	}

	return &Set{
		Scalp: NewScalpStrategy(scalp),
		Swing: NewSwingStrategy(swing),
	}, nil
}

func validateScalpConfig(cfg ScalpConfig) error {
	if cfg.ObserveEndMinute <= 0 {
		return ErrInvalidObserveWindow
	}
	if cfg.EntryStartMinute < 0 || cfg.EntryStartMinute >= cfg.EntryEndMinute {
		return ErrInvalidEntryWindow
	}
	if cfg.DeadlineMinute < cfg.EntryEndMinute {
		return ErrInvalidDeadline
	}
	if cfg.ProfitTargetPct <= 0 || cfg.LossTargetPct >= 0 {
		return ErrInvalidScalpTargets
	}
	return nil
}

func validateSwingConfig(cfg SwingConfig) error {
	if !(cfg.StrongProfitPct > cfg.MildProfitPct &&
		cfg.MildProfitPct > cfg.MildLossPct &&
		cfg.MildLossPct > cfg.StopLossPct) {
		return ErrInvalidSwingThresholds
	}
	return nil
}
