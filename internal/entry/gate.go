// Package entry decides whether an instrument is actually tradable at the
// opening checkpoint and routes threshold outcomes into actual or virtual buckets.
package entry

import (
	"errors"
	"fmt"

	"opening-trade-lab/internal/domain"
	"opening-trade-lab/internal/lookup"
)

// ErrInvalidGateConfig is returned by GateConfig.Validate.
var ErrInvalidGateConfig = errors.New("invalid gate config")

// GateConfig holds entry gate parameters.
type GateConfig struct {
	SessionOpen      domain.Clock // session open wall clock
	SessionMinutes   int          // session length used to pro-rate the baseline
	CheckpointMinute int          // entry checkpoint, minutes after open
	VolumeThreshold  float64      // minimum early/expected volume ratio
}

// DefaultGateConfig returns the 09:00 open, 390 minute session, minute 5 checkpoint and 0.5 ratio.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		SessionOpen:      domain.NewClock(9, 0, 0),
		SessionMinutes:   390,
		CheckpointMinute: 5,
		VolumeThreshold:  0.5,
	}
}

// Validate checks the config is usable.
func (c GateConfig) Validate() error {
	if c.SessionMinutes <= 0 {
		return fmt.Errorf("%w: session minutes must be positive", ErrInvalidGateConfig)
	}
	if c.CheckpointMinute < 1 || c.CheckpointMinute > c.SessionMinutes {
		return fmt.Errorf("%w: checkpoint minute %d outside [1, %d]", ErrInvalidGateConfig, c.CheckpointMinute, c.SessionMinutes)
	}
	if c.VolumeThreshold < 0 {
		return fmt.Errorf("%w: volume threshold must be non-negative", ErrInvalidGateConfig)
	}
	return nil
}

// Gate evaluates entry eligibility at the checkpoint minute.
type Gate struct {
	Config GateConfig
}

// NewGate creates a Gate.
func NewGate(cfg GateConfig) *Gate {
	return &Gate{Config: cfg}
}

// Evaluate produces the entry decision for one instrument's series.
// A zero baseline means unknown and never vetoes the entry.
func (g *Gate) Evaluate(series domain.CandleSeries, baselineVolume float64) *domain.EntryDecision {
	if len(series) == 0 {
		reason := domain.SkipReasonNoData
		return &domain.EntryDecision{
			GapOK:      true,
			SkipReason: &reason,
		}
	}

	cfg := g.Config
	k := cfg.CheckpointMinute

	entryCandle := series[0]
	if idx := lookup.IndexAtMinute(k, cfg.SessionOpen, series); idx >= 0 {
		entryCandle = series[idx]
	}

	d := &domain.EntryDecision{
		EntryPrice:       entryCandle.Open,
		EntryTime:        entryCandle.Time,
		EarlyVolume:      lookup.VolumeBefore(k, cfg.SessionOpen, series),
		VolumeSufficient: true,
		GapOK:            true,
	}

	if baselineVolume > 0 {
		d.ExpectedVolume = baselineVolume / float64(cfg.SessionMinutes) * float64(k)
		d.VolumeRatio = float64(d.EarlyVolume) / d.ExpectedVolume
		d.VolumeSufficient = d.VolumeRatio >= cfg.VolumeThreshold
	}

	d.ShouldBuy = d.VolumeSufficient && d.GapOK
	if !d.ShouldBuy {
		reason := fmt.Sprintf("insufficient early volume (ratio %.2f < %.2f)", d.VolumeRatio, cfg.VolumeThreshold)
		d.SkipReason = &reason
	}

	return d
}

// Route tags an outcome as actual when the decision allows buying, virtual otherwise.
func Route(decision *domain.EntryDecision, o *domain.Outcome) domain.RoutedOutcome {
	if decision != nil && decision.ShouldBuy {
		return domain.Actual(o)
	}
	return domain.Virtual(o)
}
