// Package verification re-evaluates stored instrument results from their
// candidate and candles and reports any field that diverges.
package verification

import (
	"fmt"
	"math"

	"opening-trade-lab/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string `json:"field"`
	Expected any    `json:"expected"` // stored value
	Actual   any    `json:"actual"`   // replayed value
}

// VerificationResult contains the result of verifying one instrument result.
type VerificationResult struct {
	Date        string            `json:"date"`
	Code        string            `json:"code"`
	Match       bool              `json:"match"`
	Divergences []FieldDivergence `json:"divergences,omitempty"`
}

// VerificationReport contains results for a whole run.
type VerificationReport struct {
	RunID            string               `json:"run_id"`
	TotalResults     int                  `json:"total_results"`
	MatchedResults   int                  `json:"matched_results"`
	DivergentResults int                  `json:"divergent_results"`
	Results          []VerificationResult `json:"results"`
}

// Match reports whether every result matched.
func (r *VerificationReport) Match() bool {
	return r.DivergentResults == 0
}

type comparer struct {
	prefix string
	out    []FieldDivergence
}

func (c *comparer) add(field string, expected, actual any) {
	c.out = append(c.out, FieldDivergence{Field: c.prefix + field, Expected: expected, Actual: actual})
}

func (c *comparer) eq(field string, expected, actual any) {
	if expected != actual {
		c.add(field, expected, actual)
	}
}

func (c *comparer) float(field string, expected, actual float64) {
	if !floatEquals(expected, actual) {
		c.add(field, expected, actual)
	}
}

func (c *comparer) floatPtr(field string, expected, actual *float64) {
	if !floatPtrEquals(expected, actual) {
		c.add(field, deref(expected), deref(actual))
	}
}

func (c *comparer) clockPtr(field string, expected, actual *domain.Clock) {
	if (expected == nil) != (actual == nil) || (expected != nil && *expected != *actual) {
		c.add(field, clockString(expected), clockString(actual))
	}
}

// present reports whether both sides are non-nil; a one-sided nil is a divergence.
func (c *comparer) present(field string, expectedNil, actualNil bool) bool {
	if expectedNil != actualNil {
		c.add(field, !expectedNil, !actualNil)
		return false
	}
	return !expectedNil
}

// CompareResults compares a stored result against its re-evaluation.
// Uses FloatTolerance for float64 comparisons.
func CompareResults(stored, replayed *domain.InstrumentResult) []FieldDivergence {
	c := &comparer{}

	c.eq("Status", stored.Status, replayed.Status)
	c.eq("Error", stored.Error, replayed.Error)
	c.eq("ScalpError", stored.ScalpError, replayed.ScalpError)
	c.eq("SwingError", stored.SwingError, replayed.SwingError)

	if c.present("Entry", stored.Entry == nil, replayed.Entry == nil) {
		s, r := stored.Entry, replayed.Entry
		c.eq("Entry.ShouldBuy", s.ShouldBuy, r.ShouldBuy)
		c.float("Entry.EntryPrice", s.EntryPrice, r.EntryPrice)
		c.eq("Entry.EntryTime", s.EntryTime, r.EntryTime)
		c.eq("Entry.EarlyVolume", s.EarlyVolume, r.EarlyVolume)
		c.float("Entry.VolumeRatio", s.VolumeRatio, r.VolumeRatio)
	}

	if c.present("Primary", stored.Primary == nil, replayed.Primary == nil) {
		c.eq("Primary.Bucket", stored.Primary.Bucket, replayed.Primary.Bucket)
		compareOutcome(c, "Primary.", stored.Primary.Outcome, replayed.Primary.Outcome)
	}

	if len(stored.Scenarios) != len(replayed.Scenarios) {
		c.add("Scenarios", len(stored.Scenarios), len(replayed.Scenarios))
	} else {
		for i := range stored.Scenarios {
			compareOutcome(c, fmt.Sprintf("Scenarios[%d].", i), stored.Scenarios[i], replayed.Scenarios[i])
		}
	}

	if c.present("Scalp", stored.Scalp == nil, replayed.Scalp == nil) {
		s, r := stored.Scalp, replayed.Scalp
		c.eq("Scalp.Direction", s.Direction, r.Direction)
		c.float("Scalp.MomentumPct", s.MomentumPct, r.MomentumPct)
		c.eq("Scalp.State", s.State, r.State)
		c.floatPtr("Scalp.EntryPrice", s.EntryPrice, r.EntryPrice)
		c.floatPtr("Scalp.ExitPct", s.ExitPct, r.ExitPct)
		c.clockPtr("Scalp.ExitTime", s.ExitTime, r.ExitTime)
	}

	if c.present("Swing", stored.Swing == nil, replayed.Swing == nil) {
		s, r := stored.Swing, replayed.Swing
		c.eq("Swing.Signal", s.Signal, r.Signal)
		c.float("Swing.ClosingPct", s.ClosingPct, r.ClosingPct)
		c.float("Swing.DayHighPct", s.DayHighPct, r.DayHighPct)
		c.float("Swing.DayLowPct", s.DayLowPct, r.DayLowPct)
	}

	return c.out
}

func compareOutcome(c *comparer, prefix string, stored, replayed *domain.Outcome) {
	saved := c.prefix
	c.prefix = prefix
	defer func() { c.prefix = saved }()

	if !c.present("Outcome", stored == nil, replayed == nil) {
		return
	}
	c.eq("ScenarioName", stored.ScenarioName, replayed.ScenarioName)
	c.float("EntryPrice", stored.EntryPrice, replayed.EntryPrice)
	c.float("TargetPrices.Profit", stored.TargetPrices.Profit, replayed.TargetPrices.Profit)
	c.float("TargetPrices.Loss", stored.TargetPrices.Loss, replayed.TargetPrices.Loss)
	c.eq("FirstHit", stored.FirstHit, replayed.FirstHit)
	c.clockPtr("FirstHitTime", stored.FirstHitTime, replayed.FirstHitTime)
	c.clockPtr("ProfitHitTime", stored.ProfitHitTime, replayed.ProfitHitTime)
	c.clockPtr("LossHitTime", stored.LossHitTime, replayed.LossHitTime)
	c.float("MaxFavorablePct", stored.MaxFavorablePct, replayed.MaxFavorablePct)
	c.float("MaxAdversePct", stored.MaxAdversePct, replayed.MaxAdversePct)
	c.float("ClosingPct", stored.ClosingPct, replayed.ClosingPct)
}

// floatEquals compares two floats with tolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}

// floatPtrEquals compares two float pointers with tolerance.
func floatPtrEquals(a, b *float64) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return floatEquals(*a, *b)
}

func deref(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func clockString(c *domain.Clock) string {
	if c == nil {
		return "-"
	}
	return c.String()
}
