package metrics

import (
	"errors"
	"sort"
	"time"

	"opening-trade-lab/internal/domain"
)

// ErrInvalidCapital is returned when the initial capital is not positive.
var ErrInvalidCapital = errors.New("initial capital must be positive")

// ReturnBasis selects which return an instrument contributes to the curve.
type ReturnBasis string

// ReturnBasis constants
const (
	// ReturnBasisClose uses the close-vs-entry percentage.
	ReturnBasisClose ReturnBasis = "close"
	// ReturnBasisTarget realises the first-hit target percentage, else the close.
	ReturnBasisTarget ReturnBasis = "target"
)

// InstrumentReturn is one instrument's contribution to a day.
type InstrumentReturn struct {
	Code      string
	ReturnPct float64
	Missing   bool // outcome unavailable, excluded from allocation
}

// DayReturns groups a trading day's instrument returns.
type DayReturns struct {
	Date    time.Time
	Returns []InstrumentReturn
}

// Selection controls which results feed trades and the equity curve.
type Selection struct {
	Basis          ReturnBasis
	IncludeVirtual bool // also count hypothetical (skipped) outcomes
}

// DefaultSelection uses actual trades at their closing return.
func DefaultSelection() Selection {
	return Selection{Basis: ReturnBasisClose}
}

// ReturnOf returns the outcome's return under the basis.
func (s Selection) ReturnOf(o *domain.Outcome) float64 {
	if s.Basis == ReturnBasisTarget {
		return o.RealizedPct()
	}
	return o.ClosingPct
}

// CollectDayReturns groups results by date.
// Virtual results are dropped unless IncludeVirtual is set. Results without a
// usable primary outcome are kept as Missing.
func CollectDayReturns(results []*domain.InstrumentResult, sel Selection) []DayReturns {
	byDate := make(map[time.Time]*DayReturns)
	for _, r := range results {
		d := domain.TradingDate(r.Date)
		day, ok := byDate[d]
		if !ok {
			day = &DayReturns{Date: d}
			byDate[d] = day
		}

		if !r.Usable() {
			day.Returns = append(day.Returns, InstrumentReturn{Code: r.Code, Missing: true})
			continue
		}
		if !r.Primary.IsActual() && !sel.IncludeVirtual {
			continue
		}
		day.Returns = append(day.Returns, InstrumentReturn{
			Code:      r.Code,
			ReturnPct: sel.ReturnOf(r.Primary.Outcome),
		})
	}

	days := make([]DayReturns, 0, len(byDate))
	for _, d := range byDate {
		days = append(days, *d)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date.Before(days[j].Date)
	})
	return days
}

// BuildEquityCurve compounds equal-weight daily returns into an equity curve.
//
// Days are processed in ascending date order. Per day:
//   - missing instruments are excluded and capital is re-divided among the rest
//   - a day with no present instrument is skipped, capital unchanged
//   - invest = capital_before / n, daily_pl = sum(invest * pct / 100)
func BuildEquityCurve(days []DayReturns, initialCapital float64) ([]*domain.EquityPoint, error) {
	if initialCapital <= 0 {
		return nil, ErrInvalidCapital
	}

	sorted := make([]DayReturns, len(days))
	copy(sorted, days)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	capital := initialCapital
	var curve []*domain.EquityPoint

	for _, day := range sorted {
		present := 0
		for _, r := range day.Returns {
			if !r.Missing {
				present++
			}
		}
		if present == 0 {
			continue
		}

		invest := capital / float64(present)
		pl := 0.0
		for _, r := range day.Returns {
			if r.Missing {
				continue
			}
			pl += invest * r.ReturnPct / 100
		}

		after := capital + pl
		curve = append(curve, &domain.EquityPoint{
			Date:                domain.TradingDate(day.Date),
			CapitalBefore:       capital,
			CapitalAfter:        after,
			DailyPL:             pl,
			DailyReturnPct:      pl * 100 / capital,
			CumulativeReturnPct: (after - initialCapital) * 100 / initialCapital,
			NumInstruments:      present,
		})
		capital = after
	}

	return curve, nil
}
