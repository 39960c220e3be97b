package domain

import "time"

// EquityPoint is one day of the compounding capital curve.
// CapitalBefore equals the previous point's CapitalAfter.
// Corresponds to equity_points table in PostgreSQL.
type EquityPoint struct {
	Date                time.Time `json:"date"`
	CapitalBefore       float64   `json:"capital_before"`
	CapitalAfter        float64   `json:"capital_after"`
	DailyPL             float64   `json:"daily_pl"`
	DailyReturnPct      float64   `json:"daily_return_pct"`
	CumulativeReturnPct float64   `json:"cumulative_return_pct"`
	NumInstruments      int       `json:"num_instruments"`
}

// DateLayout is the canonical trading-date format.
const DateLayout = "2006-01-02"
