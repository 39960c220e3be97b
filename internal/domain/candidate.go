package domain

import "time"

// Candidate is a pre-selected instrument for one trading day.
// Corresponds to candidates table in PostgreSQL.
type Candidate struct {
	Date           time.Time // trading day (UTC midnight)
	Code           string    // instrument code
	Name           string    // display name
	Score          float64   // selection score
	Reason         string    // selection reason
	ReferencePrice float64   // pre-open reference price
	BaselineVolume float64   // average daily volume, 0 if unknown
	CreatedAt      int64     // record creation timestamp (ms)
}

// TradingDate truncates t to its calendar date at UTC midnight.
func TradingDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseTradingDate parses a YYYY-MM-DD or YYYYMMDD date.
func ParseTradingDate(s string) (time.Time, error) {
	layout := DateLayout
	if len(s) == 8 {
		layout = "20060102"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, err
	}
	return TradingDate(t), nil
}
