package domain

import "time"

// ResultStatus classifies how an instrument's evaluation ended.
type ResultStatus string

// ResultStatus constants
const (
	ResultStatusOK     ResultStatus = "ok"
	ResultStatusNoData ResultStatus = "no_data"
	ResultStatusFailed ResultStatus = "failed"
)

// InstrumentResult bundles every classifier output for one instrument on one day.
// Corresponds to instrument_results table in PostgreSQL.
type InstrumentResult struct {
	RunID  string       `json:"run_id"`
	Date   time.Time    `json:"date"`
	Code   string       `json:"code"`
	Name   string       `json:"name"`
	Score  float64      `json:"score"`
	Status ResultStatus `json:"status"`
	Error  string       `json:"error,omitempty"`

	Entry     *EntryDecision `json:"entry"`
	Primary   *RoutedOutcome `json:"primary"`
	Scenarios []*Outcome     `json:"scenarios"`
	Scalp     *ScalpResult   `json:"scalp"`
	Swing     *SwingResult   `json:"swing"`

	// Variant failures leave Status untouched; the primary outcome stays usable.
	ScalpError string `json:"scalp_error,omitempty"`
	SwingError string `json:"swing_error,omitempty"`
}

// Usable reports whether the result carries a primary outcome.
func (r *InstrumentResult) Usable() bool {
	return r.Status == ResultStatusOK && r.Primary != nil && r.Primary.Outcome != nil
}
