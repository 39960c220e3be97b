package reporting

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"opening-trade-lab/internal/domain"
	"opening-trade-lab/internal/metrics"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// WriteEquityCSV writes the equity curve, one row per trading day.
func WriteEquityCSV(w io.Writer, curve []*domain.EquityPoint) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"date", "num_instruments", "capital_before", "capital_after",
		"daily_pl", "daily_return_pct", "cumulative_return_pct",
	})
	for _, p := range curve {
		_ = cw.Write([]string{
			p.Date.Format(domain.DateLayout),
			strconv.Itoa(p.NumInstruments),
			formatFloat(p.CapitalBefore),
			formatFloat(p.CapitalAfter),
			formatFloat(p.DailyPL),
			formatFloat(p.DailyReturnPct),
			formatFloat(p.CumulativeReturnPct),
		})
	}
	cw.Flush()
	return cw.Error()
}

// WriteTradesCSV writes the selected trades in date then code order.
func WriteTradesCSV(w io.Writer, trades []metrics.Trade) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"date", "code", "name", "score", "bucket", "first_hit", "first_hit_time", "return_pct",
	})
	for _, t := range trades {
		hitTime := ""
		if t.FirstHitTime != nil {
			hitTime = t.FirstHitTime.String()
		}
		_ = cw.Write([]string{
			t.Date.Format(domain.DateLayout),
			t.Code,
			t.Name,
			strconv.FormatFloat(t.Score, 'f', -1, 64),
			string(t.Bucket),
			string(t.FirstHit),
			hitTime,
			formatFloat(t.ReturnPct),
		})
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the document as indented JSON.
func WriteJSON(w io.Writer, d *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}
