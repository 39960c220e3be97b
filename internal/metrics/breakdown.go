package metrics

import (
	"time"

	"opening-trade-lab/internal/domain"
)

// Bucket is one slice of trades in a breakdown table.
type Bucket struct {
	Label        string  `json:"label"`
	Count        int     `json:"count"`
	ProfitCount  int     `json:"profit_count"`
	LossCount    int     `json:"loss_count"`
	NonePositive int     `json:"none_positive"`
	NoneNegative int     `json:"none_negative"`
	NoneFlat     int     `json:"none_flat"`
	WinRatePct   float64 `json:"win_rate_pct"`
	AvgReturnPct float64 `json:"avg_return_pct"`

	sum float64
}

func (b *Bucket) add(t Trade) {
	b.Count++
	b.sum += t.ReturnPct
	switch t.FirstHit {
	case domain.FirstHitProfit:
		b.ProfitCount++
	case domain.FirstHitLoss:
		b.LossCount++
	default:
		switch {
		case t.ReturnPct > 0:
			b.NonePositive++
		case t.ReturnPct < 0:
			b.NoneNegative++
		default:
			b.NoneFlat++
		}
	}
}

func (b *Bucket) finish() {
	b.WinRatePct = computeRate(b.ProfitCount, b.Count)
	b.AvgReturnPct = computeAvg(b.sum, b.Count)
}

// scoreRange is an inclusive [Min, Max] selection score band.
type scoreRange struct {
	label    string
	min, max float64
}

var scoreRanges = []scoreRange{
	{"0-50", 0, 50},
	{"51-80", 51, 80},
	{"81-100", 81, 100},
	{"101+", 101, 1e9},
}

// AnalyzeByScoreRange groups trades into selection score bands.
// Empty bands are omitted. Scores between bands (e.g. 50.5) fall into none.
func AnalyzeByScoreRange(trades []Trade) []Bucket {
	buckets := make([]Bucket, len(scoreRanges))
	for i, r := range scoreRanges {
		buckets[i].Label = r.label
	}
	for _, t := range trades {
		for i, r := range scoreRanges {
			if t.Score >= r.min && t.Score <= r.max {
				buckets[i].add(t)
				break
			}
		}
	}
	return finishNonEmpty(buckets)
}

var weekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

// AnalyzeByWeekday groups trades by trading weekday, Monday to Friday.
// Empty weekdays are omitted.
func AnalyzeByWeekday(trades []Trade) []Bucket {
	buckets := make([]Bucket, len(weekdays))
	index := make(map[time.Weekday]int, len(weekdays))
	for i, d := range weekdays {
		buckets[i].Label = d.String()
		index[d] = i
	}
	for _, t := range trades {
		if i, ok := index[t.Date.Weekday()]; ok {
			buckets[i].add(t)
		}
	}
	return finishNonEmpty(buckets)
}

// AnalyzeByTimeOfDay groups trades that hit a threshold by the half-hour slot of
// the first hit, starting at open. Trades without a hit are not counted.
func AnalyzeByTimeOfDay(trades []Trade, open domain.Clock, slots int) []Bucket {
	if slots <= 0 {
		return nil
	}
	buckets := make([]Bucket, slots)
	for i := range buckets {
		start := open + domain.Clock(i*30*60)
		end := start + 30*60
		buckets[i].Label = start.String()[:5] + "-" + end.String()[:5]
	}
	for _, t := range trades {
		if t.FirstHitTime == nil {
			continue
		}
		m := t.FirstHitTime.MinuteOfSession(open)
		if m < 0 {
			continue
		}
		if i := m / 30; i < slots {
			buckets[i].add(t)
		}
	}
	return finishNonEmpty(buckets)
}

func finishNonEmpty(buckets []Bucket) []Bucket {
	out := make([]Bucket, 0, len(buckets))
	for _, b := range buckets {
		if b.Count == 0 {
			continue
		}
		b.finish()
		out = append(out, b)
	}
	return out
}
