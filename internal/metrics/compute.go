package metrics

import (
	"sort"
	"time"

	"opening-trade-lab/internal/domain"
)

// Trade is one selected primary outcome flattened for statistics.
type Trade struct {
	Date         time.Time
	Code         string
	Name         string
	Score        float64
	Bucket       domain.Bucket
	FirstHit     domain.FirstHit
	FirstHitTime *domain.Clock
	ReturnPct    float64
}

// Summary holds run-level statistics.
type Summary struct {
	// Evaluation counts
	Instruments int `json:"instruments"`
	OK          int `json:"ok"`
	NoData      int `json:"no_data"`
	Failed      int `json:"failed"`
	Actual      int `json:"actual"`
	Virtual     int `json:"virtual"`

	// Primary scenario outcome distribution over selected trades
	Trades       int     `json:"trades"`
	ProfitCount  int     `json:"profit_count"`
	LossCount    int     `json:"loss_count"`
	NoneCount    int     `json:"none_count"`
	NonePositive int     `json:"none_positive"`
	NoneNegative int     `json:"none_negative"`
	NoneFlat     int     `json:"none_flat"`
	WinRatePct   float64 `json:"win_rate_pct"`
	AvgReturnPct float64 `json:"avg_return_pct"`
	AvgWinPct    float64 `json:"avg_win_pct"`
	AvgLossPct   float64 `json:"avg_loss_pct"`

	MaxWinStreak  int `json:"max_win_streak"`
	MaxLossStreak int `json:"max_loss_streak"`

	// Equity
	Days           int     `json:"days"`
	InitialCapital float64 `json:"initial_capital"`
	FinalCapital   float64 `json:"final_capital"`
	TotalReturnPct float64 `json:"total_return_pct"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`

	// Variants
	ScalpSignals  int                        `json:"scalp_signals"`
	ScalpEntered  int                        `json:"scalp_entered"`
	ScalpProfit   int                        `json:"scalp_profit"`
	ScalpLoss     int                        `json:"scalp_loss"`
	ScalpTimeout  int                        `json:"scalp_timeout"`
	SwingSignals  map[domain.SwingSignal]int `json:"swing_signals"`
	ScenarioStats []ScenarioStats            `json:"scenario_stats"`
}

// ScenarioStats summarises one comparison scenario across all evaluated instruments.
type ScenarioStats struct {
	Name        string  `json:"name"`
	Count       int     `json:"count"`
	ProfitCount int     `json:"profit_count"`
	LossCount   int     `json:"loss_count"`
	NoneCount   int     `json:"none_count"`
	WinRatePct  float64 `json:"win_rate_pct"`
	AvgPct      float64 `json:"avg_pct"` // realised at target, else close
}

// SelectTrades flattens the selected primary outcomes, ordered by date then code.
func SelectTrades(results []*domain.InstrumentResult, sel Selection) []Trade {
	var trades []Trade
	for _, r := range results {
		if !r.Usable() {
			continue
		}
		if !r.Primary.IsActual() && !sel.IncludeVirtual {
			continue
		}
		o := r.Primary.Outcome
		trades = append(trades, Trade{
			Date:         domain.TradingDate(r.Date),
			Code:         r.Code,
			Name:         r.Name,
			Score:        r.Score,
			Bucket:       r.Primary.Bucket,
			FirstHit:     o.FirstHit,
			FirstHitTime: o.FirstHitTime,
			ReturnPct:    sel.ReturnOf(o),
		})
	}
	sort.SliceStable(trades, func(i, j int) bool {
		if !trades[i].Date.Equal(trades[j].Date) {
			return trades[i].Date.Before(trades[j].Date)
		}
		return trades[i].Code < trades[j].Code
	})
	return trades
}

// ComputeSummary calculates run statistics from results and their equity curve.
func ComputeSummary(results []*domain.InstrumentResult, curve []*domain.EquityPoint, initialCapital float64, sel Selection) *Summary {
	s := &Summary{
		Instruments:    len(results),
		InitialCapital: initialCapital,
		FinalCapital:   initialCapital,
		SwingSignals:   make(map[domain.SwingSignal]int),
	}

	for _, r := range results {
		switch r.Status {
		case domain.ResultStatusOK:
			s.OK++
		case domain.ResultStatusNoData:
			s.NoData++
		default:
			s.Failed++
		}
		if r.Primary != nil {
			if r.Primary.IsActual() {
				s.Actual++
			} else {
				s.Virtual++
			}
		}
		countVariants(s, r)
	}

	trades := SelectTrades(results, sel)
	fillTradeStats(s, trades)
	s.MaxWinStreak, s.MaxLossStreak = computeStreaks(trades)
	s.ScenarioStats = computeScenarioStats(results)

	s.Days = len(curve)
	if len(curve) > 0 {
		s.FinalCapital = curve[len(curve)-1].CapitalAfter
	}
	if initialCapital > 0 {
		s.TotalReturnPct = (s.FinalCapital - initialCapital) * 100 / initialCapital
	}
	s.MaxDrawdownPct = computeMaxDrawdownPct(curve, initialCapital)

	return s
}

func countVariants(s *Summary, r *domain.InstrumentResult) {
	if r.Scalp != nil {
		if r.Scalp.ShouldEnter {
			s.ScalpSignals++
		}
		if r.Scalp.EntryPrice != nil {
			s.ScalpEntered++
		}
		switch r.Scalp.State {
		case domain.ScalpStateExitedProfit:
			s.ScalpProfit++
		case domain.ScalpStateExitedLoss:
			s.ScalpLoss++
		case domain.ScalpStateExitedTimeout:
			s.ScalpTimeout++
		}
	}
	if r.Swing != nil {
		s.SwingSignals[r.Swing.Signal]++
	}
}

func fillTradeStats(s *Summary, trades []Trade) {
	s.Trades = len(trades)
	var sum, winSum, lossSum float64
	for _, t := range trades {
		sum += t.ReturnPct
		switch t.FirstHit {
		case domain.FirstHitProfit:
			s.ProfitCount++
			winSum += t.ReturnPct
		case domain.FirstHitLoss:
			s.LossCount++
			lossSum += t.ReturnPct
		default:
			s.NoneCount++
			switch {
			case t.ReturnPct > 0:
				s.NonePositive++
			case t.ReturnPct < 0:
				s.NoneNegative++
			default:
				s.NoneFlat++
			}
		}
	}
	s.WinRatePct = computeRate(s.ProfitCount, s.Trades)
	s.AvgReturnPct = computeAvg(sum, s.Trades)
	s.AvgWinPct = computeAvg(winSum, s.ProfitCount)
	s.AvgLossPct = computeAvg(lossSum, s.LossCount)
}

// computeRate returns part / total as a percentage.
func computeRate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) * 100 / float64(total)
}

func computeAvg(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// computeStreaks finds the longest runs of consecutive profit and loss hits.
// A none outcome breaks both streaks. Trades must be in chronological order.
func computeStreaks(trades []Trade) (maxWin, maxLoss int) {
	current := 0
	var last domain.FirstHit
	for _, t := range trades {
		if t.FirstHit == domain.FirstHitNone {
			current = 0
			last = ""
			continue
		}
		if t.FirstHit == last {
			current++
		} else {
			current = 1
			last = t.FirstHit
		}
		if last == domain.FirstHitProfit && current > maxWin {
			maxWin = current
		}
		if last == domain.FirstHitLoss && current > maxLoss {
			maxLoss = current
		}
	}
	return maxWin, maxLoss
}

// computeMaxDrawdownPct calculates the worst peak-to-trough decline of capital, in percent.
// The initial capital is the first peak.
func computeMaxDrawdownPct(curve []*domain.EquityPoint, initialCapital float64) float64 {
	peak := initialCapital
	maxDD := 0.0
	for _, p := range curve {
		if p.CapitalAfter > peak {
			peak = p.CapitalAfter
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - p.CapitalAfter) * 100 / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// computeScenarioStats aggregates comparison outcomes per scenario, in first-seen order.
func computeScenarioStats(results []*domain.InstrumentResult) []ScenarioStats {
	var order []string
	byName := make(map[string]*ScenarioStats)
	sums := make(map[string]float64)

	for _, r := range results {
		for _, o := range r.Scenarios {
			if o == nil {
				continue
			}
			st, ok := byName[o.ScenarioName]
			if !ok {
				st = &ScenarioStats{Name: o.ScenarioName}
				byName[o.ScenarioName] = st
				order = append(order, o.ScenarioName)
			}
			st.Count++
			switch o.FirstHit {
			case domain.FirstHitProfit:
				st.ProfitCount++
			case domain.FirstHitLoss:
				st.LossCount++
			default:
				st.NoneCount++
			}
			sums[o.ScenarioName] += o.RealizedPct()
		}
	}

	out := make([]ScenarioStats, 0, len(order))
	for _, name := range order {
		st := byName[name]
		st.WinRatePct = computeRate(st.ProfitCount, st.Count)
		st.AvgPct = computeAvg(sums[name], st.Count)
		out = append(out, *st)
	}
	return out
}
