package reporting

import (
	"fmt"
	"strings"
	"time"

	"opening-trade-lab/internal/domain"
	"opening-trade-lab/internal/metrics"
)

// RenderMarkdown renders a report as Markdown.
func RenderMarkdown(d *Document) string {
	var sb strings.Builder
	s := d.Summary

	sb.WriteString("# Opening Trade Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", d.GeneratedAt.Format(time.RFC3339)))
	if d.Run != nil {
		sb.WriteString(fmt.Sprintf("Run: `%s` | %s to %s | status %s\n\n",
			d.Run.RunID, d.Run.From.Format(domain.DateLayout), d.Run.To.Format(domain.DateLayout), d.Run.Status))
	}

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Instruments | %d (ok %d, no data %d, failed %d) |\n", s.Instruments, s.OK, s.NoData, s.Failed))
	sb.WriteString(fmt.Sprintf("| Actual / Virtual | %d / %d |\n", s.Actual, s.Virtual))
	sb.WriteString(fmt.Sprintf("| Trades | %d |\n", s.Trades))
	sb.WriteString(fmt.Sprintf("| Profit / Loss / None | %d / %d / %d |\n", s.ProfitCount, s.LossCount, s.NoneCount))
	sb.WriteString(fmt.Sprintf("| None split (+ / - / 0) | %d / %d / %d |\n", s.NonePositive, s.NoneNegative, s.NoneFlat))
	sb.WriteString(fmt.Sprintf("| Win Rate | %.2f%% |\n", s.WinRatePct))
	sb.WriteString(fmt.Sprintf("| Avg Return | %.2f%% |\n", s.AvgReturnPct))
	sb.WriteString(fmt.Sprintf("| Avg Win / Avg Loss | %.2f%% / %.2f%% |\n", s.AvgWinPct, s.AvgLossPct))
	sb.WriteString(fmt.Sprintf("| Max Win / Loss Streak | %d / %d |\n", s.MaxWinStreak, s.MaxLossStreak))
	sb.WriteString(fmt.Sprintf("| Days | %d |\n", s.Days))
	sb.WriteString(fmt.Sprintf("| Capital | %.0f -> %.0f |\n", s.InitialCapital, s.FinalCapital))
	sb.WriteString(fmt.Sprintf("| Total Return | %.2f%% |\n", s.TotalReturnPct))
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %.2f%% |\n", s.MaxDrawdownPct))
	sb.WriteString("\n")

	sb.WriteString("## Scenarios\n\n")
	if len(s.ScenarioStats) > 0 {
		sb.WriteString("| Scenario | Count | Profit | Loss | None | WinRate | Avg |\n")
		sb.WriteString("|----------|-------|--------|------|------|---------|-----|\n")
		for _, sc := range s.ScenarioStats {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d | %.2f%% | %.2f%% |\n",
				sc.Name, sc.Count, sc.ProfitCount, sc.LossCount, sc.NoneCount, sc.WinRatePct, sc.AvgPct))
		}
	} else {
		sb.WriteString("No scenario results.\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Variants\n\n")
	sb.WriteString(fmt.Sprintf("Scalp: %d up signals, %d entered, %d profit, %d loss, %d timeout\n\n",
		s.ScalpSignals, s.ScalpEntered, s.ScalpProfit, s.ScalpLoss, s.ScalpTimeout))
	sb.WriteString("| Swing Signal | Count |\n")
	sb.WriteString("|--------------|-------|\n")
	for _, sig := range domain.SwingSignals {
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", sig, s.SwingSignals[sig]))
	}
	sb.WriteString("\n")

	writeBuckets(&sb, "By Score Range", d.ByScore)
	writeBuckets(&sb, "By Weekday", d.ByWeekday)
	writeBuckets(&sb, "By First Hit Time", d.ByTimeOfDay)

	sb.WriteString("## Equity Curve\n\n")
	if len(d.Curve) > 0 {
		sb.WriteString("| Date | Instruments | Capital | Daily | Cumulative |\n")
		sb.WriteString("|------|-------------|---------|-------|------------|\n")
		for _, p := range d.Curve {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.0f | %+.2f%% | %+.2f%% |\n",
				p.Date.Format(domain.DateLayout), p.NumInstruments, p.CapitalAfter, p.DailyReturnPct, p.CumulativeReturnPct))
		}
	} else {
		sb.WriteString("No tradable days.\n")
	}
	sb.WriteString("\n")

	if len(d.DataQuality) > 0 {
		sb.WriteString("## Data Quality\n\n")
		for _, msg := range d.DataQuality {
			sb.WriteString(fmt.Sprintf("- %s\n", msg))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func writeBuckets(sb *strings.Builder, title string, buckets []metrics.Bucket) {
	sb.WriteString("## " + title + "\n\n")
	if len(buckets) == 0 {
		sb.WriteString("No trades.\n\n")
		return
	}
	sb.WriteString("| Bucket | Trades | Profit | Loss | None +/-/0 | WinRate | Avg |\n")
	sb.WriteString("|--------|--------|--------|------|------------|---------|-----|\n")
	for _, b := range buckets {
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d/%d/%d | %.2f%% | %.2f%% |\n",
			b.Label, b.Count, b.ProfitCount, b.LossCount, b.NonePositive, b.NoneNegative, b.NoneFlat,
			b.WinRatePct, b.AvgReturnPct))
	}
	sb.WriteString("\n")
}
