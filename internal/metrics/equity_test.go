package metrics

import (
	"errors"
	"math"
	"testing"
	"time"

	"opening-trade-lab/internal/domain"
)

func date(s string) time.Time {
	d, err := domain.ParseTradingDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func rets(pcts ...float64) []InstrumentReturn {
	out := make([]InstrumentReturn, len(pcts))
	for i, p := range pcts {
		out[i] = InstrumentReturn{Code: string(rune('A' + i)), ReturnPct: p}
	}
	return out
}

func TestBuildEquityCurve_TwoInstrumentDay(t *testing.T) {
	days := []DayReturns{{Date: date("2024-01-02"), Returns: rets(5, -3)}}

	curve, err := BuildEquityCurve(days, 10_000_000)
	if err != nil {
		t.Fatalf("BuildEquityCurve failed: %v", err)
	}
	if len(curve) != 1 {
		t.Fatalf("expected 1 point, got %d", len(curve))
	}

	p := curve[0]
	if p.DailyPL != 100_000 {
		t.Errorf("expected daily pl 100000, got %v", p.DailyPL)
	}
	if p.CapitalAfter != 10_100_000 {
		t.Errorf("expected capital after 10100000, got %v", p.CapitalAfter)
	}
	if p.DailyReturnPct != 1.0 {
		t.Errorf("expected daily return 1.0, got %v", p.DailyReturnPct)
	}
	if p.CumulativeReturnPct != 1.0 {
		t.Errorf("expected cumulative 1.0, got %v", p.CumulativeReturnPct)
	}
	if p.NumInstruments != 2 {
		t.Errorf("expected 2 instruments, got %d", p.NumInstruments)
	}
}

func TestBuildEquityCurve_ChainingAndOrder(t *testing.T) {
	// deliberately unsorted input
	days := []DayReturns{
		{Date: date("2024-01-04"), Returns: rets(-1, -2, 0)},
		{Date: date("2024-01-02"), Returns: rets(3)},
		{Date: date("2024-01-03"), Returns: rets(2, 4)},
	}
	initial := 1_000_000.0

	curve, err := BuildEquityCurve(days, initial)
	if err != nil {
		t.Fatalf("BuildEquityCurve failed: %v", err)
	}
	if len(curve) != 3 {
		t.Fatalf("expected 3 points, got %d", len(curve))
	}

	for i, p := range curve {
		prev := initial
		if i > 0 {
			prev = curve[i-1].CapitalAfter
			if !curve[i-1].Date.Before(p.Date) {
				t.Errorf("point %d not in ascending date order", i)
			}
		}
		if p.CapitalBefore != prev {
			t.Errorf("point %d: capital_before %v != previous capital_after %v", i, p.CapitalBefore, prev)
		}
	}

	// 1,000,000 -> 1,030,000 -> 1,060,900 -> 1,050,291
	want := 1_050_291.0
	if math.Abs(curve[2].CapitalAfter-want) > 1e-6 {
		t.Errorf("expected final capital %v, got %v", want, curve[2].CapitalAfter)
	}
	wantCum := (want - initial) * 100 / initial
	if math.Abs(curve[2].CumulativeReturnPct-wantCum) > 1e-9 {
		t.Errorf("expected cumulative %v, got %v", wantCum, curve[2].CumulativeReturnPct)
	}
}

func TestBuildEquityCurve_SkipsEmptyDays(t *testing.T) {
	days := []DayReturns{
		{Date: date("2024-01-02"), Returns: rets(10)},
		{Date: date("2024-01-03")},
		{Date: date("2024-01-04"), Returns: []InstrumentReturn{{Code: "A", Missing: true}}},
		{Date: date("2024-01-05"), Returns: rets(10)},
	}

	curve, err := BuildEquityCurve(days, 100)
	if err != nil {
		t.Fatalf("BuildEquityCurve failed: %v", err)
	}
	if len(curve) != 2 {
		t.Fatalf("expected 2 points, got %d", len(curve))
	}
	if curve[1].CapitalBefore != curve[0].CapitalAfter {
		t.Errorf("skipped days must leave capital unchanged")
	}
	if !curve[1].Date.Equal(date("2024-01-05")) {
		t.Errorf("expected second point on 01-05, got %v", curve[1].Date)
	}
}

func TestBuildEquityCurve_MissingInstrumentRedividesCapital(t *testing.T) {
	days := []DayReturns{{
		Date: date("2024-01-02"),
		Returns: []InstrumentReturn{
			{Code: "A", ReturnPct: 4},
			{Code: "B", Missing: true},
			{Code: "C", ReturnPct: -2},
		},
	}}

	curve, err := BuildEquityCurve(days, 1000)
	if err != nil {
		t.Fatalf("BuildEquityCurve failed: %v", err)
	}
	// 500 * 4% + 500 * -2% = 10
	if curve[0].DailyPL != 10 {
		t.Errorf("expected pl 10, got %v", curve[0].DailyPL)
	}
	if curve[0].NumInstruments != 2 {
		t.Errorf("expected 2 present instruments, got %d", curve[0].NumInstruments)
	}
}

func TestBuildEquityCurve_InvalidCapital(t *testing.T) {
	for _, c := range []float64{0, -1} {
		if _, err := BuildEquityCurve(nil, c); !errors.Is(err, ErrInvalidCapital) {
			t.Errorf("capital %v: expected ErrInvalidCapital, got %v", c, err)
		}
	}
}

func TestCollectDayReturns(t *testing.T) {
	hit := 10300.0
	results := []*domain.InstrumentResult{
		makeResult("2024-01-03", "A", domain.BucketActual, domain.FirstHitProfit, 1.5, &hit),
		makeResult("2024-01-02", "B", domain.BucketVirtual, domain.FirstHitNone, -1, nil),
		makeResult("2024-01-02", "A", domain.BucketActual, domain.FirstHitNone, 0.5, nil),
		{Date: date("2024-01-02"), Code: "C", Status: domain.ResultStatusNoData},
	}

	days := CollectDayReturns(results, DefaultSelection())
	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(days))
	}
	if !days[0].Date.Equal(date("2024-01-02")) {
		t.Errorf("expected days sorted ascending")
	}
	// A actual + C missing, B virtual dropped
	if len(days[0].Returns) != 2 {
		t.Errorf("expected 2 returns on day 1, got %d", len(days[0].Returns))
	}
	if days[1].Returns[0].ReturnPct != 1.5 {
		t.Errorf("close basis: expected 1.5, got %v", days[1].Returns[0].ReturnPct)
	}

	days = CollectDayReturns(results, Selection{Basis: ReturnBasisTarget, IncludeVirtual: true})
	if len(days[0].Returns) != 3 {
		t.Errorf("expected virtual included, got %d returns", len(days[0].Returns))
	}
	if math.Abs(days[1].Returns[0].ReturnPct-3) > 1e-9 {
		t.Errorf("target basis: expected 3, got %v", days[1].Returns[0].ReturnPct)
	}
}

// makeResult builds an ok result with a primary outcome entered at 10000.
func makeResult(d, code string, bucket domain.Bucket, hit domain.FirstHit, closingPct float64, hitPrice *float64) *domain.InstrumentResult {
	o := &domain.Outcome{
		ScenarioName:  domain.ScenarioStandard,
		EntryPrice:    10000,
		FirstHit:      hit,
		FirstHitPrice: hitPrice,
		ClosingPct:    closingPct,
	}
	return &domain.InstrumentResult{
		RunID:   "run-1",
		Date:    date(d),
		Code:    code,
		Status:  domain.ResultStatusOK,
		Primary: &domain.RoutedOutcome{Bucket: bucket, Outcome: o},
	}
}
