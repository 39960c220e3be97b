package strategy

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"opening-trade-lab/internal/domain"
)

var open = domain.NewClock(9, 0, 0)

type bar struct {
	minute                 int
	open, high, low, close float64
}

// makeCandles builds a series from (minute, o, h, l, c) bars.
func makeCandles(bars ...bar) domain.CandleSeries {
	s := make(domain.CandleSeries, len(bars))
	for i, b := range bars {
		s[i] = domain.Candle{
			Time:   open + domain.Clock(b.minute*60),
			Open:   b.open,
			High:   b.high,
			Low:    b.low,
			Close:  b.close,
			Volume: 100,
		}
	}
	return s
}

// upOpening rises 1% over the observe window and enters at 1010 on minute 3.
func upOpening(rest ...bar) domain.CandleSeries {
	bars := []bar{
		{0, 1000, 1004, 999, 1003},
		{1, 1003, 1008, 1002, 1006},
		{2, 1006, 1011, 1005, 1010},
		{3, 1010, 1012, 1008, 1011},
	}
	return makeCandles(append(bars, rest...)...)
}

func TestScalp_ProfitExit(t *testing.T) {
	s := NewScalpStrategy(DefaultScalpConfig())
	series := upOpening(
		bar{4, 1011, 1015, 1009, 1014},
		bar{5, 1014, 1031, 1012, 1028}, // 1030.2 target
	)

	res, err := s.Evaluate(series)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if res.Direction != domain.DirectionUp || !res.ShouldEnter {
		t.Fatalf("expected up/enter, got %s/%v", res.Direction, res.ShouldEnter)
	}
	if math.Abs(res.MomentumPct-1.0) > 1e-9 {
		t.Errorf("expected momentum 1.0, got %v", res.MomentumPct)
	}
	if *res.EntryPrice != 1010 || *res.EntryTime != series[3].Time {
		t.Errorf("expected entry 1010 at minute 3, got %v at %v", *res.EntryPrice, *res.EntryTime)
	}
	if res.State != domain.ScalpStateExitedProfit || *res.ExitResult != domain.ScalpExitProfit {
		t.Errorf("expected profit exit, got %s", res.State)
	}
	if *res.ExitPct != 2.0 {
		t.Errorf("expected exit pct 2.0, got %v", *res.ExitPct)
	}
	if *res.ExitTime != series[5].Time {
		t.Errorf("expected exit at minute 5, got %v", *res.ExitTime)
	}
}

func TestScalp_LossExit(t *testing.T) {
	s := NewScalpStrategy(DefaultScalpConfig())
	series := upOpening(
		bar{4, 1011, 1012, 999, 1000}, // 999.9 target
	)

	res, err := s.Evaluate(series)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res.State != domain.ScalpStateExitedLoss {
		t.Fatalf("expected loss exit, got %s", res.State)
	}
	if *res.ExitPct != -1.0 {
		t.Errorf("expected exit pct -1.0, got %v", *res.ExitPct)
	}
}

func TestScalp_TieBreakProfitWins(t *testing.T) {
	s := NewScalpStrategy(DefaultScalpConfig())
	series := upOpening(
		bar{4, 1011, 1040, 990, 1011},
	)

	res, err := s.Evaluate(series)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res.State != domain.ScalpStateExitedProfit {
		t.Errorf("expected profit on tie, got %s", res.State)
	}
}

func TestScalp_TimeoutAtDeadline(t *testing.T) {
	s := NewScalpStrategy(DefaultScalpConfig())
	series := upOpening(
		bar{10, 1011, 1015, 1005, 1012},
		bar{29, 1012, 1016, 1006, 1013},
		bar{31, 1013, 1050, 900, 1020}, // past deadline, thresholds ignored
		bar{60, 1020, 1021, 1019, 1000},
	)

	res, err := s.Evaluate(series)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res.State != domain.ScalpStateExitedTimeout {
		t.Fatalf("expected timeout, got %s", res.State)
	}
	if *res.ExitTime != series[6].Time {
		t.Errorf("expected exit at first candle after deadline, got %v", *res.ExitTime)
	}
	want := (1020.0 - 1010.0) / 1010.0 * 100
	if math.Abs(*res.ExitPct-want) > 1e-9 {
		t.Errorf("expected exit pct %v, got %v", want, *res.ExitPct)
	}
}

func TestScalp_TimeoutFallsBackToLastCandle(t *testing.T) {
	s := NewScalpStrategy(DefaultScalpConfig())
	series := upOpening(
		bar{10, 1011, 1015, 1005, 1012},
		bar{20, 1012, 1016, 1006, 1015},
	)

	res, err := s.Evaluate(series)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res.State != domain.ScalpStateExitedTimeout {
		t.Fatalf("expected timeout, got %s", res.State)
	}
	if *res.ExitTime != series.Last().Time {
		t.Errorf("expected exit at last candle, got %v", *res.ExitTime)
	}
}

func TestScalp_NotEntered(t *testing.T) {
	s := NewScalpStrategy(DefaultScalpConfig())

	tests := []struct {
		name      string
		series    domain.CandleSeries
		direction domain.Direction
	}{
		{
			name: "down",
			series: makeCandles(
				bar{0, 1000, 1001, 990, 995},
				bar{2, 995, 996, 985, 990},
				bar{3, 990, 1100, 980, 1000},
			),
			direction: domain.DirectionDown,
		},
		{
			name: "flat below min momentum",
			series: makeCandles(
				bar{0, 1000, 1003, 999, 1002},
				bar{2, 1002, 1004, 1001, 1003},
				bar{3, 1003, 1100, 1000, 1050},
			),
			direction: domain.DirectionFlat,
		},
		{
			name: "empty observe window",
			series: makeCandles(
				bar{4, 1000, 1100, 900, 1000},
			),
			direction: domain.DirectionFlat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Evaluate(tt.series)
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}
			if res.Direction != tt.direction {
				t.Errorf("expected %s, got %s", tt.direction, res.Direction)
			}
			if res.ShouldEnter {
				t.Errorf("expected should_enter false")
			}
			if res.State != domain.ScalpStateNotEntered {
				t.Errorf("expected not_entered, got %s", res.State)
			}
			if res.EntryPrice != nil || res.ExitResult != nil || res.ExitPct != nil {
				t.Errorf("expected no entry or exit fields")
			}
		})
	}
}

func TestScalp_NoEntryCandle(t *testing.T) {
	s := NewScalpStrategy(DefaultScalpConfig())
	series := makeCandles(
		bar{0, 1000, 1004, 999, 1003},
		bar{2, 1006, 1011, 1005, 1010},
		bar{7, 1010, 1100, 900, 1011},
	)

	res, err := s.Evaluate(series)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !res.ShouldEnter {
		t.Errorf("expected should_enter true for upward momentum")
	}
	if res.State != domain.ScalpStateNotEntered || res.EntryPrice != nil {
		t.Errorf("expected not_entered without entry price, got %s", res.State)
	}
}

func TestScalp_EmptySeries(t *testing.T) {
	s := NewScalpStrategy(DefaultScalpConfig())
	if _, err := s.Evaluate(nil); !errors.Is(err, domain.ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestScalp_Deterministic(t *testing.T) {
	s := NewScalpStrategy(DefaultScalpConfig())
	series := upOpening(bar{4, 1011, 1015, 1009, 1014}, bar{40, 1014, 1016, 1012, 1013})

	first, err := s.Evaluate(series)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	for run := 0; run < 5; run++ {
		again, err := s.Evaluate(series)
		if err != nil {
			t.Fatalf("Run %d: Evaluate failed: %v", run, err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Errorf("Run %d: result differs", run)
		}
	}
}
