package lookup

import (
	"testing"

	"opening-trade-lab/internal/domain"
)

var open = domain.NewClock(9, 0, 0)

func makeSeries(minutes ...int) domain.CandleSeries {
	s := make(domain.CandleSeries, len(minutes))
	for i, m := range minutes {
		p := float64(100 + i)
		s[i] = domain.Candle{
			Time:   open + domain.Clock(m*60),
			Open:   p,
			High:   p + 1,
			Low:    p - 1,
			Close:  p + 0.5,
			Volume: int64(10 * (i + 1)),
		}
	}
	return s
}

func TestValidate(t *testing.T) {
	if err := Validate(nil); err != ErrNoCandleData {
		t.Errorf("expected ErrNoCandleData, got %v", err)
	}
	if err := Validate(makeSeries(0, 2, 1)); err != ErrUnsorted {
		t.Errorf("expected ErrUnsorted, got %v", err)
	}
	if err := Validate(makeSeries(0, 1, 1, 2)); err != nil {
		t.Errorf("equal timestamps are sorted, got %v", err)
	}
}

func TestIndexAtOrAfter(t *testing.T) {
	s := makeSeries(0, 1, 5, 10)

	if got := IndexAtOrAfter(open+60, s); got != 1 {
		t.Errorf("exact match: expected 1, got %d", got)
	}
	if got := IndexAtOrAfter(open+120, s); got != 2 {
		t.Errorf("gap: expected 2, got %d", got)
	}
	if got := IndexAtOrAfter(open+3600, s); got != -1 {
		t.Errorf("after last: expected -1, got %d", got)
	}
}

func TestCandleAtOrBefore(t *testing.T) {
	s := makeSeries(0, 1, 5)

	if _, err := CandleAtOrBefore(open, nil); err != ErrNoCandleData {
		t.Errorf("expected ErrNoCandleData, got %v", err)
	}

	c, err := CandleAtOrBefore(open+200, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Open != 101 {
		t.Errorf("expected candle at minute 1, got open %f", c.Open)
	}

	c, _ = CandleAtOrBefore(open-60, s)
	if c.Open != 100 {
		t.Errorf("before first: expected first candle, got open %f", c.Open)
	}
}

func TestMinuteIndexes(t *testing.T) {
	s := makeSeries(0, 1, 2, 4, 5, 6)

	if got := IndexAtMinute(5, open, s); got != 4 {
		t.Errorf("IndexAtMinute(5): expected 4, got %d", got)
	}
	if got := IndexAtMinute(3, open, s); got != -1 {
		t.Errorf("IndexAtMinute(3): expected -1, got %d", got)
	}
	if got := IndexInMinuteRange(3, 5, open, s); got != 3 {
		t.Errorf("IndexInMinuteRange(3,5): expected 3, got %d", got)
	}
	if got := len(Window(0, 3, open, s)); got != 3 {
		t.Errorf("Window(0,3): expected 3 candles, got %d", got)
	}
}

func TestVolumeBefore(t *testing.T) {
	s := makeSeries(0, 1, 2, 4, 5, 6)
	// minutes 0,1,2,4 -> 10+20+30+40
	if got := VolumeBefore(5, open, s); got != 100 {
		t.Errorf("expected 100, got %d", got)
	}
	if got := VolumeBefore(0, open, s); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}

func TestRange(t *testing.T) {
	if _, _, err := Range(nil); err != ErrNoCandleData {
		t.Errorf("expected ErrNoCandleData, got %v", err)
	}
	high, low, err := Range(makeSeries(0, 1, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if high != 103 || low != 99 {
		t.Errorf("expected (103, 99), got (%f, %f)", high, low)
	}
}
