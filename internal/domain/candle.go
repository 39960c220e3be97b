package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidClock is returned when a wall-clock string cannot be parsed.
var ErrInvalidClock = errors.New("invalid clock time")

// Clock is a wall-clock time within a single trading day, in seconds since midnight.
type Clock int

// NewClock builds a Clock from hour, minute and second components.
func NewClock(hour, minute, second int) Clock {
	return Clock(hour*3600 + minute*60 + second)
}

// ParseClock parses "HH:MM:SS" or "HH:MM" into a Clock.
// Trailing characters are rejected.
func ParseClock(s string) (Clock, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return NewClock(t.Hour(), t.Minute(), t.Second()), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
}

// String returns the HH:MM:SS representation.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", int(c)/3600, (int(c)%3600)/60, int(c)%60)
}

// MinuteOfSession returns whole minutes elapsed since the session open.
// Negative for times before the open.
func (c Clock) MinuteOfSession(open Clock) int {
	d := int(c - open)
	if d < 0 {
		// floor division for pre-open samples
		return -((-d + 59) / 60)
	}
	return d / 60
}

// Candle represents one intraday OHLCV bar.
// Corresponds to intraday_candles table in ClickHouse.
type Candle struct {
	Time   Clock   // bar start, wall clock within the trading day
	Open   float64 // opening price
	High   float64 // highest price
	Low    float64 // lowest price
	Close  float64 // closing price
	Volume int64   // traded volume
}

// CandleSeries is an ordered sequence of candles for one instrument on one trading day.
// Sorted ascending by Time. The high >= max(open, close) >= min(open, close) >= low
// relation is assumed but not enforced.
type CandleSeries []Candle

// IsSorted reports whether the series is ascending by time.
func (s CandleSeries) IsSorted() bool {
	for i := 1; i < len(s); i++ {
		if s[i].Time < s[i-1].Time {
			return false
		}
	}
	return true
}

// Last returns the final candle. The series must be non-empty.
func (s CandleSeries) Last() Candle {
	return s[len(s)-1]
}
