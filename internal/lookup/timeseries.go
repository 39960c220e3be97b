package lookup

import (
	"errors"

	"opening-trade-lab/internal/domain"
)

// Errors returned by lookup functions.
var (
	ErrNoCandleData = errors.New("no candle data available")
	ErrUnsorted     = errors.New("candle series not sorted by time")
)

// Validate checks the series is non-empty and ascending by time.
func Validate(series domain.CandleSeries) error {
	if len(series) == 0 {
		return ErrNoCandleData
	}
	if !series.IsSorted() {
		return ErrUnsorted
	}
	return nil
}

// IndexAtOrAfter returns the index of the first candle with Time >= target.
// Returns -1 if every candle is earlier.
func IndexAtOrAfter(target domain.Clock, series domain.CandleSeries) int {
	for i := range series {
		if series[i].Time >= target {
			return i
		}
	}
	return -1
}

// CandleAtOrBefore returns the latest candle with Time <= target.
// If no candle precedes target, the first candle is returned.
// Returns ErrNoCandleData if the series is empty.
func CandleAtOrBefore(target domain.Clock, series domain.CandleSeries) (domain.Candle, error) {
	if len(series) == 0 {
		return domain.Candle{}, ErrNoCandleData
	}
	for i := len(series) - 1; i >= 0; i-- {
		if series[i].Time <= target {
			return series[i], nil
		}
	}
	return series[0], nil
}

// IndexAtMinute returns the index of the first candle whose minute of session equals minute.
// Returns -1 if none.
func IndexAtMinute(minute int, open domain.Clock, series domain.CandleSeries) int {
	for i := range series {
		if series[i].Time.MinuteOfSession(open) == minute {
			return i
		}
	}
	return -1
}

// IndexInMinuteRange returns the index of the first candle whose minute of session
// lies in [from, to). Returns -1 if none.
func IndexInMinuteRange(from, to int, open domain.Clock, series domain.CandleSeries) int {
	for i := range series {
		m := series[i].Time.MinuteOfSession(open)
		if m >= from && m < to {
			return i
		}
	}
	return -1
}

// Window returns the candles whose minute of session lies in [from, to), in order.
func Window(from, to int, open domain.Clock, series domain.CandleSeries) domain.CandleSeries {
	var out domain.CandleSeries
	for _, c := range series {
		m := c.Time.MinuteOfSession(open)
		if m >= from && m < to {
			out = append(out, c)
		}
	}
	return out
}

// VolumeBefore sums the volume of candles with minute of session < minute.
func VolumeBefore(minute int, open domain.Clock, series domain.CandleSeries) int64 {
	var total int64
	for _, c := range series {
		if c.Time.MinuteOfSession(open) < minute {
			total += c.Volume
		}
	}
	return total
}

// Range returns the maximum high and minimum low over the series.
// Returns ErrNoCandleData if the series is empty.
func Range(series domain.CandleSeries) (high, low float64, err error) {
	if len(series) == 0 {
		return 0, 0, ErrNoCandleData
	}
	high, low = series[0].High, series[0].Low
	for _, c := range series[1:] {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	return high, low, nil
}
