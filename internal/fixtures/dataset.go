// Package fixtures loads intraday JSON datasets and seeds candidate and candle stores.
//
// A dataset file holds one trading day, or a JSON array of days:
//
//	{
//	  "date": "20240304",
//	  "stocks": {
//	    "005930": {
//	      "code": "005930", "name": "...", "selection_score": 85,
//	      "selection_reason": "...", "reference_price": 71000, "baseline_volume": 1.2e7,
//	      "minute_data": [{"time": "09:00", "open": 71000, "high": 71500, "low": 70900, "close": 71300, "volume": 350000}]
//	    }
//	  }
//	}
package fixtures

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"time"

	"opening-trade-lab/internal/domain"
)

// ErrInvalidDataset is returned when a dataset cannot be decoded or is inconsistent.
var ErrInvalidDataset = errors.New("invalid dataset")

// Candle is one minute bar as stored in dataset files.
type Candle struct {
	Time   string  `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// Stock is one pre-selected instrument and its minute data.
type Stock struct {
	Code           string   `json:"code"`
	Name           string   `json:"name"`
	Score          float64  `json:"selection_score"`
	Reason         string   `json:"selection_reason"`
	ReferencePrice float64  `json:"reference_price"`
	BaselineVolume float64  `json:"baseline_volume"`
	Candles        []Candle `json:"minute_data"`
}

// Day is one trading day of a dataset.
type Day struct {
	Date   string           `json:"date"` // YYYYMMDD or YYYY-MM-DD
	Stocks map[string]Stock `json:"stocks"`
}

// Dataset is an ordered set of trading days.
type Dataset struct {
	Days []Day
}

// Decode reads a single day object or an array of days.
func Decode(r io.Reader) (*Dataset, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidDataset)
	}

	var days []Day
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &days); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
		}
	} else {
		var d Day
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
		}
		days = []Day{d}
	}

	ds := &Dataset{Days: days}
	if err := ds.normalize(); err != nil {
		return nil, err
	}
	return ds, nil
}

// LoadFile decodes one dataset file.
func LoadFile(name string) (*Dataset, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ds, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return ds, nil
}

// LoadFS decodes every *.json file under dir in fsys and merges them.
func LoadFS(fsys fs.FS, dir string) (*Dataset, error) {
	names, err := fs.Glob(fsys, path.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no json files in %s", ErrInvalidDataset, dir)
	}
	sort.Strings(names)

	merged := &Dataset{}
	for _, name := range names {
		f, err := fsys.Open(name)
		if err != nil {
			return nil, err
		}
		ds, err := Decode(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		merged.Days = append(merged.Days, ds.Days...)
	}
	if err := merged.normalize(); err != nil {
		return nil, err
	}
	return merged, nil
}

// Load reads a dataset from a file or a directory of files.
func Load(name string) (*Dataset, error) {
	info, err := os.Stat(name)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return LoadFS(os.DirFS(name), ".")
	}
	return LoadFile(name)
}

// normalize validates dates and codes, then sorts days ascending.
func (d *Dataset) normalize() error {
	seen := make(map[string]bool, len(d.Days))
	for i := range d.Days {
		day := &d.Days[i]
		date, err := domain.ParseTradingDate(day.Date)
		if err != nil {
			return fmt.Errorf("%w: date %q: %v", ErrInvalidDataset, day.Date, err)
		}
		day.Date = date.Format(domain.DateLayout)
		if seen[day.Date] {
			return fmt.Errorf("%w: duplicate date %s", ErrInvalidDataset, day.Date)
		}
		seen[day.Date] = true

		for key, s := range day.Stocks {
			if s.Code == "" {
				s.Code = key
				day.Stocks[key] = s
			}
			if s.Code != key {
				return fmt.Errorf("%w: %s: stock key %q has code %q", ErrInvalidDataset, day.Date, key, s.Code)
			}
		}
	}
	sort.Slice(d.Days, func(i, j int) bool { return d.Days[i].Date < d.Days[j].Date })
	return nil
}

// TradingDate returns the day's date at UTC midnight.
func (d Day) TradingDate() time.Time {
	t, _ := domain.ParseTradingDate(d.Date)
	return t
}

// Codes returns the day's instrument codes, ascending.
func (d Day) Codes() []string {
	codes := make([]string, 0, len(d.Stocks))
	for code := range d.Stocks {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Candidates converts the day's stocks into candidates, ordered by code.
func (d Day) Candidates(createdAt int64) []*domain.Candidate {
	date := d.TradingDate()
	out := make([]*domain.Candidate, 0, len(d.Stocks))
	for _, code := range d.Codes() {
		s := d.Stocks[code]
		out = append(out, &domain.Candidate{
			Date:           date,
			Code:           code,
			Name:           s.Name,
			Score:          s.Score,
			Reason:         s.Reason,
			ReferencePrice: s.ReferencePrice,
			BaselineVolume: s.BaselineVolume,
			CreatedAt:      createdAt,
		})
	}
	return out
}

// Series converts a stock's minute data into a candle series sorted by time.
func (s Stock) Series() (domain.CandleSeries, error) {
	series := make(domain.CandleSeries, 0, len(s.Candles))
	for _, c := range s.Candles {
		t, err := domain.ParseClock(c.Time)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDataset, s.Code, err)
		}
		series = append(series, domain.Candle{
			Time:   t,
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.Volume,
		})
	}
	sort.SliceStable(series, func(i, j int) bool { return series[i].Time < series[j].Time })
	for i := 1; i < len(series); i++ {
		if series[i].Time == series[i-1].Time {
			return nil, fmt.Errorf("%w: %s: duplicate candle at %s", ErrInvalidDataset, s.Code, series[i].Time)
		}
	}
	return series, nil
}

// Range returns the first and last trading dates of the dataset.
// Both are zero for an empty dataset.
func (d *Dataset) Range() (from, to time.Time) {
	if len(d.Days) == 0 {
		return time.Time{}, time.Time{}
	}
	return d.Days[0].TradingDate(), d.Days[len(d.Days)-1].TradingDate()
}
