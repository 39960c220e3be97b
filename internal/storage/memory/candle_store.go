package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"opening-trade-lab/internal/domain"
	"opening-trade-lab/internal/storage"
)

// CandleStore is an in-memory implementation of storage.CandleStore.
type CandleStore struct {
	mu   sync.RWMutex
	data map[candidateKey]domain.CandleSeries // keyed by (date, code)
}

// NewCandleStore creates a new in-memory candle store.
func NewCandleStore() *CandleStore {
	return &CandleStore{
		data: make(map[candidateKey]domain.CandleSeries),
	}
}

// InsertBulk adds one instrument's candles for a date.
// Fails entire batch on duplicate (date, code, time).
func (s *CandleStore) InsertBulk(_ context.Context, date time.Time, code string, candles domain.CandleSeries) error {
	if code == "" || date.IsZero() {
		return storage.ErrInvalidInput
	}
	if len(candles) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := keyOf(date, code)
	existing := s.data[k]

	seen := make(map[domain.Clock]struct{}, len(existing)+len(candles))
	for _, c := range existing {
		seen[c.Time] = struct{}{}
	}
	for _, c := range candles {
		if _, dup := seen[c.Time]; dup {
			return storage.ErrDuplicateKey
		}
		seen[c.Time] = struct{}{}
	}

	merged := make(domain.CandleSeries, 0, len(existing)+len(candles))
	merged = append(merged, existing...)
	merged = append(merged, candles...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Time < merged[j].Time
	})
	s.data[k] = merged
	return nil
}

// GetSeries retrieves one instrument's candles for a date, ordered by time ASC.
func (s *CandleStore) GetSeries(_ context.Context, date time.Time, code string) (domain.CandleSeries, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.data[keyOf(date, code)]
	result := make(domain.CandleSeries, len(series))
	copy(result, series)
	return result, nil
}

// ListCodes returns instrument codes with candles on a date, ASC.
func (s *CandleStore) ListCodes(_ context.Context, date time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := domain.TradingDate(date).Format(domain.DateLayout)
	var codes []string
	for k, series := range s.data {
		if k.date == day && len(series) > 0 {
			codes = append(codes, k.code)
		}
	}
	sort.Strings(codes)
	return codes, nil
}

// Verify interface compliance at compile time.
var _ storage.CandleStore = (*CandleStore)(nil)
