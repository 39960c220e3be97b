package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"opening-trade-lab/internal/domain"
	"opening-trade-lab/internal/storage"
)

type resultKey struct {
	runID string
	day   candidateKey
}

// ResultStore is an in-memory implementation of storage.ResultStore.
type ResultStore struct {
	mu   sync.RWMutex
	data map[resultKey]*domain.InstrumentResult
}

// NewResultStore creates a new in-memory result store.
func NewResultStore() *ResultStore {
	return &ResultStore{
		data: make(map[resultKey]*domain.InstrumentResult),
	}
}

// InsertBulk adds results atomically. Returns ErrDuplicateKey on existing (run_id, date, code).
func (s *ResultStore) InsertBulk(_ context.Context, results []*domain.InstrumentResult) error {
	if len(results) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[resultKey]struct{}, len(results))
	for _, r := range results {
		if r == nil || r.RunID == "" || r.Code == "" || r.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		k := resultKey{runID: r.RunID, day: keyOf(r.Date, r.Code)}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, r := range results {
		resultCopy := *r
		resultCopy.Date = domain.TradingDate(r.Date)
		s.data[resultKey{runID: r.RunID, day: keyOf(r.Date, r.Code)}] = &resultCopy
	}
	return nil
}

// GetByRun retrieves all results of a run, ordered by date ASC, code ASC.
func (s *ResultStore) GetByRun(_ context.Context, runID string) ([]*domain.InstrumentResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.InstrumentResult
	for k, r := range s.data {
		if k.runID == runID {
			resultCopy := *r
			result = append(result, &resultCopy)
		}
	}
	sortResults(result)
	return result, nil
}

// GetByRunDate retrieves one day's results of a run, ordered by code ASC.
func (s *ResultStore) GetByRunDate(_ context.Context, runID string, date time.Time) ([]*domain.InstrumentResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := domain.TradingDate(date).Format(domain.DateLayout)
	var result []*domain.InstrumentResult
	for k, r := range s.data {
		if k.runID == runID && k.day.date == day {
			resultCopy := *r
			result = append(result, &resultCopy)
		}
	}
	sortResults(result)
	return result, nil
}

func sortResults(rs []*domain.InstrumentResult) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].Date.Equal(rs[j].Date) {
			return rs[i].Date.Before(rs[j].Date)
		}
		return rs[i].Code < rs[j].Code
	})
}

// Verify interface compliance at compile time.
var _ storage.ResultStore = (*ResultStore)(nil)
