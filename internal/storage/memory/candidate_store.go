package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"opening-trade-lab/internal/domain"
	"opening-trade-lab/internal/storage"
)

type candidateKey struct {
	date string
	code string
}

// CandidateStore is an in-memory implementation of storage.CandidateStore.
type CandidateStore struct {
	mu   sync.RWMutex
	data map[candidateKey]*domain.Candidate
}

// NewCandidateStore creates a new in-memory candidate store.
func NewCandidateStore() *CandidateStore {
	return &CandidateStore{
		data: make(map[candidateKey]*domain.Candidate),
	}
}

func keyOf(date time.Time, code string) candidateKey {
	return candidateKey{date: domain.TradingDate(date).Format(domain.DateLayout), code: code}
}

// Insert adds a new candidate. Returns ErrDuplicateKey if (date, code) exists.
func (s *CandidateStore) Insert(_ context.Context, c *domain.Candidate) error {
	if c == nil || c.Code == "" || c.Date.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := keyOf(c.Date, c.Code)
	if _, exists := s.data[k]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	candidateCopy := *c
	candidateCopy.Date = domain.TradingDate(c.Date)
	s.data[k] = &candidateCopy
	return nil
}

// InsertBulk adds multiple candidates atomically. Fails entire batch on any duplicate.
func (s *CandidateStore) InsertBulk(_ context.Context, candidates []*domain.Candidate) error {
	if len(candidates) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[candidateKey]struct{}, len(candidates))
	for _, c := range candidates {
		if c == nil || c.Code == "" || c.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		k := keyOf(c.Date, c.Code)
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, c := range candidates {
		candidateCopy := *c
		candidateCopy.Date = domain.TradingDate(c.Date)
		s.data[keyOf(c.Date, c.Code)] = &candidateCopy
	}
	return nil
}

// Get retrieves one candidate. Returns ErrNotFound if not exists.
func (s *CandidateStore) Get(_ context.Context, date time.Time, code string) (*domain.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[keyOf(date, code)]
	if !exists {
		return nil, storage.ErrNotFound
	}

	candidateCopy := *c
	return &candidateCopy, nil
}

// GetByDate retrieves all candidates for a date, ordered by code ASC.
func (s *CandidateStore) GetByDate(_ context.Context, date time.Time) ([]*domain.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := domain.TradingDate(date).Format(domain.DateLayout)
	var result []*domain.Candidate
	for k, c := range s.data {
		if k.date == day {
			candidateCopy := *c
			result = append(result, &candidateCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Code < result[j].Code
	})

	return result, nil
}

// ListDates returns distinct dates with candidates within [from, to] (inclusive), ASC.
func (s *CandidateStore) ListDates(_ context.Context, from, to time.Time) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from, to = domain.TradingDate(from), domain.TradingDate(to)
	seen := make(map[time.Time]struct{})
	for _, c := range s.data {
		if c.Date.Before(from) || c.Date.After(to) {
			continue
		}
		seen[c.Date] = struct{}{}
	}

	result := make([]time.Time, 0, len(seen))
	for d := range seen {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Before(result[j])
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.CandidateStore = (*CandidateStore)(nil)
