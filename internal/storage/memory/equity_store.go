package memory

import (
	"context"
	"sort"
	"sync"

	"opening-trade-lab/internal/domain"
	"opening-trade-lab/internal/storage"
)

// EquityStore is an in-memory implementation of storage.EquityStore.
type EquityStore struct {
	mu   sync.RWMutex
	data map[string]map[string]*domain.EquityPoint // run_id -> date -> point
}

// NewEquityStore creates a new in-memory equity store.
func NewEquityStore() *EquityStore {
	return &EquityStore{
		data: make(map[string]map[string]*domain.EquityPoint),
	}
}

// InsertBulk adds a run's points. Returns ErrDuplicateKey on existing (run_id, date).
func (s *EquityStore) InsertBulk(_ context.Context, runID string, points []*domain.EquityPoint) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.data[runID]
	batchKeys := make(map[string]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		day := domain.TradingDate(p.Date).Format(domain.DateLayout)
		if _, exists := existing[day]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[day]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[day] = struct{}{}
	}

	if existing == nil {
		existing = make(map[string]*domain.EquityPoint, len(points))
		s.data[runID] = existing
	}
	for _, p := range points {
		pointCopy := *p
		pointCopy.Date = domain.TradingDate(p.Date)
		existing[pointCopy.Date.Format(domain.DateLayout)] = &pointCopy
	}
	return nil
}

// GetByRun retrieves a run's equity curve, ordered by date ASC.
func (s *EquityStore) GetByRun(_ context.Context, runID string) ([]*domain.EquityPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EquityPoint
	for _, p := range s.data[runID] {
		pointCopy := *p
		result = append(result, &pointCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.EquityStore = (*EquityStore)(nil)
