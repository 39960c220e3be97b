package memory

import (
	"context"
	"sync"
	"time"

	"opening-trade-lab/internal/domain"
	"opening-trade-lab/internal/storage"
)

// RunStore is an in-memory implementation of storage.RunStore.
type RunStore struct {
	mu    sync.RWMutex
	data  map[string]*domain.Run
	order []string // insertion order
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		data: make(map[string]*domain.Run),
	}
}

// Insert registers a new run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(_ context.Context, r *domain.Run) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}
	runCopy := *r
	s.data[r.RunID] = &runCopy
	s.order = append(s.order, r.RunID)
	return nil
}

// Get retrieves a run. Returns ErrNotFound if not exists.
func (s *RunStore) Get(_ context.Context, runID string) (*domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	runCopy := *r
	return &runCopy, nil
}

// Latest returns the most recently created run. Returns ErrNotFound if none.
func (s *RunStore) Latest(_ context.Context) (*domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.order) == 0 {
		return nil, storage.ErrNotFound
	}
	latest := s.data[s.order[0]]
	for _, id := range s.order[1:] {
		// ties resolve to the later insert
		if r := s.data[id]; r.CreatedAt >= latest.CreatedAt {
			latest = r
		}
	}
	runCopy := *latest
	return &runCopy, nil
}

// SetProgress records the last fully processed date.
func (s *RunStore) SetProgress(_ context.Context, runID string, lastDate time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.data[runID]
	if !exists {
		return storage.ErrNotFound
	}
	d := domain.TradingDate(lastDate)
	r.LastDate = &d
	return nil
}

// Finish marks a run completed or failed.
func (s *RunStore) Finish(_ context.Context, runID string, status domain.RunStatus, finishedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.data[runID]
	if !exists {
		return storage.ErrNotFound
	}
	r.Status = status
	r.FinishedAt = &finishedAt
	return nil
}

// Verify interface compliance at compile time.
var _ storage.RunStore = (*RunStore)(nil)
