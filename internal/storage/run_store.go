package storage

import (
	"context"
	"time"

	"opening-trade-lab/internal/domain"
)

// RunStore persists run metadata and progress.
// Progress lets a restarted run skip dates it has already written.
type RunStore interface {
	// Insert registers a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.Run) error

	// Get retrieves a run. Returns ErrNotFound if not exists.
	Get(ctx context.Context, runID string) (*domain.Run, error)

	// Latest returns the most recently created run. Returns ErrNotFound if none.
	Latest(ctx context.Context) (*domain.Run, error)

	// SetProgress records the last fully processed date.
	SetProgress(ctx context.Context, runID string, lastDate time.Time) error

	// Finish marks a run completed or failed.
	Finish(ctx context.Context, runID string, status domain.RunStatus, finishedAt int64) error
}
