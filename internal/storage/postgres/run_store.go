package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"opening-trade-lab/internal/domain"
	"opening-trade-lab/internal/storage"
)

// RunStore is a PostgreSQL implementation of storage.RunStore.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new PostgreSQL run store.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

const selectRunSQL = `
	SELECT run_id, from_date, to_date, initial_capital, config_hash, status,
	       last_date, created_at, finished_at
	FROM runs
`

// Insert registers a new run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.Run) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO runs (
			run_id, from_date, to_date, initial_capital, config_hash, status,
			last_date, created_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		r.RunID, domain.TradingDate(r.From), domain.TradingDate(r.To), r.InitialCapital,
		r.ConfigHash, string(r.Status), r.LastDate, r.CreatedAt, r.FinishedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Get retrieves a run. Returns ErrNotFound if not exists.
func (s *RunStore) Get(ctx context.Context, runID string) (*domain.Run, error) {
	r, err := scanRun(s.pool.QueryRow(ctx, selectRunSQL+`WHERE run_id = $1`, runID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// Latest returns the most recently created run. Returns ErrNotFound if none.
func (s *RunStore) Latest(ctx context.Context) (*domain.Run, error) {
	r, err := scanRun(s.pool.QueryRow(ctx, selectRunSQL+`ORDER BY created_at DESC, run_id DESC LIMIT 1`))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest run: %w", err)
	}
	return r, nil
}

// SetProgress records the last fully processed date.
func (s *RunStore) SetProgress(ctx context.Context, runID string, lastDate time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE runs SET last_date = $2 WHERE run_id = $1`,
		runID, domain.TradingDate(lastDate))
	if err != nil {
		return fmt.Errorf("set run progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Finish marks a run completed or failed.
func (s *RunStore) Finish(ctx context.Context, runID string, status domain.RunStatus, finishedAt int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE runs SET status = $2, finished_at = $3 WHERE run_id = $1`,
		runID, string(status), finishedAt)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanRun(row pgx.Row) (*domain.Run, error) {
	var r domain.Run
	var status string
	err := row.Scan(
		&r.RunID, &r.From, &r.To, &r.InitialCapital, &r.ConfigHash, &status,
		&r.LastDate, &r.CreatedAt, &r.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Status = domain.RunStatus(status)
	r.From = domain.TradingDate(r.From)
	r.To = domain.TradingDate(r.To)
	if r.LastDate != nil {
		d := domain.TradingDate(*r.LastDate)
		r.LastDate = &d
	}
	return &r, nil
}
