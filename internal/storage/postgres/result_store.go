package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"opening-trade-lab/internal/domain"
	"opening-trade-lab/internal/idhash"
	"opening-trade-lab/internal/storage"
)

// ResultStore implements storage.ResultStore using PostgreSQL.
// Each result is stored as a JSONB bundle with its key and filter columns
// denormalized alongside.
type ResultStore struct {
	pool *Pool
}

// NewResultStore creates a new ResultStore.
func NewResultStore(pool *Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ResultStore = (*ResultStore)(nil)

// InsertBulk adds results atomically. Returns ErrDuplicateKey on existing (run_id, date, code).
func (s *ResultStore) InsertBulk(ctx context.Context, results []*domain.InstrumentResult) (err error) {
	if len(results) == 0 {
		return nil
	}
	defer s.pool.observe("insert_results", time.Now(), &err)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO instrument_results (
			result_id, run_id, trade_date, code, status, bucket, first_hit, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, r := range results {
		if r == nil || r.RunID == "" || r.Code == "" {
			return storage.ErrInvalidInput
		}
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode result %s: %w", r.Code, err)
		}

		var bucket, firstHit *string
		if r.Primary != nil && r.Primary.Outcome != nil {
			b, h := string(r.Primary.Bucket), string(r.Primary.Outcome.FirstHit)
			bucket, firstHit = &b, &h
		}

		date := domain.TradingDate(r.Date)
		_, err = tx.Exec(ctx, query,
			idhash.ComputeResultID(r.RunID, date, r.Code), r.RunID, date, r.Code,
			string(r.Status), bucket, firstHit, payload,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert result in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByRun retrieves all results of a run, ordered by date ASC, code ASC.
func (s *ResultStore) GetByRun(ctx context.Context, runID string) (_ []*domain.InstrumentResult, err error) {
	defer s.pool.observe("get_results_by_run", time.Now(), &err)

	rows, err := s.pool.Query(ctx, `
		SELECT payload FROM instrument_results
		WHERE run_id = $1
		ORDER BY trade_date ASC, code ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("get results by run: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// GetByRunDate retrieves one day's results of a run, ordered by code ASC.
func (s *ResultStore) GetByRunDate(ctx context.Context, runID string, date time.Time) ([]*domain.InstrumentResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT payload FROM instrument_results
		WHERE run_id = $1 AND trade_date = $2
		ORDER BY code ASC
	`, runID, domain.TradingDate(date))
	if err != nil {
		return nil, fmt.Errorf("get results by run date: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

func scanResults(rows pgx.Rows) ([]*domain.InstrumentResult, error) {
	var results []*domain.InstrumentResult
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		var r domain.InstrumentResult
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, fmt.Errorf("decode result payload: %w", err)
		}
		r.Date = domain.TradingDate(r.Date)
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate result rows: %w", err)
	}
	return results, nil
}
