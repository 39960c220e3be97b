package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"opening-trade-lab/internal/domain"
	"opening-trade-lab/internal/storage"
)

// CandidateStore implements storage.CandidateStore using PostgreSQL.
type CandidateStore struct {
	pool *Pool
}

// NewCandidateStore creates a new CandidateStore.
func NewCandidateStore(pool *Pool) *CandidateStore {
	return &CandidateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CandidateStore = (*CandidateStore)(nil)

const insertCandidateSQL = `
	INSERT INTO candidates (
		trade_date, code, name, score, reason, reference_price, baseline_volume, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

const selectCandidateSQL = `
	SELECT trade_date, code, name, score, reason, reference_price, baseline_volume, created_at
	FROM candidates
`

func candidateArgs(c *domain.Candidate) []any {
	createdAt := c.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}
	return []any{
		domain.TradingDate(c.Date), c.Code, c.Name, c.Score, c.Reason,
		c.ReferencePrice, c.BaselineVolume, createdAt,
	}
}

// Insert adds a new candidate. Returns ErrDuplicateKey if (date, code) exists.
func (s *CandidateStore) Insert(ctx context.Context, c *domain.Candidate) (err error) {
	if c == nil || c.Code == "" {
		return storage.ErrInvalidInput
	}
	defer s.pool.observe("insert_candidate", time.Now(), &err)

	_, err = s.pool.Exec(ctx, insertCandidateSQL, candidateArgs(c)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert candidate: %w", err)
	}
	return nil
}

// InsertBulk adds multiple candidates atomically. Fails entire batch on any duplicate.
func (s *CandidateStore) InsertBulk(ctx context.Context, candidates []*domain.Candidate) (err error) {
	if len(candidates) == 0 {
		return nil
	}
	defer s.pool.observe("insert_candidates", time.Now(), &err)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range candidates {
		if c == nil || c.Code == "" {
			return storage.ErrInvalidInput
		}
		if _, err := tx.Exec(ctx, insertCandidateSQL, candidateArgs(c)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert candidate in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Get retrieves one candidate. Returns ErrNotFound if not exists.
func (s *CandidateStore) Get(ctx context.Context, date time.Time, code string) (*domain.Candidate, error) {
	row := s.pool.QueryRow(ctx, selectCandidateSQL+`WHERE trade_date = $1 AND code = $2`,
		domain.TradingDate(date), code)

	var c domain.Candidate
	if err := scanCandidate(row, &c); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get candidate: %w", err)
	}
	return &c, nil
}

// GetByDate retrieves all candidates for a date, ordered by code ASC.
func (s *CandidateStore) GetByDate(ctx context.Context, date time.Time) (_ []*domain.Candidate, err error) {
	defer s.pool.observe("get_candidates_by_date", time.Now(), &err)

	rows, err := s.pool.Query(ctx, selectCandidateSQL+`WHERE trade_date = $1 ORDER BY code ASC`,
		domain.TradingDate(date))
	if err != nil {
		return nil, fmt.Errorf("get candidates by date: %w", err)
	}
	defer rows.Close()

	var candidates []*domain.Candidate
	for rows.Next() {
		var c domain.Candidate
		if err := scanCandidate(rows, &c); err != nil {
			return nil, fmt.Errorf("scan candidate row: %w", err)
		}
		candidates = append(candidates, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate rows: %w", err)
	}
	return candidates, nil
}

// ListDates returns distinct dates with candidates within [from, to] (inclusive), ASC.
func (s *CandidateStore) ListDates(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT trade_date FROM candidates
		WHERE trade_date >= $1 AND trade_date <= $2
		ORDER BY trade_date ASC
	`, domain.TradingDate(from), domain.TradingDate(to))
	if err != nil {
		return nil, fmt.Errorf("list candidate dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan date row: %w", err)
		}
		dates = append(dates, domain.TradingDate(d))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate date rows: %w", err)
	}
	return dates, nil
}

// scanCandidate scans a single row into c.
func scanCandidate(row pgx.Row, c *domain.Candidate) error {
	err := row.Scan(
		&c.Date, &c.Code, &c.Name, &c.Score, &c.Reason,
		&c.ReferencePrice, &c.BaselineVolume, &c.CreatedAt,
	)
	if err != nil {
		return err
	}
	c.Date = domain.TradingDate(c.Date)
	return nil
}
