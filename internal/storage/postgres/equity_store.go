package postgres

import (
	"context"
	"fmt"

	"opening-trade-lab/internal/domain"
	"opening-trade-lab/internal/storage"
)

// EquityStore implements storage.EquityStore using PostgreSQL.
type EquityStore struct {
	pool *Pool
}

// NewEquityStore creates a new EquityStore.
func NewEquityStore(pool *Pool) *EquityStore {
	return &EquityStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EquityStore = (*EquityStore)(nil)

// InsertBulk adds a run's points. Returns ErrDuplicateKey on existing (run_id, date).
func (s *EquityStore) InsertBulk(ctx context.Context, runID string, points []*domain.EquityPoint) error {
	if len(points) == 0 {
		return nil
	}
	if runID == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO equity_points (
			run_id, trade_date, capital_before, capital_after, daily_pl,
			daily_return_pct, cumulative_return_pct, num_instruments
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, p := range points {
		_, err := tx.Exec(ctx, query,
			runID, domain.TradingDate(p.Date), p.CapitalBefore, p.CapitalAfter, p.DailyPL,
			p.DailyReturnPct, p.CumulativeReturnPct, p.NumInstruments,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert equity point in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByRun retrieves a run's equity curve, ordered by date ASC.
func (s *EquityStore) GetByRun(ctx context.Context, runID string) ([]*domain.EquityPoint, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT trade_date, capital_before, capital_after, daily_pl,
		       daily_return_pct, cumulative_return_pct, num_instruments
		FROM equity_points
		WHERE run_id = $1
		ORDER BY trade_date ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("get equity by run: %w", err)
	}
	defer rows.Close()

	var points []*domain.EquityPoint
	for rows.Next() {
		var p domain.EquityPoint
		err := rows.Scan(
			&p.Date, &p.CapitalBefore, &p.CapitalAfter, &p.DailyPL,
			&p.DailyReturnPct, &p.CumulativeReturnPct, &p.NumInstruments,
		)
		if err != nil {
			return nil, fmt.Errorf("scan equity row: %w", err)
		}
		p.Date = domain.TradingDate(p.Date)
		points = append(points, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate equity rows: %w", err)
	}
	return points, nil
}
