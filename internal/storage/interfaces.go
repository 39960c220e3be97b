package storage

import (
	"context"
	"time"

	"opening-trade-lab/internal/domain"
)

// CandidateStore provides access to candidates storage.
// Dates are trading days truncated to UTC midnight.
type CandidateStore interface {
	// Insert adds a new candidate. Returns ErrDuplicateKey if (date, code) exists.
	Insert(ctx context.Context, c *domain.Candidate) error

	// InsertBulk adds multiple candidates atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, candidates []*domain.Candidate) error

	// Get retrieves one candidate. Returns ErrNotFound if not exists.
	Get(ctx context.Context, date time.Time, code string) (*domain.Candidate, error)

	// GetByDate retrieves all candidates for a date, ordered by code ASC.
	GetByDate(ctx context.Context, date time.Time) ([]*domain.Candidate, error)

	// ListDates returns distinct dates with candidates within [from, to] (inclusive), ASC.
	ListDates(ctx context.Context, from, to time.Time) ([]time.Time, error)
}

// CandleStore provides access to intraday_candles storage.
type CandleStore interface {
	// InsertBulk adds one instrument's candles for a date.
	// Fails entire batch on duplicate (date, code, time).
	InsertBulk(ctx context.Context, date time.Time, code string, candles domain.CandleSeries) error

	// GetSeries retrieves one instrument's candles for a date, ordered by time ASC.
	// Returns an empty series when no data exists.
	GetSeries(ctx context.Context, date time.Time, code string) (domain.CandleSeries, error)

	// ListCodes returns instrument codes with candles on a date, ASC.
	ListCodes(ctx context.Context, date time.Time) ([]string, error)
}

// ResultStore provides access to instrument_results storage.
type ResultStore interface {
	// InsertBulk adds results atomically. Returns ErrDuplicateKey on existing (run_id, date, code).
	InsertBulk(ctx context.Context, results []*domain.InstrumentResult) error

	// GetByRun retrieves all results of a run, ordered by date ASC, code ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.InstrumentResult, error)

	// GetByRunDate retrieves one day's results of a run, ordered by code ASC.
	GetByRunDate(ctx context.Context, runID string, date time.Time) ([]*domain.InstrumentResult, error)
}

// EquityStore provides access to equity_points storage.
type EquityStore interface {
	// InsertBulk adds a run's points. Returns ErrDuplicateKey on existing (run_id, date).
	InsertBulk(ctx context.Context, runID string, points []*domain.EquityPoint) error

	// GetByRun retrieves a run's equity curve, ordered by date ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.EquityPoint, error)
}
