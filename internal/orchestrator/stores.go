package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"opening-trade-lab/internal/config"
	"opening-trade-lab/internal/observability"
	"opening-trade-lab/internal/storage"
	chstore "opening-trade-lab/internal/storage/clickhouse"
	"opening-trade-lab/internal/storage/memory"
	pgstore "opening-trade-lab/internal/storage/postgres"
)

// ErrPartialStorage is returned when only one of the two database DSNs is set.
var ErrPartialStorage = errors.New("postgres and clickhouse DSNs must be set together")

// Stores holds every storage implementation used by a run.
type Stores struct {
	Candidates storage.CandidateStore
	Candles    storage.CandleStore
	Results    storage.ResultStore
	Equity     storage.EquityStore
	Runs       storage.RunStore

	// Persistent is true when backed by PostgreSQL and ClickHouse.
	Persistent bool

	closers []func()
}

// MemoryStores returns empty in-memory stores.
func MemoryStores() *Stores {
	return &Stores{
		Candidates: memory.NewCandidateStore(),
		Candles:    memory.NewCandleStore(),
		Results:    memory.NewResultStore(),
		Equity:     memory.NewEquityStore(),
		Runs:       memory.NewRunStore(),
	}
}

// OpenStores connects to PostgreSQL (candidates, runs, results, equity) and
// ClickHouse (candles). Empty DSNs select in-memory stores.
func OpenStores(ctx context.Context, cfg config.StorageConfig, m *observability.Metrics) (*Stores, error) {
	if cfg.PostgresDSN == "" && cfg.ClickHouseDSN == "" {
		return MemoryStores(), nil
	}
	if cfg.PostgresDSN == "" || cfg.ClickHouseDSN == "" {
		return nil, ErrPartialStorage
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	pool.WithMetrics(m)

	chConn, err := chstore.NewConn(ctx, cfg.ClickHouseDSN)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	chConn.WithMetrics(m)

	return &Stores{
		Candidates: pgstore.NewCandidateStore(pool),
		Candles:    chstore.NewCandleStore(chConn),
		Results:    pgstore.NewResultStore(pool),
		Equity:     pgstore.NewEquityStore(pool),
		Runs:       pgstore.NewRunStore(pool),
		Persistent: true,
		closers: []func(){
			func() { _ = chConn.Close() },
			pool.Close,
		},
	}, nil
}

// Close releases database connections. Safe on memory stores.
func (s *Stores) Close() {
	for _, c := range s.closers {
		c()
	}
	s.closers = nil
}
