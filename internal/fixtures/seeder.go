package fixtures

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"opening-trade-lab/internal/storage"
)

// SeedStats counts what a Seed call wrote.
type SeedStats struct {
	Days        int
	SkippedDays int
	Candidates  int
	Candles     int
}

// Seeder writes datasets into candidate and candle storage.
// Duplicates are rejected by the storage layer (ErrDuplicateKey).
type Seeder struct {
	candidateStore storage.CandidateStore
	candleStore    storage.CandleStore
	skipExisting   bool
	now            func() time.Time
	logger         zerolog.Logger
}

// SeederOptions contains configuration for creating a Seeder.
type SeederOptions struct {
	CandidateStore storage.CandidateStore
	CandleStore    storage.CandleStore

	// SkipExisting skips days whose candidates are already stored instead of failing.
	SkipExisting bool
	Logger       *zerolog.Logger
}

// NewSeeder creates a new dataset seeder.
func NewSeeder(opts SeederOptions) *Seeder {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Seeder{
		candidateStore: opts.CandidateStore,
		candleStore:    opts.CandleStore,
		skipExisting:   opts.SkipExisting,
		now:            time.Now,
		logger:         logger.With().Str("component", "seeder").Logger(),
	}
}

// Seed stores every day of ds in date order.
// Per day, candidates are inserted first, then each instrument's candles.
// Instruments without minute data get a candidate row only.
func (s *Seeder) Seed(ctx context.Context, ds *Dataset) (SeedStats, error) {
	var stats SeedStats
	createdAt := s.now().UnixMilli()

	for _, day := range ds.Days {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		candidates := day.Candidates(createdAt)
		if err := s.candidateStore.InsertBulk(ctx, candidates); err != nil {
			if s.skipExisting && errors.Is(err, storage.ErrDuplicateKey) {
				s.logger.Info().Str("date", day.Date).Msg("day already seeded, skipping")
				stats.SkippedDays++
				continue
			}
			return stats, fmt.Errorf("seed candidates %s: %w", day.Date, err)
		}
		stats.Candidates += len(candidates)

		date := day.TradingDate()
		for _, code := range day.Codes() {
			series, err := day.Stocks[code].Series()
			if err != nil {
				return stats, err
			}
			if len(series) == 0 {
				continue
			}
			if err := s.candleStore.InsertBulk(ctx, date, code, series); err != nil {
				return stats, fmt.Errorf("seed candles %s/%s: %w", day.Date, code, err)
			}
			stats.Candles += len(series)
		}

		stats.Days++
		s.logger.Debug().Str("date", day.Date).Int("instruments", len(candidates)).Msg("day seeded")
	}

	s.logger.Info().
		Int("days", stats.Days).
		Int("skipped", stats.SkippedDays).
		Int("candidates", stats.Candidates).
		Int("candles", stats.Candles).
		Msg("dataset seeded")
	return stats, nil
}
