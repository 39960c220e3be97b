// Package main loads an intraday dataset into candidate and candle storage.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"opening-trade-lab/internal/config"
	"opening-trade-lab/internal/fixtures"
	"opening-trade-lab/internal/logging"
	"opening-trade-lab/internal/orchestrator"
)

func main() {
	configPath := flag.String("config", "", "Config file (YAML or JSON); env OTL_* overrides")
	dataPath := flag.String("data", "", "Intraday dataset file or directory (default: bundled sample)")
	skipExisting := flag.Bool("skip-existing", true, "Skip days whose candidates are already stored")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Pretty).With().Str("component", "seed").Logger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var ds *fixtures.Dataset
	if *dataPath != "" {
		ds, err = fixtures.Load(*dataPath)
	} else {
		ds, err = fixtures.Sample()
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("load dataset")
	}

	stores, err := orchestrator.OpenStores(ctx, cfg.Storage, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("open stores")
	}
	defer stores.Close()
	if !stores.Persistent {
		logger.Fatal().Msg("seeding requires storage.postgres_dsn and storage.clickhouse_dsn")
	}

	seeder := fixtures.NewSeeder(fixtures.SeederOptions{
		CandidateStore: stores.Candidates,
		CandleStore:    stores.Candles,
		SkipExisting:   *skipExisting,
		Logger:         &logger,
	})
	stats, err := seeder.Seed(ctx, ds)
	if err != nil {
		logger.Error().Err(err).Int("days", stats.Days).Msg("seed failed")
		stores.Close()
		os.Exit(1)
	}
	fmt.Printf("seeded %d days (%d skipped): %d candidates, %d candles\n",
		stats.Days, stats.SkippedDays, stats.Candidates, stats.Candles)
}
