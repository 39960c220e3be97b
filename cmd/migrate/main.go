// Package main applies the embedded PostgreSQL and ClickHouse migrations.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"opening-trade-lab/internal/config"
	"opening-trade-lab/internal/logging"
	"opening-trade-lab/internal/storage/migrations"
	pgstore "opening-trade-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Config file (YAML or JSON); env OTL_* overrides")
	skipPostgres := flag.Bool("skip-postgres", false, "Do not migrate PostgreSQL")
	skipClickhouse := flag.Bool("skip-clickhouse", false, "Do not migrate ClickHouse")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall timeout")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Pretty).With().Str("component", "migrate").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if !*skipPostgres {
		if cfg.Storage.PostgresDSN == "" {
			logger.Fatal().Msg("storage.postgres_dsn is required (OTL_STORAGE_POSTGRES_DSN)")
		}
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect postgres")
		}
		applied, err := migrations.RunPostgresMigrations(ctx, pool)
		pool.Close()
		if err != nil {
			logger.Fatal().Err(err).Strs("applied", applied).Msg("postgres migrations failed")
		}
		logger.Info().Strs("applied", applied).Msg("postgres migrated")
	}

	if !*skipClickhouse {
		if cfg.Storage.ClickHouseDSN == "" {
			logger.Fatal().Msg("storage.clickhouse_dsn is required (OTL_STORAGE_CLICKHOUSE_DSN)")
		}
		conn, applied, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickHouseDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("clickhouse migrations failed")
		}
		_ = conn.Close()
		logger.Info().Strs("applied", applied).Msg("clickhouse migrated")
	}
}
