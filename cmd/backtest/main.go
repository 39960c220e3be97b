// Package main runs a multi-day opening trade simulation and prints its report.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"opening-trade-lab/internal/config"
	"opening-trade-lab/internal/domain"
	"opening-trade-lab/internal/fixtures"
	"opening-trade-lab/internal/logging"
	"opening-trade-lab/internal/orchestrator"
	"opening-trade-lab/internal/reporting"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Config file (YAML or JSON); env OTL_* overrides")
	fromStr := flag.String("from", "", "First trading date YYYY-MM-DD (default: first candidate date)")
	toStr := flag.String("to", "", "Last trading date YYYY-MM-DD (default: last candidate date)")
	dataPath := flag.String("data", "", "Intraday dataset file or directory to seed before running")
	sample := flag.Bool("sample", false, "Seed the bundled sample dataset")
	format := flag.String("format", "markdown", "Report format: markdown, json")
	outDir := flag.String("out", "", "Directory for equity.csv and trades.csv (optional)")
	verify := flag.Bool("verify", false, "Re-evaluate stored results after the run and fail on divergence")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Pretty).With().Str("component", "backtest").Logger()

	from, to, err := parseRange(*fromStr, *toStr)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid date range")
	}
	if *format != "markdown" && *format != "json" {
		logger.Fatal().Str("format", *format).Msg("format must be markdown or json")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Warn().Str("signal", sig.String()).Msg("cancelling run")
		cancel()
	}()

	ds, err := loadDataset(*dataPath, *sample)
	if err != nil {
		logger.Fatal().Err(err).Msg("load dataset")
	}

	stores, err := orchestrator.OpenStores(ctx, cfg.Storage, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("open stores")
	}
	defer stores.Close()

	if !stores.Persistent && ds == nil {
		logger.Info().Msg("no database configured and no dataset given, using bundled sample")
		if ds, err = fixtures.Sample(); err != nil {
			logger.Fatal().Err(err).Msg("load sample")
		}
	}

	orch := orchestrator.New(orchestrator.Options{
		Stores: stores,
		Config: cfg,
		Logger: &logger,
	})

	result, err := orch.Run(ctx, ds, from, to)
	if err != nil {
		logger.Error().Err(err).Msg("backtest failed")
		stores.Close()
		os.Exit(1)
	}
	if result.Report == nil {
		logger.Warn().Str("run_id", result.Simulation.Run.RunID).Msg("run produced no results")
		return
	}

	if err := writeReport(os.Stdout, result.Report, *format); err != nil {
		logger.Fatal().Err(err).Msg("write report")
	}
	if *outDir != "" {
		if err := writeCSVs(*outDir, result.Report, logger); err != nil {
			logger.Fatal().Err(err).Msg("write csv")
		}
	}

	if *verify {
		report, err := orch.Verify(ctx, result.Simulation.Run.RunID)
		if err != nil {
			logger.Fatal().Err(err).Msg("verify run")
		}
		for _, r := range report.Results {
			if !r.Match {
				logger.Error().Str("date", r.Date).Str("code", r.Code).Interface("divergences", r.Divergences).Msg("result diverged")
			}
		}
		if !report.Match() {
			logger.Fatal().Int("divergent", report.DivergentResults).Msg("verification failed")
		}
		logger.Info().Int("results", report.TotalResults).Msg("verification passed")
	}
}

// parseRange parses optional YYYY-MM-DD bounds. Empty bounds stay zero.
func parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	var from, to time.Time
	var err error
	if fromStr != "" {
		if from, err = domain.ParseTradingDate(fromStr); err != nil {
			return from, to, fmt.Errorf("from: %w", err)
		}
	}
	if toStr != "" {
		if to, err = domain.ParseTradingDate(toStr); err != nil {
			return from, to, fmt.Errorf("to: %w", err)
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return from, to, fmt.Errorf("to %s precedes from %s", toStr, fromStr)
	}
	return from, to, nil
}

func loadDataset(path string, sample bool) (*fixtures.Dataset, error) {
	switch {
	case path != "":
		return fixtures.Load(path)
	case sample:
		return fixtures.Sample()
	default:
		return nil, nil
	}
}

func writeReport(w io.Writer, doc *reporting.Document, format string) error {
	if format == "json" {
		return reporting.WriteJSON(w, doc)
	}
	_, err := io.WriteString(w, reporting.RenderMarkdown(doc))
	return err
}

func writeCSVs(dir string, doc *reporting.Document, logger zerolog.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{"equity.csv", func(w io.Writer) error { return reporting.WriteEquityCSV(w, doc.Curve) }},
		{"trades.csv", func(w io.Writer) error { return reporting.WriteTradesCSV(w, doc.Trades) }},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		out, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := f.write(out); err != nil {
			out.Close()
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := out.Close(); err != nil {
			return err
		}
		logger.Info().Str("path", path).Msg("wrote csv")
	}
	return nil
}
