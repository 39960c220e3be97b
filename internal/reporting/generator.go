package reporting

import (
	"context"
	"fmt"
	"time"

	"opening-trade-lab/internal/domain"
	"opening-trade-lab/internal/metrics"
	"opening-trade-lab/internal/storage"
)

// Generator produces reports from stored runs.
type Generator struct {
	runStore   storage.RunStore
	aggregator *metrics.Aggregator
	now        func() time.Time // injectable for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(runStore storage.RunStore, aggregator *metrics.Aggregator) *Generator {
	return &Generator{
		runStore:   runStore,
		aggregator: aggregator,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the report of runID, or of the latest run when runID is empty.
// Returns storage.ErrNotFound for unknown runs and metrics.ErrNoResults for empty ones.
func (g *Generator) Generate(ctx context.Context, runID string) (*Document, error) {
	var (
		run *domain.Run
		err error
	)
	if runID == "" {
		run, err = g.runStore.Latest(ctx)
	} else {
		run, err = g.runStore.Get(ctx, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}

	report, err := g.aggregator.ComputeReport(ctx, run)
	if err != nil {
		return nil, err
	}
	return g.Wrap(report), nil
}

// Wrap stamps an already computed report.
func (g *Generator) Wrap(report *metrics.Report) *Document {
	return &Document{GeneratedAt: g.now(), Report: report}
}
