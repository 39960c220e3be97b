package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"opening-trade-lab/internal/config"
	"opening-trade-lab/internal/domain"
	"opening-trade-lab/internal/fixtures"
)

var fixedNow = func() time.Time { return time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC) }

func loadSample(t *testing.T) *fixtures.Dataset {
	t.Helper()
	ds, err := fixtures.Sample()
	if err != nil {
		t.Fatalf("load sample: %v", err)
	}
	return ds
}

func TestOrchestrator_Run_EmptyStores(t *testing.T) {
	orch := New(Options{})

	_, err := orch.Run(context.Background(), nil, time.Time{}, time.Time{})
	if !errors.Is(err, ErrNoDates) {
		t.Fatalf("expected ErrNoDates, got: %v", err)
	}
}

func TestOrchestrator_Run_Sample(t *testing.T) {
	ctx := context.Background()
	orch := New(Options{Config: config.Default()}).WithClock(fixedNow)

	result, err := orch.Run(ctx, loadSample(t), time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if result.Seeded.Days != 3 || result.Seeded.Candidates != 12 {
		t.Errorf("unexpected seed stats: %+v", result.Seeded)
	}

	run := result.Simulation.Run
	if run.Status != domain.RunStatusCompleted {
		t.Errorf("expected completed run, got %s", run.Status)
	}
	if got := run.From.Format(domain.DateLayout); got != "2024-03-04" {
		t.Errorf("expected range start 2024-03-04, got %s", got)
	}
	if got := run.To.Format(domain.DateLayout); got != "2024-03-06" {
		t.Errorf("expected range end 2024-03-06, got %s", got)
	}
	if len(result.Simulation.Results) != 12 {
		t.Errorf("expected 12 results, got %d", len(result.Simulation.Results))
	}

	noData := 0
	for _, r := range result.Simulation.Results {
		if r.Status == domain.ResultStatusNoData {
			noData++
		}
	}
	if noData != 1 {
		t.Errorf("expected 1 no_data result, got %d", noData)
	}

	if result.Report == nil {
		t.Fatal("expected report")
	}
	if !result.Report.GeneratedAt.Equal(fixedNow()) {
		t.Errorf("unexpected report time %v", result.Report.GeneratedAt)
	}
	if result.Report.Summary.Instruments != 12 {
		t.Errorf("expected 12 instruments in summary, got %d", result.Report.Summary.Instruments)
	}
	if len(result.Report.Curve) == 0 {
		t.Error("expected a non-empty equity curve")
	}
}

func TestOrchestrator_Run_Idempotent(t *testing.T) {
	ctx := context.Background()
	orch := New(Options{})
	ds := loadSample(t)

	first, err := orch.Run(ctx, ds, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := orch.Run(ctx, ds, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if second.Seeded.SkippedDays != 3 || second.Seeded.Days != 0 {
		t.Errorf("expected all days skipped on reseed, got %+v", second.Seeded)
	}
	if first.Simulation.Run.RunID != second.Simulation.Run.RunID {
		t.Errorf("run id changed: %s vs %s", first.Simulation.Run.RunID, second.Simulation.Run.RunID)
	}
	if len(second.Simulation.Results) != len(first.Simulation.Results) {
		t.Errorf("expected %d results, got %d", len(first.Simulation.Results), len(second.Simulation.Results))
	}
	a, b := first.Simulation.Curve, second.Simulation.Curve
	if len(a) != len(b) || a[len(a)-1].CapitalAfter != b[len(b)-1].CapitalAfter {
		t.Error("curve differs between runs")
	}
}

func TestOrchestrator_Report(t *testing.T) {
	ctx := context.Background()
	orch := New(Options{}).WithClock(fixedNow)

	result, err := orch.Run(ctx, loadSample(t), time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	doc, err := orch.Report(ctx, "")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if doc.Run.RunID != result.Simulation.Run.RunID {
		t.Errorf("expected latest run %s, got %s", result.Simulation.Run.RunID, doc.Run.RunID)
	}
	if doc.Summary.FinalCapital != result.Report.Summary.FinalCapital {
		t.Errorf("stored report capital %v differs from in-run %v", doc.Summary.FinalCapital, result.Report.Summary.FinalCapital)
	}
	if len(doc.DataQuality) != 0 {
		t.Errorf("unexpected data quality errors: %v", doc.DataQuality)
	}
}

func TestOpenStores(t *testing.T) {
	ctx := context.Background()

	stores, err := OpenStores(ctx, config.StorageConfig{}, nil)
	if err != nil {
		t.Fatalf("memory stores: %v", err)
	}
	if stores.Persistent {
		t.Error("expected memory stores")
	}
	stores.Close()

	_, err = OpenStores(ctx, config.StorageConfig{PostgresDSN: "postgres://localhost/x"}, nil)
	if !errors.Is(err, ErrPartialStorage) {
		t.Errorf("expected ErrPartialStorage, got %v", err)
	}
}

func TestOrchestrator_Verify(t *testing.T) {
	ctx := context.Background()
	orch := New(Options{})

	result, err := orch.Run(ctx, loadSample(t), time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	report, err := orch.Verify(ctx, result.Simulation.Run.RunID)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !report.Match() || report.TotalResults != 12 {
		t.Errorf("expected 12 matching results, got %+v", report)
	}
}
