package reporting

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"opening-trade-lab/internal/domain"
	"opening-trade-lab/internal/metrics"
	"opening-trade-lab/internal/storage"
	"opening-trade-lab/internal/storage/memory"
)

var fixedClock = func() time.Time { return time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC) }

func hitAt(h, m int) *domain.Clock {
	c := domain.NewClock(h, m, 0)
	return &c
}

func result(day, code, name string, score float64, hit domain.FirstHit, closing float64, hitTime *domain.Clock) *domain.InstrumentResult {
	d, _ := domain.ParseTradingDate(day)
	o := &domain.Outcome{
		ScenarioName: domain.ScenarioStandard,
		EntryPrice:   100,
		FirstHit:     hit,
		FirstHitTime: hitTime,
		ClosingPct:   closing,
	}
	routed := domain.Actual(o)
	return &domain.InstrumentResult{
		RunID:     "run-1",
		Date:      d,
		Code:      code,
		Name:      name,
		Score:     score,
		Status:    domain.ResultStatusOK,
		Primary:   &routed,
		Scenarios: []*domain.Outcome{o},
		Swing:     &domain.SwingResult{ClosingPct: closing, Signal: domain.SwingHold},
	}
}

// Helper to seed a run with results and return a generator over it.
func setupTestData(t *testing.T) *Generator {
	t.Helper()
	ctx := context.Background()

	runs := memory.NewRunStore()
	if err := runs.Insert(ctx, &domain.Run{
		RunID: "run-1", InitialCapital: 10_000_000, Status: domain.RunStatusCompleted,
		From: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), To: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("insert run: %v", err)
	}

	results := memory.NewResultStore()
	if err := results.InsertBulk(ctx, []*domain.InstrumentResult{
		result("2024-03-04", "000001", "Alpha, Inc", 90, domain.FirstHitProfit, 4, hitAt(9, 12)),
		result("2024-03-04", "000002", "Beta", 60, domain.FirstHitLoss, -3, hitAt(9, 45)),
		result("2024-03-05", "000001", "Alpha, Inc", 90, domain.FirstHitNone, 1, nil),
	}); err != nil {
		t.Fatalf("insert results: %v", err)
	}

	agg := metrics.NewAggregator(results, memory.NewEquityStore(), nil)
	return NewGenerator(runs, agg).WithClock(fixedClock)
}

func TestGenerator_Generate(t *testing.T) {
	g := setupTestData(t)

	doc, err := g.Generate(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !doc.GeneratedAt.Equal(fixedClock()) {
		t.Errorf("GeneratedAt = %v", doc.GeneratedAt)
	}
	if doc.Summary.Trades != 3 {
		t.Errorf("Trades = %d, want 3", doc.Summary.Trades)
	}
	if len(doc.Curve) != 2 {
		t.Errorf("Curve = %d points, want 2", len(doc.Curve))
	}

	latest, err := g.Generate(context.Background(), "")
	if err != nil {
		t.Fatalf("Generate latest failed: %v", err)
	}
	if latest.Run.RunID != "run-1" {
		t.Errorf("latest run = %s", latest.Run.RunID)
	}
}

func TestGenerator_UnknownRun(t *testing.T) {
	g := setupTestData(t)
	if _, err := g.Generate(context.Background(), "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRenderMarkdown(t *testing.T) {
	g := setupTestData(t)
	doc, err := g.Generate(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(doc)
	for _, want := range []string{
		"# Opening Trade Report",
		"Generated: 2024-04-01T12:00:00Z",
		"Run: `run-1` | 2024-03-04 to 2024-03-05",
		"| Profit / Loss / None | 1 / 1 / 1 |",
		"## By Score Range",
		"| 81-100 | 2 |",
		"## By Weekday",
		"| Monday |",
		"## By First Hit Time",
		"| 09:00-09:30 | 1 |",
		"| 09:30-10:00 | 1 |",
		"| hold | 3 |",
		"## Equity Curve",
		"| 2024-03-04 | 2 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
	if strings.Contains(md, "## Data Quality") {
		t.Error("unexpected data quality section")
	}

	// deterministic
	if md != RenderMarkdown(doc) {
		t.Error("markdown not deterministic")
	}
}

func TestWriteEquityCSV(t *testing.T) {
	g := setupTestData(t)
	doc, _ := g.Generate(context.Background(), "run-1")

	var buf bytes.Buffer
	if err := WriteEquityCSV(&buf, doc.Curve); err != nil {
		t.Fatalf("WriteEquityCSV: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[0][0] != "date" || rows[1][0] != "2024-03-04" {
		t.Errorf("unexpected rows: %v", rows[:2])
	}
	// +4% and -3% on half the capital each
	if rows[1][3] != "10050000.000000" {
		t.Errorf("capital_after = %s", rows[1][3])
	}
}

func TestWriteTradesCSV_QuotesNames(t *testing.T) {
	g := setupTestData(t)
	doc, _ := g.Generate(context.Background(), "run-1")

	var buf bytes.Buffer
	if err := WriteTradesCSV(&buf, doc.Trades); err != nil {
		t.Fatalf("WriteTradesCSV: %v", err)
	}
	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want header + 3", len(rows))
	}
	if rows[1][2] != "Alpha, Inc" {
		t.Errorf("name = %q", rows[1][2])
	}
	if rows[1][6] != "09:12:00" {
		t.Errorf("first_hit_time = %q", rows[1][6])
	}
	if rows[3][5] != string(domain.FirstHitNone) || rows[3][6] != "" {
		t.Errorf("none row = %v", rows[3])
	}
}

func TestWriteJSON(t *testing.T) {
	g := setupTestData(t)
	doc, _ := g.Generate(context.Background(), "run-1")

	var buf bytes.Buffer
	if err := WriteJSON(&buf, doc); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"generated_at", "run", "summary", "equity_curve", "by_score"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("json missing %q", key)
		}
	}
}
