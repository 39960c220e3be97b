// Package reporting renders run reports as Markdown, CSV and JSON.
package reporting

import (
	"time"

	"opening-trade-lab/internal/metrics"
)

// Document is a rendered-ready run report.
type Document struct {
	GeneratedAt time.Time `json:"generated_at"`
	*metrics.Report
}
