package domain

import "time"

// RunStatus is the lifecycle state of a simulation run.
type RunStatus string

// RunStatus constants
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run describes one simulation over a date range.
// Corresponds to runs table in PostgreSQL.
type Run struct {
	RunID          string     `json:"run_id"`          // deterministic, see idhash
	From           time.Time  `json:"from"`            // first trading date, inclusive
	To             time.Time  `json:"to"`              // last trading date, inclusive
	InitialCapital float64    `json:"initial_capital"` // aggregator starting capital
	ConfigHash     string     `json:"config_hash"`     // hash of the engine configuration
	Status         RunStatus  `json:"status"`
	LastDate       *time.Time `json:"last_date"`   // last fully processed date
	CreatedAt      int64      `json:"created_at"`  // ms
	FinishedAt     *int64     `json:"finished_at"` // ms, nil while running
}
