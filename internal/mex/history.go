package mex

import "time"

// ExportRun is one recorded pipeline run. A row is written when a run
// finishes, successful or not; rows are diagnostics only. The state
// file, not the database, is the crash signal.
type ExportRun struct {
	ID         int64 // auto-increment row ID
	RunID      string
	Side       string
	Status     string // "success" or "error"
	Marker     string // last state marker written
	Progress   int
	Error      string // empty on success
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Run statuses recorded in the history store.
const (
	RunStatusSuccess = "success"
	RunStatusError   = "error"
)

// RunStore records finished export runs for the history command.
type RunStore interface {
	// RecordRun inserts a finished run and returns its row ID.
	RecordRun(run *ExportRun) (int64, error)

	// ListRuns returns the most recent runs, newest first.
	ListRuns(limit int) ([]*ExportRun, error)

	// Close closes the underlying store.
	Close() error
}
