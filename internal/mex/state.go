package mex

// ExportState is the persisted recovery record. It is written at every
// stage transition and deleted exactly once, on successful completion,
// so its presence on disk at the start of a run is the crash signal.
//
// Fields mirror the state file's text entries. Side and Timestamp stay
// raw strings: the record is diagnostic and a partially written or
// older-format file must still load.
type ExportState struct {
	Stage     string // state marker, e.g. "REOBF_DONE"
	Progress  int    // overall percentage at the time of the write
	Side      string // side name of the interrupted run
	Timestamp string // wall-clock time of the write, "unknown" if absent
}

// StateStore persists the pipeline's recovery state as a single durable
// record.
type StateStore interface {
	// Save overwrites the state record with the given marker, progress,
	// and side. Errors are fatal to the pipeline run.
	Save(stage string, progress int, side Side) error

	// Load reads the state record. Returns (nil, nil) when no record
	// exists. Missing or malformed fields fall back to defaults
	// (stage "PREPARE", timestamp "unknown") rather than failing, so a
	// partially written file never blocks diagnostics.
	Load() (*ExportState, error)

	// Exists reports whether a state record is present.
	Exists() bool

	// Clear deletes the state record. Clearing an absent record is not
	// an error.
	Clear() error
}
