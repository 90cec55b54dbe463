package mex

import (
	"fmt"
	"os"
)

// StatusReport is a snapshot of the export workspace: whether a state
// file from an interrupted run is present, the last completion
// manifest, the retained backups, and recent run history.
type StatusReport struct {
	// Interrupted holds the decoded state file when one is present.
	// Outside a live run its presence means the previous export did not
	// finish. Nil when no state file exists.
	Interrupted *ExportState

	// Manifest is the content of export_info.txt from the last
	// completed export, "" when none has completed yet.
	Manifest string

	Backups []BackupEntry

	// LastRuns lists recent runs from history, newest first.
	LastRuns []*ExportRun
}

// Status inspects the workspace without modifying it.
func (p *Pipeline) Status() (*StatusReport, error) {
	p.logger.Debug("computing export status", "dir", p.layout.ExportDir())

	report := &StatusReport{}

	if p.store.Exists() {
		st, err := p.store.Load()
		if err != nil {
			return nil, fmt.Errorf("reading export state: %w", err)
		}
		report.Interrupted = st
	}

	data, err := os.ReadFile(p.layout.ManifestFile())
	if err == nil {
		report.Manifest = string(data)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading export manifest: %w", err)
	}

	entries, err := p.backups.List()
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}
	report.Backups = entries

	if p.runs != nil {
		runs, err := p.runs.ListRuns(statusRunLimit)
		if err != nil {
			return nil, fmt.Errorf("listing run history: %w", err)
		}
		report.LastRuns = runs
	}

	return report, nil
}

// statusRunLimit bounds how much history Status pulls in.
const statusRunLimit = 5
