package mex

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Pipeline drives the five-stage export: prepare, recompile, reobf,
// package, finalize. Stages run strictly in order; the first failure
// aborts the run and leaves the most recent state write on disk as a
// breadcrumb for the next run's diagnostics. Recovery is advisory only:
// a leftover state file is reported, never resumed.
type Pipeline struct {
	layout    *Layout
	store     StateStore
	backups   BackupManager
	packager  Packager
	recompile SubTask
	reobf     SubTask
	runs      RunStore
	logger    Logger
	clock     Clock
	idgen     IDGenerator

	// Version is the identifier written to the export manifest; empty
	// means "unknown".
	Version string

	// Progress, when non-nil, receives overall progress updates during
	// Run. Values are monotonically non-decreasing within one run.
	Progress ProgressFunc
}

// NewPipeline creates a Pipeline with the provided collaborators.
func NewPipeline(layout *Layout, store StateStore, backups BackupManager, packager Packager, recompile, reobf SubTask, runs RunStore, logger Logger, clock Clock, idgen IDGenerator) *Pipeline {
	return &Pipeline{
		layout:    layout,
		store:     store,
		backups:   backups,
		packager:  packager,
		recompile: recompile,
		reobf:     reobf,
		runs:      runs,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
	}
}

// runContext threads per-run state through the stage operations: the
// run identity, the stage currently executing, the last state marker
// written, and the last overall percentage reported.
type runContext struct {
	id        string
	side      Side
	stage     Stage
	marker    string
	lastPct   int
	started   time.Time
	artifacts []string
}

// RunReport describes how far a run got. It is returned for failed runs
// too, so callers can record the outcome.
type RunReport struct {
	RunID     string
	Side      Side
	Marker    string // last state marker written, "" if none
	Progress  int
	Artifacts []string // packaged archive paths
	StartedAt time.Time
}

func (rc *runContext) summary() *RunReport {
	return &RunReport{
		RunID:     rc.id,
		Side:      rc.side,
		Marker:    rc.marker,
		Progress:  rc.lastPct,
		Artifacts: rc.artifacts,
		StartedAt: rc.started,
	}
}

// Run executes the full export pipeline for the given side. The
// returned report is non-nil even on failure; the error, if any, is a
// *StageError naming the stage that failed.
func (p *Pipeline) Run(side Side) (*RunReport, error) {
	rc := &runContext{id: p.idgen.New(), side: side, started: p.clock.Now()}
	p.logger.Info("export started", "run", rc.id, "side", side.String())

	for _, def := range p.stageTable() {
		rc.stage = def.stage
		p.logger.Debug("entering stage", "stage", def.stage.String())
		if err := def.run(rc); err != nil {
			p.logger.Error("export failed", "stage", def.stage.String(), "error", err)
			stageErr := &StageError{Stage: def.stage, Err: err}
			p.recordOutcome(rc, stageErr)
			return rc.summary(), stageErr
		}
	}

	p.recordOutcome(rc, nil)
	return rc.summary(), nil
}

// recordOutcome appends the run to the history store. The state file,
// not the database, carries the crash signal; a history write failure
// is logged and does not change the run's outcome.
func (p *Pipeline) recordOutcome(rc *runContext, runErr error) {
	if p.runs == nil {
		return
	}

	finished := p.clock.Now()
	run := &ExportRun{
		RunID:      rc.id,
		Side:       rc.side.String(),
		Status:     RunStatusSuccess,
		Marker:     rc.marker,
		Progress:   rc.lastPct,
		StartedAt:  rc.started,
		FinishedAt: &finished,
	}
	if runErr != nil {
		run.Status = RunStatusError
		run.Error = runErr.Error()
	}

	if _, err := p.runs.RecordRun(run); err != nil {
		p.logger.Warn("recording run history failed", "error", err)
	}
}

// advance maps a sub-progress value into the current stage's band and
// reports it. Reported progress never decreases within a run.
func (p *Pipeline) advance(rc *runContext, sub int) {
	overall := OverallProgress(rc.stage, sub)
	if overall < rc.lastPct {
		overall = rc.lastPct
	}
	if overall > 100 {
		overall = 100
	}
	rc.lastPct = overall
	if p.Progress != nil {
		p.Progress(rc.stage, overall)
	}
}

// saveState writes the recovery record and tracks the marker on the run
// context. State write failures are fatal to the run.
func (p *Pipeline) saveState(rc *runContext, marker string, progress int) error {
	if err := p.store.Save(marker, progress, rc.side); err != nil {
		return fmt.Errorf("saving export state %s: %w", marker, err)
	}
	rc.marker = marker
	return nil
}

// backupSides archives each concrete side's compiled output under the
// given label, before the next stage rewrites the tree. A backup
// failure aborts the run.
func (p *Pipeline) backupSides(side Side, label string) error {
	for _, s := range side.Expand() {
		path, err := p.backups.Create(p.layout.BinDir(s), label, s)
		if err != nil {
			return fmt.Errorf("creating %s backup for %s: %w", label, s, err)
		}
		if path != "" {
			p.logger.Info("backup created", "file", filepath.Base(path))
		}
	}
	return nil
}

// prepareExport ensures the export directory structure exists, runs the
// recovery diagnostics if a previous run left its state behind, and
// writes the initial state record.
func (p *Pipeline) prepareExport(rc *runContext) error {
	if err := os.MkdirAll(p.layout.ExportDir(), 0755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}
	if err := os.MkdirAll(p.layout.BackupDir(), 0755); err != nil {
		return fmt.Errorf("creating backup directory: %w", err)
	}

	if p.store.Exists() {
		if err := p.recoverDiagnostics(); err != nil {
			return err
		}
	}

	if err := p.saveState(rc, MarkerPrepare, 0); err != nil {
		return err
	}
	p.advance(rc, 0)
	p.logger.Info("export preparation complete")
	return nil
}

// recoverDiagnostics reads a leftover state file and logs what the
// interrupted run left behind: the stage it reached, when, and how many
// backup archives are available. The fresh run proceeds from the first
// stage regardless; the stale record is consumed for diagnostics only.
func (p *Pipeline) recoverDiagnostics() error {
	st, err := p.store.Load()
	if err != nil {
		return fmt.Errorf("reading previous export state: %w", err)
	}
	if st == nil {
		return nil
	}

	p.logger.Info("previous export was interrupted",
		"stage", st.Stage, "timestamp", st.Timestamp, "side", st.Side)

	entries, err := p.backups.List()
	if err != nil {
		return fmt.Errorf("listing backups: %w", err)
	}
	if len(entries) > 0 {
		p.logger.Info("backups available for recovery", "count", len(entries))
	}
	return nil
}

// recompileSource backs up the current compiled output, then invokes
// the external recompilation sub-task.
func (p *Pipeline) recompileSource(rc *runContext) error {
	if err := p.saveState(rc, MarkerRecompile, 10); err != nil {
		return err
	}
	p.advance(rc, 0)

	if err := p.backupSides(rc.side, "pre_recompile"); err != nil {
		return err
	}

	if err := p.recompile.Run(rc.side, func(sub int) { p.advance(rc, sub) }); err != nil {
		return fmt.Errorf("recompiling source: %w", err)
	}

	if err := p.saveState(rc, MarkerRecompileDone, 39); err != nil {
		return err
	}
	p.advance(rc, 100)
	p.logger.Info("recompilation complete")
	return nil
}

// reobfuscateClasses backs up the compiled output, then invokes the
// external reobfuscation sub-task.
func (p *Pipeline) reobfuscateClasses(rc *runContext) error {
	if err := p.saveState(rc, MarkerReobf, 40); err != nil {
		return err
	}
	p.advance(rc, 0)

	if err := p.backupSides(rc.side, "pre_reobf"); err != nil {
		return err
	}

	if err := p.reobf.Run(rc.side, func(sub int) { p.advance(rc, sub) }); err != nil {
		return fmt.Errorf("reobfuscating classes: %w", err)
	}

	if err := p.saveState(rc, MarkerReobfDone, 69); err != nil {
		return err
	}
	p.advance(rc, 100)
	p.logger.Info("reobfuscation complete")
	return nil
}

// packageMod packages each concrete side implied by the run's side. A
// side without reobfuscated output is skipped silently; one with an
// empty class set gets a warning; otherwise a pre-package backup is
// taken and the mod archive written.
func (p *Pipeline) packageMod(rc *runContext) error {
	if err := p.saveState(rc, MarkerPackage, 70); err != nil {
		return err
	}
	p.advance(rc, 0)

	sides := rc.side.Expand()
	for i, s := range sides {
		p.advance(rc, i*100/len(sides))

		res, err := p.packager.PackageSide(s, func() error {
			if _, err := p.backups.Create(p.layout.BinDir(s), "pre_package", s); err != nil {
				return fmt.Errorf("creating pre_package backup for %s: %w", s, err)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("packaging %s: %w", s, err)
		}

		switch {
		case res.Skipped:
			p.logger.Debug("no reobfuscated output, skipping side", "side", s.String())
		case res.Empty:
			p.logger.Warn("no modified classes found", "side", s.String())
		default:
			rc.artifacts = append(rc.artifacts, res.ArchivePath)
			p.logger.Info("created mod archive",
				"file", filepath.Base(res.ArchivePath),
				"classes", res.Classes, "resources", res.Resources)
		}
	}

	if err := p.saveState(rc, MarkerPackageDone, 89); err != nil {
		return err
	}
	p.advance(rc, 100)
	return nil
}

// finalizeExport writes the completion manifest and deletes the
// recovery state file. The deletion is what marks the run as complete.
func (p *Pipeline) finalizeExport(rc *runContext) error {
	if err := p.saveState(rc, MarkerFinalize, 90); err != nil {
		return err
	}
	p.advance(rc, 90)

	version := p.Version
	if version == "" {
		version = "unknown"
	}
	info := fmt.Sprintf("Export completed: %s\nSide: %s\nVersion: %s\n",
		p.clock.Now().Format(ManifestStampLayout), rc.side, version)
	if err := os.WriteFile(p.layout.ManifestFile(), []byte(info), 0644); err != nil {
		return fmt.Errorf("writing export manifest: %w", err)
	}

	if err := p.store.Clear(); err != nil {
		return fmt.Errorf("clearing export state: %w", err)
	}

	p.advance(rc, 100)
	p.logger.Info("export finalized", "dir", p.layout.ExportDir())
	return nil
}
