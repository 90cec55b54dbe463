package mex

import "fmt"

// Stage is one sequential phase of the export pipeline. Stages run in
// declaration order with no skipping and no retry-in-place.
type Stage int

const (
	StagePrepare Stage = iota
	StageRecompile
	StageReobf
	StagePackage
	StageFinalize
)

func (s Stage) String() string {
	switch s {
	case StagePrepare:
		return "prepare"
	case StageRecompile:
		return "recompile"
	case StageReobf:
		return "reobf"
	case StagePackage:
		return "package"
	case StageFinalize:
		return "finalize"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// State markers persisted to the recovery state file. They are finer
// grained than the stages: the _DONE markers record that a stage's work
// completed before the next stage was entered.
const (
	MarkerPrepare       = "PREPARE"
	MarkerRecompile     = "RECOMPILE"
	MarkerRecompileDone = "RECOMPILE_DONE"
	MarkerReobf         = "REOBF"
	MarkerReobfDone     = "REOBF_DONE"
	MarkerPackage       = "PACKAGE"
	MarkerPackageDone   = "PACKAGE_DONE"
	MarkerFinalize      = "FINALIZE"
)

// stageDef describes one pipeline stage: its identifier, the overall
// percentage band it owns, and the operation that runs it. The table in
// Pipeline.stageTable is the single source of stage ordering.
type stageDef struct {
	stage Stage
	start int // overall progress when the stage is entered
	done  int // overall progress recorded when the stage's work completes
	run   func(*runContext) error
}

func (p *Pipeline) stageTable() []stageDef {
	return []stageDef{
		{StagePrepare, 0, 9, p.prepareExport},
		{StageRecompile, 10, 39, p.recompileSource},
		{StageReobf, 40, 69, p.reobfuscateClasses},
		{StagePackage, 70, 89, p.packageMod},
		{StageFinalize, 90, 100, p.finalizeExport},
	}
}
