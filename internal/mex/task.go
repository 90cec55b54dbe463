package mex

// SubTask is an external pipeline step (recompilation, reobfuscation)
// invoked as an opaque unit: it either succeeds or returns its failure.
// Sub-tasks run to completion synchronously; cancellation is process
// termination, so there is no context parameter.
type SubTask interface {
	// Run executes the sub-task for the given side. report, when
	// non-nil, receives the sub-task's own progress in [0,100]; the
	// pipeline rescales it into the running stage's band.
	Run(side Side, report func(percent int)) error
}
