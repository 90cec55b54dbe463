package testutil

import "mex-go/internal/mex"

// ScriptedTask is a canned mex.SubTask: it records the side it ran for,
// reports the configured progress values in order, then returns Err.
type ScriptedTask struct {
	// Progress values reported to the pipeline, in order.
	Progress []int

	// Err is returned after the progress values have been reported.
	Err error

	// Sides records the sides Run was called for.
	Sides []mex.Side
}

func (s *ScriptedTask) Run(side mex.Side, report func(percent int)) error {
	s.Sides = append(s.Sides, side)
	for _, pct := range s.Progress {
		if report != nil {
			report(pct)
		}
	}
	return s.Err
}

var _ mex.SubTask = (*ScriptedTask)(nil)
