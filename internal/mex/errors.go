package mex

import "fmt"

// StageError marks a pipeline failure with the stage it happened in.
// The run loop wraps the first failing stage operation's error and stops;
// the most recent state write stays on disk for the next run's diagnostics.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
