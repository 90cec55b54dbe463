package task

import (
	"fmt"
	"time"

	"mex-go/internal/config"
	"mex-go/internal/mex"
)

// NewTaskFromConfig creates the sub-task for one pipeline step. An
// empty type defaults to "command" when a command is configured and
// "noop" otherwise, so a bare config still exports.
func NewTaskFromConfig(name string, cfg config.TaskConfig, dir string, logger mex.Logger) (mex.SubTask, error) {
	typ := cfg.Type
	if typ == "" {
		if len(cfg.Command) > 0 {
			typ = "command"
		} else {
			typ = "noop"
		}
	}

	switch typ {
	case "command":
		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
		return NewCommandTask(name, cfg.Command, dir, timeout, logger)
	case "noop":
		return NewNoopTask(name, logger), nil
	default:
		return nil, fmt.Errorf("unknown task type: %s", typ)
	}
}
