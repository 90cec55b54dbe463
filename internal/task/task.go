// Package task runs the recompile and reobfuscation steps of the
// pipeline as external commands.
package task

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"mex-go/internal/mex"
)

// CommandTask invokes a configured command for one pipeline step. The
// literal {side} in any argument is replaced with the side name before
// the command runs. Progress is scraped from the command's combined
// output: any line containing "NN%" reports NN.
type CommandTask struct {
	name    string
	argv    []string
	dir     string
	timeout time.Duration
	logger  mex.Logger
}

// NewCommandTask creates a task named name running argv in dir. A zero
// timeout means no limit.
func NewCommandTask(name string, argv []string, dir string, timeout time.Duration, logger mex.Logger) (*CommandTask, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("%s: empty command", name)
	}
	return &CommandTask{
		name:    name,
		argv:    argv,
		dir:     dir,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Run executes the command for the given side, forwarding scraped
// progress to report. A trailing report(100) is always sent on success
// so quiet commands still fill their stage band.
func (t *CommandTask) Run(side mex.Side, report func(percent int)) error {
	if report == nil {
		report = func(int) {}
	}

	argv := make([]string, len(t.argv))
	for i, a := range t.argv {
		argv[i] = strings.ReplaceAll(a, "{side}", side.String())
	}

	ctx := context.Background()
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = t.dir

	out := &lineWriter{emit: func(line string) {
		t.logger.Debug("task output", "task", t.name, "line", line)
		if pct, ok := ScanProgress(line); ok {
			report(pct)
		}
	}}
	cmd.Stdout = out
	cmd.Stderr = out

	t.logger.Info("running task", "task", t.name, "command", strings.Join(argv, " "))
	err := cmd.Run()
	out.flush()
	if err != nil {
		return fmt.Errorf("%s command: %w", t.name, err)
	}

	report(100)
	return nil
}

// NoopTask satisfies a pipeline step without doing anything, for
// workspaces where that step runs outside the exporter.
type NoopTask struct {
	name   string
	logger mex.Logger
}

// NewNoopTask creates a no-op task named name.
func NewNoopTask(name string, logger mex.Logger) *NoopTask {
	return &NoopTask{name: name, logger: logger}
}

func (t *NoopTask) Run(side mex.Side, report func(percent int)) error {
	t.logger.Info("task configured as no-op, skipping", "task", t.name)
	if report != nil {
		report(100)
	}
	return nil
}

var progressRe = regexp.MustCompile(`(\d+)%`)

// ScanProgress extracts a percentage from a line of task output. Values
// over 100 are not progress and don't match.
func ScanProgress(line string) (int, bool) {
	m := progressRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	v, err := strconv.Atoi(m[1])
	if err != nil || v > 100 {
		return 0, false
	}
	return v, true
}

// lineWriter splits a command's output into lines for emit, holding
// back partial lines until their newline arrives.
type lineWriter struct {
	buf  bytes.Buffer
	emit func(line string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Partial line; keep it for the next Write.
			w.buf.WriteString(line)
			break
		}
		w.emit(strings.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	if w.buf.Len() > 0 {
		w.emit(strings.TrimRight(w.buf.String(), "\r\n"))
		w.buf.Reset()
	}
}

// Compile-time checks that both tasks implement mex.SubTask
var (
	_ mex.SubTask = (*CommandTask)(nil)
	_ mex.SubTask = (*NoopTask)(nil)
)
