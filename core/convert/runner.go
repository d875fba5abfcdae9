// Package convert runs the external and in-process conversions used by the
// PDF rasterize fallback: pages to images, and images back to a PDF.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a single external invocation.
const DefaultTimeout = 2 * time.Minute

// waitDelay bounds how long output pipes are drained after a kill.
const waitDelay = 2 * time.Second

var (
	// ErrToolNotFound is returned when the binary is not on PATH.
	ErrToolNotFound = errors.New("conversion tool not found")
	// ErrTimeout is returned when the invocation outlives its timeout.
	ErrTimeout = errors.New("conversion tool timed out")
)

// Command is one process invocation. Arguments are passed straight to the
// process; no shell is involved, so paths need no quoting.
type Command struct {
	Name    string
	Args    []string
	Dir     string
	Timeout time.Duration
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result captures what the process produced.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// ExitError is returned when the process exits non-zero.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	logger *zap.Logger
}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner(logger *zap.Logger) *ExecRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecRunner{logger: logger}
}

func (r *ExecRunner) Run(ctx context.Context, c Command) (*Result, error) {
	bin, err := exec.LookPath(c.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, c.Name)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, c.Args...)
	cmd.Dir = c.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	r.logger.Debug("running conversion", zap.String("command", c.String()), zap.Duration("timeout", timeout))
	start := time.Now()
	runErr := cmd.Run()
	res := &Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if ctx.Err() == context.DeadlineExceeded {
		return res, fmt.Errorf("%w after %s: %s", ErrTimeout, timeout, c.Name)
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return res, &ExitError{
				Command:  c.Name,
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
			}
		}
		return res, fmt.Errorf("run %s: %w", c.Name, runErr)
	}
	r.logger.Debug("conversion finished", zap.String("command", c.Name), zap.Duration("took", res.Duration))
	return res, nil
}
