// Package procexec runs a child process with a deadline, feeding stdin and
// capturing output. On deadline the child gets SIGTERM, and SIGKILL once the
// grace period runs out.
package procexec

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// DefaultGrace is the wait between SIGTERM and SIGKILL.
const DefaultGrace = 2 * time.Second

// CommandContext creates the underlying command. Tests may replace it.
var CommandContext = exec.CommandContext

// Command describes one child process invocation.
type Command struct {
	Name  string
	Args  []string
	Dir   string
	Env   []string // nil inherits the parent environment
	Stdin string

	// Timeout bounds the whole run. Zero means no limit beyond ctx.
	Timeout time.Duration
	// Grace is the wait between SIGTERM and SIGKILL. Zero means DefaultGrace.
	Grace time.Duration
}

// Result is the outcome of a finished child process.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
	Duration time.Duration
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Run starts the command and waits for it to exit.
// A non-zero exit or a timeout is reported through Result, not as an error.
// The error is set when the process could not be started or ctx was canceled.
func Run(ctx context.Context, c Command) (Result, error) {
	execCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	grace := c.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}

	cmd := CommandContext(execCtx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if c.Env != nil {
		cmd.Env = c.Env
	}
	cmd.Stdin = strings.NewReader(c.Stdin)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = grace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()

	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
		TimedOut: errors.Is(execCtx.Err(), context.DeadlineExceeded),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	// No process state means the child never started.
	if err != nil && cmd.ProcessState == nil {
		return res, err
	}
	if !res.TimedOut && ctx.Err() != nil {
		return res, ctx.Err()
	}
	return res, nil
}
