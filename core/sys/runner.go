package sys

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/pkg/errors"
)

// DefaultTimeout bounds every external process invocation. A helper that
// hangs past it is killed and the call reported as failed.
const DefaultTimeout = 30 * time.Second

// killGracePeriod is how long Run waits for a killed helper's process group
// to release the output pipes before abandoning it.
const killGracePeriod = 3 * time.Second

var (
	ErrTimedOut = errors.New("external process timed out")
)

// Output is the captured result of an external process invocation.
type Output struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes external executables with an argument list. A non-zero
// exit code is reported through Output.ExitCode rather than as an error, so
// callers can branch on it; errors are reserved for invocations that never
// produced an exit code (missing binary, timeout).
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Output, error)
	LookPath(name string) (string, error)
}

type execRunner struct {
	timeout time.Duration
}

type runnerOptions struct {
	timeout time.Duration
}

type RunnerOption func(o *runnerOptions)

func WithTimeout(timeout time.Duration) RunnerOption {
	return func(o *runnerOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

func NewRunner(opts ...RunnerOption) Runner {
	o := runnerOptions{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	return &execRunner{
		timeout: o.timeout,
	}
}

// Run starts the helper in its own process group. Mount helpers routinely
// fork children that inherit the output pipes; on expiry the whole group is
// killed so a long-lived child cannot keep the caller blocked past the
// timeout.
func (r *execRunner) Run(ctx context.Context, name string, args ...string) (Output, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.Command(name, args...)
	setProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return Output{ExitCode: -1}, errors.Wrapf(err, "running %s", name)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var err error
	select {
	case <-ctx.Done():
		killProcessGroup(cmd)

		out := Output{ExitCode: -1}
		select {
		case <-done:
			// safe to read the buffers once Wait has returned
			out.Stdout = stdout.String()
			out.Stderr = stderr.String()
		case <-time.After(killGracePeriod):
			// a survivor still holds the pipes; abandon it rather than
			// block the caller
		}

		if ctx.Err() == context.DeadlineExceeded {
			return out, errors.Wrapf(ErrTimedOut, "running %s", name)
		}
		return out, errors.Wrapf(ctx.Err(), "running %s", name)
	case err = <-done:
	}

	out := Output{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if exitErr, ok := err.(*exec.ExitError); ok {
		out.ExitCode = exitErr.ExitCode()
		return out, nil
	}

	if err != nil {
		out.ExitCode = -1
		return out, errors.Wrapf(err, "running %s", name)
	}

	return out, nil
}

func (r *execRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
