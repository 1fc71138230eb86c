package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	m "nessie.dev/pkg/nessie/internal/model"
)

// DefaultTestTimeout bounds the execution of one generated test.
const DefaultTestTimeout = 30 * time.Second

// waitDelay bounds how long output pipes are drained after the runtime is killed.
const waitDelay = time.Second

// ErrTestTimeout is returned when a test did not finish within the timeout.
var ErrTestTimeout = errors.New("test timed out")

// TestRunnerAdapter abstracts execution of rendered tests.
type TestRunnerAdapter interface {
	// RunTest executes the test file with the configured runtime and returns
	// its standard output. The exit status is ignored: the test reports its
	// own failures in the trace.
	RunTest(ctx context.Context, testFile m.Path) (stdout []byte, err error)
}

// LocalTestRunnerAdapter runs tests as child processes of a JS runtime.
type LocalTestRunnerAdapter struct {
	runtime string
	workDir string
	timeout time.Duration
}

// TestRunnerOption configures a LocalTestRunnerAdapter.
type TestRunnerOption func(*LocalTestRunnerAdapter)

// WithWorkDir sets the directory tests are run from.
func WithWorkDir(dir m.Path) TestRunnerOption {
	return func(a *LocalTestRunnerAdapter) {
		a.workDir = string(dir)
	}
}

// WithTimeout sets the per-test timeout.
func WithTimeout(timeout time.Duration) TestRunnerOption {
	return func(a *LocalTestRunnerAdapter) {
		if timeout > 0 {
			a.timeout = timeout
		}
	}
}

// NewLocalTestRunnerAdapter constructs a LocalTestRunnerAdapter for runtime
// with the default 30s timeout.
func NewLocalTestRunnerAdapter(runtime string, opts ...TestRunnerOption) *LocalTestRunnerAdapter {
	a := &LocalTestRunnerAdapter{
		runtime: runtime,
		timeout: DefaultTestTimeout,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// RunTest runs `<runtime> <testFile>`.
func (a *LocalTestRunnerAdapter) RunTest(ctx context.Context, testFile m.Path) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, a.runtime, string(testFile))
	cmd.Dir = a.workDir
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return stdout.Bytes(), fmt.Errorf("%w after %s: %s", ErrTestTimeout, a.timeout, testFile)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("failed to start %s: %w", a.runtime, err)
		}

		slog.Debug("Test exited with non-zero status", "file", testFile, "code", exitErr.ExitCode(), "stderr", stderr.String())
	}

	return stdout.Bytes(), nil
}
