package domain

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"nessie.dev/pkg/nessie/internal/adapter"
	m "nessie.dev/pkg/nessie/internal/model"
)

// Execution is the result of running one generated test.
type Execution struct {
	Diagnosis Diagnosis
	// Trace is the raw runtime output.
	Trace    []byte
	Duration time.Duration
}

// Orchestrator writes a generated test to disk, runs it under the runtime
// and diagnoses its trace.
type Orchestrator interface {
	Execute(ctx context.Context, test *Test) (Execution, error)
	Discard(ctx context.Context, test *Test) error
}

type orchestrator struct {
	fsAdapter   adapter.TestFSAdapter
	testAdapter adapter.TestRunnerAdapter
	renderer    adapter.TestRenderer
	diag        *Diagnostician
}

// NewOrchestrator constructs an Orchestrator backed by the provided
// filesystem, runner and renderer adapters.
func NewOrchestrator(
	fsAdapter adapter.TestFSAdapter,
	testAdapter adapter.TestRunnerAdapter,
	renderer adapter.TestRenderer,
	diag *Diagnostician,
) Orchestrator {
	if diag == nil {
		diag = NewDiagnostician(defaultPathCacheSize)
	}

	return &orchestrator{
		fsAdapter:   fsAdapter,
		testAdapter: testAdapter,
		renderer:    renderer,
		diag:        diag,
	}
}

func (o *orchestrator) Execute(ctx context.Context, test *Test) (Execution, error) {
	if err := ctx.Err(); err != nil {
		return Execution{}, err
	}

	if test == nil || test.IsEmpty() {
		return Execution{}, fmt.Errorf("%w: empty test", ErrInvalidExtension)
	}

	file := test.Loc.File()

	if err := o.writeTest(test, file); err != nil {
		return Execution{}, err
	}

	start := time.Now()

	output, err := o.testAdapter.RunTest(ctx, file)
	if err != nil {
		slog.Warn("Failed to run test", "file", file, "error", err)
		return Execution{}, fmt.Errorf("%w: %s: %w", ErrTestRun, file, err)
	}

	exec := Execution{Trace: output, Duration: time.Since(start)}

	exec.Diagnosis, err = o.diag.Diagnose(test, output)
	if err != nil {
		slog.Warn("Failed to parse trace", "file", file, "error", err)
		return exec, fmt.Errorf("failed to diagnose %s: %w", file, err)
	}

	slog.Debug("Executed test", "file", file, "calls", test.Len(), "duration", exec.Duration)

	return exec, nil
}

func (o *orchestrator) writeTest(test *Test, file m.Path) error {
	content, err := o.renderer.Render(test.Tree(), adapter.RenderOptions{Instrumented: true})
	if err != nil {
		slog.Error("Failed to render test", "file", file, "error", err)
		return fmt.Errorf("failed to render test: %w", err)
	}

	if err := o.fsAdapter.WriteFile(file, content); err != nil {
		slog.Error("Failed to write test", "file", file, "error", err)
		return fmt.Errorf("%w: %s: %w", ErrWriteTest, file, err)
	}

	return nil
}

// Discard removes the file of a rejected test.
func (o *orchestrator) Discard(_ context.Context, test *Test) error {
	file := test.Loc.File()

	if err := o.fsAdapter.Remove(file); err != nil {
		slog.Error("Failed to remove test", "file", file, "error", err)
		return fmt.Errorf("%w: %s: %w", ErrWriteTest, file, err)
	}

	return nil
}
