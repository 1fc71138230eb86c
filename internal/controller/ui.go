// Package controller provides output adapters for displaying generation results.
package controller

import (
	"context"

	m "nessie.dev/pkg/nessie/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeReport StartMode = iota
	ModeGenerate
	ModeReplay
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode  StartMode
	total int
}

// WithReportMode sets the UI to print static reports.
func WithReportMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeReport
	}
}

// WithGenerateMode sets the UI to follow the generation of total tests.
func WithGenerateMode(total int) StartOption {
	return func(c *StartConfig) {
		c.mode = ModeGenerate
		c.total = total
	}
}

// WithReplayMode sets the UI to follow the replay of total tests.
func WithReplayMode(total int) StartOption {
	return func(c *StartConfig) {
		c.mode = ModeReplay
		c.total = total
	}
}

func newStartConfig(options []StartOption) StartConfig {
	var cfg StartConfig
	for _, opt := range options {
		opt(&cfg)
	}

	return cfg
}

// RunInfo describes a generation run about to start.
type RunInfo struct {
	RunID    string
	Lib      string
	NumTests int
	Seed     uint64
	Known    int
}

// UI defines the interface for displaying generation progress and reports.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Wait(ctx context.Context) // Wait for UI to finish (user closes it)
	DisplayRunInfo(ctx context.Context, info RunInfo)
	DisplayTestCompleted(ctx context.Context, report m.TestReport)
	DisplayTestDiscarded(ctx context.Context, index int, attempt int, err error)
	DisplayRunSummary(ctx context.Context, report m.RunReport)
	DisplayFunctions(ctx context.Context, lib string, fns []m.ModuleFunction)
	DisplayReplayResult(ctx context.Context, result m.ReplayResult)
	DisplayReplaySummary(ctx context.Context, results []m.ReplayResult)
	DisplayTraceDiff(ctx context.Context, diff m.TraceDiff)
}
