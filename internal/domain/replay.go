package domain

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"nessie.dev/pkg/nessie/internal/controller"
	m "nessie.dev/pkg/nessie/internal/model"
)

// ReplayArgs contains the arguments for re-executing generated tests.
type ReplayArgs struct {
	TestDir    m.Path
	TestPrefix string
	// Parallel is the number of tests run at once.
	Parallel int
	// Output, when set, receives the fresh traces under ReplayDir.
	Output m.Path
}

func (w *workflow) Replay(ctx context.Context, args ReplayArgs) ([]m.ReplayResult, error) {
	files, err := w.ListTests(args.TestDir, args.TestPrefix)
	if err != nil {
		slog.Error("Failed to list tests", "dir", args.TestDir, "error", err)
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no %s*.js tests in %s", args.TestPrefix, args.TestDir)
	}

	if err := w.Start(ctx, controller.WithReplayMode(len(files))); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return nil, err
	}

	results := make([]m.ReplayResult, len(files))

	var uiMutex sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(max(args.Parallel, 1))

	// A failing test is a result, not an error. Only cancellation stops the
	// remaining tests.
	for i, file := range files {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			result := w.replayTest(groupCtx, file, args.Output)
			results[i] = result

			uiMutex.Lock()
			w.DisplayReplayResult(ctx, result)
			uiMutex.Unlock()

			return nil
		})
	}

	err = group.Wait()

	w.Wait(ctx)
	w.Close(ctx)

	if err != nil {
		slog.Warn("Replay interrupted", "error", err)
		return results, fmt.Errorf("replay interrupted: %w", err)
	}

	w.DisplayReplaySummary(ctx, results)

	return results, nil
}

func (w *workflow) replayTest(ctx context.Context, file m.Path, output m.Path) m.ReplayResult {
	result := m.ReplayResult{File: file}
	start := time.Now()

	out, err := w.RunTest(ctx, file)
	result.Duration = time.Since(start)
	result.Output = string(out)

	if err != nil {
		slog.Warn("Failed to replay test", "file", file, "error", err)
		result.Err = err

		return result
	}

	records, err := ParseTrace(out)
	if err != nil {
		result.Err = err
		return result
	}

	result.Errors = errorMarkers(records)
	result.Passed = len(result.Errors) == 0

	if output != "" {
		if err := w.SaveTrace(w.tracePath(output, ReplayDir, filepath.Base(string(file))), out); err != nil {
			slog.Error("Failed to save replay trace", "file", file, "error", err)
		}
	}

	return result
}

// errorMarkers returns the error marker keys of a trace in order.
func errorMarkers(records []Record) []string {
	var markers []string

	for _, rec := range records {
		for _, key := range recordKeys(rec) {
			if strings.HasPrefix(key, errorMarker) && !slices.Contains(markers, key) {
				markers = append(markers, key)
			}
		}
	}

	return markers
}

func recordKeys(rec Record) []string {
	keys := make([]string, 0, len(rec))
	for key := range rec {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	return keys
}
