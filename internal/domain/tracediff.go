package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"nessie.dev/pkg/nessie/internal/controller"
	m "nessie.dev/pkg/nessie/internal/model"
)

const (
	returnPrefix     = "ret_val_"
	beforePrefix     = "before_"
	afterPrefix      = "after_"
	callbackInPrefix = "in_"
	undefinedValue   = `"undefined"`
	diffContextLines = 3
)

// DiffArgs contains the arguments for comparing two traces.
type DiffArgs struct {
	Left  m.Path
	Right m.Path
}

func (w *workflow) Diff(ctx context.Context, args DiffArgs) (m.TraceDiff, error) {
	left, err := w.LoadTrace(args.Left)
	if err != nil {
		slog.Error("Failed to load trace", "path", args.Left, "error", err)
		return m.TraceDiff{}, err
	}

	right, err := w.LoadTrace(args.Right)
	if err != nil {
		slog.Error("Failed to load trace", "path", args.Right, "error", err)
		return m.TraceDiff{}, err
	}

	diff, err := DiffTraces(args.Left, args.Right, left, right)
	if err != nil {
		return m.TraceDiff{}, err
	}

	if err := w.Start(ctx, controller.WithReportMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return diff, err
	}

	w.DisplayTraceDiff(ctx, diff)
	w.Wait(ctx)
	w.Close(ctx)

	return diff, nil
}

// DiffTraces compares two traces record by record and classifies the first
// record where they diverge.
func DiffTraces(leftName, rightName m.Path, left, right []byte) (m.TraceDiff, error) {
	leftRecs, err := ParseTrace(left)
	if err != nil {
		return m.TraceDiff{}, fmt.Errorf("%s: %w", leftName, err)
	}

	rightRecs, err := ParseTrace(right)
	if err != nil {
		return m.TraceDiff{}, fmt.Errorf("%s: %w", rightName, err)
	}

	leftLines, rightLines := recordLines(leftRecs), recordLines(rightRecs)
	diff := m.TraceDiff{Left: leftName, Right: rightName, Kind: m.DivergenceNone}

	idx := 0
	for idx < len(leftLines) && idx < len(rightLines) && leftLines[idx] == rightLines[idx] {
		idx++
	}

	switch {
	case idx < len(leftLines) && idx < len(rightLines):
		diff.Kind = classifyDivergence(leftRecs[idx], rightRecs[idx])
		diff.LeftRec = strings.TrimSuffix(leftLines[idx], "\n")
		diff.RightRec = strings.TrimSuffix(rightLines[idx], "\n")
	case idx < len(leftLines):
		diff.Kind = m.DivergenceLength
		diff.LeftRec = strings.TrimSuffix(leftLines[idx], "\n")
	case idx < len(rightLines):
		diff.Kind = m.DivergenceLength
		diff.RightRec = strings.TrimSuffix(rightLines[idx], "\n")
	default:
		return diff, nil
	}

	diff.Index = idx

	diff.Unified, err = difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        leftLines,
		B:        rightLines,
		FromFile: string(leftName),
		ToFile:   string(rightName),
		Context:  diffContextLines,
	})
	if err != nil {
		return diff, fmt.Errorf("failed to diff traces: %w", err)
	}

	return diff, nil
}

// recordLines renders each record as one line of canonical JSON.
func recordLines(records []Record) []string {
	lines := make([]string, len(records))

	for i, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			data = []byte("{}")
		}

		lines[i] = string(data) + "\n"
	}

	return lines
}

func classifyDivergence(left, right Record) m.DivergenceKind {
	lk, rk := firstKey(left), firstKey(right)

	both := func(prefix string) bool {
		return strings.HasPrefix(lk, prefix) && strings.HasPrefix(rk, prefix)
	}

	switch {
	case strings.HasPrefix(lk, doneMarker) && strings.HasPrefix(rk, errorMarker),
		strings.HasPrefix(lk, errorMarker) && strings.HasPrefix(rk, doneMarker):
		return m.DivergenceDoneVsError
	case strings.HasPrefix(lk, callbackMarker) || strings.HasPrefix(rk, callbackMarker):
		return m.DivergenceCallback
	case both(returnPrefix):
		return m.DivergenceReturnValue
	case both(afterPrefix) && (string(left[lk]) == undefinedValue || string(right[rk]) == undefinedValue):
		return m.DivergenceFunctionMissing
	case both(beforePrefix), both(afterPrefix):
		return m.DivergenceArgument
	case both(callbackInPrefix):
		return m.DivergenceCallbackArgument
	default:
		return m.DivergenceOther
	}
}

func firstKey(rec Record) string {
	keys := recordKeys(rec)
	if len(keys) == 0 {
		return ""
	}

	return keys[0]
}
