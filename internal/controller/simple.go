package controller

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "nessie.dev/pkg/nessie/internal/model"
)

const unknownArityLabel = "?"

// SimpleUI implements UI using cobra Command's output.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, _ ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// Wait blocks until the UI is closed (no-op for SimpleUI).
func (s *SimpleUI) Wait(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
	// SimpleUI doesn't block - it just prints and continues
}

// DisplayRunInfo prints what is about to be generated.
func (s *SimpleUI) DisplayRunInfo(ctx context.Context, info RunInfo) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("Generating %d test(s) for %s (%d known functions, seed %d, run %s)\n",
		info.NumTests, info.Lib, info.Known, info.Seed, info.RunID)
}

// DisplayTestCompleted prints one line per kept test.
func (s *SimpleUI) DisplayTestCompleted(ctx context.Context, report m.TestReport) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("Test %d (%s, %d call(s)) -> %s\n", report.Index, report.Extension, len(report.Nodes), outcomeSummary(report.Nodes))
}

// DisplayTestDiscarded prints a failed attempt.
func (s *SimpleUI) DisplayTestDiscarded(ctx context.Context, index int, attempt int, err error) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("Test %d attempt %d discarded: %v\n", index, attempt, err)
}

// DisplayRunSummary prints the per-test table and outcome totals of a run.
func (s *SimpleUI) DisplayRunSummary(ctx context.Context, report m.RunReport) {
	if err := ctx.Err(); err != nil {
		return
	}

	if len(report.Tests) > 0 {
		s.printf("\n%s", renderTestsTable(report.Tests))
	}

	s.printf("\n%s", renderOutcomeTable(report.Outcomes))
	s.printf("Run %s: %d test(s) generated, %d attempt(s) discarded, %d function(s) known, %d discovered in %s\n",
		report.RunID, report.TestsGenerated, report.Discarded, report.FunctionsKnown, len(report.Discovered), report.Duration)
}

// DisplayFunctions prints the function catalog of lib.
func (s *SimpleUI) DisplayFunctions(ctx context.Context, lib string, fns []m.ModuleFunction) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("\n%s", renderFunctionsTable(lib, fns))
}

// DisplayReplayResult prints the outcome of one replayed test.
func (s *SimpleUI) DisplayReplayResult(ctx context.Context, result m.ReplayResult) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("Replayed %s -> %s\n", result.File, replayStatus(result))
}

// DisplayReplaySummary prints the replay table.
func (s *SimpleUI) DisplayReplaySummary(ctx context.Context, results []m.ReplayResult) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("\n%s", renderReplayTable(results))
}

// DisplayTraceDiff prints the first divergence and the unified diff.
func (s *SimpleUI) DisplayTraceDiff(ctx context.Context, diff m.TraceDiff) {
	if err := ctx.Err(); err != nil {
		return
	}

	if diff.Kind == m.DivergenceNone {
		s.printf("Traces %s and %s are identical\n", diff.Left, diff.Right)
		return
	}

	s.printf("First divergence at record %d: %s\n", diff.Index, diff.Kind)

	if diff.LeftRec != "" || diff.RightRec != "" {
		s.printf("  %s: %s\n  %s: %s\n", diff.Left, diff.LeftRec, diff.Right, diff.RightRec)
	}

	if diff.Unified != "" {
		s.printf("\n%s", diff.Unified)
	}
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

func newTable(buf *bytes.Buffer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(buf)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)

	return table
}

func renderTestsTable(tests []m.TestReport) string {
	var buf bytes.Buffer

	table := newTable(&buf, []string{"Test", "Extension", "Calls", "Outcomes", "New points", "Discovered"})

	for _, test := range tests {
		table.Append([]string{
			fmt.Sprintf("%d", test.Index),
			test.Extension,
			fmt.Sprintf("%d", len(test.Nodes)),
			outcomeSummary(test.Nodes),
			fmt.Sprintf("%d", test.NewPoints),
			fmt.Sprintf("%d", test.Discovered),
		})
	}

	table.Render()

	return buf.String()
}

func renderOutcomeTable(outcomes map[string]int) string {
	var buf bytes.Buffer

	table := newTable(&buf, []string{"Outcome", "Calls"})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER})

	total := 0

	for _, outcome := range m.CallOutcomes {
		count := outcomes[outcome.String()]
		total += count

		table.Append([]string{outcome.String(), fmt.Sprintf("%d", count)})
	}

	table.SetFooter([]string{"Total", fmt.Sprintf("%d", total)})
	table.Render()

	return buf.String()
}

func renderFunctionsTable(lib string, fns []m.ModuleFunction) string {
	var buf bytes.Buffer

	table := newTable(&buf, []string{"Access path", "Function", "Arity", "Signatures"})

	sorted := append([]m.ModuleFunction(nil), fns...)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := sorted[i].AccPath.String(), sorted[j].AccPath.String()
		if pi != pj {
			return pi < pj
		}

		return sorted[i].Name < sorted[j].Name
	})

	for _, fn := range sorted {
		arity := unknownArityLabel
		if fn.NumArgs != nil {
			arity = fmt.Sprintf("%d", *fn.NumArgs)
		}

		path, _ := fn.AccPath.BasePath()
		table.Append([]string{path.String(), fn.Name, arity, fmt.Sprintf("%d", len(fn.Sigs))})
	}

	table.SetFooter([]string{lib, fmt.Sprintf("%d functions", len(fns)), "", ""})
	table.Render()

	return buf.String()
}

func renderReplayTable(results []m.ReplayResult) string {
	var buf bytes.Buffer

	table := newTable(&buf, []string{"Test", "Status", "Errors", "Duration"})

	passed := 0

	for _, result := range results {
		if result.Passed {
			passed++
		}

		table.Append([]string{
			string(result.File),
			replayStatus(result),
			strings.Join(result.Errors, " "),
			result.Duration.String(),
		})
	}

	table.SetFooter([]string{fmt.Sprintf("%d tests", len(results)), fmt.Sprintf("%d passed", passed), "", ""})
	table.Render()

	return buf.String()
}

func replayStatus(result m.ReplayResult) string {
	switch {
	case result.Err != nil:
		return "failed: " + result.Err.Error()
	case result.Passed:
		return "passed"
	default:
		return "errors"
	}
}

// outcomeSummary renders counts like "callback_sync=1 no_callback=2".
func outcomeSummary(nodes []m.NodeReport) string {
	counts := make(map[m.CallOutcome]int)
	for _, node := range nodes {
		counts[node.Outcome]++
	}

	var parts []string

	for _, outcome := range m.CallOutcomes {
		if counts[outcome] > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", outcome, counts[outcome]))
		}
	}

	if len(parts) == 0 {
		return "-"
	}

	return strings.Join(parts, " ")
}
