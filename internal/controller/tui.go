package controller

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	m "nessie.dev/pkg/nessie/internal/model"
)

const (
	maxBarWidth   = 60
	recentEntries = 6
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	statsStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	recentStyle = lipgloss.NewStyle().Faint(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// TUI implements UI with a Bubble Tea progress view while tests are
// generated or replayed. Static reports are printed as tables.
type TUI struct {
	cmd     *cobra.Command
	static  *SimpleUI
	program *tea.Program
	done    chan struct{}
	stop    *sync.Once
}

// NewTUI creates a new TUI writing to cmd's output.
func NewTUI(cmd *cobra.Command) *TUI {
	return &TUI{cmd: cmd, static: NewSimpleUI(cmd)}
}

// Start launches the progress view for generate and replay modes.
func (t *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := newStartConfig(options)
	if cfg.mode == ModeReport {
		return nil
	}

	title := "nessie: generating tests"
	if cfg.mode == ModeReplay {
		title = "nessie: replaying tests"
	}

	t.program = tea.NewProgram(newProgressModel(title, cfg.total), tea.WithOutput(t.cmd.OutOrStdout()), tea.WithContext(ctx))
	t.done = make(chan struct{})
	t.stop = &sync.Once{}

	go func() {
		defer close(t.done)

		_, _ = t.program.Run()
	}()

	return nil
}

// Close stops the progress view if it is still running.
func (t *TUI) Close(_ context.Context) {
	if t.program == nil {
		return
	}

	t.stop.Do(t.program.Quit)
	<-t.done
	t.program = nil
}

// Wait lets the progress view render its final state and exit.
func (t *TUI) Wait(ctx context.Context) {
	if t.program == nil {
		return
	}

	t.program.Send(finishedMsg{})

	select {
	case <-t.done:
	case <-ctx.Done():
	}
}

func (t *TUI) send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// DisplayRunInfo sets the header of the progress view.
func (t *TUI) DisplayRunInfo(_ context.Context, info RunInfo) {
	t.send(runInfoMsg(info))
}

// DisplayTestCompleted advances the progress bar.
func (t *TUI) DisplayTestCompleted(_ context.Context, report m.TestReport) {
	t.send(testCompletedMsg(report))
}

// DisplayTestDiscarded records a failed attempt.
func (t *TUI) DisplayTestDiscarded(_ context.Context, index int, attempt int, err error) {
	t.send(testDiscardedMsg{index: index, attempt: attempt, err: err})
}

// DisplayReplayResult advances the progress bar.
func (t *TUI) DisplayReplayResult(_ context.Context, result m.ReplayResult) {
	t.send(replayResultMsg(result))
}

// DisplayRunSummary prints the run tables.
func (t *TUI) DisplayRunSummary(ctx context.Context, report m.RunReport) {
	t.static.DisplayRunSummary(ctx, report)
}

// DisplayFunctions prints the function table.
func (t *TUI) DisplayFunctions(ctx context.Context, lib string, fns []m.ModuleFunction) {
	t.static.DisplayFunctions(ctx, lib, fns)
}

// DisplayReplaySummary prints the replay table.
func (t *TUI) DisplayReplaySummary(ctx context.Context, results []m.ReplayResult) {
	t.static.DisplayReplaySummary(ctx, results)
}

// DisplayTraceDiff prints the trace comparison.
func (t *TUI) DisplayTraceDiff(ctx context.Context, diff m.TraceDiff) {
	t.static.DisplayTraceDiff(ctx, diff)
}

type (
	runInfoMsg       RunInfo
	testCompletedMsg m.TestReport
	replayResultMsg  m.ReplayResult
	testDiscardedMsg struct {
		index   int
		attempt int
		err     error
	}
	finishedMsg struct{}
)

// progressModel is the Bubble Tea model of a running generation or replay.
type progressModel struct {
	title     string
	subtitle  string
	total     int
	completed int
	failed    int
	discarded int
	outcomes  map[m.CallOutcome]int
	recent    []string
	bar       progress.Model
	quitting  bool
}

func newProgressModel(title string, total int) progressModel {
	return progressModel{
		title:    title,
		total:    total,
		outcomes: make(map[m.CallOutcome]int),
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(maxBarWidth)),
	}
}

func (pm progressModel) Init() tea.Cmd {
	return nil
}

func (pm progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		pm.bar.Width = min(max(msg.Width-4, 10), maxBarWidth)

		return pm, nil

	case tea.KeyMsg:
		return pm.handleKeyPress(msg)

	case runInfoMsg:
		pm.subtitle = fmt.Sprintf("%s | seed %d | %d known functions", msg.Lib, msg.Seed, msg.Known)

		return pm, nil

	case testCompletedMsg:
		pm.completed++
		for _, node := range msg.Nodes {
			pm.outcomes[node.Outcome]++
		}

		pm.pushRecent(fmt.Sprintf("test %d: %s", msg.Index, outcomeSummary(msg.Nodes)))

		return pm, nil

	case testDiscardedMsg:
		pm.discarded++
		pm.pushRecent(errorStyle.Render(fmt.Sprintf("test %d attempt %d discarded: %v", msg.index, msg.attempt, msg.err)))

		return pm, nil

	case replayResultMsg:
		pm.completed++
		if !msg.Passed {
			pm.failed++
		}

		pm.pushRecent(fmt.Sprintf("%s: %s", msg.File, replayStatus(m.ReplayResult(msg))))

		return pm, nil

	case finishedMsg:
		pm.quitting = true

		return pm, tea.Quit
	}

	return pm, nil
}

func (pm progressModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	//nolint:exhaustive // We only handle quit keys
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		pm.quitting = true
		return pm, tea.Quit
	default:
	}

	if msg.String() == "q" {
		pm.quitting = true
		return pm, tea.Quit
	}

	return pm, nil
}

func (pm *progressModel) pushRecent(line string) {
	pm.recent = append(pm.recent, line)
	if len(pm.recent) > recentEntries {
		pm.recent = pm.recent[len(pm.recent)-recentEntries:]
	}
}

func (pm progressModel) percent() float64 {
	if pm.total <= 0 {
		return 0
	}

	return min(float64(pm.completed)/float64(pm.total), 1)
}

func (pm progressModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(pm.title))
	b.WriteString("\n")

	if pm.subtitle != "" {
		b.WriteString(statsStyle.Render(pm.subtitle))
		b.WriteString("\n")
	}

	b.WriteString("\n  ")
	b.WriteString(pm.bar.ViewAs(pm.percent()))
	fmt.Fprintf(&b, "  %d/%d\n\n", pm.completed, pm.total)

	var counts []string
	for _, outcome := range m.CallOutcomes {
		if n := pm.outcomes[outcome]; n > 0 {
			counts = append(counts, fmt.Sprintf("%s %d", outcome, n))
		}
	}

	if pm.discarded > 0 {
		counts = append(counts, fmt.Sprintf("discarded %d", pm.discarded))
	}

	if pm.failed > 0 {
		counts = append(counts, fmt.Sprintf("with errors %d", pm.failed))
	}

	if len(counts) > 0 {
		b.WriteString("  " + statsStyle.Render(strings.Join(counts, " | ")) + "\n\n")
	}

	for _, line := range pm.recent {
		b.WriteString("  " + recentStyle.Render(line) + "\n")
	}

	if !pm.quitting {
		b.WriteString("\n" + helpStyle.Render("  q: hide progress") + "\n")
	}

	return b.String()
}
