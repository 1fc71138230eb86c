package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"nessie.dev/pkg/nessie/internal/adapter"
	"nessie.dev/pkg/nessie/internal/controller"
	"nessie.dev/pkg/nessie/internal/domain/mined"
	"nessie.dev/pkg/nessie/internal/metrics"
	m "nessie.dev/pkg/nessie/internal/model"
	"nessie.dev/pkg/nessie/pkg"
)

// Files written to the output directory of a run.
const (
	ReportFile   = "report.json"
	JournalFile  = "tests.gob"
	RegistryFile = "registry.json"
	MetricsFile  = "metrics.prom"
	TracesDir    = "traces"
	ReplayDir    = "replay"
	SuiteDir     = "suite"
	MetaTestFile = "metatest.js"
)

// RunArgs contains the arguments of a generation run.
type RunArgs struct {
	Lib string
	// APISpec is the static API listing; Registry, when set, is a registry
	// dump of a previous run used instead.
	APISpec  m.Path
	Registry m.Path
	// NestingPairs and APICalls are the optional mined corpus files.
	NestingPairs m.Path
	APICalls     m.Path

	NumTests int
	// Seed of the run; zero picks one from the clock.
	Seed uint64
	// MaxAttempts bounds the failed attempts per test slot; zero is unbounded.
	MaxAttempts int
	TestDir     m.Path
	TestPrefix  string
	Output      m.Path
	// MochaSuite also writes the kept tests without instrumentation as a
	// mocha suite.
	MochaSuite bool
	Gen        GenConfig
}

// ListArgs contains the arguments for listing known functions.
type ListArgs struct {
	Lib      string
	APISpec  m.Path
	Registry m.Path
}

// ViewArgs contains the arguments for displaying a saved run.
type ViewArgs struct {
	Output m.Path
}

// Workflow defines the commands of nessie.
type Workflow interface {
	Run(ctx context.Context, args RunArgs) (m.RunReport, error)
	List(ctx context.Context, args ListArgs) error
	View(ctx context.Context, args ViewArgs) error
	Replay(ctx context.Context, args ReplayArgs) ([]m.ReplayResult, error)
	Diff(ctx context.Context, args DiffArgs) (m.TraceDiff, error)
}

type workflow struct {
	adapter.TestFSAdapter
	adapter.SpecStore
	adapter.ReportStore
	adapter.TestRenderer
	adapter.TestRunnerAdapter
	controller.UI
	Orchestrator
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
func NewWorkflow(
	fsAdapter adapter.TestFSAdapter,
	specStore adapter.SpecStore,
	reportStore adapter.ReportStore,
	renderer adapter.TestRenderer,
	runner adapter.TestRunnerAdapter,
	ui controller.UI,
	orchestrator Orchestrator,
) Workflow {
	return &workflow{
		TestFSAdapter:     fsAdapter,
		SpecStore:         specStore,
		ReportStore:       reportStore,
		TestRenderer:      renderer,
		TestRunnerAdapter: runner,
		UI:                ui,
		Orchestrator:      orchestrator,
	}
}

// generation is the state of one Run.
type generation struct {
	args    RunArgs
	logger  *slog.Logger
	reg     *Registry
	db      *TestGenDB
	journal pkg.Journal[m.TestReport]
	metrics *metrics.Run
	report  m.RunReport
	kept    []*Test
}

func (w *workflow) Run(ctx context.Context, args RunArgs) (m.RunReport, error) {
	gen, err := w.prepareRun(args)
	if err != nil {
		return m.RunReport{}, err
	}

	defer func() {
		if err := gen.journal.Close(); err != nil {
			gen.logger.Error("Failed to close journal", "error", err)
		}
	}()

	if err := w.Start(ctx, controller.WithGenerateMode(args.NumTests)); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return m.RunReport{}, err
	}

	w.DisplayRunInfo(ctx, controller.RunInfo{
		RunID:    gen.report.RunID,
		Lib:      gen.report.Lib,
		NumTests: args.NumTests,
		Seed:     gen.report.Seed,
		Known:    gen.reg.Len(),
	})

	start := time.Now()

	for len(gen.kept) < args.NumTests {
		if err := w.generateTest(ctx, gen); err != nil {
			w.Close(ctx)
			gen.logger.Error("Generation stopped", "tests", len(gen.kept), "error", err)

			return gen.report, fmt.Errorf("generate test %d: %w", gen.db.TestIndex()+1, err)
		}
	}

	w.Wait(ctx)
	w.Close(ctx)

	gen.report.Duration = time.Since(start)
	gen.report.FunctionsKnown = gen.reg.Len()

	if err := w.finishRun(gen); err != nil {
		return gen.report, err
	}

	w.DisplayRunSummary(ctx, gen.report)

	return gen.report, nil
}

func (w *workflow) prepareRun(args RunArgs) (*generation, error) {
	runID := uuid.New().String()

	seed := args.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	logger := slog.With("run_id", runID, "lib", args.Lib)

	reg, err := w.loadRegistry(args.Lib, args.APISpec, args.Registry)
	if err != nil {
		return nil, err
	}

	corpus, err := w.loadCorpus(args)
	if err != nil {
		return nil, err
	}

	if err := w.EnsureDir(args.TestDir); err != nil {
		logger.Error("Failed to create test directory", "dir", args.TestDir, "error", err)
		return nil, fmt.Errorf("failed to create test directory: %w", err)
	}

	toyBase := w.JoinPath(string(args.TestDir), adapter.ToyFSDir)

	fsPaths, err := w.SetupToyFS(toyBase)
	if err != nil {
		logger.Error("Failed to set up toy filesystem", "base", toyBase, "error", err)
		return nil, fmt.Errorf("failed to set up toy filesystem: %w", err)
	}

	journal, err := pkg.CreateJournal[m.TestReport](string(w.JoinPath(string(args.Output), JournalFile)))
	if err != nil {
		return nil, err
	}

	rnd := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec // reproducible generation, not security

	db := NewTestGenDB(args.Gen, rnd,
		WithCorpus(corpus),
		WithFSPaths(fsPaths, toyBase, w.TestFSAdapter),
		WithTestLocation(args.TestDir, args.TestPrefix),
	)

	logger.Info("Starting generation", "seed", seed, "tests", args.NumTests, "functions", reg.Len(), "mined", !corpus.Empty())

	return &generation{
		args:    args,
		logger:  logger,
		reg:     reg,
		db:      db,
		journal: journal,
		metrics: metrics.NewRun(reg.Lib(), runID),
		report: m.RunReport{
			RunID:     runID,
			Lib:       reg.Lib(),
			Seed:      seed,
			StartedAt: time.Now(),
			Outcomes:  make(map[string]int),
		},
	}, nil
}

func (w *workflow) loadRegistry(lib string, specPath, dumpPath m.Path) (*Registry, error) {
	var reg *Registry

	switch {
	case dumpPath != "":
		dump, err := w.LoadRegistryDump(dumpPath)
		if err != nil {
			slog.Error("Failed to load registry dump", "path", dumpPath, "error", err)
			return nil, err
		}

		reg = NewRegistryFromDump(dump)
	case specPath != "":
		spec, err := w.LoadAPISpec(specPath)
		if err != nil {
			slog.Error("Failed to load API spec", "path", specPath, "error", err)
			return nil, err
		}

		reg = NewRegistryFromSpec(spec)
	default:
		return nil, fmt.Errorf("%w: no API spec or registry dump given", adapter.ErrSpecFile)
	}

	if lib != "" && reg.Lib() != lib {
		return nil, fmt.Errorf("%w: spec is for %q, not %q", adapter.ErrSpecFile, reg.Lib(), lib)
	}

	return reg, nil
}

func (w *workflow) loadCorpus(args RunArgs) (*mined.Corpus, error) {
	var (
		pairs []m.MinedNestingPair
		calls []m.MinedAPICall
		err   error
	)

	if args.NestingPairs != "" {
		if pairs, err = w.LoadNestingPairs(args.NestingPairs); err != nil {
			slog.Error("Failed to load nesting pairs", "path", args.NestingPairs, "error", err)
			return nil, err
		}
	}

	if args.APICalls != "" {
		if calls, err = w.LoadAPICalls(args.APICalls); err != nil {
			slog.Error("Failed to load mined calls", "path", args.APICalls, "error", err)
			return nil, err
		}
	}

	return mined.NewCorpus(pairs, calls), nil
}

// generateTest retries generation attempts until one test is kept. Tests with
// failing calls are kept; only attempts that could not be executed or
// diagnosed are discarded.
func (w *workflow) generateTest(ctx context.Context, gen *generation) error {
	index := gen.db.TestIndex() + 1

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if gen.args.MaxAttempts > 0 && attempt > gen.args.MaxAttempts {
			return fmt.Errorf("%w: %d attempts", ErrTooManyAttempts, gen.args.MaxAttempts)
		}

		next, err := gen.db.NextTest(gen.reg)
		if err == nil {
			gen.logger.Debug("Generated candidate", "test", index, "attempt", attempt,
				"extension", next.Ext.String(), "source", next.Source, "calls", next.Test.Len())

			err = w.runCandidate(ctx, gen, next, attempt)
			if err == nil {
				return nil
			}
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if !IsRecoverable(err) {
			return err
		}

		gen.report.Discarded++
		gen.metrics.TestDiscarded(discardReason(err))
		gen.logger.Warn("Discarded generation attempt", "test", index, "attempt", attempt, "error", err)
		w.DisplayTestDiscarded(ctx, index, attempt, err)

		if next.Test != nil {
			if rmErr := w.Discard(ctx, next.Test); rmErr != nil {
				gen.logger.Warn("Failed to remove discarded test", "error", rmErr)
			}
		}
	}
}

func (w *workflow) runCandidate(ctx context.Context, gen *generation, next Generated, attempt int) error {
	exec, err := w.Execute(ctx, next.Test)
	if err != nil {
		return err
	}

	test := next.Test
	discovered := ApplyDiagnosis(gen.reg, test, exec.Diagnosis)
	points := gen.db.AddExtensionPoints(test, exec.Diagnosis)
	gen.db.CommitTest(test.Loc.Index)
	gen.kept = append(gen.kept, test)

	report := m.TestReport{
		Index:      test.Loc.Index,
		File:       test.Loc.File(),
		Extension:  next.Ext.String(),
		Nodes:      nodeReports(test, exec.Diagnosis),
		Discovered: len(discovered),
		NewPoints:  points,
		Attempts:   attempt,
		Duration:   exec.Duration,
	}

	for _, node := range report.Nodes {
		gen.report.Outcomes[node.Outcome.String()]++
	}

	gen.report.TestsGenerated++
	gen.report.Discovered = append(gen.report.Discovered, discovered...)
	gen.report.Tests = append(gen.report.Tests, report)

	gen.metrics.TestGenerated(report)
	gen.metrics.FunctionsDiscovered(len(discovered))
	gen.metrics.FunctionsKnown(gen.reg.Len())

	if err := gen.journal.Append(report); err != nil {
		gen.logger.Error("Failed to journal test", "test", report.Index, "error", err)
	}

	if err := w.SaveTrace(w.tracePath(gen.args.Output, TracesDir, test.Loc.Name()), exec.Trace); err != nil {
		gen.logger.Error("Failed to save trace", "test", report.Index, "error", err)
	}

	gen.logger.Debug("Kept test", "test", report.Index, "discovered", len(discovered), "points", points)
	w.DisplayTestCompleted(ctx, report)

	return nil
}

func (w *workflow) finishRun(gen *generation) error {
	output := string(gen.args.Output)

	if gen.args.MochaSuite {
		if err := w.writeMochaSuite(gen); err != nil {
			return err
		}
	}

	if err := w.SaveRegistryDump(w.JoinPath(output, RegistryFile), gen.reg.Dump()); err != nil {
		gen.logger.Error("Failed to save registry", "error", err)
		return fmt.Errorf("failed to save registry: %w", err)
	}

	if err := w.SaveRunReport(w.JoinPath(output, ReportFile), gen.report); err != nil {
		gen.logger.Error("Failed to save run report", "error", err)
		return fmt.Errorf("failed to save run report: %w", err)
	}

	if err := gen.metrics.WriteTextfile(string(w.JoinPath(output, MetricsFile))); err != nil {
		gen.logger.Error("Failed to write metrics", "error", err)
		return err
	}

	gen.logger.Info("Generation finished", "tests", gen.report.TestsGenerated,
		"discarded", gen.report.Discarded, "functions", gen.report.FunctionsKnown)

	return nil
}

// writeMochaSuite renders the kept tests without instrumentation as mocha
// test functions, plus the runner requiring them.
func (w *workflow) writeMochaSuite(gen *generation) error {
	dir := w.JoinPath(string(gen.args.TestDir), SuiteDir)
	locs := make([]m.TestLoc, 0, len(gen.kept))

	for _, test := range gen.kept {
		loc := test.Loc
		loc.Dir = dir

		content, err := w.Render(test.WithLoc(loc).Tree(), adapter.RenderOptions{AsTestFunction: true})
		if err != nil {
			return fmt.Errorf("failed to render suite test %d: %w", loc.Index, err)
		}

		if err := w.WriteFile(loc.File(), content); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrWriteTest, loc.File(), err)
		}

		locs = append(locs, loc)
	}

	metaTest := w.JoinPath(string(dir), MetaTestFile)
	if err := w.WriteFile(metaTest, w.RenderMetaTest(locs)); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteTest, metaTest, err)
	}

	gen.logger.Info("Wrote mocha suite", "dir", dir, "tests", len(locs))

	return nil
}

func (w *workflow) tracePath(output m.Path, dir, testName string) m.Path {
	return w.JoinPath(string(output), dir, strings.TrimSuffix(testName, ".js")+".json")
}

func nodeReports(test *Test, diag Diagnosis) []m.NodeReport {
	nodes := make([]m.NodeReport, 0, test.Len())

	for i := range test.Len() {
		id := m.NodeID(i)
		call, _ := test.Call(id)
		res := diag.Results[id]

		node := m.NodeReport{
			ID:       test.UniqID(id),
			Function: call.Name,
			AccPath:  call.AccPath.String(),
			Outcome:  res.Outcome,
			Nested:   call.IsNested(),
		}

		if res.CallbackCalled() {
			node.CallbackArgPos = res.CallbackArgPos
		}

		nodes = append(nodes, node)
	}

	return nodes
}

func discardReason(err error) string {
	switch {
	case errors.Is(err, ErrTestRun):
		return "test_run"
	case errors.Is(err, ErrTraceParse):
		return "trace_parse"
	case errors.Is(err, ErrWriteTest):
		return "write"
	case errors.Is(err, ErrInvalidExtension):
		return "extension"
	default:
		return "other"
	}
}

func (w *workflow) List(ctx context.Context, args ListArgs) error {
	reg, err := w.loadRegistry(args.Lib, args.APISpec, args.Registry)
	if err != nil {
		return err
	}

	if err := w.Start(ctx, controller.WithReportMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}

	w.DisplayFunctions(ctx, reg.Lib(), reg.Functions())
	w.Wait(ctx)
	w.Close(ctx)

	return nil
}

func (w *workflow) View(ctx context.Context, args ViewArgs) error {
	output := string(args.Output)

	report, err := w.LoadRunReport(w.JoinPath(output, ReportFile))
	if err != nil {
		slog.Error("Failed to load run report", "output", output, "error", err)
		return fmt.Errorf("failed to load run report: %w", err)
	}

	if len(report.Tests) == 0 {
		tests, err := pkg.ReadJournal[m.TestReport](string(w.JoinPath(output, JournalFile)))
		if err != nil {
			slog.Warn("Failed to read journal", "output", output, "error", err)
		}

		report.Tests = tests
	}

	if err := w.Start(ctx, controller.WithReportMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}

	w.DisplayRunSummary(ctx, report)
	w.Wait(ctx)
	w.Close(ctx)

	return nil
}
