package adapter

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "nessie.dev/pkg/nessie/internal/model"
)

func sampleRunReport() m.RunReport {
	return m.RunReport{
		RunID:          "run-1",
		Lib:            "fs",
		Seed:           42,
		StartedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Duration:       1500 * time.Millisecond,
		TestsGenerated: 1,
		Discarded:      2,
		Outcomes:       map[string]int{"callback_async": 1, "no_callback": 1},
		FunctionsKnown: 5,
		Discovered:     []string{`(member "then" (return (module fs)))`},
		Tests: []m.TestReport{{
			Index:     1,
			File:      "test/test1.js",
			Extension: "nested",
			Nodes: []m.NodeReport{
				{ID: "0", Function: "readFile", AccPath: `(member "readFile" (module fs))`, Outcome: m.CallbackCalledAsync, CallbackArgPos: 1},
				{ID: "1_pcid0_pos1", Function: "stat", AccPath: `(member "stat" (module fs))`, Outcome: m.NoCallbackCalled, Nested: true},
			},
			NewPoints: 3,
			Attempts:  1,
			Duration:  20 * time.Millisecond,
		}},
	}
}

func TestLocalReportStore_RunReportJSON(t *testing.T) {
	store := NewLocalReportStore()
	path := m.Path(filepath.Join(t.TempDir(), "out", "report.json"))

	report := sampleRunReport()
	require.NoError(t, store.SaveRunReport(path, report))

	loaded, err := store.LoadRunReport(path)
	require.NoError(t, err)
	assert.Equal(t, report, loaded)
}

func TestLocalReportStore_RunReportYAML(t *testing.T) {
	store := NewLocalReportStore()
	path := m.Path(filepath.Join(t.TempDir(), "report.yaml"))

	report := sampleRunReport()
	require.NoError(t, store.SaveRunReport(path, report))

	loaded, err := store.LoadRunReport(path)
	require.NoError(t, err)

	assert.Equal(t, report.Lib, loaded.Lib)
	assert.Equal(t, report.Outcomes, loaded.Outcomes)
	require.Len(t, loaded.Tests, 1)
	assert.Equal(t, report.Tests[0].Nodes, loaded.Tests[0].Nodes)
}

func TestLocalReportStore_LoadRunReportErrors(t *testing.T) {
	store := NewLocalReportStore()
	dir := t.TempDir()

	_, err := store.LoadRunReport(m.Path(filepath.Join(dir, "missing.json")))
	require.Error(t, err)

	path := filepath.Join(dir, "broken.json")
	writeTestFile(t, path, `{"run_id": `)

	_, err = store.LoadRunReport(m.Path(path))
	require.Error(t, err)
}

func TestLocalReportStore_Traces(t *testing.T) {
	store := NewLocalReportStore()
	path := m.Path(filepath.Join(t.TempDir(), "traces", "test1.json"))
	trace := []byte(`[{"done_0": true}]`)

	require.NoError(t, store.SaveTrace(path, trace))

	loaded, err := store.LoadTrace(path)
	require.NoError(t, err)
	assert.Equal(t, trace, loaded)

	_, err = store.LoadTrace(m.Path(filepath.Join(t.TempDir(), "nope.json")))
	require.Error(t, err)
}
