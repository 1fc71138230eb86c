package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "nessie.dev/pkg/nessie/internal/model"
)

func TestRun_WriteTextfile(t *testing.T) {
	run := NewRun("fs", "run-1")

	run.TestGenerated(m.TestReport{
		Index:    1,
		Duration: 200 * time.Millisecond,
		Nodes: []m.NodeReport{
			{Outcome: m.CallbackCalledAsync},
			{Outcome: m.NoCallbackCalled},
			{Outcome: m.NoCallbackCalled},
		},
	})
	run.TestDiscarded("test_run")
	run.FunctionsDiscovered(2)
	run.FunctionsDiscovered(0)
	run.FunctionsKnown(7)

	path := filepath.Join(t.TempDir(), "out", "metrics.prom")
	require.NoError(t, run.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	got := string(data)
	for _, want := range []string{
		`nessie_generation_tests_total{lib="fs",run_id="run-1"} 1`,
		`nessie_generation_calls_total{lib="fs",outcome="no_callback",run_id="run-1"} 2`,
		`nessie_generation_calls_total{lib="fs",outcome="callback_async",run_id="run-1"} 1`,
		`nessie_generation_discarded_total{lib="fs",reason="test_run",run_id="run-1"} 1`,
		`nessie_generation_functions_discovered_total{lib="fs",run_id="run-1"} 2`,
		`nessie_generation_functions_known{lib="fs",run_id="run-1"} 7`,
		`nessie_generation_test_duration_seconds_count{lib="fs",run_id="run-1"} 1`,
	} {
		assert.Contains(t, got, want)
	}
}

func TestRun_SeparateRegistries(t *testing.T) {
	first := NewRun("fs", "a")
	second := NewRun("fs", "b")

	first.TestDiscarded("write")

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, second.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "discarded_total{")
}
