package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "nessie.dev/pkg/nessie/internal/model"
)

func mustParseTrace(t *testing.T, trace string) []Record {
	t.Helper()

	records, err := ParseTrace([]byte(trace))
	require.NoError(t, err)

	return records
}

func TestClassifyCall(t *testing.T) {
	tests := []struct {
		name  string
		trace string
		want  m.FunctionCallResult
	}{
		{
			name:  "callback before completion",
			trace: `[{"before_cb_5": ["a"]}, {"callback_exec_5": 2}, {"done_5": true}]`,
			want:  m.FunctionCallResult{Outcome: m.CallbackCalledSync, CallbackArgPos: 2},
		},
		{
			name:  "callback after completion",
			trace: `[{"done_5": true}, {"callback_exec_5": 0}]`,
			want:  m.FunctionCallResult{Outcome: m.CallbackCalledAsync, CallbackArgPos: 0},
		},
		{
			name:  "completion only",
			trace: `[{"done_5": true}]`,
			want:  m.FunctionCallResult{Outcome: m.NoCallbackCalled},
		},
		{
			name:  "error marker anywhere",
			trace: `[{"done_5": true}, {"callback_exec_5": 1}, {"error_5": true}]`,
			want:  m.FunctionCallResult{Outcome: m.ExecutionError},
		},
		{
			name:  "never completed",
			trace: `[{"callback_exec_5": 1}]`,
			want:  m.FunctionCallResult{Outcome: m.ExecutionError},
		},
		{
			name:  "markers of other calls",
			trace: `[{"done_50": true}, {"error_6": true}, {"done_5": true}]`,
			want:  m.FunctionCallResult{Outcome: m.NoCallbackCalled},
		},
		{
			name:  "marker with extra keys",
			trace: `[{"done_5": true, "extra": 1}]`,
			want:  m.FunctionCallResult{Outcome: m.ExecutionError},
		},
		{
			name:  "callback fired again after completion",
			trace: `[{"callback_exec_5": 1}, {"done_5": true}, {"callback_exec_5": 2}]`,
			want:  m.FunctionCallResult{Outcome: m.CallbackCalledAsync, CallbackArgPos: 2},
		},
		{
			name:  "callback fired twice before completion",
			trace: `[{"callback_exec_5": 1}, {"callback_exec_5": 0}, {"done_5": true}]`,
			want:  m.FunctionCallResult{Outcome: m.CallbackCalledSync, CallbackArgPos: 0},
		},
		{
			name:  "null callback position",
			trace: `[{"done_5": true}, {"callback_exec_5": null}]`,
			want:  m.FunctionCallResult{Outcome: m.NoCallbackCalled},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyCall(mustParseTrace(t, tt.trace), "5"))
		})
	}
}

func TestParseTrace(t *testing.T) {
	t.Run("noise before the trace", func(t *testing.T) {
		records, err := ParseTrace([]byte("(node:1) Warning: something\n[{\"done_0\": true}]\n"))
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.True(t, records[0].isMarker("done_0"))
	})

	t.Run("non-object entries", func(t *testing.T) {
		records, err := ParseTrace([]byte(`[1, "x", {"done_0": true}]`))
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Empty(t, records[0])
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseTrace([]byte("Segmentation fault"))
		require.ErrorIs(t, err, ErrTraceParse)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ParseTrace(nil)
		require.ErrorIs(t, err, ErrTraceParse)
	})

	t.Run("not an array", func(t *testing.T) {
		_, err := ParseTrace([]byte(`{"done_0": true}`))
		require.ErrorIs(t, err, ErrTraceParse)
	})
}

func TestDiagnose_WholeTest(t *testing.T) {
	first := singleCallTest(t, readFileCall(t), "test", 1)
	test, _, err := first.Extend(m.Nested, nodePtr(0), nil, numberCall(t, "stat"), false)
	require.NoError(t, err)

	diag, err := NewDiagnostician(0).Diagnose(test, []byte(
		`[{"done_0": true}, {"callback_exec_0": 1}, {"done_1_pcid0_pos1": true}]`,
	))
	require.NoError(t, err)

	assert.False(t, diag.HasError())
	assert.Equal(t, m.FunctionCallResult{Outcome: m.CallbackCalledAsync, CallbackArgPos: 1}, diag.Results[0])
	assert.Equal(t, m.FunctionCallResult{Outcome: m.NoCallbackCalled}, diag.Results[1])
}

func TestDiagnose_ErrorBlocksExtension(t *testing.T) {
	first := singleCallTest(t, readFileCall(t), "test", 1)
	test, _, err := first.Extend(m.Sequential, nodePtr(0), nil, numberCall(t, "stat"), false)
	require.NoError(t, err)

	diag, err := NewDiagnostician(0).Diagnose(test, []byte(
		`[{"done_0": true}, {"callback_exec_0": 1}, {"error_1": true}]`,
	))
	require.NoError(t, err)

	assert.True(t, diag.HasError())
	assert.Equal(t, m.CallbackCalledAsync, diag.Results[0].Outcome)
	assert.Equal(t, m.ExecutionError, diag.Results[1].Outcome)

	db := newTestDB(DefaultGenConfig(), 1)
	assert.Zero(t, db.AddExtensionPoints(test, diag))
}

func TestDiagnose_NonArrayMarksEveryCallFailed(t *testing.T) {
	test := singleCallTest(t, readFileCall(t), "test", 1)

	diag, err := NewDiagnostician(0).Diagnose(test, []byte(`{"message": "oops"}`))
	require.NoError(t, err)
	assert.Equal(t, m.ExecutionError, diag.Results[0].Outcome)
}

func TestDiagnose_Unparseable(t *testing.T) {
	test := singleCallTest(t, readFileCall(t), "test", 1)

	_, err := NewDiagnostician(0).Diagnose(test, []byte("Killed"))
	require.ErrorIs(t, err, ErrTraceParse)
}

func TestDiagnose_DiscoversFunctions(t *testing.T) {
	test := singleCallTest(t, numberCall(t, "promise"), "test", 1)
	diagnostician := NewDiagnostician(4)

	trace := []byte(`[
		{"(return (module fs))": ["then", "catch"]},
		{"(return (module fs))": ["then"]},
		{"ret_val_fs_0": "[object Promise]"},
		{"(not a path": ["x"]},
		{"(member \"open\" (module fs))": "not a list"},
		{"done_0": true}
	]`)

	diag, err := diagnostician.Diagnose(test, trace)
	require.NoError(t, err)

	require.Len(t, diag.Discovered, 1)
	assert.Equal(t, m.Return(m.Root("fs")), diag.Discovered[0].AccPath)
	assert.Equal(t, []string{"then", "catch"}, diag.Discovered[0].Names)

	// The cached paths decode the same way.
	again, err := diagnostician.Diagnose(test, trace)
	require.NoError(t, err)
	assert.Equal(t, diag.Discovered, again.Discovered)
}

func TestDiagnose_NoDiscoveryAfterError(t *testing.T) {
	first := singleCallTest(t, numberCall(t, "promise"), "test", 1)
	test, _, err := first.Extend(m.Sequential, nodePtr(0), nil, numberCall(t, "stat"), false)
	require.NoError(t, err)

	diag, err := NewDiagnostician(0).Diagnose(test, []byte(`[
		{"(return (module fs))": ["then", "catch"]},
		{"done_0": true},
		{"error_1": true}
	]`))
	require.NoError(t, err)

	assert.True(t, diag.HasError())
	assert.Empty(t, diag.Discovered)

	reg := NewRegistry("fs")
	assert.Empty(t, ApplyDiagnosis(reg, test, diag))
	_, found := reg.Lookup(m.Return(m.Root("fs")), "then")
	assert.False(t, found)
}

func TestApplyDiagnosis(t *testing.T) {
	reg := NewRegistry("fs")
	reg.Register(m.Root("fs"), "readFile", intPtr(2))

	test := singleCallTest(t, readFileCall(t), "test", 1)
	diag := Diagnosis{
		Results: map[m.NodeID]m.FunctionCallResult{0: {Outcome: m.CallbackCalledAsync, CallbackArgPos: 1}},
		Discovered: []DiscoveredFunctions{
			{AccPath: m.Return(m.Root("fs")), Names: []string{"then", "catch"}},
		},
	}

	discovered := ApplyDiagnosis(reg, test, diag)
	assert.Equal(t, []string{
		`(member "then" (return (module fs)))`,
		`(member "catch" (return (module fs)))`,
	}, discovered)

	for _, name := range []string{"then", "catch"} {
		fn, ok := reg.Lookup(m.Return(m.Root("fs")), name)
		require.True(t, ok, name)
		require.NotNil(t, fn.NumArgs)
		assert.Equal(t, 1, *fn.NumArgs)
	}

	readFile, ok := reg.Lookup(m.Root("fs"), "readFile")
	require.True(t, ok)
	require.Len(t, readFile.Sigs, 1)
	require.NotNil(t, readFile.Sigs[0].CallResult)
	assert.Equal(t, m.CallbackCalledAsync, readFile.Sigs[0].CallResult.Outcome)

	// Seen again, nothing is new.
	assert.Empty(t, ApplyDiagnosis(reg, test, diag))
}

func TestApplyDiagnosis_SkipsFailedAndForeignCalls(t *testing.T) {
	reg := NewRegistry("fs")

	sig := m.NewSignature(m.AbstractShape{m.NumberType})
	require.NoError(t, sig.Args[0].SetValue(m.NewNumber("1")))

	foreign := m.NewFunctionCall("resolve", sig, nil, m.Root("q"))
	first := singleCallTest(t, foreign, "test", 1)

	test, _, err := first.Extend(m.Sequential, nodePtr(0), nil, numberCall(t, "stat"), false)
	require.NoError(t, err)

	ApplyDiagnosis(reg, test, Diagnosis{Results: map[m.NodeID]m.FunctionCallResult{
		0: {Outcome: m.NoCallbackCalled},
		1: {Outcome: m.ExecutionError},
	}})

	assert.Zero(t, reg.Len())
}
