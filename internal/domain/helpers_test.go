package domain

import (
	"testing"

	"github.com/stretchr/testify/require"

	m "nessie.dev/pkg/nessie/internal/model"
)

func intPtr(v int) *int {
	return &v
}

func nodePtr(id m.NodeID) *m.NodeID {
	return &id
}

// readFileCall returns fs.readFile("a/b/file", <callback>) with an unset callback body.
func readFileCall(t *testing.T) m.FunctionCall {
	t.Helper()

	sig := m.NewSignature(m.AbstractShape{m.StringType, m.CallbackType})
	require.NoError(t, sig.Args[0].SetValue(m.NewString(`"a/b/file"`)))
	require.NoError(t, sig.Args[1].SetValue(m.NewCallback(m.Callback{Sig: m.NewSignature(m.AbstractShape{m.AnyType, m.AnyType})})))

	fs := m.Root("fs")

	return m.NewFunctionCall("readFile", sig, nil, fs)
}

// numberCall returns fs.<name>(1).
func numberCall(t *testing.T, name string) m.FunctionCall {
	t.Helper()

	sig := m.NewSignature(m.AbstractShape{m.NumberType})
	require.NoError(t, sig.Args[0].SetValue(m.NewNumber("1")))

	return m.NewFunctionCall(name, sig, nil, m.Root("fs"))
}

// singleCallTest returns a test holding only call, written as test<index>.js in dir.
func singleCallTest(t *testing.T, call m.FunctionCall, dir m.Path, index int) *Test {
	t.Helper()

	test, id, err := NewBlankTest("fs", m.TestLoc{Index: index, Dir: dir, Prefix: "test"}).
		Extend(m.Sequential, nil, nil, call, false)
	require.NoError(t, err)
	require.Equal(t, m.NodeID(0), id)

	return test
}
