package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "nessie.dev/pkg/nessie/internal/model"
)

func TestNewRegistryFromSpec(t *testing.T) {
	reg := NewRegistryFromSpec(m.APISpec{
		Lib: "fs",
		Fns: map[string]m.APIFunctionSpec{
			"writeFile": {Name: "writeFile", NumArgs: 3},
			"readFile":  {Name: "readFile", NumArgs: 2},
			"mkdir":     {NumArgs: 3, UsedDefaultArgs: true},
		},
	})

	assert.Equal(t, "fs", reg.Lib())
	require.Equal(t, 3, reg.Len())

	names := make([]string, 0, reg.Len())
	for _, fn := range reg.Functions() {
		names = append(names, fn.Name)
		assert.Equal(t, m.Root("fs"), fn.AccPath)
	}

	assert.Equal(t, []string{"mkdir", "readFile", "writeFile"}, names)

	mkdir, ok := reg.Lookup(m.Root("fs"), "mkdir")
	require.True(t, ok)
	assert.Nil(t, mkdir.NumArgs)

	readFile, ok := reg.Lookup(m.Root("fs"), "readFile")
	require.True(t, ok)
	require.NotNil(t, readFile.NumArgs)
	assert.Equal(t, 2, *readFile.NumArgs)
}

func TestRegistry_RegisterIsIdempotent(t *testing.T) {
	reg := NewRegistry("fs")

	assert.True(t, reg.Register(m.Root("fs"), "stat", intPtr(2)))
	assert.False(t, reg.Register(m.Root("fs"), "stat", intPtr(5)))

	fn, ok := reg.Lookup(m.Root("fs"), "stat")
	require.True(t, ok)
	assert.Equal(t, 2, *fn.NumArgs)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_RegisterDiscovered(t *testing.T) {
	reg := NewRegistry("fs")
	promise := m.Return(m.Field(m.Root("fs"), "open"))

	assert.True(t, reg.RegisterDiscovered(promise, "then"))
	assert.True(t, reg.RegisterDiscovered(promise, "close"))
	assert.False(t, reg.RegisterDiscovered(promise, "then"))

	then, ok := reg.Lookup(promise, "then")
	require.True(t, ok)
	require.NotNil(t, then.NumArgs)
	assert.Equal(t, 1, *then.NumArgs)

	closeFn, ok := reg.Lookup(promise, "close")
	require.True(t, ok)
	assert.Nil(t, closeFn.NumArgs)

	assert.Len(t, reg.FunctionsAt(promise), 2)
	assert.Empty(t, reg.FunctionsAt(m.Root("fs")))
}

func TestRegistry_RecordSignatureDeduplicatesShapes(t *testing.T) {
	reg := NewRegistry("fs")
	fs := m.Root("fs")

	first := m.NewSignature(m.AbstractShape{m.StringType, m.CallbackType})
	require.NoError(t, first.Args[0].SetValue(m.NewString(`"a"`)))

	second := m.NewSignature(m.AbstractShape{m.StringType, m.CallbackType})
	require.NoError(t, second.Args[0].SetValue(m.NewString(`"b"`)))

	other := m.NewSignature(m.AbstractShape{m.NumberType})

	assert.True(t, reg.RecordSignature(fs, "readFile", first))
	assert.False(t, reg.RecordSignature(fs, "readFile", second))
	assert.True(t, reg.RecordSignature(fs, "readFile", other))
	assert.True(t, reg.RecordSignature(fs, "readFile", m.NewSpreadSignature()))

	fn, ok := reg.Lookup(fs, "readFile")
	require.True(t, ok)
	assert.Nil(t, fn.NumArgs)
	require.Len(t, fn.Sigs, 3)
	assert.Equal(t, `"a"`, fn.Sigs[0].Args[0].Value.Literal)
}

func TestRegistry_RecordSignatureStoresCopy(t *testing.T) {
	reg := NewRegistry("fs")

	sig := m.NewSignature(m.AbstractShape{m.StringType})
	require.NoError(t, sig.Args[0].SetValue(m.NewString(`"a"`)))
	reg.RecordSignature(m.Root("fs"), "stat", sig)

	sig.Args[0].Value.Literal = `"changed"`

	fn, _ := reg.Lookup(m.Root("fs"), "stat")
	assert.Equal(t, `"a"`, fn.Sigs[0].Args[0].Value.Literal)
}

func TestRegistry_DumpRestore(t *testing.T) {
	reg := NewRegistry("fs")
	fs := m.Root("fs")
	promise := m.Return(m.Field(fs, "open"))

	reg.Register(fs, "open", intPtr(3))
	reg.RegisterDiscovered(promise, "then")
	reg.RecordSignature(fs, "open", m.NewSignature(m.AbstractShape{m.StringType, m.StringType, m.CallbackType}))

	restored := NewRegistryFromDump(reg.Dump())

	assert.Equal(t, reg.Dump(), restored.Dump())
	assert.Equal(t, 2, restored.Len())
}
