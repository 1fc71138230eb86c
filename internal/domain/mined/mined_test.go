package mined

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "nessie.dev/pkg/nessie/internal/model"
)

func strPtr(s string) *string {
	return &s
}

func ident(name string) m.MinedParam {
	return m.MinedParam{Ident: strPtr(name)}
}

func callbackParam() m.MinedParam {
	return m.MinedParam{Callback: strPtr("CALLBACK")}
}

func objectParam() m.MinedParam {
	return m.MinedParam{Object: strPtr("OBJECT")}
}

// readFileCall returns fs.readFile("a", <callback>).
func readFileCall(t *testing.T, receiver m.AccessPath) m.FunctionCall {
	t.Helper()

	sig := m.NewSignature(m.AbstractShape{m.StringType, m.CallbackType})
	require.NoError(t, sig.Args[0].SetValue(m.NewString(`"a"`)))
	require.NoError(t, sig.Args[1].SetValue(m.NewCallback(m.Callback{Sig: m.NewSignature(m.AbstractShape{m.AnyType, m.AnyType})})))

	return m.NewFunctionCall("readFile", sig, nil, receiver)
}

func TestParseCallTemplate(t *testing.T) {
	tmpl, err := ParseCallTemplate(m.MinedAPICall{
		Pkg:           `"fs"`,
		AccPath:       `use (member "writeFile" (member "exports" (module fs)))`,
		SigWithTypes:  "(string,object,number,function)",
		SigWithValues: `("a, b",{x: [1, 2]},_NOT_CONST_OR_FCT_,_NOT_CONST_OR_FCT_)`,
	})
	require.NoError(t, err)

	assert.Equal(t, "fs", tmpl.Pkg)
	assert.Equal(t, "writeFile", tmpl.Name)
	assert.Equal(t, m.Root("fs"), tmpl.Receiver)
	require.Len(t, tmpl.Args, 4)

	assert.Equal(t, m.StringType, *tmpl.Args[0].Type)
	assert.Equal(t, m.NewString(`"a, b"`), *tmpl.Args[0].Value)
	assert.Equal(t, m.NewObject("{x: [1, 2]}"), *tmpl.Args[1].Value)
	assert.Equal(t, m.NumberType, *tmpl.Args[2].Type)
	assert.Nil(t, tmpl.Args[2].Value)
	assert.Equal(t, m.CallbackType, *tmpl.Args[3].Type)
	assert.Nil(t, tmpl.Args[3].Value)
}

func TestParseCallTemplate_UnknownTypes(t *testing.T) {
	tmpl, err := ParseCallTemplate(m.MinedAPICall{
		AccPath:      `(member "stat" (module fs))`,
		SigWithTypes: "(_NOT_CONST_OR_FCT_,boolean)",
	})
	require.NoError(t, err)

	assert.Equal(t, "fs", tmpl.Pkg)
	require.Len(t, tmpl.Args, 2)
	assert.Nil(t, tmpl.Args[0].Type)
	assert.Nil(t, tmpl.Args[1].Type)
}

func TestParseCallTemplate_Invalid(t *testing.T) {
	for _, accPath := range []string{"(module fs)", `(member 0 (module fs))`, "not a path"} {
		_, err := ParseCallTemplate(m.MinedAPICall{AccPath: accPath, SigWithTypes: "()"})
		assert.Error(t, err, accPath)
	}
}

func TestNormalizeExports(t *testing.T) {
	path, err := m.ParseAccessPath(`(return (member "open" (member "exports" (module fs))))`)
	require.NoError(t, err)

	assert.Equal(t, m.Return(m.Field(m.Root("fs"), "open")), NormalizeExports(path))
	assert.Equal(t, m.Root("fs"), NormalizeExports(m.Root("fs")))
}

func TestSplitSignature(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"()", nil},
		{"(a)", []string{"a"}},
		{"(a, b)", []string{"a", "b"}},
		{`('x,y', "q\"r,s", [1, 2], {a: 1, b: 2}, f(1, 2))`, []string{`'x,y'`, `"q\"r,s"`, "[1, 2]", "{a: 1, b: 2}", "f(1, 2)"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, splitSignature(tt.in))
		})
	}
}

func TestSignatureFromParams(t *testing.T) {
	sig, err := SignatureFromParams([]m.MinedParam{ident("x"), objectParam(), callbackParam()})
	require.NoError(t, err)
	assert.Equal(t, m.AbstractShape{m.AnyType, m.ObjectType, m.CallbackType}, sig.Shape())

	_, err = SignatureFromParams([]m.MinedParam{{}})
	require.Error(t, err)

	_, err = SignatureFromParams([]m.MinedParam{{Ident: strPtr("x"), Object: strPtr("OBJECT")}})
	require.Error(t, err)
}

func TestNestedExtensions(t *testing.T) {
	corpus := NewCorpus([]m.MinedNestingPair{
		{
			OuterPkg: `"fs"`, OuterFct: "readFile", OuterParams: []m.MinedParam{ident("p"), callbackParam()},
			InnerPkg: `"q"`, InnerFct: "reject", InnerParams: []m.MinedParam{ident("outer_arg_1"), ident("outer_arg_x")},
		},
		{
			OuterPkg: "fs", OuterFct: "readFile", OuterParams: []m.MinedParam{ident("p"), objectParam(), callbackParam()},
			InnerPkg: "fs", InnerFct: "close", InnerParams: []m.MinedParam{ident("fd")},
		},
		{
			OuterPkg: "fs", OuterFct: "stat", OuterParams: []m.MinedParam{ident("p"), callbackParam()},
			InnerPkg: "fs", InnerFct: "close", InnerParams: []m.MinedParam{ident("fd")},
		},
		{
			OuterPkg: "fs", OuterFct: "readFile", OuterParams: []m.MinedParam{ident("p"), callbackParam()},
			InnerPkg: "fs", InnerFct: "broken", InnerParams: []m.MinedParam{{}},
		},
	}, nil)

	assert.Equal(t, 4, corpus.NumPairs("fs"))

	exts := corpus.NestedExtensions(readFileCall(t, m.Root("fs")), "fs")
	require.Len(t, exts, 1)
	assert.Equal(t, "q", exts[0].Pkg)
	assert.Equal(t, "reject", exts[0].Name)
	assert.Equal(t, []Dataflow{{OuterPos: 1, InnerPos: 0}}, exts[0].Dataflow)

	// Calls on other receivers or without callbacks match nothing.
	promise := m.Return(m.Field(m.Root("fs"), "open"))
	assert.Empty(t, corpus.NestedExtensions(readFileCall(t, promise), "fs"))

	plain := m.NewFunctionCall("readFile", m.NewSignature(m.AbstractShape{m.StringType, m.StringType}), nil, m.Root("fs"))
	assert.Empty(t, corpus.NestedExtensions(plain, "fs"))

	var empty *Corpus
	assert.Empty(t, empty.NestedExtensions(readFileCall(t, m.Root("fs")), "fs"))
}

func TestNewCorpus(t *testing.T) {
	corpus := NewCorpus(nil, []m.MinedAPICall{
		{Pkg: "fs", AccPath: `(member "stat" (module fs))`, SigWithTypes: "(string)"},
		{Pkg: "fs", AccPath: "garbage", SigWithTypes: "(string)"},
	})

	assert.False(t, corpus.Empty())
	assert.Len(t, corpus.CallTemplates("fs"), 1)
	assert.Empty(t, corpus.CallTemplates("q"))

	assert.True(t, NewCorpus(nil, nil).Empty())

	var missing *Corpus
	assert.True(t, missing.Empty())
	assert.Zero(t, missing.NumPairs("fs"))
	assert.Nil(t, missing.CallTemplates("fs"))
}
