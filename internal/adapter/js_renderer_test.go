package adapter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "nessie.dev/pkg/nessie/internal/model"
)

// readFileTree is `fs.readFile("a", cb)` with `fs.stat(<cb arg 0>)` nested
// in the callback, followed by `ret.then(...)`-style sequential call on the
// first return value.
func readFileTree(t *testing.T) m.CallTree {
	t.Helper()

	sig := m.NewSignature(m.AbstractShape{m.StringType, m.CallbackType})
	require.NoError(t, sig.Args[0].SetValue(m.NewString(`"a"`)))
	require.NoError(t, sig.Args[1].SetValue(m.NewCallback(m.Callback{Sig: m.NewSignature(m.AbstractShape{m.AnyType, m.AnyType})})))
	sig.TagCallbacks("0")
	readFile := m.NewFunctionCall("readFile", sig, nil, m.Root("fs"))

	childSig := m.NewSignature(m.AbstractShape{m.AnyType})
	require.NoError(t, childSig.Args[0].SetValue(m.NewVariable("cb_0_1_arg_0")))
	stat := m.NewFunctionCall("stat", childSig, nil, m.Root("fs"))
	parent, pos := m.NodeID(0), 1
	stat.ParentID = &parent
	stat.ParentArgPos = &pos

	recv := m.NewVariable("ret_val_fs_0")
	toString := m.NewFunctionCall("toString", m.NewSignature(nil), &recv, m.Return(readFile.AccPath))

	return m.CallTree{
		Lib:   "fs",
		Loc:   m.TestLoc{Index: 1, Dir: "test", Prefix: "test"},
		Calls: []m.FunctionCall{readFile, stat, toString},
	}
}

func TestJSRenderer_RenderInstrumented(t *testing.T) {
	out, err := NewJSRenderer().Render(readFileTree(t), RenderOptions{Instrumented: true})
	require.NoError(t, err)

	code := string(out)

	for _, want := range []string{
		"let output_log = [];",
		`let fs = require("fs");`,
		`ret_val_fs_0 = fs.readFile("a", (cb_0_1_arg_0, cb_0_1_arg_1) => {`,
		`console.log({"in_cb_0_1_arg_0": cb_0_1_arg_0});`,
		`console.log({"callback_exec_0": 1});`,
		`ret_val_fs_1_pcid0_pos1 = fs.stat(cb_0_1_arg_0);`,
		`console.log({"done_1_pcid0_pos1": true});`,
		`console.log({"before_cb_0_ret_val_fs_0_arg0": "a"});`,
		`console.log({"before_cb_0_ret_val_fs_0_arg1": "[function]"});`,
		`console.log({"(return (member \"readFile\" (module fs)))": Object.getOwnPropertyNames(ret_val_fs_0).filter((p) => typeof ret_val_fs_0[p] === "function")});`,
		`ret_val_fs_2 = ret_val_fs_0.toString();`,
		`console.log({"error_2": true});`,
		`console.log({"done_0": true});`,
		"orig_log(JSON.stringify(output_log));",
	} {
		assert.Contains(t, code, want)
	}

	// The nested call is rendered inside the callback, before the outer call completes.
	assert.Less(t, strings.Index(code, "fs.stat("), strings.Index(code, `"done_0"`))
	assert.Less(t, strings.Index(code, `"done_0"`), strings.Index(code, "ret_val_fs_0.toString()"))
}

func TestJSRenderer_RenderPlainAsTestFunction(t *testing.T) {
	out, err := NewJSRenderer(WithSourceDir("/src/fs")).Render(readFileTree(t), RenderOptions{AsTestFunction: true})
	require.NoError(t, err)

	code := string(out)

	assert.True(t, strings.HasPrefix(code, `let fs = require("/src/fs");`))
	assert.Contains(t, code, "module.exports = function() {\n")
	assert.Contains(t, code, "\tret_val_fs_0 = fs.readFile(")
	assert.NotContains(t, code, "output_log")
	assert.NotContains(t, code, "done_0")
	assert.Contains(t, code, `console.log({"error_0": true});`)
}

func TestJSRenderer_ImportCodeAndForeignModules(t *testing.T) {
	sig := m.NewSignature(m.AbstractShape{m.NumberType})
	require.NoError(t, sig.Args[0].SetValue(m.NewNumber("1")))

	recv := m.NewVariable("q")
	tree := m.CallTree{
		Lib:   "my-lib",
		Calls: []m.FunctionCall{m.NewFunctionCall("reject", sig, &recv, m.Root("q"))},
	}

	out, err := NewJSRenderer(WithImportCode(`require("./index.js");`)).Render(tree, RenderOptions{})
	require.NoError(t, err)

	code := string(out)
	assert.Contains(t, code, `let my_lib = require("./index.js");`)
	assert.Contains(t, code, `let q = require("q");`)
	assert.Contains(t, code, "ret_val_my_lib_0 = q.reject(1);")
}

func TestJSRenderer_RejectsUnsetArgument(t *testing.T) {
	tree := m.CallTree{
		Lib:   "fs",
		Calls: []m.FunctionCall{m.NewFunctionCall("readFile", m.NewSignature(m.AbstractShape{m.StringType}), nil, m.Root("fs"))},
	}

	_, err := NewJSRenderer().Render(tree, RenderOptions{Instrumented: true})
	require.ErrorIs(t, err, m.ErrArgValNotSet)
}

func TestJSRenderer_RenderMetaTest(t *testing.T) {
	code := string(NewJSRenderer().RenderMetaTest([]m.TestLoc{
		{Index: 1, Prefix: "test"},
		{Index: 2, Prefix: "test"},
	}))

	assert.Contains(t, code, "setUncaughtExceptionCaptureCallback")
	assert.Contains(t, code, "describe('test1!', function () {")
	assert.Contains(t, code, "await require('./test2.js')();")
}
