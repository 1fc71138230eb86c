package adapter

import (
	"fmt"
	"strconv"
	"strings"

	m "nessie.dev/pkg/nessie/internal/model"
)

const instrumentedHeader = `let orig_log = console.log;
let output_log = [];
console.log = function(e) {
	output_log.push(e);
}
function getTypeDiffObjFromPromise(val) {
	if (val === undefined || val === null) {
		return String(val);
	}
	if (val.toString() === "[object Promise]") {
		return "DIFFTYPE_Promise";
	}
	return typeof val;
}
function getValueRep(val) {
	if (getTypeDiffObjFromPromise(val) == "function") {
		return "[function]";
	}
	return String(val);
}
`

const instrumentedFooter = `process.on("exit", function f() {
	orig_log(JSON.stringify(output_log));
});
`

const metaTestHeader = `if (!process.hasUncaughtExceptionCaptureCallback()) process.setUncaughtExceptionCaptureCallback(() => {
	console.log("{\"async_error_in_test\": true}");
});
`

// RenderOptions controls how a test is rendered.
type RenderOptions struct {
	// Instrumented adds the trace logging the diagnostics rely on.
	Instrumented bool
	// AsTestFunction wraps the body in `module.exports = function() {...}`
	// so the meta test can drive it.
	AsTestFunction bool
}

// TestRenderer turns call trees into runnable test files.
type TestRenderer interface {
	Render(tree m.CallTree, opts RenderOptions) ([]byte, error)
	RenderMetaTest(tests []m.TestLoc) []byte
}

// JSRenderer renders Node.js tests.
type JSRenderer struct {
	srcDir     string
	importCode string
}

// JSRendererOption configures a JSRenderer.
type JSRendererOption func(*JSRenderer)

// WithSourceDir makes tests require the library from dir instead of by name.
func WithSourceDir(dir string) JSRendererOption {
	return func(r *JSRenderer) {
		r.srcDir = dir
	}
}

// WithImportCode replaces the require expression of the library.
func WithImportCode(code string) JSRendererOption {
	return func(r *JSRenderer) {
		r.importCode = code
	}
}

// NewJSRenderer constructs a JSRenderer.
func NewJSRenderer(opts ...JSRendererOption) *JSRenderer {
	r := &JSRenderer{}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Render produces the source of the test described by tree.
func (r *JSRenderer) Render(tree m.CallTree, opts RenderOptions) ([]byte, error) {
	var sb strings.Builder

	if opts.Instrumented {
		sb.WriteString(instrumentedHeader)
	}

	sb.WriteString(r.importLine(tree.Lib))

	for _, module := range tree.ForeignModules() {
		fmt.Fprintf(&sb, "let %s = require(%s);\n", m.LibVarName(module), m.QuoteString(module))
	}

	depth := 0
	if opts.AsTestFunction {
		sb.WriteString("module.exports = function() {\n")

		depth = 1
	}

	w := &jsWriter{tree: tree, instrumented: opts.Instrumented}

	for _, id := range tree.Roots() {
		if err := w.call(&sb, id, depth); err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", tree.Loc.Name(), err)
		}
	}

	if opts.AsTestFunction {
		sb.WriteString("}\n")
	}

	if opts.Instrumented {
		sb.WriteString(instrumentedFooter)
	}

	return []byte(sb.String()), nil
}

func (r *JSRenderer) importLine(lib string) string {
	expr := r.importCode
	if expr == "" {
		target := lib
		if r.srcDir != "" {
			target = r.srcDir
		}

		expr = "require(" + m.QuoteString(target) + ")"
	}

	return "let " + m.LibVarName(lib) + " = " + strings.TrimSuffix(strings.TrimSpace(expr), ";") + ";\n"
}

// RenderMetaTest produces a mocha suite running every test in order.
func (r *JSRenderer) RenderMetaTest(tests []m.TestLoc) []byte {
	var sb strings.Builder

	sb.WriteString(metaTestHeader)

	for _, loc := range tests {
		name := strings.TrimSuffix(loc.Name(), ".js")
		fmt.Fprintf(&sb, "\ndescribe('%s!', function () {\n\tit('', async () => {\n\t\tawait require('./%s')();\n\t});\n});\n", name, loc.Name())
	}

	return []byte(sb.String())
}

type jsWriter struct {
	tree         m.CallTree
	instrumented bool
}

func writeLine(sb *strings.Builder, depth int, line string) {
	sb.WriteString(strings.Repeat("\t", depth))
	sb.WriteString(line)
	sb.WriteByte('\n')
}

// log writes `console.log({key: expr});` when instrumenting.
func (w *jsWriter) log(sb *strings.Builder, depth int, key, expr string) {
	if w.instrumented {
		writeLine(sb, depth, "console.log({"+m.QuoteString(key)+": "+expr+"});")
	}
}

func (w *jsWriter) call(sb *strings.Builder, id m.NodeID, depth int) error {
	call := w.tree.Calls[id]
	uid := w.tree.UniqID(id)
	ret := m.ReturnVarName(w.tree.Lib, uid)

	receiver := m.LibVarName(w.tree.Lib)
	if call.Receiver != nil {
		if call.Receiver.Kind != m.VariableVal {
			return fmt.Errorf("receiver of %s must be a variable, got %s", call.Name, call.Receiver.Type())
		}

		receiver = call.Receiver.Literal
	} else if module := call.AccPath.RootModule(); module != w.tree.Lib {
		receiver = m.LibVarName(module)
	}

	args, err := w.args(id, call, depth+1)
	if err != nil {
		return err
	}

	writeLine(sb, depth, "let "+ret+";")
	writeLine(sb, depth, "try {")

	if err := w.argLogs(sb, depth+1, "before_cb_"+uid+"_"+ret, call.Sig); err != nil {
		return err
	}

	writeLine(sb, depth+1, ret+" = "+receiver+"."+call.Name+"("+args+");")

	if err := w.argLogs(sb, depth+1, "after_cb_"+uid+"_"+ret, call.Sig); err != nil {
		return err
	}

	if w.instrumented {
		key := m.QuoteString(call.ReturnPath().String())
		writeLine(sb, depth+1, "if (getTypeDiffObjFromPromise("+ret+") == \"object\") {")
		writeLine(sb, depth+2, "console.log({"+key+": Object.getOwnPropertyNames("+ret+").filter((p) => typeof "+ret+"[p] === \"function\")});")
		writeLine(sb, depth+1, "} else if (getTypeDiffObjFromPromise("+ret+") == \"DIFFTYPE_Promise\") {")
		writeLine(sb, depth+2, "console.log({"+key+": [\"then\", \"catch\"]});")
		writeLine(sb, depth+1, "}")
	}

	w.log(sb, depth+1, ret, "getValueRep("+ret+")")
	w.log(sb, depth+1, ret+"_type", "getTypeDiffObjFromPromise("+ret+")")
	w.log(sb, depth+1, ret+"_acc_path", m.QuoteString(call.ReturnPath().String()))

	errorLog := "console.log({" + m.QuoteString("error_"+uid) + ": true});"

	writeLine(sb, depth+1, "Promise.resolve("+ret+").catch(e => { "+errorLog+" });")
	writeLine(sb, depth, "} catch(e) {")
	writeLine(sb, depth+1, errorLog)
	writeLine(sb, depth, "}")
	w.log(sb, depth, "done_"+uid, "true")

	return nil
}

// args renders the argument list; callbacks carry the calls nested in them.
func (w *jsWriter) args(id m.NodeID, call m.FunctionCall, depth int) (string, error) {
	if call.Sig.IsSpreadArgs {
		return "", nil
	}

	parts := make([]string, len(call.Sig.Args))

	for i, arg := range call.Sig.Args {
		if arg.Value != nil && arg.Value.IsGeneratedCallback() {
			body, err := w.callback(*arg.Value.Callback, w.tree.Children(id, i), depth)
			if err != nil {
				return "", err
			}

			parts[i] = body

			continue
		}

		rendered, err := arg.Render()
		if err != nil {
			return "", fmt.Errorf("argument %d of %s: %w", i, call.Name, err)
		}

		parts[i] = rendered
	}

	return strings.Join(parts, ", "), nil
}

func (w *jsWriter) callback(cb m.Callback, children []m.NodeID, depth int) (string, error) {
	var sb strings.Builder

	params := cb.ParamNames()
	sb.WriteString("(" + strings.Join(params, ", ") + ") => {\n")

	for _, param := range params {
		w.log(&sb, depth, "in_"+param, param)
	}

	if cb.CbID != nil && cb.ArgPos != nil {
		w.log(&sb, depth, "callback_exec_"+*cb.CbID, strconv.Itoa(*cb.ArgPos))
	}

	for _, child := range children {
		if err := w.call(&sb, child, depth); err != nil {
			return "", err
		}
	}

	sb.WriteString(strings.Repeat("\t", depth-1) + "}")

	return sb.String(), nil
}

func (w *jsWriter) argLogs(sb *strings.Builder, depth int, prefix string, sig m.FunctionSignature) error {
	if !w.instrumented {
		return nil
	}

	for i, arg := range sig.Args {
		val := `"[function]"`

		if arg.Type != m.CallbackType && (arg.Value == nil || !arg.Value.IsGeneratedCallback()) {
			rendered, err := arg.Render()
			if err != nil {
				return err
			}

			val = rendered
		}

		w.log(sb, depth, prefix+"_arg"+strconv.Itoa(i), val)
	}

	return nil
}
