package domain

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"nessie.dev/pkg/nessie/internal/domain/mined"
	m "nessie.dev/pkg/nessie/internal/model"
)

// Scope is what a new call can draw on at its extension point.
type Scope struct {
	ExtType m.ExtensionType
	// ExtCall is the call being extended, nil for a blank test.
	ExtCall *m.FunctionCall
	RetVals []m.TrackedVal
	CbArgs  []m.ArgVal
}

// Generated is the outcome of one generation step.
type Generated struct {
	Test  *Test
	Node  m.NodeID
	Ext   m.ExtensionType
	Point ExtensionPoint
	// Source names how the call was chosen: random, mined-nesting or mined-call.
	Source string
}

const (
	sourceRandom       = "random"
	sourceMinedNesting = "mined-nesting"
	sourceMinedCall    = "mined-call"
)

// TestGenDB is the state of one generation run: selection weights, the pool
// of extension points, the test counter and the mined corpus. It is not safe
// for concurrent use.
type TestGenDB struct {
	cfg       GenConfig
	rnd       *rand.Rand
	values    *valueGenerator
	weights   *weightTable
	corpus    *mined.Corpus
	points    []ExtensionPoint
	testIndex int
	testDir   m.Path
	prefix    string
}

// TestGenDBOption configures a TestGenDB.
type TestGenDBOption func(*TestGenDB)

// WithCorpus sets the mined corpus.
func WithCorpus(corpus *mined.Corpus) TestGenDBOption {
	return func(db *TestGenDB) {
		db.corpus = corpus
	}
}

// WithFSPaths sets the toy filesystem paths used as string arguments.
func WithFSPaths(paths []m.Path, toyBase m.Path, resolver PathResolver) TestGenDBOption {
	return func(db *TestGenDB) {
		db.values.fsPaths = paths
		db.values.toyBase = toyBase
		db.values.resolver = resolver
	}
}

// WithTestLocation sets where generated tests are written.
func WithTestLocation(dir m.Path, prefix string) TestGenDBOption {
	return func(db *TestGenDB) {
		db.testDir = dir
		db.prefix = prefix
	}
}

// NewTestGenDB creates the generator state.
func NewTestGenDB(cfg GenConfig, rnd *rand.Rand, opts ...TestGenDBOption) *TestGenDB {
	db := &TestGenDB{
		cfg:     cfg,
		rnd:     rnd,
		values:  &valueGenerator{rnd: rnd, cfg: cfg, toyBase: "."},
		weights: newWeightTable(),
		testDir: ".",
		prefix:  "test",
	}

	for _, opt := range opts {
		opt(db)
	}

	return db
}

// TestIndex returns the index of the last committed test.
func (db *TestGenDB) TestIndex() int {
	return db.testIndex
}

// CommitTest records that the test at index was kept.
func (db *TestGenDB) CommitTest(index int) {
	db.testIndex = index
}

// NumExtensionPoints returns the size of the extension pool.
func (db *TestGenDB) NumExtensionPoints() int {
	return len(db.points)
}

// ExtensionPoints returns the extension pool.
func (db *TestGenDB) ExtensionPoints() []ExtensionPoint {
	return append([]ExtensionPoint(nil), db.points...)
}

func (db *TestGenDB) nextLoc() m.TestLoc {
	return m.TestLoc{Index: db.testIndex + 1, Dir: db.testDir, Prefix: db.prefix}
}

// NextTest builds the next candidate test, extending a random pooled test
// with a random extension type.
func (db *TestGenDB) NextTest(reg *Registry) (Generated, error) {
	return db.Extend(reg, m.ExtensionTypes[db.rnd.IntN(len(m.ExtensionTypes))])
}

// Extend builds the next candidate test with the given extension type.
func (db *TestGenDB) Extend(reg *Registry, ext m.ExtensionType) (Generated, error) {
	point := db.testToExtend(reg.Lib(), ext)
	base := point.Test

	if (base.IsEmpty() || point.Node == nil) && ext == m.Nested && !db.cfg.FreshTestIfCantExtend {
		return Generated{}, fmt.Errorf("%w: no test to nest in", ErrInvalidExtension)
	}

	scope := Scope{ExtType: ext}

	if point.Node != nil {
		call, _ := base.Call(*point.Node)
		scope.ExtCall = &call
		scope.RetVals = base.ValuesInScope(*point.Node)
		scope.CbArgs = base.CallbackArgsInScope(*point.Node, ext, point.CbArgPos)
	}

	call, source, err := db.generateCall(reg, scope)
	if err != nil {
		return Generated{}, err
	}

	test, id, err := base.Extend(ext, point.Node, point.CbArgPos, call, db.cfg.FreshTestIfCantExtend)
	if err != nil {
		return Generated{}, err
	}

	return Generated{
		Test:   test.WithLoc(db.nextLoc()),
		Node:   id,
		Ext:    ext,
		Point:  point,
		Source: source,
	}, nil
}

// testToExtend picks a pooled extension point of type ext, or a blank test
// when there is none.
func (db *TestGenDB) testToExtend(lib string, ext m.ExtensionType) ExtensionPoint {
	var candidates []ExtensionPoint

	for _, point := range db.points {
		if point.Type == ext {
			candidates = append(candidates, point)
		}
	}

	if len(candidates) == 0 {
		return ExtensionPoint{Type: ext, Test: NewBlankTest(lib, db.nextLoc())}
	}

	return candidates[db.rnd.IntN(len(candidates))]
}

// AddExtensionPoints adds every call of test that can be extended to the
// pool and returns how many points were added. A test with any failed call
// contributes nothing.
func (db *TestGenDB) AddExtensionPoints(test *Test, diag Diagnosis) int {
	if diag.HasError() {
		return 0
	}

	added := 0

	for i := range test.Len() {
		id := m.NodeID(i)

		res, ok := diag.Results[id]
		if !ok {
			continue
		}

		for _, ext := range m.ExtensionTypes {
			if !res.CanBeExtended(ext) {
				continue
			}

			node := id
			point := ExtensionPoint{Type: ext, Test: test, Node: &node}

			if res.CallbackCalled() {
				pos := res.CallbackArgPos
				point.CbArgPos = &pos
			}

			db.points = append(db.points, point)
			added++
		}
	}

	return added
}

// GenerateCall chooses a function and its arguments for scope.
func (db *TestGenDB) GenerateCall(reg *Registry, scope Scope) (m.FunctionCall, error) {
	call, _, err := db.generateCall(reg, scope)

	return call, err
}

func (db *TestGenDB) generateCall(reg *Registry, scope Scope) (m.FunctionCall, string, error) {
	if scope.ExtType == m.Nested && scope.ExtCall != nil && db.values.chance(db.cfg.UseMinedNesting) {
		call, ok, err := db.minedNestedCall(reg, scope)
		if err != nil {
			return m.FunctionCall{}, "", err
		}

		if ok {
			return call, sourceMinedNesting, nil
		}
	}

	receivers := newReceiverSet(reg.Lib(), scope.RetVals)

	if db.values.chance(db.cfg.UseMinedCall) {
		call, ok, err := db.minedCall(reg, scope, receivers)
		if err != nil {
			return m.FunctionCall{}, "", err
		}

		if ok {
			return call, sourceMinedCall, nil
		}
	}

	call, err := db.randomCall(reg, scope, receivers)
	if err != nil {
		return m.FunctionCall{}, "", err
	}

	return call, sourceRandom, nil
}

// randomCall samples a function by weight among those reachable from the
// receivers in scope, then picks a receiver and a signature for it.
func (db *TestGenDB) randomCall(reg *Registry, scope Scope, receivers *receiverSet) (m.FunctionCall, error) {
	db.weights.sync(reg)

	weights := make([]float64, len(db.weights.entries))
	for i, entry := range db.weights.entries {
		if receivers.has(entry.fn.AccPath) {
			weights[i] = entry.weight
		}
	}

	idx, ok := pickWeighted(db.rnd, weights)
	if !ok {
		slog.Error("Failed to find a callable function", "lib", reg.Lib(), "known", reg.Len())
		return m.FunctionCall{}, fmt.Errorf("%w: none of %d functions is reachable", ErrNoCandidateFunctions, reg.Len())
	}

	key := db.weights.entries[idx].fn
	group := receivers.get(key.AccPath)

	fn, _ := reg.Lookup(group.path, key.Name)

	numArgs := db.values.randomArity()
	if fn.NumArgs != nil {
		numArgs = *fn.NumArgs
	}

	cbPos := db.values.randomCallbackPosition(numArgs)

	var sig m.FunctionSignature

	if shape, reuse := db.reuseShape(key); reuse {
		sig = m.NewSignature(shape)
	} else {
		sig = db.values.newSignature(numArgs, cbPos)
	}

	db.weights.decayFunction(key, db.cfg.RechooseFctFactor)
	db.weights.decayShape(key, sig.Shape().Key(), db.cfg.RechooseSigFactor)

	call := m.NewFunctionCall(fn.Name, sig, group.pick(db.rnd), group.path)
	if err := db.initArgs(reg, &call, scope); err != nil {
		return m.FunctionCall{}, err
	}

	return call, nil
}

// reuseShape decides whether to reuse a previously seen shape of key.
func (db *TestGenDB) reuseShape(key m.FunctionKey) (m.AbstractShape, bool) {
	entry, ok := db.weights.entry(key)
	if !ok || len(entry.sigOrder) == 0 || db.values.chance(db.cfg.ChooseNewSigPct) {
		return nil, false
	}

	shapeKey, ok := db.weights.pickShape(db.rnd, key)
	if !ok {
		return nil, false
	}

	shape, err := shapeKey.Shape()
	if err != nil {
		return nil, false
	}

	return shape, true
}

// minedNestedCall instantiates a mined call found inside the callback of the
// extended function, routing the outer callback's parameters into it.
func (db *TestGenDB) minedNestedCall(reg *Registry, scope Scope) (m.FunctionCall, bool, error) {
	lib := reg.Lib()

	exts := db.corpus.NestedExtensions(*scope.ExtCall, lib)
	if len(exts) == 0 {
		return m.FunctionCall{}, false, nil
	}

	positions := scope.ExtCall.Sig.CallbackPositions()
	if len(positions) != 1 {
		return m.FunctionCall{}, false, nil
	}

	ext := exts[db.rnd.IntN(len(exts))]

	var receiver *m.ArgVal
	if ext.Pkg != lib {
		v := m.NewVariable(m.LibVarName(ext.Pkg))
		receiver = &v
	}

	call := m.NewFunctionCall(ext.Name, ext.Sig.Clone(), receiver, m.Root(ext.Pkg))

	cb, _ := scope.ExtCall.Sig.CallbackAt(positions[0])
	outerArgs := cb.ArgValues()

	for _, flow := range ext.Dataflow {
		if flow.OuterPos >= len(outerArgs) || flow.InnerPos >= len(call.Sig.Args) {
			continue
		}

		call.Sig.Args[flow.InnerPos] = m.FunctionArgument{Type: m.AnyType}
		if err := call.Sig.Args[flow.InnerPos].SetValue(outerArgs[flow.OuterPos]); err != nil {
			return m.FunctionCall{}, false, err
		}
	}

	if err := db.initArgs(reg, &call, scope); err != nil {
		return m.FunctionCall{}, false, err
	}

	slog.Debug("Using mined nesting", "outer", scope.ExtCall.Name, "inner", ext.Pkg+"."+ext.Name)

	return call, true, nil
}

// minedCall instantiates a mined call site whose receiver is in scope.
func (db *TestGenDB) minedCall(reg *Registry, scope Scope, receivers *receiverSet) (m.FunctionCall, bool, error) {
	var candidates []mined.CallTemplate

	for _, tmpl := range db.corpus.CallTemplates(reg.Lib()) {
		if receivers.has(tmpl.Receiver.String()) {
			candidates = append(candidates, tmpl)
		}
	}

	if len(candidates) == 0 {
		return m.FunctionCall{}, false, nil
	}

	tmpl := candidates[db.rnd.IntN(len(candidates))]

	shape := make(m.AbstractShape, len(tmpl.Args))
	for i, arg := range tmpl.Args {
		if arg.Type != nil {
			shape[i] = *arg.Type
		} else {
			shape[i] = db.values.randomArgType(db.cfg.AllowMultipleCallbacks, db.cfg.AllowAny)
		}
	}

	sig := m.NewSignature(shape)

	for i, arg := range tmpl.Args {
		if arg.Value == nil {
			continue
		}

		if err := sig.Args[i].SetValue(*arg.Value); err != nil {
			return m.FunctionCall{}, false, err
		}
	}

	key := m.FunctionKey{AccPath: tmpl.Receiver.String(), Name: tmpl.Name}
	db.weights.decayFunction(key, db.cfg.RechooseFctFactor)
	db.weights.decayShape(key, shape.Key(), db.cfg.RechooseSigFactor)

	group := receivers.get(key.AccPath)

	call := m.NewFunctionCall(tmpl.Name, sig, group.pick(db.rnd), group.path)
	if err := db.initArgs(reg, &call, scope); err != nil {
		return m.FunctionCall{}, false, err
	}

	slog.Debug("Using mined call", "function", tmpl.Name, "receiver", key.AccPath)

	return call, true, nil
}

// initArgs fills every argument that has no value yet.
func (db *TestGenDB) initArgs(reg *Registry, call *m.FunctionCall, scope Scope) error {
	for i := range call.Sig.Args {
		arg := &call.Sig.Args[i]
		if arg.Value != nil {
			continue
		}

		val, err := db.valueOfType(reg, arg.Type, i, scope)
		if err != nil {
			return err
		}

		if err := arg.SetValue(val); err != nil {
			slog.Error("Failed to set argument", "function", call.Name, "position", i, "error", err)
			return err
		}
	}

	return nil
}

// valueOfType draws a value for an argument of type argType at position pos.
// Any is drawn from the values in scope; with none in scope a concrete type
// is drawn instead.
func (db *TestGenDB) valueOfType(reg *Registry, argType m.ArgType, pos int, scope Scope) (m.ArgVal, error) {
	poolSize := len(scope.RetVals) + len(scope.CbArgs)

	if argType == m.AnyType && poolSize == 0 {
		argType = db.values.randomArgType(true, false)
	}

	switch argType {
	case m.NumberType:
		return db.values.number(), nil
	case m.StringType:
		return db.values.str(true), nil
	case m.ArrayType:
		return db.values.array(), nil
	case m.ObjectType:
		return db.values.object(), nil
	case m.CallbackType:
		return db.values.callback(pos), nil
	case m.LibFunctionType:
		fns := reg.FunctionsAt(m.Root(reg.Lib()))
		if len(fns) == 0 {
			return m.ArgVal{}, fmt.Errorf("%w: no module functions to pass", ErrNoCandidateFunctions)
		}

		fn := fns[db.rnd.IntN(len(fns))]

		return m.NewLibFunction(m.LibVarName(reg.Lib()) + "." + fn.Name), nil
	case m.AnyType:
		if poolSize == 0 {
			return m.ArgVal{}, ErrEmptyValuePool
		}

		idx := db.rnd.IntN(poolSize)
		if idx < len(scope.RetVals) {
			return scope.RetVals[idx].Val, nil
		}

		return scope.CbArgs[idx-len(scope.RetVals)], nil
	default:
		return m.ArgVal{}, fmt.Errorf("%w: unknown argument type %s", m.ErrArgTypeValMismatch, argType)
	}
}

// receiverGroup is the set of in-scope values reachable through one access path.
type receiverGroup struct {
	path m.AccessPath
	root bool
	vals []m.ArgVal
}

// pick returns a random receiver; nil stands for the module import.
func (g *receiverGroup) pick(rnd *rand.Rand) *m.ArgVal {
	if g.root || len(g.vals) == 0 {
		return nil
	}

	val := g.vals[rnd.IntN(len(g.vals))]

	return &val
}

// receiverSet groups candidate receivers by encoded access path. The module
// import is always present.
type receiverSet struct {
	byPath map[string]*receiverGroup
}

func newReceiverSet(lib string, retVals []m.TrackedVal) *receiverSet {
	root := m.Root(lib)
	set := &receiverSet{byPath: map[string]*receiverGroup{
		root.String(): {path: root, root: true},
	}}

	for _, tracked := range retVals {
		if tracked.AccPath == nil {
			continue
		}

		key := tracked.AccPath.String()

		group, ok := set.byPath[key]
		if !ok {
			group = &receiverGroup{path: *tracked.AccPath}
			set.byPath[key] = group
		}

		group.vals = append(group.vals, tracked.Val)
	}

	return set
}

func (s *receiverSet) has(path string) bool {
	_, ok := s.byPath[path]

	return ok
}

func (s *receiverSet) get(path string) *receiverGroup {
	return s.byPath[path]
}
