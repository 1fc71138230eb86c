package domain

import (
	"log/slog"
	"sort"

	m "nessie.dev/pkg/nessie/internal/model"
)

// promiseMethods are assumed to take a single callback.
var promiseMethods = map[string]bool{"then": true, "catch": true}

// Registry is the catalog of functions known for one library, keyed by
// access path and name. It only grows.
type Registry struct {
	lib   string
	fns   map[m.FunctionKey]*m.ModuleFunction
	order []m.FunctionKey
}

// NewRegistry returns an empty registry for lib.
func NewRegistry(lib string) *Registry {
	return &Registry{
		lib: lib,
		fns: make(map[m.FunctionKey]*m.ModuleFunction),
	}
}

// NewRegistryFromSpec seeds a registry with the functions of a static API
// listing, all rooted at the module import.
func NewRegistryFromSpec(spec m.APISpec) *Registry {
	reg := NewRegistry(spec.Lib)

	names := make([]string, 0, len(spec.Fns))
	for name := range spec.Fns {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, key := range names {
		fn := spec.Fns[key]

		name := fn.Name
		if name == "" {
			name = key
		}

		reg.Register(m.Root(spec.Lib), name, fn.Arity())
	}

	return reg
}

// NewRegistryFromDump restores a registry saved by Dump.
func NewRegistryFromDump(dump m.RegistryDump) *Registry {
	reg := NewRegistry(dump.Lib)

	for _, fn := range dump.Functions {
		reg.Register(fn.AccPath, fn.Name, fn.NumArgs)

		for _, sig := range fn.Sigs {
			reg.RecordSignature(fn.AccPath, fn.Name, sig)
		}
	}

	return reg
}

// Lib returns the library the registry describes.
func (r *Registry) Lib() string {
	return r.lib
}

// Len returns the number of known functions.
func (r *Registry) Len() int {
	return len(r.order)
}

// Register adds a function if it is not known yet and reports whether it was added.
func (r *Registry) Register(path m.AccessPath, name string, arity *int) bool {
	key := m.FunctionKey{AccPath: path.String(), Name: name}
	if _, ok := r.fns[key]; ok {
		return false
	}

	fn := &m.ModuleFunction{Name: name, AccPath: path}
	if arity != nil {
		n := *arity
		fn.NumArgs = &n
	}

	r.fns[key] = fn
	r.order = append(r.order, key)

	return true
}

// RegisterDiscovered adds a function observed on a value at runtime. Promise
// methods get arity one; anything else has unknown arity.
func (r *Registry) RegisterDiscovered(path m.AccessPath, name string) bool {
	var arity *int

	if promiseMethods[name] {
		one := 1
		arity = &one
	}

	added := r.Register(path, name, arity)
	if added {
		slog.Debug("Discovered function", "accPath", path.String(), "name", name)
	}

	return added
}

// RecordSignature appends sig to the function's observed signatures unless
// one with the same abstract shape is already there, and reports whether it
// did. Unknown functions are registered with unknown arity.
func (r *Registry) RecordSignature(path m.AccessPath, name string, sig m.FunctionSignature) bool {
	r.Register(path, name, nil)

	fn := r.fns[m.FunctionKey{AccPath: path.String(), Name: name}]
	shape := sig.Shape().Key()

	for _, existing := range fn.Sigs {
		if existing.Shape().Key() == shape && existing.IsSpreadArgs == sig.IsSpreadArgs {
			return false
		}
	}

	fn.Sigs = append(fn.Sigs, sig.Clone())

	return true
}

// Lookup returns the function known at path under name.
func (r *Registry) Lookup(path m.AccessPath, name string) (m.ModuleFunction, bool) {
	fn, ok := r.fns[m.FunctionKey{AccPath: path.String(), Name: name}]
	if !ok {
		return m.ModuleFunction{}, false
	}

	return *fn, true
}

// Functions returns every known function in registration order.
func (r *Registry) Functions() []m.ModuleFunction {
	fns := make([]m.ModuleFunction, 0, len(r.order))
	for _, key := range r.order {
		fns = append(fns, *r.fns[key])
	}

	return fns
}

// FunctionsAt returns the functions registered directly on path.
func (r *Registry) FunctionsAt(path m.AccessPath) []m.ModuleFunction {
	encoded := path.String()

	var fns []m.ModuleFunction

	for _, key := range r.order {
		if key.AccPath == encoded {
			fns = append(fns, *r.fns[key])
		}
	}

	return fns
}

// Dump returns the serialisable form of the registry.
func (r *Registry) Dump() m.RegistryDump {
	return m.RegistryDump{Lib: r.lib, Functions: r.Functions()}
}
