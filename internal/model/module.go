package model

// ModuleFunction is a function known at some access path, together with the
// signatures observed for it so far.
type ModuleFunction struct {
	Name    string     `json:"name" yaml:"name"`
	AccPath AccessPath `json:"acc_path" yaml:"acc_path"`
	// NumArgs is nil when the arity is unknown.
	NumArgs *int                `json:"num_args,omitempty" yaml:"num_args,omitempty"`
	Sigs    []FunctionSignature `json:"sigs,omitempty" yaml:"sigs,omitempty"`
}

// FunctionKey identifies a function in a registry.
type FunctionKey struct {
	AccPath string
	Name    string
}

// Key returns the registry key of the function.
func (f ModuleFunction) Key() FunctionKey {
	return FunctionKey{AccPath: f.AccPath.String(), Name: f.Name}
}

// APISpec is the statically extracted API listing of a library.
type APISpec struct {
	Lib string                     `json:"lib" yaml:"lib"`
	Fns map[string]APIFunctionSpec `json:"fns" yaml:"fns"`
}

// APIFunctionSpec describes one statically known function.
type APIFunctionSpec struct {
	Name            string `json:"name" yaml:"name"`
	NumArgs         int    `json:"num_args" yaml:"num_args"`
	UsedDefaultArgs bool   `json:"used_default_args,omitempty" yaml:"used_default_args,omitempty"`
}

// Arity returns the fixed arity, or nil when default arguments make it unknown.
func (f APIFunctionSpec) Arity() *int {
	if f.UsedDefaultArgs {
		return nil
	}

	n := f.NumArgs

	return &n
}

// RegistryDump is the serialised form of a module registry.
type RegistryDump struct {
	Lib       string           `json:"lib" yaml:"lib"`
	Functions []ModuleFunction `json:"functions" yaml:"functions"`
}
