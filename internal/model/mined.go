package model

import "strings"

// MinedParam is one parameter of a mined call. Exactly one field is set:
// Ident names a variable (outer_arg_N marks dataflow from the outer
// callback), Callback is "CALLBACK" and Object is "OBJECT".
type MinedParam struct {
	Ident    *string `json:"ident,omitempty" yaml:"ident,omitempty"`
	Callback *string `json:"callback,omitempty" yaml:"callback,omitempty"`
	Object   *string `json:"object,omitempty" yaml:"object,omitempty"`
}

// IsValid reports whether exactly one field is set.
func (p MinedParam) IsValid() bool {
	set := 0

	for _, field := range []*string{p.Ident, p.Callback, p.Object} {
		if field != nil {
			set++
		}
	}

	return set == 1
}

// IsCallback reports whether the parameter is a callback.
func (p MinedParam) IsCallback() bool {
	return p.IsValid() && p.Callback != nil
}

// MinedNestingPair is a call found inside the callback of another call in
// real-world code.
type MinedNestingPair struct {
	OuterPkg    string       `json:"outer_pkg" yaml:"outer_pkg"`
	OuterFct    string       `json:"outer_fct" yaml:"outer_fct"`
	OuterParams []MinedParam `json:"outer_params" yaml:"outer_params"`
	InnerPkg    string       `json:"inner_pkg" yaml:"inner_pkg"`
	InnerFct    string       `json:"inner_fct" yaml:"inner_fct"`
	InnerParams []MinedParam `json:"inner_params" yaml:"inner_params"`
}

// OuterPackage returns the outer package name without surrounding quotes.
func (p MinedNestingPair) OuterPackage() string {
	return strings.ReplaceAll(p.OuterPkg, `"`, "")
}

// InnerPackage returns the inner package name without surrounding quotes.
func (p MinedNestingPair) InnerPackage() string {
	return strings.ReplaceAll(p.InnerPkg, `"`, "")
}

// MinedAPICall is a single call site mined from real-world code, with the
// statically known argument types and values.
type MinedAPICall struct {
	Pkg           string `json:"pkg" yaml:"pkg"`
	AccPath       string `json:"acc_path" yaml:"acc_path"`
	SigWithTypes  string `json:"sig_with_types" yaml:"sig_with_types"`
	SigWithValues string `json:"sig_with_values" yaml:"sig_with_values"`
}
