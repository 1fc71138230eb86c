package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ValKind discriminates the variants of ArgVal.
type ValKind int

const (
	// NumberVal is a number literal.
	NumberVal ValKind = iota
	// StringVal is a string literal, already quoted for the target language.
	StringVal
	// ArrayVal is an array literal.
	ArrayVal
	// ObjectVal is an object literal.
	ObjectVal
	// CallbackVal is either a generated callback or a variable holding a function.
	CallbackVal
	// LibFunctionVal references a known library function.
	LibFunctionVal
	// VariableVal references a value computed earlier in the test.
	VariableVal
)

// ArgVal is the concrete value assigned to an argument.
//
// Literal holds the rendered text for number/string/array/object/lib-function
// values and the variable name for VariableVal. A CallbackVal with a nil
// Callback is a variable reference named by Literal.
type ArgVal struct {
	Kind     ValKind   `json:"kind" yaml:"kind"`
	Literal  string    `json:"literal,omitempty" yaml:"literal,omitempty"`
	Callback *Callback `json:"callback,omitempty" yaml:"callback,omitempty"`
}

// Callback is a generated callback function passed as an argument.
type Callback struct {
	Sig FunctionSignature `json:"sig" yaml:"sig"`
	// CbID is the unique id of the call this callback is an argument of.
	CbID *string `json:"cb_id,omitempty" yaml:"cb_id,omitempty"`
	// ArgPos is the position of the callback in the enclosing call's argument list.
	ArgPos *int `json:"arg_pos,omitempty" yaml:"arg_pos,omitempty"`
}

// NewNumber returns a number literal value.
func NewNumber(lit string) ArgVal { return ArgVal{Kind: NumberVal, Literal: lit} }

// NewString returns a string literal value; lit must already be quoted.
func NewString(lit string) ArgVal { return ArgVal{Kind: StringVal, Literal: lit} }

// NewArray returns an array literal value.
func NewArray(lit string) ArgVal { return ArgVal{Kind: ArrayVal, Literal: lit} }

// NewObject returns an object literal value.
func NewObject(lit string) ArgVal { return ArgVal{Kind: ObjectVal, Literal: lit} }

// NewLibFunction returns a reference to a library function, e.g. "fs.readFile".
func NewLibFunction(ref string) ArgVal { return ArgVal{Kind: LibFunctionVal, Literal: ref} }

// NewVariable returns a reference to a value held in scope.
func NewVariable(name string) ArgVal { return ArgVal{Kind: VariableVal, Literal: name} }

// NewCallbackVar returns a callback-typed reference to a variable holding a function.
func NewCallbackVar(name string) ArgVal { return ArgVal{Kind: CallbackVal, Literal: name} }

// NewCallback returns a generated callback value.
func NewCallback(cb Callback) ArgVal { return ArgVal{Kind: CallbackVal, Callback: &cb} }

// Type returns the ArgType of the value.
func (v ArgVal) Type() ArgType {
	switch v.Kind {
	case NumberVal:
		return NumberType
	case StringVal:
		return StringType
	case ArrayVal:
		return ArrayType
	case ObjectVal:
		return ObjectType
	case CallbackVal:
		return CallbackType
	case LibFunctionVal:
		return LibFunctionType
	case VariableVal:
		return AnyType
	default:
		return AnyType
	}
}

// IsGeneratedCallback reports whether the value is a generated callback body.
func (v ArgVal) IsGeneratedCallback() bool {
	return v.Kind == CallbackVal && v.Callback != nil
}

// String renders the value as it appears in a call site.
func (v ArgVal) String() string {
	if v.IsGeneratedCallback() {
		return v.Callback.Name()
	}

	return v.Literal
}

// Clone returns a deep copy of the value.
func (v ArgVal) Clone() ArgVal {
	if v.Callback == nil {
		return v
	}

	cb := v.Callback.Clone()
	v.Callback = &cb

	return v
}

// Equal reports structural equality.
func (v ArgVal) Equal(other ArgVal) bool {
	if v.Kind != other.Kind || v.Literal != other.Literal {
		return false
	}

	if (v.Callback == nil) != (other.Callback == nil) {
		return false
	}

	if v.Callback == nil {
		return true
	}

	return v.Callback.Equal(*other.Callback)
}

// Clone returns a deep copy of the callback.
func (c Callback) Clone() Callback {
	out := Callback{Sig: c.Sig.Clone()}

	if c.CbID != nil {
		id := *c.CbID
		out.CbID = &id
	}

	if c.ArgPos != nil {
		pos := *c.ArgPos
		out.ArgPos = &pos
	}

	return out
}

// Equal reports structural equality.
func (c Callback) Equal(other Callback) bool {
	if !optionalEqual(c.CbID, other.CbID) || !optionalEqual(c.ArgPos, other.ArgPos) {
		return false
	}

	return c.Sig.Equal(other.Sig)
}

// SetID tags the callback with the unique id of the call it belongs to.
func (c *Callback) SetID(uniqID string, argPos int) {
	c.CbID = &uniqID
	c.ArgPos = &argPos
}

// Name is the identifier used for the callback in rendered code.
func (c Callback) Name() string {
	if c.CbID == nil {
		return "cb"
	}

	pos := 0
	if c.ArgPos != nil {
		pos = *c.ArgPos
	}

	return fmt.Sprintf("cb_%s_%d", *c.CbID, pos)
}

// ParamNames returns the names of the callback's formal parameters.
func (c Callback) ParamNames() []string {
	names := make([]string, len(c.Sig.Args))
	for i := range c.Sig.Args {
		names[i] = c.Name() + "_arg_" + strconv.Itoa(i)
	}

	return names
}

// ArgValues returns the callback's formal parameters as in-scope variables.
func (c Callback) ArgValues() []ArgVal {
	names := c.ParamNames()

	vals := make([]ArgVal, len(names))
	for i, name := range names {
		vals[i] = NewVariable(name)
	}

	return vals
}

func optionalEqual[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}

// QuoteString renders s as a double-quoted string literal.
func QuoteString(s string) string {
	quoted, err := json.Marshal(s)
	if err != nil {
		return `""`
	}

	return string(quoted)
}
