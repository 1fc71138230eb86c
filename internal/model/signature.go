package model

import (
	"fmt"
	"strings"
)

// FunctionArgument is one positional argument of a call.
type FunctionArgument struct {
	Type  ArgType `json:"type" yaml:"type"`
	Value *ArgVal `json:"value,omitempty" yaml:"value,omitempty"`
}

// NewFunctionArgument returns an argument of the given type with no value.
func NewFunctionArgument(argType ArgType) FunctionArgument {
	return FunctionArgument{Type: argType}
}

// SetValue assigns val to the argument, rejecting values the declared type
// cannot hold.
func (a *FunctionArgument) SetValue(val ArgVal) error {
	if !val.Type().CanBeRepresentedAs(a.Type) {
		return fmt.Errorf("%w: cannot assign %s value to %s argument", ErrArgTypeValMismatch, val.Type(), a.Type)
	}

	a.Value = &val

	return nil
}

// Render returns the argument as it appears at the call site.
func (a FunctionArgument) Render() (string, error) {
	if a.Value == nil {
		return "", fmt.Errorf("%w: %s argument", ErrArgValNotSet, a.Type)
	}

	return a.Value.String(), nil
}

// Clone returns a deep copy of the argument.
func (a FunctionArgument) Clone() FunctionArgument {
	out := FunctionArgument{Type: a.Type}

	if a.Value != nil {
		v := a.Value.Clone()
		out.Value = &v
	}

	return out
}

// Equal reports structural equality.
func (a FunctionArgument) Equal(other FunctionArgument) bool {
	if a.Type != other.Type || (a.Value == nil) != (other.Value == nil) {
		return false
	}

	return a.Value == nil || a.Value.Equal(*other.Value)
}

// AbstractShape is a signature reduced to its argument types.
type AbstractShape []ArgType

// Key returns a comparable key for the shape.
func (s AbstractShape) Key() ShapeKey {
	names := make([]string, len(s))
	for i, t := range s {
		names[i] = t.String()
	}

	return ShapeKey(strings.Join(names, ","))
}

// ShapeKey identifies an abstract shape in maps.
type ShapeKey string

// Shape parses the key back into its argument types.
func (k ShapeKey) Shape() (AbstractShape, error) {
	if k == "" {
		return AbstractShape{}, nil
	}

	parts := strings.Split(string(k), ",")

	shape := make(AbstractShape, len(parts))
	for i, part := range parts {
		t, err := ParseArgType(part)
		if err != nil {
			return nil, err
		}

		shape[i] = t
	}

	return shape, nil
}

// FunctionSignature is an ordered argument list plus what was observed when
// the call ran.
type FunctionSignature struct {
	Args         []FunctionArgument  `json:"args" yaml:"args"`
	CallResult   *FunctionCallResult `json:"call_result,omitempty" yaml:"call_result,omitempty"`
	IsSpreadArgs bool                `json:"is_spread_args,omitempty" yaml:"is_spread_args,omitempty"`
}

// NewSignature returns a signature with untyped-value arguments of the given types.
func NewSignature(shape AbstractShape) FunctionSignature {
	args := make([]FunctionArgument, len(shape))
	for i, t := range shape {
		args[i] = NewFunctionArgument(t)
	}

	return FunctionSignature{Args: args}
}

// NewSpreadSignature returns a signature whose arguments are passed through opaquely.
func NewSpreadSignature() FunctionSignature {
	return FunctionSignature{IsSpreadArgs: true}
}

// Shape returns the abstract shape of the signature.
func (s FunctionSignature) Shape() AbstractShape {
	shape := make(AbstractShape, len(s.Args))
	for i, arg := range s.Args {
		shape[i] = arg.Type
	}

	return shape
}

// CallbackPositions returns the indices of arguments holding a generated callback.
func (s FunctionSignature) CallbackPositions() []int {
	var positions []int

	for i, arg := range s.Args {
		if arg.Value != nil && arg.Value.IsGeneratedCallback() {
			positions = append(positions, i)
		}
	}

	return positions
}

// HasCallback reports whether any argument holds a generated callback.
func (s FunctionSignature) HasCallback() bool {
	return len(s.CallbackPositions()) > 0
}

// CallbackAt returns the generated callback at position pos.
func (s FunctionSignature) CallbackAt(pos int) (*Callback, bool) {
	if pos < 0 || pos >= len(s.Args) {
		return nil, false
	}

	val := s.Args[pos].Value
	if val == nil || !val.IsGeneratedCallback() {
		return nil, false
	}

	return val.Callback, true
}

// TagCallbacks stamps every generated callback argument with the id of the
// call it belongs to and its position.
func (s *FunctionSignature) TagCallbacks(uniqID string) {
	for i := range s.Args {
		val := s.Args[i].Value
		if val != nil && val.IsGeneratedCallback() {
			val.Callback.SetID(uniqID, i)
		}
	}
}

// Clone returns a deep copy of the signature.
func (s FunctionSignature) Clone() FunctionSignature {
	out := FunctionSignature{IsSpreadArgs: s.IsSpreadArgs}

	if s.Args != nil {
		out.Args = make([]FunctionArgument, len(s.Args))
		for i, arg := range s.Args {
			out.Args[i] = arg.Clone()
		}
	}

	if s.CallResult != nil {
		res := *s.CallResult
		out.CallResult = &res
	}

	return out
}

// Equal reports structural equality, call result included.
func (s FunctionSignature) Equal(other FunctionSignature) bool {
	if s.IsSpreadArgs != other.IsSpreadArgs || len(s.Args) != len(other.Args) {
		return false
	}

	for i := range s.Args {
		if !s.Args[i].Equal(other.Args[i]) {
			return false
		}
	}

	if (s.CallResult == nil) != (other.CallResult == nil) {
		return false
	}

	return s.CallResult == nil || *s.CallResult == *other.CallResult
}

// Render returns the comma separated argument list.
func (s FunctionSignature) Render() (string, error) {
	parts := make([]string, len(s.Args))

	for i, arg := range s.Args {
		rendered, err := arg.Render()
		if err != nil {
			return "", fmt.Errorf("failed to render argument %d: %w", i, err)
		}

		parts[i] = rendered
	}

	return strings.Join(parts, ", "), nil
}
