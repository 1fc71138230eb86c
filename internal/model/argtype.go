// Package model defines the data structures for feedback-directed test generation.
package model

import "fmt"

// ArgType is the type tag of a function argument.
type ArgType int

const (
	// NumberType is a number literal.
	NumberType ArgType = iota
	// StringType is a string literal.
	StringType
	// ArrayType is an array literal.
	ArrayType
	// ObjectType is a non-callback, non-array object literal.
	ObjectType
	// CallbackType is a generated callback function.
	CallbackType
	// LibFunctionType is a function of the library under test, passed as a value.
	LibFunctionType
	// AnyType accepts any value; it is filled from values already in scope.
	AnyType
)

// PrimitiveArgTypes are the types that carry an opaque literal payload.
var PrimitiveArgTypes = []ArgType{NumberType, StringType, ArrayType, ObjectType}

var argTypeNames = map[ArgType]string{
	NumberType:      "num",
	StringType:      "string",
	ArrayType:       "array",
	ObjectType:      "object",
	CallbackType:    "callback-function",
	LibFunctionType: "lib-function",
	AnyType:         "any",
}

func (t ArgType) String() string {
	if name, ok := argTypeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("ArgType(%d)", int(t))
}

// CanBeRepresentedAs reports whether a value of type t may be assigned to an
// argument declared as other.
func (t ArgType) CanBeRepresentedAs(other ArgType) bool {
	return t == other || other == AnyType
}

// IsCallable reports whether the type is a function-valued type.
func (t ArgType) IsCallable() bool {
	return t == CallbackType || t == LibFunctionType
}

// MarshalText implements encoding.TextMarshaler.
func (t ArgType) MarshalText() ([]byte, error) {
	name, ok := argTypeNames[t]
	if !ok {
		return nil, fmt.Errorf("unknown arg type %d", int(t))
	}

	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ArgType) UnmarshalText(text []byte) error {
	parsed, err := ParseArgType(string(text))
	if err != nil {
		return err
	}

	*t = parsed

	return nil
}

// ParseArgType maps a type name back to its ArgType.
func ParseArgType(name string) (ArgType, error) {
	for argType, argName := range argTypeNames {
		if argName == name {
			return argType, nil
		}
	}

	return 0, fmt.Errorf("unknown arg type %q", name)
}
