package model

// DivergenceKind classifies the first difference between two traces.
type DivergenceKind string

const (
	// DivergenceNone means the traces are identical.
	DivergenceNone DivergenceKind = "none"
	// DivergenceDoneVsError means a call completed in one trace and failed in the other.
	DivergenceDoneVsError DivergenceKind = "done_vs_error"
	// DivergenceCallback means a callback fired in only one trace.
	DivergenceCallback DivergenceKind = "callback"
	// DivergenceReturnValue means a call returned different values.
	DivergenceReturnValue DivergenceKind = "return_value"
	// DivergenceArgument means a call received different arguments.
	DivergenceArgument DivergenceKind = "argument"
	// DivergenceCallbackArgument means a callback received different arguments.
	DivergenceCallbackArgument DivergenceKind = "callback_argument"
	// DivergenceFunctionMissing means a function is undefined in one trace.
	DivergenceFunctionMissing DivergenceKind = "function_missing"
	// DivergenceLength means one trace is a prefix of the other.
	DivergenceLength DivergenceKind = "length"
	// DivergenceOther is any other difference.
	DivergenceOther DivergenceKind = "other"
)

// TraceDiff is the comparison of two execution traces.
type TraceDiff struct {
	Left     Path           `json:"left" yaml:"left"`
	Right    Path           `json:"right" yaml:"right"`
	Kind     DivergenceKind `json:"kind" yaml:"kind"`
	Index    int            `json:"index" yaml:"index"`
	LeftRec  string         `json:"left_record,omitempty" yaml:"left_record,omitempty"`
	RightRec string         `json:"right_record,omitempty" yaml:"right_record,omitempty"`
	Unified  string         `json:"unified,omitempty" yaml:"unified,omitempty"`
}
