package model

import "fmt"

// ExtensionType is how a new call attaches to an existing test.
type ExtensionType int

const (
	// Sequential places the new call after an existing one at the same level.
	Sequential ExtensionType = iota
	// Nested places the new call inside an existing call's callback.
	Nested
)

// ExtensionTypes lists every extension type.
var ExtensionTypes = []ExtensionType{Sequential, Nested}

func (e ExtensionType) String() string {
	switch e {
	case Sequential:
		return "sequential"
	case Nested:
		return "nested"
	default:
		return fmt.Sprintf("ExtensionType(%d)", int(e))
	}
}

// CallOutcome classifies how a call behaved at runtime.
type CallOutcome int

const (
	// NoCallbackCalled means the call completed and no callback fired.
	NoCallbackCalled CallOutcome = iota
	// CallbackCalledSync means a callback fired before the call completed.
	CallbackCalledSync
	// CallbackCalledAsync means a callback fired after the call completed.
	CallbackCalledAsync
	// ExecutionError means the call threw, rejected, or never completed.
	ExecutionError
)

// CallOutcomes lists every outcome in display order.
var CallOutcomes = []CallOutcome{NoCallbackCalled, CallbackCalledSync, CallbackCalledAsync, ExecutionError}

var callOutcomeNames = map[CallOutcome]string{
	NoCallbackCalled:    "no_callback",
	CallbackCalledSync:  "callback_sync",
	CallbackCalledAsync: "callback_async",
	ExecutionError:      "error",
}

func (o CallOutcome) String() string {
	if name, ok := callOutcomeNames[o]; ok {
		return name
	}

	return fmt.Sprintf("CallOutcome(%d)", int(o))
}

// MarshalText implements encoding.TextMarshaler.
func (o CallOutcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *CallOutcome) UnmarshalText(text []byte) error {
	for outcome, name := range callOutcomeNames {
		if name == string(text) {
			*o = outcome

			return nil
		}
	}

	return fmt.Errorf("unknown call outcome %q", text)
}

// FunctionCallResult is the diagnosed behaviour of one call.
type FunctionCallResult struct {
	Outcome CallOutcome `json:"outcome" yaml:"outcome"`
	// CallbackArgPos is the argument position of the callback that fired; it is
	// meaningful only for the CallbackCalled outcomes.
	CallbackArgPos int `json:"callback_arg_pos,omitempty" yaml:"callback_arg_pos,omitempty"`
}

// CallbackCalled reports whether a callback fired.
func (r FunctionCallResult) CallbackCalled() bool {
	return r.Outcome == CallbackCalledSync || r.Outcome == CallbackCalledAsync
}

// CanBeExtended reports whether a call with this result may serve as an
// extension point of the given type.
func (r FunctionCallResult) CanBeExtended(ext ExtensionType) bool {
	switch r.Outcome {
	case ExecutionError:
		return false
	case NoCallbackCalled:
		return ext == Sequential
	case CallbackCalledSync, CallbackCalledAsync:
		return true
	default:
		return false
	}
}
