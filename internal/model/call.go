package model

import (
	"strconv"
	"strings"
)

// NodeID is the stable index of a call node within a test arena.
type NodeID int

// FunctionCall is one call node of a generated test.
type FunctionCall struct {
	Name string            `json:"name" yaml:"name"`
	Sig  FunctionSignature `json:"sig" yaml:"sig"`
	// Receiver is the value the function is called on; nil means the module import.
	Receiver *ArgVal    `json:"receiver,omitempty" yaml:"receiver,omitempty"`
	AccPath  AccessPath `json:"acc_path" yaml:"acc_path"`
	// ParentID and ParentArgPos are set only for calls nested inside a callback.
	ParentID     *NodeID `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	ParentArgPos *int    `json:"parent_arg_pos,omitempty" yaml:"parent_arg_pos,omitempty"`
}

// NewFunctionCall builds a call of name on receiver, whose own access path is
// receiverPath extended by name.
func NewFunctionCall(name string, sig FunctionSignature, receiver *ArgVal, receiverPath AccessPath) FunctionCall {
	return FunctionCall{
		Name:     name,
		Sig:      sig,
		Receiver: receiver,
		AccPath:  Field(receiverPath, name),
	}
}

// IsNested reports whether the call lives inside another call's callback.
func (c FunctionCall) IsNested() bool {
	return c.ParentID != nil
}

// ReturnPath is the access path of the value the call returns.
func (c FunctionCall) ReturnPath() AccessPath {
	return Return(c.AccPath)
}

// ReceiverPath is the access path the function was looked up on.
func (c FunctionCall) ReceiverPath() AccessPath {
	if base, ok := c.AccPath.BasePath(); ok {
		return base
	}

	return c.AccPath
}

// Clone returns a deep copy of the call.
func (c FunctionCall) Clone() FunctionCall {
	out := c
	out.Sig = c.Sig.Clone()

	if c.Receiver != nil {
		recv := c.Receiver.Clone()
		out.Receiver = &recv
	}

	if c.ParentID != nil {
		id := *c.ParentID
		out.ParentID = &id
	}

	if c.ParentArgPos != nil {
		pos := *c.ParentArgPos
		out.ParentArgPos = &pos
	}

	return out
}

// UniqID derives the id used to correlate a node with its trace records.
func UniqID(id NodeID, parent *NodeID, parentArgPos *int) string {
	var sb strings.Builder

	sb.WriteString(strconv.Itoa(int(id)))

	if parent != nil {
		sb.WriteString("_pcid")
		sb.WriteString(strconv.Itoa(int(*parent)))
	}

	if parentArgPos != nil {
		sb.WriteString("_pos")
		sb.WriteString(strconv.Itoa(*parentArgPos))
	}

	return sb.String()
}

// LibVarName turns a package name into the identifier its import is bound to.
func LibVarName(module string) string {
	var sb strings.Builder

	for i, r := range module {
		switch {
		case r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			sb.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				sb.WriteRune('_')
			}

			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}

	if sb.Len() == 0 {
		return "lib"
	}

	return sb.String()
}

// ReturnVarName is the variable holding the return value of the call with uniqID.
func ReturnVarName(module, uniqID string) string {
	return "ret_val_" + LibVarName(module) + "_" + uniqID
}

// TrackedVal is a value in scope at an extension point.
type TrackedVal struct {
	Val ArgVal
	// AccPath is nil for callback parameters, which carry dataflow only.
	AccPath *AccessPath
}
