package domain

import (
	"fmt"

	m "nessie.dev/pkg/nessie/internal/model"
)

// Test is one generated test: an arena of calls indexed by NodeID, plus the
// location it is written to. A Test is never changed once built; Extend
// returns a new Test that shares the existing call nodes.
type Test struct {
	lib   string
	calls []*m.FunctionCall
	Loc   m.TestLoc
}

// ExtensionPoint is a call of an executed test that a future call may attach to.
type ExtensionPoint struct {
	Type m.ExtensionType
	Test *Test
	// Node is nil for a blank test.
	Node *m.NodeID
	// CbArgPos is the position of the callback that fired, for nesting.
	CbArgPos *int
}

// NewBlankTest returns a test without calls.
func NewBlankTest(lib string, loc m.TestLoc) *Test {
	return &Test{lib: lib, Loc: loc}
}

// Lib returns the library under test.
func (t *Test) Lib() string {
	return t.lib
}

// IsEmpty reports whether the test has no calls.
func (t *Test) IsEmpty() bool {
	return len(t.calls) == 0
}

// Len returns the number of calls.
func (t *Test) Len() int {
	return len(t.calls)
}

// Call returns the call stored at id.
func (t *Test) Call(id m.NodeID) (m.FunctionCall, bool) {
	if !t.has(id) {
		return m.FunctionCall{}, false
	}

	return *t.calls[id], true
}

// UniqID returns the trace id of the call at id.
func (t *Test) UniqID(id m.NodeID) string {
	call := t.calls[id]

	return m.UniqID(id, call.ParentID, call.ParentArgPos)
}

// WithLoc returns the same calls at another location.
func (t *Test) WithLoc(loc m.TestLoc) *Test {
	return &Test{lib: t.lib, calls: t.calls, Loc: loc}
}

// Tree returns the view of the test handed to the renderer.
func (t *Test) Tree() m.CallTree {
	calls := make([]m.FunctionCall, len(t.calls))
	for i, call := range t.calls {
		calls[i] = *call
	}

	return m.CallTree{Lib: t.lib, Loc: t.Loc, Calls: calls}
}

// Ancestors returns the calls whose callbacks enclose id, nearest first.
func (t *Test) Ancestors(id m.NodeID) []m.NodeID {
	var ancestors []m.NodeID

	for cur := t.calls[id]; cur.ParentID != nil; cur = t.calls[*cur.ParentID] {
		ancestors = append(ancestors, *cur.ParentID)
	}

	return ancestors
}

func (t *Test) has(id m.NodeID) bool {
	return id >= 0 && int(id) < len(t.calls)
}

func (t *Test) topLevel(id m.NodeID) m.NodeID {
	ancestors := t.Ancestors(id)
	if len(ancestors) == 0 {
		return id
	}

	return ancestors[len(ancestors)-1]
}

// nestingPosition picks the callback argument a nested call goes into.
func (t *Test) nestingPosition(id m.NodeID, cbArgPos *int) (int, bool) {
	positions := t.calls[id].Sig.CallbackPositions()
	if len(positions) == 0 {
		return 0, false
	}

	if cbArgPos == nil {
		return positions[0], true
	}

	for _, pos := range positions {
		if pos == *cbArgPos {
			return pos, true
		}
	}

	return 0, false
}

// Extend returns a new test with call attached at node: inside its callback
// for Nested, after it at the same level for Sequential. A nested extension
// without a usable callback fails with ErrInvalidExtension unless fresh is
// set, in which case the result is a new test holding only call.
func (t *Test) Extend(ext m.ExtensionType, node *m.NodeID, cbArgPos *int, call m.FunctionCall, fresh bool) (*Test, m.NodeID, error) {
	call = call.Clone()
	call.ParentID = nil
	call.ParentArgPos = nil

	base := t.calls

	switch {
	case node == nil || !t.has(*node):
		if ext == m.Nested {
			if !fresh {
				return nil, 0, fmt.Errorf("%w: nested extension needs a call with a callback", ErrInvalidExtension)
			}

			base = nil
		}
	case ext == m.Nested:
		pos, ok := t.nestingPosition(*node, cbArgPos)
		if !ok {
			if !fresh {
				return nil, 0, fmt.Errorf("%w: call %s has no callback to nest in", ErrInvalidExtension, t.UniqID(*node))
			}

			base = nil

			break
		}

		parent := *node
		call.ParentID = &parent
		call.ParentArgPos = &pos
	default:
		// Siblings share the enclosing callback body.
		sibling := t.calls[*node]
		if sibling.ParentID != nil {
			parent := *sibling.ParentID
			pos := *sibling.ParentArgPos
			call.ParentID = &parent
			call.ParentArgPos = &pos
		}
	}

	id := m.NodeID(len(base))
	call.Sig.TagCallbacks(m.UniqID(id, call.ParentID, call.ParentArgPos))

	calls := make([]*m.FunctionCall, len(base), len(base)+1)
	copy(calls, base)
	calls = append(calls, &call)

	return &Test{lib: t.lib, calls: calls, Loc: t.Loc}, id, nil
}

// ValuesInScope returns the return values of top-level calls that a call
// attached at node can use: the top-level calls strictly before node that do
// not enclose it. The same set holds for both extension types.
func (t *Test) ValuesInScope(node m.NodeID) []m.TrackedVal {
	if !t.has(node) {
		return nil
	}

	boundary := t.topLevel(node)

	var vals []m.TrackedVal

	for i := m.NodeID(0); i < boundary; i++ {
		call := t.calls[i]
		if call.ParentID != nil {
			continue
		}

		path := call.ReturnPath()
		vals = append(vals, m.TrackedVal{
			Val:     m.NewVariable(m.ReturnVarName(t.lib, t.UniqID(i))),
			AccPath: &path,
		})
	}

	return vals
}

// CallbackArgsInScope returns the parameters of every callback enclosing a
// call attached at node with ext, nearest callback first.
func (t *Test) CallbackArgsInScope(node m.NodeID, ext m.ExtensionType, cbArgPos *int) []m.ArgVal {
	if !t.has(node) {
		return nil
	}

	var args []m.ArgVal

	if ext == m.Nested {
		if pos, ok := t.nestingPosition(node, cbArgPos); ok {
			cb, _ := t.calls[node].Sig.CallbackAt(pos)
			args = append(args, cb.ArgValues()...)
		}
	}

	for child := t.calls[node]; child.ParentID != nil; child = t.calls[*child.ParentID] {
		if cb, ok := t.calls[*child.ParentID].Sig.CallbackAt(*child.ParentArgPos); ok {
			args = append(args, cb.ArgValues()...)
		}
	}

	return args
}
