package model

// CallTree is a read-only view of a generated test handed to the renderer.
type CallTree struct {
	Lib   string
	Loc   TestLoc
	Calls []FunctionCall
}

// UniqID returns the trace id of the call at id.
func (t CallTree) UniqID(id NodeID) string {
	call := t.Calls[id]

	return UniqID(id, call.ParentID, call.ParentArgPos)
}

// Roots returns the top-level calls in order.
func (t CallTree) Roots() []NodeID {
	var roots []NodeID

	for i, call := range t.Calls {
		if call.ParentID == nil {
			roots = append(roots, NodeID(i))
		}
	}

	return roots
}

// Children returns the calls nested in the callback at argPos of parent, in order.
func (t CallTree) Children(parent NodeID, argPos int) []NodeID {
	var children []NodeID

	for i, call := range t.Calls {
		if call.ParentID != nil && *call.ParentID == parent && call.ParentArgPos != nil && *call.ParentArgPos == argPos {
			children = append(children, NodeID(i))
		}
	}

	return children
}

// ForeignModules returns the root modules other than Lib referenced by calls.
func (t CallTree) ForeignModules() []string {
	seen := map[string]bool{t.Lib: true}

	var modules []string

	for _, call := range t.Calls {
		module := call.AccPath.RootModule()
		if !seen[module] {
			seen[module] = true
			modules = append(modules, module)
		}
	}

	return modules
}
