package liveness

import "fmt"

// LiveNode identifies one flow-relevant position of a body: a dense 1-based
// handle into the tables built by the index pass. The zero value is "no node".
type LiveNode uint32

// Variable identifies one tracked variable of a body (parameter, pattern
// binding, or captured upvar). Dense, 1-based, body-local.
type Variable uint32

const (
	NoLiveNode LiveNode = 0
	NoVariable Variable = 0
)

func (ln LiveNode) IsValid() bool { return ln != NoLiveNode }
func (v Variable) IsValid() bool  { return v != NoVariable }

func (ln LiveNode) String() string {
	if ln == NoLiveNode {
		return "ln-"
	}
	return fmt.Sprintf("ln%d", uint32(ln))
}

func (v Variable) String() string {
	if v == NoVariable {
		return "v-"
	}
	return fmt.Sprintf("v%d", uint32(v))
}

// LiveNodeKind says why a LiveNode exists. The kind only matters for dump
// output and diagnostics; propagation treats all nodes alike.
type LiveNodeKind uint8

const (
	// UpvarNode marks one captured variable at a closure expression.
	UpvarNode LiveNodeKind = iota + 1
	// ExprNode marks a flow-relevant expression: variable reference, lazy
	// boolean operator, match, loop, or closure construction.
	ExprNode
	// VarDefNode marks one binding occurrence in a parameter, let, or
	// match-arm pattern.
	VarDefNode
	// ClosureNode is the synthetic re-entry point used by the capture
	// fixed point of reusable closures.
	ClosureNode
	// ExitNode is the single synthetic node all function-exit paths reach.
	ExitNode
)

func (k LiveNodeKind) String() string {
	switch k {
	case UpvarNode:
		return "UpvarNode"
	case ExprNode:
		return "ExprNode"
	case VarDefNode:
		return "VarDefNode"
	case ClosureNode:
		return "ClosureNode"
	case ExitNode:
		return "ExitNode"
	default:
		return "UnknownNode"
	}
}

// VarKind classifies a variable's origin.
type VarKind uint8

const (
	// VarParam is a parameter bound by a simple binding pattern.
	VarParam VarKind = iota + 1
	// VarLocal is a pattern-bound local, including leaves of destructuring
	// parameter patterns.
	VarLocal
	// VarUpvar is a variable captured from an enclosing body.
	VarUpvar
)

func (k VarKind) String() string {
	switch k {
	case VarParam:
		return "param"
	case VarLocal:
		return "local"
	case VarUpvar:
		return "upvar"
	default:
		return "unknown"
	}
}
