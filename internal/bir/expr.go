package bir

import (
	"ebb/internal/source"
)

type ExprKind uint8

const (
	ExprLit ExprKind = iota
	ExprVarRef
	ExprUnary
	ExprBinary
	ExprAssign
	ExprAssignOp
	ExprField
	ExprIndex
	ExprCall
	ExprStruct
	ExprArray
	ExprTuple
	ExprCast
	ExprBlock
	ExprMatch
	ExprLoop
	ExprBreak
	ExprContinue
	ExprReturn
	ExprYield
	ExprClosure
)

func (k ExprKind) String() string {
	switch k {
	case ExprLit:
		return "lit"
	case ExprVarRef:
		return "var"
	case ExprUnary:
		return "unary"
	case ExprBinary:
		return "binary"
	case ExprAssign:
		return "assign"
	case ExprAssignOp:
		return "assign-op"
	case ExprField:
		return "field"
	case ExprIndex:
		return "index"
	case ExprCall:
		return "call"
	case ExprStruct:
		return "struct"
	case ExprArray:
		return "array"
	case ExprTuple:
		return "tuple"
	case ExprCast:
		return "cast"
	case ExprBlock:
		return "block"
	case ExprMatch:
		return "match"
	case ExprLoop:
		return "loop"
	case ExprBreak:
		return "break"
	case ExprContinue:
		return "continue"
	case ExprReturn:
		return "return"
	case ExprYield:
		return "yield"
	case ExprClosure:
		return "closure"
	default:
		return "unknown"
	}
}

type Expr struct {
	Kind    ExprKind
	Span    source.Span
	Payload PayloadID
}

// Exprs manages allocation of expressions: a central arena of Expr headers
// plus one payload arena per kind.
type Exprs struct {
	Arena     *Arena[Expr]
	Lits      *Arena[ExprLitData]
	VarRefs   *Arena[ExprVarRefData]
	Unaries   *Arena[ExprUnaryData]
	Binaries  *Arena[ExprBinaryData]
	Assigns   *Arena[ExprAssignData]
	AssignOps *Arena[ExprAssignOpData]
	Fields    *Arena[ExprFieldData]
	Indices   *Arena[ExprIndexData]
	Calls     *Arena[ExprCallData]
	Structs   *Arena[ExprStructData]
	Arrays    *Arena[ExprArrayData]
	Tuples    *Arena[ExprTupleData]
	Casts     *Arena[ExprCastData]
	Blocks    *Arena[ExprBlockData]
	Matches   *Arena[ExprMatchData]
	Loops     *Arena[ExprLoopData]
	Breaks    *Arena[ExprBreakData]
	Continues *Arena[ExprContinueData]
	Returns   *Arena[ExprReturnData]
	Yields    *Arena[ExprYieldData]
	Closures  *Arena[ExprClosureData]
}

// NewExprs creates an Exprs with per-kind arenas preallocated using capHint
// as the initial capacity. If capHint is 0, a default of 1<<6 is used.
func NewExprs(capHint uint) *Exprs {
	if capHint == 0 {
		capHint = 1 << 6
	}
	return &Exprs{
		Arena:     NewArena[Expr](capHint),
		Lits:      NewArena[ExprLitData](capHint),
		VarRefs:   NewArena[ExprVarRefData](capHint),
		Unaries:   NewArena[ExprUnaryData](capHint),
		Binaries:  NewArena[ExprBinaryData](capHint),
		Assigns:   NewArena[ExprAssignData](capHint),
		AssignOps: NewArena[ExprAssignOpData](capHint),
		Fields:    NewArena[ExprFieldData](capHint),
		Indices:   NewArena[ExprIndexData](capHint),
		Calls:     NewArena[ExprCallData](capHint),
		Structs:   NewArena[ExprStructData](capHint),
		Arrays:    NewArena[ExprArrayData](capHint),
		Tuples:    NewArena[ExprTupleData](capHint),
		Casts:     NewArena[ExprCastData](capHint),
		Blocks:    NewArena[ExprBlockData](capHint),
		Matches:   NewArena[ExprMatchData](capHint),
		Loops:     NewArena[ExprLoopData](capHint),
		Breaks:    NewArena[ExprBreakData](capHint),
		Continues: NewArena[ExprContinueData](capHint),
		Returns:   NewArena[ExprReturnData](capHint),
		Yields:    NewArena[ExprYieldData](capHint),
		Closures:  NewArena[ExprClosureData](capHint),
	}
}

func (e *Exprs) new(kind ExprKind, span source.Span, payload PayloadID) ExprID {
	return ExprID(e.Arena.Allocate(Expr{
		Kind:    kind,
		Span:    span,
		Payload: payload,
	}))
}

// Get returns the expression with the given ID, or nil for the zero ID.
func (e *Exprs) Get(id ExprID) *Expr {
	return e.Arena.Get(uint32(id))
}

// Len returns the number of allocated expressions.
func (e *Exprs) Len() uint32 {
	return e.Arena.Len()
}

// NewLit creates a literal expression.
func (e *Exprs) NewLit(span source.Span, text string) ExprID {
	payload := e.Lits.Allocate(ExprLitData{Text: text})
	return e.new(ExprLit, span, PayloadID(payload))
}

// Lit returns the literal data for the given expression ID.
func (e *Exprs) Lit(id ExprID) (*ExprLitData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprLit {
		return nil, false
	}
	return e.Lits.Get(uint32(expr.Payload)), true
}

// NewVarRef creates a resolved name reference.
func (e *Exprs) NewVarRef(span source.Span, name string, binding BindingID) ExprID {
	payload := e.VarRefs.Allocate(ExprVarRefData{Name: name, Binding: binding})
	return e.new(ExprVarRef, span, PayloadID(payload))
}

// VarRef returns the variable reference data for the given expression ID.
func (e *Exprs) VarRef(id ExprID) (*ExprVarRefData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprVarRef {
		return nil, false
	}
	return e.VarRefs.Get(uint32(expr.Payload)), true
}

// NewUnary creates a unary expression.
func (e *Exprs) NewUnary(span source.Span, op UnaryOp, operand ExprID) ExprID {
	payload := e.Unaries.Allocate(ExprUnaryData{Op: op, Operand: operand})
	return e.new(ExprUnary, span, PayloadID(payload))
}

// Unary returns the unary data for the given expression ID.
func (e *Exprs) Unary(id ExprID) (*ExprUnaryData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprUnary {
		return nil, false
	}
	return e.Unaries.Get(uint32(expr.Payload)), true
}

// NewBinary creates a binary expression.
func (e *Exprs) NewBinary(span source.Span, op BinaryOp, left, right ExprID) ExprID {
	payload := e.Binaries.Allocate(ExprBinaryData{Op: op, Left: left, Right: right})
	return e.new(ExprBinary, span, PayloadID(payload))
}

// Binary returns the binary data for the given expression ID.
func (e *Exprs) Binary(id ExprID) (*ExprBinaryData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprBinary {
		return nil, false
	}
	return e.Binaries.Get(uint32(expr.Payload)), true
}

// NewAssign creates a plain assignment.
func (e *Exprs) NewAssign(span source.Span, place, value ExprID) ExprID {
	payload := e.Assigns.Allocate(ExprAssignData{Place: place, Value: value})
	return e.new(ExprAssign, span, PayloadID(payload))
}

// Assign returns the assignment data for the given expression ID.
func (e *Exprs) Assign(id ExprID) (*ExprAssignData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprAssign {
		return nil, false
	}
	return e.Assigns.Get(uint32(expr.Payload)), true
}

// NewAssignOp creates a compound assignment (`+=` and friends).
func (e *Exprs) NewAssignOp(span source.Span, op BinaryOp, place, value ExprID) ExprID {
	payload := e.AssignOps.Allocate(ExprAssignOpData{Op: op, Place: place, Value: value})
	return e.new(ExprAssignOp, span, PayloadID(payload))
}

// AssignOp returns the compound assignment data for the given expression ID.
func (e *Exprs) AssignOp(id ExprID) (*ExprAssignOpData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprAssignOp {
		return nil, false
	}
	return e.AssignOps.Get(uint32(expr.Payload)), true
}

// NewField creates a field projection.
func (e *Exprs) NewField(span source.Span, object ExprID, name string) ExprID {
	payload := e.Fields.Allocate(ExprFieldData{Object: object, Name: name})
	return e.new(ExprField, span, PayloadID(payload))
}

// Field returns the field projection data for the given expression ID.
func (e *Exprs) Field(id ExprID) (*ExprFieldData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprField {
		return nil, false
	}
	return e.Fields.Get(uint32(expr.Payload)), true
}

// NewIndex creates an index projection.
func (e *Exprs) NewIndex(span source.Span, object, index ExprID) ExprID {
	payload := e.Indices.Allocate(ExprIndexData{Object: object, Index: index})
	return e.new(ExprIndex, span, PayloadID(payload))
}

// Index returns the index projection data for the given expression ID.
func (e *Exprs) Index(id ExprID) (*ExprIndexData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprIndex {
		return nil, false
	}
	return e.Indices.Get(uint32(expr.Payload)), true
}

// NewCall creates a call expression.
func (e *Exprs) NewCall(span source.Span, callee ExprID, args []ExprID) ExprID {
	payload := e.Calls.Allocate(ExprCallData{Callee: callee, Args: args})
	return e.new(ExprCall, span, PayloadID(payload))
}

// Call returns the call data for the given expression ID.
func (e *Exprs) Call(id ExprID) (*ExprCallData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprCall {
		return nil, false
	}
	return e.Calls.Get(uint32(expr.Payload)), true
}

// NewStruct creates a struct literal.
func (e *Exprs) NewStruct(span source.Span, typeName string, fields []StructField, base ExprID) ExprID {
	payload := e.Structs.Allocate(ExprStructData{TypeName: typeName, Fields: fields, Base: base})
	return e.new(ExprStruct, span, PayloadID(payload))
}

// Struct returns the struct literal data for the given expression ID.
func (e *Exprs) Struct(id ExprID) (*ExprStructData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprStruct {
		return nil, false
	}
	return e.Structs.Get(uint32(expr.Payload)), true
}

// NewArray creates an array literal.
func (e *Exprs) NewArray(span source.Span, elems []ExprID) ExprID {
	payload := e.Arrays.Allocate(ExprArrayData{Elems: elems})
	return e.new(ExprArray, span, PayloadID(payload))
}

// Array returns the array literal data for the given expression ID.
func (e *Exprs) Array(id ExprID) (*ExprArrayData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprArray {
		return nil, false
	}
	return e.Arrays.Get(uint32(expr.Payload)), true
}

// NewTuple creates a tuple literal.
func (e *Exprs) NewTuple(span source.Span, elems []ExprID) ExprID {
	payload := e.Tuples.Allocate(ExprTupleData{Elems: elems})
	return e.new(ExprTuple, span, PayloadID(payload))
}

// Tuple returns the tuple literal data for the given expression ID.
func (e *Exprs) Tuple(id ExprID) (*ExprTupleData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprTuple {
		return nil, false
	}
	return e.Tuples.Get(uint32(expr.Payload)), true
}

// NewCast creates a cast expression.
func (e *Exprs) NewCast(span source.Span, value ExprID) ExprID {
	payload := e.Casts.Allocate(ExprCastData{Value: value})
	return e.new(ExprCast, span, PayloadID(payload))
}

// Cast returns the cast data for the given expression ID.
func (e *Exprs) Cast(id ExprID) (*ExprCastData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprCast {
		return nil, false
	}
	return e.Casts.Get(uint32(expr.Payload)), true
}

// NewBlock creates a block expression.
func (e *Exprs) NewBlock(span source.Span, stmts []StmtID, tail ExprID, breakTarget bool) ExprID {
	payload := e.Blocks.Allocate(ExprBlockData{Stmts: stmts, Tail: tail, BreakTarget: breakTarget})
	return e.new(ExprBlock, span, PayloadID(payload))
}

// Block returns the block data for the given expression ID.
func (e *Exprs) Block(id ExprID) (*ExprBlockData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprBlock {
		return nil, false
	}
	return e.Blocks.Get(uint32(expr.Payload)), true
}

// NewMatch creates a match expression.
func (e *Exprs) NewMatch(span source.Span, scrutinee ExprID, arms []MatchArm) ExprID {
	payload := e.Matches.Allocate(ExprMatchData{Scrutinee: scrutinee, Arms: arms})
	return e.new(ExprMatch, span, PayloadID(payload))
}

// Match returns the match data for the given expression ID.
func (e *Exprs) Match(id ExprID) (*ExprMatchData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprMatch {
		return nil, false
	}
	return e.Matches.Get(uint32(expr.Payload)), true
}

// NewLoop creates an infinite loop expression.
func (e *Exprs) NewLoop(span source.Span, body ExprID) ExprID {
	payload := e.Loops.Allocate(ExprLoopData{Body: body})
	return e.new(ExprLoop, span, PayloadID(payload))
}

// Loop returns the loop data for the given expression ID.
func (e *Exprs) Loop(id ExprID) (*ExprLoopData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprLoop {
		return nil, false
	}
	return e.Loops.Get(uint32(expr.Payload)), true
}

// NewBreak creates a break expression targeting a loop or labeled block.
func (e *Exprs) NewBreak(span source.Span, target, value ExprID) ExprID {
	payload := e.Breaks.Allocate(ExprBreakData{Target: target, Value: value})
	return e.new(ExprBreak, span, PayloadID(payload))
}

// Break returns the break data for the given expression ID.
func (e *Exprs) Break(id ExprID) (*ExprBreakData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprBreak {
		return nil, false
	}
	return e.Breaks.Get(uint32(expr.Payload)), true
}

// NewContinue creates a continue expression targeting a loop.
func (e *Exprs) NewContinue(span source.Span, target ExprID) ExprID {
	payload := e.Continues.Allocate(ExprContinueData{Target: target})
	return e.new(ExprContinue, span, PayloadID(payload))
}

// Continue returns the continue data for the given expression ID.
func (e *Exprs) Continue(id ExprID) (*ExprContinueData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprContinue {
		return nil, false
	}
	return e.Continues.Get(uint32(expr.Payload)), true
}

// NewReturn creates a return expression.
func (e *Exprs) NewReturn(span source.Span, value ExprID) ExprID {
	payload := e.Returns.Allocate(ExprReturnData{Value: value})
	return e.new(ExprReturn, span, PayloadID(payload))
}

// Return returns the return data for the given expression ID.
func (e *Exprs) Return(id ExprID) (*ExprReturnData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprReturn {
		return nil, false
	}
	return e.Returns.Get(uint32(expr.Payload)), true
}

// NewYield creates a yield expression (generator bodies only).
func (e *Exprs) NewYield(span source.Span, value ExprID) ExprID {
	payload := e.Yields.Allocate(ExprYieldData{Value: value})
	return e.new(ExprYield, span, PayloadID(payload))
}

// Yield returns the yield data for the given expression ID.
func (e *Exprs) Yield(id ExprID) (*ExprYieldData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprYield {
		return nil, false
	}
	return e.Yields.Get(uint32(expr.Payload)), true
}

// NewClosure creates a closure expression referencing a nested body.
func (e *Exprs) NewClosure(span source.Span, body BodyID) ExprID {
	payload := e.Closures.Allocate(ExprClosureData{Body: body})
	return e.new(ExprClosure, span, PayloadID(payload))
}

// Closure returns the closure data for the given expression ID.
func (e *Exprs) Closure(id ExprID) (*ExprClosureData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprClosure {
		return nil, false
	}
	return e.Closures.Get(uint32(expr.Payload)), true
}
