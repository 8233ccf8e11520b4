package bir

import (
	"ebb/internal/source"
)

// UnaryOp covers prefix operators including the borrow forms.
type UnaryOp uint8

const (
	UnaryNeg UnaryOp = iota
	UnaryNot
	UnaryDeref
	UnaryRef
	UnaryRefMut
)

func (op UnaryOp) String() string {
	switch op {
	case UnaryNeg:
		return "-"
	case UnaryNot:
		return "!"
	case UnaryDeref:
		return "*"
	case UnaryRef:
		return "&"
	case UnaryRefMut:
		return "&mut"
	default:
		return "?"
	}
}

type BinaryOp uint8

const (
	BinAdd BinaryOp = iota
	BinSub
	BinMul
	BinDiv
	BinRem
	BinAnd // lazy &&
	BinOr  // lazy ||
	BinBitAnd
	BinBitOr
	BinBitXor
	BinShl
	BinShr
	BinEq
	BinNe
	BinLt
	BinLe
	BinGt
	BinGe
)

// IsLazy reports whether the operator short-circuits: the right operand is
// evaluated only on some paths.
func (op BinaryOp) IsLazy() bool {
	return op == BinAnd || op == BinOr
}

func (op BinaryOp) String() string {
	switch op {
	case BinAdd:
		return "+"
	case BinSub:
		return "-"
	case BinMul:
		return "*"
	case BinDiv:
		return "/"
	case BinRem:
		return "%"
	case BinAnd:
		return "&&"
	case BinOr:
		return "||"
	case BinBitAnd:
		return "&"
	case BinBitOr:
		return "|"
	case BinBitXor:
		return "^"
	case BinShl:
		return "<<"
	case BinShr:
		return ">>"
	case BinEq:
		return "=="
	case BinNe:
		return "!="
	case BinLt:
		return "<"
	case BinLe:
		return "<="
	case BinGt:
		return ">"
	case BinGe:
		return ">="
	default:
		return "?"
	}
}

// ExprLitData holds the literal's display text; the analysis never
// interprets it.
type ExprLitData struct {
	Text string
}

// ExprVarRefData is a resolved name use. Binding is NoBindingID when the
// name refers to a non-local item (fn, const, static); such references are
// opaque to the analysis.
type ExprVarRefData struct {
	Name    string
	Binding BindingID
}

type ExprUnaryData struct {
	Op      UnaryOp
	Operand ExprID
}

type ExprBinaryData struct {
	Op    BinaryOp
	Left  ExprID
	Right ExprID
}

type ExprAssignData struct {
	Place ExprID
	Value ExprID
}

type ExprAssignOpData struct {
	Op    BinaryOp
	Place ExprID
	Value ExprID
}

type ExprFieldData struct {
	Object ExprID
	Name   string
}

type ExprIndexData struct {
	Object ExprID
	Index  ExprID
}

type ExprCallData struct {
	Callee ExprID
	Args   []ExprID
}

// StructField is one `name: value` entry of a struct literal.
type StructField struct {
	Name  string
	Value ExprID
	Span  source.Span
}

type ExprStructData struct {
	TypeName string
	Fields   []StructField
	Base     ExprID // optional `..base` tail
}

type ExprArrayData struct {
	Elems []ExprID
}

type ExprTupleData struct {
	Elems []ExprID
}

type ExprCastData struct {
	Value ExprID
}

// ExprBlockData is a statement sequence with an optional trailing value.
// BreakTarget marks labeled blocks that `break` expressions may name.
type ExprBlockData struct {
	Stmts       []StmtID
	Tail        ExprID
	BreakTarget bool
}

// MatchArm is one arm of a match expression. Guard is optional.
type MatchArm struct {
	Pat   PatID
	Guard ExprID
	Body  ExprID
	Span  source.Span
}

type ExprMatchData struct {
	Scrutinee ExprID
	Arms      []MatchArm
}

// ExprLoopData is an infinite loop; the loop's own ExprID is the target
// break and continue expressions name.
type ExprLoopData struct {
	Body ExprID
}

type ExprBreakData struct {
	Target ExprID
	Value  ExprID // optional
}

type ExprContinueData struct {
	Target ExprID
}

type ExprReturnData struct {
	Value ExprID // optional
}

type ExprYieldData struct {
	Value ExprID // optional
}

// ExprClosureData references the nested body holding the closure's code.
type ExprClosureData struct {
	Body BodyID
}
