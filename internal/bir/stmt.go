package bir

import (
	"ebb/internal/source"
)

type StmtKind uint8

const (
	StmtLet StmtKind = iota
	StmtExpr
)

func (k StmtKind) String() string {
	switch k {
	case StmtLet:
		return "let"
	case StmtExpr:
		return "expr"
	default:
		return "unknown"
	}
}

// Stmt is flat: two kinds do not justify payload arenas. Pat and Init are
// meaningful for StmtLet (Init optional), Expr for StmtExpr.
type Stmt struct {
	Kind StmtKind
	Span source.Span
	Pat  PatID
	Init ExprID
	Expr ExprID
}

type Stmts struct {
	Arena *Arena[Stmt]
}

func NewStmts(capHint uint) *Stmts {
	if capHint == 0 {
		capHint = 1 << 5
	}
	return &Stmts{
		Arena: NewArena[Stmt](capHint),
	}
}

// NewLet creates a let statement; init may be NoExprID for `let x;`.
func (s *Stmts) NewLet(span source.Span, pat PatID, init ExprID) StmtID {
	return StmtID(s.Arena.Allocate(Stmt{
		Kind: StmtLet,
		Span: span,
		Pat:  pat,
		Init: init,
	}))
}

// NewExpr creates an expression statement.
func (s *Stmts) NewExpr(span source.Span, expr ExprID) StmtID {
	return StmtID(s.Arena.Allocate(Stmt{
		Kind: StmtExpr,
		Span: span,
		Expr: expr,
	}))
}

// Get returns the statement with the given ID, or nil for the zero ID.
func (s *Stmts) Get(id StmtID) *Stmt {
	return s.Arena.Get(uint32(id))
}

// Len returns the number of allocated statements.
func (s *Stmts) Len() uint32 {
	return s.Arena.Len()
}
