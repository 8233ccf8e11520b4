package bir

import (
	"fmt"
	"strings"
)

// Print renders a compact indented tree of body for debugging. Loop and jump
// nodes carry their expression IDs so break/continue targets can be
// correlated by eye.
func Print(body *Body) string {
	p := &printer{body: body}
	fmt.Fprintf(&p.sb, "%s `%s`", body.Kind, body.Name)
	if body.OneShot {
		p.sb.WriteString(" one-shot")
	}
	if body.Synthetic {
		p.sb.WriteString(" synthetic")
	}
	p.sb.WriteByte('\n')
	for _, capture := range body.Captures {
		fmt.Fprintf(&p.sb, "  capture %s `%s` v%d\n", capture.Mode, capture.Name, capture.Binding)
	}
	for _, param := range body.Params {
		p.sb.WriteString("  param\n")
		p.pat(param.Pat, 2)
	}
	if body.Root.IsValid() {
		p.sb.WriteString("  root\n")
		p.expr(body.Root, 2)
	}
	return p.sb.String()
}

type printer struct {
	body *Body
	sb   strings.Builder
}

func (p *printer) line(depth int, format string, args ...any) {
	p.sb.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(&p.sb, format, args...)
	p.sb.WriteByte('\n')
}

func (p *printer) expr(id ExprID, depth int) {
	expr := p.body.Exprs.Get(id)
	if expr == nil {
		p.line(depth, "<missing e%d>", id)
		return
	}
	e := p.body.Exprs
	switch expr.Kind {
	case ExprLit:
		data, _ := e.Lit(id)
		p.line(depth, "lit `%s`", data.Text)
	case ExprVarRef:
		data, _ := e.VarRef(id)
		if data.Binding.IsValid() {
			p.line(depth, "var `%s` v%d", data.Name, data.Binding)
		} else {
			p.line(depth, "var `%s` item", data.Name)
		}
	case ExprUnary:
		data, _ := e.Unary(id)
		p.line(depth, "unary %s", data.Op)
		p.expr(data.Operand, depth+1)
	case ExprBinary:
		data, _ := e.Binary(id)
		p.line(depth, "binary %s", data.Op)
		p.expr(data.Left, depth+1)
		p.expr(data.Right, depth+1)
	case ExprAssign:
		data, _ := e.Assign(id)
		p.line(depth, "assign")
		p.expr(data.Place, depth+1)
		p.expr(data.Value, depth+1)
	case ExprAssignOp:
		data, _ := e.AssignOp(id)
		suffix := ""
		if p.body.Overloaded[id] {
			suffix = " overloaded"
		}
		p.line(depth, "assign-op %s=%s", data.Op, suffix)
		p.expr(data.Place, depth+1)
		p.expr(data.Value, depth+1)
	case ExprField:
		data, _ := e.Field(id)
		p.line(depth, "field `.%s`", data.Name)
		p.expr(data.Object, depth+1)
	case ExprIndex:
		data, _ := e.Index(id)
		p.line(depth, "index")
		p.expr(data.Object, depth+1)
		p.expr(data.Index, depth+1)
	case ExprCall:
		data, _ := e.Call(id)
		suffix := ""
		if p.body.Diverging[id] {
			suffix = " diverging"
		}
		p.line(depth, "call%s", suffix)
		p.expr(data.Callee, depth+1)
		for _, arg := range data.Args {
			p.expr(arg, depth+1)
		}
	case ExprStruct:
		data, _ := e.Struct(id)
		p.line(depth, "struct `%s`", data.TypeName)
		for _, field := range data.Fields {
			p.line(depth+1, "field `%s`:", field.Name)
			p.expr(field.Value, depth+2)
		}
		if data.Base.IsValid() {
			p.line(depth+1, "base")
			p.expr(data.Base, depth+2)
		}
	case ExprArray:
		data, _ := e.Array(id)
		p.line(depth, "array")
		for _, elem := range data.Elems {
			p.expr(elem, depth+1)
		}
	case ExprTuple:
		data, _ := e.Tuple(id)
		p.line(depth, "tuple")
		for _, elem := range data.Elems {
			p.expr(elem, depth+1)
		}
	case ExprCast:
		data, _ := e.Cast(id)
		p.line(depth, "cast")
		p.expr(data.Value, depth+1)
	case ExprBlock:
		data, _ := e.Block(id)
		if data.BreakTarget {
			p.line(depth, "block e%d labeled", id)
		} else {
			p.line(depth, "block")
		}
		for _, stmt := range data.Stmts {
			p.stmt(stmt, depth+1)
		}
		if data.Tail.IsValid() {
			p.line(depth+1, "tail")
			p.expr(data.Tail, depth+2)
		}
	case ExprMatch:
		data, _ := e.Match(id)
		p.line(depth, "match")
		p.expr(data.Scrutinee, depth+1)
		for _, arm := range data.Arms {
			p.line(depth+1, "arm")
			p.pat(arm.Pat, depth+2)
			if arm.Guard.IsValid() {
				p.line(depth+2, "guard")
				p.expr(arm.Guard, depth+3)
			}
			p.expr(arm.Body, depth+2)
		}
	case ExprLoop:
		data, _ := e.Loop(id)
		p.line(depth, "loop e%d", id)
		p.expr(data.Body, depth+1)
	case ExprBreak:
		data, _ := e.Break(id)
		p.line(depth, "break ->e%d", data.Target)
		if data.Value.IsValid() {
			p.expr(data.Value, depth+1)
		}
	case ExprContinue:
		data, _ := e.Continue(id)
		p.line(depth, "continue ->e%d", data.Target)
	case ExprReturn:
		data, _ := e.Return(id)
		p.line(depth, "return")
		if data.Value.IsValid() {
			p.expr(data.Value, depth+1)
		}
	case ExprYield:
		data, _ := e.Yield(id)
		p.line(depth, "yield")
		if data.Value.IsValid() {
			p.expr(data.Value, depth+1)
		}
	case ExprClosure:
		data, _ := e.Closure(id)
		p.line(depth, "closure b%d", data.Body)
	default:
		p.line(depth, "<unknown kind %d>", expr.Kind)
	}
}

func (p *printer) stmt(id StmtID, depth int) {
	stmt := p.body.Stmts.Get(id)
	if stmt == nil {
		p.line(depth, "<missing s%d>", id)
		return
	}
	switch stmt.Kind {
	case StmtLet:
		p.line(depth, "let")
		p.pat(stmt.Pat, depth+1)
		if stmt.Init.IsValid() {
			p.line(depth+1, "init")
			p.expr(stmt.Init, depth+2)
		}
	case StmtExpr:
		p.expr(stmt.Expr, depth)
	}
}

func (p *printer) pat(id PatID, depth int) {
	pat := p.body.Pats.Get(id)
	if pat == nil {
		p.line(depth, "<missing p%d>", id)
		return
	}
	ps := p.body.Pats
	switch pat.Kind {
	case PatWild:
		p.line(depth, "wild")
	case PatLit:
		data, _ := ps.Lit(id)
		p.line(depth, "lit `%s`", data.Text)
	case PatBinding:
		data, _ := ps.Binding(id)
		mut := ""
		if data.Mut {
			mut = " mut"
		}
		p.line(depth, "binding%s `%s` v%d", mut, data.Name, data.Binding)
		if data.Sub.IsValid() {
			p.pat(data.Sub, depth+1)
		}
	case PatTuple:
		data, _ := ps.Tuple(id)
		p.line(depth, "tuple")
		for _, elem := range data.Elems {
			p.pat(elem, depth+1)
		}
	case PatStruct:
		data, _ := ps.Struct(id)
		p.line(depth, "struct `%s`", data.TypeName)
		for _, field := range data.Fields {
			if field.Shorthand {
				p.line(depth+1, "field `%s` shorthand", field.Name)
			} else {
				p.line(depth+1, "field `%s`", field.Name)
			}
			p.pat(field.Pat, depth+2)
		}
	case PatVariant:
		data, _ := ps.Variant(id)
		p.line(depth, "variant `%s`", data.Name)
		for _, elem := range data.Elems {
			p.pat(elem, depth+1)
		}
	case PatRef:
		data, _ := ps.Ref(id)
		p.line(depth, "ref")
		p.pat(data.Inner, depth+1)
	case PatSlice:
		data, _ := ps.Slice(id)
		p.line(depth, "slice")
		for _, elem := range data.Elems {
			p.pat(elem, depth+1)
		}
	case PatOr:
		data, _ := ps.Or(id)
		p.line(depth, "or")
		for _, alt := range data.Alts {
			p.pat(alt, depth+1)
		}
	default:
		p.line(depth, "<unknown kind %d>", pat.Kind)
	}
}
