package liveness

import (
	"fmt"
	"strings"

	"ebb/internal/bir"
	"ebb/internal/diag"
	"ebb/internal/source"
)

// checker re-walks one solved body in forward source order and turns the
// facts into diagnostics. It never mutates the table.
type checker struct {
	lv       *liveness
	rep      diag.Reporter
	warnings Warnings
	entry    LiveNode
}

func runChecks(lv *liveness, rep diag.Reporter, warnings Warnings, entry LiveNode) {
	c := &checker{lv: lv, rep: rep, warnings: warnings, entry: entry}
	c.walkExpr(lv.ir.body.Root)
	c.checkCaptures()
	c.checkParams()
}

func (c *checker) walkExpr(id bir.ExprID) {
	if !id.IsValid() {
		return
	}
	body := c.lv.ir.body
	expr := c.lv.ir.expr(id)
	switch expr.Kind {
	case bir.ExprLit, bir.ExprVarRef, bir.ExprContinue:
		// leaves

	case bir.ExprUnary:
		data, _ := body.Exprs.Unary(id)
		c.walkExpr(data.Operand)

	case bir.ExprBinary:
		data, _ := body.Exprs.Binary(id)
		c.walkExpr(data.Left)
		c.walkExpr(data.Right)

	case bir.ExprAssign:
		data, _ := body.Exprs.Assign(id)
		c.checkPlace(data.Place)
		c.walkExpr(data.Place)
		c.walkExpr(data.Value)

	case bir.ExprAssignOp:
		data, _ := body.Exprs.AssignOp(id)
		if !body.Overloaded[id] {
			c.checkPlace(data.Place)
		}
		c.walkExpr(data.Place)
		c.walkExpr(data.Value)

	case bir.ExprField:
		data, _ := body.Exprs.Field(id)
		c.walkExpr(data.Object)

	case bir.ExprIndex:
		data, _ := body.Exprs.Index(id)
		c.walkExpr(data.Object)
		c.walkExpr(data.Index)

	case bir.ExprCall:
		data, _ := body.Exprs.Call(id)
		c.walkExpr(data.Callee)
		for _, arg := range data.Args {
			c.walkExpr(arg)
		}

	case bir.ExprStruct:
		data, _ := body.Exprs.Struct(id)
		for _, field := range data.Fields {
			c.walkExpr(field.Value)
		}
		c.walkExpr(data.Base)

	case bir.ExprArray:
		data, _ := body.Exprs.Array(id)
		for _, elem := range data.Elems {
			c.walkExpr(elem)
		}

	case bir.ExprTuple:
		data, _ := body.Exprs.Tuple(id)
		for _, elem := range data.Elems {
			c.walkExpr(elem)
		}

	case bir.ExprCast:
		data, _ := body.Exprs.Cast(id)
		c.walkExpr(data.Value)

	case bir.ExprBlock:
		data, _ := body.Exprs.Block(id)
		for _, stmt := range data.Stmts {
			c.walkStmt(stmt)
		}
		c.walkExpr(data.Tail)

	case bir.ExprMatch:
		data, _ := body.Exprs.Match(id)
		c.walkExpr(data.Scrutinee)
		for _, arm := range data.Arms {
			c.checkUnusedInPat(arm.Pat, NoLiveNode, nil)
			c.walkExpr(arm.Guard)
			c.walkExpr(arm.Body)
		}

	case bir.ExprLoop:
		data, _ := body.Exprs.Loop(id)
		c.walkExpr(data.Body)

	case bir.ExprBreak:
		data, _ := body.Exprs.Break(id)
		c.walkExpr(data.Value)

	case bir.ExprReturn:
		data, _ := body.Exprs.Return(id)
		c.walkExpr(data.Value)

	case bir.ExprYield:
		data, _ := body.Exprs.Yield(id)
		c.walkExpr(data.Value)

	case bir.ExprClosure:
		// The nested body runs its own analysis; nothing to check here.

	default:
		panic(fmt.Errorf("body %q: unhandled expression kind %s", body.Name, expr.Kind))
	}
}

func (c *checker) walkStmt(id bir.StmtID) {
	stmt := c.lv.ir.body.Stmts.Get(id)
	if stmt == nil {
		panic(fmt.Errorf("body %q references missing statement s%d", c.lv.ir.body.Name, uint32(id)))
	}
	switch stmt.Kind {
	case bir.StmtLet:
		hasInit := stmt.Init.IsValid()
		c.checkUnusedInPat(stmt.Pat, NoLiveNode, func(spans []source.Span, ln LiveNode, v Variable) {
			if hasInit {
				c.warnDeadAssign(spans, ln, v)
			}
		})
		c.walkExpr(stmt.Init)
	case bir.StmtExpr:
		c.walkExpr(stmt.Expr)
	}
}

// checkPlace flags a whole-variable assignment whose value is never read
// afterwards. Non-variable places carry no whole-variable write, so there is
// nothing to flag; their parts were treated as reads during propagation.
func (c *checker) checkPlace(place bir.ExprID) {
	data, ok := c.lv.ir.body.Exprs.VarRef(place)
	if !ok || !data.Binding.IsValid() {
		return
	}
	ln := c.lv.ir.liveNodeOfExpr(place)
	v := c.lv.ir.variableOf(data.Binding)
	c.warnDeadAssign([]source.Span{c.lv.ir.expr(place).Span}, ln, v)
}

func (c *checker) warnDeadAssign(spans []source.Span, ln LiveNode, v Variable) {
	if !c.lv.liveOnExit(ln, v) {
		c.reportNeverRead(diag.LivDeadAssign, spans, v, "value assigned to `%s` is never read")
	}
}

func (c *checker) checkParams() {
	for _, param := range c.lv.ir.body.Params {
		c.checkUnusedInPat(param.Pat, c.entry, func(spans []source.Span, ln LiveNode, v Variable) {
			if !c.lv.liveOnEntry(ln, v) {
				c.reportNeverRead(diag.LivUnusedParam, spans, v, "value passed to `%s` is never read")
			}
		})
	}
}

// checkCaptures inspects the body's own capture list against the entry
// node. By-ref captures are exempt: the environment observes them after the
// body exits by definition.
func (c *checker) checkCaptures() {
	for _, cap := range c.lv.ir.body.Captures {
		if cap.Mode == bir.CaptureByRef {
			continue
		}
		if !c.shouldWarn(cap.Name) {
			continue
		}
		v := c.lv.ir.variableOf(cap.Binding)
		if c.lv.usedOnEntry(c.entry, v) {
			if !c.lv.liveOnEntry(c.entry, v) && c.warnings.DeadStore {
				diag.ReportWarning(c.rep, diag.LivUnusedCapture, cap.Span,
					fmt.Sprintf("value captured by `%s` is never read", cap.Name)).
					WithNote(source.Span{}, "did you mean to capture by reference instead?").
					Emit()
			}
		} else if c.warnings.Unused {
			diag.ReportWarning(c.rep, diag.LivUnusedCapture, cap.Span,
				fmt.Sprintf("unused variable: `%s`", cap.Name)).
				WithNote(source.Span{}, "did you mean to capture by reference instead?").
				Emit()
		}
	}
}

type patOcc struct {
	span      source.Span
	shorthand bool
}

type unusedGroup struct {
	ln   LiveNode
	v    Variable
	occs []patOcc
}

// checkUnusedInPat groups the pattern's binding occurrences by name: an
// or-pattern repeats each name once per alternative, and those occurrences
// must produce a single report covering every span. The first occurrence's
// node and variable are authoritative. A valid entry overrides the
// per-occurrence definition node (parameters are checked at the body
// entry). Groups whose variable is used feed onUsedOnEntry instead of the
// unused report.
func (c *checker) checkUnusedInPat(pat bir.PatID, entry LiveNode, onUsedOnEntry func([]source.Span, LiveNode, Variable)) {
	var order []string
	groups := make(map[string]*unusedGroup)
	c.lv.ir.body.Pats.EachBinding(pat, func(occ bir.BindingOcc) {
		g, ok := groups[occ.Name]
		if !ok {
			ln := entry
			if !ln.IsValid() {
				ln = c.lv.ir.liveNodeOfPat(occ.Pat)
			}
			g = &unusedGroup{ln: ln, v: c.lv.ir.variableOf(occ.Binding)}
			groups[occ.Name] = g
			order = append(order, occ.Name)
		}
		g.occs = append(g.occs, patOcc{span: occ.Span, shorthand: occ.Shorthand})
	})
	for _, name := range order {
		g := groups[name]
		if c.lv.usedOnEntry(g.ln, g.v) {
			if onUsedOnEntry != nil {
				onUsedOnEntry(groupSpans(g), g.ln, g.v)
			}
		} else {
			c.reportUnused(name, g)
		}
	}
}

func groupSpans(g *unusedGroup) []source.Span {
	spans := make([]source.Span, len(g.occs))
	for i, occ := range g.occs {
		spans[i] = occ.span
	}
	return spans
}

func (c *checker) reportUnused(name string, g *unusedGroup) {
	if !c.shouldWarn(name) || name == "self" || !c.warnings.Unused {
		return
	}
	// The exit node guard covers bodies whose entry *is* the exit node
	// (no flow nodes at all): the exit node has no successor to query.
	isAssigned := g.ln != c.lv.exitLN && c.lv.assignedOnExit(g.ln, g.v)
	if isAssigned {
		b := diag.ReportWarning(c.rep, diag.LivUnusedVariable, g.occs[0].span,
			fmt.Sprintf("variable `%s` is assigned to, but never used", name))
		for _, occ := range g.occs[1:] {
			b.WithNote(occ.span, "also bound here")
		}
		b.WithNote(source.Span{}, fmt.Sprintf("consider using `_%s` instead", name))
		b.Emit()
		return
	}
	b := diag.ReportWarning(c.rep, diag.LivUnusedVariable, g.occs[0].span,
		fmt.Sprintf("unused variable: `%s`", name))
	for _, occ := range g.occs[1:] {
		b.WithNote(occ.span, "also bound here")
	}
	b.WithFixSuggestion(c.unusedFix(name, g.occs))
	b.Emit()
}

// unusedFix builds the machine-applicable rewrite for an unused binding
// group. Shorthand struct-field occurrences cannot be renamed in place
// (`Point{x}` has no `x:` to keep), so any shorthand in the group switches
// the whole fix to field-ignoring form.
func (c *checker) unusedFix(name string, occs []patOcc) diag.Fix {
	var shorthand, plain []patOcc
	for _, occ := range occs {
		if occ.shorthand {
			shorthand = append(shorthand, occ)
		} else {
			plain = append(plain, occ)
		}
	}
	if len(shorthand) > 0 {
		edits := make([]diag.TextEdit, 0, len(occs))
		for _, occ := range shorthand {
			edits = append(edits, renameEdit(occ, name, name+": _"))
		}
		for _, occ := range plain {
			edits = append(edits, renameEdit(occ, name, "_"))
		}
		return diag.Fix{
			ID:            "liveness.ignore-field",
			Title:         "try ignoring the field",
			Applicability: diag.FixApplicabilityAlwaysSafe,
			IsPreferred:   true,
			Edits:         edits,
		}
	}
	edits := make([]diag.TextEdit, 0, len(plain))
	for _, occ := range plain {
		edits = append(edits, renameEdit(occ, name, "_"+name))
	}
	return diag.Fix{
		ID:            "liveness.underscore-prefix",
		Title:         "if this is intentional, prefix it with an underscore",
		Applicability: diag.FixApplicabilityAlwaysSafe,
		IsPreferred:   true,
		Edits:         edits,
	}
}

// renameEdit replaces one binding occurrence. OldText is recorded only when
// the span covers exactly the identifier, so spans widened by modifiers
// (`mut x`) fail verification instead of clobbering text.
func renameEdit(occ patOcc, name, newText string) diag.TextEdit {
	edit := diag.TextEdit{Span: occ.span, NewText: newText}
	if occ.span.Len() == uint32(len(name)) {
		edit.OldText = name
	}
	return edit
}

func (c *checker) reportNeverRead(code diag.Code, spans []source.Span, v Variable, format string) {
	name := c.lv.ir.variable(v).name
	if !c.shouldWarn(name) || !c.warnings.DeadStore {
		return
	}
	b := diag.ReportWarning(c.rep, code, spans[0], fmt.Sprintf(format, name))
	for _, sp := range spans[1:] {
		b.WithNote(sp, "also assigned here")
	}
	b.WithNote(source.Span{}, "maybe it is overwritten before being read?")
	b.Emit()
}

// shouldWarn filters names the user deliberately marked as ignorable.
func (c *checker) shouldWarn(name string) bool {
	if name == "" {
		return false
	}
	if prefix := c.warnings.AllowPrefix; prefix != "" && strings.HasPrefix(name, prefix) {
		return false
	}
	return true
}
