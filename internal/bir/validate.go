package bir

import (
	"fmt"

	"ebb/internal/diag"
	"ebb/internal/source"
)

// Validate checks the structural invariants every producer (snapshot loader,
// test builder) must uphold: IDs in range, every node owned by at most one
// parent, VarRefs resolved to declared bindings, break/continue targets of
// the right kind, or-pattern alternatives binding identical sets, and
// side-table flags naming the right node kinds. The shape checks run first
// over flat arenas; the binding checks recurse through pattern children and
// are skipped entirely when any body failed its shape check. Violations are
// reported through rep; the return value is false when any were found.
func Validate(f *File, rep diag.Reporter) bool {
	v := &validator{file: f, rep: rep, ok: true}

	for _, body := range f.Bodies {
		v.checkShape(body)
	}
	if !v.ok {
		// The walks below recurse through child references and rely on the
		// tree shape established here.
		return false
	}

	v.collectDeclared()
	for _, body := range f.Bodies {
		v.checkBindings(body)
	}
	return v.ok
}

type validator struct {
	file *File
	rep  diag.Reporter
	ok   bool

	// declared holds every binding introduced by a pattern anywhere in the
	// file; captures must reference these.
	declared map[BindingID]string

	// Ownership counts for the body being shape-checked. The root slot,
	// parameter slots and child slots each claim their node; a second claim
	// means the graph is not a tree and the recursive walks would not
	// terminate on it. break/continue targets name ancestors and do not
	// claim ownership.
	exprRefs []uint32
	stmtRefs []uint32
	patRefs  []uint32
}

func (v *validator) report(code diag.Code, span source.Span, msg string) {
	v.ok = false
	if v.rep != nil {
		diag.ReportError(v.rep, code, span, msg).Emit()
	}
}

// eachPatRoot visits every pattern root of a body: parameter patterns, let
// patterns, and match-arm patterns.
func (v *validator) eachPatRoot(body *Body, fn func(PatID)) {
	for _, param := range body.Params {
		fn(param.Pat)
	}
	for _, stmt := range body.Stmts.Arena.Slice() {
		if stmt.Kind == StmtLet {
			fn(stmt.Pat)
		}
	}
	for i := range body.Exprs.Arena.Slice() {
		id := ExprID(i + 1)
		if data, ok := body.Exprs.Match(id); ok {
			for _, arm := range data.Arms {
				fn(arm.Pat)
			}
		}
	}
}

func (v *validator) collectDeclared() {
	v.declared = make(map[BindingID]string)
	seen := make(map[BindingID]PatID)
	for _, body := range v.file.Bodies {
		v.eachPatRoot(body, func(root PatID) {
			body.Pats.EachBinding(root, func(occ BindingOcc) {
				v.declared[occ.Binding] = occ.Name
			})
			// Canonical occurrences detect double declaration; or-pattern
			// alternatives legitimately share a BindingID and are visited
			// once here.
			body.Pats.EachBindingOrFirst(root, func(occ BindingOcc) {
				if prev, dup := seen[occ.Binding]; dup && prev != occ.Pat {
					v.report(diag.DocDuplicateBinding, occ.Span,
						fmt.Sprintf("binding `%s` is declared by more than one pattern", occ.Name))
					return
				}
				seen[occ.Binding] = occ.Pat
			})
		})
	}
}

func (v *validator) checkShape(body *Body) {
	v.exprRefs = make([]uint32, body.Exprs.Len()+1)
	v.stmtRefs = make([]uint32, body.Stmts.Len()+1)
	v.patRefs = make([]uint32, body.Pats.Len()+1)

	if !body.Root.IsValid() {
		v.report(diag.DocMissingRoot, body.Span,
			fmt.Sprintf("body `%s` has no root expression", body.Name))
	} else if uint32(body.Root) > body.Exprs.Len() {
		v.report(diag.DocNodeOutOfRange, body.Span,
			fmt.Sprintf("root expression %d is out of range", body.Root))
	} else {
		v.countExpr(body, body.Span, body.Root)
	}

	for _, param := range body.Params {
		v.patRef(body, param.Span, param.Pat, "parameter")
	}
	for _, capture := range body.Captures {
		if capture.Mode > CaptureByRef {
			v.report(diag.DocBadCaptureMode, capture.Span,
				fmt.Sprintf("capture `%s` has unknown mode %d", capture.Name, capture.Mode))
		}
	}

	for i := range body.Exprs.Arena.Slice() {
		v.checkExpr(body, ExprID(i+1))
	}
	for i := range body.Stmts.Arena.Slice() {
		v.checkStmt(body, StmtID(i+1))
	}
	for i := range body.Pats.Arena.Slice() {
		v.checkPat(body, PatID(i+1))
	}

	for flagged := range body.Diverging {
		expr := body.Exprs.Get(flagged)
		if expr == nil || expr.Kind != ExprCall {
			v.report(diag.DocBadFlagTarget, body.Span,
				fmt.Sprintf("diverging flag names expression %d which is not a call", flagged))
		}
	}
	for flagged := range body.Overloaded {
		expr := body.Exprs.Get(flagged)
		if expr == nil || expr.Kind != ExprAssignOp {
			v.report(diag.DocBadFlagTarget, body.Span,
				fmt.Sprintf("overloaded flag names expression %d which is not a compound assignment", flagged))
		}
	}
}

// countExpr claims ownership of child for the node at span. Out-of-range and
// absent children are skipped; their slot check reports them. The second
// claim on a node is reported once.
func (v *validator) countExpr(body *Body, span source.Span, child ExprID) {
	if child == NoExprID || uint32(child) > body.Exprs.Len() {
		return
	}
	v.exprRefs[child]++
	if v.exprRefs[child] == 2 {
		v.report(diag.DocNodeReused, span,
			fmt.Sprintf("expression %d is referenced by more than one parent", child))
	}
}

func (v *validator) countStmt(body *Body, span source.Span, child StmtID) {
	if child == NoStmtID || uint32(child) > body.Stmts.Len() {
		return
	}
	v.stmtRefs[child]++
	if v.stmtRefs[child] == 2 {
		v.report(diag.DocNodeReused, span,
			fmt.Sprintf("statement %d is referenced by more than one parent", child))
	}
}

// exprRef checks an optional child reference; required children additionally
// go through exprReq.
func (v *validator) exprRef(body *Body, parent *Expr, child ExprID, what string) {
	if child != NoExprID && uint32(child) > body.Exprs.Len() {
		v.report(diag.DocNodeOutOfRange, parent.Span,
			fmt.Sprintf("%s %s references expression %d which is out of range", parent.Kind, what, child))
		return
	}
	v.countExpr(body, parent.Span, child)
}

func (v *validator) exprReq(body *Body, parent *Expr, child ExprID, what string) {
	if child == NoExprID {
		v.report(diag.DocNodeOutOfRange, parent.Span,
			fmt.Sprintf("%s is missing its %s", parent.Kind, what))
		return
	}
	v.exprRef(body, parent, child, what)
}

func (v *validator) patRef(body *Body, span source.Span, child PatID, what string) {
	if child == NoPatID || uint32(child) > body.Pats.Len() {
		v.report(diag.DocNodeOutOfRange, span,
			fmt.Sprintf("%s references pattern %d which is out of range", what, child))
		return
	}
	v.patRefs[child]++
	if v.patRefs[child] == 2 {
		v.report(diag.DocNodeReused, span,
			fmt.Sprintf("pattern %d is referenced by more than one parent", child))
	}
}

func (v *validator) checkExpr(body *Body, id ExprID) {
	expr := body.Exprs.Get(id)
	switch expr.Kind {
	case ExprLit, ExprVarRef:
	case ExprUnary:
		data, _ := body.Exprs.Unary(id)
		v.exprReq(body, expr, data.Operand, "operand")
	case ExprBinary:
		data, _ := body.Exprs.Binary(id)
		v.exprReq(body, expr, data.Left, "left operand")
		v.exprReq(body, expr, data.Right, "right operand")
	case ExprAssign:
		data, _ := body.Exprs.Assign(id)
		v.exprReq(body, expr, data.Place, "place")
		v.exprReq(body, expr, data.Value, "value")
	case ExprAssignOp:
		data, _ := body.Exprs.AssignOp(id)
		v.exprReq(body, expr, data.Place, "place")
		v.exprReq(body, expr, data.Value, "value")
	case ExprField:
		data, _ := body.Exprs.Field(id)
		v.exprReq(body, expr, data.Object, "object")
	case ExprIndex:
		data, _ := body.Exprs.Index(id)
		v.exprReq(body, expr, data.Object, "object")
		v.exprReq(body, expr, data.Index, "index")
	case ExprCall:
		data, _ := body.Exprs.Call(id)
		v.exprReq(body, expr, data.Callee, "callee")
		for _, arg := range data.Args {
			v.exprReq(body, expr, arg, "argument")
		}
	case ExprStruct:
		data, _ := body.Exprs.Struct(id)
		for _, field := range data.Fields {
			v.exprReq(body, expr, field.Value, "field value")
		}
		v.exprRef(body, expr, data.Base, "base")
	case ExprArray:
		data, _ := body.Exprs.Array(id)
		for _, elem := range data.Elems {
			v.exprReq(body, expr, elem, "element")
		}
	case ExprTuple:
		data, _ := body.Exprs.Tuple(id)
		for _, elem := range data.Elems {
			v.exprReq(body, expr, elem, "element")
		}
	case ExprCast:
		data, _ := body.Exprs.Cast(id)
		v.exprReq(body, expr, data.Value, "value")
	case ExprBlock:
		data, _ := body.Exprs.Block(id)
		for _, stmt := range data.Stmts {
			if stmt == NoStmtID || uint32(stmt) > body.Stmts.Len() {
				v.report(diag.DocNodeOutOfRange, expr.Span,
					fmt.Sprintf("block references statement %d which is out of range", stmt))
				continue
			}
			v.countStmt(body, expr.Span, stmt)
		}
		v.exprRef(body, expr, data.Tail, "tail")
	case ExprMatch:
		data, _ := body.Exprs.Match(id)
		v.exprReq(body, expr, data.Scrutinee, "scrutinee")
		for _, arm := range data.Arms {
			v.patRef(body, arm.Span, arm.Pat, "match arm")
			v.exprRef(body, expr, arm.Guard, "guard")
			v.exprReq(body, expr, arm.Body, "arm body")
		}
	case ExprLoop:
		data, _ := body.Exprs.Loop(id)
		v.exprReq(body, expr, data.Body, "body")
	case ExprBreak:
		data, _ := body.Exprs.Break(id)
		v.checkJumpTarget(body, expr, data.Target, true)
		v.exprRef(body, expr, data.Value, "value")
	case ExprContinue:
		data, _ := body.Exprs.Continue(id)
		v.checkJumpTarget(body, expr, data.Target, false)
	case ExprReturn:
		data, _ := body.Exprs.Return(id)
		v.exprRef(body, expr, data.Value, "value")
	case ExprYield:
		data, _ := body.Exprs.Yield(id)
		v.exprRef(body, expr, data.Value, "value")
	case ExprClosure:
		data, _ := body.Exprs.Closure(id)
		if v.file.Body(data.Body) == nil {
			v.report(diag.DocBadBodyRef, expr.Span,
				fmt.Sprintf("closure references unknown body %d", data.Body))
		}
	}
}

func (v *validator) checkJumpTarget(body *Body, expr *Expr, target ExprID, isBreak bool) {
	if target == NoExprID || uint32(target) > body.Exprs.Len() {
		v.report(diag.DocNodeOutOfRange, expr.Span,
			fmt.Sprintf("%s references expression %d which is out of range", expr.Kind, target))
		return
	}
	tgt := body.Exprs.Get(target)
	if tgt.Kind == ExprLoop {
		return
	}
	if isBreak && tgt.Kind == ExprBlock {
		if data, _ := body.Exprs.Block(target); data != nil && data.BreakTarget {
			return
		}
	}
	if isBreak {
		v.report(diag.DocBadBreakTarget, expr.Span, "break target is not a loop or labeled block")
	} else {
		v.report(diag.DocBadBreakTarget, expr.Span, "continue target is not a loop")
	}
}

func (v *validator) checkStmt(body *Body, id StmtID) {
	stmt := body.Stmts.Get(id)
	switch stmt.Kind {
	case StmtLet:
		v.patRef(body, stmt.Span, stmt.Pat, "let")
		if stmt.Init != NoExprID && uint32(stmt.Init) > body.Exprs.Len() {
			v.report(diag.DocNodeOutOfRange, stmt.Span,
				fmt.Sprintf("let initializer %d is out of range", stmt.Init))
		}
		v.countExpr(body, stmt.Span, stmt.Init)
	case StmtExpr:
		if stmt.Expr == NoExprID || uint32(stmt.Expr) > body.Exprs.Len() {
			v.report(diag.DocNodeOutOfRange, stmt.Span,
				fmt.Sprintf("statement references expression %d which is out of range", stmt.Expr))
		}
		v.countExpr(body, stmt.Span, stmt.Expr)
	}
}

func (v *validator) checkPat(body *Body, id PatID) {
	pat := body.Pats.Get(id)
	switch pat.Kind {
	case PatWild, PatLit:
	case PatBinding:
		data, _ := body.Pats.Binding(id)
		if data.Sub != NoPatID {
			v.patRef(body, pat.Span, data.Sub, "binding sub-pattern")
		}
	case PatTuple:
		data, _ := body.Pats.Tuple(id)
		for _, elem := range data.Elems {
			v.patRef(body, pat.Span, elem, "tuple pattern")
		}
	case PatStruct:
		data, _ := body.Pats.Struct(id)
		for _, field := range data.Fields {
			v.patRef(body, field.Span, field.Pat, "struct pattern field")
		}
	case PatVariant:
		data, _ := body.Pats.Variant(id)
		for _, elem := range data.Elems {
			v.patRef(body, pat.Span, elem, "variant pattern")
		}
	case PatRef:
		data, _ := body.Pats.Ref(id)
		v.patRef(body, pat.Span, data.Inner, "ref pattern")
	case PatSlice:
		data, _ := body.Pats.Slice(id)
		for _, elem := range data.Elems {
			v.patRef(body, pat.Span, elem, "slice pattern")
		}
	case PatOr:
		data, _ := body.Pats.Or(id)
		for _, alt := range data.Alts {
			v.patRef(body, pat.Span, alt, "or-pattern alternative")
		}
	}
}

func (v *validator) checkBindings(body *Body) {
	for _, capture := range body.Captures {
		if _, ok := v.declared[capture.Binding]; !ok {
			v.report(diag.DocUnknownBinding, capture.Span,
				fmt.Sprintf("capture `%s` references undeclared binding %d", capture.Name, capture.Binding))
		}
	}

	for i := range body.Exprs.Arena.Slice() {
		id := ExprID(i + 1)
		data, ok := body.Exprs.VarRef(id)
		if !ok || data.Binding == NoBindingID {
			continue
		}
		if _, declared := v.declared[data.Binding]; !declared {
			v.report(diag.DocUnknownBinding, body.Exprs.Get(id).Span,
				fmt.Sprintf("`%s` references undeclared binding %d", data.Name, data.Binding))
		}
	}

	inFlow := v.patsInFlow(body)
	for i := range body.Pats.Arena.Slice() {
		id := PatID(i + 1)
		if !inFlow[id] {
			continue
		}
		if pat := body.Pats.Get(id); pat.Kind == PatOr {
			v.checkOrPat(body, id, pat)
		}
	}
}

// patsInFlow marks every pattern reachable from a pattern root. Ownership
// counting keeps the reachable subgraph a tree, but a cycle among slots no
// root references carries a single claim per node and passes the shape
// check; the visited set keeps this walk finite on such documents, and the
// or-pattern checks skip the unreachable slots instead of recursing into
// them.
func (v *validator) patsInFlow(body *Body) []bool {
	marked := make([]bool, body.Pats.Len()+1)
	var mark func(PatID)
	mark = func(id PatID) {
		if id == NoPatID || uint32(id) > body.Pats.Len() || marked[id] {
			return
		}
		marked[id] = true
		body.Pats.eachChild(id, mark)
	}
	v.eachPatRoot(body, mark)
	return marked
}

// checkOrPat verifies that every alternative binds the same binding set.
func (v *validator) checkOrPat(body *Body, id PatID, pat *Pat) {
	data, _ := body.Pats.Or(id)
	if len(data.Alts) < 2 {
		return
	}

	first := make(map[BindingID]string)
	body.Pats.EachBinding(data.Alts[0], func(occ BindingOcc) {
		first[occ.Binding] = occ.Name
	})
	for _, alt := range data.Alts[1:] {
		rest := make(map[BindingID]string)
		body.Pats.EachBinding(alt, func(occ BindingOcc) {
			rest[occ.Binding] = occ.Name
		})
		if len(rest) != len(first) {
			v.report(diag.DocOrPatternBindings, pat.Span, "or-pattern alternatives bind different names")
			return
		}
		for binding := range first {
			if _, ok := rest[binding]; !ok {
				v.report(diag.DocOrPatternBindings, pat.Span, "or-pattern alternatives bind different names")
				return
			}
		}
	}
}
