package liveness

import (
	"fmt"

	"fortio.org/safecast"

	"ebb/internal/bir"
	"ebb/internal/source"
	"ebb/internal/trace"
)

// liveness is the solver state for one body: the fact table, the successor
// relation, and the registered break/continue targets. It is built after the
// index pass has fixed the node and variable counts.
type liveness struct {
	ir     *irMaps
	tracer trace.Tracer

	table *rwuTable
	succs []LiveNode // successor per LiveNode, NoLiveNode until initialized

	breakLN map[bir.ExprID]LiveNode
	contLN  map[bir.ExprID]LiveNode

	closureLN LiveNode
	exitLN    LiveNode
}

func newLiveness(ir *irMaps, tracer trace.Tracer) *liveness {
	closureLN := ir.addLiveNode(ClosureNode, source.Span{})
	exitLN := ir.addLiveNode(ExitNode, source.Span{})
	size, err := safecast.Conv[uint32](uint64(ir.numNodes()) * uint64(ir.numVars()))
	if err != nil {
		panic(fmt.Errorf("body %q: fact table size overflow: %w", ir.body.Name, err))
	}
	return &liveness{
		ir:        ir,
		tracer:    tracer,
		table:     newRWUTable(size),
		succs:     make([]LiveNode, ir.numNodes()),
		breakLN:   make(map[bir.ExprID]LiveNode),
		contLN:    make(map[bir.ExprID]LiveNode),
		closureLN: closureLN,
		exitLN:    exitLN,
	}
}

func (lv *liveness) idx(ln LiveNode, v Variable) uint32 {
	return (uint32(ln)-1)*lv.ir.numVars() + (uint32(v) - 1)
}

func (lv *liveness) rowBase(ln LiveNode) uint32 {
	return (uint32(ln) - 1) * lv.ir.numVars()
}

func (lv *liveness) successor(ln LiveNode) LiveNode {
	s := lv.succs[uint32(ln)-1]
	if !s.IsValid() {
		panic(fmt.Errorf("body %q: %s has no successor", lv.ir.body.Name, ln))
	}
	return s
}

func (lv *liveness) hasSuccessor(ln LiveNode) bool {
	return lv.succs[uint32(ln)-1].IsValid()
}

func (lv *liveness) liveOnEntry(ln LiveNode, v Variable) bool {
	return lv.table.getReader(lv.idx(ln, v)).IsValid()
}

func (lv *liveness) liveOnExit(ln LiveNode, v Variable) bool {
	return lv.liveOnEntry(lv.successor(ln), v)
}

func (lv *liveness) usedOnEntry(ln LiveNode, v Variable) bool {
	return lv.table.getUsed(lv.idx(ln, v))
}

func (lv *liveness) assignedOnEntry(ln LiveNode, v Variable) bool {
	return lv.table.getWriter(lv.idx(ln, v)).IsValid()
}

func (lv *liveness) assignedOnExit(ln LiveNode, v Variable) bool {
	return lv.assignedOnEntry(lv.successor(ln), v)
}

// traceNode emits a node-scope instant event. The detail closure runs only
// when the tracer accepts node-scope events, so the hot path pays nothing
// while tracing is off.
func (lv *liveness) traceNode(name string, detail func() string) {
	t := lv.tracer
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(trace.ScopeNode) {
		return
	}
	trace.Point(t, trace.ScopeNode, name, detail())
}

// initEmpty records the successor without seeding any facts; merge points
// (match, loop, lazy operators) start empty and accumulate branch facts.
func (lv *liveness) initEmpty(ln, succ LiveNode) {
	lv.succs[uint32(ln)-1] = succ
	lv.traceNode("init", func() string { return fmt.Sprintf("%s empty, precedes %s", ln, succ) })
}

// initFromSucc records the successor and copies its whole row; straight-line
// nodes see exactly the facts of the node they flow into.
func (lv *liveness) initFromSucc(ln, succ LiveNode) {
	lv.succs[uint32(ln)-1] = succ
	dst, src := lv.rowBase(ln), lv.rowBase(succ)
	for i := uint32(0); i < lv.ir.numVars(); i++ {
		lv.table.copyPacked(dst+i, src+i)
	}
	lv.traceNode("init", func() string { return fmt.Sprintf("%s from %s", ln, succ) })
}

// mergeFromSucc folds succ's row into ln's. Each record component only ever
// goes absent-to-present, which bounds the fixed-point iteration. Reports
// whether anything changed.
func (lv *liveness) mergeFromSucc(ln, succ LiveNode, first bool) bool {
	if ln == succ {
		return false
	}
	changed := false
	dst, src := lv.rowBase(ln), lv.rowBase(succ)
	for i := uint32(0); i < lv.ir.numVars(); i++ {
		di, si := dst+i, src+i
		// Fast path: an absent-and-unused source record adds nothing.
		if lv.table.packed[si] == invInvFalse {
			continue
		}
		cur := lv.table.get(di)
		s := lv.table.get(si)
		rowChanged := false
		if s.reader.IsValid() && !cur.reader.IsValid() {
			cur.reader = s.reader
			rowChanged = true
		}
		if s.writer.IsValid() && !cur.writer.IsValid() {
			cur.writer = s.writer
			rowChanged = true
		}
		if s.used && !cur.used {
			cur.used = true
			rowChanged = true
		}
		if rowChanged {
			lv.table.assign(di, cur)
			changed = true
		}
	}
	lv.traceNode("merge", func() string {
		return fmt.Sprintf("%s <- %s first=%t changed=%t", ln, succ, first, changed)
	})
	return changed
}

// define kills the variable's reader and writer at its definition node. The
// used bit survives: it is what the unused-variable check reads there.
func (lv *liveness) define(writer LiveNode, v Variable) {
	lv.table.assignInvInv(lv.idx(writer, v))
	lv.traceNode("define", func() string { return fmt.Sprintf("%s defines %s", writer, v) })
}

// acc applies an access at ln. A write clears the reader before installing
// the writer; a read is applied after the write so a read-write access
// (compound assignment) keeps the node as its own reader.
func (lv *liveness) acc(ln LiveNode, v Variable, bits uint32) {
	idx := lv.idx(ln, v)
	r := lv.table.get(idx)
	if bits&accWrite != 0 {
		r.reader = NoLiveNode
		r.writer = ln
	}
	if bits&accRead != 0 {
		r.reader = ln
	}
	if bits&accUse != 0 {
		r.used = true
	}
	lv.table.assign(idx, r)
	lv.traceNode("acc", func() string {
		return fmt.Sprintf("%s %s bits=%d -> reader=%s writer=%s used=%t", ln, v, bits, r.reader, r.writer, r.used)
	})
}

// compute solves the body and returns its entry node. By-ref captures are
// assumed read after exit; reusable closures additionally iterate the
// capture bridge to a fixed point so by-value captures stay live across
// calls.
func (lv *liveness) compute() LiveNode {
	body := lv.ir.body
	for i := len(body.Captures) - 1; i >= 0; i-- {
		cap := body.Captures[i]
		if cap.Mode == bir.CaptureByRef {
			lv.acc(lv.exitLN, lv.ir.variableOf(cap.Binding), accRead|accUse)
		}
	}

	succ := lv.propagateExpr(body.Root, lv.exitLN)

	if len(body.Captures) == 0 {
		return succ
	}
	if body.Kind != bir.BodyClosure || body.OneShot {
		// Generators and one-shot closures are never re-entered, so
		// by-value captures are dead once the body exits.
		return succ
	}

	first := true
	for iter := 1; ; iter++ {
		lv.initFromSucc(lv.closureLN, succ)
		// Parameters are rebound on every call and must not leak into
		// the captured-variable facts.
		for _, param := range body.Params {
			body.Pats.EachBinding(param.Pat, func(occ bir.BindingOcc) {
				lv.define(lv.closureLN, lv.ir.variableOf(occ.Binding))
			})
		}
		if !lv.mergeFromSucc(lv.exitLN, lv.closureLN, first) {
			break
		}
		first = false
		lv.traceNode("fixpoint", func() string {
			return fmt.Sprintf("closure body %q iteration %d", body.Name, iter)
		})
		if again := lv.propagateExpr(body.Root, lv.exitLN); again != succ {
			panic(fmt.Errorf("body %q: entry changed during capture fixed point: %s != %s",
				body.Name, again, succ))
		}
	}
	return succ
}

func (lv *liveness) propagateExpr(id bir.ExprID, succ LiveNode) LiveNode {
	if !id.IsValid() {
		return succ
	}
	body := lv.ir.body
	expr := lv.ir.expr(id)
	switch expr.Kind {
	case bir.ExprLit:
		return succ

	case bir.ExprVarRef:
		data, _ := body.Exprs.VarRef(id)
		if !data.Binding.IsValid() {
			// Reference to a non-local item: nothing to track.
			return succ
		}
		return lv.accessVar(id, data.Binding, succ, accRead|accUse)

	case bir.ExprUnary:
		data, _ := body.Exprs.Unary(id)
		return lv.propagateExpr(data.Operand, succ)

	case bir.ExprBinary:
		data, _ := body.Exprs.Binary(id)
		if data.Op.IsLazy() {
			// The right operand runs only on some paths, so the
			// operator node merges "right ran" with "right skipped".
			rSucc := lv.propagateExpr(data.Right, succ)
			ln := lv.ir.liveNodeOfExpr(id)
			lv.initFromSucc(ln, succ)
			lv.mergeFromSucc(ln, rSucc, false)
			return lv.propagateExpr(data.Left, ln)
		}
		rSucc := lv.propagateExpr(data.Right, succ)
		return lv.propagateExpr(data.Left, rSucc)

	case bir.ExprAssign:
		data, _ := body.Exprs.Assign(id)
		s := lv.writePlace(data.Place, succ, accWrite)
		s = lv.propagatePlaceComponents(data.Place, s)
		return lv.propagateExpr(data.Value, s)

	case bir.ExprAssignOp:
		data, _ := body.Exprs.AssignOp(id)
		if body.Overloaded[id] {
			// Overloaded compound assignment is a method call: both
			// sides are ordinary reads.
			s := lv.propagateExpr(data.Place, succ)
			return lv.propagateExpr(data.Value, s)
		}
		s := lv.writePlace(data.Place, succ, accWrite|accRead)
		s = lv.propagateExpr(data.Value, s)
		return lv.propagatePlaceComponents(data.Place, s)

	case bir.ExprField:
		data, _ := body.Exprs.Field(id)
		return lv.propagateExpr(data.Object, succ)

	case bir.ExprIndex:
		data, _ := body.Exprs.Index(id)
		s := lv.propagateExpr(data.Index, succ)
		return lv.propagateExpr(data.Object, s)

	case bir.ExprCall:
		data, _ := body.Exprs.Call(id)
		s := succ
		if body.Diverging[id] {
			// Control provably never returns from this call.
			s = lv.exitLN
		}
		s = lv.propagateExprs(data.Args, s)
		return lv.propagateExpr(data.Callee, s)

	case bir.ExprStruct:
		data, _ := body.Exprs.Struct(id)
		s := lv.propagateExpr(data.Base, succ)
		for i := len(data.Fields) - 1; i >= 0; i-- {
			s = lv.propagateExpr(data.Fields[i].Value, s)
		}
		return s

	case bir.ExprArray:
		data, _ := body.Exprs.Array(id)
		return lv.propagateExprs(data.Elems, succ)

	case bir.ExprTuple:
		data, _ := body.Exprs.Tuple(id)
		return lv.propagateExprs(data.Elems, succ)

	case bir.ExprCast:
		data, _ := body.Exprs.Cast(id)
		return lv.propagateExpr(data.Value, succ)

	case bir.ExprBlock:
		return lv.propagateBlock(id, succ)

	case bir.ExprMatch:
		data, _ := body.Exprs.Match(id)
		ln := lv.ir.liveNodeOfExpr(id)
		lv.initEmpty(ln, succ)
		first := true
		for _, arm := range data.Arms {
			bodySucc := lv.propagateExpr(arm.Body, succ)
			guardSucc := bodySucc
			if arm.Guard.IsValid() {
				guardSucc = lv.propagateExpr(arm.Guard, bodySucc)
			}
			armSucc := lv.defineBindingsInPat(arm.Pat, guardSucc)
			lv.mergeFromSucc(ln, armSucc, first)
			first = false
		}
		return lv.propagateExpr(data.Scrutinee, ln)

	case bir.ExprLoop:
		return lv.propagateLoop(id, succ)

	case bir.ExprBreak:
		data, _ := body.Exprs.Break(id)
		target, ok := lv.breakLN[data.Target]
		if !ok {
			panic(fmt.Errorf("body %q: break e%d targets unregistered e%d",
				body.Name, uint32(id), uint32(data.Target)))
		}
		return lv.propagateExpr(data.Value, target)

	case bir.ExprContinue:
		data, _ := body.Exprs.Continue(id)
		target, ok := lv.contLN[data.Target]
		if !ok {
			panic(fmt.Errorf("body %q: continue e%d targets unregistered e%d",
				body.Name, uint32(id), uint32(data.Target)))
		}
		return target

	case bir.ExprReturn:
		data, _ := body.Exprs.Return(id)
		return lv.propagateExpr(data.Value, lv.exitLN)

	case bir.ExprYield:
		// The generator resumes right here, so the value flows into the
		// normal successor.
		data, _ := body.Exprs.Yield(id)
		return lv.propagateExpr(data.Value, succ)

	case bir.ExprClosure:
		// Constructing the closure reads every captured variable.
		caps := lv.ir.captures[id]
		s := succ
		for i := len(caps) - 1; i >= 0; i-- {
			cap := caps[i]
			lv.initFromSucc(cap.ln, s)
			lv.acc(cap.ln, cap.variable, accRead|accUse)
			s = cap.ln
		}
		return s

	default:
		panic(fmt.Errorf("body %q: unhandled expression kind %s", body.Name, expr.Kind))
	}
}

func (lv *liveness) propagateExprs(exprs []bir.ExprID, succ LiveNode) LiveNode {
	for i := len(exprs) - 1; i >= 0; i-- {
		succ = lv.propagateExpr(exprs[i], succ)
	}
	return succ
}

func (lv *liveness) propagateBlock(id bir.ExprID, succ LiveNode) LiveNode {
	data, _ := lv.ir.body.Exprs.Block(id)
	if data.BreakTarget {
		lv.breakLN[id] = succ
	}
	succ = lv.propagateExpr(data.Tail, succ)
	for i := len(data.Stmts) - 1; i >= 0; i-- {
		succ = lv.propagateStmt(data.Stmts[i], succ)
	}
	return succ
}

func (lv *liveness) propagateStmt(id bir.StmtID, succ LiveNode) LiveNode {
	stmt := lv.ir.body.Stmts.Get(id)
	if stmt == nil {
		panic(fmt.Errorf("body %q references missing statement s%d", lv.ir.body.Name, uint32(id)))
	}
	switch stmt.Kind {
	case bir.StmtLet:
		// The definition node precedes the initializer in the modeled
		// flow, and the initializer is not a write: `let x;` followed by
		// `x = 1;` must flag the assignment, not the declaration, and an
		// immutable binding assigned inside a loop must not see its own
		// previous iteration as a conflicting write.
		succ = lv.propagateExpr(stmt.Init, succ)
		return lv.defineBindingsInPat(stmt.Pat, succ)
	case bir.StmtExpr:
		return lv.propagateExpr(stmt.Expr, succ)
	}
	return succ
}

// defineBindingsInPat chains one VarDefNode per canonical binding occurrence
// in front of succ. Only the first or-pattern alternative defines; the
// others bind the same variables by construction.
func (lv *liveness) defineBindingsInPat(pat bir.PatID, succ LiveNode) LiveNode {
	lv.ir.body.Pats.EachBindingOrFirst(pat, func(occ bir.BindingOcc) {
		ln := lv.ir.liveNodeOfPat(occ.Pat)
		v := lv.ir.variableOf(occ.Binding)
		lv.initFromSucc(ln, succ)
		lv.define(ln, v)
		succ = ln
	})
	return succ
}

func (lv *liveness) propagateLoop(id bir.ExprID, succ LiveNode) LiveNode {
	data, _ := lv.ir.body.Exprs.Loop(id)
	ln := lv.ir.liveNodeOfExpr(id)
	lv.initEmpty(ln, succ)

	// Targets are registered before the body walk: break flows to the
	// loop's successor, continue back to the loop node.
	lv.breakLN[id] = succ
	lv.contLN[id] = ln

	bodyLN := lv.propagateExpr(data.Body, ln)
	first := true
	for iter := 1; lv.mergeFromSucc(ln, bodyLN, first); iter++ {
		first = false
		lv.traceNode("fixpoint", func() string {
			return fmt.Sprintf("loop e%d iteration %d", uint32(id), iter)
		})
		if again := lv.propagateExpr(data.Body, ln); again != bodyLN {
			panic(fmt.Errorf("body %q: loop e%d entry changed between iterations: %s != %s",
				lv.ir.body.Name, uint32(id), again, bodyLN))
		}
	}
	return bodyLN
}

// writePlace applies the access to a bare-variable place. Non-variable
// places are not tracked as wholes; their parts are handled by
// propagatePlaceComponents.
func (lv *liveness) writePlace(place bir.ExprID, succ LiveNode, bits uint32) LiveNode {
	if data, ok := lv.ir.body.Exprs.VarRef(place); ok {
		if data.Binding.IsValid() {
			return lv.accessVar(place, data.Binding, succ, bits)
		}
	}
	return succ
}

// propagatePlaceComponents treats the parts of a non-variable place as
// ordinary reads: only whole-variable writes are tracked, so assigning
// through a projection conservatively reads the base.
func (lv *liveness) propagatePlaceComponents(place bir.ExprID, succ LiveNode) LiveNode {
	expr := lv.ir.expr(place)
	switch expr.Kind {
	case bir.ExprVarRef:
		return succ
	case bir.ExprField:
		data, _ := lv.ir.body.Exprs.Field(place)
		return lv.propagateExpr(data.Object, succ)
	default:
		return lv.propagateExpr(place, succ)
	}
}

func (lv *liveness) accessVar(id bir.ExprID, binding bir.BindingID, succ LiveNode, bits uint32) LiveNode {
	ln := lv.ir.liveNodeOfExpr(id)
	if bits != 0 {
		lv.initFromSucc(ln, succ)
		lv.acc(ln, lv.ir.variableOf(binding), bits)
	}
	return ln
}
