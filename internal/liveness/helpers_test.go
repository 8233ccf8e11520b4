package liveness

import (
	"fmt"
	"strings"
	"testing"

	"ebb/internal/bir"
	"ebb/internal/diag"
	"ebb/internal/source"
	"ebb/internal/trace"
)

// fileBuilder assembles a bir.File for tests. Bindings are file-scoped so
// closure bodies can capture bindings of the enclosing body; spans are carved
// sequentially out of a notional source file so every node has a distinct
// location and rename fixes see identifier-sized spans.
type fileBuilder struct {
	file     *bir.File
	bindings uint32
	off      uint32
}

func build() *fileBuilder {
	return &fileBuilder{file: bir.NewFile(0)}
}

func (f *fileBuilder) binding(name string) bir.BindingID {
	f.bindings++
	id := bir.BindingID(f.bindings)
	f.file.BindingNames[id] = name
	return id
}

func (f *fileBuilder) span(n uint32) source.Span {
	start := f.off
	f.off += n + 1
	return source.Span{Start: start, End: start + n}
}

func (f *fileBuilder) fn(name string) *bodyBuilder {
	return f.addBody(name, bir.BodyFn)
}

func (f *fileBuilder) addBody(name string, kind bir.BodyKind) *bodyBuilder {
	body := bir.NewBody(name, kind, f.span(uint32(len(name))))
	id := f.file.AddBody(body)
	return &bodyBuilder{f: f, id: id, body: body}
}

type bodyBuilder struct {
	f    *fileBuilder
	id   bir.BodyID
	body *bir.Body
}

func (b *bodyBuilder) lit(text string) bir.ExprID {
	return b.body.Exprs.NewLit(b.f.span(uint32(len(text))), text)
}

// read references a local binding.
func (b *bodyBuilder) read(name string, binding bir.BindingID) bir.ExprID {
	return b.body.Exprs.NewVarRef(b.f.span(uint32(len(name))), name, binding)
}

// item references a non-local name (fn, const); opaque to the analysis.
func (b *bodyBuilder) item(name string) bir.ExprID {
	return b.body.Exprs.NewVarRef(b.f.span(uint32(len(name))), name, bir.NoBindingID)
}

func (b *bodyBuilder) bind(name string, binding bir.BindingID) bir.PatID {
	return b.body.Pats.NewBinding(b.f.span(uint32(len(name))), name, binding, false)
}

func (b *bodyBuilder) let(pat bir.PatID, init bir.ExprID) bir.StmtID {
	return b.body.Stmts.NewLet(b.f.span(3), pat, init)
}

func (b *bodyBuilder) stmt(e bir.ExprID) bir.StmtID {
	return b.body.Stmts.NewExpr(b.f.span(1), e)
}

func (b *bodyBuilder) block(tail bir.ExprID, stmts ...bir.StmtID) bir.ExprID {
	return b.body.Exprs.NewBlock(b.f.span(2), stmts, tail, false)
}

func (b *bodyBuilder) param(name string, binding bir.BindingID) {
	b.paramPat(b.bind(name, binding))
}

func (b *bodyBuilder) paramPat(pat bir.PatID) {
	b.body.Params = append(b.body.Params, bir.Param{Pat: pat, Span: b.body.Pats.Get(pat).Span})
}

func (b *bodyBuilder) field(object bir.ExprID, name string) bir.ExprID {
	return b.body.Exprs.NewField(b.f.span(uint32(len(name))), object, name)
}

func (b *bodyBuilder) assign(place, value bir.ExprID) bir.ExprID {
	return b.body.Exprs.NewAssign(b.f.span(1), place, value)
}

func (b *bodyBuilder) assignOp(op bir.BinaryOp, place, value bir.ExprID) bir.ExprID {
	return b.body.Exprs.NewAssignOp(b.f.span(2), op, place, value)
}

func (b *bodyBuilder) binary(op bir.BinaryOp, left, right bir.ExprID) bir.ExprID {
	return b.body.Exprs.NewBinary(b.f.span(uint32(len(op.String()))), op, left, right)
}

func (b *bodyBuilder) call(callee bir.ExprID, args ...bir.ExprID) bir.ExprID {
	return b.body.Exprs.NewCall(b.f.span(2), callee, args)
}

// loopExpr allocates a loop before its body so break and continue inside can
// name it; wire the body in afterwards with setLoopBody.
func (b *bodyBuilder) loopExpr() bir.ExprID {
	return b.body.Exprs.NewLoop(b.f.span(4), bir.NoExprID)
}

func (b *bodyBuilder) setLoopBody(loop, body bir.ExprID) {
	data, ok := b.body.Exprs.Loop(loop)
	if !ok {
		panic("setLoopBody: not a loop")
	}
	data.Body = body
}

func (b *bodyBuilder) breakTo(target, value bir.ExprID) bir.ExprID {
	return b.body.Exprs.NewBreak(b.f.span(5), target, value)
}

func (b *bodyBuilder) continueTo(target bir.ExprID) bir.ExprID {
	return b.body.Exprs.NewContinue(b.f.span(8), target)
}

func (b *bodyBuilder) ret(value bir.ExprID) bir.ExprID {
	return b.body.Exprs.NewReturn(b.f.span(6), value)
}

func (b *bodyBuilder) yield(value bir.ExprID) bir.ExprID {
	return b.body.Exprs.NewYield(b.f.span(5), value)
}

func (b *bodyBuilder) match(scrutinee bir.ExprID, arms ...bir.MatchArm) bir.ExprID {
	return b.body.Exprs.NewMatch(b.f.span(5), scrutinee, arms)
}

func (b *bodyBuilder) arm(pat bir.PatID, body bir.ExprID) bir.MatchArm {
	return bir.MatchArm{Pat: pat, Body: body, Span: b.f.span(2)}
}

func (b *bodyBuilder) closure(nested bir.BodyID) bir.ExprID {
	return b.body.Exprs.NewClosure(b.f.span(2), nested)
}

func (b *bodyBuilder) wild() bir.PatID {
	return b.body.Pats.NewWild(b.f.span(1))
}

func (b *bodyBuilder) litPat(text string) bir.PatID {
	return b.body.Pats.NewLit(b.f.span(uint32(len(text))), text)
}

func (b *bodyBuilder) orPat(alts ...bir.PatID) bir.PatID {
	return b.body.Pats.NewOr(b.f.span(3), alts)
}

func (b *bodyBuilder) structPat(typeName string, fields ...bir.PatField) bir.PatID {
	return b.body.Pats.NewStruct(b.f.span(uint32(len(typeName))), typeName, fields)
}

func (b *bodyBuilder) fieldPat(name string, pat bir.PatID, shorthand bool) bir.PatField {
	return bir.PatField{Name: name, Pat: pat, Shorthand: shorthand, Span: b.f.span(uint32(len(name)))}
}

func (b *bodyBuilder) capture(name string, binding bir.BindingID, mode bir.CaptureMode) {
	b.body.Captures = append(b.body.Captures, bir.Capture{
		Binding: binding,
		Name:    name,
		Mode:    mode,
		Span:    b.f.span(uint32(len(name))),
	})
}

func (b *bodyBuilder) root(e bir.ExprID) {
	b.body.Root = e
}

func (b *bodyBuilder) patSpan(pat bir.PatID) source.Span {
	return b.body.Pats.Get(pat).Span
}

func (b *bodyBuilder) exprSpan(e bir.ExprID) source.Span {
	return b.body.Exprs.Get(e).Span
}

func runCheck(t *testing.T, f *fileBuilder, opts Options) (*Result, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag(64)
	opts.Reporter = diag.BagReporter{Bag: bag}
	res := Check(f.file, nil, opts)
	return res, bag
}

// wantMessages asserts the bag holds exactly the given messages in emission
// order.
func wantMessages(t *testing.T, bag *diag.Bag, want ...string) {
	t.Helper()
	items := bag.Items()
	if len(items) != len(want) {
		t.Fatalf("got %d diagnostics, want %d\ngot:\n%s", len(items), len(want), formatItems(items))
	}
	for i, msg := range want {
		if items[i].Message != msg {
			t.Fatalf("diagnostic %d: got %q, want %q\nall:\n%s", i, items[i].Message, msg, formatItems(items))
		}
	}
}

func formatItems(items []diag.Diagnostic) string {
	if len(items) == 0 {
		return "  (none)"
	}
	var b strings.Builder
	for _, d := range items {
		fmt.Fprintf(&b, "  %s %s %q at %s\n", d.Severity.Label(), d.Code.ID(), d.Message, d.Primary)
	}
	return b.String()
}

func bodyFacts(t *testing.T, res *Result, id bir.BodyID) *BodyFacts {
	t.Helper()
	facts := res.Facts(id)
	if facts == nil {
		t.Fatalf("no facts for body %d", id)
	}
	return facts
}

func mustVariable(t *testing.T, facts *BodyFacts, binding bir.BindingID) Variable {
	t.Helper()
	v, ok := facts.VariableOf(binding)
	if !ok {
		t.Fatalf("binding %d has no variable", binding)
	}
	return v
}

func mustDefNode(t *testing.T, facts *BodyFacts, pat bir.PatID) LiveNode {
	t.Helper()
	ln, ok := facts.DefNode(pat)
	if !ok {
		t.Fatalf("pattern %d has no definition node", pat)
	}
	return ln
}

// recordingTracer keeps every emitted event so tests can count fixed-point
// iterations and merge activity.
type recordingTracer struct {
	events []trace.Event
}

func (r *recordingTracer) Emit(ev *trace.Event) { r.events = append(r.events, *ev) }
func (r *recordingTracer) Flush() error         { return nil }
func (r *recordingTracer) Close() error         { return nil }
func (r *recordingTracer) Level() trace.Level   { return trace.LevelDebug }
func (r *recordingTracer) Enabled() bool        { return true }

func (r *recordingTracer) count(name string) int {
	n := 0
	for _, ev := range r.events {
		if ev.Name == name {
			n++
		}
	}
	return n
}
