package bir

import (
	"strings"
	"testing"

	"ebb/internal/diag"
)

func validateFile(t *testing.T, f *File) *diag.Bag {
	t.Helper()
	bag := diag.NewBag(32)
	Validate(f, diag.BagReporter{Bag: bag})
	return bag
}

func hasCode(bag *diag.Bag, code diag.Code) bool {
	for _, d := range bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestValidateAcceptsWellFormedBody(t *testing.T) {
	b := NewBuilder(1)
	body, _ := b.NewBody("main", BodyFn, sp(0, 20))
	x := b.Param(body, sp(0, 1), "x", false)
	use := body.Exprs.NewVarRef(sp(2, 3), "x", x)
	body.Root = body.Exprs.NewBlock(sp(0, 20), []StmtID{body.Stmts.NewExpr(sp(2, 3), use)}, NoExprID, false)

	bag := validateFile(t, b.File())
	if bag.Len() != 0 {
		t.Fatalf("expected no diagnostics, got:\n%v", bag.Items())
	}
}

func TestValidateMissingRoot(t *testing.T) {
	b := NewBuilder(1)
	b.NewBody("main", BodyFn, sp(0, 20))

	bag := validateFile(t, b.File())
	if !hasCode(bag, diag.DocMissingRoot) {
		t.Fatal("expected missing-root diagnostic")
	}
}

func TestValidateOutOfRangeChild(t *testing.T) {
	b := NewBuilder(1)
	body, _ := b.NewBody("main", BodyFn, sp(0, 20))
	// Unary with a dangling operand reference.
	body.Root = body.Exprs.NewUnary(sp(0, 2), UnaryNeg, ExprID(99))

	bag := validateFile(t, b.File())
	if !hasCode(bag, diag.DocNodeOutOfRange) {
		t.Fatal("expected out-of-range diagnostic")
	}
}

func TestValidateRejectsSharedChild(t *testing.T) {
	b := NewBuilder(1)
	body, _ := b.NewBody("main", BodyFn, sp(0, 20))
	lit := body.Exprs.NewLit(sp(0, 1), "2")
	// The same literal wired as both operands.
	body.Root = body.Exprs.NewBinary(sp(0, 5), BinAdd, lit, lit)

	bag := validateFile(t, b.File())
	if !hasCode(bag, diag.DocNodeReused) {
		t.Fatal("expected node-reuse diagnostic")
	}
}

func TestValidateRejectsExprCycle(t *testing.T) {
	b := NewBuilder(1)
	body, _ := b.NewBody("main", BodyFn, sp(0, 20))
	blk := body.Exprs.NewBlock(sp(0, 20), nil, NoExprID, false)
	if data, ok := body.Exprs.Block(blk); ok {
		data.Tail = blk // the block is its own tail
	}
	body.Root = blk

	bag := validateFile(t, b.File())
	if !hasCode(bag, diag.DocNodeReused) {
		t.Fatal("expected node-reuse diagnostic for a cyclic block")
	}
}

func TestValidateRejectsSharedPattern(t *testing.T) {
	b := NewBuilder(1)
	body, _ := b.NewBody("main", BodyFn, sp(0, 20))
	x := b.NewBinding("x")
	pat := body.Pats.NewBinding(sp(0, 1), "x", x, false)
	s1 := body.Stmts.NewLet(sp(0, 2), pat, NoExprID)
	s2 := body.Stmts.NewLet(sp(4, 6), pat, NoExprID)
	body.Root = body.Exprs.NewBlock(sp(0, 20), []StmtID{s1, s2}, NoExprID, false)

	bag := validateFile(t, b.File())
	if !hasCode(bag, diag.DocNodeReused) {
		t.Fatal("expected node-reuse diagnostic for a shared pattern")
	}
}

func TestValidateUnknownBinding(t *testing.T) {
	b := NewBuilder(1)
	body, _ := b.NewBody("main", BodyFn, sp(0, 20))
	body.Root = body.Exprs.NewVarRef(sp(0, 1), "ghost", BindingID(7))

	bag := validateFile(t, b.File())
	if !hasCode(bag, diag.DocUnknownBinding) {
		t.Fatal("expected unknown-binding diagnostic")
	}
}

func TestValidateItemRefIsOpaque(t *testing.T) {
	b := NewBuilder(1)
	body, _ := b.NewBody("main", BodyFn, sp(0, 20))
	// NoBindingID marks a non-local item; that is not an error.
	body.Root = body.Exprs.NewVarRef(sp(0, 1), "println", NoBindingID)

	bag := validateFile(t, b.File())
	if bag.Len() != 0 {
		t.Fatalf("item references must validate, got:\n%v", bag.Items())
	}
}

func TestValidateBreakTargets(t *testing.T) {
	b := NewBuilder(1)
	body, _ := b.NewBody("main", BodyFn, sp(0, 20))
	lit := body.Exprs.NewLit(sp(0, 1), "1")
	brk := body.Exprs.NewBreak(sp(2, 7), lit, NoExprID) // target is not a loop
	body.Root = body.Exprs.NewBlock(sp(0, 20), []StmtID{body.Stmts.NewExpr(sp(2, 7), brk)}, NoExprID, false)

	bag := validateFile(t, b.File())
	if !hasCode(bag, diag.DocBadBreakTarget) {
		t.Fatal("expected bad break target diagnostic")
	}
}

func TestValidateBreakToLabeledBlock(t *testing.T) {
	b := NewBuilder(1)
	body, _ := b.NewBody("main", BodyFn, sp(0, 20))
	labeled := body.Exprs.NewBlock(sp(0, 10), nil, NoExprID, true)
	brk := body.Exprs.NewBreak(sp(2, 7), labeled, NoExprID)
	if data, ok := body.Exprs.Block(labeled); ok {
		data.Stmts = append(data.Stmts, body.Stmts.NewExpr(sp(2, 7), brk))
	}
	body.Root = labeled

	bag := validateFile(t, b.File())
	if bag.Len() != 0 {
		t.Fatalf("break to labeled block must validate, got:\n%v", bag.Items())
	}
}

func TestValidateContinueToBlockRejected(t *testing.T) {
	b := NewBuilder(1)
	body, _ := b.NewBody("main", BodyFn, sp(0, 20))
	labeled := body.Exprs.NewBlock(sp(0, 10), nil, NoExprID, true)
	cont := body.Exprs.NewContinue(sp(2, 7), labeled)
	if data, ok := body.Exprs.Block(labeled); ok {
		data.Stmts = append(data.Stmts, body.Stmts.NewExpr(sp(2, 7), cont))
	}
	body.Root = labeled

	bag := validateFile(t, b.File())
	if !hasCode(bag, diag.DocBadBreakTarget) {
		t.Fatal("continue to a block must be rejected")
	}
}

func TestValidateOrPatternBindingMismatch(t *testing.T) {
	b := NewBuilder(1)
	body, _ := b.NewBody("main", BodyFn, sp(0, 30))
	x := b.NewBinding("x")
	y := b.NewBinding("y")
	okArm := body.Pats.NewVariant(sp(0, 5), "Ok", []PatID{body.Pats.NewBinding(sp(3, 4), "x", x, false)})
	errArm := body.Pats.NewVariant(sp(8, 14), "Err", []PatID{body.Pats.NewBinding(sp(12, 13), "y", y, false)})
	or := body.Pats.NewOr(sp(0, 14), []PatID{okArm, errArm})

	scrut := body.Exprs.NewLit(sp(16, 17), "r")
	armBody := body.Exprs.NewBlock(sp(18, 19), nil, NoExprID, false)
	body.Root = body.Exprs.NewMatch(sp(0, 30), scrut, []MatchArm{{Pat: or, Body: armBody, Span: sp(0, 19)}})

	bag := validateFile(t, b.File())
	if !hasCode(bag, diag.DocOrPatternBindings) {
		t.Fatal("expected or-pattern mismatch diagnostic")
	}
}

func TestValidateSharedOrPatternBindingAccepted(t *testing.T) {
	b := NewBuilder(1)
	body, _ := b.NewBody("main", BodyFn, sp(0, 30))
	or, _ := buildOrPattern(b, body)

	scrut := body.Exprs.NewLit(sp(16, 17), "r")
	armBody := body.Exprs.NewBlock(sp(18, 19), nil, NoExprID, false)
	body.Root = body.Exprs.NewMatch(sp(0, 30), scrut, []MatchArm{{Pat: or, Body: armBody, Span: sp(0, 19)}})

	bag := validateFile(t, b.File())
	if bag.Len() != 0 {
		t.Fatalf("shared or-pattern bindings must validate, got:\n%v", bag.Items())
	}
}

func TestValidateUnreferencedPatternCycle(t *testing.T) {
	b := NewBuilder(1)
	body, _ := b.NewBody("main", BodyFn, sp(0, 30))
	body.Root = body.Exprs.NewLit(sp(0, 1), "1")

	// Two or-patterns referencing each other, reachable from no root. Each
	// node carries exactly one inbound reference, so ownership counting
	// alone never sees a second claim.
	wildA := body.Pats.NewWild(sp(2, 3))
	wildB := body.Pats.NewWild(sp(4, 5))
	first := body.Pats.NewOr(sp(2, 5), []PatID{NoPatID, wildA})
	second := body.Pats.NewOr(sp(2, 5), []PatID{first, wildB})
	if data, ok := body.Pats.Or(first); ok {
		data.Alts[0] = second
	}

	bag := validateFile(t, b.File())
	if bag.Len() != 0 {
		t.Fatalf("patterns outside the flow must not affect validation, got:\n%v", bag.Items())
	}
}

func TestValidateDuplicateBinding(t *testing.T) {
	b := NewBuilder(1)
	body, _ := b.NewBody("main", BodyFn, sp(0, 30))
	x := b.NewBinding("x")
	// The same binding declared by two unrelated let patterns.
	p1 := body.Pats.NewBinding(sp(0, 1), "x", x, false)
	p2 := body.Pats.NewBinding(sp(4, 5), "x", x, false)
	s1 := body.Stmts.NewLet(sp(0, 2), p1, NoExprID)
	s2 := body.Stmts.NewLet(sp(4, 6), p2, NoExprID)
	body.Root = body.Exprs.NewBlock(sp(0, 30), []StmtID{s1, s2}, NoExprID, false)

	bag := validateFile(t, b.File())
	if !hasCode(bag, diag.DocDuplicateBinding) {
		t.Fatal("expected duplicate-binding diagnostic")
	}
}

func TestValidateFlagTargets(t *testing.T) {
	b := NewBuilder(1)
	body, _ := b.NewBody("main", BodyFn, sp(0, 30))
	lit := body.Exprs.NewLit(sp(0, 1), "1")
	body.Root = lit
	body.Diverging[lit] = true

	bag := validateFile(t, b.File())
	if !hasCode(bag, diag.DocBadFlagTarget) {
		t.Fatal("expected bad flag target diagnostic")
	}
}

func TestValidateClosureBodyRef(t *testing.T) {
	b := NewBuilder(1)
	body, _ := b.NewBody("main", BodyFn, sp(0, 30))
	body.Root = body.Exprs.NewClosure(sp(0, 5), BodyID(9))

	bag := validateFile(t, b.File())
	if !hasCode(bag, diag.DocBadBodyRef) {
		t.Fatal("expected bad body ref diagnostic")
	}
}

func TestValidateCaptureBinding(t *testing.T) {
	b := NewBuilder(1)
	outer, _ := b.NewBody("main", BodyFn, sp(0, 30))
	x := b.Param(outer, sp(0, 1), "x", false)

	inner, innerID := b.NewBody("closure@1", BodyClosure, sp(5, 20))
	inner.Captures = append(inner.Captures, Capture{Binding: x, Name: "x", Mode: CaptureByValue, Span: sp(5, 6)})
	inner.Root = inner.Exprs.NewVarRef(sp(7, 8), "x", x)

	outer.Root = outer.Exprs.NewClosure(sp(5, 20), innerID)

	bag := validateFile(t, b.File())
	if bag.Len() != 0 {
		t.Fatalf("cross-body capture must validate, got:\n%v", bag.Items())
	}

	// An undeclared capture binding is rejected.
	inner.Captures[0].Binding = BindingID(99)
	bag = validateFile(t, b.File())
	if !hasCode(bag, diag.DocUnknownBinding) {
		t.Fatal("expected unknown capture binding diagnostic")
	}
	var found bool
	for _, d := range bag.Items() {
		if strings.Contains(d.Message, "capture") {
			found = true
		}
	}
	if !found {
		t.Fatal("capture diagnostic must mention the capture")
	}
}
