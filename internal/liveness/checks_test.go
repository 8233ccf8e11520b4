package liveness

import (
	"testing"

	"ebb/internal/bir"
	"ebb/internal/diag"
)

func TestUninitializedThenAssigned(t *testing.T) {
	f := build()
	fn := f.fn("f")
	x := f.binding("x")
	xPat := fn.bind("x", x)
	letX := fn.let(xPat, bir.NoExprID)
	place := fn.read("x", x)
	fn.root(fn.block(bir.NoExprID, letX, fn.stmt(fn.assign(place, fn.lit("1")))))

	_, bag := runCheck(t, f, Options{})
	wantMessages(t, bag,
		"variable `x` is assigned to, but never used",
		"value assigned to `x` is never read",
	)

	items := bag.Items()
	if items[0].Primary != fn.patSpan(xPat) {
		t.Fatalf("first report anchored at %v, want the declaration", items[0].Primary)
	}
	if len(items[0].Fixes) != 0 {
		t.Fatal("assigned-but-never-used carries no rewrite")
	}
	wantNote := diag.Note{Msg: "consider using `_x` instead"}
	if len(items[0].Notes) != 1 || items[0].Notes[0] != wantNote {
		t.Fatalf("got notes %+v", items[0].Notes)
	}
	if items[1].Primary != fn.exprSpan(place) {
		t.Fatalf("second report anchored at %v, want the assignment target", items[1].Primary)
	}
	wantNote = diag.Note{Msg: "maybe it is overwritten before being read?"}
	if len(items[1].Notes) != 1 || items[1].Notes[0] != wantNote {
		t.Fatalf("got notes %+v", items[1].Notes)
	}
}

func TestShadowedBindingReportedOnce(t *testing.T) {
	f := build()
	fn := f.fn("f")
	x1 := f.binding("x")
	x2 := f.binding("x")
	p1 := fn.bind("x", x1)
	p2 := fn.bind("x", x2)
	let1 := fn.let(p1, fn.lit("1"))
	let2 := fn.let(p2, fn.lit("2"))
	use := fn.call(fn.item("println"), fn.read("x", x2))
	fn.root(fn.block(bir.NoExprID, let1, let2, fn.stmt(use)))

	// The first binding is initialized but shadowed before any use; only the
	// plain unused report fires, anchored at the first binding.
	_, bag := runCheck(t, f, Options{})
	wantMessages(t, bag, "unused variable: `x`")

	it := bag.Items()[0]
	if it.Primary != fn.patSpan(p1) {
		t.Fatalf("report anchored at %v, want the shadowed binding", it.Primary)
	}
	if len(it.Fixes) != 1 {
		t.Fatalf("got %d fixes, want 1", len(it.Fixes))
	}
	fix := it.Fixes[0]
	if fix.ID != "liveness.underscore-prefix" {
		t.Fatalf("got fix %q", fix.ID)
	}
	want := diag.TextEdit{Span: fn.patSpan(p1), NewText: "_x", OldText: "x"}
	if len(fix.Edits) != 1 || fix.Edits[0] != want {
		t.Fatalf("got edits %+v", fix.Edits)
	}
}

func TestInitializedButNeverUsed(t *testing.T) {
	f := build()
	fn := f.fn("f")
	x := f.binding("x")
	letX := fn.let(fn.bind("x", x), fn.call(fn.item("compute")))
	fn.root(fn.block(bir.NoExprID, letX, fn.stmt(fn.ret(fn.lit("5")))))

	// A variable that is never used gets the unused report even when its
	// declaration carries an initializer; the dead-store report is reserved
	// for stores to variables that are used somewhere.
	_, bag := runCheck(t, f, Options{})
	wantMessages(t, bag, "unused variable: `x`")
}

func TestDeadStoreAfterLastRead(t *testing.T) {
	f := build()
	fn := f.fn("f")
	x := f.binding("x")
	fn.param("x", x)
	use := fn.call(fn.item("sink"), fn.read("x", x))
	place := fn.read("x", x)
	fn.root(fn.block(bir.NoExprID, fn.stmt(use), fn.stmt(fn.assign(place, fn.lit("1")))))

	_, bag := runCheck(t, f, Options{})
	wantMessages(t, bag, "value assigned to `x` is never read")
	if got := bag.Items()[0].Primary; got != fn.exprSpan(place) {
		t.Fatalf("report anchored at %v, want the assignment target", got)
	}
}

func TestOrPatternSingleReport(t *testing.T) {
	f := build()
	fn := f.fn("f")
	c := f.binding("c")
	y := f.binding("y")
	fn.param("c", c)
	alt1 := fn.bind("y", y)
	alt2 := fn.bind("y", y)
	m := fn.match(fn.read("c", c), fn.arm(fn.orPat(alt1, alt2), fn.lit("0")))
	fn.root(fn.block(m))

	_, bag := runCheck(t, f, Options{})
	wantMessages(t, bag, "unused variable: `y`")

	it := bag.Items()[0]
	if it.Primary != fn.patSpan(alt1) {
		t.Fatalf("report anchored at %v, want the first alternative", it.Primary)
	}
	wantNote := diag.Note{Span: fn.patSpan(alt2), Msg: "also bound here"}
	if len(it.Notes) != 1 || it.Notes[0] != wantNote {
		t.Fatalf("got notes %+v", it.Notes)
	}
	if len(it.Fixes) != 1 {
		t.Fatalf("got %d fixes, want 1", len(it.Fixes))
	}
	fix := it.Fixes[0]
	if fix.ID != "liveness.underscore-prefix" || !fix.IsPreferred || fix.Applicability != diag.FixApplicabilityAlwaysSafe {
		t.Fatalf("got fix %+v", fix)
	}
	wantEdits := []diag.TextEdit{
		{Span: fn.patSpan(alt1), NewText: "_y", OldText: "y"},
		{Span: fn.patSpan(alt2), NewText: "_y", OldText: "y"},
	}
	if len(fix.Edits) != 2 || fix.Edits[0] != wantEdits[0] || fix.Edits[1] != wantEdits[1] {
		t.Fatalf("got edits %+v", fix.Edits)
	}
}

func TestShorthandFieldFix(t *testing.T) {
	f := build()
	fn := f.fn("f")
	c := f.binding("c")
	x := f.binding("x")
	fn.param("c", c)
	bx := fn.bind("x", x)
	sp := fn.structPat("Point", fn.fieldPat("x", bx, true))
	m := fn.match(fn.read("c", c), fn.arm(sp, fn.lit("0")))
	fn.root(fn.block(m))

	_, bag := runCheck(t, f, Options{})
	wantMessages(t, bag, "unused variable: `x`")

	fixes := bag.Items()[0].Fixes
	if len(fixes) != 1 {
		t.Fatalf("got %d fixes, want 1", len(fixes))
	}
	fix := fixes[0]
	if fix.ID != "liveness.ignore-field" || fix.Title != "try ignoring the field" {
		t.Fatalf("got fix %q (%q)", fix.ID, fix.Title)
	}
	want := diag.TextEdit{Span: fn.patSpan(bx), NewText: "x: _", OldText: "x"}
	if len(fix.Edits) != 1 || fix.Edits[0] != want {
		t.Fatalf("got edits %+v", fix.Edits)
	}
}

func TestWarningsGating(t *testing.T) {
	for _, tc := range []struct {
		name     string
		warnings Warnings
		want     []string
	}{
		{
			name:     "both",
			warnings: Warnings{Unused: true, DeadStore: true, AllowPrefix: "_"},
			want: []string{
				"variable `x` is assigned to, but never used",
				"value assigned to `x` is never read",
			},
		},
		{
			name:     "dead-store only",
			warnings: Warnings{DeadStore: true, AllowPrefix: "_"},
			want:     []string{"value assigned to `x` is never read"},
		},
		{
			name:     "unused only",
			warnings: Warnings{Unused: true, AllowPrefix: "_"},
			want:     []string{"variable `x` is assigned to, but never used"},
		},
		{
			name:     "none",
			warnings: Warnings{AllowPrefix: "_"},
			want:     nil,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := build()
			fn := f.fn("f")
			x := f.binding("x")
			letX := fn.let(fn.bind("x", x), bir.NoExprID)
			fn.root(fn.block(bir.NoExprID, letX, fn.stmt(fn.assign(fn.read("x", x), fn.lit("1")))))

			_, bag := runCheck(t, f, Options{Warnings: &tc.warnings})
			wantMessages(t, bag, tc.want...)
		})
	}
}

func TestAllowPrefixSkipsReports(t *testing.T) {
	t.Run("default underscore", func(t *testing.T) {
		f := build()
		fn := f.fn("f")
		x := f.binding("_x")
		fn.root(fn.block(bir.NoExprID, fn.let(fn.bind("_x", x), fn.lit("1"))))

		_, bag := runCheck(t, f, Options{})
		wantMessages(t, bag)
	})
	t.Run("empty prefix warns", func(t *testing.T) {
		f := build()
		fn := f.fn("f")
		x := f.binding("_x")
		fn.root(fn.block(bir.NoExprID, fn.let(fn.bind("_x", x), fn.lit("1"))))

		_, bag := runCheck(t, f, Options{Warnings: &Warnings{Unused: true, DeadStore: true}})
		wantMessages(t, bag, "unused variable: `_x`")
	})
}

func TestSelfParamNeverReported(t *testing.T) {
	f := build()
	fn := f.fn("method")
	self := f.binding("self")
	y := f.binding("y")
	fn.param("self", self)
	fn.param("y", y)
	fn.root(fn.block(bir.NoExprID))

	_, bag := runCheck(t, f, Options{})
	wantMessages(t, bag, "unused variable: `y`")
}

func TestCapturedValueNeverRead(t *testing.T) {
	f := build()
	outer := f.fn("f")
	inner := f.addBody("f::closure", bir.BodyClosure)
	x := f.binding("x")
	outer.root(outer.block(outer.closure(inner.id), outer.let(outer.bind("x", x), outer.lit("0"))))
	inner.capture("x", x, bir.CaptureByValue)
	inner.root(inner.block(inner.read("x", x), inner.stmt(inner.assign(inner.read("x", x), inner.lit("1")))))

	// The captured value is overwritten before the first read, so the
	// capture itself transported a value nobody looked at.
	_, bag := runCheck(t, f, Options{})
	wantMessages(t, bag, "value captured by `x` is never read")

	it := bag.Items()[0]
	if it.Code != diag.LivUnusedCapture {
		t.Fatalf("got code %s", it.Code.ID())
	}
	wantNote := diag.Note{Msg: "did you mean to capture by reference instead?"}
	if len(it.Notes) != 1 || it.Notes[0] != wantNote {
		t.Fatalf("got notes %+v", it.Notes)
	}
}

func TestCapturedValueNeverUsed(t *testing.T) {
	f := build()
	outer := f.fn("f")
	inner := f.addBody("f::closure", bir.BodyClosure)
	x := f.binding("x")
	outer.root(outer.block(outer.closure(inner.id), outer.let(outer.bind("x", x), outer.lit("0"))))
	inner.capture("x", x, bir.CaptureByValue)
	inner.root(inner.lit("0"))

	_, bag := runCheck(t, f, Options{})
	wantMessages(t, bag, "unused variable: `x`")

	it := bag.Items()[0]
	if it.Code != diag.LivUnusedCapture {
		t.Fatalf("got code %s", it.Code.ID())
	}
	wantNote := diag.Note{Msg: "did you mean to capture by reference instead?"}
	if len(it.Notes) != 1 || it.Notes[0] != wantNote {
		t.Fatalf("got notes %+v", it.Notes)
	}
}

func TestOverloadedCompoundAssignment(t *testing.T) {
	f := build()
	fn := f.fn("f")
	x := f.binding("x")
	fn.param("x", x)
	op := fn.assignOp(bir.BinAdd, fn.read("x", x), fn.lit("1"))
	fn.body.Overloaded[op] = true
	fn.root(fn.block(bir.NoExprID, fn.stmt(op)))

	// An overloaded `+=` is a method call: the target is genuinely read and
	// nothing is overwritten.
	_, bag := runCheck(t, f, Options{})
	wantMessages(t, bag)
}

func TestAssignThroughProjectionReadsBase(t *testing.T) {
	f := build()
	fn := f.fn("f")
	p := f.binding("p")
	fn.param("p", p)
	asg := fn.assign(fn.field(fn.read("p", p), "name"), fn.lit("1"))
	fn.root(fn.block(bir.NoExprID, fn.stmt(asg)))

	// Only whole-variable stores are tracked; writing through a field keeps
	// the base alive and is never a dead store.
	_, bag := runCheck(t, f, Options{})
	wantMessages(t, bag)
}
