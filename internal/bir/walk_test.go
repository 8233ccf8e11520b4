package bir

import (
	"testing"
)

// buildOrPattern constructs `Ok(x) | Err(x)` where both occurrences share
// one binding.
func buildOrPattern(b *Builder, body *Body) (PatID, BindingID) {
	x := b.NewBinding("x")
	okArm := body.Pats.NewVariant(sp(0, 5), "Ok", []PatID{body.Pats.NewBinding(sp(3, 4), "x", x, false)})
	errArm := body.Pats.NewVariant(sp(8, 14), "Err", []PatID{body.Pats.NewBinding(sp(12, 13), "x", x, false)})
	return body.Pats.NewOr(sp(0, 14), []PatID{okArm, errArm}), x
}

func TestEachBindingVisitsAllAlternatives(t *testing.T) {
	b := NewBuilder(1)
	body, _ := b.NewBody("f", BodyFn, sp(0, 20))
	or, x := buildOrPattern(b, body)

	var got []BindingOcc
	body.Pats.EachBinding(or, func(occ BindingOcc) {
		got = append(got, occ)
	})
	if len(got) != 2 {
		t.Fatalf("expected 2 occurrences, got %d", len(got))
	}
	for _, occ := range got {
		if occ.Binding != x || occ.Name != "x" {
			t.Fatalf("unexpected occurrence: %+v", occ)
		}
	}
	if got[0].Span == got[1].Span {
		t.Fatal("occurrences must carry their own spans")
	}
}

func TestEachBindingOrFirstVisitsCanonicalOnly(t *testing.T) {
	b := NewBuilder(1)
	body, _ := b.NewBody("f", BodyFn, sp(0, 20))
	or, _ := buildOrPattern(b, body)

	var count int
	body.Pats.EachBindingOrFirst(or, func(BindingOcc) {
		count++
	})
	if count != 1 {
		t.Fatalf("expected 1 canonical occurrence, got %d", count)
	}
}

func TestEachBindingShorthandFlag(t *testing.T) {
	b := NewBuilder(1)
	body, _ := b.NewBody("f", BodyFn, sp(0, 20))

	x := b.NewBinding("x")
	y := b.NewBinding("y")
	pat := body.Pats.NewStruct(sp(0, 12), "Point", []PatField{
		{Name: "x", Pat: body.Pats.NewBinding(sp(6, 7), "x", x, false), Shorthand: true, Span: sp(6, 7)},
		{Name: "y", Pat: body.Pats.NewBinding(sp(9, 10), "y", y, false), Shorthand: false, Span: sp(9, 10)},
	})

	byBinding := make(map[BindingID]bool)
	body.Pats.EachBinding(pat, func(occ BindingOcc) {
		byBinding[occ.Binding] = occ.Shorthand
	})
	if !byBinding[x] {
		t.Fatal("shorthand field occurrence must be flagged")
	}
	if byBinding[y] {
		t.Fatal("explicit field occurrence must not be flagged")
	}
}

func TestEachBindingDescendsSubPattern(t *testing.T) {
	b := NewBuilder(1)
	body, _ := b.NewBody("f", BodyFn, sp(0, 20))

	inner := b.NewBinding("inner")
	outer := b.NewBinding("outer")
	sub := body.Pats.NewTuple(sp(8, 14), []PatID{body.Pats.NewBinding(sp(9, 13), "inner", inner, false)})
	pat := body.Pats.NewBindingSub(sp(0, 14), "outer", outer, false, sub)

	var names []string
	body.Pats.EachBinding(pat, func(occ BindingOcc) {
		names = append(names, occ.Name)
	})
	if len(names) != 2 || names[0] != "outer" || names[1] != "inner" {
		t.Fatalf("expected pre-order [outer inner], got %v", names)
	}
}
