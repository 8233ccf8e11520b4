package birfile

import (
	"path/filepath"
	"testing"

	"ebb/internal/bir"
	"ebb/internal/source"
	"ebb/internal/testkit"
)

func TestLoadSnapshot(t *testing.T) {
	fs := source.NewFileSet()
	file, bag, err := Load(fs, filepath.Join("testdata", "loop.bir.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	if file == nil || len(file.Bodies) != 1 {
		t.Fatalf("expected one body, got %+v", file)
	}

	body := file.Bodies[0]
	if body.Name != "main" || body.Kind != bir.BodyFn {
		t.Fatalf("body = %s %s, want main fn", body.Name, body.Kind)
	}
	if body.Root != bir.ExprID(19) {
		t.Fatalf("root = %d, want 19", body.Root)
	}
	want := source.Span{File: file.FileID, Start: 0, End: 126}
	if body.Span != want {
		t.Fatalf("body span = %v, want %v", body.Span, want)
	}

	if len(body.Params) != 1 || body.Params[0].Pat != bir.PatID(1) {
		t.Fatalf("params = %+v", body.Params)
	}
	if body.Pats.Len() != 4 || body.Stmts.Len() != 6 || body.Exprs.Len() != 19 {
		t.Fatalf("arena sizes = %d pats, %d stmts, %d exprs",
			body.Pats.Len(), body.Stmts.Len(), body.Exprs.Len())
	}

	binding, ok := body.Pats.Binding(1)
	if !ok || binding.Name != "n" || binding.Binding != bir.BindingID(1) || !binding.Mut {
		t.Fatalf("pat 1 = %+v", binding)
	}
	if body.Pats.Get(4).Kind != bir.PatWild {
		t.Fatalf("pat 4 kind = %s, want wild", body.Pats.Get(4).Kind)
	}
	if file.BindingNames[1] != "n" || file.BindingNames[2] != "total" {
		t.Fatalf("binding names = %v", file.BindingNames)
	}

	let := body.Stmts.Get(1)
	if let.Kind != bir.StmtLet || let.Pat != bir.PatID(2) || let.Init != bir.ExprID(1) {
		t.Fatalf("stmt 1 = %+v", let)
	}

	brk, ok := body.Exprs.Break(3)
	if !ok || brk.Target != bir.ExprID(14) || brk.Value != bir.NoExprID {
		t.Fatalf("break = %+v", brk)
	}
	loop, ok := body.Exprs.Loop(14)
	if !ok || loop.Body != bir.ExprID(15) {
		t.Fatalf("loop = %+v", loop)
	}
	inc, ok := body.Exprs.AssignOp(8)
	if !ok || inc.Op != bir.BinAdd || inc.Place != bir.ExprID(6) || inc.Value != bir.ExprID(7) {
		t.Fatalf("assign-op = %+v", inc)
	}
	match, ok := body.Exprs.Match(5)
	if !ok || len(match.Arms) != 2 {
		t.Fatalf("match = %+v", match)
	}
	if arm := match.Arms[0]; arm.Pat != bir.PatID(3) || arm.Guard != bir.NoExprID || arm.Body != bir.ExprID(3) {
		t.Fatalf("arm 0 = %+v", arm)
	}
	call, ok := body.Exprs.Call(17)
	if !ok || call.Callee != bir.ExprID(16) || len(call.Args) != 1 || call.Args[0] != bir.ExprID(18) {
		t.Fatalf("call = %+v", call)
	}
	emit, ok := body.Exprs.VarRef(16)
	if !ok || emit.Name != "emit" || emit.Binding != bir.NoBindingID {
		t.Fatalf("callee = %+v", emit)
	}
}

func TestLoadRegistersEmbeddedSource(t *testing.T) {
	fs := source.NewFileSet()
	file, bag, err := Load(fs, filepath.Join("testdata", "loop.bir.json"))
	if err != nil || bag.Len() != 0 {
		t.Fatalf("Load: err=%v diags=%v", err, bag.Items())
	}

	f := fs.Get(file.FileID)
	if f == nil {
		t.Fatal("source file not registered")
	}
	// Relative document paths resolve against the snapshot's directory.
	if f.Path != "testdata/loop.sg" {
		t.Fatalf("path = %q, want testdata/loop.sg", f.Path)
	}
	if f.Flags&source.FileVirtual == 0 {
		t.Fatal("embedded source should be registered virtual")
	}
	if len(f.Content) != 126+1 {
		t.Fatalf("content length = %d, want 127", len(f.Content))
	}

	start, end := fs.Resolve(source.Span{File: file.FileID, Start: 8, End: 9})
	if start != (source.LineCol{Line: 1, Col: 9}) || end != (source.LineCol{Line: 1, Col: 10}) {
		t.Fatalf("param position = %v..%v, want 1:9..1:10", start, end)
	}
	start, end = fs.Resolve(source.Span{File: file.FileID, Start: 79, End: 84})
	if start != (source.LineCol{Line: 5, Col: 5}) || end != (source.LineCol{Line: 5, Col: 10}) {
		t.Fatalf("place position = %v..%v, want 5:5..5:10", start, end)
	}

	if err := testkit.CheckSpanInvariants(file, f); err != nil {
		t.Fatalf("span invariants: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	fs := source.NewFileSet()
	file, _, err := Load(fs, filepath.Join("testdata", "absent.bir.json"))
	if err == nil {
		t.Fatal("expected an error for a missing snapshot")
	}
	if file != nil {
		t.Fatalf("file = %+v, want nil", file)
	}
}
