package liveness

import (
	"bytes"
	"testing"

	"ebb/internal/bir"
	"ebb/internal/source"
)

func TestDumpTable(t *testing.T) {
	f := build()
	fn := f.fn("f")
	x := f.binding("x")
	fn.param("x", x)
	fn.root(fn.block(fn.read("x", x)))

	var buf bytes.Buffer
	runCheck(t, f, Options{Dump: &buf})

	want := "body `f` entry ln2\n" +
		"[ln1 of kind VarDefNode reads writes  uses precedes ln-]\n" +
		"[ln2 of kind ExprNode reads v1 writes  uses v1 precedes ln4]\n" +
		"[ln3 of kind ClosureNode reads writes  uses precedes ln-]\n" +
		"[ln4 of kind ExitNode reads writes  uses precedes ln-]\n" +
		"v1 = `x` param\n"
	if got := buf.String(); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestDumpWithLocations(t *testing.T) {
	f := build()
	fn := f.fn("f")
	x := f.binding("x")
	fn.param("x", x)
	asg := fn.assign(fn.read("x", x), fn.lit("1"))
	fn.root(fn.block(bir.NoExprID, fn.stmt(asg)))

	fs := source.NewFileSet()
	fs.AddVirtual("demo/input.sg", bytes.Repeat([]byte("x"), 64))

	var buf bytes.Buffer
	Check(f.file, fs, Options{Dump: &buf})

	want := "body `f` entry ln2\n" +
		"[ln1 of kind VarDefNode at input.sg:1:3 reads writes  uses precedes ln-]\n" +
		"[ln2 of kind ExprNode at input.sg:1:5 reads writes v1  uses precedes ln4]\n" +
		"[ln3 of kind ClosureNode reads writes  uses precedes ln-]\n" +
		"[ln4 of kind ExitNode reads writes  uses precedes ln-]\n" +
		"v1 = `x` param at input.sg:1:3\n"
	if got := buf.String(); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}
