package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"ebb/internal/diag"
	"ebb/internal/source"
)

func TestPathModes(t *testing.T) {
	fs := source.NewFileSet()
	content := []byte("let shadow = 1;\n")
	fileID := fs.AddVirtual("/home/user/project/src/test.sg", content)
	fs.SetBaseDir("/home/user/project")

	bag := diag.NewBag(10)
	bag.Add(diag.New(
		diag.SevError,
		diag.DocBadNodeKind,
		source.Span{File: fileID, Start: 4, End: 10},
		"expression kind `spawn` is not recognized",
	))

	tests := []struct {
		name     string
		mode     PathMode
		contains string
	}{
		{"Absolute path", PathModeAbsolute, "/home/user/project/src/test.sg"},
		{"Relative path", PathModeRelative, "src/test.sg"},
		{"Basename only", PathModeBasename, "test.sg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Pretty(&buf, bag, fs, PrettyOpts{Context: 1, PathMode: tt.mode})
			output := buf.String()

			if !strings.Contains(output, tt.contains) {
				t.Errorf("expected output to contain %q, got:\n%s", tt.contains, output)
			}
			if !strings.Contains(output, "ERROR") {
				t.Error("expected ERROR in output")
			}
			if !strings.Contains(output, "DOC1004") {
				t.Error("expected DOC1004 code in output")
			}
			if !strings.Contains(output, "is not recognized") {
				t.Error("expected the message in output")
			}
		})
	}
}

func TestPathModeAuto(t *testing.T) {
	fs := source.NewFileSet()

	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{"short path stays as is", "test.sg", "test.sg"},
		{
			"long absolute path shortens to basename",
			"/very/long/absolute/path/to/some/nested/directory/file.sg",
			"file.sg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fileID := fs.AddVirtual(tt.path, []byte("let x = 42\n"))

			bag := diag.NewBag(10)
			bag.Add(diag.New(
				diag.SevWarning,
				diag.LivUnusedVariable,
				source.Span{File: fileID, Start: 4, End: 5},
				"unused variable `x`",
			))

			var buf bytes.Buffer
			Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeAuto})

			if output := buf.String(); !strings.Contains(output, tt.expected) {
				t.Errorf("expected output to contain %q, got:\n%s", tt.expected, output)
			}
		})
	}
}

func TestPrettyCaret(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("demo.sg", []byte("let total = 0;\n"))

	t.Run("span underline", func(t *testing.T) {
		bag := diag.NewBag(2)
		bag.Add(diag.New(
			diag.SevWarning,
			diag.LivUnusedVariable,
			source.Span{File: fileID, Start: 4, End: 9},
			"unused variable `total`",
		))

		var buf bytes.Buffer
		Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename})
		output := buf.String()

		if !strings.Contains(output, "demo.sg:1:5: WARNING[LIV3001]: unused variable `total`") {
			t.Fatalf("unexpected header, got:\n%s", output)
		}
		if !strings.Contains(output, "  1 | let total = 0;") {
			t.Fatalf("expected source line with gutter, got:\n%s", output)
		}
		if !strings.Contains(output, "|     ^~~~~\n") {
			t.Fatalf("expected caret under `total`, got:\n%s", output)
		}
	})

	t.Run("zero-width span marks a single column", func(t *testing.T) {
		bag := diag.NewBag(2)
		bag.Add(diag.New(
			diag.SevWarning,
			diag.LivDeadAssign,
			source.Span{File: fileID, Start: 4, End: 4},
			"value assigned to `total` is never read",
		))

		var buf bytes.Buffer
		Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename})

		if output := buf.String(); !strings.Contains(output, "|     ^\n") {
			t.Fatalf("expected single-column caret, got:\n%s", output)
		}
	})

	t.Run("wide runes keep alignment", func(t *testing.T) {
		// 変数 is two double-width runes: six bytes, four display columns.
		wideID := fs.AddVirtual("wide.sg", []byte("let 変数 = 1;\n"))

		bag := diag.NewBag(2)
		bag.Add(diag.New(
			diag.SevWarning,
			diag.LivUnusedVariable,
			source.Span{File: wideID, Start: 4, End: 10},
			"unused variable `変数`",
		))

		var buf bytes.Buffer
		Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename})

		if output := buf.String(); !strings.Contains(output, "|     ^~~~\n") {
			t.Fatalf("expected four-column caret for two wide runes, got:\n%s", output)
		}
	})
}

func TestPrettyNotesAndFixes(t *testing.T) {
	fs := source.NewFileSet()
	content := []byte("let result = 42;\n")
	fileID := fs.AddVirtual("test.sg", content)

	primary := source.Span{File: fileID, Start: 4, End: 10}
	d := diag.New(diag.SevWarning, diag.LivUnusedVariable, primary, "unused variable `result`")
	d = d.WithNote(source.Span{File: fileID, Start: 11, End: 12}, "value computed here")
	d = d.WithNote(source.Span{}, "three bodies analyzed")
	d = d.WithFix("rename `result` to `_result`", diag.TextEdit{
		Span:    primary,
		NewText: "_result",
		OldText: "result",
	})
	d = d.WithFixSuggestion(diag.Fix{
		ID:            "liv3001-remove-let",
		Title:         "remove the declaration",
		Applicability: diag.FixApplicabilityMaybeIncorrect,
	})

	bag := diag.NewBag(4)
	bag.Add(d)

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{
		PathMode:  PathModeBasename,
		ShowNotes: true,
		ShowFixes: true,
	})
	output := buf.String()

	if !strings.Contains(output, "note: test.sg:1:12: value computed here") {
		t.Fatalf("expected anchored note with location, got:\n%s", output)
	}
	if !strings.Contains(output, "note: three bodies analyzed") {
		t.Fatalf("expected unanchored note without location, got:\n%s", output)
	}
	if !strings.Contains(output, "fix #1: rename `result` to `_result` [always-safe]") {
		t.Fatalf("expected first fix entry, got:\n%s", output)
	}
	if !strings.Contains(output, `apply="_result"`) {
		t.Fatalf("expected fix edit apply line, got:\n%s", output)
	}
	if !strings.Contains(output, "fix #2: remove the declaration [maybe-incorrect] id=liv3001-remove-let") {
		t.Fatalf("expected second fix with id, got:\n%s", output)
	}
}

func TestPrettyFixPreview(t *testing.T) {
	fs := source.NewFileSet()
	content := []byte("let a = 42 // missing semicolon")
	fileID := fs.AddVirtual("example.sg", content)

	insertSpan := source.Span{File: fileID, Start: 10, End: 10}
	d := diag.New(diag.SevWarning, diag.DocInfo, insertSpan, "missing semicolon")
	d = d.WithFix("insert semicolon", diag.TextEdit{Span: insertSpan, NewText: ";"})

	bag := diag.NewBag(2)
	bag.Add(d)

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{
		PathMode:    PathModeBasename,
		ShowFixes:   true,
		ShowPreview: true,
	})
	output := buf.String()

	if !strings.Contains(output, "preview:") {
		t.Fatalf("expected preview header, got:\n%s", output)
	}
	if !strings.Contains(output, "- let a = 42 // missing semicolon") {
		t.Fatalf("expected before line in preview, got:\n%s", output)
	}
	if !strings.Contains(output, "+ let a = 42; // missing semicolon") {
		t.Fatalf("expected after line in preview, got:\n%s", output)
	}
}

func TestPrettySkipsContextWithoutContent(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("empty.sg", nil)

	bag := diag.NewBag(2)
	bag.Add(diag.New(
		diag.SevError,
		diag.DocMissingRoot,
		source.Span{File: fileID},
		"body `main` has no root expression",
	))

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{Context: 2, PathMode: PathModeBasename})
	output := buf.String()

	if !strings.Contains(output, "empty.sg:1:1: ERROR[DOC1010]") {
		t.Fatalf("expected header for empty file, got:\n%s", output)
	}
	if strings.Contains(output, " | ") {
		t.Fatalf("expected no context block for empty content, got:\n%s", output)
	}
}
