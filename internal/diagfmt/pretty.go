package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"ebb/internal/diag"
	"ebb/internal/source"
)

// Pretty renders diagnostics for humans, one block per entry:
//
//	<path>:<line>:<col>: <SEVERITY>[<CODE>]: <message>
//	    3 | let total = 0;
//	      |     ^~~~~
//	  note: <path>:<line>:<col>: <message>
//	  fix #1: <title> [always-safe] id=<id>
//
// The bag prints in its current order; callers sort it first. Context lines
// and carets appear only for files whose content is registered. Color is
// applied through fatih/color, so the global NoColor switch still wins.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	pal := newPalette(opts.Color)
	items := bag.Items()
	for i := range items {
		if i > 0 {
			fmt.Fprintln(w)
		}
		printDiagnostic(w, fs, &items[i], opts, pal)
	}
}

type palette struct {
	enabled bool
	errC    *color.Color
	warnC   *color.Color
	infoC   *color.Color
	caretC  *color.Color
}

func newPalette(enabled bool) palette {
	return palette{
		enabled: enabled,
		errC:    color.New(color.FgRed, color.Bold),
		warnC:   color.New(color.FgYellow, color.Bold),
		infoC:   color.New(color.FgCyan, color.Bold),
		caretC:  color.New(color.FgGreen, color.Bold),
	}
}

func (p palette) sev(s diag.Severity) string {
	if !p.enabled {
		return s.String()
	}
	switch s {
	case diag.SevError:
		return p.errC.Sprint(s.String())
	case diag.SevWarning:
		return p.warnC.Sprint(s.String())
	default:
		return p.infoC.Sprint(s.String())
	}
}

func (p palette) caret(s string) string {
	if !p.enabled {
		return s
	}
	return p.caretC.Sprint(s)
}

func printDiagnostic(w io.Writer, fs *source.FileSet, d *diag.Diagnostic, opts PrettyOpts, pal palette) {
	fmt.Fprintf(w, "%s: %s[%s]: %s\n",
		formatLocation(fs, d.Primary, opts.PathMode), pal.sev(d.Severity), d.Code.ID(), d.Message)
	printContext(w, fs, d.Primary, opts, pal)

	if opts.ShowNotes {
		for _, note := range d.Notes {
			if note.Span == (source.Span{}) {
				fmt.Fprintf(w, "  note: %s\n", note.Msg)
				continue
			}
			fmt.Fprintf(w, "  note: %s: %s\n", formatLocation(fs, note.Span, opts.PathMode), note.Msg)
		}
	}
	if opts.ShowFixes {
		for i := range d.Fixes {
			printFix(w, fs, i, &d.Fixes[i], opts)
		}
	}
}

// formatLocation renders `path:line:col`. Spans pointing at no registered
// file come out as "-" so unanchored diagnostics still print.
func formatLocation(fs *source.FileSet, span source.Span, mode PathMode) string {
	f := fs.Get(span.File)
	if f == nil {
		return "-"
	}
	start, _ := fs.Resolve(span)
	return fmt.Sprintf("%s:%d:%d", displayPath(f, fs, mode), start.Line, start.Col)
}

func displayPath(f *source.File, fs *source.FileSet, mode PathMode) string {
	switch mode {
	case PathModeAbsolute:
		return f.FormatPath("absolute", "")
	case PathModeRelative:
		return f.FormatPath("relative", fs.BaseDir())
	case PathModeBasename:
		return f.FormatPath("basename", "")
	default:
		return f.FormatPath("auto", "")
	}
}

func printContext(w io.Writer, fs *source.FileSet, span source.Span, opts PrettyOpts, pal palette) {
	f := fs.Get(span.File)
	if f == nil || len(f.Content) == 0 {
		return
	}
	start, end := fs.Resolve(span)

	var ctx uint32
	if opts.Context > 0 {
		ctx = uint32(opts.Context)
	}
	first := uint32(1)
	if start.Line > ctx {
		first = start.Line - ctx
	}
	last := start.Line + ctx
	if lineCount := uint32(len(f.LineIdx)) + 1; last > lineCount {
		last = lineCount
	}

	gutter := len(fmt.Sprintf("%d", last))
	for n := first; n <= last; n++ {
		fmt.Fprintf(w, "  %*d | %s\n", gutter, n, expandTabs(f.GetLine(n)))
		if n != start.Line {
			continue
		}
		fmt.Fprintf(w, "  %*s | %s%s\n", gutter, "",
			strings.Repeat(" ", caretPad(f, start)),
			pal.caret(caretMarker(f, start, end)))
	}
}

// caretPad measures the display width of the line prefix before the span.
func caretPad(f *source.File, start source.LineCol) int {
	line := f.GetLine(start.Line)
	i := int(start.Col) - 1
	if i > len(line) {
		i = len(line)
	}
	return runewidth.StringWidth(expandTabs(line[:i]))
}

// caretMarker underlines the marked text: `^` on the first column, `~` for
// the rest. Multi-line spans mark to the end of their first line.
func caretMarker(f *source.File, start, end source.LineCol) string {
	line := f.GetLine(start.Line)
	from := int(start.Col) - 1
	if from > len(line) {
		from = len(line)
	}
	to := len(line)
	if end.Line == start.Line {
		to = int(end.Col) - 1
		if to > len(line) {
			to = len(line)
		}
	}
	if to < from {
		to = from
	}
	width := runewidth.StringWidth(expandTabs(line[from:to]))
	if width < 1 {
		return "^"
	}
	return "^" + strings.Repeat("~", width-1)
}

// expandTabs keeps the caret column aligned: tabs have no fixed display
// width, so the printed line and the measured prefix both use four spaces.
func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}

func printFix(w io.Writer, fs *source.FileSet, idx int, fix *diag.Fix, opts PrettyOpts) {
	fmt.Fprintf(w, "  fix #%d: %s [%s]", idx+1, fix.Title, fix.Applicability)
	if fix.IsPreferred {
		fmt.Fprint(w, " preferred")
	}
	if fix.ID != "" {
		fmt.Fprintf(w, " id=%s", fix.ID)
	}
	fmt.Fprintln(w)

	for i := range fix.Edits {
		edit := &fix.Edits[i]
		fmt.Fprintf(w, "    apply=%q at %s\n", edit.NewText, formatLocation(fs, edit.Span, opts.PathMode))
		if !opts.ShowPreview {
			continue
		}
		preview, err := buildEditPreview(fs, *edit)
		if err != nil {
			continue
		}
		fmt.Fprintln(w, "    preview:")
		for _, line := range preview.before {
			fmt.Fprintf(w, "      - %s\n", line)
		}
		for _, line := range preview.after {
			fmt.Fprintf(w, "      + %s\n", line)
		}
	}
}
