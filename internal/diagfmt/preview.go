package diagfmt

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"ebb/internal/diag"
	"ebb/internal/source"
)

type editPreview struct {
	before []string
	after  []string
}

// buildEditPreview renders the lines an edit touches, before and after the
// replacement. The block covers whole lines so the diff reads naturally.
func buildEditPreview(fs *source.FileSet, edit diag.TextEdit) (editPreview, error) {
	if fs == nil {
		return editPreview{}, fmt.Errorf("nil FileSet")
	}
	f := fs.Get(edit.Span.File)
	if f == nil {
		return editPreview{}, fmt.Errorf("file %d not found in FileSet", edit.Span.File)
	}

	start, end := fs.Resolve(edit.Span)
	endLine := end.Line
	if endLine < start.Line {
		endLine = start.Line
	}

	blockStart := lineStartOffset(f, start.Line)
	blockEnd := lineEndOffset(f, endLine)
	if blockEnd < blockStart {
		blockEnd = blockStart
	}
	if edit.Span.Start < blockStart || edit.Span.End > blockEnd {
		return editPreview{}, fmt.Errorf("edit span [%d,%d) escapes its line block",
			edit.Span.Start, edit.Span.End)
	}

	original := f.Content[blockStart:blockEnd]
	after := make([]byte, 0, len(original)+len(edit.NewText))
	after = append(after, original[:edit.Span.Start-blockStart]...)
	after = append(after, edit.NewText...)
	after = append(after, original[edit.Span.End-blockStart:]...)

	return editPreview{
		before: splitPreviewLines(original),
		after:  splitPreviewLines(after),
	}, nil
}

// lineStartOffset returns the byte offset where the 1-based line begins.
func lineStartOffset(f *source.File, line uint32) uint32 {
	if line <= 1 {
		return 0
	}
	if idx := line - 2; int(idx) < len(f.LineIdx) {
		return f.LineIdx[idx] + 1
	}
	return contentLen(f)
}

// lineEndOffset returns the byte offset just past the line, newline included.
func lineEndOffset(f *source.File, line uint32) uint32 {
	if line == 0 {
		return 0
	}
	if idx := line - 1; int(idx) < len(f.LineIdx) {
		return f.LineIdx[idx] + 1
	}
	return contentLen(f)
}

func contentLen(f *source.File) uint32 {
	n, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		panic(fmt.Errorf("content size overflow: %w", err))
	}
	return n
}

func splitPreviewLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	return strings.Split(strings.TrimRight(string(content), "\n"), "\n")
}
