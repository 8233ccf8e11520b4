package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"ebb/internal/bir"
	"ebb/internal/source"
)

// CheckSpanInvariants runs a minimal set of span invariants on a decoded file:
// 1) every body span points at the file's source and stays within its bounds
// 2) every node span (exprs, stmts, pats, params, captures) does the same
// 3) every body's root, when set, references an expression the body owns
func CheckSpanInvariants(file *bir.File, sf *source.File) error {
	if file == nil || sf == nil {
		return fmt.Errorf("nil file or source")
	}
	if file.FileID != sf.ID {
		return fmt.Errorf("file resolves against id=%d, source has id=%d", file.FileID, sf.ID)
	}
	limit, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}

	for i, body := range file.Bodies {
		if err := checkBodySpans(body, sf.ID, limit); err != nil {
			return fmt.Errorf("body %d `%s`: %w", i+1, body.Name, err)
		}
	}
	return nil
}

func checkBodySpans(body *bir.Body, fileID source.FileID, limit uint32) error {
	if err := checkSpan(body.Span, fileID, limit); err != nil {
		return fmt.Errorf("body span: %w", err)
	}
	if body.Root != bir.NoExprID && body.Exprs.Get(body.Root) == nil {
		return fmt.Errorf("root %d is not in the expression arena", body.Root)
	}
	for i, p := range body.Params {
		if err := checkSpan(p.Span, fileID, limit); err != nil {
			return fmt.Errorf("param %d: %w", i, err)
		}
	}
	for i, c := range body.Captures {
		if err := checkSpan(c.Span, fileID, limit); err != nil {
			return fmt.Errorf("capture %d `%s`: %w", i, c.Name, err)
		}
	}
	for i, e := range body.Exprs.Arena.Slice() {
		if err := checkSpan(e.Span, fileID, limit); err != nil {
			return fmt.Errorf("expr %d (%s): %w", i+1, e.Kind, err)
		}
	}
	for i, s := range body.Stmts.Arena.Slice() {
		if err := checkSpan(s.Span, fileID, limit); err != nil {
			return fmt.Errorf("stmt %d (%s): %w", i+1, s.Kind, err)
		}
	}
	for i, p := range body.Pats.Arena.Slice() {
		if err := checkSpan(p.Span, fileID, limit); err != nil {
			return fmt.Errorf("pat %d (%s): %w", i+1, p.Kind, err)
		}
	}
	return nil
}

// checkSpan accepts zero-width spans: synthesized nodes carry them.
func checkSpan(sp source.Span, fileID source.FileID, limit uint32) error {
	if sp.File != fileID {
		return fmt.Errorf("span %v points at file %d, want %d", sp, sp.File, fileID)
	}
	if sp.Start > sp.End {
		return fmt.Errorf("span %v is inverted", sp)
	}
	if sp.End > limit {
		return fmt.Errorf("span %v ends beyond content length %d", sp, limit)
	}
	return nil
}
