package liveness

import (
	"fmt"
	"io"
	"strings"

	"ebb/internal/source"
)

// writeDump renders one body's solved table: a header, one line per live
// node, then the variable table. Debugging aid only, not a stable surface.
func writeDump(w io.Writer, fs *source.FileSet, lv *liveness, entry LiveNode) {
	var b strings.Builder
	fmt.Fprintf(&b, "body `%s` entry %s\n", lv.ir.body.Name, entry)
	for i := uint32(1); i <= lv.ir.numNodes(); i++ {
		ln := LiveNode(i)
		info := lv.ir.node(ln)
		fmt.Fprintf(&b, "[%s of kind %s%s reads", ln, info.kind, atClause(fs, info.span))
		writeVars(&b, lv, ln, func(idx uint32) bool { return lv.table.getReader(idx).IsValid() })
		b.WriteString(" writes")
		writeVars(&b, lv, ln, func(idx uint32) bool { return lv.table.getWriter(idx).IsValid() })
		b.WriteString("  uses")
		writeVars(&b, lv, ln, func(idx uint32) bool { return lv.table.getUsed(idx) })
		fmt.Fprintf(&b, " precedes %s]\n", lv.succs[i-1])
	}
	for i := uint32(1); i <= lv.ir.numVars(); i++ {
		v := Variable(i)
		info := lv.ir.variable(v)
		fmt.Fprintf(&b, "%s = `%s` %s%s\n", v, info.name, info.kind, atClause(fs, info.span))
	}
	_, _ = io.WriteString(w, b.String())
}

func writeVars(b *strings.Builder, lv *liveness, ln LiveNode, test func(idx uint32) bool) {
	base := lv.rowBase(ln)
	for i := uint32(0); i < lv.ir.numVars(); i++ {
		if test(base + i) {
			fmt.Fprintf(b, " %s", Variable(i+1))
		}
	}
}

func atClause(fs *source.FileSet, span source.Span) string {
	if fs == nil || span == (source.Span{}) {
		return ""
	}
	file := fs.Get(span.File)
	if file == nil {
		return ""
	}
	start, _ := fs.Resolve(span)
	return fmt.Sprintf(" at %s:%d:%d", file.FormatPath("basename", ""), start.Line, start.Col)
}
