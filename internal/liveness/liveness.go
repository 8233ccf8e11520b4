package liveness

import (
	"fmt"
	"io"

	"ebb/internal/bir"
	"ebb/internal/diag"
	"ebb/internal/source"
	"ebb/internal/trace"
)

// Warnings selects which finding categories Check reports. The analysis
// itself always runs in full; gating only suppresses the reports.
type Warnings struct {
	// Unused covers bindings that are never read: unused variables,
	// parameters, and by-value captures.
	Unused bool
	// DeadStore covers values that are written but never read: dead
	// initializers and assignments, dead incoming parameter values, dead
	// by-value captures.
	DeadStore bool
	// AllowPrefix names the prefix that marks a binding as deliberately
	// unused. Empty disables the convention entirely.
	AllowPrefix string
}

// DefaultWarnings enables every category with the `_` prefix convention.
func DefaultWarnings() Warnings {
	return Warnings{Unused: true, DeadStore: true, AllowPrefix: "_"}
}

// Options configures one Check run.
type Options struct {
	Reporter diag.Reporter // diagnostics sink; nil skips the checks pass
	Tracer   trace.Tracer  // node-scope event stream; nil means off
	Dump     io.Writer     // when set, receives the live-node table per body
	Warnings *Warnings     // nil means DefaultWarnings
}

// Result holds the solved facts of every successfully analyzed body.
type Result struct {
	file  *bir.File
	facts map[bir.BodyID]*BodyFacts
	order []bir.BodyID
}

// Check analyzes every non-synthetic body of file in order and reports the
// findings through opts.Reporter. A body whose analysis hits an internal
// inconsistency is reported as a LivInternal error and dropped from the
// result; the remaining bodies are unaffected.
func Check(file *bir.File, fs *source.FileSet, opts Options) *Result {
	warnings := DefaultWarnings()
	if opts.Warnings != nil {
		warnings = *opts.Warnings
	}
	var rep diag.Reporter
	if opts.Reporter != nil {
		// Or-pattern alternatives produce identical reports; keep one.
		rep = diag.NewDedupReporter(opts.Reporter)
	}
	res := &Result{
		file:  file,
		facts: make(map[bir.BodyID]*BodyFacts),
	}
	for i, body := range file.Bodies {
		if body == nil || body.Synthetic {
			continue
		}
		id := bir.BodyID(i + 1)
		if facts := analyzeBody(file, body, fs, rep, warnings, opts); facts != nil {
			res.facts[id] = facts
			res.order = append(res.order, id)
		}
	}
	return res
}

// Bodies lists the analyzed bodies in file order.
func (r *Result) Bodies() []bir.BodyID {
	return r.order
}

// Facts returns the facts of one body, or nil when the body was synthetic,
// missing, or failed analysis.
func (r *Result) Facts(id bir.BodyID) *BodyFacts {
	return r.facts[id]
}

func analyzeBody(file *bir.File, body *bir.Body, fs *source.FileSet, rep diag.Reporter, warnings Warnings, opts Options) (facts *BodyFacts) {
	defer func() {
		if rec := recover(); rec != nil {
			facts = nil
			diag.ReportError(rep, diag.LivInternal, body.Span,
				fmt.Sprintf("internal liveness failure in `%s`: %v", body.Name, rec)).Emit()
		}
	}()

	span := trace.Begin(opts.Tracer, trace.ScopeBody, "liveness:"+body.Name, 0)
	ir := buildIRMaps(file, body)
	lv := newLiveness(ir, opts.Tracer)
	entry := lv.compute()
	if rep != nil {
		runChecks(lv, rep, warnings, entry)
	}
	span.WithExtra("nodes", fmt.Sprint(ir.numNodes())).
		WithExtra("vars", fmt.Sprint(ir.numVars())).
		End("entry " + entry.String())

	if opts.Dump != nil {
		writeDump(opts.Dump, fs, lv, entry)
	}
	return &BodyFacts{body: body, ir: ir, lv: lv, entry: entry}
}

// BodyFacts is the read-only view over one body's solved table. Handle
// lookups return ok=false for nodes the analysis did not track; the fact
// queries themselves expect handles obtained from this view and panic on
// out-of-range values.
type BodyFacts struct {
	body  *bir.Body
	ir    *irMaps
	lv    *liveness
	entry LiveNode
}

// Body returns the analyzed body.
func (f *BodyFacts) Body() *bir.Body { return f.body }

// EntryLiveNode is the program point before the first instruction.
func (f *BodyFacts) EntryLiveNode() LiveNode { return f.entry }

// ExitLiveNode is the program point after the body returns.
func (f *BodyFacts) ExitLiveNode() LiveNode { return f.lv.exitLN }

// NumLiveNodes reports how many nodes the index pass assigned.
func (f *BodyFacts) NumLiveNodes() uint32 { return f.ir.numNodes() }

// NumVariables reports how many variables the index pass assigned.
func (f *BodyFacts) NumVariables() uint32 { return f.ir.numVars() }

// ExprNode maps a tracked expression to its node.
func (f *BodyFacts) ExprNode(id bir.ExprID) (LiveNode, bool) {
	ln, ok := f.ir.lnOfExpr[id]
	return ln, ok
}

// DefNode maps a binding occurrence's pattern to its definition node.
func (f *BodyFacts) DefNode(id bir.PatID) (LiveNode, bool) {
	ln, ok := f.ir.lnOfPat[id]
	return ln, ok
}

// VariableOf maps a binding to its variable. Every alternative of an
// or-pattern maps to the same variable.
func (f *BodyFacts) VariableOf(binding bir.BindingID) (Variable, bool) {
	v, ok := f.ir.varOfBinding[binding]
	return v, ok
}

// VariableName returns the display name of v.
func (f *BodyFacts) VariableName(v Variable) string { return f.ir.variable(v).name }

// VariableKind reports whether v is a parameter, local, or capture.
func (f *BodyFacts) VariableKind(v Variable) VarKind { return f.ir.variable(v).kind }

// LiveOnEntry reports whether some path from ln reads v before any write.
func (f *BodyFacts) LiveOnEntry(ln LiveNode, v Variable) bool {
	return f.lv.liveOnEntry(ln, v)
}

// LiveOnExit reports liveness at ln's successor. Nodes outside the
// successor chain (parameter definitions, the exit node) report false.
func (f *BodyFacts) LiveOnExit(ln LiveNode, v Variable) bool {
	return f.lv.hasSuccessor(ln) && f.lv.liveOnExit(ln, v)
}

// UsedOnEntry reports whether v is read anywhere at or after ln.
func (f *BodyFacts) UsedOnEntry(ln LiveNode, v Variable) bool {
	return f.lv.usedOnEntry(ln, v)
}

// AssignedOnExit reports whether a write to v is still pending at ln's
// successor. Nodes outside the successor chain report false.
func (f *BodyFacts) AssignedOnExit(ln LiveNode, v Variable) bool {
	return f.lv.hasSuccessor(ln) && f.lv.assignedOnExit(ln, v)
}
