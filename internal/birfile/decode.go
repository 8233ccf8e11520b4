package birfile

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"golang.org/x/text/unicode/norm"

	"ebb/internal/bir"
	"ebb/internal/diag"
	"ebb/internal/source"
)

// SchemaVersion is the snapshot format version this package reads.
const SchemaVersion = 1

// maxDiags caps per-document diagnostics so a corrupt snapshot cannot flood
// the caller.
const maxDiags = 256

// doc mirrors the top level of a `.bir.json` document.
type doc struct {
	Schema int       `json:"schema"`
	Path   string    `json:"path"`
	Source string    `json:"source"`
	Bodies []docBody `json:"bodies"`
}

// docSpan is a [start, end) byte range; the decoder attaches the file.
type docSpan [2]uint32

type docBody struct {
	Name       string       `json:"name"`
	Kind       string       `json:"kind"`
	OneShot    bool         `json:"one_shot"`
	Synthetic  bool         `json:"synthetic"`
	Span       docSpan      `json:"span"`
	Params     []docParam   `json:"params"`
	Captures   []docCapture `json:"captures"`
	Root       uint32       `json:"root"`
	Pats       []docPat     `json:"pats"`
	Stmts      []docStmt    `json:"stmts"`
	Exprs      []docExpr    `json:"exprs"`
	Diverging  []uint32     `json:"diverging"`
	Overloaded []uint32     `json:"overloaded"`
}

type docParam struct {
	Pat  uint32  `json:"pat"`
	Span docSpan `json:"span"`
}

type docCapture struct {
	Binding uint32  `json:"binding"`
	Name    string  `json:"name"`
	Mode    string  `json:"mode"`
	Span    docSpan `json:"span"`
}

// docExpr carries the union of every expression kind's fields; Kind decides
// which ones are read.
type docExpr struct {
	Kind string  `json:"kind"`
	Span docSpan `json:"span"`

	Text        string           `json:"text"`    // lit
	Name        string           `json:"name"`    // var, field
	Binding     uint32           `json:"binding"` // var; 0 for item references
	Op          string           `json:"op"`      // unary, binary, assign-op
	Operand     uint32           `json:"operand"` // unary
	Left        uint32           `json:"left"`    // binary
	Right       uint32           `json:"right"`   // binary
	Place       uint32           `json:"place"`   // assign, assign-op
	Value       uint32           `json:"value"`   // assign, assign-op, cast, break, return, yield
	Object      uint32           `json:"object"`  // field, index
	Index       uint32           `json:"index"`   // index
	Callee      uint32           `json:"callee"`  // call
	Args        []uint32         `json:"args"`    // call
	Type        string           `json:"type"`    // struct
	Fields      []docStructField `json:"fields"`  // struct
	Base        uint32           `json:"base"`    // struct, optional `..base`
	Elems       []uint32         `json:"elems"`   // array, tuple
	Stmts       []uint32         `json:"stmts"`   // block
	Tail        uint32           `json:"tail"`    // block
	BreakTarget bool             `json:"break_target"`
	Scrutinee   uint32           `json:"scrutinee"` // match
	Arms        []docArm         `json:"arms"`      // match
	Body        uint32           `json:"body"`      // loop: expr; closure: body
	Target      uint32           `json:"target"`    // break, continue
}

type docStructField struct {
	Name  string  `json:"name"`
	Value uint32  `json:"value"`
	Span  docSpan `json:"span"`
}

type docArm struct {
	Pat   uint32  `json:"pat"`
	Guard uint32  `json:"guard"`
	Body  uint32  `json:"body"`
	Span  docSpan `json:"span"`
}

type docStmt struct {
	Kind string  `json:"kind"`
	Span docSpan `json:"span"`
	Pat  uint32  `json:"pat"`  // let
	Init uint32  `json:"init"` // let, optional
	Expr uint32  `json:"expr"` // expr
}

type docPat struct {
	Kind      string        `json:"kind"`
	Span      docSpan       `json:"span"`
	Text      string        `json:"text"`    // lit
	Name      string        `json:"name"`    // binding, variant
	Binding   uint32        `json:"binding"` // binding
	Mut       bool          `json:"mut"`     // binding
	Sub       uint32        `json:"sub"`     // binding, optional `name @ pat`
	Type      string        `json:"type"`    // struct
	Fields    []docPatField `json:"fields"`  // struct
	Elems     []uint32      `json:"elems"`   // tuple, variant, slice
	Inner     uint32        `json:"inner"`   // ref
	Alts      []uint32      `json:"alts"`    // or
}

type docPatField struct {
	Name      string  `json:"name"`
	Pat       uint32  `json:"pat"`
	Shorthand bool    `json:"shorthand"`
	Span      docSpan `json:"span"`
}

// Decode parses data as a snapshot produced for path and builds the bir file
// it describes. The document's own source path is registered in fs (resolved
// against path's directory when relative) and every span points into it.
// Malformed JSON is an error; every other problem, bir.Validate findings
// included, lands in the returned bag. A bag containing errors means the
// returned file must not be analyzed.
func Decode(fs *source.FileSet, path string, data []byte) (*bir.File, *diag.Bag, error) {
	bag := diag.NewBag(maxDiags)
	rep := diag.BagReporter{Bag: bag}

	var document doc
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, bag, fmt.Errorf("%s: malformed snapshot: %w", path, err)
	}

	name := document.Path
	if name == "" {
		name = path
	} else if !filepath.IsAbs(name) {
		name = filepath.Join(filepath.Dir(path), name)
	}
	// The embedded text is registered exactly as carried: snapshot spans
	// index into it and any normalization would shift them.
	fileID := fs.AddVirtual(name, []byte(document.Source))

	if document.Schema != SchemaVersion {
		diag.ReportError(rep, diag.DocBadSchema, source.Span{File: fileID},
			fmt.Sprintf("snapshot schema %d is not supported (expected %d)", document.Schema, SchemaVersion)).Emit()
		return nil, bag, nil
	}

	d := &decoder{
		file:   bir.NewFile(fileID),
		fileID: fileID,
		rep:    rep,
		ok:     true,
	}
	for i := range document.Bodies {
		d.body(&document.Bodies[i])
	}

	// Placeholder nodes from a rejected decode would only cascade here.
	if d.ok {
		bir.Validate(d.file, rep)
	}
	return d.file, bag, nil
}

type decoder struct {
	file   *bir.File
	fileID source.FileID
	rep    diag.Reporter
	ok     bool
}

func (d *decoder) report(code diag.Code, span source.Span, msg string) {
	d.ok = false
	if d.rep != nil {
		diag.ReportError(d.rep, code, span, msg).Emit()
	}
}

func (d *decoder) span(s docSpan) source.Span {
	return source.Span{File: d.fileID, Start: s[0], End: s[1]}
}

// ident returns the NFC form of an identifier. The analysis compares names
// byte-wise, so differently composed spellings of the same name must
// collapse on load.
func ident(s string) string {
	return norm.NFC.String(s)
}

func (d *decoder) body(jb *docBody) {
	name := ident(jb.Name)
	span := d.span(jb.Span)
	kind, ok := parseBodyKind(jb.Kind)
	if !ok {
		d.report(diag.DocBadBodyKind, span,
			fmt.Sprintf("body `%s` has unknown kind `%s`", name, jb.Kind))
	}

	body := bir.NewBody(name, kind, span)
	body.OneShot = jb.OneShot
	body.Synthetic = jb.Synthetic
	body.Root = bir.ExprID(jb.Root)

	for _, p := range jb.Params {
		body.Params = append(body.Params, bir.Param{Pat: bir.PatID(p.Pat), Span: d.span(p.Span)})
	}
	for _, c := range jb.Captures {
		mode, ok := parseCaptureMode(c.Mode)
		if !ok {
			d.report(diag.DocBadCaptureMode, d.span(c.Span),
				fmt.Sprintf("capture `%s` has unknown mode `%s`", c.Name, c.Mode))
		}
		body.Captures = append(body.Captures, bir.Capture{
			Binding: bir.BindingID(c.Binding),
			Name:    ident(c.Name),
			Mode:    mode,
			Span:    d.span(c.Span),
		})
	}

	for i := range jb.Pats {
		d.pat(body, &jb.Pats[i])
	}
	for i := range jb.Stmts {
		d.stmt(body, &jb.Stmts[i])
	}
	for i := range jb.Exprs {
		d.expr(body, &jb.Exprs[i])
	}

	for _, id := range jb.Diverging {
		body.Diverging[bir.ExprID(id)] = true
	}
	for _, id := range jb.Overloaded {
		body.Overloaded[bir.ExprID(id)] = true
	}
	d.file.AddBody(body)
}

// expr allocates exactly one expression per document element so the JSON
// position determines the ID even past a bad kind.
func (d *decoder) expr(body *bir.Body, e *docExpr) {
	span := d.span(e.Span)
	switch e.Kind {
	case "lit":
		body.Exprs.NewLit(span, e.Text)
	case "var":
		body.Exprs.NewVarRef(span, ident(e.Name), bir.BindingID(e.Binding))
	case "unary":
		op, ok := parseUnaryOp(e.Op)
		if !ok {
			d.report(diag.DocBadNodeKind, span,
				fmt.Sprintf("unary operator `%s` is not recognized", e.Op))
		}
		body.Exprs.NewUnary(span, op, bir.ExprID(e.Operand))
	case "binary":
		op, ok := parseBinaryOp(e.Op)
		if !ok {
			d.report(diag.DocBadNodeKind, span,
				fmt.Sprintf("binary operator `%s` is not recognized", e.Op))
		}
		body.Exprs.NewBinary(span, op, bir.ExprID(e.Left), bir.ExprID(e.Right))
	case "assign":
		body.Exprs.NewAssign(span, bir.ExprID(e.Place), bir.ExprID(e.Value))
	case "assign-op":
		op, ok := parseBinaryOp(e.Op)
		if !ok {
			d.report(diag.DocBadNodeKind, span,
				fmt.Sprintf("compound assignment operator `%s` is not recognized", e.Op))
		}
		body.Exprs.NewAssignOp(span, op, bir.ExprID(e.Place), bir.ExprID(e.Value))
	case "field":
		body.Exprs.NewField(span, bir.ExprID(e.Object), ident(e.Name))
	case "index":
		body.Exprs.NewIndex(span, bir.ExprID(e.Object), bir.ExprID(e.Index))
	case "call":
		body.Exprs.NewCall(span, bir.ExprID(e.Callee), exprIDs(e.Args))
	case "struct":
		fields := make([]bir.StructField, 0, len(e.Fields))
		for _, f := range e.Fields {
			fields = append(fields, bir.StructField{
				Name:  ident(f.Name),
				Value: bir.ExprID(f.Value),
				Span:  d.span(f.Span),
			})
		}
		body.Exprs.NewStruct(span, ident(e.Type), fields, bir.ExprID(e.Base))
	case "array":
		body.Exprs.NewArray(span, exprIDs(e.Elems))
	case "tuple":
		body.Exprs.NewTuple(span, exprIDs(e.Elems))
	case "cast":
		body.Exprs.NewCast(span, bir.ExprID(e.Value))
	case "block":
		stmts := make([]bir.StmtID, 0, len(e.Stmts))
		for _, id := range e.Stmts {
			stmts = append(stmts, bir.StmtID(id))
		}
		body.Exprs.NewBlock(span, stmts, bir.ExprID(e.Tail), e.BreakTarget)
	case "match":
		arms := make([]bir.MatchArm, 0, len(e.Arms))
		for _, a := range e.Arms {
			arms = append(arms, bir.MatchArm{
				Pat:   bir.PatID(a.Pat),
				Guard: bir.ExprID(a.Guard),
				Body:  bir.ExprID(a.Body),
				Span:  d.span(a.Span),
			})
		}
		body.Exprs.NewMatch(span, bir.ExprID(e.Scrutinee), arms)
	case "loop":
		body.Exprs.NewLoop(span, bir.ExprID(e.Body))
	case "break":
		body.Exprs.NewBreak(span, bir.ExprID(e.Target), bir.ExprID(e.Value))
	case "continue":
		body.Exprs.NewContinue(span, bir.ExprID(e.Target))
	case "return":
		body.Exprs.NewReturn(span, bir.ExprID(e.Value))
	case "yield":
		body.Exprs.NewYield(span, bir.ExprID(e.Value))
	case "closure":
		body.Exprs.NewClosure(span, bir.BodyID(e.Body))
	default:
		d.report(diag.DocBadNodeKind, span,
			fmt.Sprintf("expression kind `%s` is not recognized", e.Kind))
		body.Exprs.NewLit(span, "")
	}
}

func (d *decoder) stmt(body *bir.Body, s *docStmt) {
	span := d.span(s.Span)
	switch s.Kind {
	case "let":
		body.Stmts.NewLet(span, bir.PatID(s.Pat), bir.ExprID(s.Init))
	case "expr":
		body.Stmts.NewExpr(span, bir.ExprID(s.Expr))
	default:
		d.report(diag.DocBadNodeKind, span,
			fmt.Sprintf("statement kind `%s` is not recognized", s.Kind))
		body.Stmts.NewExpr(span, bir.NoExprID)
	}
}

func (d *decoder) pat(body *bir.Body, p *docPat) {
	span := d.span(p.Span)
	switch p.Kind {
	case "wild":
		body.Pats.NewWild(span)
	case "lit":
		body.Pats.NewLit(span, p.Text)
	case "binding":
		name := ident(p.Name)
		binding := bir.BindingID(p.Binding)
		if p.Sub != 0 {
			body.Pats.NewBindingSub(span, name, binding, p.Mut, bir.PatID(p.Sub))
		} else {
			body.Pats.NewBinding(span, name, binding, p.Mut)
		}
		if binding != bir.NoBindingID {
			d.file.BindingNames[binding] = name
		}
	case "tuple":
		body.Pats.NewTuple(span, patIDs(p.Elems))
	case "struct":
		fields := make([]bir.PatField, 0, len(p.Fields))
		for _, f := range p.Fields {
			fields = append(fields, bir.PatField{
				Name:      ident(f.Name),
				Pat:       bir.PatID(f.Pat),
				Shorthand: f.Shorthand,
				Span:      d.span(f.Span),
			})
		}
		body.Pats.NewStruct(span, ident(p.Type), fields)
	case "variant":
		body.Pats.NewVariant(span, ident(p.Name), patIDs(p.Elems))
	case "ref":
		body.Pats.NewRef(span, bir.PatID(p.Inner))
	case "slice":
		body.Pats.NewSlice(span, patIDs(p.Elems))
	case "or":
		body.Pats.NewOr(span, patIDs(p.Alts))
	default:
		d.report(diag.DocBadNodeKind, span,
			fmt.Sprintf("pattern kind `%s` is not recognized", p.Kind))
		body.Pats.NewWild(span)
	}
}

func exprIDs(ids []uint32) []bir.ExprID {
	out := make([]bir.ExprID, 0, len(ids))
	for _, id := range ids {
		out = append(out, bir.ExprID(id))
	}
	return out
}

func patIDs(ids []uint32) []bir.PatID {
	out := make([]bir.PatID, 0, len(ids))
	for _, id := range ids {
		out = append(out, bir.PatID(id))
	}
	return out
}

func parseBodyKind(s string) (bir.BodyKind, bool) {
	switch s {
	case "fn":
		return bir.BodyFn, true
	case "closure":
		return bir.BodyClosure, true
	case "generator":
		return bir.BodyGenerator, true
	default:
		return bir.BodyFn, false
	}
}

func parseCaptureMode(s string) (bir.CaptureMode, bool) {
	switch s {
	case "value":
		return bir.CaptureByValue, true
	case "ref":
		return bir.CaptureByRef, true
	default:
		return bir.CaptureByValue, false
	}
}

func parseUnaryOp(s string) (bir.UnaryOp, bool) {
	switch s {
	case "-":
		return bir.UnaryNeg, true
	case "!":
		return bir.UnaryNot, true
	case "*":
		return bir.UnaryDeref, true
	case "&":
		return bir.UnaryRef, true
	case "&mut":
		return bir.UnaryRefMut, true
	default:
		return bir.UnaryNeg, false
	}
}

func parseBinaryOp(s string) (bir.BinaryOp, bool) {
	switch s {
	case "+":
		return bir.BinAdd, true
	case "-":
		return bir.BinSub, true
	case "*":
		return bir.BinMul, true
	case "/":
		return bir.BinDiv, true
	case "%":
		return bir.BinRem, true
	case "&&":
		return bir.BinAnd, true
	case "||":
		return bir.BinOr, true
	case "&":
		return bir.BinBitAnd, true
	case "|":
		return bir.BinBitOr, true
	case "^":
		return bir.BinBitXor, true
	case "<<":
		return bir.BinShl, true
	case ">>":
		return bir.BinShr, true
	case "==":
		return bir.BinEq, true
	case "!=":
		return bir.BinNe, true
	case "<":
		return bir.BinLt, true
	case "<=":
		return bir.BinLe, true
	case ">":
		return bir.BinGt, true
	case ">=":
		return bir.BinGe, true
	default:
		return bir.BinAdd, false
	}
}
