package bir

import (
	"ebb/internal/source"
)

// Builder constructs files and bodies. It owns the file-scoped binding
// counter; all node allocation goes through the body's own containers.
type Builder struct {
	file    *File
	nextVar BindingID
}

func NewBuilder(fileID source.FileID) *Builder {
	return &Builder{
		file: NewFile(fileID),
	}
}

// File returns the file under construction.
func (b *Builder) File() *File {
	return b.file
}

// NewBinding allocates a fresh file-scoped binding ID. The name is recorded
// for display only; occurrences carry the authoritative name.
func (b *Builder) NewBinding(name string) BindingID {
	b.nextVar++
	b.file.BindingNames[b.nextVar] = name
	return b.nextVar
}

// NewBody allocates an empty body, appends it to the file and returns it
// together with its ID.
func (b *Builder) NewBody(name string, kind BodyKind, span source.Span) (*Body, BodyID) {
	body := NewBody(name, kind, span)
	id := b.file.AddBody(body)
	return body, id
}

// Param declares a single-binding parameter on body and returns the binding.
func (b *Builder) Param(body *Body, span source.Span, name string, mut bool) BindingID {
	binding := b.NewBinding(name)
	pat := body.Pats.NewBinding(span, name, binding, mut)
	body.Params = append(body.Params, Param{Pat: pat, Span: span})
	return binding
}

// ParamPat declares a parameter with an arbitrary pattern.
func (b *Builder) ParamPat(body *Body, span source.Span, pat PatID) {
	body.Params = append(body.Params, Param{Pat: pat, Span: span})
}

// Let declares `let name = init;` (init may be NoExprID) and returns the
// binding together with the statement.
func (b *Builder) Let(body *Body, span source.Span, name string, mut bool, init ExprID) (BindingID, StmtID) {
	binding := b.NewBinding(name)
	pat := body.Pats.NewBinding(span, name, binding, mut)
	stmt := body.Stmts.NewLet(span, pat, init)
	return binding, stmt
}

// If lowers a conditional to a two-arm match over the condition: a `true`
// literal arm for the then branch and a wildcard arm for the else branch.
// A missing else branch becomes an empty block.
func (b *Builder) If(body *Body, span source.Span, cond, then, els ExprID) ExprID {
	if !els.IsValid() {
		els = body.Exprs.NewBlock(span, nil, NoExprID, false)
	}
	truePat := body.Pats.NewLit(span, "true")
	wildPat := body.Pats.NewWild(span)
	return body.Exprs.NewMatch(span, cond, []MatchArm{
		{Pat: truePat, Body: then, Span: span},
		{Pat: wildPat, Body: els, Span: span},
	})
}

// While lowers `while cond { body }` to a loop over a two-arm match whose
// wildcard arm breaks out. cond and loopBody must already be built; the
// returned loop ID is the target the lowered break names.
func (b *Builder) While(body *Body, span source.Span, cond, loopBody ExprID) ExprID {
	loop := body.Exprs.NewLoop(span, NoExprID)
	brk := body.Exprs.NewBreak(span, loop, NoExprID)
	arm := b.If(body, span, cond, loopBody, brk)
	data, _ := body.Exprs.Loop(loop)
	data.Body = arm
	return loop
}
