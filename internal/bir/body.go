package bir

import (
	"ebb/internal/source"
)

type BodyKind uint8

const (
	BodyFn BodyKind = iota
	BodyClosure
	BodyGenerator
)

func (k BodyKind) String() string {
	switch k {
	case BodyFn:
		return "fn"
	case BodyClosure:
		return "closure"
	case BodyGenerator:
		return "generator"
	default:
		return "unknown"
	}
}

// CaptureMode says how a closure body refers to an enclosing binding.
type CaptureMode uint8

const (
	CaptureByValue CaptureMode = iota
	CaptureByRef
)

func (m CaptureMode) String() string {
	switch m {
	case CaptureByValue:
		return "value"
	case CaptureByRef:
		return "ref"
	default:
		return "unknown"
	}
}

// Param is one formal parameter; the pattern declares its bindings.
type Param struct {
	Pat  PatID
	Span source.Span
}

// Capture is one entry of a closure's capture list. Binding names a binding
// declared by a pattern in an enclosing body of the same file.
type Capture struct {
	Binding BindingID
	Name    string
	Mode    CaptureMode
	Span    source.Span
}

// Body is one analyzable function-like unit: a top-level fn, a closure, or a
// generator. Each body owns its node containers; bindings are file-scoped.
type Body struct {
	Name      string
	Kind      BodyKind
	OneShot   bool // closure consumed by a single call, never re-entered
	Synthetic bool // compiler-generated owner: analysis skips it
	Span      source.Span
	Params    []Param
	Captures  []Capture
	Root      ExprID

	Exprs *Exprs
	Stmts *Stmts
	Pats  *Pats

	// Diverging marks call expressions whose result type is uninhabited:
	// control does not continue past them.
	Diverging map[ExprID]bool
	// Overloaded marks compound assignments that are user-defined operator
	// calls: both sides are plain reads, no write.
	Overloaded map[ExprID]bool
}

// NewBody creates an empty body with freshly allocated containers.
func NewBody(name string, kind BodyKind, span source.Span) *Body {
	return &Body{
		Name:       name,
		Kind:       kind,
		Span:       span,
		Exprs:      NewExprs(0),
		Stmts:      NewStmts(0),
		Pats:       NewPats(0),
		Diverging:  make(map[ExprID]bool),
		Overloaded: make(map[ExprID]bool),
	}
}

// File aggregates the bodies of one snapshot together with the source file
// they resolve spans against. BindingIDs are unique across the whole file so
// closure captures can name bindings of enclosing bodies.
type File struct {
	FileID source.FileID
	Bodies []*Body

	// BindingNames is a debug/display table; occurrences carry the
	// authoritative name.
	BindingNames map[BindingID]string
}

// NewFile creates an empty file container.
func NewFile(fileID source.FileID) *File {
	return &File{
		FileID:       fileID,
		BindingNames: make(map[BindingID]string),
	}
}

// Body returns the body with the given ID, or nil when out of range.
func (f *File) Body(id BodyID) *Body {
	if id == NoBodyID || uint32(id) > uint32(len(f.Bodies)) {
		return nil
	}
	return f.Bodies[id-1]
}

// AddBody appends body and returns its 1-based ID.
func (f *File) AddBody(body *Body) BodyID {
	f.Bodies = append(f.Bodies, body)
	return BodyID(len(f.Bodies))
}
