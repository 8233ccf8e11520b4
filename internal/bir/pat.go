package bir

import (
	"ebb/internal/source"
)

type PatKind uint8

const (
	PatWild PatKind = iota
	PatLit
	PatBinding
	PatTuple
	PatStruct
	PatVariant
	PatRef
	PatSlice
	PatOr
)

func (k PatKind) String() string {
	switch k {
	case PatWild:
		return "wild"
	case PatLit:
		return "lit"
	case PatBinding:
		return "binding"
	case PatTuple:
		return "tuple"
	case PatStruct:
		return "struct"
	case PatVariant:
		return "variant"
	case PatRef:
		return "ref"
	case PatSlice:
		return "slice"
	case PatOr:
		return "or"
	default:
		return "unknown"
	}
}

type Pat struct {
	Kind    PatKind
	Span    source.Span
	Payload PayloadID
}

// PatBindingData declares a binding occurrence. Sub is an optional
// sub-pattern (`name @ pat`). Occurrences of the same name across or-pattern
// alternatives share one BindingID.
type PatBindingData struct {
	Name    string
	Binding BindingID
	Mut     bool
	Sub     PatID
}

type PatLitData struct {
	Text string
}

type PatTupleData struct {
	Elems []PatID
}

// PatField is one field of a struct pattern. Shorthand marks the
// `Point{x}` form, which cannot be renamed in place: the fix for an unused
// shorthand binding rewrites it to `x: _`.
type PatField struct {
	Name      string
	Pat       PatID
	Shorthand bool
	Span      source.Span
}

type PatStructData struct {
	TypeName string
	Fields   []PatField
}

type PatVariantData struct {
	Name  string
	Elems []PatID
}

type PatRefData struct {
	Inner PatID
}

type PatSliceData struct {
	Elems []PatID
}

// PatOrData holds the alternatives of an or-pattern. All alternatives bind
// the same binding set.
type PatOrData struct {
	Alts []PatID
}

// Pats manages allocation of patterns, mirroring the Exprs layout.
type Pats struct {
	Arena    *Arena[Pat]
	Bindings *Arena[PatBindingData]
	Lits     *Arena[PatLitData]
	Tuples   *Arena[PatTupleData]
	Structs  *Arena[PatStructData]
	Variants *Arena[PatVariantData]
	Refs     *Arena[PatRefData]
	Slices   *Arena[PatSliceData]
	Ors      *Arena[PatOrData]
}

// NewPats creates a Pats with arenas preallocated using capHint as the
// initial capacity. If capHint is 0, a default of 1<<5 is used.
func NewPats(capHint uint) *Pats {
	if capHint == 0 {
		capHint = 1 << 5
	}
	return &Pats{
		Arena:    NewArena[Pat](capHint),
		Bindings: NewArena[PatBindingData](capHint),
		Lits:     NewArena[PatLitData](capHint),
		Tuples:   NewArena[PatTupleData](capHint),
		Structs:  NewArena[PatStructData](capHint),
		Variants: NewArena[PatVariantData](capHint),
		Refs:     NewArena[PatRefData](capHint),
		Slices:   NewArena[PatSliceData](capHint),
		Ors:      NewArena[PatOrData](capHint),
	}
}

func (p *Pats) new(kind PatKind, span source.Span, payload PayloadID) PatID {
	return PatID(p.Arena.Allocate(Pat{
		Kind:    kind,
		Span:    span,
		Payload: payload,
	}))
}

// Get returns the pattern with the given ID, or nil for the zero ID.
func (p *Pats) Get(id PatID) *Pat {
	return p.Arena.Get(uint32(id))
}

// Len returns the number of allocated patterns.
func (p *Pats) Len() uint32 {
	return p.Arena.Len()
}

// NewWild creates a wildcard pattern.
func (p *Pats) NewWild(span source.Span) PatID {
	return p.new(PatWild, span, NoPayloadID)
}

// NewLit creates a literal pattern.
func (p *Pats) NewLit(span source.Span, text string) PatID {
	payload := p.Lits.Allocate(PatLitData{Text: text})
	return p.new(PatLit, span, PayloadID(payload))
}

// Lit returns the literal data for the given pattern ID.
func (p *Pats) Lit(id PatID) (*PatLitData, bool) {
	pat := p.Get(id)
	if pat == nil || pat.Kind != PatLit {
		return nil, false
	}
	return p.Lits.Get(uint32(pat.Payload)), true
}

// NewBinding creates a binding pattern.
func (p *Pats) NewBinding(span source.Span, name string, binding BindingID, mut bool) PatID {
	payload := p.Bindings.Allocate(PatBindingData{Name: name, Binding: binding, Mut: mut})
	return p.new(PatBinding, span, PayloadID(payload))
}

// NewBindingSub creates a `name @ pat` binding pattern.
func (p *Pats) NewBindingSub(span source.Span, name string, binding BindingID, mut bool, sub PatID) PatID {
	payload := p.Bindings.Allocate(PatBindingData{Name: name, Binding: binding, Mut: mut, Sub: sub})
	return p.new(PatBinding, span, PayloadID(payload))
}

// Binding returns the binding data for the given pattern ID.
func (p *Pats) Binding(id PatID) (*PatBindingData, bool) {
	pat := p.Get(id)
	if pat == nil || pat.Kind != PatBinding {
		return nil, false
	}
	return p.Bindings.Get(uint32(pat.Payload)), true
}

// NewTuple creates a tuple pattern.
func (p *Pats) NewTuple(span source.Span, elems []PatID) PatID {
	payload := p.Tuples.Allocate(PatTupleData{Elems: elems})
	return p.new(PatTuple, span, PayloadID(payload))
}

// Tuple returns the tuple data for the given pattern ID.
func (p *Pats) Tuple(id PatID) (*PatTupleData, bool) {
	pat := p.Get(id)
	if pat == nil || pat.Kind != PatTuple {
		return nil, false
	}
	return p.Tuples.Get(uint32(pat.Payload)), true
}

// NewStruct creates a struct pattern.
func (p *Pats) NewStruct(span source.Span, typeName string, fields []PatField) PatID {
	payload := p.Structs.Allocate(PatStructData{TypeName: typeName, Fields: fields})
	return p.new(PatStruct, span, PayloadID(payload))
}

// Struct returns the struct data for the given pattern ID.
func (p *Pats) Struct(id PatID) (*PatStructData, bool) {
	pat := p.Get(id)
	if pat == nil || pat.Kind != PatStruct {
		return nil, false
	}
	return p.Structs.Get(uint32(pat.Payload)), true
}

// NewVariant creates an enum variant pattern.
func (p *Pats) NewVariant(span source.Span, name string, elems []PatID) PatID {
	payload := p.Variants.Allocate(PatVariantData{Name: name, Elems: elems})
	return p.new(PatVariant, span, PayloadID(payload))
}

// Variant returns the variant data for the given pattern ID.
func (p *Pats) Variant(id PatID) (*PatVariantData, bool) {
	pat := p.Get(id)
	if pat == nil || pat.Kind != PatVariant {
		return nil, false
	}
	return p.Variants.Get(uint32(pat.Payload)), true
}

// NewRef creates a reference pattern.
func (p *Pats) NewRef(span source.Span, inner PatID) PatID {
	payload := p.Refs.Allocate(PatRefData{Inner: inner})
	return p.new(PatRef, span, PayloadID(payload))
}

// Ref returns the reference data for the given pattern ID.
func (p *Pats) Ref(id PatID) (*PatRefData, bool) {
	pat := p.Get(id)
	if pat == nil || pat.Kind != PatRef {
		return nil, false
	}
	return p.Refs.Get(uint32(pat.Payload)), true
}

// NewSlice creates a slice pattern.
func (p *Pats) NewSlice(span source.Span, elems []PatID) PatID {
	payload := p.Slices.Allocate(PatSliceData{Elems: elems})
	return p.new(PatSlice, span, PayloadID(payload))
}

// Slice returns the slice data for the given pattern ID.
func (p *Pats) Slice(id PatID) (*PatSliceData, bool) {
	pat := p.Get(id)
	if pat == nil || pat.Kind != PatSlice {
		return nil, false
	}
	return p.Slices.Get(uint32(pat.Payload)), true
}

// NewOr creates an or-pattern.
func (p *Pats) NewOr(span source.Span, alts []PatID) PatID {
	payload := p.Ors.Allocate(PatOrData{Alts: alts})
	return p.new(PatOr, span, PayloadID(payload))
}

// Or returns the or-pattern data for the given pattern ID.
func (p *Pats) Or(id PatID) (*PatOrData, bool) {
	pat := p.Get(id)
	if pat == nil || pat.Kind != PatOr {
		return nil, false
	}
	return p.Ors.Get(uint32(pat.Payload)), true
}
