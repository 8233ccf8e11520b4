package bir

import (
	"ebb/internal/source"
)

// BindingOcc is one binding occurrence inside a pattern.
type BindingOcc struct {
	Pat       PatID
	Binding   BindingID
	Name      string
	Span      source.Span
	Mut       bool
	Shorthand bool
}

// EachBinding visits every binding occurrence under root in pre-order,
// including every or-pattern alternative.
func (p *Pats) EachBinding(root PatID, fn func(BindingOcc)) {
	p.eachBinding(root, false, true, fn)
}

// EachBindingOrFirst visits only the first alternative of each or-pattern:
// the canonical occurrences used when defining bindings in the flow.
func (p *Pats) EachBindingOrFirst(root PatID, fn func(BindingOcc)) {
	p.eachBinding(root, false, false, fn)
}

func (p *Pats) eachBinding(id PatID, shorthand, allAlts bool, fn func(BindingOcc)) {
	pat := p.Get(id)
	if pat == nil {
		return
	}
	switch pat.Kind {
	case PatWild, PatLit:
		// no bindings
	case PatBinding:
		data := p.Bindings.Get(uint32(pat.Payload))
		if data == nil {
			return
		}
		fn(BindingOcc{
			Pat:       id,
			Binding:   data.Binding,
			Name:      data.Name,
			Span:      pat.Span,
			Mut:       data.Mut,
			Shorthand: shorthand,
		})
		if data.Sub.IsValid() {
			p.eachBinding(data.Sub, false, allAlts, fn)
		}
	case PatTuple:
		data := p.Tuples.Get(uint32(pat.Payload))
		if data == nil {
			return
		}
		for _, elem := range data.Elems {
			p.eachBinding(elem, false, allAlts, fn)
		}
	case PatStruct:
		data := p.Structs.Get(uint32(pat.Payload))
		if data == nil {
			return
		}
		for _, field := range data.Fields {
			p.eachBinding(field.Pat, field.Shorthand, allAlts, fn)
		}
	case PatVariant:
		data := p.Variants.Get(uint32(pat.Payload))
		if data == nil {
			return
		}
		for _, elem := range data.Elems {
			p.eachBinding(elem, false, allAlts, fn)
		}
	case PatRef:
		data := p.Refs.Get(uint32(pat.Payload))
		if data == nil {
			return
		}
		p.eachBinding(data.Inner, false, allAlts, fn)
	case PatSlice:
		data := p.Slices.Get(uint32(pat.Payload))
		if data == nil {
			return
		}
		for _, elem := range data.Elems {
			p.eachBinding(elem, false, allAlts, fn)
		}
	case PatOr:
		data := p.Ors.Get(uint32(pat.Payload))
		if data == nil {
			return
		}
		if allAlts {
			for _, alt := range data.Alts {
				p.eachBinding(alt, false, allAlts, fn)
			}
		} else if len(data.Alts) > 0 {
			p.eachBinding(data.Alts[0], false, allAlts, fn)
		}
	}
}

// eachChild visits the direct pattern children of id in document order.
func (p *Pats) eachChild(id PatID, fn func(PatID)) {
	pat := p.Get(id)
	if pat == nil {
		return
	}
	switch pat.Kind {
	case PatWild, PatLit:
	case PatBinding:
		if data := p.Bindings.Get(uint32(pat.Payload)); data != nil && data.Sub.IsValid() {
			fn(data.Sub)
		}
	case PatTuple:
		if data := p.Tuples.Get(uint32(pat.Payload)); data != nil {
			for _, elem := range data.Elems {
				fn(elem)
			}
		}
	case PatStruct:
		if data := p.Structs.Get(uint32(pat.Payload)); data != nil {
			for _, field := range data.Fields {
				fn(field.Pat)
			}
		}
	case PatVariant:
		if data := p.Variants.Get(uint32(pat.Payload)); data != nil {
			for _, elem := range data.Elems {
				fn(elem)
			}
		}
	case PatRef:
		if data := p.Refs.Get(uint32(pat.Payload)); data != nil {
			fn(data.Inner)
		}
	case PatSlice:
		if data := p.Slices.Get(uint32(pat.Payload)); data != nil {
			for _, elem := range data.Elems {
				fn(elem)
			}
		}
	case PatOr:
		if data := p.Ors.Get(uint32(pat.Payload)); data != nil {
			for _, alt := range data.Alts {
				fn(alt)
			}
		}
	}
}
