package storage

import "github.com/gtuazon18/rxn3d-core/pkg/shade"

// Subject is one configurable case product. Dual-sided subjects span both
// arches; writes to the primary side mirror onto the secondary one.
type Subject struct {
	ID        int64
	DualSided bool
}

// Record holds the resolved shade attributes for one (subject, side), plus
// scalar passthrough fields that are carried along but never written by the
// resolution core.
//
// Records are values: mutations build a new Record and replace it in the
// backend, so two sides never alias the same attribute storage.
type Record struct {
	Attributes map[shade.Group]shade.ResolvedAttribute

	Grade       string
	Stage       int64
	Impressions string
}

// NewRecord returns an empty record.
func NewRecord() Record {
	return Record{Attributes: make(map[shade.Group]shade.ResolvedAttribute)}
}

// Attribute returns the attribute stored under the group, or a zero value.
func (r Record) Attribute(group shade.Group) shade.ResolvedAttribute {
	return r.Attributes[group]
}

// WithAttribute returns a copy of the record with the group's slot replaced.
func (r Record) WithAttribute(group shade.Group, attr shade.ResolvedAttribute) Record {
	out := r.clone()
	out.Attributes[group] = attr.Clone()
	return out
}

// WithoutAttribute returns a copy of the record with the group's slot removed.
func (r Record) WithoutAttribute(group shade.Group) Record {
	out := r.clone()
	delete(out.Attributes, group)
	return out
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	return r.clone()
}

func (r Record) clone() Record {
	out := r
	out.Attributes = make(map[shade.Group]shade.ResolvedAttribute, len(r.Attributes))
	for k, v := range r.Attributes {
		out.Attributes[k] = v.Clone()
	}
	return out
}

// RecordPair is the two-sided view the surrounding workflow reads after any
// mutation.
type RecordPair struct {
	SideA Record
	SideB Record
}

// Side returns the record for the given side.
func (p RecordPair) Side(side shade.Side) Record {
	if side == shade.SideB {
		return p.SideB
	}
	return p.SideA
}
