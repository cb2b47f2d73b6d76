// Package shade contains the shade attribute vocabulary shared by the
// resolver, the configuration store and the engine: the fixed set of
// attribute kinds, the two configuration sides of a dual-arch case product,
// and the ResolvedAttribute value produced by resolution.
package shade

import "fmt"

// Kind identifies one of the recognized shade attribute slots on a
// configuration record. The set is fixed; each variant kind depends on its
// paired brand kind.
type Kind string

const (
	TeethShadeBrand   Kind = "teeth-shade-brand"
	TeethShadeVariant Kind = "teeth-shade-variant"
	GumShadeBrand     Kind = "gum-shade-brand"
	GumShadeVariant   Kind = "gum-shade-variant"
)

// Kinds returns all recognized attribute kinds.
func Kinds() []Kind {
	return []Kind{TeethShadeBrand, TeethShadeVariant, GumShadeBrand, GumShadeVariant}
}

// ParseKind validates a raw kind string, e.g. from a CLI flag.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	switch k {
	case TeethShadeBrand, TeethShadeVariant, GumShadeBrand, GumShadeVariant:
		return k, nil
	default:
		return "", fmt.Errorf("unrecognized attribute kind: %q", s)
	}
}

// IsBrandLevel reports whether the kind selects a brand. Writing a
// brand-level kind invalidates the previously selected dependent variant.
func (k Kind) IsBrandLevel() bool {
	return k == TeethShadeBrand || k == GumShadeBrand
}

// DependentVariant returns the variant kind owned by a brand-level kind, and
// false for variant kinds.
func (k Kind) DependentVariant() (Kind, bool) {
	switch k {
	case TeethShadeBrand:
		return TeethShadeVariant, true
	case GumShadeBrand:
		return GumShadeVariant, true
	default:
		return "", false
	}
}

// OwningBrand returns the brand kind a variant kind depends on, and false for
// brand kinds.
func (k Kind) OwningBrand() (Kind, bool) {
	switch k {
	case TeethShadeVariant:
		return TeethShadeBrand, true
	case GumShadeVariant:
		return GumShadeBrand, true
	default:
		return "", false
	}
}

// Group names the stored attribute slot a kind operates on. The brand kind
// and its dependent variant kind read and write the same slot: selecting a
// brand fills the slot's brand half and clears its variant half, selecting a
// variant fills the variant half (possibly rewriting the brand half when the
// match came from a different owning brand).
type Group string

const (
	TeethShade Group = "teeth-shade"
	GumShade   Group = "gum-shade"
)

// Group returns the slot the kind operates on.
func (k Kind) Group() Group {
	switch k {
	case TeethShadeBrand, TeethShadeVariant:
		return TeethShade
	default:
		return GumShade
	}
}

// Side is one of the two parallel configuration slots of a case product.
// SideA is the primary arch; writes to it mirror onto SideB when the subject
// is dual-sided.
type Side string

const (
	SideA Side = "sideA"
	SideB Side = "sideB"
)

// ParseSide validates a raw side string.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideA:
		return SideA, nil
	case SideB:
		return SideB, nil
	default:
		return "", fmt.Errorf("unrecognized side: %q", s)
	}
}

// ResolvedAttribute is the outcome of resolving a raw selection against a
// catalog snapshot. Resolution is total: a non-match yields empty id fields
// with the raw selection preserved in the Raw slots for display.
//
// RawPart1 and RawPart2 hold the persisted tokens the surrounding UI stores:
// the brand id and variant id as strings when resolution succeeded, otherwise
// the raw selection text. Ids are stored rather than names so persisted
// tokens survive catalog renames.
type ResolvedAttribute struct {
	BrandID     *int64
	BrandName   string
	VariantID   *int64
	VariantName string
	RawPart1    string
	RawPart2    string
}

// Resolved reports whether the attribute carries a canonical brand id.
func (a ResolvedAttribute) Resolved() bool {
	return a.BrandID != nil
}

// Consistent reports whether the attribute satisfies the structural
// invariant: a variant id never appears without its owning brand id.
func (a ResolvedAttribute) Consistent() bool {
	return a.VariantID == nil || a.BrandID != nil
}

// Normalize repairs an inconsistent attribute by clearing the dangling
// variant fields. Attributes that are already consistent are returned
// unchanged. The repair favors availability: callers treat the result as an
// unresolved variant rather than failing.
func (a ResolvedAttribute) Normalize() ResolvedAttribute {
	if a.Consistent() {
		return a
	}
	a.VariantID = nil
	a.VariantName = ""
	a.RawPart2 = ""
	return a
}

// Clone returns a deep copy. The id fields are pointers; cloning prevents a
// mirrored record from aliasing the primary side's memory.
func (a ResolvedAttribute) Clone() ResolvedAttribute {
	out := a
	if a.BrandID != nil {
		v := *a.BrandID
		out.BrandID = &v
	}
	if a.VariantID != nil {
		v := *a.VariantID
		out.VariantID = &v
	}
	return out
}

// Equal compares two resolved attributes field by field.
func (a ResolvedAttribute) Equal(b ResolvedAttribute) bool {
	return eqInt64Ptr(a.BrandID, b.BrandID) &&
		eqInt64Ptr(a.VariantID, b.VariantID) &&
		a.BrandName == b.BrandName &&
		a.VariantName == b.VariantName &&
		a.RawPart1 == b.RawPart1 &&
		a.RawPart2 == b.RawPart2
}

func eqInt64Ptr(x, y *int64) bool {
	if x == nil || y == nil {
		return x == y
	}
	return *x == *y
}
