// Package catalog provides the typed, read-only view of the shade catalog
// for one case product: the Brand/Variant snapshot types, the Index built
// from them, and the data sources that supply snapshots (HTTP service or a
// lab-local sqlite replica).
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ErrCatalogUnavailable indicates the external catalog source could not
// supply data. Callers recover by resolving against EmptyIndex; resolution
// then degrades to raw-text fallback rather than failing the operation.
var ErrCatalogUnavailable = errors.New("catalog unavailable")

// Brand is a top-level catalog grouping (a shade system). Brands and their
// variants are immutable once a snapshot is built.
type Brand struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	SystemName string    `json:"systemName,omitempty"`
	Variants   []Variant `json:"variants"`
}

// Variant is a selectable shade within a brand. A variant belongs to exactly
// one brand for the snapshot's lifetime.
type Variant struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Sequence int     `json:"sequence,omitempty"`
	Price    float64 `json:"price,omitempty"`
}

// DataSource supplies the catalog for a subject. Implementations live behind
// this interface so the engine and CLI can swap the HTTP service for the
// sqlite replica (or a test fake).
type DataSource interface {
	FetchCatalog(ctx context.Context, subjectID int64) ([]Brand, error)
}

// Index is an immutable per-subject snapshot of the catalog. A nil or empty
// index is valid and matches nothing.
type Index struct {
	subjectID int64
	brands    []Brand
}

// NewIndex builds an index over the given brands.
func NewIndex(subjectID int64, brands []Brand) *Index {
	return &Index{subjectID: subjectID, brands: brands}
}

// EmptyIndex returns an index that matches nothing, used when the catalog
// source is unavailable.
func EmptyIndex(subjectID int64) *Index {
	return &Index{subjectID: subjectID}
}

// Load fetches the subject's catalog from src and wraps it in an Index.
// Failures are wrapped with ErrCatalogUnavailable.
func Load(ctx context.Context, src DataSource, subjectID int64) (*Index, error) {
	brands, err := src.FetchCatalog(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	return NewIndex(subjectID, brands), nil
}

// SubjectID returns the subject the snapshot was loaded for.
func (i *Index) SubjectID() int64 {
	if i == nil {
		return 0
	}
	return i.subjectID
}

// Brands returns the snapshot's brands in catalog order.
func (i *Index) Brands() []Brand {
	if i == nil {
		return nil
	}
	return i.brands
}

// Len returns the number of brands in the snapshot.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.brands)
}

// FindBrandsWithVariant scans every brand for a variant matching the
// selector and returns the owning brands in catalog order. The selector
// matches on variant name, id, or id-as-string.
func (i *Index) FindBrandsWithVariant(selector string) []Brand {
	if i == nil {
		return nil
	}
	var out []Brand
	for _, b := range i.brands {
		for _, v := range b.Variants {
			if VariantMatches(v, selector) {
				out = append(out, b)
				break
			}
		}
	}
	return out
}

// VariantMatches reports whether the selector identifies v exactly, either by
// name or by id rendered as a string.
func VariantMatches(v Variant, selector string) bool {
	if v.Name == selector {
		return true
	}
	return strconv.FormatInt(v.ID, 10) == selector
}

// Fingerprint computes a stable hash over the snapshot's ids and names. Two
// snapshots with identical content produce the same fingerprint, so the
// engine can notice catalog drift between refreshes without diffing.
func (i *Index) Fingerprint() uint64 {
	h := xxhash.New()
	if i == nil {
		return h.Sum64()
	}
	for _, b := range i.brands {
		// separators prevent adjacent fields from running together
		_, _ = h.WriteString(strconv.FormatInt(b.ID, 10))
		_, _ = h.WriteString("/")
		_, _ = h.WriteString(b.Name)
		_, _ = h.WriteString("/")
		_, _ = h.WriteString(b.SystemName)
		_, _ = h.WriteString(";")
		for _, v := range b.Variants {
			_, _ = h.WriteString(strconv.FormatInt(v.ID, 10))
			_, _ = h.WriteString("/")
			_, _ = h.WriteString(v.Name)
			_, _ = h.WriteString(",")
		}
	}
	return h.Sum64()
}
