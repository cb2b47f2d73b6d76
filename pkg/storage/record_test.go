package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gtuazon18/rxn3d-core/pkg/shade"
)

func TestRecordWithAttributeDoesNotAliasSource(t *testing.T) {
	brandID := int64(7)
	attr := shade.ResolvedAttribute{
		BrandID:   &brandID,
		BrandName: "VITA Classical",
		RawPart1:  "7",
	}

	base := NewRecord()
	updated := base.WithAttribute(shade.TeethShade, attr)

	// the source record is untouched
	require.Empty(t, base.Attributes)
	require.Equal(t, "VITA Classical", updated.Attribute(shade.TeethShade).BrandName)

	// pointer fields are copied, not shared
	*attr.BrandID = 99
	require.Equal(t, int64(7), *updated.Attribute(shade.TeethShade).BrandID)
}

func TestRecordWithoutAttribute(t *testing.T) {
	rec := NewRecord().
		WithAttribute(shade.TeethShade, shade.ResolvedAttribute{BrandName: "Ivoclar"}).
		WithAttribute(shade.GumShade, shade.ResolvedAttribute{BrandName: "Lucitone"})

	cleared := rec.WithoutAttribute(shade.TeethShade)

	require.Empty(t, cleared.Attribute(shade.TeethShade))
	require.Equal(t, "Lucitone", cleared.Attribute(shade.GumShade).BrandName)
	require.Equal(t, "Ivoclar", rec.Attribute(shade.TeethShade).BrandName)
}

func TestRecordCloneIsDeep(t *testing.T) {
	variantID := int64(42)
	rec := NewRecord().WithAttribute(shade.TeethShade, shade.ResolvedAttribute{
		BrandName:   "VITA Classical",
		VariantID:   &variantID,
		VariantName: "A1",
	})
	rec.Grade = "premium"
	rec.Stage = 3

	cp := rec.Clone()
	cp.Attributes[shade.TeethShade] = shade.ResolvedAttribute{BrandName: "other"}

	require.Equal(t, "VITA Classical", rec.Attribute(shade.TeethShade).BrandName)
	require.Equal(t, int64(42), *rec.Attribute(shade.TeethShade).VariantID)
	require.Equal(t, "premium", cp.Grade)
	require.Equal(t, int64(3), cp.Stage)
}

func TestRecordPairSide(t *testing.T) {
	pair := RecordPair{
		SideA: NewRecord().WithAttribute(shade.TeethShade, shade.ResolvedAttribute{BrandName: "upper"}),
		SideB: NewRecord().WithAttribute(shade.TeethShade, shade.ResolvedAttribute{BrandName: "lower"}),
	}

	require.Equal(t, "upper", pair.Side(shade.SideA).Attribute(shade.TeethShade).BrandName)
	require.Equal(t, "lower", pair.Side(shade.SideB).Attribute(shade.TeethShade).BrandName)
}
