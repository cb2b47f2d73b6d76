package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gtuazon18/rxn3d-core/internal/delivery"
	"github.com/gtuazon18/rxn3d-core/pkg/caller"
	"github.com/gtuazon18/rxn3d-core/pkg/catalog"
	"github.com/gtuazon18/rxn3d-core/pkg/shade"
)

type fakeSource struct {
	brands  []catalog.Brand
	err     error
	fetches atomic.Int32
}

func (s *fakeSource) FetchCatalog(context.Context, int64) ([]catalog.Brand, error) {
	s.fetches.Add(1)
	return s.brands, s.err
}

func testSource() *fakeSource {
	return &fakeSource{brands: []catalog.Brand{
		{
			ID:   7,
			Name: "VITA Classical",
			Variants: []catalog.Variant{
				{ID: 42, Name: "A1"},
			},
		},
	}}
}

func noopCompute(context.Context, int64, int64) (delivery.Estimate, error) {
	return delivery.Estimate{}, nil
}

func TestEngineSetAndGetAttribute(t *testing.T) {
	ctx := context.Background()
	e, err := New(testSource(), noopCompute)
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.AddSubject(ctx, 1, true))

	pair, err := e.SetAttribute(ctx, caller.Context{TenantID: "lab-9"}, 1, shade.SideA, shade.TeethShadeBrand, "vita classical")
	require.NoError(t, err)
	require.Equal(t, int64(7), *pair.SideA.Attribute(shade.TeethShade).BrandID)

	// propagated to the secondary arch
	b, err := e.GetAttribute(ctx, 1, shade.SideB, shade.TeethShadeBrand)
	require.NoError(t, err)
	require.Equal(t, int64(7), *b.BrandID)
}

func TestEngineSnapshotReuse(t *testing.T) {
	ctx := context.Background()
	src := testSource()
	e, err := New(src, noopCompute)
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.AddSubject(ctx, 1, false))

	for i := 0; i < 5; i++ {
		_, err := e.SetAttribute(ctx, caller.Context{}, 1, shade.SideA, shade.TeethShadeBrand, "VITA Classical")
		require.NoError(t, err)
	}
	require.Equal(t, int32(1), src.fetches.Load())
}

func TestEngineDegradesWhenCatalogUnavailable(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{err: errors.New("connection refused")}
	e, err := New(src, noopCompute)
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.AddSubject(ctx, 1, false))

	pair, err := e.SetAttribute(ctx, caller.Context{}, 1, shade.SideA, shade.TeethShadeBrand, "VITA Classical")
	require.NoError(t, err)

	attr := pair.SideA.Attribute(shade.TeethShade)
	require.Nil(t, attr.BrandID)
	require.Equal(t, "VITA Classical", attr.RawPart1)

	// the failure is not cached; each operation retries the source
	_, err = e.SetAttribute(ctx, caller.Context{}, 1, shade.SideA, shade.TeethShadeBrand, "VITA Classical")
	require.NoError(t, err)
	require.Equal(t, int32(2), src.fetches.Load())
}

func TestEngineChangeNotifications(t *testing.T) {
	ctx := context.Background()
	e, err := New(testSource(), noopCompute)
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.AddSubject(ctx, 1, true))

	events, cancel := e.Subscribe()
	defer cancel()

	_, err = e.SetAttribute(ctx, caller.Context{}, 1, shade.SideA, shade.TeethShadeBrand, "VITA Classical")
	require.NoError(t, err)

	select {
	case ev := <-events:
		require.Equal(t, int64(1), ev.SubjectID)
		require.Equal(t, shade.SideA, ev.Side)
		require.Equal(t, shade.TeethShadeBrand, ev.Kind)
		require.NotEmpty(t, ev.CorrelationID)
		// the event carries the propagated pair
		require.Equal(t, int64(7), *ev.Pair.SideB.Attribute(shade.TeethShade).BrandID)
	case <-time.After(time.Second):
		t.Fatal("expected a change event")
	}

	_, err = e.Clear(ctx, caller.Context{}, 1, shade.SideA, shade.TeethShadeBrand)
	require.NoError(t, err)

	select {
	case ev := <-events:
		require.NotContains(t, ev.Pair.SideA.Attributes, shade.TeethShade)
	case <-time.After(time.Second):
		t.Fatal("expected a change event for clear")
	}
}

func TestEngineDeliveryEstimateMemoized(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	e, err := New(testSource(), func(context.Context, int64, int64) (delivery.Estimate, error) {
		calls.Add(1)
		return delivery.Estimate{BusinessDays: 4}, nil
	})
	require.NoError(t, err)
	defer e.Close()

	for i := 0; i < 3; i++ {
		est, err := e.DeliveryEstimate(ctx, 1, 2)
		require.NoError(t, err)
		require.Equal(t, 4, est.BusinessDays)
	}
	require.Equal(t, int32(1), calls.Load())
}

func TestEngineRefreshCatalog(t *testing.T) {
	ctx := context.Background()
	src := testSource()
	e, err := New(src, noopCompute)
	require.NoError(t, err)
	defer e.Close()

	idx, err := e.RefreshCatalog(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, idx.Len())

	src.brands[0].Name = "VITA Classical II"
	idx, err = e.RefreshCatalog(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "VITA Classical II", idx.Brands()[0].Name)

	src.err = errors.New("down")
	_, err = e.RefreshCatalog(ctx, 1)
	require.ErrorIs(t, err, catalog.ErrCatalogUnavailable)
}

func TestEngineRemoveSubject(t *testing.T) {
	ctx := context.Background()
	e, err := New(testSource(), noopCompute)
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.AddSubject(ctx, 1, false))
	require.NoError(t, e.RemoveSubject(ctx, 1))

	_, err = e.RecordPair(ctx, 1)
	require.Error(t, err)
}

func TestEngineWarmCatalogs(t *testing.T) {
	src := testSource()
	e, err := New(src, noopCompute, WithSnapshotTTL(time.Minute))
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.WarmCatalogs(context.Background(), []int64{1, 2, 3}, 2))
	require.Equal(t, int32(3), src.fetches.Load())

	// warmed subjects are served from the snapshot cache
	_, err = e.SetAttribute(context.Background(), caller.Context{}, 2, shade.SideA, shade.TeethShadeBrand, "VITA Classical")
	require.Error(t, err) // subject 2 was never added, but no extra fetch happened
	require.Equal(t, int32(3), src.fetches.Load())
}
