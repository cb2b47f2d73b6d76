// Package configuration holds and mutates the two per-side configuration
// records of each case product. It is the single write path for resolved
// shade attributes; the arch propagation rule runs inside every mutation so
// both sides are consistent the moment a write returns.
package configuration

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/gtuazon18/rxn3d-core/internal/resolution"
	"github.com/gtuazon18/rxn3d-core/pkg/caller"
	"github.com/gtuazon18/rxn3d-core/pkg/catalog"
	"github.com/gtuazon18/rxn3d-core/pkg/logger"
	"github.com/gtuazon18/rxn3d-core/pkg/shade"
	"github.com/gtuazon18/rxn3d-core/pkg/storage"
)

var tracer = otel.Tracer("rxn3d-core/internal/configuration")

// Store mutates configuration records through the resolver and mirrors
// primary-side writes via the arch propagator.
type Store struct {
	backend    storage.ConfigBackend
	resolver   *resolution.Resolver
	propagator *ArchPropagator
	logger     logger.Logger
}

// StoreOpt configures a Store.
type StoreOpt func(*Store)

// WithLogger sets the logger for the store and its propagator.
func WithLogger(l logger.Logger) StoreOpt {
	return func(s *Store) {
		s.logger = l
	}
}

// NewStore builds a Store over the given backend and resolver.
func NewStore(backend storage.ConfigBackend, resolver *resolution.Resolver, opts ...StoreOpt) *Store {
	s := &Store{
		backend:  backend,
		resolver: resolver,
		logger:   logger.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.propagator = NewArchPropagator(backend, s.logger)
	return s
}

// Register creates the subject and its two empty records.
func (s *Store) Register(ctx context.Context, subject storage.Subject) error {
	return s.backend.CreateSubject(ctx, subject)
}

// Remove deletes the subject and both records.
func (s *Store) Remove(ctx context.Context, subjectID int64) error {
	return s.backend.DeleteSubject(ctx, subjectID)
}

// SetAttribute resolves the selection against the catalog snapshot and
// writes the outcome into the (subject, side) record.
//
// Brand-level kinds replace the slot wholesale, which unconditionally clears
// any previously selected variant: the old variant likely does not belong to
// the new brand, and an explicit clear prevents stale id/name pairs even when
// a same-named variant exists under the new brand. Variant kinds resolve in
// the context of the slot's current brand and may rewrite it when the match
// came from another brand.
//
// The updated record pair is returned after propagation, so callers observe
// both sides in their final state.
func (s *Store) SetAttribute(
	ctx context.Context,
	cc caller.Context,
	idx *catalog.Index,
	subjectID int64,
	side shade.Side,
	kind shade.Kind,
	selection string,
) (storage.RecordPair, error) {
	ctx, span := tracer.Start(ctx, "configuration.SetAttribute")
	defer span.End()

	cc = cc.WithCorrelation()

	subject, err := s.backend.GetSubject(ctx, subjectID)
	if err != nil {
		return storage.RecordPair{}, err
	}

	rec, err := s.backend.ReadRecord(ctx, subjectID, side)
	if err != nil {
		return storage.RecordPair{}, err
	}

	group := kind.Group()
	var attr shade.ResolvedAttribute
	if kind.IsBrandLevel() {
		attr = s.resolver.ResolveBrand(ctx, idx, selection)
	} else {
		current := s.repaired(ctx, rec.Attribute(group), subjectID, side, group)
		attr = s.resolver.ResolveVariant(ctx, idx, selection, current)
	}

	rec = rec.WithAttribute(group, attr)
	if err := s.backend.WriteRecord(ctx, subjectID, side, rec); err != nil {
		return storage.RecordPair{}, err
	}

	if !attr.Resolved() {
		s.logger.WarnWithContext(ctx, "selection stored unresolved",
			zap.Int64("subject_id", subjectID),
			zap.String("side", string(side)),
			zap.String("kind", string(kind)),
			zap.String("selection", selection),
			zap.String("correlation_id", cc.CorrelationID))
	}

	if err := s.propagator.Mirror(ctx, subject, side, group, rec); err != nil {
		return storage.RecordPair{}, err
	}

	return s.backend.ReadPair(ctx, subjectID)
}

// GetAttribute returns the attribute stored for the kind's slot. Records that
// somehow carry a variant id without its owning brand id are repaired to an
// unresolved variant instead of surfacing an error.
func (s *Store) GetAttribute(ctx context.Context, subjectID int64, side shade.Side, kind shade.Kind) (shade.ResolvedAttribute, error) {
	ctx, span := tracer.Start(ctx, "configuration.GetAttribute")
	defer span.End()

	rec, err := s.backend.ReadRecord(ctx, subjectID, side)
	if err != nil {
		return shade.ResolvedAttribute{}, err
	}
	group := kind.Group()
	return s.repaired(ctx, rec.Attribute(group), subjectID, side, group), nil
}

// Clear resets the kind to fully empty. Clearing a brand-level kind drops the
// whole slot (the dependent variant with it); clearing a variant kind empties
// only the variant half.
func (s *Store) Clear(
	ctx context.Context,
	cc caller.Context,
	subjectID int64,
	side shade.Side,
	kind shade.Kind,
) (storage.RecordPair, error) {
	ctx, span := tracer.Start(ctx, "configuration.Clear")
	defer span.End()

	subject, err := s.backend.GetSubject(ctx, subjectID)
	if err != nil {
		return storage.RecordPair{}, err
	}

	rec, err := s.backend.ReadRecord(ctx, subjectID, side)
	if err != nil {
		return storage.RecordPair{}, err
	}

	group := kind.Group()
	if kind.IsBrandLevel() {
		rec = rec.WithoutAttribute(group)
	} else {
		attr := rec.Attribute(group)
		attr.VariantID = nil
		attr.VariantName = ""
		attr.RawPart2 = ""
		rec = rec.WithAttribute(group, attr)
	}

	if err := s.backend.WriteRecord(ctx, subjectID, side, rec); err != nil {
		return storage.RecordPair{}, err
	}

	if err := s.propagator.Mirror(ctx, subject, side, group, rec); err != nil {
		return storage.RecordPair{}, err
	}

	return s.backend.ReadPair(ctx, subjectID)
}

// RecordPair returns both sides of the subject for the surrounding workflow.
func (s *Store) RecordPair(ctx context.Context, subjectID int64) (storage.RecordPair, error) {
	return s.backend.ReadPair(ctx, subjectID)
}

// repaired normalizes an inconsistent attribute and logs the repair. The
// invariant is enforced by the brand-level clearing rule, so a hit here means
// a foreign writer or a bug; availability wins over strictness either way.
func (s *Store) repaired(ctx context.Context, attr shade.ResolvedAttribute, subjectID int64, side shade.Side, group shade.Group) shade.ResolvedAttribute {
	if attr.Consistent() {
		return attr
	}
	s.logger.WarnWithContext(ctx, "repairing inconsistent record: variant id without owning brand",
		zap.Int64("subject_id", subjectID),
		zap.String("side", string(side)),
		zap.String("group", string(group)))
	return attr.Normalize()
}
