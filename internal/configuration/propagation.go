package configuration

import (
	"context"

	"go.uber.org/zap"

	"github.com/gtuazon18/rxn3d-core/pkg/logger"
	"github.com/gtuazon18/rxn3d-core/pkg/shade"
	"github.com/gtuazon18/rxn3d-core/pkg/storage"
)

// ArchPropagator keeps the two arches of a dual-sided subject in sync:
// whenever the primary side's record changes, the affected slot is copied
// verbatim onto the secondary side within the same logical operation.
//
// Propagation is one-directional. Edits made directly to sideB stay on
// sideB, and a single-sided subject never propagates at all. Unresolved
// raw-text state mirrors as-is; the secondary side gets the primary's exact
// outcome, not an independent re-resolution.
type ArchPropagator struct {
	backend storage.ConfigBackend
	logger  logger.Logger
}

// NewArchPropagator builds an ArchPropagator over the backend.
func NewArchPropagator(backend storage.ConfigBackend, log logger.Logger) *ArchPropagator {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &ArchPropagator{backend: backend, logger: log}
}

// Mirror copies the group's slot from the just-written source record onto
// sideB. It is a no-op for sideB writes and for single-sided subjects. The
// mirror runs synchronously; both sides are consistent before the triggering
// mutation returns.
func (p *ArchPropagator) Mirror(
	ctx context.Context,
	subject storage.Subject,
	side shade.Side,
	group shade.Group,
	source storage.Record,
) error {
	if side != shade.SideA || !subject.DualSided {
		return nil
	}

	ctx, span := tracer.Start(ctx, "configuration.Mirror")
	defer span.End()

	target, err := p.backend.ReadRecord(ctx, subject.ID, shade.SideB)
	if err != nil {
		return err
	}

	if attr, ok := source.Attributes[group]; ok {
		target = target.WithAttribute(group, attr)
	} else {
		target = target.WithoutAttribute(group)
	}

	if err := p.backend.WriteRecord(ctx, subject.ID, shade.SideB, target); err != nil {
		return err
	}

	p.logger.DebugWithContext(ctx, "mirrored attribute slot to secondary arch",
		zap.Int64("subject_id", subject.ID),
		zap.String("group", string(group)))

	return nil
}
