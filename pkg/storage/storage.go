// Package storage defines the persistence seam for case configuration
// records. The configuration store in internal/configuration is the only
// writer; backends just hold state.
package storage

import (
	"context"

	"github.com/gtuazon18/rxn3d-core/pkg/shade"
)

// ConfigBackend stores subjects and their per-side configuration records.
// Implementations must be safe for concurrent use.
type ConfigBackend interface {

	// CreateSubject registers a subject and its two empty records.
	CreateSubject(ctx context.Context, subject Subject) error

	// DeleteSubject removes the subject and both records.
	DeleteSubject(ctx context.Context, subjectID int64) error

	// GetSubject returns the subject's registration.
	GetSubject(ctx context.Context, subjectID int64) (Subject, error)

	// ReadRecord returns a copy of one side's record.
	ReadRecord(ctx context.Context, subjectID int64, side shade.Side) (Record, error)

	// WriteRecord replaces one side's record wholesale.
	WriteRecord(ctx context.Context, subjectID int64, side shade.Side, record Record) error

	// ReadPair returns copies of both records.
	ReadPair(ctx context.Context, subjectID int64) (RecordPair, error)

	// Close releases backend resources.
	Close()
}
