// Package memory provides the ephemeral in-process implementation of
// [storage.ConfigBackend]. Instances may be safely shared by multiple
// goroutines.
package memory

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"

	"github.com/gtuazon18/rxn3d-core/pkg/shade"
	"github.com/gtuazon18/rxn3d-core/pkg/storage"
)

var tracer = otel.Tracer("rxn3d-core/pkg/storage/memory")

type subjectState struct {
	subject storage.Subject
	sideA   storage.Record
	sideB   storage.Record
}

// Backend is the memory-backed ConfigBackend.
type Backend struct {
	mu       sync.RWMutex
	subjects map[int64]*subjectState
}

var _ storage.ConfigBackend = (*Backend)(nil)

// New creates an empty Backend.
func New() *Backend {
	return &Backend{
		subjects: make(map[int64]*subjectState),
	}
}

// CreateSubject implements storage.ConfigBackend.
func (b *Backend) CreateSubject(ctx context.Context, subject storage.Subject) error {
	_, span := tracer.Start(ctx, "memory.CreateSubject")
	defer span.End()

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subjects[subject.ID]; ok {
		return storage.ErrSubjectExists
	}
	b.subjects[subject.ID] = &subjectState{
		subject: subject,
		sideA:   storage.NewRecord(),
		sideB:   storage.NewRecord(),
	}
	return nil
}

// DeleteSubject implements storage.ConfigBackend.
func (b *Backend) DeleteSubject(ctx context.Context, subjectID int64) error {
	_, span := tracer.Start(ctx, "memory.DeleteSubject")
	defer span.End()

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subjects[subjectID]; !ok {
		return storage.ErrSubjectNotFound
	}
	delete(b.subjects, subjectID)
	return nil
}

// GetSubject implements storage.ConfigBackend.
func (b *Backend) GetSubject(ctx context.Context, subjectID int64) (storage.Subject, error) {
	_, span := tracer.Start(ctx, "memory.GetSubject")
	defer span.End()

	b.mu.RLock()
	defer b.mu.RUnlock()

	st, ok := b.subjects[subjectID]
	if !ok {
		return storage.Subject{}, storage.ErrSubjectNotFound
	}
	return st.subject, nil
}

// ReadRecord implements storage.ConfigBackend. The returned record is a deep
// copy; callers cannot alias backend state.
func (b *Backend) ReadRecord(ctx context.Context, subjectID int64, side shade.Side) (storage.Record, error) {
	_, span := tracer.Start(ctx, "memory.ReadRecord")
	defer span.End()

	b.mu.RLock()
	defer b.mu.RUnlock()

	st, ok := b.subjects[subjectID]
	if !ok {
		return storage.Record{}, storage.ErrSubjectNotFound
	}
	switch side {
	case shade.SideA:
		return st.sideA.Clone(), nil
	case shade.SideB:
		return st.sideB.Clone(), nil
	default:
		return storage.Record{}, storage.ErrUnknownSide
	}
}

// WriteRecord implements storage.ConfigBackend.
func (b *Backend) WriteRecord(ctx context.Context, subjectID int64, side shade.Side, record storage.Record) error {
	_, span := tracer.Start(ctx, "memory.WriteRecord")
	defer span.End()

	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.subjects[subjectID]
	if !ok {
		return storage.ErrSubjectNotFound
	}
	switch side {
	case shade.SideA:
		st.sideA = record.Clone()
	case shade.SideB:
		st.sideB = record.Clone()
	default:
		return storage.ErrUnknownSide
	}
	return nil
}

// ReadPair implements storage.ConfigBackend.
func (b *Backend) ReadPair(ctx context.Context, subjectID int64) (storage.RecordPair, error) {
	_, span := tracer.Start(ctx, "memory.ReadPair")
	defer span.End()

	b.mu.RLock()
	defer b.mu.RUnlock()

	st, ok := b.subjects[subjectID]
	if !ok {
		return storage.RecordPair{}, storage.ErrSubjectNotFound
	}
	return storage.RecordPair{
		SideA: st.sideA.Clone(),
		SideB: st.sideB.Clone(),
	}, nil
}

// Close implements storage.ConfigBackend.
func (b *Backend) Close() {}
