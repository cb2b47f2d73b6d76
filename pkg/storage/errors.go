package storage

import "errors"

var (
	// ErrSubjectNotFound is returned for operations on a subject that was
	// never registered or was already removed.
	ErrSubjectNotFound = errors.New("subject not found")

	// ErrSubjectExists is returned when registering a subject id twice.
	ErrSubjectExists = errors.New("subject already exists")

	// ErrUnknownSide is returned for a side outside sideA/sideB.
	ErrUnknownSide = errors.New("unknown side")
)
