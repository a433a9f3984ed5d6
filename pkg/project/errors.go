package project

import "errors"

var (
	// ErrNotFound indicates a missing manifest, metadata record, source
	// file, or usage entry.
	ErrNotFound = errors.New("not found")

	// ErrMalformed indicates a manifest or metadata record that violates
	// the schema: invalid JSON, a missing required field, or a field of
	// the wrong shape.
	ErrMalformed = errors.New("malformed")

	// ErrAlreadyExists indicates an init over an existing manifest.
	ErrAlreadyExists = errors.New("already exists")

	// ErrDuplicateUsage indicates an attempt to declare a usage for a
	// resource IRI that is already declared.
	ErrDuplicateUsage = errors.New("duplicate usage")
)
