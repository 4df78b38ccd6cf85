package project

import "errors"

// Sentinel errors for the mutation core. The API layer maps each of these to
// a stable machine-readable code; handlers and tests match with errors.Is.
var (
	// ErrNotFound covers both a missing project and a project owned by a
	// different caller. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("project not found")

	// ErrInvalidTaskIndex is returned for an out-of-range or non-integer
	// main-task position.
	ErrInvalidTaskIndex = errors.New("invalid task index")

	// ErrInvalidSubtaskIndex is the subtask analogue of ErrInvalidTaskIndex.
	ErrInvalidSubtaskIndex = errors.New("invalid subtask index")

	// ErrMalformedStructure is returned by the normalizer when a candidate
	// tree is missing required fields or cannot be decoded.
	ErrMalformedStructure = errors.New("project structure is missing required fields")

	// ErrConflict is returned by a store when a save loses a concurrent-write
	// race (revision mismatch).
	ErrConflict = errors.New("project was modified concurrently")

	// ErrValidation is returned for field-level input problems: empty
	// required fields, values outside the status or priority enums.
	ErrValidation = errors.New("validation error")
)
