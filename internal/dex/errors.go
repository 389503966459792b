package dex

import "errors"

// Normalization and classification errors. Both are recoverable: the
// orchestrator skips the single transaction and continues the batch.
var (
	// ErrUnsupportedFormat is returned when a payload matches no known
	// protocol shape.
	ErrUnsupportedFormat = errors.New("unsupported transaction format")

	// ErrMissingField is returned when a required numeric or identifier
	// field is absent or non-numeric. Wrapped with the field name.
	ErrMissingField = errors.New("missing or invalid field")

	// ErrUnknownVenue is returned when no known protocol signature matches
	// the transaction.
	ErrUnknownVenue = errors.New("unknown venue")
)
