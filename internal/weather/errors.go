package weather

import "errors"

var (
	// ErrMissingInput is returned when a stage input file does not exist.
	ErrMissingInput = errors.New("missing input")
	// ErrMalformedInput is returned when an input cannot be parsed at all.
	ErrMalformedInput = errors.New("malformed input")
	// ErrWrite is returned when a stage cannot create or write its output.
	ErrWrite = errors.New("write failure")
)
