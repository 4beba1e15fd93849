package wire

import "errors"

var (
	// ErrTruncated indicates fewer bytes remain than a field requires.
	ErrTruncated = errors.New("truncated input")
	// ErrInvalidText indicates string bytes that are not valid UTF-8.
	ErrInvalidText = errors.New("invalid UTF-8 text")
)
