package text

import "errors"

var (
	// ErrInvalidFont is returned when font data cannot be parsed.
	ErrInvalidFont = errors.New("text: invalid font data")

	// ErrEmptyCascade is returned when a cascade has no sources.
	ErrEmptyCascade = errors.New("text: cascade has no font sources")
)
