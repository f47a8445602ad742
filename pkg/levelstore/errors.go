package levelstore

import "github.com/rotisserie/eris"

var (
	// ErrUnsupportedVersion is returned when a level was written by an incompatible encoder.
	ErrUnsupportedVersion = eris.New("unsupported level version")
	// ErrCorruptLevel is returned when a level's sections are inconsistent.
	ErrCorruptLevel = eris.New("level data is corrupt")
	// ErrLevelNotFound is returned when a named level doesn't exist in the store.
	ErrLevelNotFound = eris.New("level not found")
)
