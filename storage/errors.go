package storage

import "errors"

// Sentinel errors for the three on-disk files and the series table.
// Callers should compare with errors.Is; wrapped occurrences carry
// extra context via fmt.Errorf("...: %w", err).
var (
	// IntegrityError
	ErrCrc16Mismatch      = errors.New("storage: crc16 mismatch")
	ErrUnknownCompression = errors.New("storage: unknown compression marker")

	// BoundsError
	ErrTooManyEntries     = errors.New("storage: too many entries for one block")
	ErrDataFileTooBig     = errors.New("storage: data file would exceed its size cap")
	ErrIndexFileTooBig    = errors.New("storage: index file would exceed its size cap")
	ErrOffsetOutsideRange = errors.New("storage: offset outside range")
	ErrOffsetNotAligned   = errors.New("storage: offset not 12-byte aligned")
	ErrArgTooSmall        = errors.New("storage: argument too small")

	// NotFound / Conflict
	ErrNotFound = errors.New("storage: series not found")
	ErrConflict = errors.New("storage: rename target already exists")
)
