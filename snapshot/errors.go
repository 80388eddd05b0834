package snapshot

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMagic is returned when the input does not start with "SITE".
	ErrInvalidMagic = errors.New("snapshot: invalid magic")

	// ErrUnsupportedVersion is returned for snapshots written by a newer format.
	ErrUnsupportedVersion = errors.New("snapshot: unsupported version")

	// ErrUnknownCodec is returned when the recorded codec is not built in.
	ErrUnknownCodec = errors.New("snapshot: unknown codec")

	// ErrUnknownCompression is returned for an unknown compression id or name.
	ErrUnknownCompression = errors.New("snapshot: unknown compression")

	// ErrCoordinateType is returned when a snapshot is decoded with a
	// different coordinate type than it was written with.
	ErrCoordinateType = errors.New("snapshot: coordinate type mismatch")

	// ErrTruncated is returned when the payload is shorter than its header claims.
	ErrTruncated = errors.New("snapshot: truncated")

	// ErrTooLarge is returned when a tree or a header size exceeds MaxSize.
	ErrTooLarge = errors.New("snapshot: too large")
)

// ChecksumMismatchError is returned when checksum verification fails.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("snapshot: checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}

// IsChecksumMismatch returns true if err is or wraps a checksum mismatch error.
func IsChecksumMismatch(err error) bool {
	var target *ChecksumMismatchError
	return errors.As(err, &target)
}
