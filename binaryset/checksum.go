package binaryset

import (
	"fmt"
	"hash/crc32"
)

// Checksum returns the CRC32 (IEEE) of data as stored per blob. It detects
// accidental corruption, not tampering.
func Checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// ChecksumMismatchError is returned when a blob's checksum does not match the
// value recorded in the container.
type ChecksumMismatchError struct {
	Key      string
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch for blob %q: expected 0x%08x, got 0x%08x", e.Key, e.Expected, e.Actual)
}

// Is reports ErrCorrupt equivalence so callers can test for any corruption.
func (e *ChecksumMismatchError) Is(target error) bool {
	return target == ErrCorrupt
}
