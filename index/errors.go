package index

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument covers bad shapes, unknown settings, out-of-range ids
	// and malformed serialized state.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotImplemented is returned for optional operations an index does not support.
	ErrNotImplemented = errors.New("not implemented")

	// ErrNotBuilt is returned by operations that require a built index.
	ErrNotBuilt = errors.New("index not built")

	// ErrAlreadyBuilt is returned by Build on a built index.
	ErrAlreadyBuilt = fmt.Errorf("%w: index already built", ErrInvalidArgument)
)

// DimensionMismatchError reports vectors whose dimension differs from the index.
type DimensionMismatchError struct {
	Expected int64
	Actual   int64
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrInvalidArgument }

// IDOutOfRangeError names the first requested id outside [0, Count).
type IDOutOfRangeError struct {
	ID    int64
	Count int64
}

func (e *IDOutOfRangeError) Error() string {
	return fmt.Sprintf("id %d out of range [0, %d)", e.ID, e.Count)
}

func (e *IDOutOfRangeError) Unwrap() error { return ErrInvalidArgument }

// MissingBlobError names a blob required by Deserialize.
type MissingBlobError struct {
	Key string
}

func (e *MissingBlobError) Error() string {
	return fmt.Sprintf("missing blob %q", e.Key)
}

func (e *MissingBlobError) Unwrap() error { return ErrInvalidArgument }

// ConfigError reports a setting with a wrong type or out-of-range value.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %q: %s", e.Key, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidArgument }
