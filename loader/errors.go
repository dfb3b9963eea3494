package loader

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyLoaded is returned when a path, or the module name it
	// reports, is already tracked.
	ErrAlreadyLoaded = errors.New("module already loaded")

	// ErrLoad is returned when the platform fails to open a module binary.
	ErrLoad = errors.New("module load error")

	// ErrAbiMismatch is returned when a module reports an unexpected API version.
	ErrAbiMismatch = errors.New("module api version mismatch")

	// ErrMissingExport is returned when a mandatory symbol is absent or has
	// the wrong signature.
	ErrMissingExport = errors.New("module export missing")

	// ErrFactoryCreateFailed is returned when a module yields no usable factory.
	ErrFactoryCreateFailed = errors.New("module factory creation failed")

	// ErrLoadException is returned when module code panics while loading.
	ErrLoadException = errors.New("module raised during load")

	// ErrNotFound is returned for an unknown module name.
	ErrNotFound = errors.New("module not found")

	// ErrModuleInUse is returned when unloading a module that is still leased.
	ErrModuleInUse = errors.New("module in use")

	// ErrLeaseReleased is returned when using a lease after Release.
	ErrLeaseReleased = errors.New("lease released")
)

// AbiMismatchError reports the expected and actual module API versions.
type AbiMismatchError struct {
	Path     string
	Expected uint32
	Actual   uint32
}

func (e *AbiMismatchError) Error() string {
	return fmt.Sprintf("%s: module %s reports api version %d, host expects %d", ErrAbiMismatch, e.Path, e.Actual, e.Expected)
}

func (e *AbiMismatchError) Unwrap() error {
	return ErrAbiMismatch
}

// PanicError wraps a value recovered from module code.
type PanicError struct {
	Path  string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s: module %s panicked: %v", ErrLoadException, e.Path, e.Value)
}

func (e *PanicError) Unwrap() error {
	return ErrLoadException
}
