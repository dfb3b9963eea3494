package loader

import (
	"runtime"

	"github.com/hupe1980/vecmod/logging"
	"github.com/hupe1980/vecmod/observability"
	"github.com/hupe1980/vecmod/plugin"
)

type options struct {
	opener     Opener
	apiVersion uint32
	extensions []string
	logger     *logging.Logger
	observer   observability.Observer
}

// Option configures a Loader.
type Option func(*options)

// WithOpener sets how module binaries are opened. Defaults to GoPluginOpener.
func WithOpener(o Opener) Option {
	return func(opts *options) {
		opts.opener = o
	}
}

// WithAPIVersion sets the module API version the loader accepts.
// Defaults to plugin.APIVersion.
func WithAPIVersion(v uint32) Option {
	return func(opts *options) {
		opts.apiVersion = v
	}
}

// WithExtensions sets the file extensions LoadDirectory considers,
// including the leading dot.
func WithExtensions(exts ...string) Option {
	return func(opts *options) {
		opts.extensions = exts
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(opts *options) {
		opts.logger = l
	}
}

// WithObserver sets the metrics observer.
func WithObserver(o observability.Observer) Option {
	return func(opts *options) {
		opts.observer = o
	}
}

// DefaultExtensions returns the dynamic library suffixes of the platform.
func DefaultExtensions() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{".so", ".dylib"}
	case "windows":
		return []string{".dll"}
	default:
		return []string{".so"}
	}
}

func defaultOptions() options {
	return options{
		opener:     GoPluginOpener{},
		apiVersion: plugin.APIVersion,
		extensions: DefaultExtensions(),
	}
}
