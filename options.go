package vecmod

import (
	"log/slog"

	"github.com/hupe1980/vecmod/binaryset"
	"github.com/hupe1980/vecmod/index"
	"github.com/hupe1980/vecmod/loader"
	"github.com/hupe1980/vecmod/logging"
	"github.com/hupe1980/vecmod/observability"
)

type options struct {
	registry    *index.Registry
	loaderOpts  []loader.Option
	logger      *logging.Logger
	observer    observability.Observer
	compression binaryset.Compression
}

// Option configures a Runtime.
type Option func(*options)

// WithRegistry sets the type registry. Defaults to index.DefaultRegistry,
// which already holds the built-in types.
func WithRegistry(r *index.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithLoaderOptions passes options to the module loader.
//
// Example serving modules linked into the binary:
//
//	opener := loader.NewStaticOpener()
//	opener.AddExports("simplevector.so", simplevector.Exports())
//	rt := vecmod.New(vecmod.WithLoaderOptions(loader.WithOpener(opener)))
func WithLoaderOptions(optFns ...loader.Option) Option {
	return func(o *options) {
		o.loaderOpts = append(o.loaderOpts, optFns...)
	}
}

// WithLogger configures structured logging.
// Pass nil to disable logging.
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = logging.NewText(level)
	}
}

// WithObserver configures the metrics observer shared by the loader and
// the bridge.
func WithObserver(obs observability.Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithCompression sets the compression Save applies to binary sets.
func WithCompression(c binaryset.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		registry:    index.DefaultRegistry,
		observer:    observability.Noop{},
		logger:      logging.Noop(),
		compression: binaryset.CompressionNone,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.registry == nil {
		o.registry = index.DefaultRegistry
	}
	o.logger = logging.OrNoop(o.logger)
	o.observer = observability.OrNoop(o.observer)
	return o
}
