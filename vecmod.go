package vecmod

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/vecmod/binaryset"
	"github.com/hupe1980/vecmod/blobstore"
	"github.com/hupe1980/vecmod/bridge"
	"github.com/hupe1980/vecmod/index"
	"github.com/hupe1980/vecmod/loader"
	"github.com/hupe1980/vecmod/logging"

	// built-in index types
	_ "github.com/hupe1980/vecmod/index/flat"
)

// ErrClosed is returned by operations on a closed Runtime.
var ErrClosed = errors.New("runtime closed")

// Runtime owns a type registry, a module loader and the bridge between them.
type Runtime struct {
	opts     options
	registry *index.Registry
	loader   *loader.Loader
	bridge   *bridge.Bridge
	logger   *logging.Logger

	mu     sync.RWMutex
	closed bool
}

// New creates a Runtime. No modules are loaded until Initialize.
func New(optFns ...Option) *Runtime {
	opts := applyOptions(optFns)

	loaderOpts := append([]loader.Option{
		loader.WithLogger(opts.logger),
		loader.WithObserver(opts.observer),
	}, opts.loaderOpts...)
	l := loader.New(loaderOpts...)

	return &Runtime{
		opts:     opts,
		registry: opts.registry,
		loader:   l,
		bridge:   bridge.New(l, opts.registry, bridge.WithLogger(opts.logger), bridge.WithObserver(opts.observer)),
		logger:   opts.logger,
	}
}

// Registry returns the type registry.
func (r *Runtime) Registry() *index.Registry { return r.registry }

// Loader returns the module loader.
func (r *Runtime) Loader() *loader.Loader { return r.loader }

// Bridge returns the registry bridge.
func (r *Runtime) Bridge() *bridge.Bridge { return r.bridge }

// Initialize loads and registers the modules in dir, or in the default
// module directories when dir is empty.
func (r *Runtime) Initialize(ctx context.Context, dir string) error {
	if err := r.check(); err != nil {
		return err
	}
	return r.bridge.Initialize(ctx, dir)
}

// Create returns a new, unbuilt index of the given registered type.
func (r *Runtime) Create(typeName string) (index.Index, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	return r.registry.Create(typeName)
}

// Types returns the registered type names.
func (r *Runtime) Types() []string {
	return r.registry.Names()
}

// Save serializes idx and writes it to store under name.
func (r *Runtime) Save(ctx context.Context, store blobstore.Store, name string, idx index.Index, optFns ...binaryset.EncodeOption) error {
	set, err := idx.Serialize(nil)
	if err != nil {
		return fmt.Errorf("serialize %s index: %w", idx.Type(), err)
	}
	opts := append([]binaryset.EncodeOption{binaryset.WithCompression(r.opts.compression)}, optFns...)
	if err := binaryset.Save(ctx, store, name, set, opts...); err != nil {
		return fmt.Errorf("save %q: %w", name, err)
	}
	r.logger.InfoContext(ctx, "index saved", "name", name, "type", idx.Type(), "blobs", set.Len(), "bytes", set.Size())
	return nil
}

// Load reads the binary set stored under name into a new index of typeName.
func (r *Runtime) Load(ctx context.Context, store blobstore.Store, name, typeName string, cfg index.Config) (index.Index, error) {
	set, err := binaryset.Load(ctx, store, name)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", name, err)
	}
	idx, err := r.Create(typeName)
	if err != nil {
		return nil, err
	}
	if err := idx.Deserialize(set, cfg); err != nil {
		return nil, errors.Join(fmt.Errorf("deserialize %q: %w", name, err), idx.Close())
	}
	return idx, nil
}

// Close unloads every module. Indexes created from modules must be closed
// first; modules they pin are skipped and reported in the returned error.
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	return r.loader.UnloadAll(ctx)
}

func (r *Runtime) check() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrClosed
	}
	return nil
}

var (
	defaultOnce    sync.Once
	defaultRuntime *Runtime
	defaultMu      sync.Mutex
)

// Default returns the process-wide Runtime, creating it on first use with
// index.DefaultRegistry and no modules loaded.
func Default() *Runtime {
	defaultOnce.Do(func() {
		defaultMu.Lock()
		defaultRuntime = New()
		defaultMu.Unlock()
	})
	return defaultRuntime
}

// Shutdown closes the process-wide Runtime if it was created. Call it before
// process exit so module unload hooks run.
func Shutdown(ctx context.Context) error {
	defaultMu.Lock()
	rt := defaultRuntime
	defaultMu.Unlock()

	if rt == nil {
		return nil
	}
	return rt.Close(ctx)
}
