// Package bridge exposes the index types of loaded modules through an
// index.Registry.
//
// A module named N is registered as PLUGIN_N so it never shadows a built-in
// type. The registry has no removal: UnregisterModule forgets the mapping,
// but the constructor stays installed and fails with ErrNotLoaded once the
// module is unloaded.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/vecmod/index"
	"github.com/hupe1980/vecmod/loader"
	"github.com/hupe1980/vecmod/logging"
	"github.com/hupe1980/vecmod/observability"
	"github.com/hupe1980/vecmod/plugin"
)

// Prefix is prepended to module names to form registered type names.
const Prefix = "PLUGIN_"

var (
	// ErrNotLoaded is returned when the named module is not loaded.
	ErrNotLoaded = errors.New("module not loaded")

	// ErrNotRegistered is returned when the named module is not registered.
	ErrNotRegistered = errors.New("module not registered")

	// ErrProbeFailed is returned when the capability probe instance cannot
	// be created.
	ErrProbeFailed = errors.New("module capability probe failed")
)

// TypeName returns the registered type name of a module.
func TypeName(module string) string {
	return Prefix + module
}

// Entry describes a registered module.
type Entry struct {
	Name         string
	Descriptor   plugin.Descriptor
	Capabilities index.Capability
	RegisteredAt time.Time
}

type options struct {
	logger   *logging.Logger
	observer observability.Observer
}

// Option configures a Bridge.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithObserver sets the metrics observer.
func WithObserver(obs observability.Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// Bridge registers loaded modules with a registry.
type Bridge struct {
	loader   *loader.Loader
	registry *index.Registry
	logger   *logging.Logger
	observer observability.Observer

	mu      sync.RWMutex
	entries map[string]Entry
}

// New creates a Bridge between l and r. A nil registry selects
// index.DefaultRegistry.
func New(l *loader.Loader, r *index.Registry, optFns ...Option) *Bridge {
	var opts options
	for _, fn := range optFns {
		fn(&opts)
	}
	if r == nil {
		r = index.DefaultRegistry
	}

	return &Bridge{
		loader:   l,
		registry: r,
		logger:   logging.OrNoop(opts.logger),
		observer: observability.OrNoop(opts.observer),
		entries:  make(map[string]Entry),
	}
}

// Loader returns the underlying loader.
func (b *Bridge) Loader() *loader.Loader {
	return b.loader
}

// RegisterModule registers the loaded module name under TypeName(name).
// Registering again overwrites the previous registration.
func (b *Bridge) RegisterModule(ctx context.Context, name string) (err error) {
	defer func() {
		b.observer.RecordRegister(name, err)
		b.logger.LogRegister(ctx, name, TypeName(name), err)
	}()

	lease, err := b.loader.Acquire(name)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrNotLoaded, name)
	}
	defer lease.Release()

	factory, err := lease.Factory()
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrNotLoaded, name, err)
	}
	desc := lease.Descriptor()

	caps, err := b.probe(ctx, factory)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrProbeFailed, name, err)
	}

	typeName := TypeName(desc.Name)
	ctor := func() (index.Index, error) {
		return b.construct(name)
	}
	if err := b.registry.Register(typeName, ctor, caps); err != nil {
		return err
	}

	b.mu.Lock()
	b.entries[name] = Entry{
		Name:         typeName,
		Descriptor:   desc,
		Capabilities: caps,
		RegisteredAt: time.Now(),
	}
	b.mu.Unlock()
	return nil
}

// probe creates one transient index to read its declared features.
func (b *Bridge) probe(ctx context.Context, factory plugin.Factory) (caps index.Capability, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	idx, err := factory.CreateIndex()
	if err != nil {
		return 0, err
	}
	if idx == nil {
		return 0, errors.New("factory returned a nil index")
	}
	defer func() {
		if cerr := idx.Close(); cerr != nil {
			b.logger.WarnContext(ctx, "closing probe index failed", "error", cerr)
		}
	}()

	return idx.Features().Capabilities(), nil
}

// construct creates an index pinned to its module until closed.
func (b *Bridge) construct(name string) (idx index.Index, err error) {
	lease, err := b.loader.Acquire(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrNotLoaded, name)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("module %q panicked creating index: %v", name, r)
		}
		if err != nil {
			lease.Release()
		}
	}()

	factory, err := lease.Factory()
	if err != nil {
		return nil, err
	}
	inner, err := factory.CreateIndex()
	if err != nil {
		return nil, err
	}
	if inner == nil {
		return nil, fmt.Errorf("module %q returned a nil index", name)
	}
	return &leasedIndex{Index: inner, lease: lease}, nil
}

// UnregisterModule forgets the registration of name. The registry keeps the
// type's constructor.
func (b *Bridge) UnregisterModule(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.entries[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNotRegistered, name)
	}
	delete(b.entries, name)
	return nil
}

// LoadAndRegisterAll loads every module in dir and registers the new ones.
// A missing directory is logged and yields no entries. Modules that fail to
// register are logged and skipped.
func (b *Bridge) LoadAndRegisterAll(ctx context.Context, dir string) ([]Entry, error) {
	descs, err := b.loader.LoadDirectory(ctx, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			b.logger.WarnContext(ctx, "module directory not found", "path", dir)
			return nil, nil
		}
		return nil, err
	}

	var out []Entry
	for _, desc := range descs {
		if err := b.RegisterModule(ctx, desc.Name); err != nil {
			continue
		}
		if e, ok := b.entry(desc.Name); ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// Initialize loads and registers the modules in dir, or in DefaultDirs when
// dir is empty.
func (b *Bridge) Initialize(ctx context.Context, dir string) error {
	dirs := []string{dir}
	if dir == "" {
		dirs = DefaultDirs()
	}

	var errs []error
	for _, d := range dirs {
		entries, err := b.LoadAndRegisterAll(ctx, d)
		if err != nil {
			b.logger.WarnContext(ctx, "module directory scan failed", "path", d, "error", err)
			errs = append(errs, err)
			continue
		}
		if len(entries) > 0 {
			b.logger.InfoContext(ctx, "modules registered", "path", d, "count", len(entries))
		}
	}
	return errors.Join(errs...)
}

// DefaultDirs returns the directories scanned by Initialize when no
// directory is given.
func DefaultDirs() []string {
	dirs := []string{
		"/usr/local/lib/vecmod/plugins",
		"/usr/lib/vecmod/plugins",
		"./plugins",
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".vecmod", "plugins"))
	}
	return dirs
}

func (b *Bridge) entry(name string) (Entry, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entries[name]
	return e, ok
}

// Registered returns all registrations sorted by registered name.
func (b *Bridge) Registered() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Entry, 0, len(b.entries))
	for _, e := range b.entries {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// RegisteredName returns the type name under which module name is registered.
func (b *Bridge) RegisteredName(name string) (string, bool) {
	e, ok := b.entry(name)
	return e.Name, ok
}

// IsRegistered reports whether module name is registered.
func (b *Bridge) IsRegistered(name string) bool {
	_, ok := b.entry(name)
	return ok
}
