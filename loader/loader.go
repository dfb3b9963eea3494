// Package loader discovers, loads and unloads index modules.
//
// A Loader tracks every loaded module twice: by the path it was opened from
// and by the name in its descriptor. One lock serializes loads and unloads
// and is shared by queries, so a factory is never observed while its module
// is being torn down. Callers that keep using a factory across calls hold a
// Lease, which blocks unloading until released.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/vecmod/logging"
	"github.com/hupe1980/vecmod/observability"
	"github.com/hupe1980/vecmod/plugin"
)

// Info describes a loaded module.
type Info struct {
	Path         string
	Descriptor   plugin.Descriptor
	LoadID       uuid.UUID
	LoadedAt     time.Time
	Leases       int64
	HasLifecycle bool
}

type module struct {
	path      string
	desc      plugin.Descriptor
	loadID    uuid.UUID
	loadedAt  time.Time
	lib       Library
	factory   plugin.Factory
	destroy   plugin.DestroyFactoryFunc
	lifecycle plugin.Lifecycle
	leases    atomic.Int64
}

func (m *module) info() Info {
	return Info{
		Path:         m.path,
		Descriptor:   m.desc,
		LoadID:       m.loadID,
		LoadedAt:     m.loadedAt,
		Leases:       m.leases.Load(),
		HasLifecycle: m.lifecycle != nil,
	}
}

// Loader owns the loaded modules of a process.
type Loader struct {
	mu     sync.RWMutex
	byPath map[string]*module
	byName map[string]*module

	opts     options
	logger   *logging.Logger
	observer observability.Observer
}

// New creates a Loader with no modules loaded.
func New(optFns ...Option) *Loader {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.opener == nil {
		opts.opener = GoPluginOpener{}
	}

	return &Loader{
		byPath:   make(map[string]*module),
		byName:   make(map[string]*module),
		opts:     opts,
		logger:   logging.OrNoop(opts.logger),
		observer: observability.OrNoop(opts.observer),
	}
}

// APIVersion returns the module API version the loader accepts.
func (l *Loader) APIVersion() uint32 {
	return l.opts.apiVersion
}

// LoadDirectory loads every regular file in dir with a recognized extension.
// Files that fail to load are logged and skipped. It fails only when dir
// cannot be read, and returns the descriptors of the newly loaded modules.
func (l *Loader) LoadDirectory(ctx context.Context, dir string) ([]plugin.Descriptor, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read module directory: %w", err)
	}

	var loaded []plugin.Descriptor
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return loaded, err
		}
		if !l.hasExtension(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		// Stat follows symlinks so linked modules are loaded too.
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		desc, err := l.LoadOne(ctx, path)
		if err != nil {
			if errors.Is(err, ErrAlreadyLoaded) {
				l.logger.DebugContext(ctx, "module skipped", "path", path, "error", err)
			}
			continue
		}
		loaded = append(loaded, desc)
	}
	return loaded, nil
}

func (l *Loader) hasExtension(name string) bool {
	ext := filepath.Ext(name)
	for _, e := range l.opts.extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// LoadOne loads the module at path and returns its descriptor.
//
// On any failure the library is closed and nothing is retained.
func (l *Loader) LoadOne(ctx context.Context, path string) (desc plugin.Descriptor, err error) {
	start := time.Now()
	if abs, aerr := filepath.Abs(path); aerr == nil {
		path = abs
	}
	defer func() {
		target := desc.Name
		if target == "" {
			target = filepath.Base(path)
		}
		l.observer.RecordLoad(target, time.Since(start), err)
		l.logger.LogLoad(ctx, path, desc.Name, desc.Version, time.Since(start), err)
	}()

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.byPath[path]; ok {
		return plugin.Descriptor{}, fmt.Errorf("%w: %s", ErrAlreadyLoaded, path)
	}

	m, err := l.open(ctx, path)
	if err != nil {
		return plugin.Descriptor{}, err
	}

	if other, ok := l.byName[m.desc.Name]; ok {
		// OnLoad already ran, so the rollback pairs it with OnUnload.
		_ = l.teardown(ctx, m, true)
		return plugin.Descriptor{}, fmt.Errorf("%w: %q is provided by %s", ErrAlreadyLoaded, m.desc.Name, other.path)
	}

	l.byPath[path] = m
	l.byName[m.desc.Name] = m
	return m.desc, nil
}

// open runs the load sequence. A panic in module code is converted into a
// PanicError and the library is closed.
func (l *Loader) open(ctx context.Context, path string) (m *module, err error) {
	lib, err := l.opts.opener.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoad, path, err)
	}

	var (
		factory plugin.Factory
		destroy plugin.DestroyFactoryFunc
	)
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Path: path, Value: r, Stack: debug.Stack()}
		}
		if err != nil {
			if factory != nil && destroy != nil {
				safeCall(func() { destroy(factory) })
			}
			_ = lib.Close()
		}
	}()

	// The version check precedes every other symbol.
	version, err := resolve[plugin.APIVersionFunc](lib, plugin.SymbolAPIVersion)
	if err != nil {
		return nil, err
	}
	if v := version(); v != l.opts.apiVersion {
		return nil, &AbiMismatchError{Path: path, Expected: l.opts.apiVersion, Actual: v}
	}

	create, err := resolve[plugin.CreateFactoryFunc](lib, plugin.SymbolCreateFactory)
	if err != nil {
		return nil, err
	}
	if destroy, err = resolve[plugin.DestroyFactoryFunc](lib, plugin.SymbolDestroyFactory); err != nil {
		return nil, err
	}

	if factory = create(); factory == nil {
		return nil, fmt.Errorf("%w: %s returned nil", ErrFactoryCreateFailed, plugin.SymbolCreateFactory)
	}
	desc := factory.Descriptor()
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFactoryCreateFailed, err)
	}

	var lifecycle plugin.Lifecycle
	if _, lerr := lib.Lookup(plugin.SymbolLifecycle); lerr == nil {
		get, err := resolve[plugin.LifecycleFunc](lib, plugin.SymbolLifecycle)
		if err != nil {
			return nil, err
		}
		lifecycle = get()
	}
	if lifecycle != nil {
		if herr := lifecycle.OnLoad(); herr != nil {
			l.logger.WithModule(desc.Name).WithPath(path).WarnContext(ctx, "module load hook failed", "error", herr)
		}
	}

	return &module{
		path:      path,
		desc:      desc,
		loadID:    uuid.New(),
		loadedAt:  time.Now(),
		lib:       lib,
		factory:   factory,
		destroy:   destroy,
		lifecycle: lifecycle,
	}, nil
}

// resolve looks up symbol and checks it against the expected signature.
// Exported functions resolve to T, exported variables to *T.
func resolve[T any](lib Library, symbol string) (T, error) {
	var zero T

	sym, err := lib.Lookup(symbol)
	if err != nil {
		return zero, fmt.Errorf("%w: %s: %v", ErrMissingExport, symbol, err)
	}
	switch fn := sym.(type) {
	case T:
		return fn, nil
	case *T:
		if fn != nil {
			return *fn, nil
		}
	}
	return zero, fmt.Errorf("%w: %s has unexpected type %T", ErrMissingExport, symbol, sym)
}

// UnloadOne unloads the module registered under name. The unload hook is
// advisory; the module is removed even if the hook fails.
func (l *Loader) UnloadOne(ctx context.Context, name string) (err error) {
	defer func() {
		l.observer.RecordUnload(name, err)
		l.logger.LogUnload(ctx, name, err)
	}()

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.unloadLocked(ctx, name)
}

func (l *Loader) unloadLocked(ctx context.Context, name string) error {
	m, ok := l.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if n := m.leases.Load(); n > 0 {
		return fmt.Errorf("%w: %q has %d active leases", ErrModuleInUse, name, n)
	}

	delete(l.byName, name)
	delete(l.byPath, m.path)
	return l.teardown(ctx, m, true)
}

// teardown runs the unload hook, destroys the factory and closes the library.
func (l *Loader) teardown(ctx context.Context, m *module, notify bool) error {
	if notify && m.lifecycle != nil {
		if err := safeErr(m.lifecycle.OnUnload); err != nil {
			l.logger.WarnContext(ctx, "module unload hook failed", "module", m.desc.Name, "error", err)
		}
	}
	if err := safeErr(func() error { m.destroy(m.factory); return nil }); err != nil {
		l.logger.WarnContext(ctx, "module factory destroy failed", "module", m.desc.Name, "error", err)
	}
	m.factory = nil
	if err := m.lib.Close(); err != nil {
		return fmt.Errorf("close module %q: %w", m.desc.Name, err)
	}
	return nil
}

// UnloadAll unloads every module, continuing past failures. Leased modules
// are skipped. The returned error joins the individual failures.
func (l *Loader) UnloadAll(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	names := make([]string, 0, len(l.byName))
	for name := range l.byName {
		names = append(names, name)
	}
	slices.Sort(names)

	var errs []error
	for _, name := range names {
		err := l.unloadLocked(ctx, name)
		l.observer.RecordUnload(name, err)
		l.logger.LogUnload(ctx, name, err)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Factory returns the factory of a loaded module. The factory is valid only
// until the module is unloaded; use Acquire to pin it.
func (l *Loader) Factory(name string) (plugin.Factory, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	m, ok := l.byName[name]
	if !ok {
		return nil, false
	}
	return m.factory, true
}

// Descriptor returns the descriptor of a loaded module.
func (l *Loader) Descriptor(name string) (plugin.Descriptor, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	m, ok := l.byName[name]
	if !ok {
		return plugin.Descriptor{}, false
	}
	return m.desc, true
}

// IsLoaded reports whether a module named name is loaded.
func (l *Loader) IsLoaded(name string) bool {
	_, ok := l.Descriptor(name)
	return ok
}

// Descriptors returns the descriptors of all loaded modules sorted by name.
func (l *Loader) Descriptors() []plugin.Descriptor {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]plugin.Descriptor, 0, len(l.byName))
	for _, m := range l.byName {
		out = append(out, m.desc)
	}
	slices.SortFunc(out, func(a, b plugin.Descriptor) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Modules returns information on all loaded modules sorted by name.
func (l *Loader) Modules() []Info {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Info, 0, len(l.byName))
	for _, m := range l.byName {
		out = append(out, m.info())
	}
	slices.SortFunc(out, func(a, b Info) int { return strings.Compare(a.Descriptor.Name, b.Descriptor.Name) })
	return out
}

// Upgrade invokes the module's upgrade hook. Modules without lifecycle hooks
// succeed trivially.
func (l *Loader) Upgrade(ctx context.Context, name string, from, to uint32) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	m, ok := l.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if m.lifecycle == nil {
		return nil
	}
	if err := safeErr(func() error { return m.lifecycle.OnUpgrade(from, to) }); err != nil {
		l.logger.WarnContext(ctx, "module upgrade hook failed", "module", name, "from", from, "to", to, "error", err)
		return fmt.Errorf("upgrade %q from %d to %d: %w", name, from, to, err)
	}
	l.logger.InfoContext(ctx, "module upgraded", "module", name, "from", from, "to", to)
	return nil
}

// safeErr calls fn, converting a panic into an error.
func safeErr(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func safeCall(fn func()) {
	_ = safeErr(func() error { fn(); return nil })
}
