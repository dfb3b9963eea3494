package loader

import (
	"fmt"
	"path/filepath"
	goplugin "plugin"
	"sync"

	"github.com/hupe1980/vecmod/plugin"
)

// Library is an opened module binary.
type Library interface {
	// Lookup returns the exported symbol with the given name.
	Lookup(symbol string) (any, error)

	// Close invalidates the library. Symbols obtained from it must not be
	// used afterwards.
	Close() error
}

// Opener opens module binaries.
type Opener interface {
	Open(path string) (Library, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(path string) (Library, error)

// Open implements Opener.
func (f OpenerFunc) Open(path string) (Library, error) {
	return f(path)
}

// GoPluginOpener opens modules built with -buildmode=plugin.
//
// The Go runtime never unmaps a plugin, so Close only detaches the handle;
// the module's code stays resident until the process exits.
type GoPluginOpener struct{}

// Open implements Opener.
func (GoPluginOpener) Open(path string) (Library, error) {
	p, err := goplugin.Open(path)
	if err != nil {
		return nil, err
	}
	return &goPluginLibrary{p: p}, nil
}

type goPluginLibrary struct {
	mu sync.Mutex
	p  *goplugin.Plugin
}

func (l *goPluginLibrary) Lookup(symbol string) (any, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.p == nil {
		return nil, fmt.Errorf("lookup %s: library closed", symbol)
	}
	sym, err := l.p.Lookup(symbol)
	if err != nil {
		return nil, err
	}
	return sym, nil
}

func (l *goPluginLibrary) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.p = nil
	return nil
}

// Symbols is an in-memory symbol table. It serves as the Library of a
// module linked into the host binary.
type Symbols map[string]any

// SymbolsOf returns the symbol table of e.
func SymbolsOf(e plugin.Exports) Symbols {
	s := Symbols{}
	for _, name := range []string{
		plugin.SymbolAPIVersion,
		plugin.SymbolCreateFactory,
		plugin.SymbolDestroyFactory,
		plugin.SymbolLifecycle,
	} {
		if sym, ok := e.Lookup(name); ok {
			s[name] = sym
		}
	}
	return s
}

// Lookup implements Library.
func (s Symbols) Lookup(symbol string) (any, error) {
	sym, ok := s[symbol]
	if !ok {
		return nil, fmt.Errorf("symbol %s not found", symbol)
	}
	return sym, nil
}

// Close implements Library.
func (s Symbols) Close() error { return nil }

// StaticOpener serves modules compiled into the host, keyed by the base
// name of the path being opened. Files in a scanned directory act as
// placeholders selecting the module.
type StaticOpener struct {
	mu      sync.RWMutex
	modules map[string]Symbols
}

// NewStaticOpener returns an empty StaticOpener.
func NewStaticOpener() *StaticOpener {
	return &StaticOpener{modules: make(map[string]Symbols)}
}

// Add serves symbols for paths whose base name is file.
func (o *StaticOpener) Add(file string, symbols Symbols) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.modules[file] = symbols
}

// AddExports serves e for paths whose base name is file.
func (o *StaticOpener) AddExports(file string, e plugin.Exports) {
	o.Add(file, SymbolsOf(e))
}

// Open implements Opener.
func (o *StaticOpener) Open(path string) (Library, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	s, ok := o.modules[filepath.Base(path)]
	if !ok {
		return nil, fmt.Errorf("%s: no statically linked module", path)
	}
	return s, nil
}
