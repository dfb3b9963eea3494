package index

import (
	"fmt"
	"sort"
	"sync"
)

// Constructor creates a new, unbuilt index instance.
type Constructor func() (Index, error)

type registryEntry struct {
	ctor Constructor
	caps Capability
}

// Registry maps index type names to constructors.
//
// The registry is append-only: names can be registered or overwritten but
// never removed, so constructors handed out earlier stay valid. It is safe
// for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registryEntry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registryEntry)}
}

// DefaultRegistry is the process-wide registry built-in types register into.
var DefaultRegistry = NewRegistry()

// Register adds or replaces the constructor for name.
func (r *Registry) Register(name string, ctor Constructor, caps Capability) error {
	if name == "" {
		return fmt.Errorf("%w: empty index type name", ErrInvalidArgument)
	}
	if ctor == nil {
		return fmt.Errorf("%w: nil constructor for %q", ErrInvalidArgument, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = registryEntry{ctor: ctor, caps: caps}
	return nil
}

// Create constructs a new instance of the named type.
func (r *Registry) Create(name string) (Index, error) {
	ctor, _, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown index type %q", ErrInvalidArgument, name)
	}
	idx, err := ctor()
	if err != nil {
		return nil, fmt.Errorf("create %q: %w", name, err)
	}
	return idx, nil
}

// Lookup returns the constructor and capabilities registered under name.
func (r *Registry) Lookup(name string) (Constructor, Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e.ctor, e.caps, ok
}

// Capabilities returns the capability flags registered for name.
func (r *Registry) Capabilities(name string) (Capability, bool) {
	_, caps, ok := r.Lookup(name)
	return caps, ok
}

// Names returns all registered type names in ascending order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Register adds a type to DefaultRegistry.
func Register(name string, ctor Constructor, caps Capability) error {
	return DefaultRegistry.Register(name, ctor, caps)
}

// MustRegister is Register for init() functions; it panics on invalid input.
func MustRegister(name string, ctor Constructor, caps Capability) {
	if err := Register(name, ctor, caps); err != nil {
		panic(err)
	}
}

// Create constructs a type from DefaultRegistry.
func Create(name string) (Index, error) {
	return DefaultRegistry.Create(name)
}
