package loader

import (
	"fmt"
	"sync/atomic"

	"github.com/hupe1980/vecmod/plugin"
)

// Lease pins a loaded module. While any lease is held, UnloadOne of that
// module fails with ErrModuleInUse.
type Lease struct {
	m        *module
	released atomic.Bool
}

// Acquire pins the module named name.
func (l *Loader) Acquire(name string) (*Lease, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	m, ok := l.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	m.leases.Add(1)
	return &Lease{m: m}, nil
}

// Factory returns the pinned module's factory.
func (le *Lease) Factory() (plugin.Factory, error) {
	if le.released.Load() {
		return nil, ErrLeaseReleased
	}
	return le.m.factory, nil
}

// Descriptor returns the pinned module's descriptor.
func (le *Lease) Descriptor() plugin.Descriptor {
	return le.m.desc
}

// Release unpins the module. Further calls are no-ops.
func (le *Lease) Release() {
	if le.released.CompareAndSwap(false, true) {
		le.m.leases.Add(-1)
	}
}
