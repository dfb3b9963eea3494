package bridge

import (
	"sync"

	"github.com/hupe1980/vecmod/index"
	"github.com/hupe1980/vecmod/loader"
)

// leasedIndex holds its module's lease until closed.
type leasedIndex struct {
	index.Index
	lease *loader.Lease

	once     sync.Once
	closeErr error
}

var _ index.MetricsReporter = (*leasedIndex)(nil)

// Close closes the module's index once and then releases the lease. Later
// calls return the first result.
func (l *leasedIndex) Close() error {
	l.once.Do(func() {
		l.closeErr = l.Index.Close()
		l.lease.Release()
	})
	return l.closeErr
}

func (l *leasedIndex) Metrics() (map[string]any, error) {
	return index.Metrics(l.Index)
}

// Unwrap returns the module's index.
func (l *leasedIndex) Unwrap() index.Index {
	return l.Index
}
