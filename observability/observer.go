// Package observability defines the hooks through which the loader, the
// bridge and the indexes report operational metrics.
//
// Implement Observer to integrate with a monitoring system; package prom
// provides a Prometheus implementation.
package observability

import (
	"sync/atomic"
	"time"
)

// Observer receives operation outcomes. Implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	// RecordLoad is called after each module load attempt.
	RecordLoad(module string, duration time.Duration, err error)

	// RecordUnload is called after each module unload attempt.
	RecordUnload(module string, err error)

	// RecordRegister is called after each attempt to register a module's
	// index type.
	RecordRegister(module string, err error)

	// RecordBuild is called after each index build.
	RecordBuild(indexType string, rows int, duration time.Duration, err error)

	// RecordSearch is called after each k-NN or range search.
	// queries is the number of query rows.
	RecordSearch(indexType string, queries int, duration time.Duration, err error)
}

// Noop is an Observer that discards everything.
type Noop struct{}

func (Noop) RecordLoad(string, time.Duration, error)        {}
func (Noop) RecordUnload(string, error)                     {}
func (Noop) RecordRegister(string, error)                   {}
func (Noop) RecordBuild(string, int, time.Duration, error)  {}
func (Noop) RecordSearch(string, int, time.Duration, error) {}

// OrNoop returns o, or Noop when o is nil.
func OrNoop(o Observer) Observer {
	if o == nil {
		return Noop{}
	}
	return o
}

// Basic provides simple in-memory counters.
// Useful for debugging and tests without external dependencies.
type Basic struct {
	LoadCount        atomic.Int64
	LoadErrors       atomic.Int64
	LoadTotalNanos   atomic.Int64
	UnloadCount      atomic.Int64
	UnloadErrors     atomic.Int64
	RegisterCount    atomic.Int64
	RegisterErrors   atomic.Int64
	BuildCount       atomic.Int64
	BuildErrors      atomic.Int64
	BuildRows        atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchQueries    atomic.Int64
	SearchTotalNanos atomic.Int64
}

// RecordLoad implements Observer.
func (b *Basic) RecordLoad(_ string, duration time.Duration, err error) {
	b.LoadCount.Add(1)
	b.LoadTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// RecordUnload implements Observer.
func (b *Basic) RecordUnload(_ string, err error) {
	b.UnloadCount.Add(1)
	if err != nil {
		b.UnloadErrors.Add(1)
	}
}

// RecordRegister implements Observer.
func (b *Basic) RecordRegister(_ string, err error) {
	b.RegisterCount.Add(1)
	if err != nil {
		b.RegisterErrors.Add(1)
	}
}

// RecordBuild implements Observer.
func (b *Basic) RecordBuild(_ string, rows int, _ time.Duration, err error) {
	b.BuildCount.Add(1)
	if err != nil {
		b.BuildErrors.Add(1)
		return
	}
	b.BuildRows.Add(int64(rows))
}

// RecordSearch implements Observer.
func (b *Basic) RecordSearch(_ string, queries int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchQueries.Add(int64(queries))
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// Stats returns a snapshot of current counters.
func (b *Basic) Stats() Stats {
	return Stats{
		LoadCount:      b.LoadCount.Load(),
		LoadErrors:     b.LoadErrors.Load(),
		LoadAvgNanos:   avg(b.LoadTotalNanos.Load(), b.LoadCount.Load()),
		UnloadCount:    b.UnloadCount.Load(),
		UnloadErrors:   b.UnloadErrors.Load(),
		RegisterCount:  b.RegisterCount.Load(),
		RegisterErrors: b.RegisterErrors.Load(),
		BuildCount:     b.BuildCount.Load(),
		BuildErrors:    b.BuildErrors.Load(),
		BuildRows:      b.BuildRows.Load(),
		SearchCount:    b.SearchCount.Load(),
		SearchErrors:   b.SearchErrors.Load(),
		SearchQueries:  b.SearchQueries.Load(),
		SearchAvgNanos: avg(b.SearchTotalNanos.Load(), b.SearchCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// Stats is a snapshot of Basic state.
type Stats struct {
	LoadCount      int64
	LoadErrors     int64
	LoadAvgNanos   int64
	UnloadCount    int64
	UnloadErrors   int64
	RegisterCount  int64
	RegisterErrors int64
	BuildCount     int64
	BuildErrors    int64
	BuildRows      int64
	SearchCount    int64
	SearchErrors   int64
	SearchQueries  int64
	SearchAvgNanos int64
}
