package flat

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/hupe1980/vecmod/codec"
	"github.com/hupe1980/vecmod/dataset"
	"github.com/hupe1980/vecmod/distance"
	"github.com/hupe1980/vecmod/index"
	"github.com/hupe1980/vecmod/logging"
	"github.com/hupe1980/vecmod/observability"
)

// TypeName is the registry name of the exhaustive index.
const TypeName = "FLAT"

// Compile-time checks to ensure Flat satisfies required interfaces.
var (
	_ index.Index           = (*Flat)(nil)
	_ index.MetricsReporter = (*Flat)(nil)
)

func init() {
	index.MustRegister(TypeName, func() (index.Index, error) { return New(), nil }, Features().Capabilities())
}

// Options contains configuration options for the flat index.
type Options struct {
	// Logger receives build and search events. Defaults to a no-op logger.
	Logger *logging.Logger

	// Observer receives build and search metrics. Defaults to a no-op observer.
	Observer observability.Observer

	// Parallelism bounds the number of queries evaluated concurrently.
	// Defaults to GOMAXPROCS.
	Parallelism int

	// TypeName overrides the name reported by Type, for modules that wrap Flat.
	TypeName string

	// Codec encodes the meta blob written by Serialize. Defaults to codec.Default.
	Codec codec.Codec
}

// DefaultOptions contains the default configuration options for the flat index.
var DefaultOptions = Options{
	TypeName: TypeName,
	Codec:    codec.Default,
}

// Flat is the exhaustive reference index.
//
// One mutex guards all state, so operations on an instance are serialized.
// Queries within a single Search are scored in parallel.
type Flat struct {
	mu sync.Mutex

	opts     Options
	logger   *logging.Logger
	observer observability.Observer

	built   bool
	dim     int
	count   int
	metric  distance.Metric
	score   distance.Func
	vectors []float32

	builds   int64
	searches int64
	queries  int64
}

// New creates a new, unbuilt flat index.
func New(optFns ...func(o *Options)) *Flat {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = runtime.GOMAXPROCS(0)
	}
	if opts.TypeName == "" {
		opts.TypeName = TypeName
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}

	return &Flat{
		opts:     opts,
		logger:   logging.OrNoop(opts.Logger).WithType(opts.TypeName),
		observer: observability.OrNoop(opts.Observer),
		metric:   distance.L2,
	}
}

// Build copies the dataset's vectors into the index.
func (f *Flat) Build(ctx context.Context, data *dataset.DataSet, cfg index.Config) (err error) {
	start := time.Now()
	rows := 0
	if data != nil {
		rows = data.Rows
	}
	defer func() {
		f.observer.RecordBuild(f.opts.TypeName, rows, time.Since(start), err)
		dim := 0
		if data != nil {
			dim = data.Dim
		}
		f.logger.LogBuild(ctx, rows, dim, err)
	}()

	s, err := parseSettings(cfg)
	if err != nil {
		return err
	}
	if err := index.CheckVectors(data, int64(s.dim)); err != nil {
		return err
	}
	score, err := distance.Score(s.metric)
	if err != nil {
		return fmt.Errorf("%w: %w", index.ErrInvalidArgument, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.built {
		return index.ErrAlreadyBuilt
	}

	f.vectors = slices.Clone(data.Tensor)
	f.dim = data.Dim
	f.count = data.Rows
	f.metric = s.metric
	f.score = score
	f.built = true
	f.builds++
	return nil
}

// Dim returns the vector dimension, or 0 before the index is built.
func (f *Flat) Dim() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(f.dim)
}

// Count returns the number of stored vectors.
func (f *Flat) Count() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(f.count)
}

// Size returns the bytes held by raw vector storage.
func (f *Flat) Size() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sizeLocked()
}

func (f *Flat) sizeLocked() int64 {
	return int64(len(f.vectors)) * 4
}

// Type returns the index type name.
func (f *Flat) Type() string {
	return f.opts.TypeName
}

// Metric returns the configured metric.
func (f *Flat) Metric() distance.Metric {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.metric
}

// HealthCheck reports Unknown before build, Healthy when storage matches the
// recorded shape and Unhealthy otherwise.
func (f *Flat) HealthCheck() index.Health {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.built {
		return index.Unknown
	}
	if len(f.vectors) != f.count*f.dim || (f.count > 0 && f.score == nil) {
		return index.Unhealthy
	}
	return index.Healthy
}

// Features returns the static capability declaration of Flat.
func (f *Flat) Features() index.Features {
	return Features()
}

// Features is the capability declaration shared by every Flat instance.
func Features() index.Features {
	return index.Features{
		RangeSearch: true,
		Metrics:     distance.Metrics(),
		DataTypes:   []string{"float32"},
	}
}

// IndexMeta describes the index.
func (f *Flat) IndexMeta(index.Config) (index.Meta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return index.Meta{
		Count:       int64(f.count),
		Dim:         int64(f.dim),
		Metric:      f.metric.String(),
		IndexType:   f.opts.TypeName,
		MemoryUsage: f.sizeLocked(),
		Extra: map[string]any{
			"built":   f.built,
			"version": formatVersion,
		},
	}, nil
}

// Metrics exposes the instance's operation counters.
func (f *Flat) Metrics() (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return map[string]any{
		"builds":   f.builds,
		"searches": f.searches,
		"queries":  f.queries,
		"bytes":    f.sizeLocked(),
	}, nil
}

// VectorsByIDs returns a copy of the vectors stored at the given rows.
func (f *Flat) VectorsByIDs(_ context.Context, ids *dataset.DataSet, _ index.Config) (*dataset.DataSet, error) {
	if ids == nil {
		return nil, fmt.Errorf("%w: nil id dataset", index.ErrInvalidArgument)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.built {
		return nil, index.ErrNotBuilt
	}
	if err := index.CheckIDs(ids.IDs, int64(f.count)); err != nil {
		return nil, err
	}

	out := make([]float32, 0, len(ids.IDs)*f.dim)
	for _, id := range ids.IDs {
		off := int(id) * f.dim
		out = append(out, f.vectors[off:off+f.dim]...)
	}

	return &dataset.DataSet{
		Rows:   len(ids.IDs),
		Dim:    f.dim,
		Tensor: out,
		IDs:    slices.Clone(ids.IDs),
		Owned:  true,
	}, nil
}

// Close releases the stored vectors.
func (f *Flat) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.vectors = nil
	f.count = 0
	f.built = false
	return nil
}
