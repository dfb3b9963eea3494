package index

import (
	"context"

	"github.com/hupe1980/vecmod/binaryset"
	"github.com/hupe1980/vecmod/dataset"
)

// Index is a vector index instance.
//
// Implementations must be safe for concurrent use; all state-reading and
// state-changing operations are serialized per instance.
type Index interface {
	// Build ingests rows x dim vectors. The dataset is copied.
	Build(ctx context.Context, data *dataset.DataSet, cfg Config) error

	// Search returns the k nearest non-excluded rows for every query row.
	// The result has Rows == queries and Dim == k.
	Search(ctx context.Context, queries *dataset.DataSet, cfg Config, filter Filter) (*dataset.DataSet, error)

	// RangeSearch returns every non-excluded row whose score is within the
	// configured radius. The result carries Lims offsets per query.
	RangeSearch(ctx context.Context, queries *dataset.DataSet, cfg Config, filter Filter) (*dataset.DataSet, error)

	// VectorsByIDs returns the stored vectors for the given row ids.
	VectorsByIDs(ctx context.Context, ids *dataset.DataSet, cfg Config) (*dataset.DataSet, error)

	// Serialize captures the index state as named blobs.
	Serialize(cfg Config) (*binaryset.Set, error)

	// Deserialize replaces the index state with the contents of set.
	Deserialize(set *binaryset.Set, cfg Config) error

	// IndexMeta describes the index.
	IndexMeta(cfg Config) (Meta, error)

	Dim() int64
	Size() int64
	Count() int64
	Type() string

	HealthCheck() Health
	Features() Features

	// Close releases the instance. Calling any other method afterwards is
	// undefined.
	Close() error
}

// MetricsReporter is implemented by indexes that expose runtime counters.
type MetricsReporter interface {
	Metrics() (map[string]any, error)
}

// Metrics returns the runtime counters of idx, or ErrNotImplemented.
func Metrics(idx Index) (map[string]any, error) {
	if r, ok := idx.(MetricsReporter); ok {
		return r.Metrics()
	}
	return nil, ErrNotImplemented
}

// Meta is the descriptive record returned by IndexMeta.
type Meta struct {
	Count       int64          `json:"count"`
	Dim         int64          `json:"dim"`
	Metric      string         `json:"metric_type"`
	IndexType   string         `json:"index_type"`
	MemoryUsage int64          `json:"memory_usage"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// Health is the coarse status reported by HealthCheck.
type Health int

const (
	Unknown Health = iota
	Healthy
	Degraded
	Unhealthy
)

func (h Health) String() string {
	switch h {
	case Healthy:
		return "HEALTHY"
	case Degraded:
		return "DEGRADED"
	case Unhealthy:
		return "UNHEALTHY"
	default:
		return "UNKNOWN"
	}
}
