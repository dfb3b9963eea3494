// Package prom implements observability.Observer with Prometheus metrics.
package prom

import (
	"time"

	"github.com/hupe1980/vecmod/observability"
	"github.com/prometheus/client_golang/prometheus"
)

var _ observability.Observer = (*Observer)(nil)

// Observer exports operation counters and latencies as Prometheus metrics.
type Observer struct {
	opLatency *prometheus.HistogramVec
	ops       *prometheus.CounterVec
	buildRows prometheus.Counter
	queries   *prometheus.CounterVec
}

// New creates an Observer and registers its collectors with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) (*Observer, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	o := &Observer{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vecmod_operation_latency_seconds",
			Help:    "Latency of module and index operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "target", "status"}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vecmod_operations_total",
			Help: "Total module and index operations",
		}, []string{"op", "target", "status"}),
		buildRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vecmod_build_rows_total",
			Help: "Total vectors ingested by successful builds",
		}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vecmod_search_queries_total",
			Help: "Total query vectors evaluated",
		}, []string{"index_type"}),
	}

	for _, c := range []prometheus.Collector{o.opLatency, o.ops, o.buildRows, o.queries} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (o *Observer) record(op, target string, d time.Duration, err error) {
	s := status(err)
	o.ops.WithLabelValues(op, target, s).Inc()
	if d > 0 {
		o.opLatency.WithLabelValues(op, target, s).Observe(d.Seconds())
	}
}

// RecordLoad implements observability.Observer.
func (o *Observer) RecordLoad(module string, d time.Duration, err error) {
	o.record("load", module, d, err)
}

// RecordUnload implements observability.Observer.
func (o *Observer) RecordUnload(module string, err error) {
	o.record("unload", module, 0, err)
}

// RecordRegister implements observability.Observer.
func (o *Observer) RecordRegister(module string, err error) {
	o.record("register", module, 0, err)
}

// RecordBuild implements observability.Observer.
func (o *Observer) RecordBuild(indexType string, rows int, d time.Duration, err error) {
	o.record("build", indexType, d, err)
	if err == nil {
		o.buildRows.Add(float64(rows))
	}
}

// RecordSearch implements observability.Observer.
func (o *Observer) RecordSearch(indexType string, queries int, d time.Duration, err error) {
	o.record("search", indexType, d, err)
	o.queries.WithLabelValues(indexType).Add(float64(queries))
}
