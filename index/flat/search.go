package flat

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/hupe1980/vecmod/dataset"
	"github.com/hupe1980/vecmod/index"
	"github.com/hupe1980/vecmod/internal/queue"
	"golang.org/x/sync/errgroup"
)

// Search returns the k nearest non-excluded rows for each query.
//
// Rows are ranked by ascending (score, row). A query with fewer than k
// surviving rows is padded with id -1 and math.MaxFloat32. An empty index
// yields a result of Rows == queries and Dim == 0.
func (f *Flat) Search(ctx context.Context, queries *dataset.DataSet, cfg index.Config, filter index.Filter) (res *dataset.DataSet, err error) {
	start := time.Now()
	defer func() {
		nq, k := 0, 0
		if queries != nil {
			nq = queries.Rows
		}
		if res != nil {
			k = res.Dim
		}
		f.observer.RecordSearch(f.opts.TypeName, nq, time.Since(start), err)
		f.logger.LogSearch(ctx, nq, k, err)
	}()

	s, err := parseSettings(cfg)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkQueries(queries); err != nil {
		return nil, err
	}
	f.searches++
	f.queries += int64(queries.Rows)

	if f.count == 0 {
		return &dataset.DataSet{Rows: queries.Rows, IDs: []int64{}, Distances: []float32{}, Owned: true}, nil
	}

	res = dataset.NewResult(queries.Rows, s.k)
	err = f.forEachQuery(ctx, queries.Rows, func(q int) {
		top := queue.NewTopK(s.k)
		f.scan(queries.Row(q), filter, func(row int, score float32) {
			top.Offer(int64(row), score)
		})

		ids, dists := res.Neighbors(q)
		items := top.Sorted()
		for i := range ids {
			if i < len(items) {
				ids[i], dists[i] = items[i].Row, items[i].Score
				continue
			}
			ids[i], dists[i] = -1, math.MaxFloat32
		}
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RangeSearch returns, per query, every non-excluded row whose score is at
// most the configured radius, ordered by ascending (score, row).
func (f *Flat) RangeSearch(ctx context.Context, queries *dataset.DataSet, cfg index.Config, filter index.Filter) (res *dataset.DataSet, err error) {
	start := time.Now()
	defer func() {
		nq := 0
		if queries != nil {
			nq = queries.Rows
		}
		f.observer.RecordSearch(f.opts.TypeName, nq, time.Since(start), err)
		f.logger.LogSearch(ctx, nq, 0, err)
	}()

	s, err := parseSettings(cfg)
	if err != nil {
		return nil, err
	}
	if !s.hasRadius {
		return nil, &index.ConfigError{Key: index.KeyRadius, Reason: "required for range search"}
	}
	radius := float32(s.radius)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkQueries(queries); err != nil {
		return nil, err
	}
	f.searches++
	f.queries += int64(queries.Rows)

	perQuery := make([][]queue.Item, queries.Rows)
	err = f.forEachQuery(ctx, queries.Rows, func(q int) {
		var hits []queue.Item
		f.scan(queries.Row(q), filter, func(row int, score float32) {
			if score <= radius {
				hits = append(hits, queue.Item{Row: int64(row), Score: score})
			}
		})
		slices.SortFunc(hits, compareItems)
		perQuery[q] = hits
	})
	if err != nil {
		return nil, err
	}

	lims := make([]int, queries.Rows+1)
	for q, hits := range perQuery {
		lims[q+1] = lims[q] + len(hits)
	}
	res = &dataset.DataSet{
		Rows:      queries.Rows,
		IDs:       make([]int64, 0, lims[queries.Rows]),
		Distances: make([]float32, 0, lims[queries.Rows]),
		Lims:      lims,
		Owned:     true,
	}
	for _, hits := range perQuery {
		for _, h := range hits {
			res.IDs = append(res.IDs, h.Row)
			res.Distances = append(res.Distances, h.Score)
		}
	}
	return res, nil
}

func compareItems(a, b queue.Item) int {
	switch {
	case queue.Less(a, b):
		return -1
	case queue.Less(b, a):
		return 1
	default:
		return 0
	}
}

// checkQueries validates the query dataset against the built state.
// Callers must hold f.mu.
func (f *Flat) checkQueries(queries *dataset.DataSet) error {
	if !f.built {
		return index.ErrNotBuilt
	}
	if queries == nil {
		return fmt.Errorf("%w: nil query dataset", index.ErrInvalidArgument)
	}
	if f.count == 0 {
		// Nothing to compare against; any well-formed query batch is accepted.
		if err := queries.Validate(); err != nil {
			return fmt.Errorf("%w: %w", index.ErrInvalidArgument, err)
		}
		return nil
	}
	return index.CheckVectors(queries, int64(f.dim))
}

// scan scores every non-excluded stored row against query.
func (f *Flat) scan(query []float32, filter index.Filter, visit func(row int, score float32)) {
	for row := 0; row < f.count; row++ {
		if index.IsExcluded(filter, int64(row)) {
			continue
		}
		off := row * f.dim
		visit(row, f.score(query, f.vectors[off:off+f.dim]))
	}
}

// forEachQuery runs fn for every query in parallel, bounded by Parallelism.
// Each fn writes only to its own result slot.
func (f *Flat) forEachQuery(ctx context.Context, n int, fn func(q int)) error {
	if n == 1 {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(0)
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.Parallelism)
	for q := 0; q < n; q++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(q)
			return nil
		})
	}
	return g.Wait()
}
