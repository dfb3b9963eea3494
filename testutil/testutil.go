package testutil

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/hupe1980/vecmod/dataset"
	"github.com/hupe1980/vecmod/distance"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand = rand.New(rand.NewSource(r.seed))
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call (preferred over calling Float32 in a loop).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// Matrix returns rows x dim uniform values in [0, 1), row-major.
func (r *RNG) Matrix(rows, dim int) []float32 {
	data := make([]float32, rows*dim)
	r.FillUniform(data)
	return data
}

// UnitMatrix returns rows x dim values whose rows are L2-normalized.
// Uses a Gaussian distribution for uniform coverage of the sphere.
func (r *RNG) UnitMatrix(rows, dim int) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, rows*dim)
	for i := range rows {
		vec := data[i*dim : (i+1)*dim]
		var norm float64
		for j := range vec {
			v := r.rand.NormFloat64()
			vec[j] = float32(v)
			norm += v * v
		}
		if norm == 0 {
			norm = 1
		}
		inv := float32(1.0 / math.Sqrt(norm))
		for j := range vec {
			vec[j] *= inv
		}
	}
	return data
}

// DataSet returns an owned dataset of rows x dim uniform values.
func (r *RNG) DataSet(rows, dim int) *dataset.DataSet {
	return &dataset.DataSet{Rows: rows, Dim: dim, Tensor: r.Matrix(rows, dim), Owned: true}
}

// ExactTopK returns the rows of data (row-major, dim wide) with the k
// smallest scores against query, ordered by ascending (score, row).
func ExactTopK(data []float32, dim int, query []float32, k int, score distance.Func) []int64 {
	type cand struct {
		row   int64
		score float32
	}
	n := len(data) / dim
	all := make([]cand, n)
	for i := range n {
		all[i] = cand{row: int64(i), score: score(query, data[i*dim:(i+1)*dim])}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score < all[j].score
		}
		return all[i].row < all[j].row
	})

	k = min(k, n)
	ids := make([]int64, k)
	for i := range k {
		ids[i] = all[i].row
	}
	return ids
}

// Recall computes recall@k of approximate ids against ground truth ids.
// Padding ids (-1) never count as hits.
func Recall(groundTruth, approximate []int64) float64 {
	if len(groundTruth) == 0 {
		if len(approximate) == 0 {
			return 1.0
		}
		return 0.0
	}

	truth := make(map[int64]struct{}, len(groundTruth))
	for _, id := range groundTruth {
		truth[id] = struct{}{}
	}

	hits := 0
	for _, id := range approximate {
		if id < 0 {
			continue
		}
		if _, ok := truth[id]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(groundTruth))
}
