package testutil

import (
	"math"
	"testing"

	"github.com/hupe1980/vecmod/distance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrix(t *testing.T) {
	rng := NewRNG(1)
	data := rng.Matrix(10, 4)
	require.Len(t, data, 40)
	for _, v := range data {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.Less(t, v, float32(1))
	}
}

func TestUnitMatrix(t *testing.T) {
	rng := NewRNG(2)
	data := rng.UnitMatrix(5, 8)
	for i := 0; i < 5; i++ {
		var norm float64
		for _, v := range data[i*8 : (i+1)*8] {
			norm += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
	}
}

func TestReset(t *testing.T) {
	rng := NewRNG(42)
	first := rng.Matrix(3, 3)
	rng.Reset()
	assert.Equal(t, first, rng.Matrix(3, 3))
	assert.Equal(t, int64(42), rng.Seed())
}

func TestExactTopK(t *testing.T) {
	data := []float32{0, 0, 1, 0, 5, 5, 1, 0}
	ids := ExactTopK(data, 2, []float32{0, 0}, 3, distance.SquaredL2)
	assert.Equal(t, []int64{0, 1, 3}, ids)

	ids = ExactTopK(data, 2, []float32{0, 0}, 10, distance.SquaredL2)
	assert.Len(t, ids, 4)
}

func TestRecall(t *testing.T) {
	assert.Equal(t, 1.0, Recall(nil, nil))
	assert.Equal(t, 0.0, Recall([]int64{1}, nil))
	assert.Equal(t, 0.5, Recall([]int64{1, 2}, []int64{2, -1}))
	assert.Equal(t, 1.0, Recall([]int64{1, 2}, []int64{2, 1}))
}
