package queue

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopK_KeepsSmallest(t *testing.T) {
	q := NewTopK(3)
	for i, s := range []float32{5, 1, 4, 2, 3, 0} {
		q.Offer(int64(i), s)
	}

	got := q.Sorted()
	require.Len(t, got, 3)
	assert.Equal(t, []Item{{Row: 5, Score: 0}, {Row: 1, Score: 1}, {Row: 3, Score: 2}}, got)
	assert.Empty(t, q.Sorted())
}

func TestTopK_TieBreaksOnRow(t *testing.T) {
	q := NewTopK(2)
	q.Offer(7, 1)
	q.Offer(3, 1)
	q.Offer(5, 1)

	assert.Equal(t, []Item{{Row: 3, Score: 1}, {Row: 5, Score: 1}}, q.Sorted())
}

func TestTopK_Shortfall(t *testing.T) {
	q := NewTopK(5)
	q.Offer(0, 2)
	q.Offer(1, 1)

	got := q.Sorted()
	assert.Equal(t, []Item{{Row: 1, Score: 1}, {Row: 0, Score: 2}}, got)
}

func TestTopK_Zero(t *testing.T) {
	q := NewTopK(0)
	assert.False(t, q.Offer(0, 0))
	assert.Empty(t, q.Sorted())
}

func TestTopK_MatchesSort(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const n, k = 500, 17

	all := make([]Item, n)
	q := NewTopK(k)
	for i := range all {
		// coarse scores force many ties
		all[i] = Item{Row: int64(i), Score: float32(rng.Intn(50))}
		q.Offer(all[i].Row, all[i].Score)
	}
	sort.Slice(all, func(i, j int) bool { return Less(all[i], all[j]) })

	assert.Equal(t, all[:k], q.Sorted())
}
