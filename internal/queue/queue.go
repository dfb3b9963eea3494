// Package queue provides the bounded top-k selection used by exhaustive search.
package queue

import "slices"

// Item is a candidate row with its score. Smaller scores rank first; ties are
// broken by the smaller row.
type Item struct {
	Row   int64
	Score float32
}

// Less reports whether a ranks before b under the (score, row) order.
func Less(a, b Item) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.Row < b.Row
}

// TopK keeps the k best items seen so far in a max-heap, so the worst retained
// item sits at the root and can be replaced in O(log k).
type TopK struct {
	k     int
	items []Item // value-based storage, no pointer indirection
}

// NewTopK creates a selector retaining at most k items.
func NewTopK(k int) *TopK {
	if k < 0 {
		k = 0
	}
	return &TopK{k: k, items: make([]Item, 0, k)}
}

// Offer considers an item and reports whether it was retained.
func (q *TopK) Offer(row int64, score float32) bool {
	if q.k == 0 {
		return false
	}
	it := Item{Row: row, Score: score}
	if len(q.items) < q.k {
		q.items = append(q.items, it)
		q.siftUp(len(q.items) - 1)
		return true
	}
	if !Less(it, q.items[0]) {
		return false
	}
	q.items[0] = it
	q.siftDown(0)
	return true
}

// Sorted returns the retained items in ascending (score, row) order and
// empties the selector.
func (q *TopK) Sorted() []Item {
	out := q.items
	q.items = make([]Item, 0, q.k)
	slices.SortFunc(out, func(a, b Item) int {
		switch {
		case Less(a, b):
			return -1
		case Less(b, a):
			return 1
		default:
			return 0
		}
	})
	return out
}

// worse orders the heap so the root holds the item that ranks last.
func (q *TopK) worse(i, j int) bool {
	return Less(q.items[j], q.items[i])
}

func (q *TopK) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !q.worse(i, p) {
			return
		}
		q.items[i], q.items[p] = q.items[p], q.items[i]
		i = p
	}
}

func (q *TopK) siftDown(i int) {
	n := len(q.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		r := l + 1
		if r < n && q.worse(r, l) {
			best = r
		}
		if !q.worse(best, i) {
			return
		}
		q.items[i], q.items[best] = q.items[best], q.items[i]
		i = best
	}
}
