package index

import (
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bits-and-blooms/bitset"
)

// Filter excludes rows from search results.
// A nil Filter excludes nothing.
type Filter interface {
	Excluded(row int64) bool
}

// IsExcluded reports whether f excludes row, treating a nil filter as empty.
func IsExcluded(f Filter, row int64) bool {
	return f != nil && f.Excluded(row)
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(row int64) bool

// Excluded implements Filter.
func (fn FilterFunc) Excluded(row int64) bool {
	return fn(row)
}

// RoaringFilter excludes the rows held in a compressed bitmap.
// It suits sparse exclusion sets over large indexes.
type RoaringFilter struct {
	bm *roaring.Bitmap
}

// NewRoaringFilter returns a filter excluding rows.
func NewRoaringFilter(rows ...uint32) *RoaringFilter {
	return &RoaringFilter{bm: roaring.BitmapOf(rows...)}
}

// RoaringFilterOf wraps an existing bitmap. The bitmap must not be mutated
// while searches use the filter.
func RoaringFilterOf(bm *roaring.Bitmap) *RoaringFilter {
	return &RoaringFilter{bm: bm}
}

// Exclude adds rows to the exclusion set.
func (f *RoaringFilter) Exclude(rows ...uint32) {
	f.bm.AddMany(rows)
}

// Excluded implements Filter.
func (f *RoaringFilter) Excluded(row int64) bool {
	if f == nil || f.bm == nil || row < 0 || row > math.MaxUint32 {
		return false
	}
	return f.bm.Contains(uint32(row))
}

// Cardinality returns the number of excluded rows.
func (f *RoaringFilter) Cardinality() uint64 {
	if f == nil || f.bm == nil {
		return 0
	}
	return f.bm.GetCardinality()
}

// BitsetFilter excludes the rows whose bit is set in a dense bitset.
// Bit i corresponds to row i.
type BitsetFilter struct {
	bs *bitset.BitSet
}

// NewBitsetFilter returns an empty filter sized for rows.
func NewBitsetFilter(rows uint) *BitsetFilter {
	return &BitsetFilter{bs: bitset.New(rows)}
}

// BitsetFilterOf wraps an existing bitset.
func BitsetFilterOf(bs *bitset.BitSet) *BitsetFilter {
	return &BitsetFilter{bs: bs}
}

// Exclude sets the bits for rows.
func (f *BitsetFilter) Exclude(rows ...uint) {
	for _, r := range rows {
		f.bs.Set(r)
	}
}

// Excluded implements Filter.
func (f *BitsetFilter) Excluded(row int64) bool {
	if f == nil || f.bs == nil || row < 0 {
		return false
	}
	return f.bs.Test(uint(row))
}

// Cardinality returns the number of excluded rows.
func (f *BitsetFilter) Cardinality() uint64 {
	if f == nil || f.bs == nil {
		return 0
	}
	return uint64(f.bs.Count())
}
