// Package dataset defines the row-major matrix exchanged with indexes.
package dataset

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidShape is returned when a DataSet's buffers disagree with its shape.
var ErrInvalidShape = errors.New("invalid dataset shape")

// DataSet is a row-major float32 matrix of Rows x Dim values with optional
// per-row identifiers and scores.
//
// Search results reuse the type: Dim is then the number of neighbors per
// query (k), IDs and Distances hold Rows*Dim entries. Range-search results set
// Lims, where the neighbors of query i occupy IDs[Lims[i]:Lims[i+1]].
//
// Owned reports whether the buffers were allocated for this DataSet. A view
// (Owned == false) references caller memory that must outlive it.
type DataSet struct {
	Rows      int
	Dim       int
	Tensor    []float32
	IDs       []int64
	Distances []float32
	Lims      []int
	Owned     bool
}

// FromVectors returns a view over data holding rows x dim values.
func FromVectors(rows, dim int, data []float32) *DataSet {
	return &DataSet{Rows: rows, Dim: dim, Tensor: data}
}

// Copy returns an owned DataSet holding a private copy of data.
func Copy(rows, dim int, data []float32) *DataSet {
	return &DataSet{Rows: rows, Dim: dim, Tensor: slices.Clone(data), Owned: true}
}

// FromIDs returns a view carrying only identifiers, as used for id lookups.
func FromIDs(ids []int64) *DataSet {
	return &DataSet{Rows: len(ids), Dim: 1, IDs: ids}
}

// NewResult allocates an owned result of rows x k identifiers and distances.
func NewResult(rows, k int) *DataSet {
	return &DataSet{
		Rows:      rows,
		Dim:       k,
		IDs:       make([]int64, rows*k),
		Distances: make([]float32, rows*k),
		Owned:     true,
	}
}

// HasRawData reports whether the DataSet carries a full vector tensor.
func (d *DataSet) HasRawData() bool {
	return d != nil && d.Rows > 0 && d.Dim > 0 && len(d.Tensor) == d.Rows*d.Dim
}

// Row returns the i-th vector of the tensor.
func (d *DataSet) Row(i int) []float32 {
	off := i * d.Dim
	return d.Tensor[off : off+d.Dim : off+d.Dim]
}

// Validate checks that the populated buffers agree with the shape.
func (d *DataSet) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil dataset", ErrInvalidShape)
	}
	if d.Rows < 0 || d.Dim < 0 {
		return fmt.Errorf("%w: rows=%d dim=%d", ErrInvalidShape, d.Rows, d.Dim)
	}
	if d.Tensor != nil && len(d.Tensor) != d.Rows*d.Dim {
		return fmt.Errorf("%w: tensor has %d values, want %d", ErrInvalidShape, len(d.Tensor), d.Rows*d.Dim)
	}
	if d.Lims != nil {
		if len(d.Lims) != d.Rows+1 {
			return fmt.Errorf("%w: lims has %d entries, want %d", ErrInvalidShape, len(d.Lims), d.Rows+1)
		}
		if n := d.Lims[d.Rows]; len(d.IDs) != n || len(d.Distances) != n {
			return fmt.Errorf("%w: range result holds %d ids for %d lims", ErrInvalidShape, len(d.IDs), n)
		}
		return nil
	}
	if d.Distances != nil && len(d.Distances) != d.Rows*d.Dim {
		return fmt.Errorf("%w: distances has %d values, want %d", ErrInvalidShape, len(d.Distances), d.Rows*d.Dim)
	}
	return nil
}

// Neighbors returns the identifiers and distances of the i-th result row.
// It handles both k-NN results and range-search results.
func (d *DataSet) Neighbors(i int) ([]int64, []float32) {
	if d.Lims != nil {
		return d.IDs[d.Lims[i]:d.Lims[i+1]], d.Distances[d.Lims[i]:d.Lims[i+1]]
	}
	off := i * d.Dim
	return d.IDs[off : off+d.Dim], d.Distances[off : off+d.Dim]
}

// Clone returns an owned deep copy of d.
func (d *DataSet) Clone() *DataSet {
	return &DataSet{
		Rows:      d.Rows,
		Dim:       d.Dim,
		Tensor:    slices.Clone(d.Tensor),
		IDs:       slices.Clone(d.IDs),
		Distances: slices.Clone(d.Distances),
		Lims:      slices.Clone(d.Lims),
		Owned:     true,
	}
}
