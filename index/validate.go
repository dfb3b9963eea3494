package index

import (
	"fmt"

	"github.com/hupe1980/vecmod/dataset"
)

// CheckVectors validates a dataset of vectors against the index dimension.
// A dim of 0 accepts any positive dimension.
func CheckVectors(data *dataset.DataSet, dim int64) error {
	if data == nil {
		return fmt.Errorf("%w: nil dataset", ErrInvalidArgument)
	}
	if err := data.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if !data.HasRawData() {
		return fmt.Errorf("%w: dataset carries no vectors", ErrInvalidArgument)
	}
	if dim > 0 && int64(data.Dim) != dim {
		return &DimensionMismatchError{Expected: dim, Actual: int64(data.Dim)}
	}
	return nil
}

// CheckIDs validates row ids against count and returns the first offender.
func CheckIDs(ids []int64, count int64) error {
	for _, id := range ids {
		if id < 0 || id >= count {
			return &IDOutOfRangeError{ID: id, Count: count}
		}
	}
	return nil
}
