package geometry

import (
	"sort"

	"github.com/menta2k/template-synth/pkg/types"
)

// RemapDeleted moves points into the coordinate space left after deleting the
// given rows and columns. Indices refer to the original image; x is shifted by
// the number of deleted columns strictly left of it and y by the number of
// deleted rows strictly above it.
func RemapDeleted(points []types.Point, deletedRows, deletedCols []int) []types.Point {
	rows := sortedCopy(deletedRows)
	cols := sortedCopy(deletedCols)

	out := make([]types.Point, len(points))
	for i, p := range points {
		out[i] = types.Point{
			X: p.X - countBelow(cols, p.X),
			Y: p.Y - countBelow(rows, p.Y),
		}
	}
	return out
}

func sortedCopy(v []int) []int {
	out := make([]int, len(v))
	copy(out, v)
	sort.Ints(out)
	return out
}

// countBelow returns how many values in sorted are < threshold.
func countBelow(sorted []int, threshold int) int {
	return sort.SearchInts(sorted, threshold)
}
