package reorder

import "sort"

// GapOffsets returns the vertical translation of each item while the item at from hovers over
// slot to. Items between the two slots slide by the dragged item's height to open a gap at to.
// The dragged item's own entry is the translation that would place it inside that gap.
//
// Offsets are computed against the original geometry, so they never accumulate across moves.
func GapOffsets(geometries []ItemGeometry, from, to int) []float64 {
	n := len(geometries)
	offsets := make([]float64, n)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return offsets
	}
	h := geometries[from].Height
	var travel float64
	switch {
	case from < to:
		for i := from + 1; i <= to; i++ {
			offsets[i] = -h
			travel += geometries[i].Height
		}
	case from > to:
		for i := to; i < from; i++ {
			offsets[i] = h
			travel -= geometries[i].Height
		}
	}
	offsets[from] = travel
	return offsets
}

// PreviewOrder returns item indices in the order they appear on screen once GapOffsets is
// applied. It equals the order the list would have if the move were committed.
func PreviewOrder(geometries []ItemGeometry, from, to int) []int {
	offsets := GapOffsets(geometries, from, to)
	order := make([]int, len(geometries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		return geometries[ia].Top+offsets[ia] < geometries[ib].Top+offsets[ib]
	})
	return order
}
