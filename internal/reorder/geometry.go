package reorder

import (
	"errors"
	"fmt"
	"sort"
)

// ItemGeometry is the vertical extent of one realized item, captured once when a drag starts.
type ItemGeometry struct {
	Index  int
	Top    float64
	Height float64
}

func (g ItemGeometry) Mid() float64    { return g.Top + g.Height/2 }
func (g ItemGeometry) Bottom() float64 { return g.Top + g.Height }

// StackGeometry lays out items top to bottom with the given heights, starting at origin.
func StackGeometry(origin float64, heights []float64) []ItemGeometry {
	out := make([]ItemGeometry, len(heights))
	top := origin
	for i, h := range heights {
		out[i] = ItemGeometry{Index: i, Top: top, Height: h}
		top += h
	}
	return out
}

// UniformGeometry lays out n items of equal height starting at 0.
func UniformGeometry(n int, rowHeight float64) []ItemGeometry {
	heights := make([]float64, n)
	for i := range heights {
		heights[i] = rowHeight
	}
	return StackGeometry(0, heights)
}

// ComputeTargetIndex maps a pointer Y coordinate to the slot the dragged item would land in.
//
// geometries must be the pre-drag bounds in index order. The result is the index of the first
// item whose midpoint lies below pointerY, or count-1 when the pointer is past every midpoint.
// The dragged item's own slot is never a target: when that first item comes after the dragged
// item, the slot it names is one less once the dragged item is lifted out of the list.
func ComputeTargetIndex(pointerY float64, geometries []ItemGeometry, draggedIndex int) int {
	n := len(geometries)
	if n == 0 {
		return 0
	}
	for i, g := range geometries {
		if pointerY < g.Mid() {
			if draggedIndex >= 0 && i > draggedIndex {
				return i - 1
			}
			return i
		}
	}
	return n - 1
}

// PointerFor returns a pointer Y that ComputeTargetIndex maps to slot to while the item at from
// is dragged. Keyboard and headless moves use it to drive a session without a real pointer.
func PointerFor(geometries []ItemGeometry, from, to int) float64 {
	n := len(geometries)
	if n == 0 {
		return 0
	}
	to = max(0, min(to, n-1))
	g := geometries[to]
	switch {
	case to < from:
		return g.Top + g.Height/4
	case to > from:
		return g.Top + g.Height*3/4
	}
	return g.Mid()
}

var errBadGeometry = errors.New("bad geometry")

// snapshotGeometry validates host-supplied bounds against the list length and returns a copy
// sorted by index. Every item must be realized (positive height) and items must not overlap.
func snapshotGeometry(geometries []ItemGeometry, count int) ([]ItemGeometry, error) {
	if len(geometries) != count {
		return nil, fmt.Errorf("%w: have %d bounds for %d items", errBadGeometry, len(geometries), count)
	}
	snap := append([]ItemGeometry(nil), geometries...)
	sort.SliceStable(snap, func(i, j int) bool { return snap[i].Index < snap[j].Index })
	for i, g := range snap {
		if g.Index != i {
			return nil, fmt.Errorf("%w: missing bounds for item %d", errBadGeometry, i)
		}
		if g.Height <= 0 {
			return nil, fmt.Errorf("%w: item %d is not realized", errBadGeometry, i)
		}
		if i > 0 && g.Top < snap[i-1].Bottom() {
			return nil, fmt.Errorf("%w: item %d overlaps item %d", errBadGeometry, i, i-1)
		}
	}
	return snap, nil
}
