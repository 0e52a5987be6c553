package treemap

import (
	"math"

	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
)

// NestedItem is an Item at a given depth below the laid-out root.
// Depth 0 holds the root's direct children.
type NestedItem struct {
	Item
	Depth int
}

// Nested lays out root's children inside bounds, then each child's children
// inside that child's rectangle, down to maxDepth levels. Parents precede
// their descendants in the result.
func Nested(root types.ScanNode, bounds Rect, metric types.SizeMetric, maxDepth int) []NestedItem {
	if maxDepth < 1 {
		return nil
	}
	var out []NestedItem
	nest(&out, root.Children, bounds, metric, 0, maxDepth)
	return out
}

func nest(out *[]NestedItem, nodes []types.ScanNode, bounds Rect, metric types.SizeMetric, depth, maxDepth int) {
	for _, item := range Layout(nodes, bounds, metric) {
		*out = append(*out, NestedItem{Item: item, Depth: depth})
		if depth+1 < maxDepth && len(item.Node.Children) > 0 {
			nest(out, item.Node.Children, item.Rect, metric, depth+1, maxDepth)
		}
	}
}

// Cell is an Item snapped to an integer grid for terminal rendering.
type Cell struct {
	Item
	Col, Row      int
	Width, Height int
}

// Snap rounds every edge to the nearest integer. Rectangles that tile a
// region stay tiling after snapping because shared edges round the same
// way. Items that collapse to nothing are dropped.
func Snap(items []Item) []Cell {
	cells := make([]Cell, 0, len(items))
	for _, item := range items {
		r := item.Rect
		x0, y0 := round(r.X), round(r.Y)
		x1, y1 := round(r.X+r.W), round(r.Y+r.H)
		if x1 <= x0 || y1 <= y0 {
			continue
		}
		cells = append(cells, Cell{
			Item:   item,
			Col:    x0,
			Row:    y0,
			Width:  x1 - x0,
			Height: y1 - y0,
		})
	}
	return cells
}

func round(v float64) int {
	return int(math.Floor(v + 0.5))
}
