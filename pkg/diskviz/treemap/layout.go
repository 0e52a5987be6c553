// Package treemap lays out scan nodes as a squarified treemap. Layout is
// pure: it reads node metrics and returns rectangles, nothing else.
package treemap

import (
	"math"
	"sort"

	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
)

// Rect is an axis-aligned rectangle with its origin at the top-left corner.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Area returns W*H.
func (r Rect) Area() float64 {
	return r.W * r.H
}

// Intersect returns the overlapping region of r and o, or an empty Rect.
func (r Rect) Intersect(o Rect) Rect {
	x0, y0 := math.Max(r.X, o.X), math.Max(r.Y, o.Y)
	x1, y1 := math.Min(r.X+r.W, o.X+o.W), math.Min(r.Y+r.H, o.Y+o.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Overlaps reports whether r and o share more than eps of area.
func (r Rect) Overlaps(o Rect, eps float64) bool {
	return r.Intersect(o).Area() > eps
}

// Item pairs a node with its rectangle.
type Item struct {
	Node types.ScanNode
	Rect Rect
}

// Layout assigns each node a rectangle inside bounds with area proportional
// to the selected metric, using the squarified algorithm:
//
//  1. Nodes are stably sorted largest first; ties keep input order.
//  2. Nodes are grouped into rows while adding the next node does not make
//     the row's worst aspect ratio larger.
//  3. Each row fills a strip across the longer side of the remaining
//     rectangle, which then shrinks by that strip.
//
// The rectangles tile bounds. Nodes whose metric is zero take no space and
// are omitted. A zero total yields no items.
func Layout(nodes []types.ScanNode, bounds Rect, metric types.SizeMetric) []Item {
	sorted := make([]types.ScanNode, 0, len(nodes))
	var total float64
	for _, n := range nodes {
		if v := metric.Select(n.Metrics); v > 0 {
			sorted = append(sorted, n)
			total += float64(v)
		}
	}
	if total == 0 || bounds.W <= 0 || bounds.H <= 0 {
		return nil
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return metric.Select(sorted[i].Metrics) > metric.Select(sorted[j].Metrics)
	})

	area := bounds.Area()
	areas := make([]float64, len(sorted))
	for i, n := range sorted {
		areas[i] = float64(metric.Select(n.Metrics)) / total * area
	}

	rects := squarify(areas, bounds)
	items := make([]Item, len(sorted))
	for i, n := range sorted {
		items[i] = Item{Node: n, Rect: rects[i]}
	}
	return items
}

// squarify places areas, already sorted descending and summing to the area
// of bounds, into rectangles in the same order.
func squarify(areas []float64, bounds Rect) []Rect {
	rects := make([]Rect, 0, len(areas))
	remaining := bounds
	start := 0

	for start < len(areas) {
		side := math.Min(remaining.W, remaining.H)
		end := start + 1
		sum := areas[start]
		worst := worstAspect(areas[start], areas[start], sum, side)

		for end < len(areas) {
			next := sum + areas[end]
			candidate := worstAspect(areas[start], areas[end], next, side)
			if candidate > worst {
				break
			}
			worst, sum = candidate, next
			end++
		}

		last := end == len(areas)
		rects, remaining = layoutRow(rects, areas[start:end], sum, remaining, last)
		start = end
	}
	return rects
}

// worstAspect returns the largest aspect ratio in a row with the given
// largest and smallest members and sum, laid against a side of length side.
// Rows are built from a descending list, so the first member is the largest
// and the most recent one the smallest.
func worstAspect(largest, smallest, sum, side float64) float64 {
	side2 := side * side
	sum2 := sum * sum
	return math.Max(side2*largest/sum2, sum2/(side2*smallest))
}

// layoutRow appends the row's rectangles and returns the rectangle left
// over. The final row takes all remaining space so rounding never leaves a
// sliver.
func layoutRow(rects []Rect, row []float64, sum float64, r Rect, last bool) ([]Rect, Rect) {
	if r.W >= r.H {
		height := sum / r.W
		if last || height > r.H {
			height = r.H
		}
		x := r.X
		for i, a := range row {
			width := r.W * a / sum
			if i == len(row)-1 {
				width = r.X + r.W - x
			}
			rects = append(rects, Rect{X: x, Y: r.Y, W: width, H: height})
			x += width
		}
		return rects, Rect{X: r.X, Y: r.Y + height, W: r.W, H: r.H - height}
	}

	width := sum / r.H
	if last || width > r.W {
		width = r.W
	}
	y := r.Y
	for i, a := range row {
		height := r.H * a / sum
		if i == len(row)-1 {
			height = r.Y + r.H - y
		}
		rects = append(rects, Rect{X: r.X, Y: y, W: width, H: height})
		y += height
	}
	return rects, Rect{X: r.X + width, Y: r.Y, W: r.W - width, H: r.H}
}
