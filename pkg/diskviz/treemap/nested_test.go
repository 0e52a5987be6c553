package treemap_test

import (
	"testing"

	"github.com/jamesainslie/diskviz/pkg/diskviz/treemap"
	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree() types.ScanNode {
	sub := types.ScanNode{
		Name: "sub", Path: "/sub", Kind: types.KindDirectory,
		Metrics:  types.ScanMetrics{LogicalBytes: 60},
		Children: []types.ScanNode{file("x", 40), file("y", 20)},
	}
	return types.ScanNode{
		Name: "root", Path: "/", Kind: types.KindDirectory,
		Metrics:  types.ScanMetrics{LogicalBytes: 100},
		Children: []types.ScanNode{sub, file("z", 40)},
	}
}

func TestNested(t *testing.T) {
	bounds := treemap.Rect{W: 20, H: 10}

	t.Run("one level", func(t *testing.T) {
		items := treemap.Nested(sampleTree(), bounds, types.MetricLogical, 1)
		require.Len(t, items, 2)
		for _, item := range items {
			assert.Equal(t, 0, item.Depth)
		}
	})

	t.Run("children inside parents", func(t *testing.T) {
		items := treemap.Nested(sampleTree(), bounds, types.MetricLogical, 3)
		require.Len(t, items, 4)

		assert.Equal(t, "sub", items[0].Node.Name)
		parent := items[0].Rect

		var childArea float64
		for _, item := range items[1:3] {
			assert.Equal(t, 1, item.Depth)
			assert.InDelta(t, item.Rect.Area(), parent.Intersect(item.Rect).Area(), eps)
			childArea += item.Rect.Area()
		}
		assert.InDelta(t, parent.Area(), childArea, eps)
		assert.Equal(t, "z", items[3].Node.Name)
	})

	t.Run("no depth", func(t *testing.T) {
		assert.Empty(t, treemap.Nested(sampleTree(), bounds, types.MetricLogical, 0))
	})
}

func TestSnap(t *testing.T) {
	bounds := treemap.Rect{W: 80, H: 24}
	nodes := []types.ScanNode{file("a", 500), file("b", 250), file("c", 125), file("d", 100), file("e", 25)}

	cells := treemap.Snap(treemap.Layout(nodes, bounds, types.MetricLogical))
	require.NotEmpty(t, cells)

	grid := make([][]int, 24)
	for i := range grid {
		grid[i] = make([]int, 80)
	}
	total := 0
	for _, c := range cells {
		total += c.Width * c.Height
		for row := c.Row; row < c.Row+c.Height; row++ {
			for col := c.Col; col < c.Col+c.Width; col++ {
				grid[row][col]++
			}
		}
	}

	assert.Equal(t, 80*24, total, "snapped cells cover the grid")
	for _, row := range grid {
		for _, n := range row {
			assert.Equal(t, 1, n)
		}
	}
}

func TestSnapDropsSlivers(t *testing.T) {
	cells := treemap.Snap([]treemap.Item{
		{Node: file("wide", 1), Rect: treemap.Rect{X: 0, Y: 0, W: 10, H: 0.2}},
	})
	assert.Empty(t, cells)
}
