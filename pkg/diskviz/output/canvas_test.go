package output

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/diskviz/pkg/diskviz/treemap"
	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
)

func TestCanvas_CoversGrid(t *testing.T) {
	root := sampleScan().Root
	canvas := NewCanvas(&root, types.MetricAllocated, 40, 12)

	require.NotEmpty(t, canvas.Cells())
	for row := 0; row < 12; row++ {
		for col := 0; col < 40; col++ {
			assert.GreaterOrEqual(t, canvas.At(col, row), 0, "(%d,%d) is covered", col, row)
		}
	}
	assert.Equal(t, -1, canvas.At(-1, 0))
	assert.Equal(t, -1, canvas.At(40, 0))
	assert.Equal(t, -1, canvas.At(0, 12))
}

func TestCanvas_LargestCellFirst(t *testing.T) {
	root := sampleScan().Root
	canvas := NewCanvas(&root, types.MetricLogical, 40, 12)

	cells := canvas.Cells()
	require.NotEmpty(t, cells)
	assert.Equal(t, "video.mp4", cells[0].Node.Name)
	assert.Equal(t, 0, canvas.At(0, 0))
}

func TestCanvas_Boxes(t *testing.T) {
	cell := treemap.Cell{
		Item:  treemap.Item{Node: types.ScanNode{Name: "docs", Kind: types.KindDirectory, Metrics: types.ScanMetrics{AllocatedBytes: 2048}}},
		Width: 10, Height: 4,
	}
	canvas := newCanvas([]treemap.Cell{cell}, 10, 4, types.MetricAllocated)

	assert.Equal(t, strings.Join([]string{
		"┌────────┐",
		"│docs/   │",
		"│2.0 KiB │",
		"└────────┘",
	}, "\n"), canvas.Render(nil))
}

func TestCanvas_ThinCellsAndTruncation(t *testing.T) {
	cells := []treemap.Cell{
		{Item: treemap.Item{Node: types.ScanNode{Name: "a-very-long-name"}}, Width: 8, Height: 2},
		{Item: treemap.Item{Node: types.ScanNode{Name: "x"}}, Col: 8, Width: 1, Height: 2},
	}
	canvas := newCanvas(cells, 9, 2, types.MetricAllocated)

	assert.Equal(t, "┌a-ver…┐░\n└──────┘░", canvas.Render(nil))
}

func TestCanvas_RenderStyles(t *testing.T) {
	root := sampleScan().Root
	canvas := NewCanvas(&root, types.MetricAllocated, 30, 8)

	var seen []int
	out := canvas.Render(func(i int, _ treemap.Cell) lipgloss.Style {
		seen = append(seen, i)
		return lipgloss.NewStyle()
	})

	assert.NotEmpty(t, seen)
	for _, line := range strings.Split(out, "\n") {
		assert.Equal(t, 30, lipgloss.Width(line))
	}
}
