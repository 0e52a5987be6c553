package output

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jamesainslie/diskviz/pkg/diskviz/treemap"
	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
)

// CellStyle picks the style of the i-th cell of a canvas.
type CellStyle func(i int, c treemap.Cell) lipgloss.Style

// PaletteStyle colors cells from TreemapPalette in turn.
func PaletteStyle(i int, _ treemap.Cell) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(TreemapPalette[i%len(TreemapPalette)])
}

// Canvas draws snapped treemap cells as boxes on a character grid.
type Canvas struct {
	width, height int
	runes         [][]rune
	owner         [][]int
	cells         []treemap.Cell
}

// NewCanvas lays out the children of node to fill width x height cells.
func NewCanvas(node *types.ScanNode, metric types.SizeMetric, width, height int) *Canvas {
	bounds := treemap.Rect{W: float64(width), H: float64(height)}
	cells := treemap.Snap(treemap.Layout(node.Children, bounds, metric))
	return newCanvas(cells, width, height, metric)
}

func newCanvas(cells []treemap.Cell, width, height int, metric types.SizeMetric) *Canvas {
	c := &Canvas{
		width:  width,
		height: height,
		runes:  make([][]rune, height),
		owner:  make([][]int, height),
		cells:  cells,
	}
	for row := range c.runes {
		c.runes[row] = []rune(strings.Repeat(" ", width))
		c.owner[row] = make([]int, width)
		for col := range c.owner[row] {
			c.owner[row][col] = -1
		}
	}

	for i, cell := range cells {
		c.draw(i, cell, metric)
	}
	return c
}

// Cells returns the drawn cells in layout order.
func (c *Canvas) Cells() []treemap.Cell {
	return c.cells
}

// At returns the index of the cell covering (col, row), or -1.
func (c *Canvas) At(col, row int) int {
	if row < 0 || row >= c.height || col < 0 || col >= c.width {
		return -1
	}
	return c.owner[row][col]
}

func (c *Canvas) draw(i int, cell treemap.Cell, metric types.SizeMetric) {
	x0, y0 := cell.Col, cell.Row
	x1, y1 := min(cell.Col+cell.Width, c.width), min(cell.Row+cell.Height, c.height)
	if x1 <= x0 || y1 <= y0 {
		return
	}

	for row := y0; row < y1; row++ {
		for col := x0; col < x1; col++ {
			c.owner[row][col] = i
			c.runes[row][col] = ' '
		}
	}

	w, h := x1-x0, y1-y0
	if w < 2 || h < 2 {
		for row := y0; row < y1; row++ {
			for col := x0; col < x1; col++ {
				c.runes[row][col] = '░'
			}
		}
		return
	}

	for col := x0 + 1; col < x1-1; col++ {
		c.runes[y0][col] = '─'
		c.runes[y1-1][col] = '─'
	}
	for row := y0 + 1; row < y1-1; row++ {
		c.runes[row][x0] = '│'
		c.runes[row][x1-1] = '│'
	}
	c.runes[y0][x0], c.runes[y0][x1-1] = '┌', '┐'
	c.runes[y1-1][x0], c.runes[y1-1][x1-1] = '└', '┘'

	label := cell.Node.Name
	if cell.Node.Kind == types.KindDirectory {
		label += "/"
	}
	size := types.FormatSize(metric.Select(cell.Node.Metrics))

	// Labels sit inside the box when there is room and on the top border
	// otherwise.
	if h >= 3 {
		c.text(x0+1, y0+1, w-2, label)
		if h >= 4 {
			c.text(x0+1, y0+2, w-2, size)
		}
	} else {
		c.text(x0+1, y0, w-2, label)
	}
}

// text writes s at (col, row), cut to width display columns.
func (c *Canvas) text(col, row, width int, s string) {
	if width <= 0 {
		return
	}
	s = runewidth.Truncate(s, width, "…")
	for _, r := range s {
		if col >= c.width || width <= 0 {
			return
		}
		c.runes[row][col] = r
		col++
		width--
	}
}

// Render returns the canvas as lines joined by newlines. Runs of columns
// owned by one cell are rendered with that cell's style.
func (c *Canvas) Render(style CellStyle) string {
	lines := make([]string, c.height)
	for row := 0; row < c.height; row++ {
		var sb strings.Builder
		start := 0
		for col := 1; col <= c.width; col++ {
			if col < c.width && c.owner[row][col] == c.owner[row][start] {
				continue
			}
			run := string(c.runes[row][start:col])
			if owner := c.owner[row][start]; owner >= 0 && style != nil {
				run = style(owner, c.cells[owner]).Render(run)
			}
			sb.WriteString(run)
			start = col
		}
		lines[row] = sb.String()
	}
	return strings.Join(lines, "\n")
}
