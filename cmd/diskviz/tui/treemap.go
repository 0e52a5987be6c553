package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jamesainslie/diskviz/pkg/diskviz/output"
	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
)

// Lines above and below the treemap canvas.
const (
	headerLines = 2
	footerLines = 2
)

// TreemapView shows one directory of a scan result as a treemap and lets
// the user select a cell, open it, and go back up.
type TreemapView struct {
	result   *types.ScanResult
	stack    []*types.ScanNode // root first, current directory last
	metric   types.SizeMetric
	selected int
	canvas   *output.Canvas
	width    int
	height   int
}

// NewTreemapView creates a view of result's root.
func NewTreemapView(result *types.ScanResult, metric types.SizeMetric) TreemapView {
	v := TreemapView{
		result: result,
		stack:  []*types.ScanNode{&result.Root},
		metric: metric,
		width:  80,
		height: 24,
	}
	v.relayout()
	return v
}

// SetDimensions resizes the view and lays out the current directory again.
func (v *TreemapView) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.relayout()
}

func (v *TreemapView) relayout() {
	width := max(v.width, 1)
	height := max(v.height-headerLines-footerLines, 1)
	v.canvas = output.NewCanvas(v.Current(), v.metric, width, height)
	if v.selected >= len(v.canvas.Cells()) {
		v.selected = 0
	}
}

// Current returns the directory being shown.
func (v TreemapView) Current() *types.ScanNode {
	return v.stack[len(v.stack)-1]
}

// Depth returns how many levels below the root the view is.
func (v TreemapView) Depth() int {
	return len(v.stack) - 1
}

// Metric returns the size metric cells are laid out by.
func (v TreemapView) Metric() types.SizeMetric {
	return v.metric
}

// Selected returns the child of the current directory under the selection,
// or nil when the directory has nothing to show.
func (v TreemapView) Selected() *types.ScanNode {
	cells := v.canvas.Cells()
	if v.selected < 0 || v.selected >= len(cells) {
		return nil
	}
	return v.child(cells[v.selected].Node.Path)
}

// child finds a child of the current directory by path, so drilling down
// keeps pointing into the result tree rather than into layout copies.
func (v TreemapView) child(path string) *types.ScanNode {
	current := v.Current()
	for i := range current.Children {
		if current.Children[i].Path == path {
			return &current.Children[i]
		}
	}
	return nil
}

// Next selects the next smaller cell, wrapping around.
func (v *TreemapView) Next() {
	if n := len(v.canvas.Cells()); n > 0 {
		v.selected = (v.selected + 1) % n
	}
}

// Prev selects the next larger cell, wrapping around.
func (v *TreemapView) Prev() {
	if n := len(v.canvas.Cells()); n > 0 {
		v.selected = (v.selected - 1 + n) % n
	}
}

// Enter opens the selected cell. It reports false when the selection has
// no children to show.
func (v *TreemapView) Enter() bool {
	node := v.Selected()
	if node == nil || len(node.Children) == 0 || v.metric.Select(node.Metrics) == 0 {
		return false
	}
	v.stack = append(v.stack, node)
	v.selected = 0
	v.relayout()
	return true
}

// Back returns to the parent directory and selects the directory just
// left. It reports false at the root.
func (v *TreemapView) Back() bool {
	if len(v.stack) < 2 {
		return false
	}
	left := v.Current().Path
	v.stack = v.stack[:len(v.stack)-1]
	v.selected = 0
	v.relayout()

	for i, c := range v.canvas.Cells() {
		if c.Node.Path == left {
			v.selected = i
			break
		}
	}
	return true
}

// ToggleMetric switches between allocated and logical sizes.
func (v *TreemapView) ToggleMetric() {
	if v.metric == types.MetricAllocated {
		v.metric = types.MetricLogical
	} else {
		v.metric = types.MetricAllocated
	}
	v.selected = 0
	v.relayout()
}

// SelectAt selects the cell under a screen position. It reports whether
// a cell was hit.
func (v *TreemapView) SelectAt(x, y int) bool {
	i := v.canvas.At(x, y-headerLines)
	if i < 0 {
		return false
	}
	v.selected = i
	return true
}

// HandleKey handles navigation keys.
func (v *TreemapView) HandleKey(key string) {
	switch key {
	case "right", "l", "down", "j", "tab":
		v.Next()
	case "left", "h", "up", "k", "shift+tab":
		v.Prev()
	case "enter":
		v.Enter()
	case "backspace", "u":
		v.Back()
	case "m":
		v.ToggleMetric()
	}
}

// HandleMouse selects with a left click, opens a cell clicked while
// selected, and goes back with a right click.
func (v *TreemapView) HandleMouse(msg tea.MouseMsg) {
	if msg.Action != tea.MouseActionPress {
		return
	}
	switch msg.Button {
	case tea.MouseButtonLeft:
		before := v.selected
		if v.SelectAt(msg.X, msg.Y) && v.selected == before {
			v.Enter()
		}
	case tea.MouseButtonRight:
		v.Back()
	}
}

// View renders the header, the treemap and the status lines.
func (v TreemapView) View() string {
	var b strings.Builder
	b.WriteString(v.renderHeader())
	b.WriteString("\n")
	b.WriteString(renderDivider(v.width))
	b.WriteString("\n")
	b.WriteString(v.canvas.Render(cellStyle(v.selected)))
	b.WriteString("\n")
	b.WriteString(v.renderStatus())
	b.WriteString("\n")
	b.WriteString(v.renderHints())
	return b.String()
}

func (v TreemapView) renderHeader() string {
	current := v.Current()
	title := titleStyle.Render(" diskviz ")
	size := sizeStyle.Render(types.FormatSize(v.metric.Select(current.Metrics)))
	info := " " + size + mutedTextStyle.Render(" "+v.metric.String())
	if v.result.Cancelled {
		info += warningTextStyle.Render(" (partial)")
	}
	if n := len(v.result.Errors); n > 0 {
		info += warningTextStyle.Render(fmt.Sprintf(" %d errors", n))
	}

	room := v.width - lipgloss.Width(title) - lipgloss.Width(info) - 1
	path := mutedTextStyle.Render(truncatePath(current.Path, max(room, 0)))
	return title + path + info
}

func (v TreemapView) renderStatus() string {
	node := v.Selected()
	if node == nil {
		return mutedTextStyle.Render(" (empty)")
	}

	name := node.Name
	if len(node.Children) > 0 {
		name += "/"
	}
	size := v.metric.Select(node.Metrics)
	share := 0.0
	if total := v.metric.Select(v.Current().Metrics); total > 0 {
		share = float64(size) / float64(total) * 100
	}

	status := fmt.Sprintf(" %s  %s  %.1f%%", name, sizeStyle.Render(types.FormatSize(size)), share)
	if node.ChildCount > 0 {
		status += mutedTextStyle.Render(fmt.Sprintf("  %d items", node.ChildCount))
	}
	return status
}

func (v TreemapView) renderHints() string {
	hints := []string{
		keyHint("←/→", "select"),
		keyHint("enter", "open"),
		keyHint("backspace", "up"),
		keyHint("m", "metric"),
		keyHint("q", "quit"),
	}
	return " " + strings.Join(hints, "  ")
}
