package output

import (
	"bytes"
	"fmt"
)

// TreemapFormatter draws the root's children as a squarified treemap of
// Options.Width x Options.Height characters.
type TreemapFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TreemapFormatter) Format(w *bytes.Buffer, r *Result) error {
	if r.Tree == nil {
		return fmt.Errorf("treemap output needs the scanned tree")
	}
	width, height := r.Options.Width, r.Options.Height
	if width < 1 || height < 1 {
		return fmt.Errorf("treemap size %dx%d is too small", width, height)
	}

	fmt.Fprintf(w, "%s %s (%s)\n", TitleLine(r.Source), SizeStyle.Render(r.TotalHuman()), r.Metric)
	canvas := NewCanvas(r.Tree, r.Options.Metric, width, height)
	w.WriteString(canvas.Render(PaletteStyle))
	w.WriteString("\n")
	return nil
}

// TitleLine renders a path as a heading.
func TitleLine(path string) string {
	return DirStyle.Bold(true).Render(path)
}

func init() {
	Register("treemap", func() Formatter {
		return &TreemapFormatter{}
	})
}

// Ensure TreemapFormatter implements Formatter.
var _ Formatter = (*TreemapFormatter)(nil)
