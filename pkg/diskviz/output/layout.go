package output

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jamesainslie/diskviz/pkg/diskviz/treemap"
)

// LayoutRect is one rectangle of a nested treemap layout.
type LayoutRect struct {
	Path  string  `json:"path"`
	Kind  string  `json:"kind"`
	Depth int     `json:"depth"`
	Size  uint64  `json:"size"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
}

// Layout is the layout formatter's document.
type Layout struct {
	Source string       `json:"source"`
	Metric string       `json:"metric"`
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Rects  []LayoutRect `json:"rects"`
}

// LayoutFormatter writes the squarified layout of the tree, Options.Depth
// levels deep inside Options.Width x Options.Height, as JSON for external
// renderers. Parents precede their descendants.
type LayoutFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *LayoutFormatter) Format(w *bytes.Buffer, r *Result) error {
	if r.Tree == nil {
		return fmt.Errorf("layout output needs the scanned tree")
	}
	opts := r.Options
	if opts.Width < 1 || opts.Height < 1 {
		return fmt.Errorf("layout size %dx%d is too small", opts.Width, opts.Height)
	}

	bounds := treemap.Rect{W: float64(opts.Width), H: float64(opts.Height)}
	items := treemap.Nested(*r.Tree, bounds, opts.Metric, max(opts.Depth, 1))

	doc := Layout{
		Source: r.Source,
		Metric: r.Metric,
		Width:  opts.Width,
		Height: opts.Height,
		Rects:  make([]LayoutRect, 0, len(items)),
	}
	for _, item := range items {
		doc.Rects = append(doc.Rects, LayoutRect{
			Path:  item.Node.Path,
			Kind:  item.Node.Kind.String(),
			Depth: item.Depth,
			Size:  opts.Metric.Select(item.Node.Metrics),
			X:     item.Rect.X,
			Y:     item.Rect.Y,
			W:     item.Rect.W,
			H:     item.Rect.H,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}

func init() {
	Register("layout", func() Formatter {
		return &LayoutFormatter{}
	})
}

// Ensure LayoutFormatter implements Formatter.
var _ Formatter = (*LayoutFormatter)(nil)
