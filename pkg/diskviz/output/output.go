// Package output renders scan results for the terminal and for other
// programs (pretty, plain, json, yaml, paths, treemap, layout).
//
// Formatters are registered by name and selected at runtime:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, output.NewResult(scan, output.DefaultOptions())); err != nil {
//	    return err
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
)

// Options controls how a scan result is summarised.
type Options struct {
	// Metric selects the size every entry is ranked and reported by.
	Metric types.SizeMetric

	// Top is the number of children listed per directory. 0 lists all.
	Top int

	// Depth is the number of directory levels listed below the root.
	Depth int

	// Width and Height size the treemap formatter's canvas in cells and
	// the layout formatter's bounds.
	Width, Height int

	// SI renders sizes in decimal units (kB, MB) instead of binary ones.
	SI bool
}

// FormatSize renders bytes in the units o selects.
func (o Options) FormatSize(bytes uint64) string {
	if o.SI {
		return types.FormatSizeSI(bytes)
	}
	return types.FormatSize(bytes)
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		Metric: types.MetricAllocated,
		Top:    20,
		Depth:  1,
		Width:  100,
		Height: 30,
	}
}

// Entry is one listed node.
type Entry struct {
	Path      string  `json:"path" yaml:"path"`
	Name      string  `json:"name" yaml:"name"`
	Kind      string  `json:"kind" yaml:"kind"`
	Depth     int     `json:"depth" yaml:"depth"`
	Size      uint64  `json:"size" yaml:"size"`
	SizeHuman string  `json:"size_human" yaml:"size_human"`
	Logical   uint64  `json:"logical_bytes" yaml:"logical_bytes"`
	Allocated uint64  `json:"allocated_bytes" yaml:"allocated_bytes"`
	Share     float64 `json:"share" yaml:"share"`
	Children  int     `json:"children,omitempty" yaml:"children,omitempty"`
}

// Stats counts the entries of the whole tree, the root excluded.
type Stats struct {
	Files       int64         `json:"files" yaml:"files"`
	Directories int64         `json:"directories" yaml:"directories"`
	Symlinks    int64         `json:"symlinks" yaml:"symlinks"`
	Other       int64         `json:"other" yaml:"other"`
	Errors      int           `json:"errors" yaml:"errors"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
}

// Items returns the number of entries of every kind.
func (s Stats) Items() int64 {
	return s.Files + s.Directories + s.Symlinks + s.Other
}

// Result is the formatter input built from a scan.
type Result struct {
	Source    string          `json:"source" yaml:"source"`
	Metric    string          `json:"metric" yaml:"metric"`
	Total     uint64          `json:"total" yaml:"total"`
	Logical   uint64          `json:"logical_bytes" yaml:"logical_bytes"`
	Allocated uint64          `json:"allocated_bytes" yaml:"allocated_bytes"`
	Entries   []Entry         `json:"entries" yaml:"entries"`
	Stats     Stats           `json:"stats" yaml:"stats"`
	Warnings  []string        `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Cancelled bool            `json:"cancelled" yaml:"cancelled"`
	Tree      *types.ScanNode `json:"-" yaml:"-"`
	Options   Options         `json:"-" yaml:"-"`
}

// NewResult summarises scan. Children are listed largest first under their
// parent, Top per directory, down to Depth levels. Every per-directory read
// error becomes a warning.
func NewResult(scan *types.ScanResult, opts Options) *Result {
	root := scan.Root
	r := &Result{
		Source:    root.Path,
		Metric:    opts.Metric.String(),
		Total:     opts.Metric.Select(root.Metrics),
		Logical:   root.Metrics.LogicalBytes,
		Allocated: root.Metrics.AllocatedBytes,
		Entries:   []Entry{},
		Cancelled: scan.Cancelled,
		Tree:      &scan.Root,
		Options:   opts,
	}

	root.Walk(func(n *types.ScanNode, depth int) bool {
		if depth == 0 {
			return true
		}
		switch n.Kind {
		case types.KindFile:
			r.Stats.Files++
		case types.KindDirectory:
			r.Stats.Directories++
		case types.KindSymlink:
			r.Stats.Symlinks++
		default:
			r.Stats.Other++
		}
		return true
	})
	r.Stats.Errors = len(scan.Errors)
	r.Stats.Duration = scan.Duration

	for _, e := range scan.Errors {
		r.Warnings = append(r.Warnings, e.Error())
	}

	if opts.Depth > 0 {
		r.list(&root, 1, opts)
	}
	return r
}

func (r *Result) list(parent *types.ScanNode, depth int, opts Options) {
	parentSize := opts.Metric.Select(parent.Metrics)
	children := parent.SortedChildren(opts.Metric)
	if opts.Top > 0 && len(children) > opts.Top {
		children = children[:opts.Top]
	}

	for i := range children {
		c := &children[i]
		size := opts.Metric.Select(c.Metrics)
		entry := Entry{
			Path:      c.Path,
			Name:      c.Name,
			Kind:      c.Kind.String(),
			Depth:     depth,
			Size:      size,
			SizeHuman: opts.FormatSize(size),
			Logical:   c.Metrics.LogicalBytes,
			Allocated: c.Metrics.AllocatedBytes,
			Children:  c.ChildCount,
		}
		if parentSize > 0 {
			entry.Share = float64(size) / float64(parentSize)
		}
		r.Entries = append(r.Entries, entry)

		if depth < opts.Depth && len(c.Children) > 0 {
			r.list(c, depth+1, opts)
		}
	}
}

// TotalHuman returns the total in the units the options select.
func (r *Result) TotalHuman() string {
	return r.Options.FormatSize(r.Total)
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates an empty formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory, replacing any with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns the registered names in sorted order.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
