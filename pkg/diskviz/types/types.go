// Package types provides core data types for the diskviz disk analyzer.
// It includes the scanned node tree, per-node byte metrics, scan options,
// progress and error reporting, and helpers for parsing and formatting sizes.
package types

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jamesainslie/diskviz/pkg/diskviz/tuner"
)

// NodeKind classifies a scanned filesystem entry.
type NodeKind uint8

// Node kinds. Symlinks are never folded into files.
const (
	KindFile NodeKind = iota
	KindDirectory
	KindSymlink
	KindOther
)

// String returns the lowercase name of the kind.
func (k NodeKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	case KindSymlink:
		return "symlink"
	default:
		return "other"
	}
}

// ParseNodeKind parses the string form produced by String.
func ParseNodeKind(s string) (NodeKind, error) {
	switch s {
	case "file":
		return KindFile, nil
	case "directory":
		return KindDirectory, nil
	case "symlink":
		return KindSymlink, nil
	case "other":
		return KindOther, nil
	default:
		return KindOther, fmt.Errorf("unknown node kind %q", s)
	}
}

// MarshalJSON encodes the kind as its string form.
func (k NodeKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a kind from its string form.
func (k *NodeKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseNodeKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MarshalYAML encodes the kind as its string form.
func (k NodeKind) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

// ScanMetrics holds the byte counts tracked for every node.
// The zero value is the identity for Add.
type ScanMetrics struct {
	// LogicalBytes is the content length reported by the filesystem.
	LogicalBytes uint64 `json:"logical_bytes" yaml:"logical_bytes"`

	// AllocatedBytes is the storage actually consumed on disk.
	AllocatedBytes uint64 `json:"allocated_bytes" yaml:"allocated_bytes"`
}

// Add accumulates other into m. Overflow wraps.
func (m *ScanMetrics) Add(other ScanMetrics) {
	m.LogicalBytes += other.LogicalBytes
	m.AllocatedBytes += other.AllocatedBytes
}

// IsZero reports whether both counters are zero.
func (m ScanMetrics) IsZero() bool {
	return m.LogicalBytes == 0 && m.AllocatedBytes == 0
}

// Value returns the counter selected by metric.
func (m ScanMetrics) Value(metric SizeMetric) uint64 {
	return metric.Select(m)
}

// ScanNode is an immutable snapshot of one scanned entry and its subtree.
type ScanNode struct {
	ID           uuid.UUID   `json:"id" yaml:"id"`
	Name         string      `json:"name" yaml:"name"`
	Path         string      `json:"path" yaml:"path"`
	Kind         NodeKind    `json:"kind" yaml:"kind"`
	Metrics      ScanMetrics `json:"metrics" yaml:"metrics"`
	ChildCount   int         `json:"child_count" yaml:"child_count"`
	FileCount    int         `json:"file_count" yaml:"file_count"`
	DirCount     int         `json:"dir_count" yaml:"dir_count"`
	SymlinkCount int         `json:"symlink_count" yaml:"symlink_count"`
	OtherCount   int         `json:"other_count" yaml:"other_count"`
	Children     []ScanNode  `json:"children,omitempty" yaml:"children,omitempty"`
}

// IsDir reports whether the node is a directory.
func (n *ScanNode) IsDir() bool {
	return n.Kind == KindDirectory
}

// Walk visits n and every descendant depth-first, parents before children.
// Returning false from fn skips the node's children.
func (n *ScanNode) Walk(fn func(node *ScanNode, depth int) bool) {
	n.walk(fn, 0)
}

func (n *ScanNode) walk(fn func(node *ScanNode, depth int) bool, depth int) {
	if !fn(n, depth) {
		return
	}
	for i := range n.Children {
		n.Children[i].walk(fn, depth+1)
	}
}

// Find returns the node with the given path, or nil.
func (n *ScanNode) Find(path string) *ScanNode {
	path = filepath.Clean(path)
	var found *ScanNode
	n.Walk(func(node *ScanNode, _ int) bool {
		if found != nil {
			return false
		}
		if node.Path == path {
			found = node
			return false
		}
		return isWithin(node.Path, path)
	})
	return found
}

// isWithin reports whether child lies strictly below parent.
func isWithin(parent, child string) bool {
	sep := string(filepath.Separator)
	return strings.HasPrefix(child, strings.TrimSuffix(parent, sep)+sep)
}

// SortedChildren returns a copy of the children ordered by the selected metric,
// largest first, ties broken by name.
func (n *ScanNode) SortedChildren(metric SizeMetric) []ScanNode {
	children := make([]ScanNode, len(n.Children))
	copy(children, n.Children)
	sort.SliceStable(children, func(i, j int) bool {
		a, b := metric.Select(children[i].Metrics), metric.Select(children[j].Metrics)
		if a != b {
			return a > b
		}
		return children[i].Name < children[j].Name
	})
	return children
}

// ScanOptions configures which entries a scan records and how it recurses.
type ScanOptions struct {
	// IncludeHidden keeps dot-prefixed entries.
	IncludeHidden bool `json:"include_hidden" yaml:"include_hidden"`

	// IncludePackages recurses into bundle directories such as ".app".
	// When false those directories are recorded as opaque leaves.
	IncludePackages bool `json:"include_packages" yaml:"include_packages"`

	// ExcludeSystemMetadata skips well-known OS metadata directories.
	ExcludeSystemMetadata bool `json:"exclude_system_metadata" yaml:"exclude_system_metadata"`

	// FollowSymlinks recurses into symlink targets. When false, symlinks are
	// recorded as zero-size leaves.
	FollowSymlinks bool `json:"follow_symlinks" yaml:"follow_symlinks"`

	// ConcurrentWorkers is the size of the directory worker pool.
	ConcurrentWorkers int `json:"concurrent_workers" yaml:"concurrent_workers"`

	// Exclude contains doublestar glob patterns. A pattern matches either the
	// entry name or its slash-separated path relative to the scan root.
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
}

// DefaultWorkers returns max(2, number of logical CPUs).
func DefaultWorkers() int {
	return tuner.DefaultWorkers()
}

// DefaultScanOptions returns the options used when none are configured.
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		IncludeHidden:         true,
		IncludePackages:       true,
		ExcludeSystemMetadata: true,
		FollowSymlinks:        false,
		ConcurrentWorkers:     DefaultWorkers(),
	}
}

// ScanProgress is a point-in-time snapshot of scan counters.
type ScanProgress struct {
	// ScannedItems is the number of entries inserted into the tree.
	ScannedItems int64 `json:"scanned_items"`

	// ScannedDirectories is the number of directories opened for reading.
	ScannedDirectories int64 `json:"scanned_directories"`

	// Errors is the number of directories that failed to read.
	Errors int64 `json:"errors"`

	// Elapsed is the time since the scan started.
	Elapsed time.Duration `json:"elapsed"`
}

// Rate returns scanned items per second.
func (p ScanProgress) Rate() float64 {
	secs := p.Elapsed.Seconds()
	if secs < 0.001 {
		secs = 0.001
	}
	return float64(p.ScannedItems) / secs
}

// ScanError pairs a path with the reason it could not be read.
// It doubles as the IO error type returned by the scanner.
type ScanError struct {
	// Path is the file or directory path where the error occurred.
	Path string `json:"path" yaml:"path"`

	// Reason is the human-readable failure description.
	Reason string `json:"reason" yaml:"reason"`

	// Err is the underlying error, if any.
	Err error `json:"-" yaml:"-"`
}

// Error implements error.
func (e *ScanError) Error() string {
	return e.Path + ": " + e.Reason
}

// Unwrap returns the underlying error.
func (e *ScanError) Unwrap() error {
	return e.Err
}

// NewScanError builds a ScanError from an underlying error.
func NewScanError(path string, err error) *ScanError {
	return &ScanError{Path: path, Reason: reasonOf(err), Err: err}
}

// reasonOf strips the path prefix os errors carry so Reason reads cleanly.
func reasonOf(err error) string {
	type causer interface{ Unwrap() error }
	if c, ok := err.(causer); ok {
		if inner := c.Unwrap(); inner != nil {
			return inner.Error()
		}
	}
	return err.Error()
}

// ScanResult is the outcome of a completed or cancelled scan.
type ScanResult struct {
	// ID identifies this scan run.
	ID uuid.UUID `json:"id"`

	// Root is the frozen tree.
	Root ScanNode `json:"root"`

	// Errors contains every per-directory failure.
	Errors []ScanError `json:"errors,omitempty"`

	// Duration is the wall time of the scan.
	Duration time.Duration `json:"duration"`

	// Cancelled is set when the scan stopped before the tree was exhausted.
	Cancelled bool `json:"cancelled,omitempty"`
}
