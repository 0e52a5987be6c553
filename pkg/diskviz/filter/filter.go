// Package filter decides which directory entries a scan records and which
// directories it descends into.
package filter

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
)

// SystemMetadataNames are OS bookkeeping entries skipped when system
// metadata is excluded.
var SystemMetadataNames = map[string]struct{}{
	".Spotlight-V100":           {},
	".fseventsd":                {},
	".Trashes":                  {},
	"System Volume Information": {},
}

// PackageSuffixes mark bundle directories, matched case-insensitively.
var PackageSuffixes = []string{".app", ".framework"}

// Filter holds entry selection criteria.
type Filter struct {
	// IncludeHidden keeps entries whose name starts with a dot.
	IncludeHidden bool

	// ExcludeSystemMetadata drops SystemMetadataNames.
	ExcludeSystemMetadata bool

	// IncludePackages descends into bundle directories. Otherwise they are
	// recorded as empty directories.
	IncludePackages bool

	// Exclude contains doublestar patterns matched against the entry name
	// and its slash-separated path relative to the scan root.
	Exclude []string
}

// Option is a functional option for configuring a Filter.
type Option func(*Filter)

// New creates a Filter. Defaults match types.DefaultScanOptions. An
// invalid exclude pattern is an error.
func New(opts ...Option) (*Filter, error) {
	f := &Filter{
		IncludeHidden:         true,
		ExcludeSystemMetadata: true,
		IncludePackages:       true,
	}

	for _, opt := range opts {
		opt(f)
	}

	patterns := f.Exclude[:0:0]
	for _, pattern := range f.Exclude {
		if pattern == "" {
			continue
		}
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, doublestar.ErrBadPattern)
		}
		patterns = append(patterns, pattern)
	}
	f.Exclude = patterns

	return f, nil
}

// FromScanOptions builds the Filter a scan with opts applies.
func FromScanOptions(opts types.ScanOptions) (*Filter, error) {
	return New(
		WithHidden(opts.IncludeHidden),
		WithSystemMetadata(!opts.ExcludeSystemMetadata),
		WithPackages(opts.IncludePackages),
		WithExclude(opts.Exclude...),
	)
}

// WithHidden sets whether dot-prefixed entries are kept.
func WithHidden(include bool) Option {
	return func(f *Filter) {
		f.IncludeHidden = include
	}
}

// WithSystemMetadata sets whether OS bookkeeping entries are kept.
func WithSystemMetadata(include bool) Option {
	return func(f *Filter) {
		f.ExcludeSystemMetadata = !include
	}
}

// WithPackages sets whether bundle directories are descended into.
func WithPackages(include bool) Option {
	return func(f *Filter) {
		f.IncludePackages = include
	}
}

// WithExclude sets the exclude patterns. Empty patterns are ignored.
func WithExclude(patterns ...string) Option {
	return func(f *Filter) {
		f.Exclude = append([]string(nil), patterns...)
	}
}

// Skip reports whether the entry is left out of the tree entirely.
func (f *Filter) Skip(name, rel string) bool {
	if !f.IncludeHidden && strings.HasPrefix(name, ".") {
		return true
	}
	if f.ExcludeSystemMetadata {
		if _, ok := SystemMetadataNames[name]; ok {
			return true
		}
	}
	return f.excluded(name, rel)
}

// Descend reports whether a kept directory's contents are scanned.
func (f *Filter) Descend(name string) bool {
	return f.IncludePackages || !IsPackage(name)
}

func (f *Filter) excluded(name, rel string) bool {
	for _, pattern := range f.Exclude {
		if matched, _ := doublestar.Match(pattern, name); matched {
			return true
		}
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

// IsPackage reports whether a directory name carries a bundle suffix. The
// match is case-sensitive.
func IsPackage(name string) bool {
	for _, suffix := range PackageSuffixes {
		if strings.HasSuffix(name, suffix) && len(name) > len(suffix) {
			return true
		}
	}
	return false
}
