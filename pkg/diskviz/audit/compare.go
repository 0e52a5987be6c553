package audit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/diskviz/pkg/diskviz/filter"
	"github.com/jamesainslie/diskviz/pkg/diskviz/scanner"
	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
)

// ErrFollowSymlinks is returned by Compare for options that follow
// symlinks; a plain walk cannot reproduce those totals.
var ErrFollowSymlinks = errors.New("cannot recompute totals when following symlinks")

// Mismatch is a directory whose recorded metrics differ from the disk.
type Mismatch struct {
	Path     string            `json:"path"`
	Snapshot types.ScanMetrics `json:"snapshot"`
	Disk     types.ScanMetrics `json:"disk"`
}

// Report is the outcome of comparing a tree with the filesystem.
type Report struct {
	Root       string      `json:"root"`
	Violations []Violation `json:"violations,omitempty"`
	Mismatches []Mismatch  `json:"mismatches,omitempty"`
	// Missing lists recorded directories that no longer exist.
	Missing []string `json:"missing,omitempty"`
	// Extra lists directories on disk the tree does not contain.
	Extra []string `json:"extra,omitempty"`
	// Checked is the number of directories compared.
	Checked int `json:"checked"`
}

// OK reports whether the tree is consistent and matches the disk.
func (r *Report) OK() bool {
	return len(r.Violations) == 0 && len(r.Mismatches) == 0 && len(r.Missing) == 0 && len(r.Extra) == 0
}

// Recompute walks root with fastwalk, applying the same entry selection as
// a scan with opts, and returns the aggregated metrics of every directory
// keyed by path. Unreadable directories count as empty.
func Recompute(ctx context.Context, root string, opts types.ScanOptions) (map[string]types.ScanMetrics, error) {
	if opts.FollowSymlinks {
		return nil, ErrFollowSymlinks
	}

	f, err := filter.FromScanOptions(opts)
	if err != nil {
		return nil, err
	}

	root, err = filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	totals := map[string]types.ScanMetrics{root: {}}

	conf := fastwalk.Config{
		Follow: false,
	}

	walkErr := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil || path == root {
			return nil //nolint:nilerr // unreadable entries count as empty
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil //nolint:nilerr
		}
		name := d.Name()
		if f.Skip(name, filepath.ToSlash(rel)) {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			mu.Lock()
			if _, ok := totals[path]; !ok {
				totals[path] = types.ScanMetrics{}
			}
			mu.Unlock()
			if !f.Descend(name) {
				return fastwalk.SkipDir
			}
			return nil
		}

		// Symlinks are not followed and carry no size.
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return nil //nolint:nilerr // vanished entries are not recorded
		}
		metrics := scanner.MetricsOf(info)

		mu.Lock()
		for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
			m := totals[dir]
			m.Add(metrics)
			totals[dir] = m
			if dir == root || dir == filepath.Dir(dir) {
				break
			}
		}
		mu.Unlock()
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walking %s: %w", root, walkErr)
	}

	return totals, nil
}

// Compare verifies tree and then compares every recorded directory with
// totals recomputed from the filesystem under opts.
func Compare(ctx context.Context, tree types.ScanNode, opts types.ScanOptions) (*Report, error) {
	report := &Report{
		Root:       tree.Path,
		Violations: Verify(tree),
	}

	disk, err := Recompute(ctx, tree.Path, opts)
	if err != nil {
		return report, err
	}

	seen := make(map[string]struct{}, len(disk))
	tree.Walk(func(n *types.ScanNode, _ int) bool {
		if n.Kind != types.KindDirectory {
			return false
		}
		seen[n.Path] = struct{}{}
		m, ok := disk[n.Path]
		if !ok {
			report.Missing = append(report.Missing, n.Path)
			return false
		}
		report.Checked++
		if m != n.Metrics {
			report.Mismatches = append(report.Mismatches, Mismatch{Path: n.Path, Snapshot: n.Metrics, Disk: m})
		}
		return true
	})

	for path := range disk {
		if _, ok := seen[path]; !ok {
			report.Extra = append(report.Extra, path)
		}
	}
	sort.Strings(report.Extra)

	return report, nil
}
