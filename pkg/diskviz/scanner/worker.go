package scanner

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
)

// worker pulls directory jobs until the queue closes. For each job:
//  1. Stop taking jobs if the scan was cancelled
//  2. Read the whole directory in batches and add every kept entry to the tree
//  3. Enqueue child directories
//  4. Publish DirectoryCompletedEvent and complete the job
//
// Cancellation is only observed between jobs; a directory that has started
// is read to the end. A panic inside a job is returned as ErrWorkerFailure.
func (sc *scan) worker(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", types.ErrWorkerFailure, r)
		}
	}()

	for {
		j, ok := sc.queue.Next()
		if !ok {
			return nil
		}
		if ctx.Err() != nil {
			sc.queue.Close()
			return nil
		}

		sc.processDirectory(j)
		sc.queue.CompleteJob()
	}
}

// entryReader yields a directory's entries in batches. An empty batch ends
// the directory.
type entryReader interface {
	Next() ([]direntry, error)
	Close() error
}

// processDirectory opens and reads one directory. An open failure is
// recorded and ends the job without affecting other directories.
func (sc *scan) processDirectory(j job) {
	r, err := openDirectory(j.path)
	if err != nil {
		sc.recordError(j.path, err)
		return
	}
	defer func() { _ = r.Close() }()

	sc.readDirectory(j, r)
}

// readDirectory adds every entry of r to the tree. A read error is recorded
// and abandons the directory: entries already added stay, and no
// DirectoryCompletedEvent is published.
func (sc *scan) readDirectory(j job, r entryReader) {
	sc.progress.IncrementDirectory()

	for {
		batch, err := r.Next()
		for i := range batch {
			sc.processEntry(j, &batch[i])
		}
		if err != nil {
			sc.recordError(j.path, err)
			return
		}
		if len(batch) == 0 {
			break
		}
	}

	sc.emit(types.DirectoryCompletedEvent{Node: sc.tree.MarkDirectoryComplete(j.node)})
}

// processEntry filters, classifies and records one entry of j's directory.
func (sc *scan) processEntry(j job, e *direntry) {
	name := string(e.name)
	rel := path.Join(j.rel, name)
	if sc.filter.Skip(name, rel) {
		return
	}

	full := filepath.Join(j.path, name)
	metrics := e.metrics
	var child *job

	switch e.kind {
	case types.KindDirectory:
		if sc.filter.Descend(name) {
			child = &job{path: full, rel: rel}
			if sc.opts.FollowSymlinks {
				child.resolved = filepath.Join(j.resolved, name)
				sc.markVisited(child.resolved)
			}
		}

	case types.KindSymlink:
		metrics = types.ScanMetrics{}
		if sc.opts.FollowSymlinks {
			metrics, child = sc.followLink(full, rel)
		}
	}

	idx, node := sc.tree.AddNode(name, full, e.kind, metrics, j.node)
	sc.progress.IncrementItem()
	sc.emit(types.NodeDiscoveredEvent{Node: node})

	if child != nil {
		child.node = idx
		if !sc.queue.Enqueue(*child) {
			sc.truncated.Store(true)
		}
	}
}

// followLink resolves a symlink. A file target lends its metrics to the
// link node; a directory target not yet visited is scanned beneath it.
// Dangling links and links back into visited directories stay zero-size
// leaves. Real directories are always scanned, so a link to a sibling can
// count the sibling's bytes twice.
func (sc *scan) followLink(full, rel string) (types.ScanMetrics, *job) {
	resolved, info, err := targetInfo(full)
	if err != nil {
		sc.log.Debug("unresolvable symlink", "path", full, "error", err)
		return types.ScanMetrics{}, nil
	}

	if !info.IsDir() {
		return MetricsOf(info), nil
	}

	if !sc.markVisited(resolved) {
		return types.ScanMetrics{}, nil
	}
	return types.ScanMetrics{}, &job{path: full, rel: rel, resolved: resolved}
}
