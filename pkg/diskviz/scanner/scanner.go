// Package scanner walks a directory tree with a fixed pool of workers and
// aggregates logical and allocated sizes into an in-memory tree. Workers
// share a termination-detecting job queue and a mutex-guarded node arena.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jamesainslie/diskviz/pkg/diskviz/filter"
	"github.com/jamesainslie/diskviz/pkg/diskviz/logging"
	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
	"golang.org/x/sync/errgroup"
)

// Scanner scans directory trees. It holds no per-scan state and may run
// several scans concurrently.
type Scanner struct {
	opts   types.ScanOptions
	filter *filter.Filter
	log    *logging.Logger
}

// New creates a Scanner. A ConcurrentWorkers below one selects the default;
// an invalid exclude pattern is an error.
func New(opts types.ScanOptions) (*Scanner, error) {
	opts = normalizeOptions(opts)

	f, err := filter.FromScanOptions(opts)
	if err != nil {
		return nil, err
	}

	return &Scanner{
		opts:   opts,
		filter: f,
		log:    logging.Get("scanner"),
	}, nil
}

// Options returns the effective scan options.
func (s *Scanner) Options() types.ScanOptions {
	return s.opts
}

// Scan walks root and returns the aggregated tree. onEvent may be nil; when
// set it is called from every worker goroutine.
//
// A root that cannot be opened yields ErrRootUnreadable and no result. A
// cancelled context yields the partial result, with Cancelled set, together
// with an error wrapping ErrCancelled.
func (s *Scanner) Scan(ctx context.Context, root string, onEvent types.EventFunc) (*types.ScanResult, error) {
	start := time.Now()

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrRootUnreadable, err)
	}
	dir, err := openDirectory(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrRootUnreadable, err)
	}
	_ = dir.Close()

	sc := &scan{
		Scanner: s,
		publish: onEvent,
		tree:    newTreeStore(),
		queue:   newWorkQueue(),
	}
	sc.progress = newProgressTracker(start, onEvent)

	rootIdx := sc.tree.MakeRoot(rootName(abs), abs)
	rootJob := job{path: abs, node: rootIdx}
	if s.opts.FollowSymlinks {
		sc.visited = make(map[string]struct{})
		rootJob.resolved = abs
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			rootJob.resolved = resolved
		}
		sc.markVisited(rootJob.resolved)
	}
	sc.queue.Enqueue(rootJob)

	log := s.log.With("scan", abs)
	log.Info("scan started", "workers", s.opts.ConcurrentWorkers, "follow_symlinks", s.opts.FollowSymlinks)

	if err := sc.run(ctx); err != nil {
		log.Error("scan aborted", "error", err)
		return nil, err
	}

	cancelled := sc.queue.Outstanding() > 0 || sc.truncated.Load()
	result := &types.ScanResult{
		ID:        uuid.New(),
		Root:      sc.tree.Snapshot(rootIdx),
		Errors:    sc.tree.Errors(),
		Duration:  time.Since(start),
		Cancelled: cancelled,
	}

	progress := sc.progress.Snapshot()
	log.Info("scan finished",
		"items", progress.ScannedItems,
		"dirs", progress.ScannedDirectories,
		"errors", progress.Errors,
		"duration", result.Duration,
		"cancelled", cancelled,
	)

	if cancelled {
		cause := ctx.Err()
		if cause == nil {
			cause = context.Canceled
		}
		return result, fmt.Errorf("%w: %w", types.ErrCancelled, cause)
	}
	return result, nil
}

// scan is the state of one Scan call.
type scan struct {
	*Scanner

	publish  types.EventFunc
	tree     *treeStore
	queue    *workQueue
	progress *progressTracker

	// truncated is set when a child job was dropped because the queue had
	// already closed.
	truncated atomic.Bool

	visitedMu sync.Mutex
	visited   map[string]struct{}
}

// run starts the worker pool and waits for it. A worker failure closes the
// queue so the other workers drain, and the first failure is returned.
func (sc *scan) run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, sc.queue.Close)
	defer stop()

	var g errgroup.Group
	for i := 0; i < sc.opts.ConcurrentWorkers; i++ {
		g.Go(func() error {
			err := sc.worker(ctx)
			if err != nil {
				sc.queue.Close()
			}
			return err
		})
	}
	return g.Wait()
}

// emit forwards an event to the caller's callback, if any.
func (sc *scan) emit(ev types.Event) {
	if sc.publish != nil {
		sc.publish(ev)
	}
}

// recordError stores a per-directory failure and reports it.
func (sc *scan) recordError(path string, err error) {
	var scanErr *types.ScanError
	if !errors.As(err, &scanErr) {
		scanErr = types.NewScanError(path, err)
	}
	sc.log.Debug("directory error", "path", scanErr.Path, "reason", scanErr.Reason)

	sc.tree.RecordError(*scanErr)
	sc.progress.IncrementErrors()
	sc.emit(types.ErrorEvent{Err: *scanErr})
}

// markVisited records a resolved directory and reports whether it was new.
func (sc *scan) markVisited(resolved string) bool {
	sc.visitedMu.Lock()
	defer sc.visitedMu.Unlock()
	if _, ok := sc.visited[resolved]; ok {
		return false
	}
	sc.visited[resolved] = struct{}{}
	return true
}

// rootName returns the display name for the scan root.
func rootName(abs string) string {
	name := filepath.Base(abs)
	if name == string(filepath.Separator) || name == "." {
		return abs
	}
	return name
}

// targetInfo follows a symlink and returns its resolved path and metadata.
func targetInfo(link string) (string, os.FileInfo, error) {
	resolved, err := filepath.EvalSymlinks(link)
	if err != nil {
		return "", nil, err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", nil, err
	}
	return resolved, info, nil
}
