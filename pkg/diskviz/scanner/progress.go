package scanner

import (
	"sync"
	"time"

	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
)

// progressTracker counts scan activity and publishes a ProgressEvent for
// every increment. Events are published while the lock is held, so
// consumers observe counters in non-decreasing order.
type progressTracker struct {
	mu       sync.Mutex
	start    time.Time
	progress types.ScanProgress
	publish  types.EventFunc
}

func newProgressTracker(start time.Time, publish types.EventFunc) *progressTracker {
	return &progressTracker{start: start, publish: publish}
}

// IncrementItem counts one entry inserted into the tree.
func (p *progressTracker) IncrementItem() {
	p.bump(func(s *types.ScanProgress) { s.ScannedItems++ })
}

// IncrementDirectory counts one directory opened for reading.
func (p *progressTracker) IncrementDirectory() {
	p.bump(func(s *types.ScanProgress) { s.ScannedDirectories++ })
}

// IncrementErrors counts one failed directory.
func (p *progressTracker) IncrementErrors() {
	p.bump(func(s *types.ScanProgress) { s.Errors++ })
}

// Snapshot returns the current counters.
func (p *progressTracker) Snapshot() types.ScanProgress {
	p.mu.Lock()
	defer p.mu.Unlock()
	snap := p.progress
	snap.Elapsed = time.Since(p.start)
	return snap
}

func (p *progressTracker) bump(fn func(*types.ScanProgress)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fn(&p.progress)
	p.progress.Elapsed = time.Since(p.start)
	if p.publish != nil {
		p.publish(types.ProgressEvent{Progress: p.progress})
	}
}
