package scanner

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
)

func TestProgressTracker(t *testing.T) {
	var events []types.ScanProgress
	p := newProgressTracker(time.Now(), func(ev types.Event) {
		pe, ok := ev.(types.ProgressEvent)
		require.True(t, ok)
		events = append(events, pe.Progress)
	})

	p.IncrementDirectory()
	p.IncrementItem()
	p.IncrementItem()
	p.IncrementErrors()

	require.Len(t, events, 4, "one event per increment")
	assert.Equal(t, int64(1), events[0].ScannedDirectories)
	assert.Equal(t, int64(2), events[2].ScannedItems)
	assert.Equal(t, int64(1), events[3].Errors)

	snap := p.Snapshot()
	assert.Equal(t, int64(2), snap.ScannedItems)
	assert.Equal(t, int64(1), snap.ScannedDirectories)
	assert.Equal(t, int64(1), snap.Errors)
}

func TestProgressTrackerConcurrentEventsAreOrdered(t *testing.T) {
	var last int64
	ordered := true
	p := newProgressTracker(time.Now(), func(ev types.Event) {
		items := ev.(types.ProgressEvent).Progress.ScannedItems
		if items < last {
			ordered = false
		}
		last = items
	})

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				p.IncrementItem()
			}
		}()
	}
	wg.Wait()

	assert.True(t, ordered, "counters never go backwards")
	assert.Equal(t, int64(4000), p.Snapshot().ScannedItems)
}

func TestProgressTrackerWithoutSubscriber(t *testing.T) {
	p := newProgressTracker(time.Now(), nil)
	p.IncrementItem()
	assert.Equal(t, int64(1), p.Snapshot().ScannedItems)
}
