package scanner_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jamesainslie/diskviz/pkg/diskviz/scanner"
	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFile creates path filled with size zero bytes, creating parents.
func writeFile(t testing.TB, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

func newScanner(t *testing.T, opts types.ScanOptions) *scanner.Scanner {
	t.Helper()
	s, err := scanner.New(opts)
	require.NoError(t, err)
	return s
}

func scan(t *testing.T, opts types.ScanOptions, root string) *types.ScanResult {
	t.Helper()
	result, err := newScanner(t, opts).Scan(context.Background(), root, nil)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func childNamed(t *testing.T, node types.ScanNode, name string) types.ScanNode {
	t.Helper()
	for _, c := range node.Children {
		if c.Name == name {
			return c
		}
	}
	require.Failf(t, "child not found", "%s has no child %q", node.Path, name)
	return types.ScanNode{}
}

// assertInvariants recomputes every directory total from its leaves and
// checks per-kind counts. It returns the recomputed metrics of node.
func assertInvariants(t *testing.T, node types.ScanNode) types.ScanMetrics {
	t.Helper()
	if node.Kind != types.KindDirectory {
		return node.Metrics
	}

	var sum types.ScanMetrics
	counts := map[types.NodeKind]int{}
	for _, child := range node.Children {
		counts[child.Kind]++
		sum.Add(assertInvariants(t, child))
	}

	assert.Equal(t, sum, node.Metrics, "aggregate of %s", node.Path)
	assert.Equal(t, len(node.Children), node.ChildCount, "child count of %s", node.Path)
	assert.Equal(t, counts[types.KindFile], node.FileCount, "file count of %s", node.Path)
	assert.Equal(t, counts[types.KindDirectory], node.DirCount, "dir count of %s", node.Path)
	assert.Equal(t, counts[types.KindSymlink], node.SymlinkCount, "symlink count of %s", node.Path)
	assert.Equal(t, counts[types.KindOther], node.OtherCount, "other count of %s", node.Path)
	assert.Equal(t, node.ChildCount, node.FileCount+node.DirCount+node.SymlinkCount+node.OtherCount)
	return sum
}

func TestScanTwoFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "one.bin"), 1024)
	writeFile(t, filepath.Join(root, "two.bin"), 2048)

	result := scan(t, types.DefaultScanOptions(), root)

	assert.Equal(t, filepath.Base(root), result.Root.Name)
	assert.Equal(t, types.KindDirectory, result.Root.Kind)
	assert.Len(t, result.Root.Children, 2)
	assert.Equal(t, uint64(3072), result.Root.Metrics.LogicalBytes)
	assert.Equal(t, 2, result.Root.FileCount)
	assert.False(t, result.Cancelled)
	assert.Empty(t, result.Errors)
	assertInvariants(t, result.Root)
}

func TestScanNestedAggregation(t *testing.T) {
	root := t.TempDir()
	var want uint64
	for i, rel := range []string{
		"a/one.bin",
		"a/b/two.bin",
		"a/b/c/three.bin",
		"a/b/c/d/four.bin",
		"e/five.bin",
		"six.bin",
	} {
		size := (i + 1) * 1000
		want += uint64(size)
		writeFile(t, filepath.Join(root, rel), size)
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	for _, workers := range []int{1, 2, 8} {
		opts := types.DefaultScanOptions()
		opts.ConcurrentWorkers = workers
		result := scan(t, opts, root)

		assert.Equal(t, want, result.Root.Metrics.LogicalBytes, "workers=%d", workers)
		assert.GreaterOrEqual(t, result.Root.Metrics.AllocatedBytes, uint64(0))
		assertInvariants(t, result.Root)

		empty := childNamed(t, result.Root, "empty")
		assert.True(t, empty.Metrics.IsZero())
		assert.Equal(t, 0, empty.ChildCount)

		deep := result.Root.Find(filepath.Join(root, "a", "b", "c"))
		require.NotNil(t, deep)
		assert.Equal(t, uint64(3000+4000), deep.Metrics.LogicalBytes)
	}
}

func TestScanAllocatedBytes(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("block counts are not reported on windows")
	}
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "data.bin"), 64*1024)

	result := scan(t, types.DefaultScanOptions(), root)
	file := childNamed(t, result.Root, "data.bin")
	assert.Equal(t, uint64(64*1024), file.Metrics.LogicalBytes)
	assert.Positive(t, file.Metrics.AllocatedBytes)
	assert.Zero(t, file.Metrics.AllocatedBytes%512)
}

func TestScanSymlinkNotFollowed(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "real", "payload.bin"), 4096)
	require.NoError(t, os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "alias")))

	result := scan(t, types.DefaultScanOptions(), root)

	alias := childNamed(t, result.Root, "alias")
	assert.Equal(t, types.KindSymlink, alias.Kind)
	assert.True(t, alias.Metrics.IsZero())
	assert.Empty(t, alias.Children, "symlink target is not traversed")

	realDir := childNamed(t, result.Root, "real")
	assert.Equal(t, types.KindDirectory, realDir.Kind)
	assert.Equal(t, uint64(4096), realDir.Metrics.LogicalBytes)

	assert.Equal(t, uint64(4096), result.Root.Metrics.LogicalBytes)
	assert.Equal(t, 1, result.Root.SymlinkCount)
	assert.Equal(t, 0, result.Root.FileCount, "symlinks are not counted as files")
	assertInvariants(t, result.Root)
}

func TestScanFollowSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "target", "inner.bin"), 500)
	writeFile(t, filepath.Join(outside, "file.bin"), 300)

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "local.bin"), 100)
	require.NoError(t, os.Symlink(filepath.Join(outside, "target"), filepath.Join(root, "dirlink")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "file.bin"), filepath.Join(root, "filelink")))
	require.NoError(t, os.Symlink(root, filepath.Join(root, "loop")))
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "dangling")))

	opts := types.DefaultScanOptions()
	opts.FollowSymlinks = true

	s := newScanner(t, opts)
	done := make(chan *types.ScanResult)
	go func() {
		result, err := s.Scan(context.Background(), root, nil)
		assert.NoError(t, err)
		done <- result
	}()

	var result *types.ScanResult
	select {
	case result = <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("scan did not terminate; symlink cycle not detected")
	}
	require.NotNil(t, result)

	dirlink := childNamed(t, result.Root, "dirlink")
	assert.Equal(t, types.KindSymlink, dirlink.Kind)
	require.Len(t, dirlink.Children, 1)
	assert.Equal(t, "inner.bin", dirlink.Children[0].Name)
	assert.Equal(t, filepath.Join(root, "dirlink", "inner.bin"), dirlink.Children[0].Path)

	filelink := childNamed(t, result.Root, "filelink")
	assert.Equal(t, uint64(300), filelink.Metrics.LogicalBytes)

	loop := childNamed(t, result.Root, "loop")
	assert.Empty(t, loop.Children, "link back to the root is not re-entered")
	assert.True(t, childNamed(t, result.Root, "dangling").Metrics.IsZero())

	assert.Equal(t, uint64(100+500+300), result.Root.Metrics.LogicalBytes)
}

func TestScanFilters(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".hidden"), 10)
	writeFile(t, filepath.Join(root, "visible.txt"), 20)
	writeFile(t, filepath.Join(root, ".Spotlight-V100", "store.db"), 40)
	writeFile(t, filepath.Join(root, "Tool.app", "Contents", "binary"), 80)
	writeFile(t, filepath.Join(root, "cache", "x.tmp"), 160)
	writeFile(t, filepath.Join(root, "cache", "keep.dat"), 320)

	t.Run("defaults", func(t *testing.T) {
		result := scan(t, types.DefaultScanOptions(), root)

		names := childNames(result.Root)
		assert.Contains(t, names, ".hidden")
		assert.NotContains(t, names, ".Spotlight-V100")
		assert.Equal(t, uint64(10+20+80+160+320), result.Root.Metrics.LogicalBytes)
		assert.Len(t, childNamed(t, result.Root, "Tool.app").Children, 1, "packages are traversed")
	})

	t.Run("hidden excluded", func(t *testing.T) {
		opts := types.DefaultScanOptions()
		opts.IncludeHidden = false
		result := scan(t, opts, root)
		assert.NotContains(t, childNames(result.Root), ".hidden")
	})

	t.Run("system metadata included", func(t *testing.T) {
		opts := types.DefaultScanOptions()
		opts.ExcludeSystemMetadata = false
		result := scan(t, opts, root)
		assert.Contains(t, childNames(result.Root), ".Spotlight-V100")
		assert.Equal(t, uint64(10+20+40+80+160+320), result.Root.Metrics.LogicalBytes)
	})

	t.Run("packages opaque", func(t *testing.T) {
		opts := types.DefaultScanOptions()
		opts.IncludePackages = false
		result := scan(t, opts, root)

		app := childNamed(t, result.Root, "Tool.app")
		assert.Equal(t, types.KindDirectory, app.Kind)
		assert.Empty(t, app.Children)
		assert.True(t, app.Metrics.IsZero())
		assertInvariants(t, result.Root)
	})

	t.Run("exclude globs", func(t *testing.T) {
		opts := types.DefaultScanOptions()
		opts.Exclude = []string{"*.tmp", "Tool.app/*"}
		result := scan(t, opts, root)

		cache := childNamed(t, result.Root, "cache")
		assert.Equal(t, []string{"keep.dat"}, childNames(cache))
		assert.Empty(t, childNamed(t, result.Root, "Tool.app").Children)
	})
}

func childNames(node types.ScanNode) []string {
	names := make([]string, 0, len(node.Children))
	for _, c := range node.Children {
		names = append(names, c.Name)
	}
	return names
}

func TestScanUnreadableDirectoryIsRecorded(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for this user")
	}
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ok", "a.bin"), 100)
	locked := filepath.Join(root, "locked")
	writeFile(t, filepath.Join(locked, "secret.bin"), 1000)
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	var (
		mu     sync.Mutex
		events []types.ErrorEvent
	)
	onEvent := func(ev types.Event) {
		if e, ok := ev.(types.ErrorEvent); ok {
			mu.Lock()
			events = append(events, e)
			mu.Unlock()
		}
	}

	result, err := newScanner(t, types.DefaultScanOptions()).Scan(context.Background(), root, onEvent)
	require.NoError(t, err)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, locked, result.Errors[0].Path)
	assert.NotEmpty(t, result.Errors[0].Reason)
	require.Len(t, events, 1)
	assert.Equal(t, locked, events[0].Err.Path)

	assert.Equal(t, uint64(100), result.Root.Metrics.LogicalBytes, "siblings are still scanned")
	assert.Equal(t, types.KindDirectory, childNamed(t, result.Root, "locked").Kind)
	assertInvariants(t, result.Root)
}

func TestScanRootErrors(t *testing.T) {
	s := newScanner(t, types.DefaultScanOptions())

	t.Run("missing root", func(t *testing.T) {
		result, err := s.Scan(context.Background(), filepath.Join(t.TempDir(), "nope"), nil)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, types.ErrRootUnreadable)

		var scanErr *types.ScanError
		require.ErrorAs(t, err, &scanErr)
		assert.True(t, strings.HasSuffix(scanErr.Path, "nope"))
	})

	t.Run("root is a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file.txt")
		writeFile(t, file, 1)
		result, err := s.Scan(context.Background(), file, nil)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, types.ErrRootUnreadable)
	})
}

func TestNewResolvesWorkers(t *testing.T) {
	tests := []struct {
		name       string
		configured int
		want       int
	}{
		{name: "unset uses hardware", configured: 0, want: max(2, runtime.NumCPU())},
		{name: "negative uses hardware", configured: -4, want: max(2, runtime.NumCPU())},
		{name: "configured kept", configured: 3, want: 3},
		{name: "configured above core count kept", configured: 512, want: 512},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := types.DefaultScanOptions()
			opts.ConcurrentWorkers = tt.configured
			assert.Equal(t, tt.want, newScanner(t, opts).Options().ConcurrentWorkers)
		})
	}
}

func TestScanInvalidExclude(t *testing.T) {
	opts := types.DefaultScanOptions()
	opts.Exclude = []string{"[bad"}
	_, err := scanner.New(opts)
	assert.Error(t, err)
}

func TestScanEvents(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "1.bin"), 1)
	writeFile(t, filepath.Join(root, "a", "2.bin"), 2)
	writeFile(t, filepath.Join(root, "b", "3.bin"), 3)

	var (
		mu         sync.Mutex
		discovered []types.ScanNode
		completed  []string
		progress   []types.ScanProgress
	)
	onEvent := func(ev types.Event) {
		mu.Lock()
		defer mu.Unlock()
		switch e := ev.(type) {
		case types.NodeDiscoveredEvent:
			discovered = append(discovered, e.Node)
		case types.DirectoryCompletedEvent:
			completed = append(completed, e.Node.Path)
		case types.ProgressEvent:
			progress = append(progress, e.Progress)
		}
	}

	opts := types.DefaultScanOptions()
	opts.ConcurrentWorkers = 4
	result, err := newScanner(t, opts).Scan(context.Background(), root, onEvent)
	require.NoError(t, err)

	assert.Len(t, discovered, 5, "two directories and three files")
	assert.ElementsMatch(t, []string{root, filepath.Join(root, "a"), filepath.Join(root, "b")}, completed)

	for _, node := range discovered {
		assert.Nil(t, node.Children)
	}

	require.NotEmpty(t, progress)
	last := progress[len(progress)-1]
	assert.Equal(t, int64(5), last.ScannedItems)
	assert.Equal(t, int64(3), last.ScannedDirectories)
	assert.Len(t, progress, 5+3, "one progress event per increment")
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i].ScannedItems, progress[i-1].ScannedItems)
		assert.GreaterOrEqual(t, progress[i].ScannedDirectories, progress[i-1].ScannedDirectories)
	}

	ids := map[string]bool{}
	result.Root.Walk(func(n *types.ScanNode, _ int) bool {
		assert.False(t, ids[n.ID.String()], "duplicate id")
		ids[n.ID.String()] = true
		return true
	})
}

func buildWideTree(t testing.TB, dirs, filesPerDir int) string {
	t.Helper()
	root := t.TempDir()
	for d := 0; d < dirs; d++ {
		for f := 0; f < filesPerDir; f++ {
			writeFile(t, filepath.Join(root, "dir"+strconv.Itoa(d), "sub", "f"+strconv.Itoa(f)), 10)
		}
	}
	return root
}

func TestScanCancelledBeforeStart(t *testing.T) {
	root := buildWideTree(t, 3, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newScanner(t, types.DefaultScanOptions()).Scan(ctx, root, nil)
	require.ErrorIs(t, err, types.ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.True(t, result.Cancelled)
	assertInvariants(t, result.Root)
}

func TestScanCancelledMidScan(t *testing.T) {
	root := buildWideTree(t, 20, 3)

	for _, workers := range []int{1, 4} {
		ctx, cancel := context.WithCancel(context.Background())
		var once sync.Once
		onEvent := func(ev types.Event) {
			if _, ok := ev.(types.DirectoryCompletedEvent); ok {
				once.Do(cancel)
			}
		}

		opts := types.DefaultScanOptions()
		opts.ConcurrentWorkers = workers

		type outcome struct {
			result *types.ScanResult
			err    error
		}
		s := newScanner(t, opts)
		done := make(chan outcome, 1)
		go func() {
			result, err := s.Scan(ctx, root, onEvent)
			done <- outcome{result, err}
		}()

		var out outcome
		select {
		case out = <-done:
		case <-time.After(10 * time.Second):
			t.Fatalf("workers=%d: cancelled scan deadlocked", workers)
		}
		cancel()

		require.NotNil(t, out.result, "workers=%d", workers)
		if out.err != nil {
			assert.True(t, errors.Is(out.err, types.ErrCancelled))
			assert.True(t, out.result.Cancelled)
		}
		if workers == 1 {
			assert.True(t, out.result.Cancelled, "a single worker stops before the first child directory")
		}
		assertInvariants(t, out.result.Root)
	}
}

func TestScanCancelDoesNotInterruptDirectoryRead(t *testing.T) {
	const files = 3000
	root := t.TempDir()
	for i := 0; i < files; i++ {
		writeFile(t, filepath.Join(root, "f"+strconv.Itoa(i)), 1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		once      sync.Once
		completed int
	)
	onEvent := func(ev types.Event) {
		switch ev.(type) {
		case types.NodeDiscoveredEvent:
			once.Do(cancel)
		case types.DirectoryCompletedEvent:
			completed++
		}
	}

	opts := types.DefaultScanOptions()
	opts.ConcurrentWorkers = 1
	result, err := newScanner(t, opts).Scan(ctx, root, onEvent)
	if err != nil {
		require.ErrorIs(t, err, types.ErrCancelled)
	}
	require.NotNil(t, result)

	assert.Len(t, result.Root.Children, files, "the root is read to the end")
	assert.Equal(t, files, result.Root.FileCount)
	assert.Equal(t, 1, completed)
	assertInvariants(t, result.Root)
}

func TestScanWorkerPanicAbortsScan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.bin"), 1)

	onEvent := func(ev types.Event) {
		if _, ok := ev.(types.NodeDiscoveredEvent); ok {
			panic("consumer exploded")
		}
	}

	done := make(chan struct{})
	var (
		result *types.ScanResult
		err    error
	)
	s := newScanner(t, types.DefaultScanOptions())
	go func() {
		defer close(done)
		result, err = s.Scan(context.Background(), root, onEvent)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("scan did not abort after worker failure")
	}
	assert.Nil(t, result)
	assert.ErrorIs(t, err, types.ErrWorkerFailure)
	assert.Contains(t, err.Error(), "consumer exploded")
}

func BenchmarkScanWideTree(b *testing.B) {
	root := buildWideTree(b, 50, 40)
	s, err := scanner.New(types.DefaultScanOptions())
	require.NoError(b, err)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Scan(context.Background(), root, nil); err != nil {
			b.Fatal(err)
		}
	}
}
