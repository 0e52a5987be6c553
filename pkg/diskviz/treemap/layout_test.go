package treemap_test

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/jamesainslie/diskviz/pkg/diskviz/treemap"
	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-6

func file(name string, logical uint64) types.ScanNode {
	return types.ScanNode{
		Name:    name,
		Path:    "/" + name,
		Kind:    types.KindFile,
		Metrics: types.ScanMetrics{LogicalBytes: logical, AllocatedBytes: logical * 2},
	}
}

func assertTiles(t *testing.T, items []treemap.Item, bounds treemap.Rect) {
	t.Helper()

	var area float64
	for i, a := range items {
		area += a.Rect.Area()
		assert.GreaterOrEqual(t, a.Rect.W, -eps)
		assert.GreaterOrEqual(t, a.Rect.H, -eps)
		assert.InDelta(t, a.Rect.Area(), bounds.Intersect(a.Rect).Area(), eps*bounds.Area(),
			"%s lies inside the bounds", a.Node.Name)
		for _, b := range items[i+1:] {
			assert.False(t, a.Rect.Overlaps(b.Rect, eps*bounds.Area()), "%s overlaps %s", a.Node.Name, b.Node.Name)
		}
	}
	assert.InDelta(t, bounds.Area(), area, eps*bounds.Area())
}

func TestLayoutAreaProportional(t *testing.T) {
	nodes := []types.ScanNode{file("a", 600), file("b", 300), file("c", 100)}
	bounds := treemap.Rect{W: 100, H: 50}

	items := treemap.Layout(nodes, bounds, types.MetricLogical)
	require.Len(t, items, 3)

	for _, item := range items {
		share := float64(item.Node.Metrics.LogicalBytes) / 1000
		assert.InDelta(t, share*bounds.Area(), item.Rect.Area(), eps, item.Node.Name)
	}
	assertTiles(t, items, bounds)
}

func TestLayoutSortsDescendingAndKeepsTies(t *testing.T) {
	nodes := []types.ScanNode{file("small", 1), file("tie-1", 5), file("big", 9), file("tie-2", 5)}

	items := treemap.Layout(nodes, treemap.Rect{W: 10, H: 10}, types.MetricLogical)

	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Node.Name
	}
	assert.Equal(t, []string{"big", "tie-1", "tie-2", "small"}, names)
}

func TestLayoutSingleNodeFillsBounds(t *testing.T) {
	bounds := treemap.Rect{X: 3, Y: 4, W: 80, H: 24}

	items := treemap.Layout([]types.ScanNode{file("only", 42)}, bounds, types.MetricLogical)

	require.Len(t, items, 1)
	assert.InDelta(t, bounds.X, items[0].Rect.X, eps)
	assert.InDelta(t, bounds.Y, items[0].Rect.Y, eps)
	assert.InDelta(t, bounds.W, items[0].Rect.W, eps)
	assert.InDelta(t, bounds.H, items[0].Rect.H, eps)
}

func TestLayoutZeroTotal(t *testing.T) {
	nodes := []types.ScanNode{file("a", 0), file("b", 0)}
	assert.Empty(t, treemap.Layout(nodes, treemap.Rect{W: 10, H: 10}, types.MetricLogical))
	assert.Empty(t, treemap.Layout(nil, treemap.Rect{W: 10, H: 10}, types.MetricLogical))
	assert.Empty(t, treemap.Layout([]types.ScanNode{file("a", 1)}, treemap.Rect{}, types.MetricLogical))
}

func TestLayoutOmitsZeroNodes(t *testing.T) {
	nodes := []types.ScanNode{file("a", 10), file("empty", 0), file("b", 30)}
	bounds := treemap.Rect{W: 40, H: 10}

	items := treemap.Layout(nodes, bounds, types.MetricLogical)

	require.Len(t, items, 2)
	assertTiles(t, items, bounds)
}

func TestLayoutMetricSelection(t *testing.T) {
	nodes := []types.ScanNode{
		{Name: "sparse", Metrics: types.ScanMetrics{LogicalBytes: 1000, AllocatedBytes: 10}},
		{Name: "dense", Metrics: types.ScanMetrics{LogicalBytes: 10, AllocatedBytes: 1000}},
	}
	bounds := treemap.Rect{W: 10, H: 10}

	assert.Equal(t, "sparse", treemap.Layout(nodes, bounds, types.MetricLogical)[0].Node.Name)
	assert.Equal(t, "dense", treemap.Layout(nodes, bounds, types.MetricAllocated)[0].Node.Name)
}

func TestLayoutDeterministic(t *testing.T) {
	nodes := []types.ScanNode{file("a", 7), file("b", 3), file("c", 3), file("d", 11), file("e", 1)}
	bounds := treemap.Rect{W: 33, H: 17}

	first := treemap.Layout(nodes, bounds, types.MetricLogical)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, treemap.Layout(nodes, bounds, types.MetricLogical))
	}
}

func TestLayoutRandomInputsTile(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(40)
		nodes := make([]types.ScanNode, n)
		for i := range nodes {
			nodes[i] = file("n"+strconv.Itoa(i), uint64(rng.Intn(1<<20)+1))
		}
		bounds := treemap.Rect{
			X: rng.Float64() * 10,
			Y: rng.Float64() * 10,
			W: 1 + rng.Float64()*300,
			H: 1 + rng.Float64()*300,
		}

		items := treemap.Layout(nodes, bounds, types.MetricLogical)
		require.Len(t, items, n)
		assertTiles(t, items, bounds)
	}
}

func TestRect(t *testing.T) {
	a := treemap.Rect{X: 0, Y: 0, W: 10, H: 10}
	b := treemap.Rect{X: 10, Y: 0, W: 5, H: 10}
	c := treemap.Rect{X: 5, Y: 5, W: 10, H: 10}

	assert.Equal(t, 100.0, a.Area())
	assert.False(t, a.Overlaps(b, 0), "shared edges do not overlap")
	assert.True(t, a.Overlaps(c, 0))
	assert.Equal(t, treemap.Rect{X: 5, Y: 5, W: 5, H: 5}, a.Intersect(c))
}

func BenchmarkLayout(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	nodes := make([]types.ScanNode, 1000)
	for i := range nodes {
		nodes[i] = file("n"+strconv.Itoa(i), uint64(rng.Intn(1<<30)+1))
	}
	bounds := treemap.Rect{W: 1920, H: 1080}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		treemap.Layout(nodes, bounds, types.MetricLogical)
	}
}
