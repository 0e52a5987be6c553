package types_test

import (
	"encoding/json"
	"errors"
	"io/fs"
	"testing"

	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanMetricsAdd(t *testing.T) {
	t.Run("zero is the identity", func(t *testing.T) {
		m := types.ScanMetrics{LogicalBytes: 10, AllocatedBytes: 4096}
		want := m
		m.Add(types.ScanMetrics{})
		assert.Equal(t, want, m)
		assert.True(t, types.ScanMetrics{}.IsZero())
	})

	t.Run("order does not matter", func(t *testing.T) {
		a := types.ScanMetrics{LogicalBytes: 1, AllocatedBytes: 2}
		b := types.ScanMetrics{LogicalBytes: 30, AllocatedBytes: 40}

		ab, ba := a, b
		ab.Add(b)
		ba.Add(a)
		assert.Equal(t, ab, ba)
	})

	t.Run("add mutates receiver", func(t *testing.T) {
		var m types.ScanMetrics
		m.Add(types.ScanMetrics{LogicalBytes: 1024, AllocatedBytes: 4096})
		m.Add(types.ScanMetrics{LogicalBytes: 2048, AllocatedBytes: 4096})
		assert.Equal(t, uint64(3072), m.LogicalBytes)
		assert.Equal(t, uint64(8192), m.AllocatedBytes)
	})
}

func TestSizeMetric(t *testing.T) {
	m := types.ScanMetrics{LogicalBytes: 100, AllocatedBytes: 4096}

	assert.Equal(t, uint64(100), types.MetricLogical.Select(m))
	assert.Equal(t, uint64(4096), types.MetricAllocated.Select(m))
	assert.Equal(t, uint64(100), m.Value(types.MetricLogical))

	tests := []struct {
		in      string
		want    types.SizeMetric
		wantErr bool
	}{
		{in: "logical", want: types.MetricLogical},
		{in: "ALLOCATED", want: types.MetricAllocated},
		{in: "", want: types.MetricAllocated},
		{in: "apparent", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := types.ParseSizeMetric(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.String(), got.String())
		})
	}
}

func TestNodeKindJSON(t *testing.T) {
	for _, kind := range []types.NodeKind{types.KindFile, types.KindDirectory, types.KindSymlink, types.KindOther} {
		data, err := json.Marshal(kind)
		require.NoError(t, err)
		assert.Equal(t, `"`+kind.String()+`"`, string(data))

		var decoded types.NodeKind
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, kind, decoded)
	}

	var bad types.NodeKind
	assert.Error(t, json.Unmarshal([]byte(`"fifo"`), &bad))
}

func sampleTree() types.ScanNode {
	return types.ScanNode{
		Name: "root", Path: "/data", Kind: types.KindDirectory,
		Children: []types.ScanNode{
			{Name: "b.bin", Path: "/data/b.bin", Kind: types.KindFile, Metrics: types.ScanMetrics{LogicalBytes: 10}},
			{
				Name: "sub", Path: "/data/sub", Kind: types.KindDirectory, Metrics: types.ScanMetrics{LogicalBytes: 50},
				Children: []types.ScanNode{
					{Name: "c.bin", Path: "/data/sub/c.bin", Kind: types.KindFile, Metrics: types.ScanMetrics{LogicalBytes: 50}},
				},
			},
			{Name: "a.bin", Path: "/data/a.bin", Kind: types.KindFile, Metrics: types.ScanMetrics{LogicalBytes: 10}},
		},
	}
}

func TestScanNodeFind(t *testing.T) {
	root := sampleTree()

	found := root.Find("/data/sub/c.bin")
	require.NotNil(t, found)
	assert.Equal(t, "c.bin", found.Name)

	assert.Equal(t, "root", root.Find("/data").Name)
	assert.Nil(t, root.Find("/data/missing"))
	assert.Nil(t, root.Find("/database"))
}

func TestScanNodeWalk(t *testing.T) {
	root := sampleTree()

	var names []string
	root.Walk(func(node *types.ScanNode, depth int) bool {
		names = append(names, node.Name)
		return node.Name != "sub"
	})
	assert.Equal(t, []string{"root", "b.bin", "sub", "a.bin"}, names)
}

func TestSortedChildren(t *testing.T) {
	root := sampleTree()

	sorted := root.SortedChildren(types.MetricLogical)
	require.Len(t, sorted, 3)
	assert.Equal(t, "sub", sorted[0].Name)
	assert.Equal(t, "a.bin", sorted[1].Name, "ties break by name")
	assert.Equal(t, "b.bin", sorted[2].Name)
	assert.Equal(t, "b.bin", root.Children[0].Name, "original order untouched")
}

func TestScanError(t *testing.T) {
	cause := &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrPermission}
	err := types.NewScanError("/x", cause)

	assert.Equal(t, "/x", err.Path)
	assert.Equal(t, fs.ErrPermission.Error(), err.Reason)
	assert.True(t, errors.Is(err, fs.ErrPermission))
	assert.Contains(t, err.Error(), "/x")
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{in: "0", want: 0},
		{in: "1024", want: 1024},
		{in: "100K", want: 100 * types.KiB},
		{in: "1.5GiB", want: uint64(1.5 * float64(types.GiB))},
		{in: "2mb", want: 2 * types.MiB},
		{in: "", wantErr: true},
		{in: "ten", wantErr: true},
		{in: "-5", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := types.ParseSize(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrInvalidSize)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "0 B", types.FormatSize(0))
	assert.Equal(t, "1.0 KiB", types.FormatSize(1024))
	assert.Equal(t, "1.0 kB", types.FormatSizeSI(1000))
	assert.Equal(t, "1,234,567", types.FormatCount(1234567))
}

func TestDefaultScanOptions(t *testing.T) {
	opts := types.DefaultScanOptions()

	assert.True(t, opts.IncludeHidden)
	assert.True(t, opts.IncludePackages)
	assert.True(t, opts.ExcludeSystemMetadata)
	assert.False(t, opts.FollowSymlinks)
	assert.GreaterOrEqual(t, opts.ConcurrentWorkers, 2)
}
