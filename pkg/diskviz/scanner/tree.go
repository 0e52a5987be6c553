package scanner

import (
	"sync"

	"github.com/google/uuid"
	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
)

// nodeIndex addresses a node in the tree arena.
type nodeIndex int

const noParent nodeIndex = -1

// treeNode is the mutable form of a node while the scan runs.
type treeNode struct {
	id       uuid.UUID
	name     string
	path     string
	kind     types.NodeKind
	metrics  types.ScanMetrics
	parent   nodeIndex
	children []nodeIndex

	fileCount    int
	dirCount     int
	symlinkCount int
	otherCount   int
}

// treeStore owns the scan tree. Nodes live in an arena and link to each
// other by index. All access goes through one mutex.
type treeStore struct {
	mu     sync.Mutex
	nodes  []treeNode
	errors []types.ScanError
}

func newTreeStore() *treeStore {
	return &treeStore{}
}

// MakeRoot creates the root directory node. It must be called exactly once,
// before any other node is added.
func (t *treeStore) MakeRoot(name, path string) nodeIndex {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nodes = append(t.nodes, treeNode{
		id:     uuid.New(),
		name:   name,
		path:   path,
		kind:   types.KindDirectory,
		parent: noParent,
	})
	return nodeIndex(len(t.nodes) - 1)
}

// AddNode appends a child to parent and returns its index with a childless
// snapshot of it. Non-directory metrics are added to every ancestor.
func (t *treeStore) AddNode(name, path string, kind types.NodeKind, metrics types.ScanMetrics, parent nodeIndex) (nodeIndex, types.ScanNode) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := nodeIndex(len(t.nodes))
	t.nodes = append(t.nodes, treeNode{
		id:      uuid.New(),
		name:    name,
		path:    path,
		kind:    kind,
		metrics: metrics,
		parent:  parent,
	})

	p := &t.nodes[parent]
	p.children = append(p.children, idx)
	switch kind {
	case types.KindFile:
		p.fileCount++
	case types.KindDirectory:
		p.dirCount++
	case types.KindSymlink:
		p.symlinkCount++
	default:
		p.otherCount++
	}

	if kind != types.KindDirectory {
		for a := parent; a != noParent; a = t.nodes[a].parent {
			t.nodes[a].metrics.Add(metrics)
		}
	}

	return idx, t.shallowLocked(idx)
}

// MarkDirectoryComplete returns a childless snapshot of a directory whose
// direct entries have all been added. Its subtree may still be growing.
func (t *treeStore) MarkDirectoryComplete(idx nodeIndex) types.ScanNode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.shallowLocked(idx)
}

// Snapshot materializes an immutable copy of the subtree rooted at idx.
func (t *treeStore) Snapshot(idx nodeIndex) types.ScanNode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked(idx)
}

func (t *treeStore) snapshotLocked(idx nodeIndex) types.ScanNode {
	node := t.shallowLocked(idx)
	if n := &t.nodes[idx]; len(n.children) > 0 {
		node.Children = make([]types.ScanNode, len(n.children))
		for i, c := range n.children {
			node.Children[i] = t.snapshotLocked(c)
		}
	}
	return node
}

func (t *treeStore) shallowLocked(idx nodeIndex) types.ScanNode {
	n := &t.nodes[idx]
	return types.ScanNode{
		ID:           n.id,
		Name:         n.name,
		Path:         n.path,
		Kind:         n.kind,
		Metrics:      n.metrics,
		ChildCount:   len(n.children),
		FileCount:    n.fileCount,
		DirCount:     n.dirCount,
		SymlinkCount: n.symlinkCount,
		OtherCount:   n.otherCount,
	}
}

// RecordError appends a per-directory failure.
func (t *treeStore) RecordError(err types.ScanError) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errors = append(t.errors, err)
}

// Errors returns a copy of the recorded failures.
func (t *treeStore) Errors() []types.ScanError {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.errors) == 0 {
		return nil
	}
	out := make([]types.ScanError, len(t.errors))
	copy(out, t.errors)
	return out
}

// Len returns the number of nodes in the tree, root included.
func (t *treeStore) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.nodes)
}
