package scanner

import (
	"io/fs"

	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
)

// readBatchSize is the maximum number of entries returned by one Next call.
const readBatchSize = 1024

// direntry is one directory entry as reported by the OS, without following
// symlinks. The name aliases the reader's arena and is only valid until the
// next call to Next.
type direntry struct {
	name    []byte
	kind    types.NodeKind
	metrics types.ScanMetrics
}

// isDotOrDotDot reports whether name is "." or "..".
func isDotOrDotDot(name []byte) bool {
	switch len(name) {
	case 1:
		return name[0] == '.'
	case 2:
		return name[0] == '.' && name[1] == '.'
	}
	return false
}

// appendName copies name into the arena and returns the arena and a
// capacity-limited sub-slice holding the copy.
func appendName(arena []byte, name []byte) ([]byte, []byte) {
	start := len(arena)
	arena = append(arena, name...)
	return arena, arena[start:len(arena):len(arena)]
}

// MetricsOf returns the logical and allocated size recorded for a
// non-directory entry described by info.
func MetricsOf(info fs.FileInfo) types.ScanMetrics {
	return types.ScanMetrics{
		LogicalBytes:   uint64(info.Size()),
		AllocatedBytes: allocatedBytes(info),
	}
}
