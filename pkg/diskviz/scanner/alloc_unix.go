//go:build unix

package scanner

import (
	"io/fs"
	"syscall"
)

// allocatedBytes returns the storage consumed by a file in 512-byte blocks,
// falling back to the logical size when the platform stat is unavailable.
func allocatedBytes(info fs.FileInfo) uint64 {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return uint64(info.Size())
	}
	return uint64(stat.Blocks) * 512
}
