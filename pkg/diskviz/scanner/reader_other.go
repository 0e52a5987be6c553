//go:build !linux

package scanner

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"syscall"

	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
)

// dirReader enumerates a directory through os.File.ReadDir. DirEntry.Info
// uses lstat semantics, so symlinks are never dereferenced.
type dirReader struct {
	path  string
	f     *os.File
	eof   bool
	arena []byte
	batch []direntry
}

func openDirectory(path string) (*dirReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, types.NewScanError(path, err)
	}
	if info, err := f.Stat(); err == nil && !info.IsDir() {
		_ = f.Close()
		return nil, types.NewScanError(path, &fs.PathError{Op: "open", Path: path, Err: syscall.ENOTDIR})
	}
	return &dirReader{
		path:  path,
		f:     f,
		batch: make([]direntry, 0, readBatchSize),
	}, nil
}

// Next returns up to readBatchSize entries. An empty batch means the
// directory is exhausted.
func (r *dirReader) Next() ([]direntry, error) {
	r.arena = r.arena[:0]
	r.batch = r.batch[:0]
	if r.eof {
		return r.batch, nil
	}

	entries, err := r.f.ReadDir(readBatchSize)
	if err != nil {
		r.eof = true
		if !errors.Is(err, io.EOF) && len(entries) == 0 {
			return r.batch, types.NewScanError(r.path, err)
		}
	}

	for _, de := range entries {
		var e direntry
		r.arena, e.name = appendName(r.arena, []byte(de.Name()))
		e.kind = kindFromMode(de.Type())

		if e.kind != types.KindDirectory {
			info, err := de.Info()
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err == nil {
				e.metrics = MetricsOf(info)
			}
		}
		r.batch = append(r.batch, e)
	}

	return r.batch, nil
}

// Close releases the directory handle.
func (r *dirReader) Close() error {
	return r.f.Close()
}

func kindFromMode(mode fs.FileMode) types.NodeKind {
	switch {
	case mode.IsDir():
		return types.KindDirectory
	case mode.IsRegular():
		return types.KindFile
	case mode&fs.ModeSymlink != 0:
		return types.KindSymlink
	default:
		return types.KindOther
	}
}
