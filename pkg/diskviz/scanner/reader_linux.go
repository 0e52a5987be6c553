//go:build linux

package scanner

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"

	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
	"golang.org/x/sys/unix"
)

// direntBufSize is the getdents64 buffer size.
const direntBufSize = 32 * 1024

// linux_dirent64 field offsets.
const (
	direntInoOff    = 0
	direntReclenOff = 16
	direntTypeOff   = 18
	direntNameOff   = 19
)

// dirReader enumerates a directory with getdents64 and sizes entries with
// fstatat relative to the directory descriptor.
type dirReader struct {
	path  string
	fd    int
	buf   []byte
	bufp  int
	nbuf  int
	eof   bool
	arena []byte
	batch []direntry
}

func openDirectory(path string) (*dirReader, error) {
	var (
		fd  int
		err error
	)
	for {
		fd, err = unix.Open(path, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
		if !errors.Is(err, unix.EINTR) {
			break
		}
	}
	if err != nil {
		return nil, types.NewScanError(path, &os.PathError{Op: "open", Path: path, Err: err})
	}

	return &dirReader{
		path:  path,
		fd:    fd,
		buf:   make([]byte, direntBufSize),
		batch: make([]direntry, 0, readBatchSize),
	}, nil
}

// Next returns up to readBatchSize entries. An empty batch means the
// directory is exhausted.
func (r *dirReader) Next() ([]direntry, error) {
	r.arena = r.arena[:0]
	r.batch = r.batch[:0]

	for len(r.batch) < readBatchSize {
		if r.bufp >= r.nbuf {
			if r.eof {
				break
			}
			n, err := unix.ReadDirent(r.fd, r.buf)
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if err != nil {
				r.eof = true
				return r.batch, types.NewScanError(r.path, &os.PathError{Op: "getdents", Path: r.path, Err: err})
			}
			if n <= 0 {
				r.eof = true
				break
			}
			r.bufp, r.nbuf = 0, n
		}

		rec := r.buf[r.bufp:r.nbuf]
		if len(rec) < direntNameOff {
			r.bufp = r.nbuf
			continue
		}
		reclen := int(binary.NativeEndian.Uint16(rec[direntReclenOff:]))
		if reclen < direntNameOff || reclen > len(rec) {
			r.bufp = r.nbuf
			continue
		}
		r.bufp += reclen

		if binary.NativeEndian.Uint64(rec[direntInoOff:]) == 0 {
			continue
		}
		name := rec[direntNameOff:reclen]
		if i := bytes.IndexByte(name, 0); i >= 0 {
			name = name[:i]
		}
		if isDotOrDotDot(name) {
			continue
		}

		entry, ok := r.entry(name, rec[direntTypeOff])
		if !ok {
			continue
		}
		r.batch = append(r.batch, entry)
	}

	return r.batch, nil
}

// entry classifies a raw dirent and stats non-directories. It reports false
// when the entry vanished between getdents and fstatat.
func (r *dirReader) entry(name []byte, typ byte) (direntry, bool) {
	var e direntry
	r.arena, e.name = appendName(r.arena, name)
	e.kind = kindFromDirentType(typ)

	if e.kind == types.KindDirectory {
		return e, true
	}

	var st unix.Stat_t
	err := unix.Fstatat(r.fd, string(name), &st, unix.AT_SYMLINK_NOFOLLOW)
	switch {
	case err == nil:
		e.metrics = types.ScanMetrics{
			LogicalBytes:   uint64(st.Size),
			AllocatedBytes: uint64(st.Blocks) * 512,
		}
	case errors.Is(err, unix.ENOENT):
		r.arena = r.arena[:len(r.arena)-len(name)]
		return direntry{}, false
	}
	return e, true
}

// Close releases the directory descriptor.
func (r *dirReader) Close() error {
	if r.fd < 0 {
		return nil
	}
	err := unix.Close(r.fd)
	r.fd = -1
	return err
}

func kindFromDirentType(typ byte) types.NodeKind {
	switch typ {
	case unix.DT_DIR:
		return types.KindDirectory
	case unix.DT_REG:
		return types.KindFile
	case unix.DT_LNK:
		return types.KindSymlink
	default:
		return types.KindOther
	}
}
