// Package fsutil provides the crash-safe write primitive every file in the
// archive goes through.
//
// A write lands in "<path>.tmp", is flushed and fsynced, and is then renamed
// over the final path. Readers of the final path observe either the previous
// content or the complete new content, never a torn write. When any step
// before the rename fails the temp file is removed and the target is left
// exactly as it was.
package fsutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// TempSuffix is appended to the final path to name the in-flight file.
const TempSuffix = ".tmp"

// ChunkSize is the copy buffer size used by WriteSafeStream.
const ChunkSize = 1 << 20

const filePerm = 0o644

// Seams for failure injection in tests.
var (
	rename   = os.Rename
	syncFile = func(f *os.File) error { return f.Sync() }
)

// TempPath returns the sibling temp path used while writing path.
func TempPath(path string) string {
	return path + TempSuffix
}

// WriteSafe atomically replaces the content of path with data.
func WriteSafe(path string, data []byte) error {
	_, err := writeSafe(path, func(w io.Writer) (int64, error) {
		n, err := w.Write(data)
		return int64(n), err
	})
	return err
}

// WriteSafeStream atomically replaces the content of path with everything
// read from r, copying in ChunkSize pieces. The context is checked before
// each chunk; cancellation aborts the write and leaves the target untouched.
func WriteSafeStream(ctx context.Context, path string, r io.Reader) (int64, error) {
	return writeSafe(path, func(w io.Writer) (int64, error) {
		buf := make([]byte, ChunkSize)
		return io.CopyBuffer(w, &ctxReader{ctx: ctx, r: r}, buf)
	})
}

func writeSafe(path string, fill func(io.Writer) (int64, error)) (n int64, err error) {
	tmp := TempPath(path)

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return 0, fmt.Errorf("fsutil: create temp file %s: %w", tmp, err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = f.Close()
			if rmErr := os.Remove(tmp); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				err = errors.Join(err, fmt.Errorf("fsutil: remove temp file %s: %w", tmp, rmErr))
			}
		}
	}()

	if n, err = fill(f); err != nil {
		return n, fmt.Errorf("fsutil: write %s: %w", tmp, err)
	}
	if err = syncFile(f); err != nil {
		return n, fmt.Errorf("fsutil: fsync %s: %w", tmp, err)
	}
	if err = f.Close(); err != nil {
		return n, fmt.Errorf("fsutil: close %s: %w", tmp, err)
	}
	if err = rename(tmp, path); err != nil {
		return n, fmt.Errorf("fsutil: rename %s: %w", path, err)
	}
	committed = true

	// Make the rename itself durable where the filesystem allows it. ExFAT
	// and several FUSE drivers refuse directory fsync, so this is best effort.
	syncDir(filepath.Dir(path))
	return n, nil
}

func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
