package fsutil

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const atomicBufSize = 64 * 1024

// WriteAtomic writes dest by streaming fill into a temporary file in the same
// directory, syncing it, and renaming it over dest. Readers never observe a
// partially written dest. The temporary file is removed on every failure path.
func WriteAtomic(fsys FileSystem, dest string, perm os.FileMode, fill func(w io.Writer) error) (err error) {
	dir := filepath.Dir(dest)
	tmp, err := fsys.CreateTemp(dir, ".tmp-"+filepath.Base(dest)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", dest, err)
	}
	tmpPath := tmp.Name()

	closed := false
	defer func() {
		if err == nil {
			return
		}
		if !closed {
			_ = tmp.Close()
		}
		_ = fsys.Remove(tmpPath)
	}()

	if perm != 0 {
		_ = tmp.Chmod(perm)
	}

	bw := bufio.NewWriterSize(tmp, atomicBufSize)
	if err = fill(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", tmpPath, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmpPath, err)
	}
	closed = true
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err = fsys.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("replace %s: %w", dest, err)
	}
	return nil
}

// WriteFileAtomic is WriteAtomic for an in-memory payload.
func WriteFileAtomic(fsys FileSystem, dest string, data []byte, perm os.FileMode) error {
	return WriteAtomic(fsys, dest, perm, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
