package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrTooLarge is returned when a copy would exceed its byte limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// WriteLimited streams r into dst through a temporary sibling file and
// renames it into place. A limit <= 0 disables the size check. The partial
// file is removed on any failure.
func WriteLimited(r io.Reader, dst string, limit int64) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".partial-*")
	if err != nil {
		return 0, err
	}
	tmpPath := tmp.Name()
	fail := func(err error) (int64, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return 0, err
	}

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	written, err := io.Copy(tmp, src)
	if err != nil {
		return fail(err)
	}
	if limit > 0 && written > limit {
		return fail(fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return 0, err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return 0, err
	}
	return written, nil
}

// CopyFile copies the regular file src to dst, honouring limit as in
// WriteLimited.
func CopyFile(src, dst string, limit int64) (int64, error) {
	info, err := os.Stat(src)
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s is not a regular file", src)
	}
	if limit > 0 && info.Size() > limit {
		return 0, fmt.Errorf("%w: %d bytes", ErrTooLarge, info.Size())
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	return WriteLimited(in, dst, limit)
}

// MoveFile renames src to dst, falling back to copy and delete when the
// rename crosses filesystems.
func MoveFile(src, dst string, limit int64) (int64, error) {
	info, err := os.Stat(src)
	if err != nil {
		return 0, err
	}
	if limit > 0 && info.Size() > limit {
		return 0, fmt.Errorf("%w: %d bytes", ErrTooLarge, info.Size())
	}
	if err := os.Rename(src, dst); err == nil {
		return info.Size(), nil
	}
	written, err := CopyFile(src, dst, limit)
	if err != nil {
		return 0, err
	}
	_ = os.Remove(src)
	return written, nil
}
