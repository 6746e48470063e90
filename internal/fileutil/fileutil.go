package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CopyAtomic copies src into dst through a hidden temporary file in dst's
// directory and renames it into place once the byte count matches the source.
// Watchers of dst's directory never observe a partial file under dst's name.
func CopyAtomic(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	return writeAtomic(dst, 0o644, func(w io.Writer) (int64, error) {
		written, err := io.Copy(w, in)
		if err != nil {
			return written, err
		}
		if written != info.Size() {
			return written, fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", info.Size(), written)
		}
		return written, nil
	})
}

// WriteFileAtomic writes data to path via a temporary file and rename.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	return writeAtomic(path, mode, func(w io.Writer) (int64, error) {
		n, err := w.Write(data)
		return int64(n), err
	})
}

func writeAtomic(dst string, mode os.FileMode, fill func(io.Writer) (int64, error)) error {
	dir, base := filepath.Split(dst)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := fill(tmp); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// IsHidden reports whether a base name is a dot file.
func IsHidden(name string) bool {
	return len(name) > 0 && name[0] == '.'
}
