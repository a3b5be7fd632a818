package fileutil

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// PartialMarker is inserted before the extension of files still being written.
const PartialMarker = ".partial"

// CopyFile streams src to dst using io.Copy with default permissions (0o644).
func CopyFile(src, dst string) error {
	return CopyFileMode(src, dst, 0o644)
}

// CopyFileMode streams src to dst, setting the given file mode on dst.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// PartialPath returns the in-progress name for final, e.g. book.opus becomes
// book.partial.opus.
func PartialPath(final string) string {
	ext := filepath.Ext(final)
	return strings.TrimSuffix(final, ext) + PartialMarker + ext
}

// Promote renames a partial file onto its final path.
func Promote(partial, final string) error {
	return os.Rename(partial, final)
}

// RemoveFiles deletes every path, ignoring files that do not exist, and
// returns the first other error.
func RemoveFiles(paths ...string) error {
	var first error
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) && first == nil {
			first = err
		}
	}
	return first
}
