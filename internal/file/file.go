package file

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

var ErrIsDir = errors.New("path is a directory")

// Buffer holds the whole content of a file read into memory.
type Buffer struct {
	Data []byte
	// Size in bytes, always equal to len(Data)
	Size int64
}

// Load reads the file at path fully into memory.
// The size is resolved by seeking to the end of the file and back to its start,
// then a buffer of exactly that size is allocated and filled.
//
// Returns:
//   - Buffer: the file content with its length
//   - error: wraps the underlying *os.PathError, so errors.Is(err, fs.ErrNotExist)
//     reports a missing file. ErrIsDir is returned for directories.
func Load(path string) (Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return Buffer{}, fmt.Errorf("opening file %q: %w", path, err)
	}
	defer func() {
		if err = f.Close(); err != nil {
			slog.Error("failed to close file", "file", path, "err", err)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return Buffer{}, fmt.Errorf("reading filestat for %q: %w", path, err)
	}
	if info.IsDir() {
		return Buffer{}, fmt.Errorf("loading %q: %w", path, ErrIsDir)
	}

	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return Buffer{}, fmt.Errorf("seeking to end of %q: %w", path, err)
	}
	if _, err = f.Seek(0, io.SeekStart); err != nil {
		return Buffer{}, fmt.Errorf("seeking to start of %q: %w", path, err)
	}

	buf := make([]byte, size)
	n, err := io.ReadFull(f, buf)
	if err != nil {
		return Buffer{}, fmt.Errorf("reading %q, got %d of %d bytes: %w", path, n, size, err)
	}
	return Buffer{Data: buf, Size: size}, nil
}
