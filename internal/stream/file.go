package stream

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"
)

// NewMemoryStream returns a stream over an in-memory buffer.
func NewMemoryStream(b []byte) *ReaderAtStream {
	return NewReaderAtStream(bytes.NewReader(b), int64(len(b)))
}

// FileStream is a RandomAccessStream over a file opened through afero.
type FileStream struct {
	*ReaderAtStream
	file afero.File
	path string
}

// OpenFile opens path on fs for asynchronous random access.
func OpenFile(fs afero.Fs, path string) (*FileStream, error) {
	slog.Debug("opening file stream", "path", path)

	f, err := fs.Open(path)
	if err != nil {
		slog.Error("failed to open file stream", "path", path, "error", err)
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s is a directory", path)
	}

	slog.Debug("file stream ready", "path", path, "size", info.Size())
	return &FileStream{
		ReaderAtStream: NewReaderAtStream(f, info.Size()),
		file:           f,
		path:           path,
	}, nil
}

// Path returns the path the stream was opened with.
func (fs *FileStream) Path() string {
	return fs.path
}

// Close closes the stream and the underlying file.
func (fs *FileStream) Close() error {
	fs.ReaderAtStream.Close()
	if err := fs.file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", fs.path, err)
	}
	return nil
}
