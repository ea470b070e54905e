package oggopus

import (
	"fmt"
	"log/slog"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"

	"oggopus.click/internal/engine"
	"oggopus.click/internal/stream"
)

// SniffSize is the number of leading bytes read for content detection.
const SniffSize = 512

// Sniff detects the MIME type of a file prefix and reports whether it is an
// Ogg container.
func Sniff(prefix []byte) (string, bool) {
	mtype := mimetype.Detect(prefix)
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("application/ogg") {
			return mtype.String(), true
		}
	}
	return mtype.String(), false
}

// Source is a File opened from a filesystem path. Close frees the file and
// closes the underlying stream.
type Source struct {
	*File
	Path string
	MIME string

	stream *stream.FileStream
}

// OpenFile opens path on fsys and decodes it with eng. The sniffed prefix is
// handed to the engine as initial data, so it is not read twice. With
// requireOgg set, content that does not look like Ogg is rejected before
// the engine sees it.
func OpenFile(eng engine.Engine, fsys afero.Fs, path string, requireOgg bool) (*Source, error) {
	s, err := stream.OpenFile(fsys, path)
	if err != nil {
		return nil, err
	}

	prefix := make([]byte, SniffSize)
	n, err := s.ReadAsync(prefix).Wait()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	prefix = prefix[:n]

	mime, isOgg := Sniff(prefix)
	slog.Debug("sniffed file", "path", path, "mime", mime, "ogg", isOgg)
	if requireOgg && !isOgg {
		s.Close()
		return nil, fmt.Errorf("%s (%s): %w", path, mime, ErrNotOgg)
	}

	f := New(eng)
	if err := f.Open(s, prefix); err != nil {
		s.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Source{File: f, Path: path, MIME: mime, stream: s}, nil
}

// Close frees the file and closes the stream.
func (s *Source) Close() error {
	s.File.Free()
	return s.stream.Close()
}
