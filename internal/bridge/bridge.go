// Package bridge adapts byte streams to the synchronous read, seek, tell and
// close callbacks a codec engine pulls from.
//
// Bridge blocks on exactly one asynchronous stream operation per callback.
// A session drives its bridge from one goroutine, so there is no locking
// here.
package bridge

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"oggopus.click/internal/stream"
)

// Errors recorded by a bridge when a callback fails.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrClosed          = errors.New("bridge is closed")
)

// Bridge implements engine.Callbacks over a stream.RandomAccessStream. The
// bridge owns its read cursor but never closes the stream.
type Bridge struct {
	stream stream.RandomAccessStream
	reader *stream.Reader
	err    error
}

// New binds a fresh read cursor to s.
func New(s stream.RandomAccessStream) *Bridge {
	return &Bridge{
		stream: s,
		reader: stream.NewReader(s),
	}
}

// Read loads up to len(p) bytes, waits for them and copies them into p. It
// returns 0 at end of stream and -1 on failure.
func (b *Bridge) Read(p []byte) int {
	if len(p) <= 0 {
		return 0
	}
	if b.reader == nil {
		b.fail("read", ErrClosed)
		return -1
	}

	loaded, err := b.reader.LoadAsync(len(p)).Wait()
	if err != nil && loaded == 0 {
		b.fail("read", err)
		return -1
	}
	n := b.reader.ReadBytes(p)
	slog.Debug("bridge read", "requested", len(p), "read", n)
	return n
}

// Seek sets the stream position. whence is io.SeekStart, io.SeekCurrent or
// io.SeekEnd. It returns 0 on success and -1 on failure.
func (b *Bridge) Seek(offset int64, whence int) int {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = b.Tell()
	case io.SeekEnd:
		size, err := b.stream.Size()
		if err != nil {
			b.fail("seek", err)
			return -1
		}
		if size > math.MaxInt64 {
			b.fail("seek", fmt.Errorf("%w: size %d", ErrInvalidArgument, size))
			return -1
		}
		base = int64(size)
	default:
		b.fail("seek", fmt.Errorf("%w: whence %d", ErrInvalidArgument, whence))
		return -1
	}

	if (offset > 0 && base > math.MaxInt64-offset) || base+offset < 0 {
		b.fail("seek", fmt.Errorf("%w: position %d%+d", ErrInvalidArgument, base, offset))
		return -1
	}
	pos := base + offset

	if b.reader != nil {
		b.reader.Discard()
	}
	if err := b.stream.Seek(uint64(pos)); err != nil {
		b.fail("seek", err)
		return -1
	}
	slog.Debug("bridge seek", "offset", offset, "whence", whence, "position", pos)
	return 0
}

// Tell returns the stream position.
func (b *Bridge) Tell() int64 {
	return int64(b.stream.Position())
}

// Close detaches and drops the read cursor. The stream stays open. Close is
// idempotent and always returns 0.
func (b *Bridge) Close() int {
	if b.reader == nil {
		return 0
	}
	b.reader.DetachStream()
	b.reader = nil
	slog.Debug("bridge closed")
	return 0
}

// Attached reports whether the bridge still owns a read cursor.
func (b *Bridge) Attached() bool {
	return b.reader != nil
}

// TakeErr returns the most recent callback failure and clears it.
func (b *Bridge) TakeErr() error {
	err := b.err
	b.err = nil
	return err
}

func (b *Bridge) fail(op string, err error) {
	slog.Debug("bridge callback failed", "op", op, "error", err)
	b.err = fmt.Errorf("%s: %w", op, err)
}
