package bridge

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Direct implements engine.Callbacks over a blocking io.ReadSeeker. It is
// the bridge for sources that need no asynchronous adapter. Close never
// closes the underlying reader.
type Direct struct {
	rs     io.ReadSeeker
	closed bool
	err    error
}

// NewDirect wraps rs.
func NewDirect(rs io.ReadSeeker) *Direct {
	return &Direct{rs: rs}
}

// Read implements engine.Callbacks.
func (d *Direct) Read(p []byte) int {
	if len(p) <= 0 {
		return 0
	}
	if d.closed {
		d.fail("read", ErrClosed)
		return -1
	}
	n, err := io.ReadAtLeast(d.rs, p, 1)
	if err != nil && !errors.Is(err, io.EOF) && n == 0 {
		d.fail("read", err)
		return -1
	}
	return n
}

// Seek implements engine.Callbacks.
func (d *Direct) Seek(offset int64, whence int) int {
	if d.closed {
		d.fail("seek", ErrClosed)
		return -1
	}
	switch whence {
	case io.SeekStart, io.SeekCurrent, io.SeekEnd:
	default:
		d.fail("seek", fmt.Errorf("%w: whence %d", ErrInvalidArgument, whence))
		return -1
	}
	if _, err := d.rs.Seek(offset, whence); err != nil {
		d.fail("seek", err)
		return -1
	}
	return 0
}

// Tell implements engine.Callbacks.
func (d *Direct) Tell() int64 {
	pos, err := d.rs.Seek(0, io.SeekCurrent)
	if err != nil {
		d.fail("tell", err)
		return -1
	}
	return pos
}

// Close implements engine.Callbacks.
func (d *Direct) Close() int {
	d.closed = true
	return 0
}

// Attached reports whether Close has not been called yet.
func (d *Direct) Attached() bool {
	return !d.closed
}

// TakeErr returns the most recent callback failure and clears it.
func (d *Direct) TakeErr() error {
	err := d.err
	d.err = nil
	return err
}

func (d *Direct) fail(op string, err error) {
	slog.Debug("direct callback failed", "op", op, "error", err)
	d.err = fmt.Errorf("%s: %w", op, err)
}
