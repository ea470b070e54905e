// Package stream models a random-access byte stream that only offers
// asynchronous reads, plus a read cursor that loads from it.
package stream

import (
	"errors"
	"io"
	"log/slog"
	"sync"
)

// Common stream errors
var (
	ErrBusy     = errors.New("another operation is in flight")
	ErrDetached = errors.New("reader is detached from its stream")
	ErrClosed   = errors.New("stream is closed")
)

// RandomAccessStream is a seekable stream whose reads complete
// asynchronously. Positions are absolute byte offsets.
type RandomAccessStream interface {
	// ReadAsync starts reading up to len(p) bytes at the current position.
	// The position advances by the number of bytes read once the operation
	// completes. A completed count of 0 with a nil error means end of stream.
	ReadAsync(p []byte) *Operation
	// Seek moves the position. Positions past the end are allowed and read
	// as end of stream.
	Seek(pos uint64) error
	Position() uint64
	Size() (uint64, error)
}

// Operation is a pending asynchronous read.
type Operation struct {
	done chan struct{}
	once sync.Once
	n    int
	err  error
}

// NewOperation returns an operation that has not completed yet.
func NewOperation() *Operation {
	return &Operation{done: make(chan struct{})}
}

// Completed returns an operation that already finished with n and err.
func Completed(n int, err error) *Operation {
	op := NewOperation()
	op.Complete(n, err)
	return op
}

// Complete records the result. Only the first call has any effect.
func (op *Operation) Complete(n int, err error) {
	op.once.Do(func() {
		op.n = n
		op.err = err
		close(op.done)
	})
}

// Done is closed when the operation completes.
func (op *Operation) Done() <-chan struct{} {
	return op.done
}

// Wait blocks until the operation completes and returns its result.
func (op *Operation) Wait() (int, error) {
	<-op.done
	return op.n, op.err
}

// ReaderAtStream implements RandomAccessStream over an io.ReaderAt of known
// size. Each read runs on its own goroutine.
type ReaderAtStream struct {
	mu       sync.Mutex
	r        io.ReaderAt
	size     int64
	pos      uint64
	inFlight bool
	closed   bool
}

// NewReaderAtStream wraps r, which holds size bytes.
func NewReaderAtStream(r io.ReaderAt, size int64) *ReaderAtStream {
	slog.Debug("creating reader-at stream", "size", size)
	return &ReaderAtStream{r: r, size: size}
}

// ReadAsync implements RandomAccessStream.
func (s *ReaderAtStream) ReadAsync(p []byte) *Operation {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Completed(0, ErrClosed)
	}
	if s.inFlight {
		s.mu.Unlock()
		return Completed(0, ErrBusy)
	}
	s.inFlight = true
	pos := s.pos
	s.mu.Unlock()

	op := NewOperation()
	go func() {
		n, err := s.readAt(p, pos)

		s.mu.Lock()
		s.inFlight = false
		if err == nil {
			s.pos = pos + uint64(n)
		}
		s.mu.Unlock()

		slog.Debug("async read completed", "position", pos, "requested", len(p), "read", n, "error", err)
		op.Complete(n, err)
	}()
	return op
}

func (s *ReaderAtStream) readAt(p []byte, pos uint64) (int, error) {
	if pos >= uint64(s.size) || len(p) == 0 {
		return 0, nil
	}
	if remaining := uint64(s.size) - pos; uint64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := s.r.ReadAt(p, int64(pos))
	if errors.Is(err, io.EOF) {
		err = nil
	}
	return n, err
}

// Seek implements RandomAccessStream.
func (s *ReaderAtStream) Seek(pos uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.inFlight {
		return ErrBusy
	}
	s.pos = pos
	return nil
}

// Position implements RandomAccessStream.
func (s *ReaderAtStream) Position() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// Size implements RandomAccessStream.
func (s *ReaderAtStream) Size() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	return uint64(s.size), nil
}

// Close marks the stream closed. It does not close the underlying reader.
func (s *ReaderAtStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
