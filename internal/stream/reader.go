package stream

import (
	"log/slog"
	"sync"
)

// Reader is a read cursor over a RandomAccessStream. Bytes are first loaded
// into an internal buffer with LoadAsync and then consumed with ReadBytes.
type Reader struct {
	mu      sync.Mutex
	stream  RandomAccessStream
	buf     []byte
	loading bool
}

// NewReader attaches a cursor to s.
func NewReader(s RandomAccessStream) *Reader {
	return &Reader{stream: s}
}

// LoadAsync loads bytes until at least n are buffered or the stream ends.
// The operation completes with the number of buffered bytes, which is less
// than n only at end of stream.
func (r *Reader) LoadAsync(n int) *Operation {
	r.mu.Lock()
	if r.stream == nil {
		r.mu.Unlock()
		return Completed(0, ErrDetached)
	}
	if r.loading {
		r.mu.Unlock()
		return Completed(0, ErrBusy)
	}
	if len(r.buf) >= n {
		have := len(r.buf)
		r.mu.Unlock()
		return Completed(have, nil)
	}
	r.loading = true
	s := r.stream
	need := n - len(r.buf)
	r.mu.Unlock()

	op := NewOperation()
	go func() {
		chunk := make([]byte, need)
		filled := 0
		var err error
		for filled < need {
			var got int
			got, err = s.ReadAsync(chunk[filled:]).Wait()
			if err != nil || got == 0 {
				break
			}
			filled += got
		}

		r.mu.Lock()
		r.buf = append(r.buf, chunk[:filled]...)
		have := len(r.buf)
		r.loading = false
		r.mu.Unlock()

		if err != nil {
			slog.Debug("load failed", "requested", n, "loaded", filled, "error", err)
			op.Complete(have, err)
			return
		}
		op.Complete(have, nil)
	}()
	return op
}

// UnconsumedBufferLength returns the number of loaded bytes not yet read.
func (r *Reader) UnconsumedBufferLength() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}

// ReadBytes consumes up to len(p) buffered bytes into p.
func (r *Reader) ReadBytes(p []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n
}

// Discard drops any buffered bytes. Callers use it after repositioning the
// stream.
func (r *Reader) Discard() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf = nil
}

// DetachStream disconnects the cursor from its stream and returns the
// stream. The stream itself is left open.
func (r *Reader) DetachStream() RandomAccessStream {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.stream
	r.stream = nil
	r.buf = nil
	return s
}

// Attached reports whether the cursor still has a stream.
func (r *Reader) Attached() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stream != nil
}
