package bridge

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oggopus.click/internal/stream"
)

func seq(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

// failingStream fails every read and size query.
type failingStream struct {
	pos uint64
}

var errDevice = errors.New("device unplugged")

func (f *failingStream) ReadAsync(p []byte) *stream.Operation { return stream.Completed(0, errDevice) }
func (f *failingStream) Seek(pos uint64) error { f.pos = pos; return nil }
func (f *failingStream) Position() uint64 { return f.pos }
func (f *failingStream) Size() (uint64, error) { return 0, errDevice }

func TestBridgeRead(t *testing.T) {
	b := New(stream.NewMemoryStream(seq(10)))

	assert.Equal(t, 0, b.Read(nil), "zero-length read performs no I/O")
	assert.Equal(t, int64(0), b.Tell())

	buf := make([]byte, 4)
	assert.Equal(t, 4, b.Read(buf))
	assert.Equal(t, []byte{0, 1, 2, 3}, buf)
	assert.Equal(t, int64(4), b.Tell())

	buf = make([]byte, 16)
	assert.Equal(t, 6, b.Read(buf))
	assert.Equal(t, 0, b.Read(buf), "end of stream")
	assert.NoError(t, b.TakeErr())
}

func TestBridgeSeek(t *testing.T) {
	tests := []struct {
		name   string
		start  int64
		offset int64
		whence int
		want   int
		pos    int64
	}{
		{"start", 0, 7, io.SeekStart, 0, 7},
		{"current forward", 3, 2, io.SeekCurrent, 0, 5},
		{"current backward", 3, -3, io.SeekCurrent, 0, 0},
		{"end", 0, 0, io.SeekEnd, 0, 10},
		{"before end", 0, -4, io.SeekEnd, 0, 6},
		{"past end", 0, 5, io.SeekEnd, 0, 15},
		{"negative absolute", 2, -3, io.SeekCurrent, -1, 2},
		{"negative start", 4, -1, io.SeekStart, -1, 4},
		{"bad whence", 4, 0, 7, -1, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(stream.NewMemoryStream(seq(10)))
			require.Equal(t, 0, b.Seek(tt.start, io.SeekStart))

			assert.Equal(t, tt.want, b.Seek(tt.offset, tt.whence))
			assert.Equal(t, tt.pos, b.Tell())
			if tt.want < 0 {
				assert.ErrorIs(t, b.TakeErr(), ErrInvalidArgument)
			}
		})
	}
}

func TestBridgeSeekEndTellIsSize(t *testing.T) {
	for _, size := range []int{0, 1, 4096, 100000} {
		b := New(stream.NewMemoryStream(make([]byte, size)))
		require.Equal(t, 0, b.Seek(0, io.SeekEnd))
		assert.Equal(t, int64(size), b.Tell())
	}
}

func TestBridgeSeekThenRead(t *testing.T) {
	b := New(stream.NewMemoryStream(seq(10)))
	buf := make([]byte, 2)
	require.Equal(t, 2, b.Read(buf))

	require.Equal(t, 0, b.Seek(-3, io.SeekEnd))
	require.Equal(t, 2, b.Read(buf))
	assert.Equal(t, []byte{7, 8}, buf)
}

func TestBridgeStreamFailure(t *testing.T) {
	b := New(&failingStream{})

	assert.Equal(t, -1, b.Read(make([]byte, 4)))
	assert.ErrorIs(t, b.TakeErr(), errDevice)
	assert.NoError(t, b.TakeErr(), "TakeErr clears the failure")

	assert.Equal(t, -1, b.Seek(0, io.SeekEnd))
	assert.ErrorIs(t, b.TakeErr(), errDevice)
}

func TestBridgeClose(t *testing.T) {
	s := stream.NewMemoryStream(seq(10))
	b := New(s)
	require.True(t, b.Attached())

	assert.Equal(t, 0, b.Close())
	assert.False(t, b.Attached())
	assert.Equal(t, 0, b.Close(), "close is idempotent")

	assert.Equal(t, -1, b.Read(make([]byte, 1)))
	assert.ErrorIs(t, b.TakeErr(), ErrClosed)

	// The stream itself stays usable.
	n, err := s.ReadAsync(make([]byte, 3)).Wait()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDirect(t *testing.T) {
	r := bytes.NewReader(seq(10))
	d := NewDirect(r)

	assert.Equal(t, 0, d.Read(nil))
	buf := make([]byte, 4)
	assert.Equal(t, 4, d.Read(buf))
	assert.Equal(t, int64(4), d.Tell())

	assert.Equal(t, 0, d.Seek(0, io.SeekEnd))
	assert.Equal(t, int64(10), d.Tell())
	assert.Equal(t, 0, d.Read(buf))

	assert.Equal(t, -1, d.Seek(-20, io.SeekCurrent))
	assert.Error(t, d.TakeErr())

	assert.Equal(t, -1, d.Seek(0, 42))
	assert.ErrorIs(t, d.TakeErr(), ErrInvalidArgument)

	assert.Equal(t, 0, d.Close())
	assert.False(t, d.Attached())
	assert.Equal(t, -1, d.Read(buf))
	assert.ErrorIs(t, d.TakeErr(), ErrClosed)
}
