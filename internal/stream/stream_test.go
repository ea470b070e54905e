package stream

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func TestReaderAtStreamRead(t *testing.T) {
	s := NewMemoryStream(seq(10))

	buf := make([]byte, 4)
	n, err := s.ReadAsync(buf).Wait()
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{0, 1, 2, 3}, buf)
	assert.Equal(t, uint64(4), s.Position())

	require.NoError(t, s.Seek(8))
	n, err = s.ReadAsync(buf).Wait()
	require.NoError(t, err)
	assert.Equal(t, 2, n, "short read at end of stream")
	assert.Equal(t, uint64(10), s.Position())

	n, err = s.ReadAsync(buf).Wait()
	require.NoError(t, err)
	assert.Equal(t, 0, n, "end of stream reads zero")

	require.NoError(t, s.Seek(100))
	n, err = s.ReadAsync(buf).Wait()
	require.NoError(t, err)
	assert.Equal(t, 0, n, "reads past the end are end of stream")

	size, err := s.Size()
	require.NoError(t, err)
	assert.Equal(t, uint64(10), size)
}

func TestReaderAtStreamClosed(t *testing.T) {
	s := NewMemoryStream(seq(4))
	require.NoError(t, s.Close())

	_, err := s.ReadAsync(make([]byte, 1)).Wait()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Seek(0), ErrClosed)
	_, err = s.Size()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOperationCompletesOnce(t *testing.T) {
	op := NewOperation()
	select {
	case <-op.Done():
		t.Fatal("operation should not be done yet")
	default:
	}

	op.Complete(3, nil)
	op.Complete(5, errors.New("ignored"))
	n, err := op.Wait()
	assert.Equal(t, 3, n)
	assert.NoError(t, err)
}

func TestReaderLoadAndConsume(t *testing.T) {
	s := NewMemoryStream(seq(10))
	r := NewReader(s)

	n, err := r.LoadAsync(6).Wait()
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, 6, r.UnconsumedBufferLength())

	out := make([]byte, 4)
	assert.Equal(t, 4, r.ReadBytes(out))
	assert.Equal(t, []byte{0, 1, 2, 3}, out)
	assert.Equal(t, 2, r.UnconsumedBufferLength())

	n, err = r.LoadAsync(20).Wait()
	require.NoError(t, err)
	assert.Equal(t, 6, n, "loads stop at end of stream")

	out = make([]byte, 10)
	assert.Equal(t, 6, r.ReadBytes(out))
	assert.Equal(t, []byte{4, 5, 6, 7, 8, 9}, out[:6])
}

func TestReaderDetach(t *testing.T) {
	s := NewMemoryStream(seq(4))
	r := NewReader(s)
	require.True(t, r.Attached())

	got := r.DetachStream()
	assert.Same(t, s, got)
	assert.False(t, r.Attached())

	_, err := r.LoadAsync(1).Wait()
	assert.ErrorIs(t, err, ErrDetached)

	// The stream is still usable after detaching.
	n, err := s.ReadAsync(make([]byte, 2)).Wait()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestOpenFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/music/a.opus", seq(32), 0644))

	fstream, err := OpenFile(fs, "/music/a.opus")
	require.NoError(t, err)
	defer fstream.Close()

	assert.Equal(t, "/music/a.opus", fstream.Path())
	size, err := fstream.Size()
	require.NoError(t, err)
	assert.Equal(t, uint64(32), size)

	require.NoError(t, fstream.Seek(30))
	buf := make([]byte, 8)
	n, err := fstream.ReadAsync(buf).Wait()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{30, 31}, buf[:2])

	_, err = OpenFile(fs, "/music/missing.opus")
	assert.Error(t, err)

	require.NoError(t, fs.MkdirAll("/music/dir", 0755))
	_, err = OpenFile(fs, "/music/dir")
	assert.Error(t, err)
}
