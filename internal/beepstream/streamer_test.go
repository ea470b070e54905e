package beepstream

import (
	"errors"
	"testing"

	"github.com/gopxl/beep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oggopus.click/internal/engine/enginetest"
	"oggopus.click/internal/oggopus"
	"oggopus.click/internal/pcm"
	"oggopus.click/internal/stream"
)

type fixedStream struct {
	*stream.ReaderAtStream
}

func (fixedStream) Seek(uint64) error { return errors.New("no seeking") }

func openChain(t *testing.T, seekable bool) *Streamer {
	t.Helper()
	eng := enginetest.New()
	eng.ZeroAtLinkBoundary = true
	data := enginetest.Build(enginetest.Stereo(1, 1000), enginetest.Mono(2, 500))

	f := oggopus.New(eng)
	var s stream.RandomAccessStream = stream.NewMemoryStream(data)
	if !seekable {
		s = fixedStream{stream.NewMemoryStream(data)}
	}
	require.NoError(t, f.Open(s, nil))

	st, err := New(f, 600)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func drain(s beep.Streamer, buf int) [][2]float64 {
	var out [][2]float64
	chunk := make([][2]float64, buf)
	for {
		n, ok := s.Stream(chunk)
		out = append(out, chunk[:n]...)
		if !ok {
			return out
		}
	}
}

func TestStreamAcrossLinks(t *testing.T) {
	s := openChain(t, true)
	assert.Equal(t, 1500, s.Len())
	assert.Equal(t, beep.SampleRate(48000), s.Format().SampleRate)

	frames := drain(s, 256)
	require.NoError(t, s.Err())
	require.Len(t, frames, 1500)
	assert.Equal(t, 1500, s.Position())

	assert.Equal(t, [2]float64{0, pcm.ToFloat(1000)}, frames[0])
	assert.Equal(t, [2]float64{pcm.ToFloat(999), pcm.ToFloat(1999)}, frames[999])
	assert.Equal(t, [2]float64{0, 0}, frames[1000], "mono is duplicated")
	assert.Equal(t, [2]float64{pcm.ToFloat(499), pcm.ToFloat(499)}, frames[1499])
}

func TestSeek(t *testing.T) {
	s := openChain(t, true)
	drain(s, 100)

	require.NoError(t, s.Seek(1200))
	assert.Equal(t, 1200, s.Position())

	buf := make([][2]float64, 1)
	n, ok := s.Stream(buf)
	require.True(t, ok)
	require.Equal(t, 1, n)
	assert.Equal(t, pcm.ToFloat(200), buf[0][0])

	assert.Error(t, s.Seek(5000))
}

func TestUnseekable(t *testing.T) {
	s := openChain(t, false)
	assert.Equal(t, 0, s.Len())
	assert.ErrorIs(t, s.Seek(10), ErrNotSeekable)

	frames := drain(s, 333)
	require.NoError(t, s.Err())
	assert.Len(t, frames, 1500)
}

func TestStreamAfterClose(t *testing.T) {
	s := openChain(t, true)
	require.NoError(t, s.Close())

	n, ok := s.Stream(make([][2]float64, 10))
	assert.Zero(t, n)
	assert.False(t, ok)
	assert.ErrorIs(t, s.Err(), oggopus.ErrNotOpen)
}

func TestResample(t *testing.T) {
	s := openChain(t, true)
	assert.Same(t, s, Resample(s, 48000).(*Streamer))

	frames := drain(Resample(s, 24000), 128)
	require.NoError(t, s.Err())
	assert.InDelta(t, 750, len(frames), 50)
}
