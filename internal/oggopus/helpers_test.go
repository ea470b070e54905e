package oggopus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"oggopus.click/internal/engine"
	"oggopus.click/internal/engine/enginetest"
	"oggopus.click/internal/picture"
	"oggopus.click/internal/stream"
)

// openMemory opens data from an in-memory stream.
func openMemory(t *testing.T, eng engine.Engine, data []byte) *File {
	t.Helper()
	f := New(eng)
	require.NoError(t, f.Open(stream.NewMemoryStream(data), nil))
	t.Cleanup(f.Free)
	return f
}

// unseekable refuses every reposition.
type unseekable struct {
	*stream.ReaderAtStream
}

func (u unseekable) Seek(uint64) error {
	return errors.New("stream cannot seek")
}

// faultingPictures fails every picture parse with the given code.
type faultingPictures struct {
	*enginetest.Engine
	code int
}

func (e faultingPictures) ParsePicture([]byte) (*picture.Picture, int) {
	return nil, e.code
}

// readAll decodes until the stream position reaches the total, collecting
// per-call frame counts.
func readAll(t *testing.T, f *File, chunk int) ([]int16, []int) {
	t.Helper()
	total, err := f.PcmTotal(-1)
	require.NoError(t, err)

	var samples []int16
	var counts []int
	for i := 0; i < 10000; i++ {
		got, li, err := f.ReadSamples(chunk)
		require.NoError(t, err)
		channels, err := f.ChannelCount(li)
		require.NoError(t, err)
		counts = append(counts, len(got)/channels)
		samples = append(samples, got...)

		if len(got) == 0 {
			pos, err := f.PcmTell()
			require.NoError(t, err)
			if pos == total {
				return samples, counts
			}
		}
	}
	t.Fatal("decoding did not reach the end of the stream")
	return nil, nil
}
