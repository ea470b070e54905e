package oggopus

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oggopus.click/internal/engine"
	"oggopus.click/internal/engine/enginetest"
	"oggopus.click/internal/picture"
	"oggopus.click/internal/stream"
)

func pictureComment() string {
	return string(picture.Comment(&picture.Picture{
		Type:     3,
		MIMEType: "image/jpeg",
		Data:     []byte("\xff\xd8\xff\xe0 not really a jpeg"),
	}))
}

func TestHead(t *testing.T) {
	link := enginetest.Stereo(9, 10)
	link.OutputGain = -512
	f := openMemory(t, enginetest.New(), enginetest.Build(link))

	head, err := f.Head(-1)
	require.NoError(t, err)
	assert.Equal(t, 1, head.Version)
	assert.Equal(t, 2, head.ChannelCount)
	assert.Equal(t, uint32(312), head.PreSkip)
	assert.Equal(t, uint32(44100), head.InputSampleRate)
	assert.Equal(t, -512, head.OutputGain)
	assert.Equal(t, -2.0, head.OutputGainDB())
	assert.Equal(t, 1, head.StreamCount)
	assert.Equal(t, 1, head.CoupledCount)
	assert.Equal(t, []byte{0, 1}, head.ChannelMapping())
}

func TestTags(t *testing.T) {
	link := enginetest.Mono(1, 10,
		"TITLE=Foo",
		"artist=Bar",
		"ARTIST=Baz",
		"R128_TRACK_GAIN=-300",
		"R128_ALBUM_GAIN=not a number",
	)
	link.Vendor = "libopus 1.4"
	f := openMemory(t, enginetest.New(), enginetest.Build(link))

	tags, err := f.Tags(-1)
	require.NoError(t, err)

	vendor, err := tags.Vendor()
	require.NoError(t, err)
	assert.Equal(t, "libopus 1.4", vendor)

	count, err := tags.CommentCount()
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	comments, err := tags.Comments()
	require.NoError(t, err)
	assert.Equal(t, "TITLE=Foo", comments[0])

	v, ok, err := tags.Query("Artist", 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Baz", v)

	_, ok, err = tags.Query("ARTIST", 2)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := tags.QueryCount("artist")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = tags.QueryCount("TITL")
	require.NoError(t, err)
	assert.Equal(t, 0, n, "prefixes of a key do not match")

	gain, ok, err := tags.TrackGain()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, -300, gain)

	_, ok, err = tags.AlbumGain()
	require.NoError(t, err)
	assert.False(t, ok, "malformed gains are ignored")
}

func TestTagsOutliveFile(t *testing.T) {
	data := enginetest.Build(enginetest.Mono(1, 10, "TITLE=Foo"))
	f := openMemory(t, enginetest.New(), data)

	tags, err := f.Tags(-1)
	require.NoError(t, err)
	_, err = tags.Comments()
	require.NoError(t, err)

	f.Free()
	_, err = tags.Vendor()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = tags.Comments()
	assert.ErrorIs(t, err, ErrClosed, "cached values are refused too")

	require.NoError(t, f.Open(stream.NewMemoryStream(data), nil))
	_, err = tags.CommentCount()
	assert.ErrorIs(t, err, ErrClosed, "a reopened file does not revive old views")

	fresh, err := f.Tags(-1)
	require.NoError(t, err)
	_, err = fresh.Comments()
	assert.NoError(t, err)
}

func TestPictures(t *testing.T) {
	link := enginetest.Mono(1, 10,
		"TITLE=Foo",
		pictureComment(),
		"ARTIST=Bar",
		"METADATA_BLOCK_PICTUR=AAAA",
		"METADATA_BLOCK_PICTUREX=AAAA",
	)
	f := openMemory(t, enginetest.New(), enginetest.Build(link))

	tags, err := f.Tags(-1)
	require.NoError(t, err)
	pics, err := tags.Pictures()
	require.NoError(t, err)
	require.Len(t, pics, 1)
	assert.Equal(t, picture.FormatJPEG, pics[0].Format)
	assert.Equal(t, uint32(3), pics[0].Type)
}

func TestFindPictures(t *testing.T) {
	valid := []byte(pictureComment())

	t.Run("case-insensitive key", func(t *testing.T) {
		lower := append([]byte("metadata_block_picture"), valid[len(picture.Key):]...)
		pics, err := FindPictures(enginetest.New(), [][]byte{lower, valid})
		require.NoError(t, err)
		assert.Len(t, pics, 2)
	})

	t.Run("parse failures are skipped", func(t *testing.T) {
		pics, err := FindPictures(enginetest.New(), [][]byte{
			[]byte("METADATA_BLOCK_PICTURE=%%%"),
			valid,
			[]byte("METADATA_BLOCK_PICTURE="),
		})
		require.NoError(t, err)
		assert.Len(t, pics, 1)
	})

	t.Run("faults propagate", func(t *testing.T) {
		eng := faultingPictures{Engine: enginetest.New(), code: engine.OpEFault}
		_, err := FindPictures(eng, [][]byte{valid})
		assert.ErrorIs(t, err, ErrFault)
	})

	t.Run("other failures do not", func(t *testing.T) {
		eng := faultingPictures{Engine: enginetest.New(), code: engine.OpENotFormat}
		pics, err := FindPictures(eng, [][]byte{valid})
		require.NoError(t, err)
		assert.Empty(t, pics)
	})

	t.Run("non-matching keys never reach the parser", func(t *testing.T) {
		eng := faultingPictures{Engine: enginetest.New(), code: engine.OpEFault}
		_, err := FindPictures(eng, [][]byte{[]byte("TITLE=x"), []byte("METADATA_BLOCK_PICTUR=x")})
		assert.NoError(t, err)
	})
}

func TestDescribe(t *testing.T) {
	a := enginetest.Mono(100, 48000, "TITLE=One", pictureComment())
	b := enginetest.Stereo(200, 24000, "TITLE=Two", "R128_TRACK_GAIN=12")
	data := enginetest.Build(a, b)
	f := openMemory(t, enginetest.New(), data)

	d, err := f.Describe()
	require.NoError(t, err)
	assert.Equal(t, "enginetest", d.Engine)
	assert.True(t, d.Seekable)
	assert.Equal(t, int64(72000), d.PcmTotal)
	assert.Equal(t, int64(len(data)), d.RawTotal)
	assert.Equal(t, 1500*time.Millisecond, d.Duration)
	require.Len(t, d.Links, 2)

	assert.Equal(t, uint32(100), d.Links[0].Serialno)
	assert.Equal(t, 1, d.Links[0].Pictures)
	assert.Equal(t, time.Second, d.Links[0].Duration)
	assert.Nil(t, d.Links[0].TrackGainQ8)

	assert.Equal(t, 2, d.Links[1].Channels)
	assert.Equal(t, []string{"TITLE=Two", "R128_TRACK_GAIN=12"}, d.Links[1].Comments)
	require.NotNil(t, d.Links[1].TrackGainQ8)
	assert.Equal(t, 12, *d.Links[1].TrackGainQ8)

	pos, err := f.PcmTell()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pos, "describing does not decode")
}

func TestDescribeUnseekable(t *testing.T) {
	data := enginetest.Build(enginetest.Mono(1, 10), enginetest.Mono(2, 10))
	f := New(enginetest.New())
	require.NoError(t, f.Open(unseekable{stream.NewMemoryStream(data)}, nil))
	defer f.Free()

	d, err := f.Describe()
	require.NoError(t, err)
	assert.False(t, d.Seekable)
	assert.Zero(t, d.PcmTotal)
	require.Len(t, d.Links, 1)
	assert.Equal(t, uint32(1), d.Links[0].Serialno)
}

func TestSniff(t *testing.T) {
	ogg := append([]byte("OggS\x00\x02"), make([]byte, 64)...)
	mime, ok := Sniff(ogg)
	assert.True(t, ok, "detected %s", mime)

	mime, ok = Sniff([]byte("RIFF\x24\x00\x00\x00WAVEfmt "))
	assert.False(t, ok)
	assert.Equal(t, "audio/wav", mime)
}

func TestOpenFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	data := enginetest.Build(enginetest.Mono(3, 2000, "TITLE=From disk"))
	require.NoError(t, afero.WriteFile(fs, "/music/track.opus", data, 0644))

	eng := enginetest.New()
	src, err := OpenFile(eng, fs, "/music/track.opus", false)
	require.NoError(t, err)
	assert.Equal(t, "/music/track.opus", src.Path)
	assert.Equal(t, "application/octet-stream", src.MIME)
	assert.Equal(t, 0, eng.Stats().Reads, "the sniffed prefix covers the header")

	samples, _, err := src.ReadSamples(4000)
	require.NoError(t, err)
	assert.Equal(t, enginetest.Ramp(2000, 1, 0), samples)
	require.NoError(t, src.Close())
	assert.False(t, src.IsValid())

	_, err = OpenFile(eng, fs, "/music/track.opus", true)
	assert.ErrorIs(t, err, ErrNotOgg)

	_, err = OpenFile(eng, fs, "/music/missing.opus", false)
	assert.Error(t, err)

	require.NoError(t, afero.WriteFile(fs, "/music/junk.opus", []byte("junk"), 0644))
	_, err = OpenFile(eng, fs, "/music/junk.opus", false)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
