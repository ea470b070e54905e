// Package beepstream exposes a decoding session as a beep streamer, so the
// beep resampler and effects can run over decoded Opus audio.
package beepstream

import (
	"errors"
	"log/slog"

	"github.com/gopxl/beep"

	"oggopus.click/internal/oggopus"
	"oggopus.click/internal/pcm"
)

// DefaultChunk is the number of interleaved stereo samples requested per
// decode call: 120 ms at 48 kHz.
const DefaultChunk = 11520

// maxEmptyReads bounds consecutive empty reads before the stream is treated
// as finished. An empty read is normal at a link boundary.
const maxEmptyReads = 2

// ErrNotSeekable is returned by Seek on streams that cannot reposition.
var ErrNotSeekable = errors.New("stream is not seekable")

// Streamer decodes a File as stereo frames. It implements
// beep.StreamSeekCloser; Close frees the File.
type Streamer struct {
	f      *oggopus.File
	chunk  int
	buf    []int16
	off    int
	pos    int
	length int
	err    error
}

var _ beep.StreamSeekCloser = (*Streamer)(nil)

// New wraps an open File. chunk is the number of interleaved samples per
// decode call; values below 2 select DefaultChunk.
func New(f *oggopus.File, chunk int) (*Streamer, error) {
	if chunk < 2 {
		chunk = DefaultChunk
	}
	pos, err := f.PcmTell()
	if err != nil {
		return nil, err
	}
	s := &Streamer{f: f, chunk: chunk &^ 1, pos: int(pos)}

	seekable, err := f.Seekable()
	if err != nil {
		return nil, err
	}
	if seekable {
		total, err := f.PcmTotal(-1)
		if err != nil {
			return nil, err
		}
		s.length = int(total)
	}
	return s, nil
}

// Format describes the frames produced by Stream.
func (s *Streamer) Format() beep.Format {
	return beep.Format{
		SampleRate:  oggopus.SampleRate,
		NumChannels: 2,
		Precision:   pcm.BytesPerSample,
	}
}

func (s *Streamer) fill() bool {
	for empty := 0; empty < maxEmptyReads; empty++ {
		samples, err := s.f.ReadStereoSamples(s.chunk)
		if err != nil {
			s.err = err
			return false
		}
		if len(samples) > 0 {
			s.buf, s.off = samples, 0
			return true
		}
		if s.length > 0 && s.pos >= s.length {
			return false
		}
	}
	slog.Debug("decoder returned no samples, treating as end of stream", "position", s.pos)
	return false
}

// Stream fills samples with decoded stereo frames.
func (s *Streamer) Stream(samples [][2]float64) (n int, ok bool) {
	if s.err != nil {
		return 0, false
	}
	for n < len(samples) {
		if s.off >= len(s.buf) && !s.fill() {
			break
		}
		for ; n < len(samples) && s.off+1 < len(s.buf); n++ {
			samples[n][0] = pcm.ToFloat(s.buf[s.off])
			samples[n][1] = pcm.ToFloat(s.buf[s.off+1])
			s.off += 2
			s.pos++
		}
	}
	return n, n > 0
}

// Err returns the first decode error.
func (s *Streamer) Err() error {
	return s.err
}

// Len returns the total frame count, or 0 when the stream cannot report it.
func (s *Streamer) Len() int {
	return s.length
}

// Position returns the frame index of the next frame Stream produces.
func (s *Streamer) Position() int {
	return s.pos
}

// Seek moves to frame p.
func (s *Streamer) Seek(p int) error {
	if s.length == 0 {
		return ErrNotSeekable
	}
	if err := s.f.PcmSeek(int64(p)); err != nil {
		return err
	}
	s.buf, s.off = nil, 0
	s.pos = p
	s.err = nil
	return nil
}

// Close frees the underlying File.
func (s *Streamer) Close() error {
	s.f.Free()
	return nil
}

// Resample returns a streamer producing the decoded audio at rate. A rate
// equal to the decode rate returns s unchanged.
func Resample(s beep.Streamer, rate int) beep.Streamer {
	if rate == oggopus.SampleRate {
		return s
	}
	return beep.Resample(4, oggopus.SampleRate, beep.SampleRate(rate), s)
}
