// Package export writes decoded 16-bit PCM to WAV, AIFF or raw outputs.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/go-audio/aiff"
	"github.com/youpy/go-wav"

	"oggopus.click/internal/pcm"
)

// Output formats.
const (
	FormatWAV  = "wav"
	FormatAIFF = "aiff"
	FormatRaw  = "raw"
)

var (
	ErrUnknownFormat   = errors.New("unknown output format")
	ErrNeedsSeeker     = errors.New("output must be seekable")
	ErrChannelMismatch = errors.New("sample count is not a multiple of the channel count")
	ErrSinkClosed      = errors.New("sink is closed")
)

// Sink consumes interleaved samples. Close finishes the container; it does
// not close the underlying writer.
type Sink interface {
	WriteSamples(samples []int16) error
	Frames() int64
	Close() error
}

// FormatFromPath picks a format from a file extension, defaulting to raw.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return FormatWAV
	case ".aif", ".aiff", ".aifc":
		return FormatAIFF
	}
	return FormatRaw
}

// NewSink returns a sink writing format to w. AIFF needs w to be an
// io.WriteSeeker.
func NewSink(format string, w io.Writer, channels, sampleRate int) (Sink, error) {
	if channels < 1 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}
	switch format {
	case FormatWAV:
		return NewWAV(w, channels, sampleRate), nil
	case FormatAIFF:
		ws, ok := w.(io.WriteSeeker)
		if !ok {
			return nil, fmt.Errorf("%s: %w", format, ErrNeedsSeeker)
		}
		return NewAIFF(ws, channels, sampleRate), nil
	case FormatRaw:
		return NewRaw(w, channels), nil
	}
	return nil, fmt.Errorf("%q: %w", format, ErrUnknownFormat)
}

type counter struct {
	channels int
	frames   int64
	closed   bool
}

func (c *counter) add(samples []int16) error {
	if c.closed {
		return ErrSinkClosed
	}
	if len(samples)%c.channels != 0 {
		return fmt.Errorf("%d samples for %d channels: %w", len(samples), c.channels, ErrChannelMismatch)
	}
	c.frames += int64(len(samples) / c.channels)
	return nil
}

func (c *counter) Frames() int64 {
	return c.frames
}

// Raw writes packed little-endian samples with no header.
type Raw struct {
	counter
	w io.Writer
}

// NewRaw returns a headerless sink.
func NewRaw(w io.Writer, channels int) *Raw {
	return &Raw{counter: counter{channels: channels}, w: w}
}

// WriteSamples implements Sink.
func (r *Raw) WriteSamples(samples []int16) error {
	if err := r.add(samples); err != nil {
		return err
	}
	_, err := r.w.Write(pcm.Pack(samples))
	return err
}

// Close implements Sink.
func (r *Raw) Close() error {
	r.closed = true
	return nil
}

// WAV buffers samples and writes a RIFF/WAVE file on Close, once the frame
// count for the header is known.
type WAV struct {
	counter
	w    io.Writer
	rate int
	data bytes.Buffer
}

// NewWAV returns a WAV sink.
func NewWAV(w io.Writer, channels, sampleRate int) *WAV {
	return &WAV{counter: counter{channels: channels}, w: w, rate: sampleRate}
}

// WriteSamples implements Sink.
func (s *WAV) WriteSamples(samples []int16) error {
	if err := s.add(samples); err != nil {
		return err
	}
	s.data.Write(pcm.Pack(samples))
	return nil
}

// Close writes the header and the buffered samples.
func (s *WAV) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	writer := wav.NewWriter(s.w, uint32(s.frames), uint16(s.channels), uint32(s.rate), 16)
	if _, err := writer.Write(s.data.Bytes()); err != nil {
		return fmt.Errorf("failed to write wav data: %w", err)
	}
	slog.Debug("wav written", "frames", s.frames, "channels", s.channels, "sample_rate", s.rate)
	s.data.Reset()
	return nil
}

// AIFF streams samples through a go-audio encoder. The header sizes are
// patched on Close.
type AIFF struct {
	counter
	rate int
	enc  *aiff.Encoder
}

// NewAIFF returns an AIFF sink.
func NewAIFF(w io.WriteSeeker, channels, sampleRate int) *AIFF {
	return &AIFF{
		counter: counter{channels: channels},
		rate:    sampleRate,
		enc:     aiff.NewEncoder(w, sampleRate, 16, channels),
	}
}

// WriteSamples implements Sink.
func (s *AIFF) WriteSamples(samples []int16) error {
	if err := s.add(samples); err != nil {
		return err
	}
	if err := s.enc.Write(pcm.ToIntBuffer(samples, s.channels, s.rate)); err != nil {
		return fmt.Errorf("failed to write aiff data: %w", err)
	}
	return nil
}

// Close finishes the AIFF container.
func (s *AIFF) Close() error {
	if s.closed {
		return nil
	}
	if s.frames == 0 {
		// The encoder writes its header on the first Write.
		if err := s.enc.Write(pcm.ToIntBuffer(nil, s.channels, s.rate)); err != nil {
			return fmt.Errorf("failed to write aiff header: %w", err)
		}
	}
	s.closed = true
	if err := s.enc.Close(); err != nil {
		return fmt.Errorf("failed to finish aiff: %w", err)
	}
	slog.Debug("aiff written", "frames", s.frames, "channels", s.channels, "sample_rate", s.rate)
	return nil
}
