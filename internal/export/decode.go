package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"oggopus.click/internal/beepstream"
	"oggopus.click/internal/oggopus"
	"oggopus.click/internal/pcm"
)

// ErrChannelsChanged is returned when a chained file changes channel count
// and the output cannot follow. Decoding with Stereo set avoids it.
var ErrChannelsChanged = errors.New("channel count changed between links")

// emptyReadLimit bounds consecutive empty reads on streams whose length is
// unknown.
const emptyReadLimit = 2

// Options control a decode run.
type Options struct {
	Stereo       bool
	GainKind     int
	GainOffsetQ8 int32
	Dither       bool
	ChunkSamples int

	// Start is the sample position decoding begins at.
	Start int64

	// SampleRate resamples the output when non-zero and not 48000.
	SampleRate int
}

// DefaultOptions mirrors the decoder's own defaults.
func DefaultOptions() Options {
	return Options{
		GainKind:     oggopus.HeaderGain,
		Dither:       true,
		ChunkSamples: beepstream.DefaultChunk,
	}
}

// SinkFactory creates the output once the channel count and rate are known.
type SinkFactory func(channels, sampleRate int) (Sink, error)

// Result describes a finished decode run.
type Result struct {
	Frames     int64
	Channels   int
	SampleRate int
}

// Decode reads f from opts.Start to the end into a sink made by newSink.
// A sink made by newSink is closed whether or not decoding succeeds; f is
// left open.
func Decode(ctx context.Context, f *oggopus.File, newSink SinkFactory, opts Options) (*Result, error) {
	if opts.ChunkSamples <= 0 {
		opts.ChunkSamples = beepstream.DefaultChunk
	}
	if err := f.SetGainOffset(opts.GainKind, opts.GainOffsetQ8); err != nil {
		return nil, err
	}
	if err := f.SetDitherEnabled(opts.Dither); err != nil {
		return nil, err
	}
	if opts.Start > 0 {
		if err := f.PcmSeek(opts.Start); err != nil {
			return nil, fmt.Errorf("failed to seek to sample %d: %w", opts.Start, err)
		}
	}

	slog.Debug("decode starting",
		"stereo", opts.Stereo,
		"gain_kind", opts.GainKind,
		"gain_q8", opts.GainOffsetQ8,
		"dither", opts.Dither,
		"start", opts.Start,
		"sample_rate", opts.SampleRate)

	if opts.SampleRate != 0 && opts.SampleRate != oggopus.SampleRate {
		return decodeResampled(ctx, f, newSink, opts)
	}
	return decodeDirect(ctx, f, newSink, opts)
}

func decodeDirect(ctx context.Context, f *oggopus.File, newSink SinkFactory, opts Options) (*Result, error) {
	seekable, err := f.Seekable()
	if err != nil {
		return nil, err
	}
	var total int64
	if seekable {
		if total, err = f.PcmTotal(-1); err != nil {
			return nil, err
		}
	}

	channels := 2
	if !opts.Stereo {
		if channels, err = f.ChannelCount(oggopus.LinkCurrent); err != nil {
			return nil, err
		}
	}
	sink, err := newSink(channels, oggopus.SampleRate)
	if err != nil {
		return nil, err
	}
	closed := false
	defer func() {
		if !closed {
			closeAfterFailure(sink)
		}
	}()

	empty := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var samples []int16
		li := oggopus.LinkCurrent
		if opts.Stereo {
			samples, err = f.ReadStereoSamples(opts.ChunkSamples)
		} else {
			samples, li, err = f.ReadSamples(opts.ChunkSamples)
		}
		if err != nil {
			return nil, err
		}

		if len(samples) == 0 {
			empty++
			if seekable {
				pos, err := f.PcmTell()
				if err != nil {
					return nil, err
				}
				if pos >= total {
					break
				}
			}
			if empty >= emptyReadLimit {
				break
			}
			continue
		}
		empty = 0

		if !opts.Stereo {
			n, err := f.ChannelCount(li)
			if err != nil {
				return nil, err
			}
			if n != channels {
				return nil, fmt.Errorf("link %d has %d channels, output has %d: %w", li, n, channels, ErrChannelsChanged)
			}
		}
		if err := sink.WriteSamples(samples); err != nil {
			return nil, err
		}
	}

	closed = true
	if err := sink.Close(); err != nil {
		return nil, err
	}
	res := &Result{Frames: sink.Frames(), Channels: channels, SampleRate: oggopus.SampleRate}
	slog.Info("decode finished", "frames", res.Frames, "channels", res.Channels)
	return res, nil
}

func decodeResampled(ctx context.Context, f *oggopus.File, newSink SinkFactory, opts Options) (*Result, error) {
	st, err := beepstream.New(f, opts.ChunkSamples)
	if err != nil {
		return nil, err
	}
	resampled := beepstream.Resample(st, opts.SampleRate)

	sink, err := newSink(2, opts.SampleRate)
	if err != nil {
		return nil, err
	}
	closed := false
	defer func() {
		if !closed {
			closeAfterFailure(sink)
		}
	}()

	frames := make([][2]float64, opts.ChunkSamples/2+1)
	samples := make([]int16, 0, 2*len(frames))
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, ok := resampled.Stream(frames)
		samples = samples[:0]
		for _, fr := range frames[:n] {
			samples = append(samples, pcm.FromFloat(fr[0]), pcm.FromFloat(fr[1]))
		}
		if err := sink.WriteSamples(samples); err != nil {
			return nil, err
		}
		if !ok {
			break
		}
	}
	if err := st.Err(); err != nil {
		return nil, err
	}

	closed = true
	if err := sink.Close(); err != nil {
		return nil, err
	}
	res := &Result{Frames: sink.Frames(), Channels: 2, SampleRate: opts.SampleRate}
	slog.Info("decode finished", "frames", res.Frames, "sample_rate", res.SampleRate)
	return res, nil
}

// closeAfterFailure releases a sink whose output is being abandoned.
func closeAfterFailure(sink Sink) {
	if err := sink.Close(); err != nil {
		slog.Debug("failed to close sink after decode error", "error", err)
	}
}
