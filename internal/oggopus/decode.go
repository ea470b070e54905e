package oggopus

import (
	"fmt"
	"log/slog"
	"strings"

	"oggopus.click/internal/engine"
	"oggopus.click/internal/pcm"
)

// Gain offset kinds accepted by SetGainOffset.
const (
	HeaderGain   = engine.HeaderGain
	TrackGain    = engine.TrackGain
	AbsoluteGain = engine.AbsoluteGain
)

// ParseGainKind maps a gain kind name to its value. Album gain is not a
// kind the decoder applies and is rejected like any other unknown name.
func ParseGainKind(name string) (int, error) {
	switch strings.ToLower(name) {
	case "", "header":
		return HeaderGain, nil
	case "track":
		return TrackGain, nil
	case "absolute":
		return AbsoluteGain, nil
	}
	return 0, &Error{Op: "parse gain kind", Kind: KindInvalidArgument,
		Cause: fmt.Errorf("unknown gain kind %q", name)}
}

// SetGainOffset applies a Q8 dB offset to samples decoded from now on. kind
// selects what the offset is relative to: the header gain, the track gain
// or nothing.
func (f *File) SetGainOffset(kind int, q8 int32) error {
	if err := f.check("set gain offset"); err != nil {
		return err
	}
	switch kind {
	case HeaderGain, TrackGain, AbsoluteGain:
	default:
		return &Error{Op: "set gain offset", Kind: KindInvalidArgument,
			Cause: fmt.Errorf("unknown gain kind %d", kind)}
	}

	if code := f.handle.SetGainOffset(kind, q8); code < 0 {
		return f.fail("set gain offset", argumentKind(code), code)
	}
	f.gainKind = kind
	f.gainQ8 = q8
	slog.Debug("gain offset set", "kind", kind, "q8", q8)
	return nil
}

// GainOffset returns the gain kind and Q8 offset last applied.
func (f *File) GainOffset() (int, int32) {
	return f.gainKind, f.gainQ8
}

// SetDitherEnabled toggles dithering for samples decoded from now on.
func (f *File) SetDitherEnabled(enabled bool) error {
	if err := f.check("set dither"); err != nil {
		return err
	}
	f.handle.SetDitherEnabled(enabled)
	f.dither = enabled
	return nil
}

// DitherEnabled reports the dither setting.
func (f *File) DitherEnabled() bool {
	return f.dither
}

// ReadSamples decodes into a scratch buffer of maxSamples interleaved samples and
// returns the decoded samples with the link they belong to. An empty result
// is not an error; it happens at end of stream and may happen at a link
// boundary, where the caller should read again.
func (f *File) ReadSamples(maxSamples int) ([]int16, int, error) {
	if err := f.check("read"); err != nil {
		return nil, 0, err
	}
	if maxSamples < 0 {
		return nil, 0, &Error{Op: "read", Kind: KindInvalidArgument,
			Cause: fmt.Errorf("negative sample count %d", maxSamples)}
	}
	if maxSamples == 0 {
		return []int16{}, f.handle.CurrentLink(), nil
	}

	scratch := make([]int16, maxSamples)
	li := LinkCurrent
	n := f.handle.Read(scratch, &li)
	if n < 0 {
		return nil, 0, f.fail("read", decodeKind(n), n)
	}
	if n == 0 {
		return []int16{}, li, nil
	}
	channels := f.handle.ChannelCount(li)
	return scratch[:n*channels], li, nil
}

// ReadStereoSamples decodes into a scratch buffer of maxSamples interleaved
// samples, downmixed to two channels.
func (f *File) ReadStereoSamples(maxSamples int) ([]int16, error) {
	if err := f.check("read stereo"); err != nil {
		return nil, err
	}
	if maxSamples < 0 {
		return nil, &Error{Op: "read stereo", Kind: KindInvalidArgument,
			Cause: fmt.Errorf("negative sample count %d", maxSamples)}
	}
	if maxSamples == 0 {
		return []int16{}, nil
	}

	scratch := make([]int16, maxSamples)
	n := f.handle.ReadStereo(scratch)
	if n < 0 {
		return nil, f.fail("read stereo", decodeKind(n), n)
	}
	return scratch[:n*2], nil
}

// Read decodes like ReadSamples and returns the samples packed as
// little-endian 16-bit PCM.
func (f *File) Read(maxSamples int) ([]byte, error) {
	samples, _, err := f.ReadSamples(maxSamples)
	if err != nil {
		return nil, err
	}
	return pcm.Pack(samples), nil
}

// ReadLink is Read that also returns the link the samples belong to.
func (f *File) ReadLink(maxSamples int) ([]byte, int, error) {
	samples, li, err := f.ReadSamples(maxSamples)
	if err != nil {
		return nil, 0, err
	}
	return pcm.Pack(samples), li, nil
}

// ReadStereo decodes like ReadStereoSamples and returns packed PCM.
func (f *File) ReadStereo(maxSamples int) ([]byte, error) {
	samples, err := f.ReadStereoSamples(maxSamples)
	if err != nil {
		return nil, err
	}
	return pcm.Pack(samples), nil
}

// RawSeek moves decoding to a compressed byte offset.
func (f *File) RawSeek(offset int64) error {
	if err := f.check("raw seek"); err != nil {
		return err
	}
	if code := f.handle.RawSeek(offset); code < 0 {
		return f.fail("raw seek", argumentKind(code), code)
	}
	slog.Debug("raw seek", "offset", offset)
	return nil
}

// PcmSeek moves decoding to a sample offset.
func (f *File) PcmSeek(offset int64) error {
	if err := f.check("pcm seek"); err != nil {
		return err
	}
	if code := f.handle.PcmSeek(offset); code < 0 {
		return f.fail("pcm seek", argumentKind(code), code)
	}
	slog.Debug("pcm seek", "offset", offset)
	return nil
}
