// Package enginetest provides a deterministic engine.Engine for tests.
//
// The engine reads a small chained container through the same callbacks
// libopusfile uses, so sessions and bridges can be exercised without cgo.
// Container layout, all integers little-endian:
//
//	"OGTC" version:u8 links:u16
//	per link: serialno:u32 channels:u8 preskip:u16 rate:u32 gain:i16
//	          vendor:(u32 len, bytes) comments:(u32 count, count*(u32 len, bytes))
//	          frames:u32
//	payload: per link, frames*channels interleaved int16 samples
package enginetest

import (
	"bytes"
	"encoding/binary"
	"strconv"
)

// Magic opens every test container.
const Magic = "OGTC"

// Version is the only container version the engine accepts.
const Version = 1

// Link describes one link of a test container.
type Link struct {
	Serialno   uint32
	Channels   int
	PreSkip    uint16
	InputRate  uint32
	OutputGain int16
	Vendor     string
	Comments   []string
	// Samples holds interleaved PCM; its length must be a multiple of
	// Channels.
	Samples []int16
}

// Frames returns the number of samples per channel.
func (l Link) Frames() int {
	if l.Channels == 0 {
		return 0
	}
	return len(l.Samples) / l.Channels
}

// Build encodes links into a test container.
func Build(links ...Link) []byte {
	var buf bytes.Buffer
	le := func(v any) {
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}
	str := func(s string) {
		le(uint32(len(s)))
		buf.WriteString(s)
	}

	buf.WriteString(Magic)
	le(uint8(Version))
	le(uint16(len(links)))
	for _, l := range links {
		le(l.Serialno)
		le(uint8(l.Channels))
		le(l.PreSkip)
		le(l.InputRate)
		le(l.OutputGain)
		str(l.Vendor)
		le(uint32(len(l.Comments)))
		for _, c := range l.Comments {
			str(c)
		}
		le(uint32(l.Frames()))
	}
	for _, l := range links {
		le(l.Samples[:l.Frames()*l.Channels])
	}
	return buf.Bytes()
}

// Ramp returns frames*channels interleaved samples where channel c of frame
// i holds start+i+c*1000, wrapped to int16.
func Ramp(frames, channels int, start int16) []int16 {
	out := make([]int16, frames*channels)
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			out[i*channels+c] = start + int16(i) + int16(c*1000)
		}
	}
	return out
}

// Mono returns a single-channel link with a ramp of frames samples.
func Mono(serialno uint32, frames int, comments ...string) Link {
	return Link{
		Serialno:  serialno,
		Channels:  1,
		PreSkip:   312,
		InputRate: 48000,
		Vendor:    "enginetest",
		Comments:  comments,
		Samples:   Ramp(frames, 1, 0),
	}
}

// Stereo returns a two-channel link with a ramp of frames samples.
func Stereo(serialno uint32, frames int, comments ...string) Link {
	return Link{
		Serialno:  serialno,
		Channels:  2,
		PreSkip:   312,
		InputRate: 44100,
		Vendor:    "enginetest",
		Comments:  comments,
		Samples:   Ramp(frames, 2, 0),
	}
}

// GainComment formats an R128 gain comment.
func GainComment(key string, q8 int) string {
	return key + "=" + strconv.Itoa(q8)
}
