// Package pcm converts decoded 16-bit samples into byte buffers and
// go-audio buffers.
package pcm

import (
	"encoding/binary"
	"fmt"

	"github.com/go-audio/audio"
)

// BytesPerSample is the size of one packed sample.
const BytesPerSample = 2

// Pack serializes samples as little-endian signed 16-bit values, independent
// of host byte order. The result holds exactly len(samples)*2 bytes.
func Pack(samples []int16) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*BytesPerSample:], uint16(s))
	}
	return out
}

// Unpack is the inverse of Pack. A trailing odd byte is an error.
func Unpack(b []byte) ([]int16, error) {
	if len(b)%BytesPerSample != 0 {
		return nil, fmt.Errorf("odd PCM buffer length %d", len(b))
	}
	out := make([]int16, len(b)/BytesPerSample)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*BytesPerSample:]))
	}
	return out, nil
}

// ToIntBuffer wraps interleaved samples in a go-audio buffer.
func ToIntBuffer(samples []int16, channels, sampleRate int) *audio.IntBuffer {
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	return &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
}

// ToFloat converts a sample to the [-1, 1) range.
func ToFloat(s int16) float64 {
	return float64(s) / 32768
}

// FromFloat converts a [-1, 1] value back to a clamped sample.
func FromFloat(f float64) int16 {
	v := f * 32768
	switch {
	case v >= 32767:
		return 32767
	case v <= -32768:
		return -32768
	}
	return int16(v)
}
