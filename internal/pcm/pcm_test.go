package pcm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackLittleEndian(t *testing.T) {
	tests := []struct {
		name    string
		samples []int16
		want    []byte
	}{
		{"empty", nil, []byte{}},
		{"one", []int16{1}, []byte{0x01, 0x00}},
		{"negative one", []int16{-1}, []byte{0xff, 0xff}},
		{"extremes", []int16{32767, -32768}, []byte{0xff, 0x7f, 0x00, 0x80}},
		{"mixed", []int16{0x1234, 0}, []byte{0x34, 0x12, 0x00, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Pack(tt.samples)
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, len(tt.samples)*BytesPerSample)
		})
	}
}

func TestUnpack(t *testing.T) {
	samples := []int16{-32768, -1, 0, 1, 32767}
	got, err := Unpack(Pack(samples))
	require.NoError(t, err)
	assert.Equal(t, samples, got)

	_, err = Unpack([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestToIntBuffer(t *testing.T) {
	buf := ToIntBuffer([]int16{-5, 7, 100, -100}, 2, 48000)
	assert.Equal(t, []int{-5, 7, 100, -100}, buf.Data)
	assert.Equal(t, 2, buf.Format.NumChannels)
	assert.Equal(t, 48000, buf.Format.SampleRate)
	assert.Equal(t, 16, buf.SourceBitDepth)
	assert.Equal(t, 2, buf.NumFrames())
}

func TestFloatConversion(t *testing.T) {
	assert.Equal(t, -1.0, ToFloat(-32768))
	assert.Equal(t, 0.5, ToFloat(16384))
	assert.Equal(t, int16(32767), FromFloat(1.5))
	assert.Equal(t, int16(-32768), FromFloat(-2))
	assert.Equal(t, int16(16384), FromFloat(0.5))
}
