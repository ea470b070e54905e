package picture

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestHasKey(t *testing.T) {
	tests := []struct {
		name    string
		comment string
		want    bool
	}{
		{"exact", "METADATA_BLOCK_PICTURE=abc", true},
		{"lower case", "metadata_block_picture=abc", true},
		{"mixed case", "Metadata_Block_Picture=", true},
		{"missing equals", "METADATA_BLOCK_PICTUREabc", false},
		{"key only", "METADATA_BLOCK_PICTURE", false},
		{"other key", "TITLE=METADATA_BLOCK_PICTURE=", false},
		{"longer key", "METADATA_BLOCK_PICTURES=abc", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasKey([]byte(tt.comment)))
		})
	}
}

func TestParseRoundTripPNG(t *testing.T) {
	data := testPNG(t, 16, 8)
	comment := Comment(&Picture{
		Type:        3,
		MIMEType:    "image/png",
		Description: "front",
		Data:        data,
	})

	p, err := Parse(comment)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), p.Type)
	assert.Equal(t, "image/png", p.MIMEType)
	assert.Equal(t, "front", p.Description)
	assert.Equal(t, FormatPNG, p.Format)
	assert.Equal(t, uint32(16), p.Width, "width should come from the image data")
	assert.Equal(t, uint32(8), p.Height)
	assert.Equal(t, data, p.Data)
	assert.Equal(t, ".png", p.Extension())
}

func TestParseWithoutPrefix(t *testing.T) {
	comment := Comment(&Picture{Type: 0, MIMEType: "-->", Data: []byte("https://example.com/a.jpg")})
	p, err := Parse(comment[len(Key)+1:])
	require.NoError(t, err)
	assert.Equal(t, FormatURL, p.Format)
	assert.Equal(t, "https://example.com/a.jpg", string(p.Data))
}

func TestParseErrors(t *testing.T) {
	t.Run("bad base64", func(t *testing.T) {
		_, err := Parse([]byte("METADATA_BLOCK_PICTURE=!!!"))
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("truncated block", func(t *testing.T) {
		enc := base64.StdEncoding.EncodeToString([]byte{0, 0, 0, 3, 0, 0, 0, 9, 'i'})
		_, err := Parse([]byte(enc))
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("picture type out of range", func(t *testing.T) {
		_, err := Parse(Comment(&Picture{Type: 21, MIMEType: "image/png"}))
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("file icon must be 32x32 png", func(t *testing.T) {
		_, err := Parse(Comment(&Picture{Type: 1, MIMEType: "image/png", Data: testPNG(t, 16, 16)}))
		assert.ErrorIs(t, err, ErrMalformed)

		p, err := Parse(Comment(&Picture{Type: 1, MIMEType: "image/png", Data: testPNG(t, 32, 32)}))
		require.NoError(t, err)
		assert.Equal(t, uint32(32), p.Width)
	})

	t.Run("too large", func(t *testing.T) {
		_, err := Parse(make([]byte, MaxEncodedSize+4))
		assert.ErrorIs(t, err, ErrTooLarge)
	})
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatJPEG, detectFormat("", []byte("\xff\xd8\xff\xe0rest")))
	assert.Equal(t, FormatGIF, detectFormat("", []byte("GIF89a....")))
	assert.Equal(t, FormatJPEG, detectFormat("image/JPEG", []byte("?")))
	assert.Equal(t, FormatUnknown, detectFormat("application/octet-stream", []byte("?")))
	assert.Equal(t, "unknown", FormatUnknown.String())
}
