// Package picture parses METADATA_BLOCK_PICTURE comments: a base64 encoded
// FLAC picture block embedded in an Opus comment header.
package picture

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
)

// Key is the comment key that carries a picture block.
const Key = "METADATA_BLOCK_PICTURE"

// MaxEncodedSize bounds the base64 payload accepted by Parse.
const MaxEncodedSize = 64 << 20

var (
	// ErrMalformed is returned when the block does not follow the FLAC layout.
	ErrMalformed = errors.New("malformed picture block")
	// ErrTooLarge is returned when the payload exceeds MaxEncodedSize.
	ErrTooLarge = errors.New("picture block too large")
)

// Format is the detected image format of a picture.
type Format int

const (
	FormatUnknown Format = -1
	FormatURL     Format = 0
	FormatJPEG    Format = 1
	FormatPNG     Format = 2
	FormatGIF     Format = 3
)

func (f Format) String() string {
	switch f {
	case FormatURL:
		return "url"
	case FormatJPEG:
		return "jpeg"
	case FormatPNG:
		return "png"
	case FormatGIF:
		return "gif"
	default:
		return "unknown"
	}
}

// Picture is one parsed picture block.
type Picture struct {
	Type        uint32
	MIMEType    string
	Description string
	Width       uint32
	Height      uint32
	Depth       uint32
	Colors      uint32
	Data        []byte
	Format      Format
}

// Extension suggests a file extension for the picture data.
func (p *Picture) Extension() string {
	switch p.Format {
	case FormatJPEG:
		return ".jpg"
	case FormatPNG:
		return ".png"
	case FormatGIF:
		return ".gif"
	case FormatURL:
		return ".url"
	default:
		return ".bin"
	}
}

// HasKey reports whether comment starts with Key followed by '='. The key
// comparison ignores ASCII case.
func HasKey(comment []byte) bool {
	if len(comment) <= len(Key) || comment[len(Key)] != '=' {
		return false
	}
	return strings.EqualFold(string(comment[:len(Key)]), Key)
}

// Parse decodes a picture comment. The "METADATA_BLOCK_PICTURE=" prefix is
// optional.
func Parse(tag []byte) (*Picture, error) {
	if HasKey(tag) {
		tag = tag[len(Key)+1:]
	}
	if len(tag) > MaxEncodedSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(tag))
	}

	data := make([]byte, base64.StdEncoding.DecodedLen(len(tag)))
	n, err := base64.StdEncoding.Decode(data, tag)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", ErrMalformed, err)
	}
	return parseBlock(data[:n])
}

// parseBlock reads the FLAC picture layout:
//   - picture type, MIME length, MIME string
//   - description length, description (UTF-8)
//   - width, height, depth, colors
//   - data length, data
//
// All integers are 32-bit big-endian.
func parseBlock(data []byte) (*Picture, error) {
	r := blockReader{data: data}

	p := &Picture{}
	p.Type = r.uint32()
	p.MIMEType = string(r.bytes(r.uint32()))
	p.Description = string(r.bytes(r.uint32()))
	p.Width = r.uint32()
	p.Height = r.uint32()
	p.Depth = r.uint32()
	p.Colors = r.uint32()
	p.Data = r.bytes(r.uint32())
	if r.err != nil {
		return nil, r.err
	}
	if p.Type > 20 {
		return nil, fmt.Errorf("%w: picture type %d", ErrMalformed, p.Type)
	}

	p.Format = detectFormat(p.MIMEType, p.Data)
	if p.Format != FormatURL && p.Format != FormatUnknown {
		fillDimensions(p)
	}

	// Type 1 is reserved for a 32x32 PNG file icon.
	if p.Type == 1 && (p.Format != FormatPNG || p.Width != 32 || p.Height != 32) {
		return nil, fmt.Errorf("%w: file icon must be a 32x32 PNG", ErrMalformed)
	}
	return p, nil
}

func detectFormat(mimeType string, data []byte) Format {
	if mimeType == "-->" {
		return FormatURL
	}
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return FormatPNG
	case bytes.HasPrefix(data, []byte("\xff\xd8\xff")):
		return FormatJPEG
	case bytes.HasPrefix(data, []byte("GIF87a")), bytes.HasPrefix(data, []byte("GIF89a")):
		return FormatGIF
	}
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return FormatJPEG
	case "image/png":
		return FormatPNG
	case "image/gif":
		return FormatGIF
	}
	return FormatUnknown
}

// fillDimensions replaces the declared width and height with the values
// stored in the image itself when they can be decoded.
func fillDimensions(p *Picture) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(p.Data))
	if err != nil {
		return
	}
	p.Width = uint32(cfg.Width)
	p.Height = uint32(cfg.Height)
}

type blockReader struct {
	data []byte
	off  int
	err  error
}

func (r *blockReader) uint32() uint32 {
	b := r.bytes(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *blockReader) bytes(n uint32) []byte {
	if r.err != nil {
		return nil
	}
	if uint64(n) > uint64(len(r.data)-r.off) {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrMalformed, n, r.off, len(r.data)-r.off)
		return nil
	}
	b := r.data[r.off : r.off+int(n)]
	r.off += int(n)
	return b
}

// Comment builds a complete METADATA_BLOCK_PICTURE comment for p.
func Comment(p *Picture) []byte {
	var block bytes.Buffer
	put := func(v uint32) {
		_ = binary.Write(&block, binary.BigEndian, v)
	}
	put(p.Type)
	put(uint32(len(p.MIMEType)))
	block.WriteString(p.MIMEType)
	put(uint32(len(p.Description)))
	block.WriteString(p.Description)
	put(p.Width)
	put(p.Height)
	put(p.Depth)
	put(p.Colors)
	put(uint32(len(p.Data)))
	block.Write(p.Data)

	out := make([]byte, 0, len(Key)+1+base64.StdEncoding.EncodedLen(block.Len()))
	out = append(out, Key...)
	out = append(out, '=')
	return base64.StdEncoding.AppendEncode(out, block.Bytes())
}
