// Package engine defines the boundary between a decoding session and the
// codec engine that parses Ogg/Opus and decodes samples.
//
// An engine pulls bytes through Callbacks synchronously while opening,
// decoding and seeking. Negative return values are result codes (see
// codes.go); everything else is a count, a position or an index.
package engine

import "oggopus.click/internal/picture"

// Callbacks is the synchronous byte source an engine reads from.
//
// Read returns the number of bytes copied into p, 0 at end of stream and a
// negative value on failure. Seek uses io.SeekStart, io.SeekCurrent and
// io.SeekEnd for whence and returns 0 on success, -1 on failure. Tell
// returns the absolute position. Close releases the source and returns 0.
type Callbacks interface {
	Read(p []byte) int
	Seek(offset int64, whence int) int
	Tell() int64
	Close() int
}

// Engine opens decoder handles over a Callbacks source.
type Engine interface {
	// Name identifies the engine in logs.
	Name() string

	// Open starts decoding. initial holds bytes already consumed from the
	// source; the source must be positioned right after them. On failure
	// the handle is nil and the code is negative. The engine does not call
	// Close on failure, the caller owns the source until Open succeeds.
	Open(cb Callbacks, initial []byte) (Handle, int)

	// ParsePicture parses a METADATA_BLOCK_PICTURE comment. The
	// "METADATA_BLOCK_PICTURE=" prefix is optional.
	ParsePicture(tag []byte) (*picture.Picture, int)
}

// Handle is an open decoder. Link arguments follow libopusfile: a negative
// value selects the current link for identity queries and the whole stream
// for totals and bitrates.
type Handle interface {
	// Free releases the decoder and calls Close on the source.
	Free()

	Seekable() bool
	LinkCount() int
	Serialno(li int) uint32
	ChannelCount(li int) int
	RawTotal(li int) int64
	PcmTotal(li int) int64
	Head(li int) Head
	Tags(li int) TagSource
	CurrentLink() int
	Bitrate(li int) int32
	BitrateInstant() int32
	RawTell() int64
	PcmTell() int64

	SetGainOffset(kind int, q8 int32) int
	SetDitherEnabled(enabled bool)

	// Read decodes up to len(pcm) interleaved samples and returns the number
	// of samples per channel. li receives the link the samples belong to.
	Read(pcm []int16, li *int) int
	// ReadStereo decodes into interleaved stereo, downmixing as needed.
	ReadStereo(pcm []int16) int

	RawSeek(offset int64) int
	PcmSeek(offset int64) int
}

// Head is the Opus identification header of one link.
type Head struct {
	Version         int
	ChannelCount    int
	PreSkip         uint32
	InputSampleRate uint32
	OutputGain      int
	MappingFamily   int
	StreamCount     int
	CoupledCount    int
	Mapping         [255]byte
}

// TagSource exposes the comment header of one link. Slices returned by a
// TagSource are only valid until the owning Handle is freed.
type TagSource interface {
	Vendor() []byte
	CommentCount() int
	Comment(i int) []byte
}
