package engine

import "fmt"

// Result codes shared by every engine. The values match libopusfile so a
// cgo engine can pass its return values through unchanged.
const (
	OpFalse         = -1
	OpEOF           = -2
	OpHole          = -3
	OpERead         = -128
	OpEFault        = -129
	OpEImpl         = -130
	OpEInval        = -131
	OpENotFormat    = -132
	OpEBadHeader    = -133
	OpEVersion      = -134
	OpENotAudio     = -135
	OpEBadPacket    = -136
	OpEBadLink      = -137
	OpENoSeek       = -138
	OpEBadTimestamp = -139
)

// Gain offset kinds accepted by Handle.SetGainOffset.
const (
	HeaderGain   = 0
	AlbumGain    = 3007
	TrackGain    = 3008
	AbsoluteGain = 3009
)

var codeNames = map[int]string{
	OpFalse:         "false",
	OpEOF:           "end of file",
	OpHole:          "hole in data",
	OpERead:         "read error",
	OpEFault:        "internal fault",
	OpEImpl:         "not implemented",
	OpEInval:        "invalid argument",
	OpENotFormat:    "not an Ogg Opus stream",
	OpEBadHeader:    "bad header",
	OpEVersion:      "unsupported version",
	OpENotAudio:     "not audio",
	OpEBadPacket:    "bad packet",
	OpEBadLink:      "bad link",
	OpENoSeek:       "stream not seekable",
	OpEBadTimestamp: "bad timestamp",
}

// Strerror returns a short description of an engine result code.
func Strerror(code int) string {
	if name, ok := codeNames[code]; ok {
		return name
	}
	return fmt.Sprintf("engine error %d", code)
}
