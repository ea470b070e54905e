//go:build cgo

// Package libopusfile implements engine.Engine on top of the system
// libopusfile through cgo.
package libopusfile

/*
#cgo pkg-config: opusfile
#include <stdint.h>
#include <stdlib.h>
#include <opusfile.h>

extern int oggopusRead(uintptr_t token, unsigned char *ptr, int nbytes);
extern int oggopusSeek(uintptr_t token, opus_int64 offset, int whence);
extern opus_int64 oggopusTell(uintptr_t token);
extern int oggopusClose(uintptr_t token);

static int read_cb(void *stream, unsigned char *ptr, int nbytes) {
	return oggopusRead((uintptr_t)stream, ptr, nbytes);
}

static int seek_cb(void *stream, opus_int64 offset, int whence) {
	return oggopusSeek((uintptr_t)stream, offset, whence);
}

static opus_int64 tell_cb(void *stream) {
	return oggopusTell((uintptr_t)stream);
}

static int close_cb(void *stream) {
	return oggopusClose((uintptr_t)stream);
}

static const OpusFileCallbacks oggopus_callbacks = {read_cb, seek_cb, tell_cb, close_cb};

static OggOpusFile *oggopus_open(uintptr_t token, const unsigned char *initial, size_t initial_len, int *err) {
	return op_open_callbacks((void *)token, &oggopus_callbacks, initial, initial_len, err);
}
*/
import "C"

import (
	"log/slog"
	"runtime"
	"runtime/cgo"
	"sync/atomic"
	"unsafe"

	"oggopus.click/internal/engine"
	"oggopus.click/internal/picture"
)

// Engine opens handles through libopusfile.
type Engine struct{}

// New returns the libopusfile engine.
func New() (engine.Engine, error) {
	slog.Debug("using libopusfile engine")
	return &Engine{}, nil
}

// Name implements engine.Engine.
func (e *Engine) Name() string {
	return Name
}

// Open implements engine.Engine. The callbacks are registered behind a
// cgo.Handle token so every session has its own context.
func (e *Engine) Open(cb engine.Callbacks, initial []byte) (engine.Handle, int) {
	token := cgo.NewHandle(cb)

	var cInitial *C.uchar
	if len(initial) > 0 {
		cInitial = (*C.uchar)(C.CBytes(initial))
		defer C.free(unsafe.Pointer(cInitial))
	}

	var errCode C.int
	of := C.oggopus_open(C.uintptr_t(token), cInitial, C.size_t(len(initial)), &errCode)
	if of == nil {
		token.Delete()
		slog.Debug("op_open_callbacks failed", "code", int(errCode))
		return nil, int(errCode)
	}

	h := &handle{of: of, token: token}
	h.cleanup = runtime.AddCleanup(h, func(r resources) {
		C.op_free(r.of)
		r.token.Delete()
	}, resources{of: of, token: token})
	return h, 0
}

// ParsePicture implements engine.Engine.
func (e *Engine) ParsePicture(tag []byte) (*picture.Picture, int) {
	cTag := C.CString(string(tag))
	defer C.free(unsafe.Pointer(cTag))

	var pic C.OpusPictureTag
	C.opus_picture_tag_init(&pic)
	defer C.opus_picture_tag_clear(&pic)

	if code := C.opus_picture_tag_parse(&pic, cTag); code < 0 {
		return nil, int(code)
	}

	p := &picture.Picture{
		Type:        uint32(pic._type),
		MIMEType:    C.GoString(pic.mime_type),
		Description: C.GoString(pic.description),
		Width:       uint32(pic.width),
		Height:      uint32(pic.height),
		Depth:       uint32(pic.depth),
		Colors:      uint32(pic.colors),
		Format:      picture.Format(pic.format),
	}
	if pic.data_length > 0 {
		p.Data = C.GoBytes(unsafe.Pointer(pic.data), C.int(pic.data_length))
	}
	return p, 0
}

type resources struct {
	of    *C.OggOpusFile
	token cgo.Handle
}

type handle struct {
	of      *C.OggOpusFile
	token   cgo.Handle
	freed   atomic.Bool
	cleanup runtime.Cleanup
}

func (h *handle) Free() {
	if !h.freed.CompareAndSwap(false, true) {
		return
	}
	h.cleanup.Stop()
	C.op_free(h.of)
	h.token.Delete()
	h.of = nil
}

func (h *handle) Seekable() bool {
	return C.op_seekable(h.of) != 0
}

func (h *handle) LinkCount() int {
	return int(C.op_link_count(h.of))
}

func (h *handle) Serialno(li int) uint32 {
	return uint32(C.op_serialno(h.of, C.int(li)))
}

func (h *handle) ChannelCount(li int) int {
	return int(C.op_channel_count(h.of, C.int(li)))
}

func (h *handle) RawTotal(li int) int64 {
	return int64(C.op_raw_total(h.of, C.int(li)))
}

func (h *handle) PcmTotal(li int) int64 {
	return int64(C.op_pcm_total(h.of, C.int(li)))
}

func (h *handle) Head(li int) engine.Head {
	ch := C.op_head(h.of, C.int(li))
	if ch == nil {
		return engine.Head{}
	}
	head := engine.Head{
		Version:         int(ch.version),
		ChannelCount:    int(ch.channel_count),
		PreSkip:         uint32(ch.pre_skip),
		InputSampleRate: uint32(ch.input_sample_rate),
		OutputGain:      int(ch.output_gain),
		MappingFamily:   int(ch.mapping_family),
		StreamCount:     int(ch.stream_count),
		CoupledCount:    int(ch.coupled_count),
	}
	for i := range head.Mapping {
		head.Mapping[i] = byte(ch.mapping[i])
	}
	return head
}

func (h *handle) Tags(li int) engine.TagSource {
	return &tags{t: C.op_tags(h.of, C.int(li))}
}

func (h *handle) CurrentLink() int {
	return int(C.op_current_link(h.of))
}

func (h *handle) Bitrate(li int) int32 {
	return int32(C.op_bitrate(h.of, C.int(li)))
}

func (h *handle) BitrateInstant() int32 {
	return int32(C.op_bitrate_instant(h.of))
}

func (h *handle) RawTell() int64 {
	return int64(C.op_raw_tell(h.of))
}

func (h *handle) PcmTell() int64 {
	return int64(C.op_pcm_tell(h.of))
}

func (h *handle) SetGainOffset(kind int, q8 int32) int {
	return int(C.op_set_gain_offset(h.of, C.int(kind), C.opus_int32(q8)))
}

func (h *handle) SetDitherEnabled(enabled bool) {
	var flag C.int
	if enabled {
		flag = 1
	}
	C.op_set_dither_enabled(h.of, flag)
}

func (h *handle) Read(pcm []int16, li *int) int {
	if len(pcm) == 0 {
		return 0
	}
	var cLink C.int
	n := C.op_read(h.of, (*C.opus_int16)(unsafe.Pointer(&pcm[0])), C.int(len(pcm)), &cLink)
	if li != nil {
		*li = int(cLink)
	}
	return int(n)
}

func (h *handle) ReadStereo(pcm []int16) int {
	if len(pcm) == 0 {
		return 0
	}
	return int(C.op_read_stereo(h.of, (*C.opus_int16)(unsafe.Pointer(&pcm[0])), C.int(len(pcm))))
}

func (h *handle) RawSeek(offset int64) int {
	return int(C.op_raw_seek(h.of, C.opus_int64(offset)))
}

func (h *handle) PcmSeek(offset int64) int {
	return int(C.op_pcm_seek(h.of, C.ogg_int64_t(offset)))
}

// tags reads a comment header owned by libopusfile.
type tags struct {
	t *C.OpusTags
}

func (t *tags) Vendor() []byte {
	if t.t == nil || t.t.vendor == nil {
		return nil
	}
	return []byte(C.GoString(t.t.vendor))
}

func (t *tags) CommentCount() int {
	if t.t == nil {
		return 0
	}
	return int(t.t.comments)
}

func (t *tags) Comment(i int) []byte {
	if t.t == nil || i < 0 || i >= int(t.t.comments) {
		return nil
	}
	comments := unsafe.Slice(t.t.user_comments, int(t.t.comments))
	lengths := unsafe.Slice(t.t.comment_lengths, int(t.t.comments))
	return C.GoBytes(unsafe.Pointer(comments[i]), lengths[i])
}
