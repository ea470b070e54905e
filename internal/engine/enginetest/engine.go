package enginetest

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"

	"oggopus.click/internal/engine"
	"oggopus.click/internal/picture"
)

// Stats counts callback invocations made by handles of an Engine.
type Stats struct {
	Opens     int
	Reads     int
	BytesRead int
	Seeks     int
	Tells     int
	Closes    int
	Frees     int
}

// Engine is a deterministic engine.Engine over test containers.
type Engine struct {
	// ZeroAtLinkBoundary makes Read return 0 once when decoding crosses
	// into the next link.
	ZeroAtLinkBoundary bool

	// Fail* force the matching operation to return the given code when
	// non-zero.
	FailOpen int
	FailRead int
	FailSeek int
	FailGain int

	mu    sync.Mutex
	stats Stats
}

// New returns an engine with default behavior.
func New() *Engine {
	return &Engine{}
}

// Name implements engine.Engine.
func (e *Engine) Name() string {
	return "enginetest"
}

// Stats returns a copy of the callback counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

func (e *Engine) count(f func(s *Stats)) {
	e.mu.Lock()
	f(&e.stats)
	e.mu.Unlock()
}

// ParsePicture implements engine.Engine.
func (e *Engine) ParsePicture(tag []byte) (*picture.Picture, int) {
	p, err := picture.Parse(tag)
	switch {
	case err == nil:
		return p, 0
	case errors.Is(err, picture.ErrTooLarge):
		return nil, engine.OpEFault
	default:
		return nil, engine.OpENotFormat
	}
}

// Open implements engine.Engine.
func (e *Engine) Open(cb engine.Callbacks, initial []byte) (engine.Handle, int) {
	e.count(func(s *Stats) { s.Opens++ })
	if e.FailOpen != 0 {
		return nil, e.FailOpen
	}

	h := &handle{
		eng:      e,
		cb:       &countingCallbacks{Callbacks: cb, eng: e},
		gainKind: engine.HeaderGain,
		dither:   true,
		noise:    0x2545f491,
	}
	h.src.pending = append([]byte(nil), initial...)
	h.src.cb = h.cb

	if code := h.parseHeaders(); code < 0 {
		return nil, code
	}
	if code := h.probe(); code < 0 {
		return nil, code
	}
	h.rawPos = h.dataStart
	return h, 0
}

type countingCallbacks struct {
	engine.Callbacks
	eng *Engine
}

func (c *countingCallbacks) Read(p []byte) int {
	n := c.Callbacks.Read(p)
	c.eng.count(func(s *Stats) {
		s.Reads++
		if n > 0 {
			s.BytesRead += n
		}
	})
	return n
}

func (c *countingCallbacks) Seek(offset int64, whence int) int {
	c.eng.count(func(s *Stats) { s.Seeks++ })
	return c.Callbacks.Seek(offset, whence)
}

func (c *countingCallbacks) Tell() int64 {
	c.eng.count(func(s *Stats) { s.Tells++ })
	return c.Callbacks.Tell()
}

func (c *countingCallbacks) Close() int {
	c.eng.count(func(s *Stats) { s.Closes++ })
	return c.Callbacks.Close()
}

// source serves bytes already handed to Open before pulling from the
// callbacks.
type source struct {
	cb      engine.Callbacks
	pending []byte
}

// readFull fills p. It returns OpERead on callback failure and OpFalse when
// the stream ends early.
func (s *source) readFull(p []byte) int {
	filled := copy(p, s.pending)
	s.pending = s.pending[filled:]
	for filled < len(p) {
		n := s.cb.Read(p[filled:])
		if n < 0 {
			return engine.OpERead
		}
		if n == 0 {
			return engine.OpFalse
		}
		filled += n
	}
	return 0
}

type link struct {
	serialno  uint32
	head      engine.Head
	vendor    []byte
	comments  [][]byte
	frames    int64
	payload   int64 // absolute offset of the first sample
	frameSize int64
}

func (l *link) Vendor() []byte { return l.vendor }
func (l *link) CommentCount() int { return len(l.comments) }
func (l *link) Comment(i int) []byte { return l.comments[i] }

func (l *link) query(key string) (string, bool) {
	for _, c := range l.comments {
		k, v, ok := strings.Cut(string(c), "=")
		if ok && strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

type handle struct {
	eng *Engine
	cb  engine.Callbacks
	src source

	links     []*link
	seekable  bool
	dataStart int64
	dataEnd   int64
	rawSize   int64

	cur      int
	frame    int64
	rawPos   int64
	needSeek bool

	instBytes  int64
	instFrames int64

	gainKind int
	gainQ8   int32
	dither   bool
	noise    uint32

	freed bool
}

func (h *handle) parseHeaders() int {
	var pos int64
	read := func(n int) ([]byte, int) {
		b := make([]byte, n)
		if code := h.src.readFull(b); code < 0 {
			if code == engine.OpFalse {
				return nil, engine.OpEBadHeader
			}
			return nil, code
		}
		pos += int64(n)
		return b, 0
	}

	magic, code := read(len(Magic) + 3)
	if code < 0 {
		if pos == 0 && code == engine.OpEBadHeader {
			return engine.OpENotFormat
		}
		return code
	}
	if string(magic[:len(Magic)]) != Magic {
		return engine.OpENotFormat
	}
	if magic[len(Magic)] != Version {
		return engine.OpEVersion
	}
	count := int(binary.LittleEndian.Uint16(magic[len(Magic)+1:]))
	if count == 0 {
		return engine.OpEBadHeader
	}

	str := func() ([]byte, int) {
		b, code := read(4)
		if code < 0 {
			return nil, code
		}
		n := binary.LittleEndian.Uint32(b)
		if n > 1<<24 {
			return nil, engine.OpEBadHeader
		}
		return read(int(n))
	}

	for i := 0; i < count; i++ {
		fixed, code := read(4 + 1 + 2 + 4 + 2)
		if code < 0 {
			return code
		}
		l := &link{serialno: binary.LittleEndian.Uint32(fixed)}
		channels := int(fixed[4])
		if channels < 1 || channels > 8 {
			return engine.OpEBadHeader
		}
		l.head = engine.Head{
			Version:         1,
			ChannelCount:    channels,
			PreSkip:         uint32(binary.LittleEndian.Uint16(fixed[5:])),
			InputSampleRate: binary.LittleEndian.Uint32(fixed[7:]),
			OutputGain:      int(int16(binary.LittleEndian.Uint16(fixed[11:]))),
			StreamCount:     1,
		}
		if channels == 2 {
			l.head.CoupledCount = 1
		}
		if channels > 2 {
			l.head.MappingFamily = 1
			l.head.StreamCount = channels
		}
		for c := 0; c < channels; c++ {
			l.head.Mapping[c] = byte(c)
		}

		if l.vendor, code = str(); code < 0 {
			return code
		}
		nc, code := read(4)
		if code < 0 {
			return code
		}
		for j := uint32(0); j < binary.LittleEndian.Uint32(nc); j++ {
			c, code := str()
			if code < 0 {
				return code
			}
			l.comments = append(l.comments, c)
		}
		fr, code := read(4)
		if code < 0 {
			return code
		}
		l.frames = int64(binary.LittleEndian.Uint32(fr))
		l.frameSize = int64(channels) * 2
		h.links = append(h.links, l)
	}

	h.dataStart = pos
	off := pos
	for _, l := range h.links {
		l.payload = off
		off += l.frames * l.frameSize
	}
	h.dataEnd = off
	return 0
}

// probe decides seekability and validates the stream size.
func (h *handle) probe() int {
	if h.cb.Seek(0, io.SeekCurrent) != 0 {
		h.seekable = false
		return 0
	}
	if h.cb.Seek(0, io.SeekEnd) != 0 {
		h.seekable = false
		return 0
	}
	h.rawSize = h.cb.Tell()
	if h.rawSize < h.dataEnd {
		return engine.OpEBadLink
	}
	if h.cb.Seek(h.dataStart, io.SeekStart) != 0 {
		return engine.OpERead
	}
	h.src.pending = nil
	h.seekable = true
	return 0
}

func (h *handle) Free() {
	if h.freed {
		return
	}
	h.freed = true
	h.cb.Close()
	h.eng.count(func(s *Stats) { s.Frees++ })
}

func (h *handle) Seekable() bool {
	return h.seekable
}

func (h *handle) LinkCount() int {
	if !h.seekable {
		return 1
	}
	return len(h.links)
}

// identity resolves li for per-link metadata queries. Unseekable streams
// only know the link being decoded, which they report as link 0. Any other
// index resolves to an empty link.
func (h *handle) identity(li int) *link {
	switch {
	case li == -1 || (!h.seekable && li == 0):
		return h.links[h.cur]
	case h.seekable && li >= 0 && li < len(h.links):
		return h.links[li]
	}
	return &link{}
}

func (h *handle) Serialno(li int) uint32 { return h.identity(li).serialno }
func (h *handle) ChannelCount(li int) int { return h.identity(li).head.ChannelCount }
func (h *handle) Head(li int) engine.Head { return h.identity(li).head }
func (h *handle) Tags(li int) engine.TagSource { return h.identity(li) }
func (h *handle) CurrentLink() int {
	if !h.seekable {
		return 0
	}
	return h.cur
}

func (h *handle) RawTotal(li int) int64 {
	if !h.seekable || li >= len(h.links) {
		return engine.OpEInval
	}
	if li < 0 {
		return h.rawSize
	}
	total := h.links[li].frames * h.links[li].frameSize
	if li == 0 {
		total += h.dataStart
	}
	return total
}

func (h *handle) PcmTotal(li int) int64 {
	if !h.seekable || li >= len(h.links) {
		return engine.OpEInval
	}
	if li >= 0 {
		return h.links[li].frames
	}
	var total int64
	for _, l := range h.links {
		total += l.frames
	}
	return total
}

func calcBitrate(bytes, frames int64) int32 {
	if frames <= 0 {
		return math.MaxInt32
	}
	rate := bytes * 8 * 48000 / frames
	if rate > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(rate)
}

func (h *handle) Bitrate(li int) int32 {
	if !h.seekable || li >= len(h.links) {
		return engine.OpEInval
	}
	return calcBitrate(h.RawTotal(li), h.PcmTotal(li))
}

func (h *handle) BitrateInstant() int32 {
	if h.instFrames <= 0 {
		return engine.OpFalse
	}
	rate := calcBitrate(h.instBytes, h.instFrames)
	h.instBytes, h.instFrames = 0, 0
	return rate
}

func (h *handle) RawTell() int64 {
	return h.rawPos
}

func (h *handle) PcmTell() int64 {
	var pos int64
	for i := 0; i < h.cur; i++ {
		pos += h.links[i].frames
	}
	return pos + h.frame
}

func (h *handle) SetGainOffset(kind int, q8 int32) int {
	if h.eng.FailGain != 0 {
		return h.eng.FailGain
	}
	switch kind {
	case engine.HeaderGain, engine.AlbumGain, engine.TrackGain, engine.AbsoluteGain:
	default:
		return engine.OpEInval
	}
	h.gainKind = kind
	h.gainQ8 = max(-98302, min(98302, q8))
	return 0
}

func (h *handle) SetDitherEnabled(enabled bool) {
	h.dither = enabled
}

func (h *handle) RawSeek(offset int64) int {
	if h.eng.FailSeek != 0 {
		return h.eng.FailSeek
	}
	if !h.seekable {
		return engine.OpENoSeek
	}
	if offset < 0 || offset > h.rawSize {
		return engine.OpEInval
	}
	h.cur, h.frame = h.locateRaw(offset)
	h.rawPos = offset
	h.needSeek = true
	return 0
}

func (h *handle) locateRaw(offset int64) (int, int64) {
	for i, l := range h.links {
		end := l.payload + l.frames*l.frameSize
		if offset < end || i == len(h.links)-1 {
			if offset <= l.payload {
				return i, 0
			}
			return i, min(l.frames, (offset-l.payload)/l.frameSize)
		}
	}
	return 0, 0
}

func (h *handle) PcmSeek(offset int64) int {
	if h.eng.FailSeek != 0 {
		return h.eng.FailSeek
	}
	if !h.seekable {
		return engine.OpENoSeek
	}
	if offset < 0 || offset > h.PcmTotal(-1) {
		return engine.OpEInval
	}
	remaining := offset
	for i, l := range h.links {
		if remaining < l.frames || i == len(h.links)-1 {
			h.cur, h.frame = i, remaining
			break
		}
		remaining -= l.frames
	}
	l := h.links[h.cur]
	h.rawPos = l.payload + h.frame*l.frameSize
	h.needSeek = true
	return 0
}

// advance moves to the next link when the current one is exhausted. It
// reports whether decoding crossed a boundary.
func (h *handle) advance() bool {
	if h.frame < h.links[h.cur].frames || h.cur == len(h.links)-1 {
		return false
	}
	h.cur++
	h.frame = 0
	return true
}

// decode reads up to frames frames of the current link.
func (h *handle) decode(frames int64) ([]int16, int) {
	if h.advance() && h.eng.ZeroAtLinkBoundary {
		return nil, 0
	}
	l := h.links[h.cur]
	frames = min(frames, l.frames-h.frame)
	if frames <= 0 {
		return nil, 0
	}

	start := l.payload + h.frame*l.frameSize
	if h.needSeek || h.rawPos != start {
		if h.seekable {
			if h.cb.Seek(start, io.SeekStart) != 0 {
				return nil, engine.OpERead
			}
			h.src.pending = nil
		}
		h.needSeek = false
		h.rawPos = start
	}

	raw := make([]byte, frames*l.frameSize)
	if code := h.src.readFull(raw); code < 0 {
		if code == engine.OpFalse {
			return nil, engine.OpEBadPacket
		}
		return nil, code
	}
	h.rawPos += int64(len(raw))
	h.frame += frames
	h.instBytes += int64(len(raw))
	h.instFrames += frames

	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	h.applyGain(l, samples)
	return samples, 0
}

// gainQ8For returns the total gain applied to samples of l.
func (h *handle) gainQ8For(l *link) int {
	gain := int(h.gainQ8)
	switch h.gainKind {
	case engine.HeaderGain:
		gain += l.head.OutputGain
	case engine.TrackGain, engine.AlbumGain:
		key := "R128_TRACK_GAIN"
		if h.gainKind == engine.AlbumGain {
			key = "R128_ALBUM_GAIN"
		}
		gain += l.head.OutputGain
		if v, ok := l.query(key); ok {
			if g, err := strconv.Atoi(v); err == nil {
				gain += g
			}
		}
	}
	return gain
}

func (h *handle) applyGain(l *link, samples []int16) {
	gain := h.gainQ8For(l)
	if gain == 0 {
		return
	}
	scale := math.Pow(10, float64(gain)/(20*256))
	for i, s := range samples {
		v := float64(s) * scale
		if h.dither {
			v += h.nextNoise()
		}
		v = math.Round(v)
		samples[i] = int16(max(-32768, min(32767, v)))
	}
}

// nextNoise returns triangular noise in (-1, 1) from a xorshift generator.
func (h *handle) nextNoise() float64 {
	next := func() float64 {
		h.noise ^= h.noise << 13
		h.noise ^= h.noise >> 17
		h.noise ^= h.noise << 5
		return float64(h.noise) / float64(math.MaxUint32)
	}
	return next() - next()
}

func (h *handle) Read(pcm []int16, li *int) int {
	if h.eng.FailRead != 0 {
		return h.eng.FailRead
	}
	channels := h.links[h.cur].head.ChannelCount
	if h.frame >= h.links[h.cur].frames && h.cur < len(h.links)-1 {
		channels = h.links[h.cur+1].head.ChannelCount
	}
	frames := int64(len(pcm) / channels)
	if frames == 0 {
		return engine.OpEInval
	}

	samples, code := h.decode(frames)
	if li != nil {
		*li = h.CurrentLink()
	}
	if code < 0 {
		return code
	}
	copy(pcm, samples)
	return len(samples) / h.links[h.cur].head.ChannelCount
}

func (h *handle) ReadStereo(pcm []int16) int {
	if h.eng.FailRead != 0 {
		return h.eng.FailRead
	}
	frames := int64(len(pcm) / 2)
	if frames == 0 {
		return engine.OpEInval
	}

	samples, code := h.decode(frames)
	if code < 0 {
		return code
	}
	channels := h.links[h.cur].head.ChannelCount
	n := len(samples) / channels
	for i := 0; i < n; i++ {
		frame := samples[i*channels : (i+1)*channels]
		left, right := downmix(frame)
		pcm[2*i] = left
		pcm[2*i+1] = right
	}
	return n
}

// downmix averages even channels into left and odd channels into right.
// Mono is duplicated.
func downmix(frame []int16) (int16, int16) {
	if len(frame) == 1 {
		return frame[0], frame[0]
	}
	var l, r, nl, nr int
	for c, s := range frame {
		if c%2 == 0 {
			l += int(s)
			nl++
		} else {
			r += int(s)
			nr++
		}
	}
	return int16(l / nl), int16(r / nr)
}
