package oggopus

import (
	"fmt"
	"strconv"
	"strings"

	"oggopus.click/internal/engine"
	"oggopus.click/internal/picture"
)

// Head is a snapshot of a link's identification header.
type Head struct {
	Version         int
	ChannelCount    int
	PreSkip         uint32
	InputSampleRate uint32
	// OutputGain is in Q8 dB.
	OutputGain    int
	MappingFamily int
	StreamCount   int
	CoupledCount  int
	Mapping       [255]byte
}

// OutputGainDB returns the header gain in dB.
func (h *Head) OutputGainDB() float64 {
	return float64(h.OutputGain) / 256
}

// ChannelMapping returns the mapping entries in use.
func (h *Head) ChannelMapping() []byte {
	n := max(0, min(h.ChannelCount, len(h.Mapping)))
	return h.Mapping[:n]
}

// Head returns the identification header of link li.
func (f *File) Head(li int) (*Head, error) {
	if err := f.checkLink("head", li); err != nil {
		return nil, err
	}
	eh := f.handle.Head(li)
	return &Head{
		Version:         eh.Version,
		ChannelCount:    eh.ChannelCount,
		PreSkip:         eh.PreSkip,
		InputSampleRate: eh.InputSampleRate,
		OutputGain:      eh.OutputGain,
		MappingFamily:   eh.MappingFamily,
		StreamCount:     eh.StreamCount,
		CoupledCount:    eh.CoupledCount,
		Mapping:         eh.Mapping,
	}, nil
}

// Tags is a view of a link's comment header. Strings are copied out of the
// engine on first access and cached. Every accessor fails with ErrClosed
// once the file that produced the view was freed or reopened.
type Tags struct {
	file       *File
	generation uint64
	src        engine.TagSource

	vendor   *string
	raw      [][]byte
	comments []string
}

// Tags returns the comment header view of link li.
func (f *File) Tags(li int) (*Tags, error) {
	if err := f.checkLink("tags", li); err != nil {
		return nil, err
	}
	return &Tags{
		file:       f,
		generation: f.generation,
		src:        f.handle.Tags(li),
	}, nil
}

func (t *Tags) alive(op string) error {
	if t.file.generation != t.generation || !t.file.IsValid() {
		return fmt.Errorf("%s: %w", op, ErrClosed)
	}
	return nil
}

// Vendor returns the encoder vendor string.
func (t *Tags) Vendor() (string, error) {
	if err := t.alive("vendor"); err != nil {
		return "", err
	}
	if t.vendor == nil {
		v := string(t.src.Vendor())
		t.vendor = &v
	}
	return *t.vendor, nil
}

func (t *Tags) load() {
	if t.raw != nil {
		return
	}
	n := t.src.CommentCount()
	t.raw = make([][]byte, n)
	t.comments = make([]string, n)
	for i := 0; i < n; i++ {
		c := t.src.Comment(i)
		t.raw[i] = append([]byte(nil), c...)
		t.comments[i] = string(c)
	}
}

// CommentCount returns the number of comments.
func (t *Tags) CommentCount() (int, error) {
	if err := t.alive("comment count"); err != nil {
		return 0, err
	}
	t.load()
	return len(t.comments), nil
}

// Comments returns the comments in header order as KEY=VALUE strings.
func (t *Tags) Comments() ([]string, error) {
	if err := t.alive("comments"); err != nil {
		return nil, err
	}
	t.load()
	return append([]string(nil), t.comments...), nil
}

// tagMatches reports whether comment has the given key. Keys compare
// ignoring ASCII case and must be followed by '='.
func tagMatches(key, comment string) bool {
	return len(comment) > len(key) && comment[len(key)] == '=' &&
		strings.EqualFold(comment[:len(key)], key)
}

// Query returns the value of the n-th comment with key.
func (t *Tags) Query(key string, n int) (string, bool, error) {
	if err := t.alive("query"); err != nil {
		return "", false, err
	}
	t.load()
	for _, c := range t.comments {
		if !tagMatches(key, c) {
			continue
		}
		if n == 0 {
			return c[len(key)+1:], true, nil
		}
		n--
	}
	return "", false, nil
}

// QueryCount returns the number of comments with key.
func (t *Tags) QueryCount(key string) (int, error) {
	if err := t.alive("query count"); err != nil {
		return 0, err
	}
	t.load()
	count := 0
	for _, c := range t.comments {
		if tagMatches(key, c) {
			count++
		}
	}
	return count, nil
}

// TrackGain returns R128_TRACK_GAIN in Q8 dB.
func (t *Tags) TrackGain() (int, bool, error) {
	return t.r128("R128_TRACK_GAIN")
}

// AlbumGain returns R128_ALBUM_GAIN in Q8 dB.
func (t *Tags) AlbumGain() (int, bool, error) {
	return t.r128("R128_ALBUM_GAIN")
}

// r128 reads the first well-formed gain value for key: a signed decimal
// integer in the int16 range.
func (t *Tags) r128(key string) (int, bool, error) {
	if err := t.alive("gain"); err != nil {
		return 0, false, err
	}
	t.load()
	for _, c := range t.comments {
		if !tagMatches(key, c) {
			continue
		}
		v, err := strconv.ParseInt(c[len(key)+1:], 10, 16)
		if err == nil {
			return int(v), true, nil
		}
	}
	return 0, false, nil
}

// Pictures parses every METADATA_BLOCK_PICTURE comment.
func (t *Tags) Pictures() ([]*picture.Picture, error) {
	if err := t.alive("pictures"); err != nil {
		return nil, err
	}
	t.load()
	return FindPictures(t.file.eng, t.raw)
}

// FindPictures parses the comments whose key is METADATA_BLOCK_PICTURE.
// Comments that fail to parse are skipped, except for engine faults which
// abort the scan.
func FindPictures(eng engine.Engine, comments [][]byte) ([]*picture.Picture, error) {
	var pics []*picture.Picture
	for i, c := range comments {
		if !picture.HasKey(c) {
			continue
		}
		p, code := eng.ParsePicture(c)
		if code == engine.OpEFault {
			return nil, &Error{Op: "parse picture", Kind: KindFault, Code: code,
				Cause: fmt.Errorf("comment %d", i)}
		}
		if code < 0 || p == nil {
			continue
		}
		pics = append(pics, p)
	}
	return pics, nil
}
