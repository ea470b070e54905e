package oggopus

import "time"

// SampleRate is the rate every Opus stream decodes at.
const SampleRate = 48000

// LinkInfo summarizes one link.
type LinkInfo struct {
	Index           int      `json:"index" yaml:"index"`
	Serialno        uint32   `json:"serialno" yaml:"serialno"`
	Channels        int      `json:"channels" yaml:"channels"`
	InputSampleRate uint32   `json:"input_sample_rate" yaml:"input_sample_rate"`
	PreSkip         uint32   `json:"pre_skip" yaml:"pre_skip"`
	OutputGainQ8    int      `json:"output_gain_q8" yaml:"output_gain_q8"`
	MappingFamily   int      `json:"mapping_family" yaml:"mapping_family"`
	PcmTotal        int64    `json:"pcm_total,omitempty" yaml:"pcm_total,omitempty"`
	RawTotal        int64    `json:"raw_total,omitempty" yaml:"raw_total,omitempty"`
	Bitrate         int32    `json:"bitrate,omitempty" yaml:"bitrate,omitempty"`
	Vendor          string   `json:"vendor" yaml:"vendor"`
	Comments        []string `json:"comments" yaml:"comments"`
	TrackGainQ8     *int     `json:"track_gain_q8,omitempty" yaml:"track_gain_q8,omitempty"`
	AlbumGainQ8     *int     `json:"album_gain_q8,omitempty" yaml:"album_gain_q8,omitempty"`
	Pictures        int      `json:"pictures" yaml:"pictures"`

	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Description summarizes a whole file.
type Description struct {
	Engine   string        `json:"engine" yaml:"engine"`
	Seekable bool          `json:"seekable" yaml:"seekable"`
	Links    []LinkInfo    `json:"links" yaml:"links"`
	PcmTotal int64         `json:"pcm_total,omitempty" yaml:"pcm_total,omitempty"`
	RawTotal int64         `json:"raw_total,omitempty" yaml:"raw_total,omitempty"`
	Bitrate  int32         `json:"bitrate,omitempty" yaml:"bitrate,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// SamplesToDuration converts a 48 kHz sample count to a duration.
func SamplesToDuration(samples int64) time.Duration {
	return time.Duration(samples) * time.Second / SampleRate
}

// Describe queries every link. Totals are left at zero for unseekable
// streams, where the engine cannot report them. Describe does not move the
// decode position.
func (f *File) Describe() (*Description, error) {
	seekable, err := f.Seekable()
	if err != nil {
		return nil, err
	}
	links, err := f.LinkCount()
	if err != nil {
		return nil, err
	}

	d := &Description{Engine: f.eng.Name(), Seekable: seekable}
	if seekable {
		if d.PcmTotal, err = f.PcmTotal(-1); err != nil {
			return nil, err
		}
		if d.RawTotal, err = f.RawTotal(-1); err != nil {
			return nil, err
		}
		if d.Bitrate, err = f.Bitrate(-1); err != nil {
			return nil, err
		}
		d.Duration = SamplesToDuration(d.PcmTotal)
	}

	for li := 0; li < links; li++ {
		info, err := f.describeLink(li, seekable)
		if err != nil {
			return nil, err
		}
		d.Links = append(d.Links, *info)
	}
	return d, nil
}

func (f *File) describeLink(li int, seekable bool) (*LinkInfo, error) {
	head, err := f.Head(li)
	if err != nil {
		return nil, err
	}
	serial, err := f.Serialno(li)
	if err != nil {
		return nil, err
	}

	info := &LinkInfo{
		Index:           li,
		Serialno:        serial,
		Channels:        head.ChannelCount,
		InputSampleRate: head.InputSampleRate,
		PreSkip:         head.PreSkip,
		OutputGainQ8:    head.OutputGain,
		MappingFamily:   head.MappingFamily,
	}
	if seekable {
		if info.PcmTotal, err = f.PcmTotal(li); err != nil {
			return nil, err
		}
		if info.RawTotal, err = f.RawTotal(li); err != nil {
			return nil, err
		}
		if info.Bitrate, err = f.Bitrate(li); err != nil {
			return nil, err
		}
		info.Duration = SamplesToDuration(info.PcmTotal)
	}

	tags, err := f.Tags(li)
	if err != nil {
		return nil, err
	}
	if info.Vendor, err = tags.Vendor(); err != nil {
		return nil, err
	}
	if info.Comments, err = tags.Comments(); err != nil {
		return nil, err
	}
	if g, ok, err := tags.TrackGain(); err == nil && ok {
		info.TrackGainQ8 = &g
	}
	if g, ok, err := tags.AlbumGain(); err == nil && ok {
		info.AlbumGainQ8 = &g
	}

	pics, err := tags.Pictures()
	if err != nil {
		return nil, err
	}
	info.Pictures = len(pics)
	return info, nil
}
