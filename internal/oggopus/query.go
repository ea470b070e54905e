package oggopus

// Seekable reports whether the engine can seek in the stream.
func (f *File) Seekable() (bool, error) {
	if err := f.check("seekable"); err != nil {
		return false, err
	}
	return f.handle.Seekable(), nil
}

// LinkCount returns the number of links. Unseekable streams report 1.
func (f *File) LinkCount() (int, error) {
	if err := f.check("link count"); err != nil {
		return 0, err
	}
	return f.handle.LinkCount(), nil
}

// Serialno returns the stream serial number of link li.
func (f *File) Serialno(li int) (uint32, error) {
	if err := f.checkLink("serialno", li); err != nil {
		return 0, err
	}
	return f.handle.Serialno(li), nil
}

// ChannelCount returns the channel count of link li.
func (f *File) ChannelCount(li int) (int, error) {
	if err := f.checkLink("channel count", li); err != nil {
		return 0, err
	}
	return f.handle.ChannelCount(li), nil
}

// RawTotal returns the compressed size of link li in bytes, or of the whole
// stream when li is negative.
func (f *File) RawTotal(li int) (int64, error) {
	if err := f.check("raw total"); err != nil {
		return 0, err
	}
	n := f.handle.RawTotal(li)
	if n < 0 {
		return 0, f.fail("raw total", argumentKind(int(n)), int(n))
	}
	return n, nil
}

// PcmTotal returns the decoded length of link li in 48 kHz samples per
// channel, or of the whole stream when li is negative.
func (f *File) PcmTotal(li int) (int64, error) {
	if err := f.check("pcm total"); err != nil {
		return 0, err
	}
	n := f.handle.PcmTotal(li)
	if n < 0 {
		return 0, f.fail("pcm total", argumentKind(int(n)), int(n))
	}
	return n, nil
}

// CurrentLink returns the index of the link being decoded.
func (f *File) CurrentLink() (int, error) {
	if err := f.check("current link"); err != nil {
		return 0, err
	}
	li := f.handle.CurrentLink()
	if li < 0 {
		return 0, f.fail("current link", KindEngine, li)
	}
	return li, nil
}

// Bitrate returns the average bitrate of link li in bits per second, or of
// the whole stream when li is negative.
func (f *File) Bitrate(li int) (int32, error) {
	if err := f.check("bitrate"); err != nil {
		return 0, err
	}
	rate := f.handle.Bitrate(li)
	if rate < 0 {
		return 0, f.fail("bitrate", argumentKind(int(rate)), int(rate))
	}
	return rate, nil
}

// BitrateInstant returns the bitrate since the previous call. It fails with
// engine code OpFalse when nothing was decoded in between.
func (f *File) BitrateInstant() (int32, error) {
	if err := f.check("instant bitrate"); err != nil {
		return 0, err
	}
	rate := f.handle.BitrateInstant()
	if rate < 0 {
		return 0, f.fail("instant bitrate", KindEngine, int(rate))
	}
	return rate, nil
}

// RawTell returns the compressed byte position of the decoder.
func (f *File) RawTell() (int64, error) {
	if err := f.check("raw tell"); err != nil {
		return 0, err
	}
	pos := f.handle.RawTell()
	if pos < 0 {
		return 0, f.fail("raw tell", KindEngine, int(pos))
	}
	return pos, nil
}

// PcmTell returns the decoded sample position of the decoder.
func (f *File) PcmTell() (int64, error) {
	if err := f.check("pcm tell"); err != nil {
		return 0, err
	}
	pos := f.handle.PcmTell()
	if pos < 0 {
		return 0, f.fail("pcm tell", KindEngine, int(pos))
	}
	return pos, nil
}
