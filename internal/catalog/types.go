package catalog

import "time"

// Scan is one recorded scan run.
type Scan struct {
	ID         string     `json:"id" yaml:"id"`
	Root       string     `json:"root" yaml:"root"`
	StartedAt  time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Files      int        `json:"files" yaml:"files"`
	Failures   int        `json:"failures" yaml:"failures"`
}

// Link is the stored summary of one link.
type Link struct {
	Index     int    `json:"index" yaml:"index"`
	Serialno  uint32 `json:"serialno" yaml:"serialno"`
	Channels  int    `json:"channels" yaml:"channels"`
	InputRate uint32 `json:"input_rate" yaml:"input_rate"`
	PcmTotal  int64  `json:"pcm_total" yaml:"pcm_total"`
	Bitrate   int32  `json:"bitrate" yaml:"bitrate"`
	Vendor    string `json:"vendor" yaml:"vendor"`
}

// File is one stored file. Error is set, and the stream fields are zero,
// when the file could not be opened.
type File struct {
	ID        int64         `json:"id" yaml:"id"`
	ScanID    string        `json:"scan_id" yaml:"scan_id"`
	Path      string        `json:"path" yaml:"path"`
	MIME      string        `json:"mime" yaml:"mime"`
	Size      int64         `json:"size" yaml:"size"`
	Seekable  bool          `json:"seekable" yaml:"seekable"`
	LinkCount int           `json:"link_count" yaml:"link_count"`
	PcmTotal  int64         `json:"pcm_total" yaml:"pcm_total"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	Title     string        `json:"title,omitempty" yaml:"title,omitempty"`
	Artist    string        `json:"artist,omitempty" yaml:"artist,omitempty"`
	Album     string        `json:"album,omitempty" yaml:"album,omitempty"`
	Pictures  int           `json:"pictures" yaml:"pictures"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
	ScannedAt time.Time     `json:"scanned_at" yaml:"scanned_at"`
	Links     []Link        `json:"links,omitempty" yaml:"links,omitempty"`
}
