package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"oggopus.click/internal/engine"
	"oggopus.click/internal/oggopus"
)

// Extensions lists the file extensions a scan considers.
var Extensions = []string{".opus", ".ogg", ".oga"}

// Scanner probes files and records them in a catalog.
type Scanner struct {
	Engine  engine.Engine
	Fs      afero.Fs
	Catalog *Catalog
	// RequireOgg rejects files whose content does not sniff as Ogg before
	// the engine sees them.
	RequireOgg bool
	// Workers bounds the files probed at once; values below 1 mean 1.
	Workers int
	// Now returns the timestamp stored with each record.
	Now func() time.Time
}

func (s *Scanner) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func wanted(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// FindFiles walks root and returns the paths with a scanned extension in
// lexical order.
func FindFiles(fsys afero.Fs, root string) ([]string, error) {
	var paths []string
	err := afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() && wanted(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Scan probes every matching file under root and records it. Files that fail
// to open are recorded with their error and counted as failures; only
// catalog errors and cancellation abort the scan.
func (s *Scanner) Scan(ctx context.Context, root string) (*Scan, error) {
	paths, err := FindFiles(s.Fs, root)
	if err != nil {
		return nil, err
	}

	scan, err := s.Catalog.BeginScan(ctx, root, s.now())
	if err != nil {
		return nil, err
	}
	slog.Info("scanning", "root", root, "files", len(paths), "scan_id", scan.ID)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.Workers))
	for _, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec := s.Probe(path)
			rec.ScanID = scan.ID
			if err := s.Catalog.AddFile(gctx, rec); err != nil {
				return err
			}

			mu.Lock()
			scan.Files++
			if rec.Error != "" {
				scan.Failures++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := s.Catalog.FinishScan(ctx, scan, s.now()); err != nil {
		return nil, err
	}
	slog.Info("scan complete", "scan_id", scan.ID, "files", scan.Files, "failures", scan.Failures)
	return scan, nil
}

// Probe opens path and summarizes it. Failures are reported in the Error
// field of the record.
func (s *Scanner) Probe(path string) *File {
	rec := &File{Path: path, ScannedAt: s.now().Truncate(time.Second)}
	if info, err := s.Fs.Stat(path); err == nil {
		rec.Size = info.Size()
	}

	src, err := oggopus.OpenFile(s.Engine, s.Fs, path, s.RequireOgg)
	if err != nil {
		slog.Debug("probe failed", "path", path, "error", err)
		rec.Error = err.Error()
		rec.MIME = "application/octet-stream"
		return rec
	}
	defer src.Close()
	rec.MIME = src.MIME

	d, err := src.Describe()
	if err != nil {
		rec.Error = err.Error()
		return rec
	}
	rec.Seekable = d.Seekable
	rec.LinkCount = len(d.Links)
	rec.PcmTotal = d.PcmTotal
	rec.Duration = d.Duration

	for _, l := range d.Links {
		rec.Pictures += l.Pictures
		rec.Links = append(rec.Links, Link{
			Index:     l.Index,
			Serialno:  l.Serialno,
			Channels:  l.Channels,
			InputRate: l.InputSampleRate,
			PcmTotal:  l.PcmTotal,
			Bitrate:   l.Bitrate,
			Vendor:    l.Vendor,
		})
	}

	if tags, err := src.Tags(0); err == nil {
		rec.Title, _, _ = tags.Query("TITLE", 0)
		rec.Artist, _, _ = tags.Query("ARTIST", 0)
		rec.Album, _, _ = tags.Query("ALBUM", 0)
	}
	return rec
}
