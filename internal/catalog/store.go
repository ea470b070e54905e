package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Catalog stores scans and their files.
type Catalog struct {
	db *sql.DB
}

// Open opens or creates the catalog at path. Use MemoryPath for a
// throwaway catalog.
func Open(path string) (*Catalog, error) {
	db, err := NewDatabase(path)
	if err != nil {
		return nil, err
	}
	slog.Debug("catalog opened", "path", path)
	return &Catalog{db: db}, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// BeginScan records the start of a scan of root and returns it with a new
// id.
func (c *Catalog) BeginScan(ctx context.Context, root string, now time.Time) (*Scan, error) {
	scan := &Scan{ID: uuid.NewString(), Root: root, StartedAt: now.Truncate(time.Second)}
	_, err := c.db.ExecContext(ctx,
		"INSERT INTO scans (id, root, started_at) VALUES (?, ?, ?)",
		scan.ID, scan.Root, scan.StartedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to record scan: %w", err)
	}
	slog.Debug("scan started", "scan_id", scan.ID, "root", root)
	return scan, nil
}

// FinishScan stores the counts of a finished scan.
func (c *Catalog) FinishScan(ctx context.Context, scan *Scan, now time.Time) error {
	finished := now.Truncate(time.Second)
	_, err := c.db.ExecContext(ctx,
		"UPDATE scans SET finished_at = ?, file_count = ?, failures = ? WHERE id = ?",
		finished.Unix(), scan.Files, scan.Failures, scan.ID)
	if err != nil {
		return fmt.Errorf("failed to finish scan: %w", err)
	}
	scan.FinishedAt = &finished
	slog.Debug("scan finished", "scan_id", scan.ID, "files", scan.Files, "failures", scan.Failures)
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// AddFile stores f and its links in one transaction and sets f.ID.
func (c *Catalog) AddFile(ctx context.Context, f *File) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
INSERT INTO files (scan_id, path, mime, size, seekable, link_count, pcm_total, duration_ms,
                   title, artist, album, pictures, error, scanned_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ScanID, f.Path, f.MIME, f.Size, f.Seekable, f.LinkCount, f.PcmTotal, f.Duration.Milliseconds(),
		nullString(f.Title), nullString(f.Artist), nullString(f.Album), f.Pictures, nullString(f.Error),
		f.ScannedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert file %s: %w", f.Path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read file id: %w", err)
	}

	for _, l := range f.Links {
		_, err := tx.ExecContext(ctx, `
INSERT INTO links (file_id, link_index, serialno, channels, input_rate, pcm_total, bitrate, vendor)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, l.Index, l.Serialno, l.Channels, l.InputRate, l.PcmTotal, l.Bitrate, l.Vendor)
		if err != nil {
			return fmt.Errorf("failed to insert link %d of %s: %w", l.Index, f.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit file %s: %w", f.Path, err)
	}
	f.ID = id
	return nil
}

// Files returns the files matching filter, most recently scanned first,
// with their links.
func (c *Catalog) Files(ctx context.Context, filter QueryFilter) ([]File, error) {
	where, args := filter.BuildWhereClause(time.Now())

	query := `SELECT id, scan_id, path, mime, size, seekable, link_count, pcm_total, duration_ms,
       title, artist, album, pictures, error, scanned_at FROM files`
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY scanned_at DESC, path ASC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		var f File
		var durationMS, scannedAt int64
		var title, artist, album, errText sql.NullString
		if err := rows.Scan(&f.ID, &f.ScanID, &f.Path, &f.MIME, &f.Size, &f.Seekable, &f.LinkCount,
			&f.PcmTotal, &durationMS, &title, &artist, &album, &f.Pictures, &errText, &scannedAt); err != nil {
			return nil, fmt.Errorf("failed to scan file row: %w", err)
		}
		f.Duration = time.Duration(durationMS) * time.Millisecond
		f.Title, f.Artist, f.Album, f.Error = title.String, artist.String, album.String, errText.String
		f.ScannedAt = time.Unix(scannedAt, 0)
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read files: %w", err)
	}
	rows.Close()

	for i := range files {
		if files[i].Links, err = c.links(ctx, files[i].ID); err != nil {
			return nil, err
		}
	}
	return files, nil
}

func (c *Catalog) links(ctx context.Context, fileID int64) ([]Link, error) {
	rows, err := c.db.QueryContext(ctx, `
SELECT link_index, serialno, channels, input_rate, pcm_total, bitrate, vendor
FROM links WHERE file_id = ? ORDER BY link_index`, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.Index, &l.Serialno, &l.Channels, &l.InputRate, &l.PcmTotal, &l.Bitrate, &l.Vendor); err != nil {
			return nil, fmt.Errorf("failed to scan link row: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// Scans returns recorded scans, newest first.
func (c *Catalog) Scans(ctx context.Context, limit int) ([]Scan, error) {
	query := "SELECT id, root, started_at, finished_at, file_count, failures FROM scans ORDER BY started_at DESC, rowid DESC"
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	var scans []Scan
	for rows.Next() {
		var s Scan
		var started int64
		var finished sql.NullInt64
		if err := rows.Scan(&s.ID, &s.Root, &started, &finished, &s.Files, &s.Failures); err != nil {
			return nil, fmt.Errorf("failed to scan scan row: %w", err)
		}
		s.StartedAt = time.Unix(started, 0)
		if finished.Valid {
			t := time.Unix(finished.Int64, 0)
			s.FinishedAt = &t
		}
		scans = append(scans, s)
	}
	return scans, rows.Err()
}
