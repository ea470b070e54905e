package catalog

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tj/go-naturaldate"
)

// QueryFilter selects catalog files.
type QueryFilter struct {
	// Time filters on scanned_at
	StartTime  *time.Time // Start of time range (inclusive)
	EndTime    *time.Time // End of time range (inclusive)
	Days       int        // Convenience: last N days
	DatePreset string     // Convenience: "today", "yesterday", "week", "month", "all"

	// Content filters
	ScanID       string // Only files from this scan
	Artist       string // Case-insensitive substring of the artist tag
	PathContains string // Substring of the path
	OnlyFailed   bool   // Only files that could not be opened

	// Output control
	Limit  int // Maximum results (0 = no limit)
	Offset int // For pagination
}

// ApplyTimeFilter converts the time options to Unix timestamps. Priority
// order: DatePreset, then StartTime/EndTime, then Days.
func (q *QueryFilter) ApplyTimeFilter(now time.Time) (startUnix, endUnix int64) {
	slog.Debug("applying time filter", "days", q.Days, "date_preset", q.DatePreset)

	endUnix = now.Unix()

	if q.DatePreset != "" {
		start, end, err := ParseDatePreset(q.DatePreset, now)
		if err != nil {
			slog.Warn("invalid date preset, using no time filter", "preset", q.DatePreset, "error", err)
			return 0, endUnix
		}
		return start.Unix(), end.Unix()
	}

	if q.StartTime != nil && q.EndTime != nil {
		return q.StartTime.Unix(), q.EndTime.Unix()
	}
	if q.StartTime != nil {
		return q.StartTime.Unix(), endUnix
	}
	if q.EndTime != nil {
		return 0, q.EndTime.Unix()
	}

	if q.Days > 0 {
		return now.AddDate(0, 0, -q.Days).Unix(), endUnix
	}

	return 0, endUnix
}

func (q *QueryFilter) hasTimeFilter() bool {
	return q.StartTime != nil || q.EndTime != nil || q.Days > 0 || q.DatePreset != ""
}

// BuildWhereClause constructs the SQL WHERE clause and arguments for the
// files table.
func (q *QueryFilter) BuildWhereClause(now time.Time) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if q.hasTimeFilter() {
		startUnix, endUnix := q.ApplyTimeFilter(now)
		if startUnix > 0 {
			clauses = append(clauses, "scanned_at >= ?")
			args = append(args, startUnix)
		}
		clauses = append(clauses, "scanned_at <= ?")
		args = append(args, endUnix)
	}

	if q.ScanID != "" {
		clauses = append(clauses, "scan_id = ?")
		args = append(args, q.ScanID)
	}

	if q.Artist != "" {
		clauses = append(clauses, "LOWER(artist) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Artist)+"%")
	}

	if q.PathContains != "" {
		clauses = append(clauses, "INSTR(path, ?) > 0")
		args = append(args, q.PathContains)
	}

	if q.OnlyFailed {
		clauses = append(clauses, "error IS NOT NULL")
	}

	whereClause := strings.Join(clauses, " AND ")
	slog.Debug("built where clause", "clause", whereClause, "arg_count", len(args))
	return whereClause, args
}

// ParseDatePreset converts date preset strings to time ranges
func ParseDatePreset(preset string, now time.Time) (start, end time.Time, err error) {
	switch preset {
	case "today":
		start = beginningOfDay(now)
		end = now
	case "yesterday":
		start = beginningOfDay(now.AddDate(0, 0, -1))
		end = beginningOfDay(now)
	case "week", "this-week":
		start = beginningOfWeek(now)
		end = now
	case "last-week":
		start = beginningOfWeek(now).AddDate(0, 0, -7)
		end = beginningOfWeek(now)
	case "month", "this-month":
		start = beginningOfMonth(now)
		end = now
	case "last-month":
		start = beginningOfMonth(now).AddDate(0, -1, 0)
		end = beginningOfMonth(now)
	case "all", "all-time":
		start = time.Time{}
		end = now
	default:
		err = fmt.Errorf("unknown preset: %s", preset)
		return
	}

	slog.Debug("parsed date preset", "preset", preset, "start", start, "end", end)
	return
}

// ParseNaturalDate parses expressions like "3 days ago" or "last monday"
// relative to now.
func ParseNaturalDate(naturalDate string, now time.Time) (time.Time, error) {
	result, err := naturaldate.Parse(naturalDate, now)
	if err != nil {
		slog.Warn("failed to parse natural language date", "input", naturalDate, "error", err)
		return time.Time{}, fmt.Errorf("failed to parse natural date '%s': %w", naturalDate, err)
	}

	slog.Debug("parsed natural language date", "input", naturalDate, "result", result)
	return result, nil
}

// beginningOfDay returns time at start of day (00:00:00)
func beginningOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// beginningOfWeek returns Monday 00:00:00 of t's week
func beginningOfWeek(t time.Time) time.Time {
	weekday := t.Weekday()
	if weekday == time.Sunday {
		weekday = 7
	}
	return beginningOfDay(t.AddDate(0, 0, -int(weekday-1)))
}

// beginningOfMonth returns time at start of month (1st day 00:00:00)
func beginningOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
