package storage

import (
	"database/sql"
	"log/slog"
	"time"
)

// TimeLayout is the text format timestamps are stored in.
const TimeLayout = "2006-01-02T15:04:05.999999999Z07:00"

// DateLayout is the text format calendar dates are stored in.
const DateLayout = "2006-01-02"

// NullableString maps "" to SQL NULL.
func NullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// NullableTime maps the zero time to SQL NULL.
func NullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(TimeLayout)
}

// FormatTime formats a non-null timestamp column.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// BoolToInt maps a bool to SQLite's 0/1.
func BoolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ParseTime parses a stored timestamp, logging a warning on failure.
func ParseTime(raw, table, field, id string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(TimeLayout, raw)
	if err != nil {
		slog.Warn("storage: failed to parse time", "table", table, "field", field, "id", id, "raw", raw, "error", err)
	}
	return t
}

// ParseNullableTime parses a nullable timestamp column.
func ParseNullableTime(ns sql.NullString, table, field, id string) time.Time {
	if !ns.Valid {
		return time.Time{}
	}
	return ParseTime(ns.String, table, field, id)
}

// ParseDate parses a stored calendar date as UTC midnight.
func ParseDate(raw, table, field, id string) time.Time {
	t, err := time.ParseInLocation(DateLayout, raw, time.UTC)
	if err != nil {
		slog.Warn("storage: failed to parse date", "table", table, "field", field, "id", id, "raw", raw, "error", err)
	}
	return t
}

// Paginate appends LIMIT/OFFSET clauses when set.
func Paginate(query string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
		if offset > 0 {
			query += ` OFFSET ?`
			args = append(args, offset)
		}
	}
	return query, args
}
