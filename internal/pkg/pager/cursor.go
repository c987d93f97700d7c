package pager

import (
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultLimit is used when the requested page size is missing or invalid.
	DefaultLimit = 50
	MaxLimit     = 50

	maxCursorLength = 300
	maxIDLength     = 80
	separator       = "__"
	timeLayout      = "2006-01-02T15:04:05.000Z"
)

// Cursor points at the last row of a page in (created_at, id) order.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// Encode renders a cursor as "<UTC ISO-8601 millis>__<id>".
func Encode(ts time.Time, id string) string {
	return ts.UTC().Format(timeLayout) + separator + id
}

// Decode parses a cursor produced by Encode.
func Decode(s string) (Cursor, bool) {
	if s == "" || len(s) > maxCursorLength {
		return Cursor{}, false
	}
	rawTS, id, found := strings.Cut(s, separator)
	if !found || id == "" || len(id) > maxIDLength {
		return Cursor{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, rawTS)
	if err != nil {
		return Cursor{}, false
	}
	return Cursor{CreatedAt: ts.UTC(), ID: id}, true
}

// ClampLimit parses a page size and clamps it into [1, MaxLimit].
func ClampLimit(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return DefaultLimit
	}
	return clamp(n)
}

func clamp(n int) int {
	switch {
	case n < 1:
		return 1
	case n > MaxLimit:
		return MaxLimit
	}
	return n
}

// Range names accepted by RangeStart.
const (
	RangeToday = "today"
	Range7d    = "7d"
	Range30d   = "30d"
)

// RangeStart returns the lower time bound for a named range, or nil when the
// name is unknown or empty. "today" starts at local midnight in loc.
func RangeStart(name string, now time.Time, loc *time.Location) *time.Time {
	if loc == nil {
		loc = time.UTC
	}
	var start time.Time
	switch strings.ToLower(strings.TrimSpace(name)) {
	case RangeToday:
		local := now.In(loc)
		start = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	case Range7d:
		start = now.Add(-7 * 24 * time.Hour)
	case Range30d:
		start = now.Add(-30 * 24 * time.Hour)
	default:
		return nil
	}
	start = start.UTC()
	return &start
}
