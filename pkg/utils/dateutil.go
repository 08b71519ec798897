// Package utils provides small shared helpers: date normalization and
// inclusive date-range checks used across the cache and provider handlers.
package utils

import "time"

// dateLayouts are the input formats NormalizeDate understands, tried in order.
var dateLayouts = []string{
	"2006-01-02", // YYYY-MM-DD (canonical)
	"01/02/2006", // MM/DD/YYYY
	"02-01-2006", // DD-MM-YYYY
}

// NormalizeDate converts a date string to canonical YYYY-MM-DD form. Accepts
// YYYY-MM-DD, MM/DD/YYYY and DD-MM-YYYY. Unrecognized input is returned
// unchanged: callers prefer a best-effort value over a hard failure.
func NormalizeDate(s string) string {
	if len(s) == 10 && s[4] == '-' && s[7] == '-' {
		return s
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}

// InRange reports whether the YYYY-MM-DD key falls inside the inclusive
// [start, end] window. An empty start means unbounded below; an empty end
// means unbounded above. Lexicographic comparison is date comparison for
// canonical keys.
func InRange(key, start, end string) bool {
	if key == "" {
		return false
	}
	if start != "" && key < start {
		return false
	}
	if end != "" && key > end {
		return false
	}
	return true
}

// DaysBefore returns the YYYY-MM-DD date n days before the given canonical
// date. If the input does not parse it is returned unchanged.
func DaysBefore(date string, n int) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, -n).Format("2006-01-02")
}

// UnixStart returns the Unix timestamp for midnight UTC of a canonical date.
func UnixStart(date string) (int64, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}
