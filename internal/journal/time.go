package journal

import (
	"strings"
	"time"
)

// Layouts used in journal files. Local time, no zone: the files are meant
// to be read and edited by the person at the keyboard.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"
	clockLayout     = "15:04"
)

// DateKey returns the calendar-day key for t.
func DateKey(t time.Time) string {
	return t.In(time.Local).Format(DateLayout)
}

// FormatTimestamp renders t as a journal timestamp.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(time.Local).Format(TimestampLayout)
}

// ParseTimestamp parses a journal timestamp in local time. A bare HH:MM
// (older journals) is resolved against date when date is set.
func ParseTimestamp(raw, date string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.ParseInLocation(TimestampLayout, raw, time.Local); err == nil {
		return t, true
	}
	if date != "" {
		if t, err := time.ParseInLocation(DateLayout+" "+clockLayout, date+" "+raw, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
