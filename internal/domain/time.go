package domain

import (
	"strings"
	"time"
)

// stampLayouts are the accepted ISO-8601 shapes, tried in order.
var stampLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// NaiveNow returns the current local wall-clock reading as a naive instant,
// comparable with parsed and stored timestamps.
func NaiveNow() time.Time {
	n := time.Now()
	return time.Date(n.Year(), n.Month(), n.Day(), n.Hour(), n.Minute(), n.Second(), 0, time.UTC)
}

// ParseStamp parses an ISO-8601 timestamp from a request. A trailing literal
// "Z" is normalized to a zero offset before parsing. The result is naive: any
// offset is discarded (not converted) and the wall-clock reading is kept, so
// all stored instants compare directly.
func ParseStamp(s string) (time.Time, error) {
	str := strings.TrimSpace(s)
	if strings.HasSuffix(str, "Z") {
		str = strings.TrimSuffix(str, "Z") + "+00:00"
	}
	for _, layout := range stampLayouts {
		t, err := time.Parse(layout, str)
		if err != nil {
			continue
		}
		y, mo, d := t.Date()
		h, mi, sec := t.Clock()
		return time.Date(y, mo, d, h, mi, sec, t.Nanosecond(), time.UTC), nil
	}
	return time.Time{}, Malformed("Invalid date format. Use ISO 8601")
}
