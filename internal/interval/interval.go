// Package interval implements half-open time interval arithmetic.
// An interval [start, end) includes its start instant and excludes its end,
// so back-to-back intervals do not overlap.
package interval

import "time"

// Overlaps returns true if two time ranges overlap.
// Two ranges [s1, e1) and [s2, e2) overlap if s1 < e2 AND s2 < e1.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// OverlapDuration returns the length of the intersection of two intervals.
// It is zero (never negative) when the intervals do not overlap.
func OverlapDuration(aStart, aEnd, bStart, bEnd time.Time) time.Duration {
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd.Before(end) {
		end = bEnd
	}
	if !start.Before(end) {
		return 0
	}
	return end.Sub(start)
}

// SameDay returns true if both instants fall on the same calendar date.
// The comparison is naive: whatever wall-clock reading the times carry.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Hours converts a duration to fractional hours at second resolution.
func Hours(d time.Duration) float64 {
	return d.Seconds() / 3600
}
