package interval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(hour, min int) time.Time {
	return time.Date(2025, time.March, 10, hour, min, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd time.Time
		expected                   bool
	}{
		{"identical", at(10, 0), at(11, 0), at(10, 0), at(11, 0), true},
		{"contained", at(10, 0), at(11, 0), at(10, 15), at(10, 45), true},
		{"partial overlap", at(10, 0), at(11, 0), at(10, 30), at(11, 30), true},
		{"back to back", at(10, 0), at(11, 0), at(11, 0), at(12, 0), false},
		{"disjoint", at(10, 0), at(11, 0), at(12, 0), at(13, 0), false},
		{"one minute overlap", at(10, 0), at(11, 0), at(10, 59), at(12, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd)
			assert.Equal(t, tt.expected, got)

			// Symmetry holds for every pair
			assert.Equal(t, got, Overlaps(tt.bStart, tt.bEnd, tt.aStart, tt.aEnd))

			// Positive overlap duration iff the intervals overlap
			assert.Equal(t, got, OverlapDuration(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd) > 0)
		})
	}
}

func TestOverlapsSelf(t *testing.T) {
	assert.True(t, Overlaps(at(10, 0), at(11, 0), at(10, 0), at(11, 0)))
}

func TestOverlapDuration(t *testing.T) {
	// Clipped to the shared region
	assert.Equal(t, 30*time.Minute, OverlapDuration(at(10, 0), at(11, 0), at(10, 30), at(12, 0)))
	assert.Equal(t, time.Hour, OverlapDuration(at(9, 0), at(12, 0), at(10, 0), at(11, 0)))

	// Never negative
	assert.Equal(t, time.Duration(0), OverlapDuration(at(10, 0), at(11, 0), at(12, 0), at(13, 0)))
	assert.Equal(t, time.Duration(0), OverlapDuration(at(10, 0), at(11, 0), at(11, 0), at(12, 0)))
}

func TestSameDay(t *testing.T) {
	assert.True(t, SameDay(at(0, 0), at(23, 59)))
	assert.False(t, SameDay(at(23, 50), at(23, 50).Add(20*time.Minute)))
}

func TestHours(t *testing.T) {
	assert.Equal(t, 1.5, Hours(90*time.Minute))
	assert.Equal(t, 0.5, Hours(1800*time.Second))
}
