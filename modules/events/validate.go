package events

import (
	"strings"
	"time"

	"github.com/planwheel/planwheel/internal/domain"
	"github.com/planwheel/planwheel/internal/interval"
)

const minDuration = 30 * time.Minute

// validate enforces the event-shape invariants on fully merged field values.
// Checks run in a fixed order and fail fast with the first violated rule.
func validate(start, end time.Time, title, description string) error {
	if !start.Before(end) {
		return domain.Validation("Start time must be before end time")
	}
	if end.Sub(start) < minDuration {
		return domain.Validation("Event must be at least 30 minutes long")
	}
	if !interval.SameDay(start, end) {
		return domain.Validation("Event must start and end on the same day")
	}
	if title == "" {
		return domain.Validation("Title is required")
	}
	if strings.TrimSpace(description) == "" {
		return domain.Validation("Description is mandatory")
	}
	return nil
}
