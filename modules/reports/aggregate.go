package reports

import (
	"context"
	"time"

	"github.com/planwheel/planwheel/internal/domain"
	"github.com/planwheel/planwheel/internal/interval"
)

// ResourceUtilization is one row of the per-resource report: clipped booked
// hours and the number of qualifying allocations inside the window.
type ResourceUtilization struct {
	ResourceID   int64   `json:"resource_id"`
	ResourceName string  `json:"resource_name"`
	TotalHours   float64 `json:"total_hours"`
	Bookings     int     `json:"bookings"`
}

// TypeUsage is one row of the per-type report.
type TypeUsage struct {
	Type  string  `json:"type"`
	Hours float64 `json:"hours"`
}

// Window is a half-open reporting interval [Start, End).
type Window struct {
	Start, End time.Time
}

// AggregateByResource joins every (resource, event) pair through an
// allocation, keeps the pairs whose event overlaps the window, and
// accumulates the overlap duration (clipped to the window) per resource.
// Resources with no qualifying allocation are omitted. Hours are fractional
// at second resolution; no rounding happens here.
func (m *Module) AggregateByResource(ctx context.Context, window Window) ([]ResourceUtilization, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT r.id, r.name, e.start_time, e.end_time
		FROM resources r
		JOIN allocations a ON a.resource_id = r.id
		JOIN events e ON e.id = a.event_id
		WHERE e.start_time < $1 AND e.end_time > $2
		ORDER BY r.id`, window.End.Unix(), window.Start.Unix())
	if err != nil {
		return nil, domain.StoreUnavailable(err)
	}
	defer rows.Close()

	stats := []ResourceUtilization{}
	index := map[int64]int{}
	for rows.Next() {
		var id, startEpoch, endEpoch int64
		var name string
		if err := rows.Scan(&id, &name, &startEpoch, &endEpoch); err != nil {
			return nil, domain.StoreUnavailable(err)
		}

		i, ok := index[id]
		if !ok {
			i = len(stats)
			index[id] = i
			stats = append(stats, ResourceUtilization{ResourceID: id, ResourceName: name})
		}

		overlap := interval.OverlapDuration(
			time.Unix(startEpoch, 0).UTC(), time.Unix(endEpoch, 0).UTC(),
			window.Start, window.End)
		stats[i].TotalHours += interval.Hours(overlap)
		stats[i].Bookings++
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreUnavailable(err)
	}
	return stats, nil
}

// AggregateByType groups booked time by resource type. With a window, event
// durations are clipped to it; with a nil window every allocation counts with
// its raw event duration ("all time").
func (m *Module) AggregateByType(ctx context.Context, window *Window) ([]TypeUsage, error) {
	query := `
		SELECT r.type, e.start_time, e.end_time
		FROM resources r
		JOIN allocations a ON a.resource_id = r.id
		JOIN events e ON e.id = a.event_id`
	args := []any{}
	if window != nil {
		query += " WHERE e.start_time < $1 AND e.end_time > $2"
		args = append(args, window.End.Unix(), window.Start.Unix())
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.StoreUnavailable(err)
	}
	defer rows.Close()

	usage := []TypeUsage{}
	index := map[string]int{}
	for rows.Next() {
		var typ string
		var startEpoch, endEpoch int64
		if err := rows.Scan(&typ, &startEpoch, &endEpoch); err != nil {
			return nil, domain.StoreUnavailable(err)
		}

		start, end := time.Unix(startEpoch, 0).UTC(), time.Unix(endEpoch, 0).UTC()
		duration := end.Sub(start)
		if window != nil {
			duration = interval.OverlapDuration(start, end, window.Start, window.End)
		}

		i, ok := index[typ]
		if !ok {
			i = len(usage)
			index[typ] = i
			usage = append(usage, TypeUsage{Type: typ})
		}
		usage[i].Hours += interval.Hours(duration)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreUnavailable(err)
	}
	return usage, nil
}
