package metrics

import "time"

type aggregate struct {
	Name     string
	Query    string
	Interval time.Duration
}

var aggregates = []*aggregate{
	{
		Name:     "total-resources",
		Query:    "SELECT COUNT(*) FROM resources",
		Interval: 24 * time.Hour,
	},
	{
		Name:     "upcoming-events",
		Query:    "SELECT COUNT(*) FROM events WHERE start_time > unixepoch()",
		Interval: 24 * time.Hour,
	},
	{
		Name:     "weekly-bookings",
		Query:    "SELECT COUNT(*) FROM allocations WHERE created > unixepoch() - 604800",
		Interval: 24 * time.Hour,
	},
	{
		Name:     "weekly-booked-hours",
		Query: `SELECT COALESCE(SUM(e.end_time - e.start_time), 0) / 3600.0
			FROM allocations a JOIN events e ON e.id = a.event_id
			WHERE a.created > unixepoch() - 604800`,
		Interval: 24 * time.Hour,
	},
}
