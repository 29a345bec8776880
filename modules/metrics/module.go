// Package metrics maintains low-resolution time series about the schedule,
// aggregated periodically from the primary tables. Series are kept for a year.
package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/planwheel/planwheel/engine"
)

const migration = `
CREATE TABLE IF NOT EXISTS metrics (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    series TEXT NOT NULL,
    timestamp REAL NOT NULL DEFAULT (unixepoch('subsec')),
    value REAL
) STRICT;

CREATE INDEX IF NOT EXISTS metrics_series_idx ON metrics (series, timestamp);
`

const retention = 365 * 24 * time.Hour

type Module struct {
	db *sql.DB
}

func New(db *sql.DB) *Module {
	engine.MustMigrate(db, migration)
	return &Module{db: db}
}

func (m *Module) AttachRoutes(router *engine.Router) {
	router.HandleFunc("GET /api/metrics/{series}", m.handleSeries)
}

func (m *Module) AttachWorkers(mgr *engine.ProcMgr) {
	mgr.Add(engine.Poll(time.Minute, m.visitAggregates))
	mgr.Add(engine.Poll(time.Hour, engine.Cleanup(m.db, "old metrics",
		"DELETE FROM metrics WHERE timestamp < unixepoch('subsec') - ?", retention.Seconds())))
}

func (m *Module) visitAggregates(ctx context.Context) bool {
	for _, agg := range aggregates {
		m.aggregate(ctx, agg)
	}
	return false
}

func (m *Module) aggregate(ctx context.Context, agg *aggregate) {
	var since *float64
	err := m.db.QueryRowContext(ctx, "SELECT unixepoch('subsec') - MAX(timestamp) FROM metrics WHERE series = $1", agg.Name).Scan(&since)
	if err != nil && err != sql.ErrNoRows {
		slog.Error("failed to check for metric", "metric", agg.Name, "error", err)
		return
	}
	if err == nil && since != nil && *since < agg.Interval.Seconds() {
		return
	}

	_, err = m.db.ExecContext(ctx, fmt.Sprintf("INSERT INTO metrics (series, value) VALUES ($1, (%s))", agg.Query), agg.Name)
	if err != nil {
		slog.Error("failed to insert metric", "metric", agg.Name, "error", err)
		return
	}
	slog.Info("aggregated metric", "metric", agg.Name)
}

type point struct {
	Timestamp float64  `json:"timestamp"`
	Value     *float64 `json:"value"`
}

func (m *Module) handleSeries(w http.ResponseWriter, r *http.Request) {
	rows, err := m.db.QueryContext(r.Context(),
		"SELECT timestamp, value FROM metrics WHERE series = $1 ORDER BY timestamp", r.PathValue("series"))
	if engine.HandleError(w, err) {
		return
	}
	defer rows.Close()

	points := []point{}
	for rows.Next() {
		var p point
		if err := rows.Scan(&p.Timestamp, &p.Value); engine.HandleError(w, err) {
			return
		}
		points = append(points, p)
	}
	engine.WriteJSON(w, http.StatusOK, points)
}
