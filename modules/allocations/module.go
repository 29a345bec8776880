// Package allocations binds events to resources. It owns the double-booking
// rules: an allocation is created only after the duplicate and overlap checks
// pass, and the whole check-then-insert sequence runs in one transaction so
// concurrent requests for the same resource serialize.
package allocations

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/planwheel/planwheel/engine"
	"github.com/planwheel/planwheel/internal/domain"
	"github.com/planwheel/planwheel/internal/interval"
)

const migration = `
CREATE TABLE IF NOT EXISTS allocations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    created INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
    event_id INTEGER NOT NULL,
    resource_id INTEGER NOT NULL,
    UNIQUE (event_id, resource_id)
) STRICT;

CREATE INDEX IF NOT EXISTS allocations_resource_id_idx ON allocations (resource_id);
CREATE INDEX IF NOT EXISTS allocations_event_id_idx ON allocations (event_id);
`

type Allocation struct {
	ID         int64 `json:"id"`
	EventID    int64 `json:"event_id"`
	ResourceID int64 `json:"resource_id"`
}

type Module struct {
	db *sql.DB
}

func New(db *sql.DB) *Module {
	engine.MustMigrate(db, migration)
	return &Module{db: db}
}

func (m *Module) AttachRoutes(router *engine.Router) {
	router.HandleFunc("GET /api/allocations", m.handleList)
	router.HandleFunc("POST /api/allocations", router.WithAuthn(m.handleCreate))
	router.HandleFunc("DELETE /api/allocations/{id}", router.WithAuthn(m.handleDelete))
}

// querier is satisfied by both *sql.DB and *sql.Tx, so the conflict scan can
// run standalone or inside the allocation transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// FindConflict scans every allocation bound to the resource and returns the
// first one whose event interval overlaps the candidate interval, or nil.
// Allocations whose event id equals excludeEventID are skipped.
func (m *Module) FindConflict(ctx context.Context, resourceID int64, start, end time.Time, excludeEventID int64) (*domain.ConflictDetail, error) {
	return findConflict(ctx, m.db, resourceID, start, end, excludeEventID)
}

func findConflict(ctx context.Context, q querier, resourceID int64, start, end time.Time, excludeEventID int64) (*domain.ConflictDetail, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT e.id, e.title, e.start_time, e.end_time
		FROM allocations a
		JOIN events e ON e.id = a.event_id
		WHERE a.resource_id = $1`, resourceID)
	if err != nil {
		return nil, domain.StoreUnavailable(err)
	}
	defer rows.Close()

	for rows.Next() {
		var eventID, startEpoch, endEpoch int64
		var title string
		if err := rows.Scan(&eventID, &title, &startEpoch, &endEpoch); err != nil {
			return nil, domain.StoreUnavailable(err)
		}
		if eventID == excludeEventID {
			continue
		}
		otherStart, otherEnd := time.Unix(startEpoch, 0).UTC(), time.Unix(endEpoch, 0).UTC()
		if interval.Overlaps(start, end, otherStart, otherEnd) {
			return &domain.ConflictDetail{
				EventID:    eventID,
				EventTitle: title,
				Start:      otherStart,
				End:        otherEnd,
			}, nil
		}
	}
	return nil, rows.Err()
}

// Allocate binds the event to the resource. The exists, duplicate, and
// conflict checks plus the insert run in a single transaction; the UNIQUE
// constraint backstops the duplicate check against races.
func (m *Module) Allocate(ctx context.Context, eventID, resourceID int64) (*Allocation, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.StoreUnavailable(err)
	}
	defer tx.Rollback()

	var startEpoch, endEpoch int64
	err = tx.QueryRowContext(ctx, "SELECT start_time, end_time FROM events WHERE id = $1", eventID).
		Scan(&startEpoch, &endEpoch)
	if err == sql.ErrNoRows {
		return nil, domain.NotFound("Event")
	}
	if err != nil {
		return nil, domain.StoreUnavailable(err)
	}

	var resourceName string
	err = tx.QueryRowContext(ctx, "SELECT name FROM resources WHERE id = $1", resourceID).Scan(&resourceName)
	if err == sql.ErrNoRows {
		return nil, domain.NotFound("Resource")
	}
	if err != nil {
		return nil, domain.StoreUnavailable(err)
	}

	var existing int64
	err = tx.QueryRowContext(ctx, "SELECT id FROM allocations WHERE event_id = $1 AND resource_id = $2",
		eventID, resourceID).Scan(&existing)
	if err == nil {
		return nil, domain.DuplicateAllocation()
	}
	if err != sql.ErrNoRows {
		return nil, domain.StoreUnavailable(err)
	}

	start, end := time.Unix(startEpoch, 0).UTC(), time.Unix(endEpoch, 0).UTC()
	conflict, err := findConflict(ctx, tx, resourceID, start, end, eventID)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		conflict.ResourceName = resourceName
		return nil, domain.Conflict(conflict)
	}

	alloc := &Allocation{EventID: eventID, ResourceID: resourceID}
	err = tx.QueryRowContext(ctx, "INSERT INTO allocations (event_id, resource_id) VALUES ($1, $2) RETURNING id",
		eventID, resourceID).Scan(&alloc.ID)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, domain.DuplicateAllocation()
		}
		return nil, domain.StoreUnavailable(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, domain.StoreUnavailable(err)
	}

	slog.Info("allocated resource", "allocation", alloc.ID, "event", eventID, "resource", resourceID)
	return alloc, nil
}

// Delete removes a single allocation by its id.
func (m *Module) Delete(ctx context.Context, id int64) error {
	result, err := m.db.ExecContext(ctx, "DELETE FROM allocations WHERE id = $1", id)
	if err != nil {
		return domain.StoreUnavailable(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.NotFound("Allocation")
	}
	return nil
}

func (m *Module) handleCreate(w http.ResponseWriter, r *http.Request) {
	body := struct {
		EventID    *int64 `json:"event_id"`
		ResourceID *int64 `json:"resource_id"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.EventID == nil || body.ResourceID == nil {
		domain.WriteError(w, domain.Malformed("event_id and resource_id are required"))
		return
	}

	alloc, err := m.Allocate(r.Context(), *body.EventID, *body.ResourceID)
	if err != nil {
		domain.WriteError(w, err)
		return
	}
	engine.WriteJSON(w, http.StatusCreated, alloc)
}

func (m *Module) handleList(w http.ResponseWriter, r *http.Request) {
	where := "1=1"
	args := []any{}
	if v := r.URL.Query().Get("event_id"); v != "" {
		where += " AND event_id = ?"
		args = append(args, v)
	}
	if v := r.URL.Query().Get("resource_id"); v != "" {
		where += " AND resource_id = ?"
		args = append(args, v)
	}

	rows, err := m.db.QueryContext(r.Context(),
		"SELECT id, event_id, resource_id FROM allocations WHERE "+where+" ORDER BY id", args...)
	if engine.HandleError(w, err) {
		return
	}
	defer rows.Close()

	items := []Allocation{}
	for rows.Next() {
		var a Allocation
		if err := rows.Scan(&a.ID, &a.EventID, &a.ResourceID); engine.HandleError(w, err) {
			return
		}
		items = append(items, a)
	}
	engine.WriteJSON(w, http.StatusOK, items)
}

func (m *Module) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := m.Delete(r.Context(), engine.PathID(r)); err != nil {
		domain.WriteError(w, err)
		return
	}
	engine.WriteJSON(w, http.StatusOK, map[string]string{"message": "Allocation deleted successfully"})
}
