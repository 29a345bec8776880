// Package events manages time-bounded events. Every create and every partial
// update re-runs the full shape validation over the merged field values.
package events

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/planwheel/planwheel/engine"
	"github.com/planwheel/planwheel/internal/domain"
)

const migration = `
CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    created INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
    title TEXT NOT NULL,
    description TEXT NOT NULL,
    start_time INTEGER NOT NULL,
    end_time INTEGER NOT NULL
) STRICT;

CREATE INDEX IF NOT EXISTS events_start_time_idx ON events (start_time);
`

const stampFormat = "2006-01-02T15:04:05"

type Event struct {
	ID          int64
	Title       string
	Description string
	Start       time.Time
	End         time.Time
}

// MarshalJSON keeps the wire shape of the original API: naive ISO timestamps.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"id":          e.ID,
		"title":       e.Title,
		"description": e.Description,
		"start_time":  e.Start.Format(stampFormat),
		"end_time":    e.End.Format(stampFormat),
	})
}

type Module struct {
	db *sql.DB
}

func New(db *sql.DB) *Module {
	engine.MustMigrate(db, migration)
	return &Module{db: db}
}

func (m *Module) AttachRoutes(router *engine.Router) {
	router.HandleFunc("GET /api/events", m.handleList)
	router.HandleFunc("POST /api/events", router.WithAuthn(m.handleCreate))
	router.HandleFunc("PUT /api/events/{id}", router.WithAuthn(m.handleUpdate))
	router.HandleFunc("DELETE /api/events/{id}", router.WithAuthn(m.handleDelete))
}

func (m *Module) handleList(w http.ResponseWriter, r *http.Request) {
	page, perPage := engine.Pagination(r)
	query := r.URL.Query()

	where := "1=1"
	args := []any{}
	if q := query.Get("q"); q != "" {
		where += " AND (title LIKE ? OR description LIKE ?)"
		args = append(args, "%"+q+"%", "%"+q+"%")
	}
	if query.Get("upcoming") == "true" {
		where += " AND start_time >= ?"
		args = append(args, domain.NaiveNow().Unix())
	}

	order := "DESC"
	if query.Get("order") == "asc" {
		order = "ASC"
	}

	var total int
	err := m.db.QueryRowContext(r.Context(), "SELECT COUNT(*) FROM events WHERE "+where, args...).Scan(&total)
	if engine.HandleError(w, err) {
		return
	}

	rows, err := m.db.QueryContext(r.Context(),
		"SELECT id, title, description, start_time, end_time FROM events WHERE "+where+
			" ORDER BY start_time "+order+" LIMIT ? OFFSET ?",
		append(args, perPage, (page-1)*perPage)...)
	if engine.HandleError(w, err) {
		return
	}
	defer rows.Close()

	items := []Event{}
	for rows.Next() {
		evt, err := scanEvent(rows)
		if engine.HandleError(w, err) {
			return
		}
		items = append(items, *evt)
	}

	engine.WriteJSON(w, http.StatusOK, engine.Page[Event]{
		Items:       items,
		Total:       total,
		Pages:       engine.PageCount(total, perPage),
		CurrentPage: page,
		PerPage:     perPage,
	})
}

type eventPayload struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
}

func (m *Module) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body eventPayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		domain.WriteError(w, domain.Malformed("Invalid request body"))
		return
	}
	if body.StartTime == nil || body.EndTime == nil {
		domain.WriteError(w, domain.Malformed("start_time and end_time are required"))
		return
	}

	evt := &Event{}
	if err := applyPayload(evt, &body); err != nil {
		domain.WriteError(w, err)
		return
	}
	if err := validate(evt.Start, evt.End, evt.Title, evt.Description); err != nil {
		domain.WriteError(w, err)
		return
	}

	err := m.db.QueryRowContext(r.Context(),
		"INSERT INTO events (title, description, start_time, end_time) VALUES ($1, $2, $3, $4) RETURNING id",
		evt.Title, evt.Description, evt.Start.Unix(), evt.End.Unix()).Scan(&evt.ID)
	if engine.HandleError(w, err) {
		return
	}

	engine.WriteJSON(w, http.StatusCreated, evt)
}

// handleUpdate merges the supplied fields into the stored event and re-runs
// the full validation over the result, not just the changed fields.
func (m *Module) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := engine.PathID(r)

	evt, err := m.getEvent(r, id)
	if err == sql.ErrNoRows {
		domain.WriteError(w, domain.NotFound("Event"))
		return
	}
	if engine.HandleError(w, err) {
		return
	}

	var body eventPayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		domain.WriteError(w, domain.Malformed("Invalid request body"))
		return
	}
	if err := applyPayload(evt, &body); err != nil {
		domain.WriteError(w, err)
		return
	}
	if err := validate(evt.Start, evt.End, evt.Title, evt.Description); err != nil {
		domain.WriteError(w, err)
		return
	}

	_, err = m.db.ExecContext(r.Context(),
		"UPDATE events SET title = $1, description = $2, start_time = $3, end_time = $4 WHERE id = $5",
		evt.Title, evt.Description, evt.Start.Unix(), evt.End.Unix(), id)
	if engine.HandleError(w, err) {
		return
	}

	engine.WriteJSON(w, http.StatusOK, evt)
}

// handleDelete removes the event and cascades to its allocations in one
// transaction.
func (m *Module) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := engine.PathID(r)

	tx, err := m.db.BeginTx(r.Context(), nil)
	if engine.HandleError(w, err) {
		return
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(r.Context(), "DELETE FROM allocations WHERE event_id = $1", id); engine.HandleError(w, err) {
		return
	}

	result, err := tx.ExecContext(r.Context(), "DELETE FROM events WHERE id = $1", id)
	if engine.HandleError(w, err) {
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		domain.WriteError(w, domain.NotFound("Event"))
		return
	}

	if engine.HandleError(w, tx.Commit()) {
		return
	}
	engine.WriteJSON(w, http.StatusOK, map[string]string{"message": "Event deleted successfully"})
}

func (m *Module) getEvent(r *http.Request, id int64) (*Event, error) {
	row := m.db.QueryRowContext(r.Context(),
		"SELECT id, title, description, start_time, end_time FROM events WHERE id = $1", id)
	return scanEvent(row)
}

// applyPayload merges the optional payload fields into evt, parsing timestamps
// at the boundary.
func applyPayload(evt *Event, body *eventPayload) error {
	if body.StartTime != nil {
		start, err := domain.ParseStamp(*body.StartTime)
		if err != nil {
			return err
		}
		evt.Start = start
	}
	if body.EndTime != nil {
		end, err := domain.ParseStamp(*body.EndTime)
		if err != nil {
			return err
		}
		evt.End = end
	}
	if body.Title != nil {
		evt.Title = *body.Title
	}
	if body.Description != nil {
		evt.Description = *body.Description
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (*Event, error) {
	evt := &Event{}
	var start, end int64
	if err := row.Scan(&evt.ID, &evt.Title, &evt.Description, &start, &end); err != nil {
		return nil, err
	}
	evt.Start = time.Unix(start, 0).UTC()
	evt.End = time.Unix(end, 0).UTC()
	return evt, nil
}
