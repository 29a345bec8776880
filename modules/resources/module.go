// Package resources manages the catalog of bookable resources: rooms,
// instructors, equipment. A resource is an indivisible unit identified by a
// globally unique name and a free-form type tag.
package resources

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/planwheel/planwheel/engine"
	"github.com/planwheel/planwheel/internal/domain"
)

const migration = `
CREATE TABLE IF NOT EXISTS resources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    created INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
    name TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL
) STRICT;

CREATE INDEX IF NOT EXISTS resources_type_idx ON resources (type);
`

type Resource struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type Module struct {
	db *sql.DB
}

func New(db *sql.DB) *Module {
	engine.MustMigrate(db, migration)
	return &Module{db: db}
}

func (m *Module) AttachRoutes(router *engine.Router) {
	router.HandleFunc("GET /api/resources", m.handleList)
	router.HandleFunc("POST /api/resources", router.WithAuthn(m.handleCreate))
	router.HandleFunc("PUT /api/resources/{id}", router.WithAuthn(m.handleUpdate))
	router.HandleFunc("DELETE /api/resources/{id}", router.WithAuthn(m.handleDelete))
}

func (m *Module) handleList(w http.ResponseWriter, r *http.Request) {
	page, perPage := engine.Pagination(r)

	where := "1=1"
	args := []any{}
	if q := r.URL.Query().Get("q"); q != "" {
		where = "(name LIKE ? OR type LIKE ?)"
		args = append(args, "%"+q+"%", "%"+q+"%")
	}

	var total int
	err := m.db.QueryRowContext(r.Context(), "SELECT COUNT(*) FROM resources WHERE "+where, args...).Scan(&total)
	if engine.HandleError(w, err) {
		return
	}

	rows, err := m.db.QueryContext(r.Context(),
		"SELECT id, name, type FROM resources WHERE "+where+" ORDER BY id LIMIT ? OFFSET ?",
		append(args, perPage, (page-1)*perPage)...)
	if engine.HandleError(w, err) {
		return
	}
	defer rows.Close()

	items := []Resource{}
	for rows.Next() {
		var res Resource
		if err := rows.Scan(&res.ID, &res.Name, &res.Type); engine.HandleError(w, err) {
			return
		}
		items = append(items, res)
	}

	engine.WriteJSON(w, http.StatusOK, engine.Page[Resource]{
		Items:       items,
		Total:       total,
		Pages:       engine.PageCount(total, perPage),
		CurrentPage: page,
		PerPage:     perPage,
	})
}

func (m *Module) handleCreate(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		domain.WriteError(w, domain.Malformed("Invalid request body"))
		return
	}
	if body.Name == "" || body.Type == "" {
		domain.WriteError(w, domain.Validation("Resource name and type are required"))
		return
	}

	if taken, err := m.nameTaken(r, body.Name, 0); engine.HandleError(w, err) {
		return
	} else if taken {
		domain.WriteError(w, domain.DuplicateName(body.Name))
		return
	}

	var res Resource
	err := m.db.QueryRowContext(r.Context(),
		"INSERT INTO resources (name, type) VALUES ($1, $2) RETURNING id, name, type",
		body.Name, body.Type).Scan(&res.ID, &res.Name, &res.Type)
	if engine.HandleError(w, err) {
		return
	}

	engine.WriteJSON(w, http.StatusCreated, res)
}

func (m *Module) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := engine.PathID(r)

	var res Resource
	err := m.db.QueryRowContext(r.Context(), "SELECT id, name, type FROM resources WHERE id = $1", id).
		Scan(&res.ID, &res.Name, &res.Type)
	if err == sql.ErrNoRows {
		domain.WriteError(w, domain.NotFound("Resource"))
		return
	}
	if engine.HandleError(w, err) {
		return
	}

	body := struct {
		Name *string `json:"name"`
		Type *string `json:"type"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		domain.WriteError(w, domain.Malformed("Invalid request body"))
		return
	}

	if body.Name != nil && *body.Name != res.Name {
		if taken, err := m.nameTaken(r, *body.Name, id); engine.HandleError(w, err) {
			return
		} else if taken {
			domain.WriteError(w, domain.DuplicateName(*body.Name))
			return
		}
		res.Name = *body.Name
	}
	if body.Type != nil {
		res.Type = *body.Type
	}

	_, err = m.db.ExecContext(r.Context(), "UPDATE resources SET name = $1, type = $2 WHERE id = $3", res.Name, res.Type, id)
	if engine.HandleError(w, err) {
		return
	}

	engine.WriteJSON(w, http.StatusOK, res)
}

// handleDelete removes the resource and cascades to its allocations in one
// transaction, so a concurrent conflict scan never sees a half-deleted parent.
func (m *Module) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := engine.PathID(r)

	tx, err := m.db.BeginTx(r.Context(), nil)
	if engine.HandleError(w, err) {
		return
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(r.Context(), "DELETE FROM allocations WHERE resource_id = $1", id); engine.HandleError(w, err) {
		return
	}

	result, err := tx.ExecContext(r.Context(), "DELETE FROM resources WHERE id = $1", id)
	if engine.HandleError(w, err) {
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		domain.WriteError(w, domain.NotFound("Resource"))
		return
	}

	if engine.HandleError(w, tx.Commit()) {
		return
	}
	engine.WriteJSON(w, http.StatusOK, map[string]string{"message": "Resource deleted successfully"})
}

func (m *Module) nameTaken(r *http.Request, name string, excludeID int64) (bool, error) {
	var id int64
	err := m.db.QueryRowContext(r.Context(), "SELECT id FROM resources WHERE name = $1 AND id != $2", name, excludeID).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}
