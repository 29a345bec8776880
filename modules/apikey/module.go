// Package apikey guards mutating API routes with bearer tokens. A first token
// is generated and logged on startup so operators can bootstrap clients.
package apikey

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/planwheel/planwheel/engine"
)

const migration = `
CREATE TABLE IF NOT EXISTS api_tokens (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    created INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
    label TEXT NOT NULL,
    token TEXT NOT NULL UNIQUE
) STRICT;
`

type Module struct {
	db *sql.DB
}

func New(db *sql.DB) (*Module, error) {
	engine.MustMigrate(db, migration)

	var id int
	if err := db.QueryRow("SELECT id FROM api_tokens").Scan(&id); err == sql.ErrNoRows {
		token := uuid.Must(uuid.NewRandom()).String()
		_, err = db.Exec("INSERT INTO api_tokens (label, token) VALUES ('Automatically generated', ?)", token)
		if err != nil {
			return nil, err
		}
		slog.Info("generated initial API token", "token", token)
	} else if err != nil {
		return nil, err
	}

	return &Module{db: db}, nil
}

func (m *Module) Authenticator() engine.Authenticator { return m }

func (m *Module) WithAuthn(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var id int
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		err := m.db.QueryRowContext(r.Context(), "SELECT id FROM api_tokens WHERE token = $1", token).Scan(&id)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
