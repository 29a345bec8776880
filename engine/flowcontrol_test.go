package engine

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestCleanup(t *testing.T) {
	db := OpenTestDB(t)
	MustMigrate(db, "CREATE TABLE junk (id INTEGER PRIMARY KEY, created INTEGER NOT NULL)")

	_, err := db.Exec("INSERT INTO junk (created) VALUES (1), (2), (3)")
	require.NoError(t, err)

	fn := Cleanup(db, "junk", "DELETE FROM junk WHERE created < ?", 3)
	assert.False(t, fn(t.Context()))

	var remaining int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM junk").Scan(&remaining))
	assert.Equal(t, 1, remaining)

	// Running again is a no-op
	assert.False(t, fn(t.Context()))
}

func TestCleanupQueryError(t *testing.T) {
	db := OpenTestDB(t)
	fn := Cleanup(db, "junk", "DELETE FROM no_such_table")
	assert.False(t, fn(t.Context()))
}

func TestThrottle(t *testing.T) {
	handler := Throttle(rate.NewLimiter(rate.Every(time.Hour), 2), func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	})

	for i, expected := range []int{200, 200, 429} {
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, expected, w.Code, "request %d", i)
	}
}
