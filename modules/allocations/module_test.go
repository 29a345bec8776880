package allocations

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/planwheel/planwheel/engine"
	"github.com/planwheel/planwheel/internal/domain"
	"github.com/planwheel/planwheel/modules/events"
	"github.com/planwheel/planwheel/modules/resources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModule(t *testing.T) (*Module, *sql.DB) {
	db := engine.OpenTestDB(t)
	resources.New(db)
	events.New(db)
	return New(db), db
}

func insertResource(t *testing.T, db *sql.DB, name, typ string) int64 {
	var id int64
	err := db.QueryRow("INSERT INTO resources (name, type) VALUES (?, ?) RETURNING id", name, typ).Scan(&id)
	require.NoError(t, err)
	return id
}

func insertEvent(t *testing.T, db *sql.DB, title string, start, end time.Time) int64 {
	var id int64
	err := db.QueryRow("INSERT INTO events (title, description, start_time, end_time) VALUES (?, 'test', ?, ?) RETURNING id",
		title, start.Unix(), end.Unix()).Scan(&id)
	require.NoError(t, err)
	return id
}

func at(hour, min int) time.Time {
	return time.Date(2025, time.March, 10, hour, min, 0, 0, time.UTC)
}

func TestAllocate(t *testing.T) {
	m, db := newTestModule(t)
	room := insertResource(t, db, "Room A", "room")
	evt := insertEvent(t, db, "Yoga", at(10, 0), at(11, 0))

	alloc, err := m.Allocate(t.Context(), evt, room)
	require.NoError(t, err)
	assert.NotZero(t, alloc.ID)
	assert.Equal(t, evt, alloc.EventID)
	assert.Equal(t, room, alloc.ResourceID)
}

func TestAllocateMissingParents(t *testing.T) {
	m, db := newTestModule(t)
	room := insertResource(t, db, "Room A", "room")
	evt := insertEvent(t, db, "Yoga", at(10, 0), at(11, 0))

	_, err := m.Allocate(t.Context(), 999, room)
	assert.True(t, errors.Is(err, domain.NotFound("")))

	_, err = m.Allocate(t.Context(), evt, 999)
	assert.True(t, errors.Is(err, domain.NotFound("")))
}

func TestAllocateDuplicate(t *testing.T) {
	m, db := newTestModule(t)
	room := insertResource(t, db, "Room A", "room")
	evt := insertEvent(t, db, "Yoga", at(10, 0), at(11, 0))

	_, err := m.Allocate(t.Context(), evt, room)
	require.NoError(t, err)

	_, err = m.Allocate(t.Context(), evt, room)
	var de *domain.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.KindDuplicateAllocation, de.Kind)

	// Exactly one allocation persisted
	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM allocations").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestAllocateConflict(t *testing.T) {
	m, db := newTestModule(t)
	room := insertResource(t, db, "Room A", "room")
	yoga := insertEvent(t, db, "Yoga", at(10, 0), at(11, 0))
	contained := insertEvent(t, db, "Standup", at(10, 30), at(10, 45))

	_, err := m.Allocate(t.Context(), yoga, room)
	require.NoError(t, err)

	_, err = m.Allocate(t.Context(), contained, room)
	var de *domain.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.KindSchedulingConflict, de.Kind)

	// The failure payload describes the conflicting event
	require.NotNil(t, de.Conflict)
	assert.Equal(t, "Room A", de.Conflict.ResourceName)
	assert.Equal(t, "Yoga", de.Conflict.EventTitle)
	assert.Equal(t, at(10, 0), de.Conflict.Start)
	assert.Equal(t, at(11, 0), de.Conflict.End)
}

func TestAllocateBackToBack(t *testing.T) {
	m, db := newTestModule(t)
	room := insertResource(t, db, "Room A", "room")
	first := insertEvent(t, db, "First", at(10, 0), at(11, 0))
	second := insertEvent(t, db, "Second", at(11, 0), at(12, 0))

	_, err := m.Allocate(t.Context(), first, room)
	require.NoError(t, err)

	_, err = m.Allocate(t.Context(), second, room)
	assert.NoError(t, err)
}

func TestAllocateOtherResourceUnaffected(t *testing.T) {
	m, db := newTestModule(t)
	roomA := insertResource(t, db, "Room A", "room")
	roomB := insertResource(t, db, "Room B", "room")
	yoga := insertEvent(t, db, "Yoga", at(10, 0), at(11, 0))
	pilates := insertEvent(t, db, "Pilates", at(10, 30), at(11, 30))

	_, err := m.Allocate(t.Context(), yoga, roomA)
	require.NoError(t, err)

	// Overlapping events on different resources are fine
	_, err = m.Allocate(t.Context(), pilates, roomB)
	assert.NoError(t, err)
}

func TestFindConflictExcludesOwnEvent(t *testing.T) {
	m, db := newTestModule(t)
	room := insertResource(t, db, "Room A", "room")
	yoga := insertEvent(t, db, "Yoga", at(10, 0), at(11, 0))

	_, err := m.Allocate(t.Context(), yoga, room)
	require.NoError(t, err)

	conflict, err := m.FindConflict(t.Context(), room, at(10, 0), at(11, 0), yoga)
	require.NoError(t, err)
	assert.Nil(t, conflict)

	conflict, err = m.FindConflict(t.Context(), room, at(10, 0), at(11, 0), 0)
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, "Yoga", conflict.EventTitle)
}

func TestDelete(t *testing.T) {
	m, db := newTestModule(t)
	room := insertResource(t, db, "Room A", "room")
	evt := insertEvent(t, db, "Yoga", at(10, 0), at(11, 0))

	alloc, err := m.Allocate(t.Context(), evt, room)
	require.NoError(t, err)

	require.NoError(t, m.Delete(t.Context(), alloc.ID))
	assert.True(t, errors.Is(m.Delete(t.Context(), alloc.ID), domain.NotFound("")))
}

func TestConcurrentAllocations(t *testing.T) {
	m, db := newTestModule(t)
	room := insertResource(t, db, "Room A", "room")
	first := insertEvent(t, db, "First", at(10, 0), at(11, 0))
	second := insertEvent(t, db, "Second", at(10, 30), at(11, 30))

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, evt := range []int64{first, second} {
		wg.Add(1)
		go func(evt int64) {
			defer wg.Done()
			_, err := m.Allocate(context.Background(), evt, room)
			results <- err
		}(evt)
	}
	wg.Wait()
	close(results)

	var successes, conflicts int
	for err := range results {
		if err == nil {
			successes++
		} else if errors.Is(err, domain.Conflict(nil)) {
			conflicts++
		}
	}
	assert.Equal(t, 1, successes, "exactly one concurrent allocation may win")
	assert.Equal(t, 1, conflicts)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM allocations WHERE resource_id = ?", room).Scan(&count))
	assert.Equal(t, 1, count)
}
