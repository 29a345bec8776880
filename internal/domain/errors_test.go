package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		err    *Error
		kind   Kind
		status int
	}{
		{NotFound("Event"), KindNotFound, 404},
		{Validation("Title is required"), KindValidationFailed, 400},
		{DuplicateName("Room A"), KindDuplicateName, 409},
		{DuplicateAllocation(), KindDuplicateAllocation, 409},
		{Conflict(&ConflictDetail{}), KindSchedulingConflict, 409},
		{Malformed("bad date"), KindMalformedInput, 400},
		{StoreUnavailable(errors.New("disk io")), KindStoreUnavailable, 503},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.err.Kind)
			assert.Equal(t, tt.status, tt.err.HTTPStatus())
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrorsIsMatchesKind(t *testing.T) {
	err := error(NotFound("Resource"))
	assert.True(t, errors.Is(err, NotFound("Event")))
	assert.False(t, errors.Is(err, DuplicateAllocation()))
}

func TestStoreUnavailableWraps(t *testing.T) {
	cause := errors.New("database is locked")
	err := StoreUnavailable(cause)
	assert.ErrorContains(t, err, "database is locked")
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestConflictDetailString(t *testing.T) {
	d := &ConflictDetail{
		ResourceName: "Room A",
		EventTitle:   "Yoga",
		Start:        time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC),
		End:          time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC),
	}
	s := d.String()
	assert.Contains(t, s, "Room A")
	assert.Contains(t, s, "Yoga")
	assert.Contains(t, s, "2025-03-10 10:00:00")
}
