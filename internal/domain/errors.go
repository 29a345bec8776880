// Package domain holds the scheduling domain's error taxonomy and the
// boundary types shared between modules. Every failure a handler can see maps
// to exactly one Kind so callers can render a specific message.
package domain

import (
	"fmt"
	"net/http"
	"time"
)

type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindValidationFailed    Kind = "validation_failed"
	KindDuplicateName       Kind = "duplicate_name"
	KindDuplicateAllocation Kind = "duplicate_allocation"
	KindSchedulingConflict  Kind = "scheduling_conflict"
	KindMalformedInput      Kind = "malformed_input"
	KindStoreUnavailable    Kind = "store_unavailable"
)

// ConflictDetail describes the existing booking that blocks a new allocation.
type ConflictDetail struct {
	ResourceName string    `json:"resource_name"`
	EventID      int64     `json:"event_id"`
	EventTitle   string    `json:"event_title"`
	Start        time.Time `json:"start_time"`
	End          time.Time `json:"end_time"`
}

func (c *ConflictDetail) String() string {
	return fmt.Sprintf("Resource '%s' is already booked for '%s' from %s to %s",
		c.ResourceName, c.EventTitle, c.Start.Format(time.DateTime), c.End.Format(time.DateTime))
}

type Error struct {
	Kind     Kind
	Message  string
	Conflict *ConflictDetail
	cause    error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Is makes errors.Is match any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// HTTPStatus maps the error kind to the status code the API surfaces.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidationFailed, KindMalformedInput:
		return http.StatusBadRequest
	case KindDuplicateName, KindDuplicateAllocation, KindSchedulingConflict:
		return http.StatusConflict
	case KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func Validation(reason string) *Error {
	return &Error{Kind: KindValidationFailed, Message: reason}
}

func DuplicateName(name string) *Error {
	return &Error{Kind: KindDuplicateName, Message: fmt.Sprintf("Resource with name %q already exists", name)}
}

func DuplicateAllocation() *Error {
	return &Error{Kind: KindDuplicateAllocation, Message: "Resource already allocated to this event"}
}

func Conflict(detail *ConflictDetail) *Error {
	return &Error{Kind: KindSchedulingConflict, Message: "Resource conflict detected", Conflict: detail}
}

func Malformed(reason string) *Error {
	return &Error{Kind: KindMalformedInput, Message: reason}
}

func StoreUnavailable(err error) *Error {
	return &Error{Kind: KindStoreUnavailable, Message: "storage failure", cause: err}
}
