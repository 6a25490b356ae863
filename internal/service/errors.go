// Package service holds the planetarium booking rules: seat validation,
// atomic reservations, availability and the catalogue write paths with
// their cache invalidation hooks.
package service

import (
	"errors"
	"fmt"
)

// ErrEmptyReservation is returned when a reservation names no tickets.
var ErrEmptyReservation = errors.New("reservation must contain at least one ticket")

// ErrInvalidInput wraps catalogue input problems such as an empty name or a
// non-positive dome dimension.
var ErrInvalidInput = errors.New("invalid input")

// OutOfBoundsError reports a row or seat outside the dome grid.  Limit
// names the dome attribute bounding Field ("rows" or "seats_in_row").
type OutOfBoundsError struct {
	Field string
	Value int
	Limit string
	Max   int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("%s number must be in available range: (1, %s): (1, %d)", e.Field, e.Limit, e.Max)
}

// SeatTakenError reports a seat already sold for the session, or requested
// twice in the same reservation.
type SeatTakenError struct {
	SessionID uint64
	Row       int
	Seat      int
}

func (e *SeatTakenError) Error() string {
	return fmt.Sprintf("seat (row %d, seat %d) is already taken for show session %d", e.Row, e.Seat, e.SessionID)
}

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Entity string
	ID     uint64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ValidationError ties a ticket-level failure to the position of the
// ticket in the request.
type ValidationError struct {
	Index int
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("tickets[%d]: %v", e.Index, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Field names the offending request field, if the cause carries one.
func (e *ValidationError) Field() string {
	var oob *OutOfBoundsError
	var nf *NotFoundError
	switch {
	case errors.As(e.Err, &oob):
		return oob.Field
	case errors.As(e.Err, &nf):
		return "show_session"
	case errors.As(e.Err, new(*SeatTakenError)):
		return "seat"
	}
	return ""
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidInput}, args...)...)
}
