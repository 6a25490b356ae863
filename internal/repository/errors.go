// Package repository implements MySQL persistence for the planetarium
// catalogue, sessions and reservations.  Sentinel errors defined here let
// higher layers tell failure modes apart without inspecting driver errors.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is wrapped by every entity-specific not-found error.
var ErrNotFound = errors.New("not found")

var (
	ErrShowThemeNotFound     = fmt.Errorf("show theme %w", ErrNotFound)
	ErrDomeNotFound          = fmt.Errorf("planetarium dome %w", ErrNotFound)
	ErrAstronomyShowNotFound = fmt.Errorf("astronomy show %w", ErrNotFound)
	ErrShowSessionNotFound   = fmt.Errorf("show session %w", ErrNotFound)
	ErrReservationNotFound   = fmt.Errorf("reservation %w", ErrNotFound)
)

// ErrDuplicate is returned when a write violates a unique key other than
// the ticket seat key, e.g. a second theme with the same name.
var ErrDuplicate = errors.New("duplicate entry")

// ErrInvalidReference is returned when a write references a row that does
// not exist (foreign key violation).
var ErrInvalidReference = errors.New("referenced row does not exist")

// ErrSeatTaken is matched by SeatConflictError.
var ErrSeatTaken = errors.New("seat already taken")

// SeatConflictError identifies the seat that another ticket already holds.
type SeatConflictError struct {
	SessionID uint64
	Row       int
	Seat      int
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seat (row %d, seat %d) of show session %d already taken", e.Row, e.Seat, e.SessionID)
}

// Is reports ErrSeatTaken so callers can use errors.Is.
func (e *SeatConflictError) Is(target error) bool { return target == ErrSeatTaken }

// SessionMissingError names the show session a ticket referenced when the
// session no longer exists.  It wraps ErrShowSessionNotFound.
type SessionMissingError struct {
	SessionID uint64
}

func (e *SessionMissingError) Error() string {
	return fmt.Sprintf("show session %d: %v", e.SessionID, ErrShowSessionNotFound)
}

func (e *SessionMissingError) Unwrap() error { return ErrShowSessionNotFound }

const (
	mysqlErrLockWaitTimeout = 1205
	mysqlErrLockDeadlock    = 1213
	mysqlErrDupEntry        = 1062
	mysqlErrNoReferenced    = 1452
)

func mysqlCode(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func isDuplicate(err error) bool { return mysqlCode(err) == mysqlErrDupEntry }

func isMissingReference(err error) bool { return mysqlCode(err) == mysqlErrNoReferenced }

// isRetryable reports lock errors after which InnoDB has rolled the
// statement or the whole transaction back and a fresh attempt may succeed.
func isRetryable(err error) bool {
	switch mysqlCode(err) {
	case mysqlErrLockDeadlock, mysqlErrLockWaitTimeout:
		return true
	}
	return false
}
