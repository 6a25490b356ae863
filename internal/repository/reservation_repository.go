package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/planetarium-reservation/internal/model"
)

// ReservationRepo persists reservations and the tickets they own.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a ReservationRepo bound to db.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// createAttempts bounds how often Create reruns a transaction that lost a
// lock to a deadlock or a lock wait timeout.
const createAttempts = 3

// Create stores res and all of its tickets in a single transaction and
// fills in the generated IDs.  Either every row is committed or none is.
//
// Race safety comes from the uq_ticket_seat unique key, not from the
// pre-check: two transactions may both pass the pre-check, but only one of
// them can insert a given (session, row, seat).  The loser's insert fails
// with a duplicate-key error, which is reported as *SeatConflictError
// naming the seat.  A session deleted concurrently yields
// *SessionMissingError.
//
// Tickets are inserted in (session, row, seat) order so that overlapping
// reservations acquire index locks in the same order.  A transaction that
// still loses a deadlock is rerun; on the rerun the pre-check or the unique
// key reports the seat the winner took.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC()
	}
	order := insertOrder(res.Tickets)
	var err error
	for attempt := 1; attempt <= createAttempts; attempt++ {
		err = withTx(ctx, r.db, func(tx *sql.Tx) error {
			return r.create(ctx, tx, res, order)
		})
		if err == nil || !isRetryable(err) || ctx.Err() != nil {
			break
		}
	}
	if err != nil {
		res.ID = 0
	}
	return err
}

func (r *ReservationRepo) create(ctx context.Context, tx *sql.Tx, res *model.Reservation, order []int) error {
	if conflict, err := firstTaken(ctx, tx, res.Tickets); err != nil {
		return fmt.Errorf("check taken seats: %w", err)
	} else if conflict != nil {
		return conflict
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (user_id, created_at) VALUES (?, ?)`, res.UserID, res.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tickets (row_num, seat_num, show_session_id, reservation_id) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare ticket insert: %w", err)
	}
	defer stmt.Close()

	for _, i := range order {
		t := &res.Tickets[i]
		t.ReservationID = res.ID
		result, err := stmt.ExecContext(ctx, t.Row, t.Seat, t.ShowSessionID, t.ReservationID)
		if err != nil {
			switch {
			case isDuplicate(err):
				return &SeatConflictError{SessionID: t.ShowSessionID, Row: t.Row, Seat: t.Seat}
			case isMissingReference(err):
				return &SessionMissingError{SessionID: t.ShowSessionID}
			}
			return fmt.Errorf("insert ticket %d: %w", i, err)
		}
		tid, err := result.LastInsertId()
		if err != nil {
			return err
		}
		t.ID = uint64(tid)
	}
	return nil
}

// insertOrder returns indexes into tickets sorted by (session, row, seat).
// tickets itself keeps request order.
func insertOrder(tickets []model.Ticket) []int {
	order := make([]int, len(tickets))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		x, y := tickets[order[a]], tickets[order[b]]
		if x.ShowSessionID != y.ShowSessionID {
			return x.ShowSessionID < y.ShowSessionID
		}
		if x.Row != y.Row {
			return x.Row < y.Row
		}
		return x.Seat < y.Seat
	})
	return order
}

// firstTaken returns a conflict for the first requested ticket, in request
// order, whose seat is already sold.
func firstTaken(ctx context.Context, q querier, tickets []model.Ticket) (*SeatConflictError, error) {
	if len(tickets) == 0 {
		return nil, nil
	}
	tuples := make([]string, len(tickets))
	args := make([]any, 0, len(tickets)*3)
	for i, t := range tickets {
		tuples[i] = "(?, ?, ?)"
		args = append(args, t.ShowSessionID, t.Row, t.Seat)
	}
	rows, err := q.QueryContext(ctx,
		`SELECT show_session_id, row_num, seat_num FROM tickets
		  WHERE (show_session_id, row_num, seat_num) IN (`+strings.Join(tuples, ", ")+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	taken := make(map[SeatConflictError]struct{})
	for rows.Next() {
		var c SeatConflictError
		if err := rows.Scan(&c.SessionID, &c.Row, &c.Seat); err != nil {
			return nil, err
		}
		taken[c] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, t := range tickets {
		c := SeatConflictError{SessionID: t.ShowSessionID, Row: t.Row, Seat: t.Seat}
		if _, ok := taken[c]; ok {
			return &c, nil
		}
	}
	return nil, nil
}

// ListByUser returns the user's reservations, newest first, each with its
// tickets in the order they were requested.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, created_at FROM reservations WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Reservation{}
	index := map[uint64]int{}
	for rows.Next() {
		var res model.Reservation
		if err := rows.Scan(&res.ID, &res.UserID, &res.CreatedAt); err != nil {
			return nil, err
		}
		res.CreatedAt = res.CreatedAt.UTC()
		res.Tickets = []model.Ticket{}
		index[res.ID] = len(out)
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	args := make([]any, len(out))
	for i, res := range out {
		args[i] = res.ID
	}
	trows, err := r.db.QueryContext(ctx,
		`SELECT id, row_num, seat_num, show_session_id, reservation_id FROM tickets
		  WHERE reservation_id IN (`+placeholders(len(args))+`) ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer trows.Close()
	for trows.Next() {
		var t model.Ticket
		if err := trows.Scan(&t.ID, &t.Row, &t.Seat, &t.ShowSessionID, &t.ReservationID); err != nil {
			return nil, err
		}
		if i, ok := index[t.ReservationID]; ok {
			out[i].Tickets = append(out[i].Tickets, t)
		}
	}
	return out, trows.Err()
}

// DeleteForUser cancels a reservation owned by userID; its tickets are
// removed by cascade, freeing their seats.  A reservation that does not
// exist or belongs to someone else yields ErrReservationNotFound.
func (r *ReservationRepo) DeleteForUser(ctx context.Context, id, userID uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res, ErrReservationNotFound)
}
