package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/planetarium-reservation/internal/model"
)

// ShowSessionRepo persists show sessions.  Reads join the show and dome and
// compute the number of sold tickets with a COUNT over tickets, so
// availability always reflects the ticket set visible to the query.
type ShowSessionRepo struct {
	db *sql.DB
}

// NewShowSessionRepo returns a ShowSessionRepo bound to db.
func NewShowSessionRepo(db *sql.DB) *ShowSessionRepo { return &ShowSessionRepo{db: db} }

// SessionFilter narrows List.  Date keeps sessions whose show_time falls on
// that UTC calendar day; ShowID keeps sessions of one show.
type SessionFilter struct {
	Date   *time.Time
	ShowID uint64
}

const sessionSelect = `SELECT s.id, s.astronomy_show_id, s.planetarium_dome_id, s.show_time,
       a.title, a.description, a.image,
       d.name, d.row_count, d.seats_in_row,
       (SELECT COUNT(*) FROM tickets t WHERE t.show_session_id = s.id) AS sold
  FROM show_sessions s
  JOIN astronomy_shows a ON a.id = s.astronomy_show_id
  JOIN planetarium_domes d ON d.id = s.planetarium_dome_id`

func scanSession(sc interface{ Scan(...any) error }) (model.ShowSession, error) {
	var s model.ShowSession
	var image sql.NullString
	err := sc.Scan(&s.ID, &s.AstronomyShowID, &s.DomeID, &s.ShowTime,
		&s.Show.Title, &s.Show.Description, &image,
		&s.Dome.Name, &s.Dome.Rows, &s.Dome.SeatsInRow,
		&s.SoldTickets)
	if err != nil {
		return s, err
	}
	s.ShowTime = s.ShowTime.UTC()
	s.Show.ID = s.AstronomyShowID
	s.Show.Image = nullString(image)
	s.Dome.ID = s.DomeID
	return s, nil
}

// Create inserts a session.  Unknown show or dome IDs yield
// ErrInvalidReference.
func (r *ShowSessionRepo) Create(ctx context.Context, s *model.ShowSession) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO show_sessions (astronomy_show_id, planetarium_dome_id, show_time) VALUES (?, ?, ?)`,
		s.AstronomyShowID, s.DomeID, s.ShowTime.UTC())
	if err != nil {
		if isMissingReference(err) {
			return ErrInvalidReference
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByID returns the session with its show (including themes), dome and
// sold-ticket count, or ErrShowSessionNotFound.
func (r *ShowSessionRepo) GetByID(ctx context.Context, id uint64) (*model.ShowSession, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, sessionSelect+` WHERE s.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowSessionNotFound
		}
		return nil, err
	}
	themes, err := loadThemes(ctx, r.db, []uint64{s.AstronomyShowID})
	if err != nil {
		return nil, err
	}
	s.Show.Themes = themes[s.AstronomyShowID]
	return &s, nil
}

// List returns sessions ordered by show time.
func (r *ShowSessionRepo) List(ctx context.Context, f SessionFilter) ([]model.ShowSession, error) {
	q := sessionSelect + ` WHERE 1 = 1`
	var args []any
	if f.Date != nil {
		day := time.Date(f.Date.Year(), f.Date.Month(), f.Date.Day(), 0, 0, 0, 0, time.UTC)
		q += ` AND s.show_time >= ? AND s.show_time < ?`
		args = append(args, day, day.AddDate(0, 0, 1))
	}
	if f.ShowID != 0 {
		q += ` AND s.astronomy_show_id = ?`
		args = append(args, f.ShowID)
	}
	q += ` ORDER BY s.show_time, s.id`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ShowSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// TakenPlaces lists the occupied seats of a session ordered by row, seat.
func (r *ShowSessionRepo) TakenPlaces(ctx context.Context, sessionID uint64) ([]model.Seat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT row_num, seat_num FROM tickets WHERE show_session_id = ? ORDER BY row_num, seat_num`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Seat{}
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.Row, &s.Seat); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *ShowSessionRepo) Update(ctx context.Context, s *model.ShowSession) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE show_sessions SET astronomy_show_id = ?, planetarium_dome_id = ?, show_time = ? WHERE id = ?`,
		s.AstronomyShowID, s.DomeID, s.ShowTime.UTC(), s.ID)
	if err != nil {
		if isMissingReference(err) {
			return ErrInvalidReference
		}
		return err
	}
	return affectedOrNotFound(res, ErrShowSessionNotFound)
}

// Delete removes a session and every ticket sold for it.
func (r *ShowSessionRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM show_sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res, ErrShowSessionNotFound)
}
