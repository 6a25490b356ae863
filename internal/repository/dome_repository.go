package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/planetarium-reservation/internal/model"
)

// DomeRepo persists planetarium domes.  The seat grid is stored as
// row_count x seats_in_row.
type DomeRepo struct {
	db *sql.DB
}

// NewDomeRepo returns a DomeRepo bound to db.
func NewDomeRepo(db *sql.DB) *DomeRepo { return &DomeRepo{db: db} }

const domeColumns = `id, name, row_count, seats_in_row`

func (r *DomeRepo) Create(ctx context.Context, d *model.PlanetariumDome) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO planetarium_domes (name, row_count, seats_in_row) VALUES (?, ?, ?)`,
		d.Name, d.Rows, d.SeatsInRow)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	return nil
}

// GetByID returns the dome or ErrDomeNotFound.
func (r *DomeRepo) GetByID(ctx context.Context, id uint64) (*model.PlanetariumDome, error) {
	var d model.PlanetariumDome
	err := r.db.QueryRowContext(ctx, `SELECT `+domeColumns+` FROM planetarium_domes WHERE id = ?`, id).
		Scan(&d.ID, &d.Name, &d.Rows, &d.SeatsInRow)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDomeNotFound
		}
		return nil, err
	}
	return &d, nil
}

// List returns domes ordered by id, optionally filtered by a name substring.
func (r *DomeRepo) List(ctx context.Context, name string) ([]model.PlanetariumDome, error) {
	q := `SELECT ` + domeColumns + ` FROM planetarium_domes`
	var args []any
	if name != "" {
		q += ` WHERE name LIKE ?`
		args = append(args, "%"+escapeLike(name)+"%")
	}
	q += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.PlanetariumDome{}
	for rows.Next() {
		var d model.PlanetariumDome
		if err := rows.Scan(&d.ID, &d.Name, &d.Rows, &d.SeatsInRow); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *DomeRepo) Update(ctx context.Context, d *model.PlanetariumDome) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE planetarium_domes SET name = ?, row_count = ?, seats_in_row = ? WHERE id = ?`,
		d.Name, d.Rows, d.SeatsInRow, d.ID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res, ErrDomeNotFound)
}

// Delete removes a dome together with its sessions and their tickets.
func (r *DomeRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM planetarium_domes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res, ErrDomeNotFound)
}
