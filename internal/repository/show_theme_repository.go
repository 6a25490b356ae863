package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/planetarium-reservation/internal/model"
)

// ShowThemeRepo persists show themes.
type ShowThemeRepo struct {
	db *sql.DB
}

// NewShowThemeRepo returns a ShowThemeRepo bound to db.
func NewShowThemeRepo(db *sql.DB) *ShowThemeRepo { return &ShowThemeRepo{db: db} }

// Create inserts t and sets its ID.  A name that already exists yields
// ErrDuplicate.
func (r *ShowThemeRepo) Create(ctx context.Context, t *model.ShowTheme) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO show_themes (name) VALUES (?)`, t.Name)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// GetByID returns the theme or ErrShowThemeNotFound.
func (r *ShowThemeRepo) GetByID(ctx context.Context, id uint64) (*model.ShowTheme, error) {
	var t model.ShowTheme
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM show_themes WHERE id = ?`, id).Scan(&t.ID, &t.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowThemeNotFound
		}
		return nil, err
	}
	return &t, nil
}

// List returns all themes ordered by name.  A non-empty name restricts the
// result to themes whose name contains it.
func (r *ShowThemeRepo) List(ctx context.Context, name string) ([]model.ShowTheme, error) {
	q := `SELECT id, name FROM show_themes`
	var args []any
	if name != "" {
		q += ` WHERE name LIKE ?`
		args = append(args, "%"+escapeLike(name)+"%")
	}
	q += ` ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ShowTheme{}
	for rows.Next() {
		var t model.ShowTheme
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Update renames an existing theme.
func (r *ShowThemeRepo) Update(ctx context.Context, t *model.ShowTheme) error {
	res, err := r.db.ExecContext(ctx, `UPDATE show_themes SET name = ? WHERE id = ?`, t.Name, t.ID)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return affectedOrNotFound(res, ErrShowThemeNotFound)
}

// Delete removes a theme; its show associations go with it.
func (r *ShowThemeRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM show_themes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res, ErrShowThemeNotFound)
}
