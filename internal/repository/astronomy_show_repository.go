package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/planetarium-reservation/internal/model"
)

// AstronomyShowRepo persists shows and their theme associations.
type AstronomyShowRepo struct {
	db *sql.DB
}

// NewAstronomyShowRepo returns an AstronomyShowRepo bound to db.
func NewAstronomyShowRepo(db *sql.DB) *AstronomyShowRepo { return &AstronomyShowRepo{db: db} }

// ShowFilter narrows List.  Title matches case-insensitively as a
// substring; ThemeIDs keeps shows tagged with any of the given themes.
type ShowFilter struct {
	Title    string
	ThemeIDs []uint64
}

// Create inserts the show and links it to themeIDs in one transaction.  An
// unknown theme ID yields ErrInvalidReference and nothing is stored.
func (r *AstronomyShowRepo) Create(ctx context.Context, s *model.AstronomyShow, themeIDs []uint64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO astronomy_shows (title, description, image) VALUES (?, ?, ?)`,
			s.Title, s.Description, s.Image)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		s.ID = uint64(id)
		return r.replaceThemes(ctx, tx, s, themeIDs)
	})
}

// Update overwrites the show's fields and replaces its theme set.
func (r *AstronomyShowRepo) Update(ctx context.Context, s *model.AstronomyShow, themeIDs []uint64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE astronomy_shows SET title = ?, description = ?, image = ? WHERE id = ?`,
			s.Title, s.Description, s.Image, s.ID)
		if err != nil {
			return err
		}
		if err := affectedOrNotFound(res, ErrAstronomyShowNotFound); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM astronomy_show_themes WHERE astronomy_show_id = ?`, s.ID); err != nil {
			return err
		}
		return r.replaceThemes(ctx, tx, s, themeIDs)
	})
}

func (r *AstronomyShowRepo) replaceThemes(ctx context.Context, tx *sql.Tx, s *model.AstronomyShow, themeIDs []uint64) error {
	themeIDs = uniqueIDs(themeIDs)
	if len(themeIDs) > 0 {
		q := `INSERT INTO astronomy_show_themes (astronomy_show_id, show_theme_id) VALUES `
		args := make([]any, 0, len(themeIDs)*2)
		for i, tid := range themeIDs {
			if i > 0 {
				q += ", "
			}
			q += "(?, ?)"
			args = append(args, s.ID, tid)
		}
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			if isMissingReference(err) {
				return ErrInvalidReference
			}
			return err
		}
	}
	themes, err := loadThemes(ctx, tx, []uint64{s.ID})
	if err != nil {
		return err
	}
	s.Themes = themes[s.ID]
	if s.Themes == nil {
		s.Themes = []model.ShowTheme{}
	}
	return nil
}

// GetByID returns the show with its themes, or ErrAstronomyShowNotFound.
func (r *AstronomyShowRepo) GetByID(ctx context.Context, id uint64) (*model.AstronomyShow, error) {
	var s model.AstronomyShow
	var image sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, description, image FROM astronomy_shows WHERE id = ?`, id).
		Scan(&s.ID, &s.Title, &s.Description, &image)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAstronomyShowNotFound
		}
		return nil, err
	}
	s.Image = nullString(image)
	themes, err := loadThemes(ctx, r.db, []uint64{s.ID})
	if err != nil {
		return nil, err
	}
	s.Themes = themes[s.ID]
	if s.Themes == nil {
		s.Themes = []model.ShowTheme{}
	}
	return &s, nil
}

// List returns shows ordered by title.
func (r *AstronomyShowRepo) List(ctx context.Context, f ShowFilter) ([]model.AstronomyShow, error) {
	q := `SELECT a.id, a.title, a.description, a.image FROM astronomy_shows a WHERE 1 = 1`
	var args []any
	if f.Title != "" {
		q += ` AND a.title LIKE ?`
		args = append(args, "%"+escapeLike(f.Title)+"%")
	}
	if ids := uniqueIDs(f.ThemeIDs); len(ids) > 0 {
		q += ` AND a.id IN (SELECT astronomy_show_id FROM astronomy_show_themes WHERE show_theme_id IN (` + placeholders(len(ids)) + `))`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	q += ` ORDER BY a.title, a.id`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.AstronomyShow{}
	var ids []uint64
	for rows.Next() {
		var s model.AstronomyShow
		var image sql.NullString
		if err := rows.Scan(&s.ID, &s.Title, &s.Description, &image); err != nil {
			return nil, err
		}
		s.Image = nullString(image)
		out = append(out, s)
		ids = append(ids, s.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}
	themes, err := loadThemes(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Themes = themes[out[i].ID]
		if out[i].Themes == nil {
			out[i].Themes = []model.ShowTheme{}
		}
	}
	return out, nil
}

// Delete removes a show together with its sessions and their tickets.
func (r *AstronomyShowRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM astronomy_shows WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res, ErrAstronomyShowNotFound)
}

// loadThemes returns the themes of each show keyed by show ID.
func loadThemes(ctx context.Context, q querier, showIDs []uint64) (map[uint64][]model.ShowTheme, error) {
	out := make(map[uint64][]model.ShowTheme, len(showIDs))
	if len(showIDs) == 0 {
		return out, nil
	}
	args := make([]any, len(showIDs))
	for i, id := range showIDs {
		args[i] = id
	}
	rows, err := q.QueryContext(ctx,
		`SELECT ast.astronomy_show_id, t.id, t.name
		   FROM astronomy_show_themes ast
		   JOIN show_themes t ON t.id = ast.show_theme_id
		  WHERE ast.astronomy_show_id IN (`+placeholders(len(showIDs))+`)
		  ORDER BY t.name, t.id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var showID uint64
		var t model.ShowTheme
		if err := rows.Scan(&showID, &t.ID, &t.Name); err != nil {
			return nil, err
		}
		out[showID] = append(out[showID], t)
	}
	return out, rows.Err()
}

func uniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
