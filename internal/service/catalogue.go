package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/planetarium-reservation/internal/cache"
	"github.com/iliyamo/planetarium-reservation/internal/model"
	"github.com/iliyamo/planetarium-reservation/internal/repository"
)

const maxNameLen = 63

// maxDomeSide bounds rows and seats_in_row.
const maxDomeSide = 1000

type ThemeStore interface {
	Create(ctx context.Context, t *model.ShowTheme) error
	GetByID(ctx context.Context, id uint64) (*model.ShowTheme, error)
	List(ctx context.Context, name string) ([]model.ShowTheme, error)
	Update(ctx context.Context, t *model.ShowTheme) error
	Delete(ctx context.Context, id uint64) error
}

type DomeStore interface {
	Create(ctx context.Context, d *model.PlanetariumDome) error
	GetByID(ctx context.Context, id uint64) (*model.PlanetariumDome, error)
	List(ctx context.Context, name string) ([]model.PlanetariumDome, error)
	Update(ctx context.Context, d *model.PlanetariumDome) error
	Delete(ctx context.Context, id uint64) error
}

type ShowStore interface {
	Create(ctx context.Context, s *model.AstronomyShow, themeIDs []uint64) error
	GetByID(ctx context.Context, id uint64) (*model.AstronomyShow, error)
	List(ctx context.Context, f repository.ShowFilter) ([]model.AstronomyShow, error)
	Update(ctx context.Context, s *model.AstronomyShow, themeIDs []uint64) error
	Delete(ctx context.Context, id uint64) error
}

type SessionStore interface {
	Create(ctx context.Context, s *model.ShowSession) error
	GetByID(ctx context.Context, id uint64) (*model.ShowSession, error)
	List(ctx context.Context, f repository.SessionFilter) ([]model.ShowSession, error)
	TakenPlaces(ctx context.Context, sessionID uint64) ([]model.Seat, error)
	Update(ctx context.Context, s *model.ShowSession) error
	Delete(ctx context.Context, id uint64) error
}

// ShowInput is the writable part of an astronomy show.
type ShowInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ThemeIDs    []uint64 `json:"show_theme"`
	Image       *string  `json:"image"`
}

// SessionInput is the writable part of a show session.
type SessionInput struct {
	AstronomyShowID uint64    `json:"astronomy_show"`
	DomeID          uint64    `json:"planetarium_dome"`
	ShowTime        time.Time `json:"show_time"`
}

// SessionDetail is a session together with its occupied seats.
type SessionDetail struct {
	model.ShowSession
	TakenPlaces []model.Seat
}

// CatalogueService manages themes, domes, shows and sessions.  Every
// successful write evicts the cached views it can affect, including views
// of kinds that embed the written entity.
type CatalogueService struct {
	themes   ThemeStore
	domes    DomeStore
	shows    ShowStore
	sessions SessionStore
	cache    Invalidator
}

func NewCatalogueService(themes ThemeStore, domes DomeStore, shows ShowStore, sessions SessionStore, inv Invalidator) *CatalogueService {
	return &CatalogueService{themes: themes, domes: domes, shows: shows, sessions: sessions, cache: inv}
}

func (s *CatalogueService) invalidate(ctx context.Context, kinds ...cache.Kind) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, kinds...)
	}
}

// Show themes

func (s *CatalogueService) ListThemes(ctx context.Context, name string) ([]model.ShowTheme, error) {
	return s.themes.List(ctx, strings.TrimSpace(name))
}

func (s *CatalogueService) GetTheme(ctx context.Context, id uint64) (*model.ShowTheme, error) {
	t, err := s.themes.GetByID(ctx, id)
	return t, notFound(err, "show theme", id)
}

func (s *CatalogueService) CreateTheme(ctx context.Context, name string) (*model.ShowTheme, error) {
	t := &model.ShowTheme{Name: strings.TrimSpace(name)}
	if err := checkName("name", t.Name); err != nil {
		return nil, err
	}
	if err := s.themes.Create(ctx, t); err != nil {
		return nil, err
	}
	s.invalidate(ctx, cache.KindShowTheme)
	return t, nil
}

func (s *CatalogueService) UpdateTheme(ctx context.Context, id uint64, name string) (*model.ShowTheme, error) {
	t := &model.ShowTheme{ID: id, Name: strings.TrimSpace(name)}
	if err := checkName("name", t.Name); err != nil {
		return nil, err
	}
	if err := s.themes.Update(ctx, t); err != nil {
		return nil, notFound(err, "show theme", id)
	}
	s.invalidate(ctx, cache.KindShowTheme, cache.KindAstronomyShow, cache.KindShowSession)
	return t, nil
}

func (s *CatalogueService) DeleteTheme(ctx context.Context, id uint64) error {
	if err := s.themes.Delete(ctx, id); err != nil {
		return notFound(err, "show theme", id)
	}
	s.invalidate(ctx, cache.KindShowTheme, cache.KindAstronomyShow, cache.KindShowSession)
	return nil
}

// Planetarium domes

func (s *CatalogueService) ListDomes(ctx context.Context, name string) ([]model.PlanetariumDome, error) {
	return s.domes.List(ctx, strings.TrimSpace(name))
}

func (s *CatalogueService) GetDome(ctx context.Context, id uint64) (*model.PlanetariumDome, error) {
	d, err := s.domes.GetByID(ctx, id)
	return d, notFound(err, "planetarium dome", id)
}

func (s *CatalogueService) CreateDome(ctx context.Context, d model.PlanetariumDome) (*model.PlanetariumDome, error) {
	d.ID = 0
	if err := checkDome(&d); err != nil {
		return nil, err
	}
	if err := s.domes.Create(ctx, &d); err != nil {
		return nil, err
	}
	s.invalidate(ctx, cache.KindPlanetariumDome)
	return &d, nil
}

// UpdateDome changes the dome's name or grid.  Shrinking the grid does not
// touch tickets already sold outside the new bounds.
func (s *CatalogueService) UpdateDome(ctx context.Context, id uint64, d model.PlanetariumDome) (*model.PlanetariumDome, error) {
	d.ID = id
	if err := checkDome(&d); err != nil {
		return nil, err
	}
	if err := s.domes.Update(ctx, &d); err != nil {
		return nil, notFound(err, "planetarium dome", id)
	}
	s.invalidate(ctx, cache.KindPlanetariumDome, cache.KindShowSession)
	return &d, nil
}

// DeleteDome removes the dome with its sessions and their tickets.
func (s *CatalogueService) DeleteDome(ctx context.Context, id uint64) error {
	if err := s.domes.Delete(ctx, id); err != nil {
		return notFound(err, "planetarium dome", id)
	}
	s.invalidate(ctx, cache.KindPlanetariumDome, cache.KindShowSession, cache.KindReservation)
	return nil
}

// Astronomy shows

func (s *CatalogueService) ListShows(ctx context.Context, f repository.ShowFilter) ([]model.AstronomyShow, error) {
	f.Title = strings.TrimSpace(f.Title)
	return s.shows.List(ctx, f)
}

func (s *CatalogueService) GetShow(ctx context.Context, id uint64) (*model.AstronomyShow, error) {
	sh, err := s.shows.GetByID(ctx, id)
	return sh, notFound(err, "astronomy show", id)
}

func (s *CatalogueService) CreateShow(ctx context.Context, in ShowInput) (*model.AstronomyShow, error) {
	sh, err := showFromInput(0, in)
	if err != nil {
		return nil, err
	}
	if err := s.shows.Create(ctx, sh, in.ThemeIDs); err != nil {
		return nil, badReference(err, "show_theme")
	}
	s.invalidate(ctx, cache.KindAstronomyShow)
	return s.reload(ctx, sh)
}

func (s *CatalogueService) UpdateShow(ctx context.Context, id uint64, in ShowInput) (*model.AstronomyShow, error) {
	sh, err := showFromInput(id, in)
	if err != nil {
		return nil, err
	}
	if err := s.shows.Update(ctx, sh, in.ThemeIDs); err != nil {
		return nil, badReference(notFound(err, "astronomy show", id), "show_theme")
	}
	s.invalidate(ctx, cache.KindAstronomyShow, cache.KindShowSession)
	return s.reload(ctx, sh)
}

// DeleteShow removes the show with its sessions and their tickets.
func (s *CatalogueService) DeleteShow(ctx context.Context, id uint64) error {
	if err := s.shows.Delete(ctx, id); err != nil {
		return notFound(err, "astronomy show", id)
	}
	s.invalidate(ctx, cache.KindAstronomyShow, cache.KindShowSession, cache.KindReservation)
	return nil
}

// reload returns the stored show so the response carries theme names.  A
// failed reload falls back to what was written.
func (s *CatalogueService) reload(ctx context.Context, sh *model.AstronomyShow) (*model.AstronomyShow, error) {
	if fresh, err := s.shows.GetByID(ctx, sh.ID); err == nil {
		return fresh, nil
	}
	return sh, nil
}

// Show sessions

func (s *CatalogueService) ListSessions(ctx context.Context, f repository.SessionFilter) ([]model.ShowSession, error) {
	return s.sessions.List(ctx, f)
}

// GetSession returns the session with its taken places ordered by row and
// seat.
func (s *CatalogueService) GetSession(ctx context.Context, id uint64) (*SessionDetail, error) {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "show session", id)
	}
	taken, err := s.sessions.TakenPlaces(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("taken places of session %d: %w", id, err)
	}
	return &SessionDetail{ShowSession: *sess, TakenPlaces: taken}, nil
}

func (s *CatalogueService) CreateSession(ctx context.Context, in SessionInput) (*model.ShowSession, error) {
	sess, err := sessionFromInput(0, in)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, badReference(err, "astronomy_show or planetarium_dome")
	}
	s.invalidate(ctx, cache.KindShowSession)
	return sess, nil
}

func (s *CatalogueService) UpdateSession(ctx context.Context, id uint64, in SessionInput) (*model.ShowSession, error) {
	sess, err := sessionFromInput(id, in)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, badReference(notFound(err, "show session", id), "astronomy_show or planetarium_dome")
	}
	s.invalidate(ctx, cache.KindShowSession)
	return sess, nil
}

// DeleteSession removes the session and every ticket sold for it.
func (s *CatalogueService) DeleteSession(ctx context.Context, id uint64) error {
	if err := s.sessions.Delete(ctx, id); err != nil {
		return notFound(err, "show session", id)
	}
	s.invalidate(ctx, cache.KindShowSession, cache.KindReservation)
	return nil
}

func checkName(field, v string) error {
	if v == "" {
		return invalidf("%s must not be empty", field)
	}
	if utf8.RuneCountInString(v) > maxNameLen {
		return invalidf("%s must be at most %d characters", field, maxNameLen)
	}
	return nil
}

func checkDome(d *model.PlanetariumDome) error {
	d.Name = strings.TrimSpace(d.Name)
	if err := checkName("name", d.Name); err != nil {
		return err
	}
	if d.Rows < 1 || d.Rows > maxDomeSide {
		return invalidf("rows must be between 1 and %d", maxDomeSide)
	}
	if d.SeatsInRow < 1 || d.SeatsInRow > maxDomeSide {
		return invalidf("seats_in_row must be between 1 and %d", maxDomeSide)
	}
	return nil
}

func showFromInput(id uint64, in ShowInput) (*model.AstronomyShow, error) {
	sh := &model.AstronomyShow{ID: id, Title: strings.TrimSpace(in.Title), Description: in.Description, Image: in.Image}
	if err := checkName("title", sh.Title); err != nil {
		return nil, err
	}
	return sh, nil
}

func sessionFromInput(id uint64, in SessionInput) (*model.ShowSession, error) {
	switch {
	case in.AstronomyShowID == 0:
		return nil, invalidf("astronomy_show is required")
	case in.DomeID == 0:
		return nil, invalidf("planetarium_dome is required")
	case in.ShowTime.IsZero():
		return nil, invalidf("show_time is required")
	}
	return &model.ShowSession{ID: id, AstronomyShowID: in.AstronomyShowID, DomeID: in.DomeID, ShowTime: in.ShowTime.UTC()}, nil
}

// notFound converts a repository not-found error into *NotFoundError and
// passes anything else through.
func notFound(err error, entity string, id uint64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundError{Entity: entity, ID: id}
	}
	return err
}

func badReference(err error, field string) error {
	if errors.Is(err, repository.ErrInvalidReference) {
		return invalidf("%s references a missing row", field)
	}
	return err
}
