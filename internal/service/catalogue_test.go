package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/planetarium-reservation/internal/cache"
	"github.com/iliyamo/planetarium-reservation/internal/model"
	"github.com/iliyamo/planetarium-reservation/internal/repository"
)

type fakeThemes struct {
	create func(*model.ShowTheme) error
	update func(*model.ShowTheme) error
	del    func(uint64) error
}

func (f fakeThemes) Create(_ context.Context, t *model.ShowTheme) error { return f.create(t) }
func (f fakeThemes) GetByID(context.Context, uint64) (*model.ShowTheme, error) {
	return nil, repository.ErrShowThemeNotFound
}
func (f fakeThemes) List(context.Context, string) ([]model.ShowTheme, error) { return nil, nil }
func (f fakeThemes) Update(_ context.Context, t *model.ShowTheme) error      { return f.update(t) }
func (f fakeThemes) Delete(_ context.Context, id uint64) error               { return f.del(id) }

type fakeDomes struct {
	created *model.PlanetariumDome
	delErr  error
}

func (f *fakeDomes) Create(_ context.Context, d *model.PlanetariumDome) error {
	d.ID = 4
	f.created = d
	return nil
}
func (f *fakeDomes) GetByID(context.Context, uint64) (*model.PlanetariumDome, error) { return nil, nil }
func (f *fakeDomes) List(context.Context, string) ([]model.PlanetariumDome, error)   { return nil, nil }
func (f *fakeDomes) Update(context.Context, *model.PlanetariumDome) error            { return nil }
func (f *fakeDomes) Delete(context.Context, uint64) error                            { return f.delErr }

type fakeShows struct {
	createErr error
	stored    *model.AstronomyShow
	themeIDs  []uint64
}

func (f *fakeShows) Create(_ context.Context, s *model.AstronomyShow, ids []uint64) error {
	if f.createErr != nil {
		return f.createErr
	}
	s.ID = 11
	f.themeIDs = ids
	f.stored = &model.AstronomyShow{ID: 11, Title: s.Title, Themes: []model.ShowTheme{{ID: 2, Name: "Nebulae"}}}
	return nil
}
func (f *fakeShows) GetByID(context.Context, uint64) (*model.AstronomyShow, error) {
	if f.stored == nil {
		return nil, repository.ErrAstronomyShowNotFound
	}
	return f.stored, nil
}
func (f *fakeShows) List(_ context.Context, sf repository.ShowFilter) ([]model.AstronomyShow, error) {
	return []model.AstronomyShow{{Title: sf.Title}}, nil
}
func (f *fakeShows) Update(context.Context, *model.AstronomyShow, []uint64) error { return nil }
func (f *fakeShows) Delete(context.Context, uint64) error                         { return nil }

type fakeSessions struct {
	session   *model.ShowSession
	taken     []model.Seat
	createErr error
	created   *model.ShowSession
}

func (f *fakeSessions) Create(_ context.Context, s *model.ShowSession) error {
	f.created = s
	return f.createErr
}
func (f *fakeSessions) GetByID(context.Context, uint64) (*model.ShowSession, error) {
	if f.session == nil {
		return nil, repository.ErrShowSessionNotFound
	}
	return f.session, nil
}
func (f *fakeSessions) List(context.Context, repository.SessionFilter) ([]model.ShowSession, error) {
	return nil, nil
}
func (f *fakeSessions) TakenPlaces(context.Context, uint64) ([]model.Seat, error) {
	return f.taken, nil
}
func (f *fakeSessions) Update(context.Context, *model.ShowSession) error { return nil }
func (f *fakeSessions) Delete(context.Context, uint64) error             { return nil }

func TestCreateThemeValidatesAndInvalidates(t *testing.T) {
	inv := &invalidations{}
	var stored *model.ShowTheme
	themes := fakeThemes{create: func(th *model.ShowTheme) error { th.ID = 1; stored = th; return nil }}
	svc := NewCatalogueService(themes, &fakeDomes{}, &fakeShows{}, &fakeSessions{}, inv)

	_, err := svc.CreateTheme(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateTheme(context.Background(), strings.Repeat("x", 64))
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, inv.kinds)

	th, err := svc.CreateTheme(context.Background(), " Black holes ")
	require.NoError(t, err)
	assert.Equal(t, "Black holes", stored.Name)
	assert.EqualValues(t, 1, th.ID)
	assert.Equal(t, []cache.Kind{cache.KindShowTheme}, inv.kinds)
}

func TestThemeErrorsPassThrough(t *testing.T) {
	inv := &invalidations{}
	themes := fakeThemes{
		create: func(*model.ShowTheme) error { return repository.ErrDuplicate },
		update: func(*model.ShowTheme) error { return repository.ErrShowThemeNotFound },
		del:    func(uint64) error { return repository.ErrShowThemeNotFound },
	}
	svc := NewCatalogueService(themes, &fakeDomes{}, &fakeShows{}, &fakeSessions{}, inv)
	ctx := context.Background()

	_, err := svc.CreateTheme(ctx, "Comets")
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	_, err = svc.UpdateTheme(ctx, 3, "Comets")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, NotFoundError{Entity: "show theme", ID: 3}, *nf)

	assert.ErrorAs(t, svc.DeleteTheme(ctx, 3), &nf)
	_, err = svc.GetTheme(ctx, 8)
	assert.ErrorAs(t, err, &nf)
	assert.Empty(t, inv.kinds)
}

func TestCreateDomeRejectsBadGrid(t *testing.T) {
	domes := &fakeDomes{}
	svc := NewCatalogueService(fakeThemes{}, domes, &fakeShows{}, &fakeSessions{}, nil)

	for _, d := range []model.PlanetariumDome{
		{Name: "Main", Rows: 0, SeatsInRow: 10},
		{Name: "Main", Rows: 10, SeatsInRow: -1},
		{Name: "", Rows: 10, SeatsInRow: 10},
		{Name: "Main", Rows: maxDomeSide + 1, SeatsInRow: 10},
		{Name: "Main", Rows: 10, SeatsInRow: 1 << 20},
	} {
		_, err := svc.CreateDome(context.Background(), d)
		assert.ErrorIs(t, err, ErrInvalidInput, "%+v", d)
	}
	assert.Nil(t, domes.created)

	d, err := svc.CreateDome(context.Background(), model.PlanetariumDome{ID: 99, Name: "Main", Rows: 10, SeatsInRow: 12})
	require.NoError(t, err)
	assert.EqualValues(t, 4, d.ID)
	assert.Equal(t, 120, d.Capacity())

	_, err = svc.CreateDome(context.Background(), model.PlanetariumDome{Name: "Grand", Rows: maxDomeSide, SeatsInRow: maxDomeSide})
	require.NoError(t, err)
}

func TestDeleteDomeInvalidatesDependentViews(t *testing.T) {
	inv := &invalidations{}
	svc := NewCatalogueService(fakeThemes{}, &fakeDomes{}, &fakeShows{}, &fakeSessions{}, inv)

	require.NoError(t, svc.DeleteDome(context.Background(), 1))
	assert.Equal(t, []cache.Kind{cache.KindPlanetariumDome, cache.KindShowSession, cache.KindReservation}, inv.kinds)
}

func TestCreateShowReloadsThemes(t *testing.T) {
	shows := &fakeShows{}
	svc := NewCatalogueService(fakeThemes{}, &fakeDomes{}, shows, &fakeSessions{}, nil)

	sh, err := svc.CreateShow(context.Background(), ShowInput{Title: "Life of stars", ThemeIDs: []uint64{2}})
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, shows.themeIDs)
	assert.Equal(t, []string{"Nebulae"}, sh.ThemeNames())
}

func TestCreateShowUnknownTheme(t *testing.T) {
	shows := &fakeShows{createErr: repository.ErrInvalidReference}
	svc := NewCatalogueService(fakeThemes{}, &fakeDomes{}, shows, &fakeSessions{}, nil)

	_, err := svc.CreateShow(context.Background(), ShowInput{Title: "Life of stars", ThemeIDs: []uint64{404}})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "show_theme")
}

func TestCreateSessionValidation(t *testing.T) {
	sessions := &fakeSessions{}
	svc := NewCatalogueService(fakeThemes{}, &fakeDomes{}, &fakeShows{}, sessions, nil)
	when := time.Date(2026, 11, 2, 20, 0, 0, 0, time.FixedZone("EET", 2*3600))

	_, err := svc.CreateSession(context.Background(), SessionInput{DomeID: 1, ShowTime: when})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateSession(context.Background(), SessionInput{AstronomyShowID: 1, DomeID: 1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	sess, err := svc.CreateSession(context.Background(), SessionInput{AstronomyShowID: 1, DomeID: 1, ShowTime: when})
	require.NoError(t, err)
	assert.Equal(t, time.UTC, sess.ShowTime.Location())
	assert.Equal(t, 18, sess.ShowTime.Hour())

	sessions.createErr = repository.ErrInvalidReference
	_, err = svc.CreateSession(context.Background(), SessionInput{AstronomyShowID: 9, DomeID: 1, ShowTime: when})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetSessionIncludesTakenPlaces(t *testing.T) {
	sessions := &fakeSessions{
		session: &model.ShowSession{ID: 1, Dome: model.PlanetariumDome{Rows: 2, SeatsInRow: 2}, SoldTickets: 2},
		taken:   []model.Seat{{Row: 1, Seat: 2}, {Row: 2, Seat: 1}},
	}
	svc := NewCatalogueService(fakeThemes{}, &fakeDomes{}, &fakeShows{}, sessions, nil)

	d, err := svc.GetSession(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, d.TicketsAvailable())
	assert.Equal(t, sessions.taken, d.TakenPlaces)

	sessions.session = nil
	_, err = svc.GetSession(context.Background(), 1)
	assert.ErrorAs(t, err, new(*NotFoundError))
}
