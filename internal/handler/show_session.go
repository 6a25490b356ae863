package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/planetarium-reservation/internal/model"
	"github.com/iliyamo/planetarium-reservation/internal/repository"
	"github.com/iliyamo/planetarium-reservation/internal/service"
)

type SessionService interface {
	ListSessions(ctx context.Context, f repository.SessionFilter) ([]model.ShowSession, error)
	GetSession(ctx context.Context, id uint64) (*service.SessionDetail, error)
	CreateSession(ctx context.Context, in service.SessionInput) (*model.ShowSession, error)
	UpdateSession(ctx context.Context, id uint64, in service.SessionInput) (*model.ShowSession, error)
	DeleteSession(ctx context.Context, id uint64) error
}

// ShowSessionHandler serves /api/planetarium/show_sessions.
type ShowSessionHandler struct {
	svc SessionService
	log *zap.Logger
}

func NewShowSessionHandler(svc SessionService, log *zap.Logger) *ShowSessionHandler {
	if svc == nil {
		panic("nil service passed to NewShowSessionHandler")
	}
	return &ShowSessionHandler{svc: svc, log: orNop(log)}
}

type sessionListItem struct {
	ID                      uint64    `json:"id"`
	ShowTime                time.Time `json:"show_time"`
	AstronomyShowTitle      string    `json:"astronomy_show_title"`
	AstronomyShowImage      *string   `json:"astronomy_show_image"`
	PlanetariumDomeName     string    `json:"planetarium_dome_name"`
	PlanetariumDomeCapacity int       `json:"planetarium_dome_capacity"`
	TicketsAvailable        int       `json:"tickets_available"`
}

type sessionDetail struct {
	ID               uint64              `json:"id"`
	ShowTime         time.Time           `json:"show_time"`
	AstronomyShow    model.AstronomyShow `json:"astronomy_show"`
	PlanetariumDome  domeView            `json:"planetarium_dome"`
	TicketsAvailable int                 `json:"tickets_available"`
	TakenPlaces      []model.Seat        `json:"taken_places"`
}

// List handles GET /show_sessions?date=YYYY-MM-DD&astronomy_show=<id>.  An
// unparsable date is ignored.
func (h *ShowSessionHandler) List(c echo.Context) error {
	var f repository.SessionFilter
	if raw := c.QueryParam("date"); raw != "" {
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			h.log.Warn("ignoring invalid date filter", zap.String("date", raw))
		} else {
			f.Date = &d
		}
	}
	if raw := c.QueryParam("astronomy_show"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return badRequest(c, "astronomy_show must be an id")
		}
		f.ShowID = id
	}

	sessions, err := h.svc.ListSessions(c.Request().Context(), f)
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]sessionListItem, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionListItem{
			ID:                      s.ID,
			ShowTime:                s.ShowTime,
			AstronomyShowTitle:      s.Show.Title,
			AstronomyShowImage:      s.Show.Image,
			PlanetariumDomeName:     s.Dome.Name,
			PlanetariumDomeCapacity: s.Dome.Capacity(),
			TicketsAvailable:        s.TicketsAvailable(),
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ShowSessionHandler) Get(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid show session id")
	}
	d, err := h.svc.GetSession(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	taken := d.TakenPlaces
	if taken == nil {
		taken = []model.Seat{}
	}
	return c.JSON(http.StatusOK, sessionDetail{
		ID:               d.ID,
		ShowTime:         d.ShowTime,
		AstronomyShow:    withThemes(d.Show),
		PlanetariumDome:  newDomeView(d.Dome),
		TicketsAvailable: d.TicketsAvailable(),
		TakenPlaces:      taken,
	})
}

func (h *ShowSessionHandler) Create(c echo.Context) error {
	var in service.SessionInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	s, err := h.svc.CreateSession(c.Request().Context(), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *ShowSessionHandler) Update(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid show session id")
	}
	var in service.SessionInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	s, err := h.svc.UpdateSession(c.Request().Context(), id, in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *ShowSessionHandler) Delete(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid show session id")
	}
	if err := h.svc.DeleteSession(c.Request().Context(), id); err != nil {
		return writeError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
