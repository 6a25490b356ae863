package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/planetarium-reservation/internal/model"
	"github.com/iliyamo/planetarium-reservation/internal/repository"
	"github.com/iliyamo/planetarium-reservation/internal/service"
)

type ShowService interface {
	ListShows(ctx context.Context, f repository.ShowFilter) ([]model.AstronomyShow, error)
	GetShow(ctx context.Context, id uint64) (*model.AstronomyShow, error)
	CreateShow(ctx context.Context, in service.ShowInput) (*model.AstronomyShow, error)
	UpdateShow(ctx context.Context, id uint64, in service.ShowInput) (*model.AstronomyShow, error)
	DeleteShow(ctx context.Context, id uint64) error
}

// AstronomyShowHandler serves /api/planetarium/astronomy_shows.  Lists
// carry theme names, single shows carry theme objects.
type AstronomyShowHandler struct {
	svc ShowService
	log *zap.Logger
}

func NewAstronomyShowHandler(svc ShowService, log *zap.Logger) *AstronomyShowHandler {
	if svc == nil {
		panic("nil service passed to NewAstronomyShowHandler")
	}
	return &AstronomyShowHandler{svc: svc, log: orNop(log)}
}

type showListItem struct {
	ID          uint64   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ShowTheme   []string `json:"show_theme"`
	Image       *string  `json:"image"`
}

// List handles GET /astronomy_shows?title=&show_theme=2,5.
func (h *AstronomyShowHandler) List(c echo.Context) error {
	ids, err := parseIDList(c.QueryParam("show_theme"))
	if err != nil {
		return badRequest(c, "show_theme must be a comma separated list of ids")
	}
	shows, err := h.svc.ListShows(c.Request().Context(), repository.ShowFilter{
		Title:    c.QueryParam("title"),
		ThemeIDs: ids,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]showListItem, 0, len(shows))
	for _, s := range shows {
		out = append(out, showListItem{ID: s.ID, Title: s.Title, Description: s.Description, ShowTheme: s.ThemeNames(), Image: s.Image})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AstronomyShowHandler) Get(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid astronomy show id")
	}
	s, err := h.svc.GetShow(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, withThemes(*s))
}

func (h *AstronomyShowHandler) Create(c echo.Context) error {
	var in service.ShowInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	s, err := h.svc.CreateShow(c.Request().Context(), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, withThemes(*s))
}

func (h *AstronomyShowHandler) Update(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid astronomy show id")
	}
	var in service.ShowInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	s, err := h.svc.UpdateShow(c.Request().Context(), id, in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, withThemes(*s))
}

func (h *AstronomyShowHandler) Delete(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid astronomy show id")
	}
	if err := h.svc.DeleteShow(c.Request().Context(), id); err != nil {
		return writeError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// withThemes makes an empty theme set encode as [] rather than null.
func withThemes(s model.AstronomyShow) model.AstronomyShow {
	if s.Themes == nil {
		s.Themes = []model.ShowTheme{}
	}
	return s
}

// parseIDList parses "2,5" into ids.  Blank input yields nil.
func parseIDList(raw string) ([]uint64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var ids []uint64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
