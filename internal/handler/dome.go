package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/planetarium-reservation/internal/model"
)

type DomeService interface {
	ListDomes(ctx context.Context, name string) ([]model.PlanetariumDome, error)
	GetDome(ctx context.Context, id uint64) (*model.PlanetariumDome, error)
	CreateDome(ctx context.Context, d model.PlanetariumDome) (*model.PlanetariumDome, error)
	UpdateDome(ctx context.Context, id uint64, d model.PlanetariumDome) (*model.PlanetariumDome, error)
	DeleteDome(ctx context.Context, id uint64) error
}

// DomeHandler serves /api/planetarium/planetarium_domes.
type DomeHandler struct {
	svc DomeService
	log *zap.Logger
}

func NewDomeHandler(svc DomeService, log *zap.Logger) *DomeHandler {
	if svc == nil {
		panic("nil service passed to NewDomeHandler")
	}
	return &DomeHandler{svc: svc, log: orNop(log)}
}

type domeView struct {
	ID         uint64 `json:"id"`
	Name       string `json:"name"`
	Rows       int    `json:"rows"`
	SeatsInRow int    `json:"seats_in_row"`
	Capacity   int    `json:"capacity"`
}

func newDomeView(d model.PlanetariumDome) domeView {
	return domeView{ID: d.ID, Name: d.Name, Rows: d.Rows, SeatsInRow: d.SeatsInRow, Capacity: d.Capacity()}
}

func (h *DomeHandler) List(c echo.Context) error {
	domes, err := h.svc.ListDomes(c.Request().Context(), c.QueryParam("name"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]domeView, 0, len(domes))
	for _, d := range domes {
		out = append(out, newDomeView(d))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *DomeHandler) Get(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid planetarium dome id")
	}
	d, err := h.svc.GetDome(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, newDomeView(*d))
}

func (h *DomeHandler) Create(c echo.Context) error {
	var body model.PlanetariumDome
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	d, err := h.svc.CreateDome(c.Request().Context(), body)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, newDomeView(*d))
}

func (h *DomeHandler) Update(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid planetarium dome id")
	}
	var body model.PlanetariumDome
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	d, err := h.svc.UpdateDome(c.Request().Context(), id, body)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, newDomeView(*d))
}

func (h *DomeHandler) Delete(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid planetarium dome id")
	}
	if err := h.svc.DeleteDome(c.Request().Context(), id); err != nil {
		return writeError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
