package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/planetarium-reservation/internal/model"
)

type ThemeService interface {
	ListThemes(ctx context.Context, name string) ([]model.ShowTheme, error)
	GetTheme(ctx context.Context, id uint64) (*model.ShowTheme, error)
	CreateTheme(ctx context.Context, name string) (*model.ShowTheme, error)
	UpdateTheme(ctx context.Context, id uint64, name string) (*model.ShowTheme, error)
	DeleteTheme(ctx context.Context, id uint64) error
}

// ShowThemeHandler serves /api/planetarium/show_themes.
type ShowThemeHandler struct {
	svc ThemeService
	log *zap.Logger
}

func NewShowThemeHandler(svc ThemeService, log *zap.Logger) *ShowThemeHandler {
	if svc == nil {
		panic("nil service passed to NewShowThemeHandler")
	}
	return &ShowThemeHandler{svc: svc, log: orNop(log)}
}

type themeBody struct {
	Name string `json:"name"`
}

// List handles GET /show_themes?name=.
func (h *ShowThemeHandler) List(c echo.Context) error {
	themes, err := h.svc.ListThemes(c.Request().Context(), c.QueryParam("name"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, themes)
}

func (h *ShowThemeHandler) Get(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid show theme id")
	}
	t, err := h.svc.GetTheme(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *ShowThemeHandler) Create(c echo.Context) error {
	var body themeBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	t, err := h.svc.CreateTheme(c.Request().Context(), body.Name)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *ShowThemeHandler) Update(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid show theme id")
	}
	var body themeBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	t, err := h.svc.UpdateTheme(c.Request().Context(), id, body.Name)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *ShowThemeHandler) Delete(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid show theme id")
	}
	if err := h.svc.DeleteTheme(c.Request().Context(), id); err != nil {
		return writeError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
