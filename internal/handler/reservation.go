package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/planetarium-reservation/internal/middleware"
	"github.com/iliyamo/planetarium-reservation/internal/model"
	"github.com/iliyamo/planetarium-reservation/internal/service"
)

type ReservationService interface {
	Create(ctx context.Context, userID uint64, reqs []service.TicketRequest) (*model.Reservation, error)
	Cancel(ctx context.Context, userID, id uint64) error
	List(ctx context.Context, userID uint64) ([]model.Reservation, error)
}

// ReservationHandler serves /api/planetarium/reservations for the
// authenticated user.
type ReservationHandler struct {
	svc ReservationService
	log *zap.Logger
}

func NewReservationHandler(svc ReservationService, log *zap.Logger) *ReservationHandler {
	if svc == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{svc: svc, log: orNop(log)}
}

type reservationBody struct {
	Tickets []service.TicketRequest `json:"tickets"`
}

// List handles GET /reservations: the caller's reservations, newest first.
func (h *ReservationHandler) List(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	list, err := h.svc.List(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if list == nil {
		list = []model.Reservation{}
	}
	return c.JSON(http.StatusOK, list)
}

// Create handles POST /reservations with {"tickets": [{row, seat, show_session}]}.
// Either every ticket is booked or none is.
func (h *ReservationHandler) Create(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	var body reservationBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	res, err := h.svc.Create(c.Request().Context(), uid, body.Tickets)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Delete handles DELETE /reservations/:id.  Another user's reservation is
// reported as not found.
func (h *ReservationHandler) Delete(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	if err := h.svc.Cancel(c.Request().Context(), uid, id); err != nil {
		return writeError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
