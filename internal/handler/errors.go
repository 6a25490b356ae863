// Package handler exposes the planetarium API over echo.  Handlers parse
// input, call the services and translate their errors into JSON bodies of
// the form {"error": ..., "code": ...}.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/planetarium-reservation/internal/middleware"
	"github.com/iliyamo/planetarium-reservation/internal/repository"
	"github.com/iliyamo/planetarium-reservation/internal/service"
)

// Error codes returned in the "code" field.
const (
	CodeOutOfBounds      = "out_of_bounds"
	CodeEmptyReservation = "empty_reservation"
	CodeSeatTaken        = "seat_taken"
	CodeNotFound         = "not_found"
	CodeInvalidInput     = "invalid_input"
	CodeDuplicate        = "duplicate"
	CodeInternal         = "internal_error"
)

// writeError maps service and repository errors to a status and body.
// Anything unrecognised is logged and reported as a bare 500 so storage
// details never reach the client.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.JSON(status, echo.Map{"error": "internal server error", "code": code})
	}

	body := echo.Map{"error": err.Error(), "code": code}
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		body["index"] = ve.Index
		if f := ve.Field(); f != "" {
			body["field"] = f
		}
		body["detail"] = ve.Err.Error()
	}
	return c.JSON(status, body)
}

func classify(err error) (int, string) {
	switch {
	case errors.As(err, new(*service.OutOfBoundsError)):
		return http.StatusBadRequest, CodeOutOfBounds
	case errors.Is(err, service.ErrEmptyReservation):
		return http.StatusBadRequest, CodeEmptyReservation
	case errors.As(err, new(*service.SeatTakenError)):
		return http.StatusBadRequest, CodeSeatTaken
	case errors.As(err, new(*service.NotFoundError)):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, CodeInvalidInput
	case errors.Is(err, repository.ErrDuplicate):
		return http.StatusBadRequest, CodeDuplicate
	}
	return http.StatusInternalServerError, CodeInternal
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": CodeInvalidInput})
}

// pathID parses the :id parameter.
func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

func orNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
