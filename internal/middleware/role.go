package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// StaffWrites lets any authenticated user read and only staff write.  It
// must run after JWTAuth.
func StaffWrites() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}
			if !IsStaff(c) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
