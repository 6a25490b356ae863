package middleware

import "github.com/labstack/echo/v4"

// Context keys set by JWTAuth.
const (
	ContextUserID  = "user_id"
	ContextIsStaff = "is_staff"
)

// UserID returns the authenticated user's id.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ContextUserID).(uint64)
	return id, ok && id != 0
}

// IsStaff reports whether the authenticated user may write the catalogue.
func IsStaff(c echo.Context) bool {
	staff, _ := c.Get(ContextIsStaff).(bool)
	return staff
}
