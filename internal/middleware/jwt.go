package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// JWTAuth validates an HMAC-signed bearer token and stores the user id
// (from "sub", or "user_id" when sub is absent) and the "is_staff" claim in
// the context.  Tokens are issued elsewhere; this service only verifies.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}
			uid, ok := subject(claims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid subject"})
			}

			staff, _ := claims["is_staff"].(bool)
			c.Set(ContextUserID, uid)
			c.Set(ContextIsStaff, staff)
			return next(c)
		}
	}
}

func subject(claims jwt.MapClaims) (uint64, bool) {
	v, ok := claims["sub"]
	if !ok {
		v = claims["user_id"]
	}
	switch id := v.(type) {
	case string:
		n, err := strconv.ParseUint(id, 10, 64)
		return n, err == nil && n > 0
	case float64:
		return uint64(id), id >= 1 && id == float64(uint64(id))
	}
	return 0, false
}
