// Package router wires handlers and middleware onto echo routes.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/planetarium-reservation/internal/cache"
	"github.com/iliyamo/planetarium-reservation/internal/config"
	"github.com/iliyamo/planetarium-reservation/internal/handler"
	"github.com/iliyamo/planetarium-reservation/internal/middleware"
)

// APIPrefix is the mount point of every planetarium endpoint.
const APIPrefix = "/api/planetarium"

// Handlers groups the resource handlers.
type Handlers struct {
	Themes       *handler.ShowThemeHandler
	Domes        *handler.DomeHandler
	Shows        *handler.AstronomyShowHandler
	Sessions     *handler.ShowSessionHandler
	Reservations *handler.ReservationHandler
}

// Options carries what the middleware chain needs.  A nil Redis client
// disables response caching and rate limiting.
type Options struct {
	JWTSecret string
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Redis     *redis.Client
	Log       *zap.Logger
}

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

type resource interface {
	List(c echo.Context) error
	Get(c echo.Context) error
	Create(c echo.Context) error
	Update(c echo.Context) error
	Delete(c echo.Context) error
}

// RegisterAPI registers the planetarium endpoints.  Every route requires a
// bearer token; catalogue writes additionally require staff.  Response
// caching runs after authentication so cached views are never served to
// anonymous callers.
func RegisterAPI(e *echo.Echo, h Handlers, opts Options) {
	auth := middleware.JWTAuth(opts.JWTSecret)
	cached := func(kind cache.Kind) echo.MiddlewareFunc {
		return middleware.NewRedisCache(opts.Cache, opts.Redis, kind, opts.Log)
	}
	g := e.Group(APIPrefix)

	catalogue := []struct {
		path string
		kind cache.Kind
		h    resource
	}{
		{"/show_themes", cache.KindShowTheme, h.Themes},
		{"/planetarium_domes", cache.KindPlanetariumDome, h.Domes},
		{"/astronomy_shows", cache.KindAstronomyShow, h.Shows},
		{"/show_sessions", cache.KindShowSession, h.Sessions},
	}
	for _, r := range catalogue {
		mw := []echo.MiddlewareFunc{auth, middleware.StaffWrites(), cached(r.kind)}
		g.GET(r.path, r.h.List, mw...)
		g.POST(r.path, r.h.Create, mw...)
		g.GET(r.path+"/:id", r.h.Get, mw...)
		g.PUT(r.path+"/:id", r.h.Update, mw...)
		g.DELETE(r.path+"/:id", r.h.Delete, mw...)
	}

	limit := middleware.NewTokenBucket(opts.RateLimit, opts.Redis, opts.Log)
	g.GET("/reservations", h.Reservations.List, auth, cached(cache.KindReservation))
	g.POST("/reservations", h.Reservations.Create, auth, limit)
	g.DELETE("/reservations/:id", h.Reservations.Delete, auth)
}
