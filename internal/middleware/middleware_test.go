package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/planetarium-reservation/internal/cache"
	"github.com/iliyamo/planetarium-reservation/internal/config"
)

const testSecret = "test-secret"

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func whoAmI(c echo.Context) error {
	uid, _ := UserID(c)
	return c.JSON(http.StatusOK, echo.Map{"user_id": uid, "is_staff": IsStaff(c)})
}

func TestJWTAuth(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"string subject", "Bearer " + signed(t, jwt.MapClaims{"sub": "7", "is_staff": true, "exp": exp}), 200, `{"is_staff":true,"user_id":7}`},
		{"numeric user_id", "Bearer " + signed(t, jwt.MapClaims{"user_id": 12, "exp": exp}), 200, `{"is_staff":false,"user_id":12}`},
		{"missing header", "", 401, `{"error":"missing bearer token"}`},
		{"expired", "Bearer " + signed(t, jwt.MapClaims{"sub": "7", "exp": time.Now().Add(-time.Hour).Unix()}), 401, `{"error":"invalid token"}`},
		{"garbage", "Bearer not.a.token", 401, `{"error":"invalid token"}`},
		{"no subject", "Bearer " + signed(t, jwt.MapClaims{"exp": exp}), 401, `{"error":"invalid subject"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.GET("/me", whoAmI, JWTAuth(testSecret))
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestJWTAuthRejectsOtherSecret(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1"}).SignedString([]byte("other"))
	require.NoError(t, err)

	e := echo.New()
	e.GET("/me", whoAmI, JWTAuth(testSecret))
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStaffWrites(t *testing.T) {
	tests := []struct {
		method string
		staff  bool
		want   int
	}{
		{http.MethodGet, false, http.StatusOK},
		{http.MethodPost, false, http.StatusForbidden},
		{http.MethodDelete, false, http.StatusForbidden},
		{http.MethodPost, true, http.StatusOK},
		{http.MethodPut, true, http.StatusOK},
	}
	for _, tt := range tests {
		e := echo.New()
		ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
		setStaff := func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				c.Set(ContextUserID, uint64(1))
				c.Set(ContextIsStaff, tt.staff)
				return next(c)
			}
		}
		e.Add(tt.method, "/themes", ok, setStaff, StaffWrites())
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(tt.method, "/themes", nil))
		assert.Equal(t, tt.want, rec.Code, "%s staff=%v", tt.method, tt.staff)
	}
}

func TestRequestIDAndLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	e := echo.New()
	e.Use(RequestID(), RequestLogger(zap.New(core)))
	e.GET("/ok", func(c echo.Context) error { return c.String(http.StatusOK, GetRequestID(c)) })
	e.GET("/missing", func(c echo.Context) error { return echo.NewHTTPError(http.StatusNotFound) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok?x=1", nil))
	id := rec.Header().Get(RequestIDHeader)
	assert.Len(t, id, 36)
	assert.Equal(t, id, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "request completed", entries[0].Message)
	assert.Equal(t, "x=1", entries[0].ContextMap()["query"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "abc-123", entries[1].ContextMap()["request_id"])
	assert.EqualValues(t, 404, entries[1].ContextMap()["status"])
}

func testCacheConfig() config.CacheConfig {
	return config.CacheConfig{Enabled: true, TTL: time.Minute, KeyStrategy: "route_query", Prefix: "cache", MaxBodyBytes: 1024}
}

func TestCacheKeyPerUserForReservations(t *testing.T) {
	e := echo.New()
	key := func(kind cache.Kind, uid uint64) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/planetarium/reservations?a=1", nil), httptest.NewRecorder())
		c.Set(ContextUserID, uid)
		return cacheKeyFrom(testCacheConfig(), kind, c)
	}

	k1, k2 := key(cache.KindReservation, 1), key(cache.KindReservation, 2)
	assert.NotEqual(t, k1, k2)
	assert.Regexp(t, `^cache:reservation_view_1:[0-9a-f]{40}$`, k1)
	assert.Equal(t, key(cache.KindShowTheme, 1), key(cache.KindShowTheme, 2))
	assert.Regexp(t, `^cache:show_theme_view:`, key(cache.KindShowTheme, 1))
}

func TestRedisCacheMissStoreThenHit(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cfg := testCacheConfig()
	e := echo.New()
	calls := 0
	e.GET("/api/planetarium/show_themes", func(c echo.Context) error {
		calls++
		return c.Blob(http.StatusOK, "text/plain", []byte("themes"))
	}, NewRedisCache(cfg, rdb, cache.KindShowTheme, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/planetarium/show_themes", nil)
	key := cacheKeyFrom(cfg, cache.KindShowTheme, e.NewContext(req, httptest.NewRecorder()))
	payload, err := encodePayload(http.StatusOK, http.Header{"Content-Type": {"text/plain"}}, []byte("themes"))
	require.NoError(t, err)

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, payload, time.Minute).SetVal("OK")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, "themes", rec.Body.String())

	mock.ExpectGet(key).SetVal(string(payload))
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/planetarium/show_themes", nil))
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, "themes", rec.Body.String())
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))

	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheSkipsErrors(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	core, logs := observer.New(zapcore.WarnLevel)
	cfg := testCacheConfig()
	e := echo.New()
	e.GET("/api/planetarium/show_sessions/:id", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}, NewRedisCache(cfg, rdb, cache.KindShowSession, zap.New(core)))

	req := httptest.NewRequest(http.MethodGet, "/api/planetarium/show_sessions/9", nil)
	key := cacheKeyFrom(cfg, cache.KindShowSession, e.NewContext(req, httptest.NewRecorder()))
	mock.ExpectGet(key).RedisNil()

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Zero(t, logs.Len(), "no write may be attempted")
}

func TestRedisCacheDisabled(t *testing.T) {
	mw := NewRedisCache(config.CacheConfig{Enabled: true}, nil, cache.KindShowTheme, nil)
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "ok") }, mw)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestTokenBucket(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 5, RefillTokens: 1, RefillInterval: time.Second,
		TTL: time.Minute, KeyStrategy: "user_route", Prefix: "rl",
	}
	args := []interface{}{now.UnixMilli(), 5, 1, int64(1000), int64(60)}
	key := "rl:user:7:route:POST /api/planetarium/reservations"

	newServer := func() (*echo.Echo, redismock.ClientMock) {
		rdb, mock := redismock.NewClientMock()
		e := echo.New()
		auth := func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { c.Set(ContextUserID, uint64(7)); return next(c) }
		}
		e.POST("/api/planetarium/reservations", func(c echo.Context) error {
			return c.NoContent(http.StatusCreated)
		}, auth, newTokenBucket(cfg, rdb, nil, func() time.Time { return now }))
		return e, mock
	}
	post := func(e *echo.Echo) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/planetarium/reservations", nil))
		return rec
	}

	t.Run("allowed", func(t *testing.T) {
		e, mock := newServer()
		mock.ExpectEvalSha(tokenBucket.Hash(), []string{key}, args...).SetVal([]interface{}{int64(1), int64(4), int64(0)})
		rec := post(e)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("blocked", func(t *testing.T) {
		e, mock := newServer()
		mock.ExpectEvalSha(tokenBucket.Hash(), []string{key}, args...).SetVal([]interface{}{int64(0), int64(0), int64(1500)})
		rec := post(e)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, strconv.Itoa(2), rec.Header().Get("Retry-After"))
		assert.JSONEq(t, `{"error":"rate limit exceeded","code":"too_many_requests","retry_after":2}`, rec.Body.String())
	})

	t.Run("redis down fails open", func(t *testing.T) {
		e, mock := newServer()
		mock.ExpectEvalSha(tokenBucket.Hash(), []string{key}, args...).SetErr(errors.New("dial tcp: connection refused"))
		rec := post(e)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})
}
