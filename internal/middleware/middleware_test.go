package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/seat-booking-service/internal/config"
	"github.com/iliyamo/seat-booking-service/internal/utils"
)

// echoUser reports the user id the middleware chain stored.
func echoUser(c echo.Context) error {
	uid, _ := c.Get(ContextUserID).(uint64)
	return c.JSON(http.StatusOK, echo.Map{"user_id": uid})
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", echoUser, JWTAuth("secret"), RequireRole(utils.RoleCustomer))

	tok, err := utils.NewAccessToken("secret", 7, utils.RoleCustomer, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	rec := serve(e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":7}`, rec.Body.String())

	t.Run("missing header", func(t *testing.T) {
		rec := serve(e, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		bad, err := utils.NewAccessToken("other", 7, utils.RoleCustomer, time.Minute)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+bad.Token)
		assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)
	})

	t.Run("expired", func(t *testing.T) {
		old, err := utils.NewAccessToken("secret", 7, utils.RoleCustomer, -time.Minute)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+old.Token)
		assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)
	})

	t.Run("unknown role", func(t *testing.T) {
		other, err := utils.NewAccessToken("secret", 7, "GUEST", time.Minute)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+other.Token)
		assert.Equal(t, http.StatusForbidden, serve(e, req).Code)
	})
}

func TestTrustedHeader(t *testing.T) {
	e := echo.New()
	e.GET("/me", echoUser, TrustedHeader(), RequireRole(utils.RoleCustomer))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(UserIDHeader, " 12 ")
	rec := serve(e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":12}`, rec.Body.String())

	for _, v := range []string{"", "0", "-3", "abc"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(UserIDHeader, v)
		assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code, "header %q", v)
	}
}

func TestParseUserID(t *testing.T) {
	cases := []struct {
		in   interface{}
		want uint64
		ok   bool
	}{
		{uint64(5), 5, true},
		{float64(9), 9, true},
		{float64(1.5), 0, false},
		{float64(-1), 0, false},
		{"33", 33, true},
		{"0", 0, false},
		{nil, 0, false},
	}
	for _, tc := range cases {
		got, ok := parseUserID(tc.in)
		assert.Equal(t, tc.ok, ok, "%v", tc.in)
		assert.Equal(t, tc.want, got, "%v", tc.in)
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/bookings")
	c.Set(ContextUserID, uint64(4))

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user_route"}
	assert.Equal(t, "rl:user:4:route:POST /v1/bookings", buildRateKey(cfg, c))

	cfg.KeyStrategy = "user"
	c.Set(ContextUserID, nil)
	assert.Equal(t, "rl:user:anon", buildRateKey(cfg, c))
}

func TestNewTokenBucket_PassThrough(t *testing.T) {
	e := echo.New()
	e.GET("/x", echoUser, NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, nil))
	assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
}

func TestNewTokenBucket_FailsOpenOnRedisError(t *testing.T) {
	// No expectations: every command fails.
	rdb, _ := redismock.NewClientMock()

	core, logs := observer.New(zap.WarnLevel)
	cfg := config.LoadRateLimitConfig()
	e := echo.New()
	e.GET("/x", echoUser, NewTokenBucket(cfg, rdb, zap.New(core)))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, logs.FilterMessage("rate limiter unavailable").Len())
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	e := echo.New()
	e.Use(RequestLogger(zap.New(core)))
	e.GET("/ok", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	serve(e, httptest.NewRequest(http.MethodGet, "/ok", nil))
	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(http.StatusOK), entries[0].ContextMap()["status"])
	assert.Equal(t, "/ok", entries[0].ContextMap()["uri"])
}

func TestAsInt64(t *testing.T) {
	assert.Equal(t, int64(3), asInt64(int64(3)))
	assert.Equal(t, int64(2), asInt64(float64(2)))
	assert.Equal(t, int64(7), asInt64("7"))
	assert.Equal(t, int64(0), asInt64(nil))
}
