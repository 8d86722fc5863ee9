package middleware

// identity.go covers deployments where an upstream gateway has already
// authenticated the caller and forwards the user id in a header.

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// UserIDHeader is the header read by TrustedHeader.
const UserIDHeader = "X-User-Id"

// TrustedHeader copies a positive integer user id from the X-User-Id header
// into the context.  It must only be used behind a gateway that strips the
// header from client requests.
func TrustedHeader() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid, ok := parseUserID(strings.TrimSpace(c.Request().Header.Get(UserIDHeader)))
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing or invalid " + UserIDHeader + " header"})
			}
			c.Set(ContextUserID, uid)
			return next(c)
		}
	}
}

// parseUserID accepts the shapes a subject can take after JSON decoding.
func parseUserID(v interface{}) (uint64, bool) {
	switch t := v.(type) {
	case uint64:
		return t, t > 0
	case float64:
		if t < 1 || t != float64(uint64(t)) {
			return 0, false
		}
		return uint64(t), true
	case string:
		n, err := strconv.ParseUint(t, 10, 64)
		return n, err == nil && n > 0
	}
	return 0, false
}

// userID renders the caller for rate-limit keys; "anon" when unknown.
func userID(c echo.Context) string {
	if v, ok := c.Get(ContextUserID).(uint64); ok && v > 0 {
		return strconv.FormatUint(v, 10)
	}
	return "anon"
}
