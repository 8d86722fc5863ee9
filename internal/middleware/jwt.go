package middleware // middleware provides identity, rate limiting and request logging for the API

import (
	"net/http" // HTTP status codes for rejections
	"strings"  // prefix checks on the Authorization header

	"github.com/golang-jwt/jwt/v5" // parsing and validating access tokens
	"github.com/labstack/echo/v4"  // middleware and context types
)

// Context keys set by the identity middleware.
const (
	ContextUserID = "user_id" // uint64 id of the caller
	ContextRole   = "role"    // role claim, absent in trusted-header mode
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the token's subject and role claims into the request context.  The
// provided secret must match the one used when issuing tokens.  Handlers read
// the caller via c.Get("user_id"), which always holds a positive uint64.
func JWTAuth(secret string) echo.MiddlewareFunc {
	// Built once per route group; the inner closure runs per request.
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// The header must look like "Bearer <token>".
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			// Drop the scheme to get the raw token.
			raw := strings.TrimPrefix(auth, "Bearer ")

			// Parse and verify the signature.  Only HMAC-signed tokens are
			// accepted; any other algorithm is rejected before the key is
			// handed out.  Expiry is checked by the parser.
			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			// Bad signature, expired, or malformed.
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			// Claims arrive as a generic map.
			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}
			// sub decodes as float64 from JSON; parseUserID also takes
			// strings and rejects zero, negatives and fractions.
			uid, ok := parseUserID(claims["sub"])
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid subject"})
			}

			// Hand the caller to RequireRole and the handlers.
			c.Set(ContextUserID, uid)
			c.Set(ContextRole, claims["role"])
			return next(c)
		}
	}
}
