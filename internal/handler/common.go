package handler // handler defines the HTTP handlers of the booking API

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/seat-booking-service/internal/middleware"
	"github.com/iliyamo/seat-booking-service/internal/service"
)

// getUserID extracts the caller id stored by the identity middleware.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get(middleware.ContextUserID).(type) {
	case uint64:
		if t > 0 {
			return t, nil
		}
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil && n > 0 {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	return n, err == nil && n > 0
}

// statusFor maps service error kinds onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrCapacityExceeded):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError writes err as {"error": ...}.  Internal failures are logged
// and hidden from the client.
func respondError(c echo.Context, logger *zap.Logger, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.JSON(status, echo.Map{"error": "internal error"})
	}
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		return c.JSON(status, echo.Map{"error": svcErr.Msg})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}
