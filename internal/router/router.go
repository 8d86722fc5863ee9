package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-booking-service/internal/handler"
)

// RegisterRoutes registers the health check.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterPublic registers endpoints that need no identity.  Guests can
// see which seats of a resource are still free.
func RegisterPublic(e *echo.Echo, s *handler.SeatHandler) {
	e.GET("/v1/resources/:id/seats/available", s.ListAvailable)
}

// RegisterCustomer registers the lock and booking endpoints under /v1.  mw
// is applied in order; it must start with an identity middleware
// (JWTAuth or TrustedHeader) so that handlers can read the caller.
func RegisterCustomer(e *echo.Echo, s *handler.SeatHandler, b *handler.BookingHandler, mw ...echo.MiddlewareFunc) {
	g := e.Group("/v1", mw...)

	g.POST("/resources/:id/seats/:label/lock", s.Lock)
	g.POST("/seats/:id/unlock", s.Unlock)

	g.POST("/bookings", b.PlaceBooking)
	g.POST("/bookings/seats", b.BookSeats)
	g.GET("/my-bookings", b.ListMine)
	g.GET("/bookings/:id", b.Get)
	g.DELETE("/bookings/:id", b.Cancel)
}
