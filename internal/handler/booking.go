package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/seat-booking-service/internal/model"
)

// Booker is the booking orchestrator as seen by the HTTP layer.
type Booker interface {
	PlaceBooking(ctx context.Context, userID, resourceID uint64, quantity int, notes string) (*model.Booking, error)
	BookSeats(ctx context.Context, userID, resourceID uint64, seatLabels []string, notes string) (*model.Booking, error)
	CancelBooking(ctx context.Context, bookingID, userID uint64) error
	ListUserBookings(ctx context.Context, userID uint64) ([]model.Booking, error)
	GetBooking(ctx context.Context, bookingID, userID uint64) (*model.Booking, error)
}

// BookingHandler serves the booking endpoints for an authenticated user.
type BookingHandler struct {
	Bookings Booker
	Logger   *zap.Logger
}

// NewBookingHandler panics on a nil service.
func NewBookingHandler(bookings Booker, logger *zap.Logger) *BookingHandler {
	if bookings == nil {
		panic("nil booking service passed to NewBookingHandler")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingHandler{Bookings: bookings, Logger: logger}
}

type placeBookingRequest struct {
	ResourceID uint64 `json:"resource_id"`
	Quantity   int    `json:"quantity"`
	Notes      string `json:"notes"`
}

type bookSeatsRequest struct {
	ResourceID uint64   `json:"resource_id"`
	SeatLabels []string `json:"seat_labels"`
	Notes      string   `json:"notes"`
}

// PlaceBooking handles POST /v1/bookings.
func (h *BookingHandler) PlaceBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var body placeBookingRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ResourceID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "resource_id is required"})
	}
	b, err := h.Bookings.PlaceBooking(c.Request().Context(), userID, body.ResourceID, body.Quantity, body.Notes)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// BookSeats handles POST /v1/bookings/seats.
func (h *BookingHandler) BookSeats(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var body bookSeatsRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ResourceID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "resource_id is required"})
	}
	if len(body.SeatLabels) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_labels is required"})
	}
	b, err := h.Bookings.BookSeats(c.Request().Context(), userID, body.ResourceID, body.SeatLabels, body.Notes)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// ListMine handles GET /v1/my-bookings.
func (h *BookingHandler) ListMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	items, err := h.Bookings.ListUserBookings(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	if items == nil {
		items = []model.Booking{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.Bookings.GetBooking(c.Request().Context(), id, userID)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Cancel handles DELETE /v1/bookings/:id.  Cancelling twice succeeds.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	if err := h.Bookings.CancelBooking(c.Request().Context(), id, userID); err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}
