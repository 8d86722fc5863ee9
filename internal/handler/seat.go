package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/seat-booking-service/internal/model"
	"github.com/iliyamo/seat-booking-service/internal/service"
)

// SeatLocker is the part of the seat lock service the HTTP layer uses.
type SeatLocker interface {
	Lock(ctx context.Context, resourceID uint64, label string, userID uint64) (bool, error)
	SeatExists(ctx context.Context, resourceID uint64, label string) (bool, error)
	ReleaseHold(ctx context.Context, seatID, userID uint64) error
	ListAvailable(ctx context.Context, resourceID uint64) ([]model.Seat, error)
	LeaseWindow() time.Duration
}

// SeatHandler serves seat availability and seat locks.
type SeatHandler struct {
	Seats  SeatLocker
	Logger *zap.Logger
}

// NewSeatHandler panics on a nil service.
func NewSeatHandler(seats SeatLocker, logger *zap.Logger) *SeatHandler {
	if seats == nil {
		panic("nil seat service passed to NewSeatHandler")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeatHandler{Seats: seats, Logger: logger}
}

// ListAvailable handles GET /v1/resources/:id/seats/available.
func (h *SeatHandler) ListAvailable(c echo.Context) error {
	resourceID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid resource id"})
	}
	seats, err := h.Seats.ListAvailable(c.Request().Context(), resourceID)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	if seats == nil {
		seats = []model.Seat{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": seats})
}

// Lock handles POST /v1/resources/:id/seats/:label/lock.  A lost race is
// reported as 409; 404 means the label does not exist on the resource.
func (h *SeatHandler) Lock(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	resourceID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid resource id"})
	}
	label := service.NormalizeLabel(c.Param("label"))
	if label == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat label is required"})
	}

	ctx := c.Request().Context()
	locked, err := h.Seats.Lock(ctx, resourceID, label, userID)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	if !locked {
		exists, err := h.Seats.SeatExists(ctx, resourceID, label)
		if err != nil {
			return respondError(c, h.Logger, err)
		}
		if !exists {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
		}
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat is not available"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":     true,
		"resource_id": resourceID,
		"seat_label":  label,
		"expires_at":  time.Now().UTC().Add(h.Seats.LeaseWindow()),
	})
}

// Unlock handles POST /v1/seats/:id/unlock.  Only the holder may release.
func (h *SeatHandler) Unlock(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	seatID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}
	if err := h.Seats.ReleaseHold(c.Request().Context(), seatID, userID); err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}
