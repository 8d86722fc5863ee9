package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-booking-service/internal/middleware"
	"github.com/iliyamo/seat-booking-service/internal/model"
	"github.com/iliyamo/seat-booking-service/internal/service"
)

type mockSeats struct{ mock.Mock }

func (m *mockSeats) Lock(ctx context.Context, resourceID uint64, label string, userID uint64) (bool, error) {
	args := m.Called(ctx, resourceID, label, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockSeats) SeatExists(ctx context.Context, resourceID uint64, label string) (bool, error) {
	args := m.Called(ctx, resourceID, label)
	return args.Bool(0), args.Error(1)
}

func (m *mockSeats) ReleaseHold(ctx context.Context, seatID, userID uint64) error {
	return m.Called(ctx, seatID, userID).Error(0)
}

func (m *mockSeats) ListAvailable(ctx context.Context, resourceID uint64) ([]model.Seat, error) {
	args := m.Called(ctx, resourceID)
	seats, _ := args.Get(0).([]model.Seat)
	return seats, args.Error(1)
}

func (m *mockSeats) LeaseWindow() time.Duration { return 5 * time.Minute }

type mockBooker struct{ mock.Mock }

func (m *mockBooker) PlaceBooking(ctx context.Context, userID, resourceID uint64, quantity int, notes string) (*model.Booking, error) {
	args := m.Called(ctx, userID, resourceID, quantity, notes)
	b, _ := args.Get(0).(*model.Booking)
	return b, args.Error(1)
}

func (m *mockBooker) BookSeats(ctx context.Context, userID, resourceID uint64, seatLabels []string, notes string) (*model.Booking, error) {
	args := m.Called(ctx, userID, resourceID, seatLabels, notes)
	b, _ := args.Get(0).(*model.Booking)
	return b, args.Error(1)
}

func (m *mockBooker) CancelBooking(ctx context.Context, bookingID, userID uint64) error {
	return m.Called(ctx, bookingID, userID).Error(0)
}

func (m *mockBooker) ListUserBookings(ctx context.Context, userID uint64) ([]model.Booking, error) {
	args := m.Called(ctx, userID)
	items, _ := args.Get(0).([]model.Booking)
	return items, args.Error(1)
}

func (m *mockBooker) GetBooking(ctx context.Context, bookingID, userID uint64) (*model.Booking, error) {
	args := m.Called(ctx, bookingID, userID)
	b, _ := args.Get(0).(*model.Booking)
	return b, args.Error(1)
}

// asUser stands in for the identity middleware.
func asUser(id uint64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(middleware.ContextUserID, id)
			return next(c)
		}
	}
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func svcErr(kind error, msg string) error { return &service.Error{Kind: kind, Msg: msg} }

func seatServer(seats *mockSeats) *echo.Echo {
	e := echo.New()
	h := NewSeatHandler(seats, nil)
	e.GET("/v1/resources/:id/seats/available", h.ListAvailable)
	e.POST("/v1/resources/:id/seats/:label/lock", h.Lock, asUser(3))
	e.POST("/v1/seats/:id/unlock", h.Unlock, asUser(3))
	return e
}

func TestSeatHandler_Lock(t *testing.T) {
	t.Run("locked", func(t *testing.T) {
		seats := new(mockSeats)
		seats.On("Lock", mock.Anything, uint64(1), "A1", uint64(3)).Return(true, nil)
		rec := do(seatServer(seats), http.MethodPost, "/v1/resources/1/seats/a1/lock", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"success":true`)
		assert.Contains(t, rec.Body.String(), `"seat_label":"A1"`)
	})

	t.Run("taken", func(t *testing.T) {
		seats := new(mockSeats)
		seats.On("Lock", mock.Anything, uint64(1), "A1", uint64(3)).Return(false, nil)
		seats.On("SeatExists", mock.Anything, uint64(1), "A1").Return(true, nil)
		rec := do(seatServer(seats), http.MethodPost, "/v1/resources/1/seats/A1/lock", "")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("missing seat", func(t *testing.T) {
		seats := new(mockSeats)
		seats.On("Lock", mock.Anything, uint64(1), "Z9", uint64(3)).Return(false, nil)
		seats.On("SeatExists", mock.Anything, uint64(1), "Z9").Return(false, nil)
		rec := do(seatServer(seats), http.MethodPost, "/v1/resources/1/seats/Z9/lock", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("store failure", func(t *testing.T) {
		seats := new(mockSeats)
		seats.On("Lock", mock.Anything, uint64(1), "A1", uint64(3)).Return(false, errors.New("db down"))
		rec := do(seatServer(seats), http.MethodPost, "/v1/resources/1/seats/A1/lock", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
	})

	t.Run("bad resource id", func(t *testing.T) {
		rec := do(seatServer(new(mockSeats)), http.MethodPost, "/v1/resources/x/seats/A1/lock", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSeatHandler_Unlock(t *testing.T) {
	seats := new(mockSeats)
	seats.On("ReleaseHold", mock.Anything, uint64(9), uint64(3)).Return(nil).Once()
	seats.On("ReleaseHold", mock.Anything, uint64(10), uint64(3)).Return(svcErr(service.ErrForbidden, "seat B1 is held by another user")).Once()
	e := seatServer(seats)

	assert.Equal(t, http.StatusNoContent, do(e, http.MethodPost, "/v1/seats/9/unlock", "").Code)
	rec := do(e, http.MethodPost, "/v1/seats/10/unlock", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"seat B1 is held by another user"}`, rec.Body.String())
}

func TestSeatHandler_ListAvailable(t *testing.T) {
	seats := new(mockSeats)
	seats.On("ListAvailable", mock.Anything, uint64(2)).Return([]model.Seat{{ID: 1, ResourceID: 2, Label: "A1", Status: model.SeatAvailable}}, nil)
	seats.On("ListAvailable", mock.Anything, uint64(3)).Return(nil, nil)
	e := seatServer(seats)

	rec := do(e, http.MethodGet, "/v1/resources/2/seats/available", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"seat_label":"A1"`)

	rec = do(e, http.MethodGet, "/v1/resources/3/seats/available", "")
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
}

func bookingServer(b *mockBooker) *echo.Echo {
	e := echo.New()
	h := NewBookingHandler(b, nil)
	g := e.Group("/v1", asUser(5))
	g.POST("/bookings", h.PlaceBooking)
	g.POST("/bookings/seats", h.BookSeats)
	g.GET("/my-bookings", h.ListMine)
	g.GET("/bookings/:id", h.Get)
	g.DELETE("/bookings/:id", h.Cancel)
	return e
}

func TestBookingHandler_PlaceBooking(t *testing.T) {
	b := new(mockBooker)
	b.On("PlaceBooking", mock.Anything, uint64(5), uint64(1), 2, "aisle").
		Return(&model.Booking{ID: 11, UserID: 5, ResourceID: 1, Status: model.BookingConfirmed, NumberOfTickets: 2}, nil)
	b.On("PlaceBooking", mock.Anything, uint64(5), uint64(1), 500, "").
		Return(nil, svcErr(service.ErrCapacityExceeded, "not enough capacity, available: 98"))
	b.On("PlaceBooking", mock.Anything, uint64(5), uint64(2), 1, "").
		Return(nil, svcErr(service.ErrInvalidState, "event already started"))
	b.On("PlaceBooking", mock.Anything, uint64(5), uint64(1), 0, "").
		Return(nil, svcErr(service.ErrInvalidInput, "number of tickets must be at least 1"))
	e := bookingServer(b)

	rec := do(e, http.MethodPost, "/v1/bookings", `{"resource_id":1,"quantity":2,"notes":"aisle"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"CONFIRMED"`)

	rec = do(e, http.MethodPost, "/v1/bookings", `{"resource_id":1,"quantity":500}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"not enough capacity, available: 98"}`, rec.Body.String())

	rec = do(e, http.MethodPost, "/v1/bookings", `{"resource_id":2,"quantity":1}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"event already started"}`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/v1/bookings", `{"resource_id":1,"quantity":0}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/v1/bookings", `{"quantity":1}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/v1/bookings", `{bad`).Code)
}

func TestBookingHandler_BookSeats(t *testing.T) {
	b := new(mockBooker)
	b.On("BookSeats", mock.Anything, uint64(5), uint64(1), []string{"A1", "A2"}, "").
		Return(&model.Booking{ID: 12, NumberOfTickets: 2, SeatLabels: []string{"A1", "A2"}, Status: model.BookingConfirmed}, nil)
	b.On("BookSeats", mock.Anything, uint64(5), uint64(1), []string{"A3"}, "").
		Return(nil, svcErr(service.ErrConflict, "seat A3 is not available"))
	e := bookingServer(b)

	rec := do(e, http.MethodPost, "/v1/bookings/seats", `{"resource_id":1,"seat_labels":["A1","A2"]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"seat_labels":["A1","A2"]`)

	assert.Equal(t, http.StatusConflict, do(e, http.MethodPost, "/v1/bookings/seats", `{"resource_id":1,"seat_labels":["A3"]}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/v1/bookings/seats", `{"resource_id":1,"seat_labels":[]}`).Code)
}

func TestBookingHandler_ListGetCancel(t *testing.T) {
	b := new(mockBooker)
	b.On("ListUserBookings", mock.Anything, uint64(5)).Return([]model.Booking{{ID: 2}, {ID: 1}}, nil)
	b.On("GetBooking", mock.Anything, uint64(2), uint64(5)).Return(&model.Booking{ID: 2, UserID: 5}, nil)
	b.On("GetBooking", mock.Anything, uint64(3), uint64(5)).Return(nil, svcErr(service.ErrForbidden, "booking belongs to another user"))
	b.On("CancelBooking", mock.Anything, uint64(2), uint64(5)).Return(nil)
	b.On("CancelBooking", mock.Anything, uint64(404), uint64(5)).Return(svcErr(service.ErrNotFound, "booking 404 not found"))
	e := bookingServer(b)

	rec := do(e, http.MethodGet, "/v1/my-bookings", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"items":[{"id":2`)

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/v1/bookings/2", "").Code)
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/v1/bookings/3", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/v1/bookings/0", "").Code)

	assert.Equal(t, http.StatusNoContent, do(e, http.MethodDelete, "/v1/bookings/2", "").Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodDelete, "/v1/bookings/404", "").Code)
}

func TestBookingHandler_RequiresUser(t *testing.T) {
	e := echo.New()
	h := NewBookingHandler(new(mockBooker), nil)
	e.GET("/v1/my-bookings", h.ListMine)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/v1/my-bookings", "").Code)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	e := echo.New()
	e.GET("/up", Health(pingFunc(func(context.Context) error { return nil })))
	e.GET("/down", Health(pingFunc(func(context.Context) error { return errors.New("gone") })))
	e.GET("/nodb", Health(nil))

	rec := do(e, http.MethodGet, "/up", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, http.StatusServiceUnavailable, do(e, http.MethodGet, "/down", "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/nodb", "").Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(svcErr(service.ErrNotFound, "")))
	assert.Equal(t, http.StatusConflict, statusFor(svcErr(service.ErrConflict, "")))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
