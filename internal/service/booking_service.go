package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/seat-booking-service/internal/database"
	"github.com/iliyamo/seat-booking-service/internal/model"
	"github.com/iliyamo/seat-booking-service/internal/queue"
	"github.com/iliyamo/seat-booking-service/internal/repository"
)

// DefaultMaxSeatsPerBooking bounds the labels accepted by BookSeats.  It is
// also the ceiling: larger configured limits are clamped to it.
const DefaultMaxSeatsPerBooking = 10

const publishTimeout = 3 * time.Second

// BookingServiceDeps collects the collaborators of BookingService.  Events
// and Logger are optional.
type BookingServiceDeps struct {
	DB        database.TxBeginner
	Seats     *SeatLockService
	Bookings  BookingLedger
	Resources ResourceCatalog
	Users     UserDirectory
	Events    EventPublisher
	Logger    *zap.Logger

	// ReleaseSeatsOnCancel returns a cancelled seat booking's seats to
	// AVAILABLE.  Off by default: cancelled seats stay BOOKED.
	ReleaseSeatsOnCancel bool
	MaxSeatsPerBooking   int
}

// BookingService is the booking orchestrator.  Every decision that reads
// shared state and then writes runs inside one transaction that holds the
// resource row lock, so concurrent requests for the same resource are
// serialised while different resources proceed in parallel.
type BookingService struct {
	db                   database.TxBeginner
	seats                *SeatLockService
	bookings             BookingLedger
	resources            ResourceCatalog
	users                UserDirectory
	events               EventPublisher
	logger               *zap.Logger
	releaseSeatsOnCancel bool
	maxSeats             int
	publishTimeout       time.Duration
	now                  func() time.Time
}

func NewBookingService(d BookingServiceDeps) *BookingService {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxSeats := d.MaxSeatsPerBooking
	if maxSeats < 1 || maxSeats > DefaultMaxSeatsPerBooking {
		maxSeats = DefaultMaxSeatsPerBooking
	}
	return &BookingService{
		db:                   d.DB,
		seats:                d.Seats,
		bookings:             d.Bookings,
		resources:            d.Resources,
		users:                d.Users,
		events:               d.Events,
		logger:               logger.Named("booking"),
		releaseSeatsOnCancel: d.ReleaseSeatsOnCancel,
		maxSeats:             maxSeats,
		publishTimeout:       publishTimeout,
		now:                  time.Now,
	}
}

// PlaceBooking books quantity tickets on a resource without choosing seats.
// The capacity check and the insert happen under the resource row lock, so
// confirmed tickets never exceed capacity.  A nil capacity is unlimited.
func (s *BookingService) PlaceBooking(ctx context.Context, userID, resourceID uint64, quantity int, notes string) (*model.Booking, error) {
	if quantity < 1 {
		return nil, newError(ErrInvalidInput, "number of tickets must be at least 1")
	}
	if err := s.checkUser(ctx, userID); err != nil {
		return nil, err
	}

	var booking *model.Booking
	var resource *model.Resource
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := s.lockResource(ctx, tx, resourceID)
		if err != nil {
			return err
		}
		if err := s.checkCapacity(ctx, tx, res, quantity); err != nil {
			return err
		}
		b := newBooking(userID, res, quantity, notes)
		if err := s.bookings.CreateTx(ctx, tx, b); err != nil {
			return err
		}
		booking, resource = b, res
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking confirmed",
		zap.Uint64("booking_id", booking.ID), zap.Uint64("user_id", userID),
		zap.Uint64("resource_id", resourceID), zap.Int("tickets", quantity))
	s.publishConfirmed(ctx, *booking, resource.Name)
	return booking, nil
}

// BookSeats books specific seats.  All seats are row-locked and validated
// before any of them changes: a missing seat, a BOOKED seat or a seat
// LOCKED by another user fails the whole request and nothing is written.
// Seats LOCKED by the caller are accepted even if their lease has lapsed
// but the sweeper has not yet released them.
func (s *BookingService) BookSeats(ctx context.Context, userID, resourceID uint64, seatLabels []string, notes string) (*model.Booking, error) {
	labels, err := s.normalizeLabels(seatLabels)
	if err != nil {
		return nil, err
	}
	if err := s.checkUser(ctx, userID); err != nil {
		return nil, err
	}

	var booking *model.Booking
	var resource *model.Resource
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := s.lockResource(ctx, tx, resourceID)
		if err != nil {
			return err
		}
		seats, err := s.seats.lockSeatsTx(ctx, tx, resourceID, labels)
		if err != nil {
			return err
		}
		seatIDs, err := validateSeats(labels, seats, userID)
		if err != nil {
			return err
		}
		if err := s.checkCapacity(ctx, tx, res, len(seatIDs)); err != nil {
			return err
		}
		if err := s.seats.markBookedTx(ctx, tx, seatIDs); err != nil {
			return err
		}
		b := newBooking(userID, res, len(seatIDs), notes)
		b.SeatLabels = labels
		if err := s.bookings.CreateTx(ctx, tx, b); err != nil {
			return err
		}
		if err := s.bookings.AddSeatsTx(ctx, tx, b.ID, seatIDs); err != nil {
			return fmt.Errorf("link booking seats: %w", err)
		}
		booking, resource = b, res
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.seats.invalidate(ctx, resourceID)
	s.logger.Info("seat booking confirmed",
		zap.Uint64("booking_id", booking.ID), zap.Uint64("user_id", userID),
		zap.Uint64("resource_id", resourceID), zap.Strings("seats", labels))
	s.publishConfirmed(ctx, *booking, resource.Name)
	return booking, nil
}

// CancelBooking cancels a booking owned by userID.  Cancelling an already
// cancelled booking succeeds without changes.  Seats stay BOOKED unless
// the service was built with ReleaseSeatsOnCancel.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, userID uint64) error {
	var cancelled *model.Booking
	var released int64
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		b, err := s.bookings.GetByIDForUpdateTx(ctx, tx, bookingID)
		if errors.Is(err, repository.ErrBookingNotFound) {
			return newError(ErrNotFound, "booking %d not found", bookingID)
		}
		if err != nil {
			return err
		}
		if b.UserID != userID {
			return newError(ErrForbidden, "not authorized to cancel this booking")
		}
		if b.Status == model.BookingCancelled {
			return nil
		}
		if err := s.bookings.UpdateStatusTx(ctx, tx, b.ID, model.BookingCancelled); err != nil {
			return err
		}
		if s.releaseSeatsOnCancel {
			n, err := s.seats.releaseBookedTx(ctx, tx, b.ID)
			if err != nil {
				return err
			}
			released = n
		}
		b.Status = model.BookingCancelled
		cancelled = b
		return nil
	})
	if err != nil {
		return err
	}
	if cancelled == nil {
		return nil
	}

	if released > 0 {
		s.seats.invalidate(ctx, cancelled.ResourceID)
	}
	s.logger.Info("booking cancelled",
		zap.Uint64("booking_id", bookingID), zap.Uint64("user_id", userID), zap.Int64("seats_released", released))
	if s.events != nil {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
		defer cancel()
		if err := s.events.PublishBookingCancelled(pctx, queue.NewBookingCancelled(*cancelled, released, s.now())); err != nil {
			s.logger.Warn("publish booking.cancelled failed", zap.Uint64("booking_id", bookingID), zap.Error(err))
		}
	}
	return nil
}

// ListUserBookings returns the user's bookings, newest first.
func (s *BookingService) ListUserBookings(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return s.bookings.ListByUser(ctx, userID)
}

// GetBooking returns one booking if it belongs to userID.
func (s *BookingService) GetBooking(ctx context.Context, bookingID, userID uint64) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if errors.Is(err, repository.ErrBookingNotFound) {
		return nil, newError(ErrNotFound, "booking %d not found", bookingID)
	}
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, newError(ErrForbidden, "not authorized to view this booking")
	}
	return b, nil
}

func (s *BookingService) checkUser(ctx context.Context, userID uint64) error {
	_, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return newError(ErrNotFound, "user %d not found", userID)
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	return nil
}

// lockResource takes the resource row lock and rejects events that have
// already started.
func (s *BookingService) lockResource(ctx context.Context, tx *sql.Tx, resourceID uint64) (*model.Resource, error) {
	res, err := s.resources.GetByIDForUpdateTx(ctx, tx, resourceID)
	if errors.Is(err, repository.ErrResourceNotFound) {
		return nil, newError(ErrNotFound, "resource %d not found", resourceID)
	}
	if err != nil {
		return nil, fmt.Errorf("lock resource: %w", err)
	}
	if res.Started(s.now()) {
		return nil, newError(ErrInvalidState, "event already started")
	}
	return res, nil
}

// checkCapacity applies to both booking modes so quantity and seat bookings
// on one resource share the same ticket budget.
func (s *BookingService) checkCapacity(ctx context.Context, tx *sql.Tx, res *model.Resource, want int) error {
	if res.Capacity == nil {
		return nil
	}
	booked, err := s.bookings.SumConfirmedTicketsTx(ctx, tx, res.ID)
	if err != nil {
		return fmt.Errorf("sum confirmed tickets: %w", err)
	}
	if booked+want > *res.Capacity {
		remaining := *res.Capacity - booked
		if remaining < 0 {
			remaining = 0
		}
		return newError(ErrCapacityExceeded, "not enough capacity, available: %d", remaining)
	}
	return nil
}

func (s *BookingService) normalizeLabels(in []string) ([]string, error) {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, l := range in {
		l = NormalizeLabel(l)
		if l == "" {
			continue
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	if len(out) == 0 {
		return nil, newError(ErrInvalidInput, "seat_labels is required")
	}
	if len(out) > s.maxSeats {
		return nil, newError(ErrInvalidInput, "at most %d seats per booking", s.maxSeats)
	}
	return out, nil
}

// validateSeats checks every requested label against the locked rows and
// returns the seat ids in row-lock order.
func validateSeats(labels []string, seats []model.Seat, userID uint64) ([]uint64, error) {
	byLabel := make(map[string]model.Seat, len(seats))
	for _, seat := range seats {
		byLabel[seat.Label] = seat
	}
	for _, l := range labels {
		if _, ok := byLabel[l]; !ok {
			return nil, newError(ErrNotFound, "seat %s not found", l)
		}
	}
	ids := make([]uint64, 0, len(seats))
	for _, seat := range seats {
		switch {
		case seat.Status == model.SeatBooked:
			return nil, newError(ErrConflict, "seat %s is already booked", seat.Label)
		case seat.Status == model.SeatLocked && !seat.LockedBy(userID):
			return nil, newError(ErrConflict, "seat %s is locked by another user", seat.Label)
		}
		ids = append(ids, seat.ID)
	}
	return ids, nil
}

func newBooking(userID uint64, res *model.Resource, tickets int, notes string) *model.Booking {
	b := &model.Booking{
		UserID:          userID,
		ResourceID:      res.ID,
		Status:          model.BookingConfirmed,
		NumberOfTickets: tickets,
		StartTime:       res.StartTime,
		EndTime:         res.EndTime,
	}
	if n := strings.TrimSpace(notes); n != "" {
		b.Notes = &n
	}
	return b
}

func (s *BookingService) publishConfirmed(ctx context.Context, b model.Booking, resourceName string) {
	if s.events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()
	if err := s.events.PublishBookingConfirmed(pctx, queue.NewBookingConfirmed(b, resourceName, s.now())); err != nil {
		s.logger.Warn("publish booking.confirmed failed", zap.Uint64("booking_id", b.ID), zap.Error(err))
	}
}
