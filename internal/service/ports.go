package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/seat-booking-service/internal/model"
	"github.com/iliyamo/seat-booking-service/internal/queue"
)

// SeatStore is the persistence behind the seat lock manager.
// *repository.SeatRepo implements it.
type SeatStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Seat, error)
	GetByLabel(ctx context.Context, resourceID uint64, label string) (*model.Seat, error)
	ListAvailable(ctx context.Context, resourceID uint64) ([]model.Seat, error)
	TryLock(ctx context.Context, resourceID uint64, label string, userID uint64, at time.Time) (bool, error)
	Unlock(ctx context.Context, seatID uint64, ownerID *uint64) (bool, error)
	MarkBooked(ctx context.Context, seatID uint64) error
	ReleaseExpired(ctx context.Context, cutoff time.Time) (int64, error)

	ForUpdateByLabelsTx(ctx context.Context, tx *sql.Tx, resourceID uint64, labels []string) ([]model.Seat, error)
	MarkBookedTx(ctx context.Context, tx *sql.Tx, seatIDs []uint64) error
	ReleaseForBookingTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (int64, error)
}

// AvailabilityCache holds recently listed available seats per resource.
// Implementations must tolerate being unreachable; misses fall through to
// the store.
type AvailabilityCache interface {
	Generation(ctx context.Context, resourceID uint64) (string, bool)
	Get(ctx context.Context, resourceID uint64, gen string) ([]model.Seat, bool)
	Set(ctx context.Context, resourceID uint64, gen string, seats []model.Seat)
	Invalidate(ctx context.Context, resourceID uint64)
	InvalidateAll(ctx context.Context)
}

// BookingLedger is implemented by *repository.BookingRepo.
type BookingLedger interface {
	CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error
	AddSeatsTx(ctx context.Context, tx *sql.Tx, bookingID uint64, seatIDs []uint64) error
	SumConfirmedTicketsTx(ctx context.Context, tx *sql.Tx, resourceID uint64) (int, error)
	GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error)
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.BookingStatus) error
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
}

// ResourceCatalog is the part of the resource catalog the orchestrator needs.
type ResourceCatalog interface {
	GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Resource, error)
}

// UserDirectory resolves user ids.
type UserDirectory interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// EventPublisher delivers booking events to the broker.  *queue.Publisher
// implements it.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, event queue.BookingConfirmedEvent) error
	PublishBookingCancelled(ctx context.Context, event queue.BookingCancelledEvent) error
}
