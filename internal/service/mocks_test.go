package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/seat-booking-service/internal/model"
	"github.com/iliyamo/seat-booking-service/internal/queue"
)

type mockSeatStore struct{ mock.Mock }

func (m *mockSeatStore) GetByID(ctx context.Context, id uint64) (*model.Seat, error) {
	args := m.Called(ctx, id)
	seat, _ := args.Get(0).(*model.Seat)
	return seat, args.Error(1)
}

func (m *mockSeatStore) GetByLabel(ctx context.Context, resourceID uint64, label string) (*model.Seat, error) {
	args := m.Called(ctx, resourceID, label)
	seat, _ := args.Get(0).(*model.Seat)
	return seat, args.Error(1)
}

func (m *mockSeatStore) ListAvailable(ctx context.Context, resourceID uint64) ([]model.Seat, error) {
	args := m.Called(ctx, resourceID)
	seats, _ := args.Get(0).([]model.Seat)
	return seats, args.Error(1)
}

func (m *mockSeatStore) TryLock(ctx context.Context, resourceID uint64, label string, userID uint64, at time.Time) (bool, error) {
	args := m.Called(ctx, resourceID, label, userID, at)
	return args.Bool(0), args.Error(1)
}

func (m *mockSeatStore) Unlock(ctx context.Context, seatID uint64, ownerID *uint64) (bool, error) {
	args := m.Called(ctx, seatID, ownerID)
	return args.Bool(0), args.Error(1)
}

func (m *mockSeatStore) MarkBooked(ctx context.Context, seatID uint64) error {
	return m.Called(ctx, seatID).Error(0)
}

func (m *mockSeatStore) ReleaseExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockSeatStore) ForUpdateByLabelsTx(ctx context.Context, tx *sql.Tx, resourceID uint64, labels []string) ([]model.Seat, error) {
	args := m.Called(ctx, tx, resourceID, labels)
	seats, _ := args.Get(0).([]model.Seat)
	return seats, args.Error(1)
}

func (m *mockSeatStore) MarkBookedTx(ctx context.Context, tx *sql.Tx, seatIDs []uint64) error {
	return m.Called(ctx, tx, seatIDs).Error(0)
}

func (m *mockSeatStore) ReleaseForBookingTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (int64, error) {
	args := m.Called(ctx, tx, bookingID)
	return args.Get(0).(int64), args.Error(1)
}

type mockCache struct{ mock.Mock }

func (m *mockCache) Generation(ctx context.Context, resourceID uint64) (string, bool) {
	args := m.Called(ctx, resourceID)
	return args.String(0), args.Bool(1)
}

func (m *mockCache) Get(ctx context.Context, resourceID uint64, gen string) ([]model.Seat, bool) {
	args := m.Called(ctx, resourceID, gen)
	seats, _ := args.Get(0).([]model.Seat)
	return seats, args.Bool(1)
}

func (m *mockCache) Set(ctx context.Context, resourceID uint64, gen string, seats []model.Seat) {
	m.Called(ctx, resourceID, gen, seats)
}

func (m *mockCache) Invalidate(ctx context.Context, resourceID uint64) {
	m.Called(ctx, resourceID)
}

func (m *mockCache) InvalidateAll(ctx context.Context) {
	m.Called(ctx)
}

type mockLedger struct{ mock.Mock }

func (m *mockLedger) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	return m.Called(ctx, tx, b).Error(0)
}

func (m *mockLedger) AddSeatsTx(ctx context.Context, tx *sql.Tx, bookingID uint64, seatIDs []uint64) error {
	return m.Called(ctx, tx, bookingID, seatIDs).Error(0)
}

func (m *mockLedger) SumConfirmedTicketsTx(ctx context.Context, tx *sql.Tx, resourceID uint64) (int, error) {
	args := m.Called(ctx, tx, resourceID)
	return args.Int(0), args.Error(1)
}

func (m *mockLedger) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	args := m.Called(ctx, tx, id)
	b, _ := args.Get(0).(*model.Booking)
	return b, args.Error(1)
}

func (m *mockLedger) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.BookingStatus) error {
	return m.Called(ctx, tx, id, status).Error(0)
}

func (m *mockLedger) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).(*model.Booking)
	return b, args.Error(1)
}

func (m *mockLedger) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	args := m.Called(ctx, userID)
	bookings, _ := args.Get(0).([]model.Booking)
	return bookings, args.Error(1)
}

type mockCatalog struct{ mock.Mock }

func (m *mockCatalog) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Resource, error) {
	args := m.Called(ctx, tx, id)
	res, _ := args.Get(0).(*model.Resource)
	return res, args.Error(1)
}

type mockUsers struct{ mock.Mock }

func (m *mockUsers) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishBookingConfirmed(ctx context.Context, event queue.BookingConfirmedEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockPublisher) PublishBookingCancelled(ctx context.Context, event queue.BookingCancelledEvent) error {
	return m.Called(ctx, event).Error(0)
}

type mockResourceWriter struct{ mock.Mock }

func (m *mockResourceWriter) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Resource) error {
	return m.Called(ctx, tx, res).Error(0)
}

func (m *mockResourceWriter) GetByName(ctx context.Context, name string) (*model.Resource, error) {
	args := m.Called(ctx, name)
	res, _ := args.Get(0).(*model.Resource)
	return res, args.Error(1)
}

func (m *mockResourceWriter) ListWithoutSeats(ctx context.Context) ([]uint64, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]uint64)
	return ids, args.Error(1)
}

type mockGridWriter struct{ mock.Mock }

func (m *mockGridWriter) CreateGridTx(ctx context.Context, tx *sql.Tx, resourceID uint64, labels []string) error {
	return m.Called(ctx, tx, resourceID, labels).Error(0)
}
