package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/seat-booking-service/internal/model"
	"github.com/iliyamo/seat-booking-service/internal/repository"
)

// DefaultLockLease is how long a seat stays LOCKED before the sweeper may
// return it to AVAILABLE.  Leases are not renewable.
const DefaultLockLease = 5 * time.Minute

// SeatLockService owns every seat state transition.  Single-seat operations
// are one conditional statement each, so two users racing for the same
// seat are decided by the database and exactly one wins.
type SeatLockService struct {
	store  SeatStore
	cache  AvailabilityCache
	logger *zap.Logger
	lease  time.Duration
	now    func() time.Time
}

// NewSeatLockService wires the lock manager.  cache may be nil.
func NewSeatLockService(store SeatStore, cache AvailabilityCache, lease time.Duration, logger *zap.Logger) *SeatLockService {
	if lease <= 0 {
		lease = DefaultLockLease
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeatLockService{
		store:  store,
		cache:  cache,
		logger: logger.Named("seat-lock"),
		lease:  lease,
		now:    time.Now,
	}
}

// NormalizeLabel canonicalises a seat label: surrounding space removed and
// upper-cased, so "a1 " and "A1" name the same seat.
func NormalizeLabel(label string) string {
	return strings.ToUpper(strings.TrimSpace(label))
}

// LeaseWindow returns the lock lease.
func (s *SeatLockService) LeaseWindow() time.Duration { return s.lease }

// ExpiryCutoff returns the instant before which a lock counts as expired.
func (s *SeatLockService) ExpiryCutoff() time.Time { return s.now().UTC().Add(-s.lease) }

// Lock takes the seat for userID if it is AVAILABLE.  It returns false,
// nil when the seat is missing or already LOCKED or BOOKED; contention is
// not an error.
func (s *SeatLockService) Lock(ctx context.Context, resourceID uint64, label string, userID uint64) (bool, error) {
	label = NormalizeLabel(label)
	ok, err := s.store.TryLock(ctx, resourceID, label, userID, s.now().UTC())
	if err != nil {
		return false, err
	}
	if ok {
		s.invalidate(ctx, resourceID)
		s.logger.Debug("seat locked",
			zap.Uint64("resource_id", resourceID), zap.String("seat", label), zap.Uint64("user_id", userID))
	}
	return ok, nil
}

// SeatExists reports whether resourceID has a seat with the given label.
func (s *SeatLockService) SeatExists(ctx context.Context, resourceID uint64, label string) (bool, error) {
	_, err := s.store.GetByLabel(ctx, resourceID, NormalizeLabel(label))
	if errors.Is(err, repository.ErrSeatNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Unlock returns a LOCKED seat to AVAILABLE regardless of who holds it.
// Unlocking a seat that is not LOCKED, or does not exist, is a no-op.
func (s *SeatLockService) Unlock(ctx context.Context, seatID uint64) error {
	changed, err := s.store.Unlock(ctx, seatID, nil)
	if err != nil {
		return err
	}
	if changed {
		s.invalidateSeat(ctx, seatID)
	}
	return nil
}

// ReleaseHold unlocks a seat on behalf of userID.  Only the holder can
// release a lock: a seat held by someone else yields ErrForbidden and a
// missing seat ErrNotFound.  Anything else is a no-op.
func (s *SeatLockService) ReleaseHold(ctx context.Context, seatID, userID uint64) error {
	changed, err := s.store.Unlock(ctx, seatID, &userID)
	if err != nil {
		return err
	}
	if changed {
		s.invalidateSeat(ctx, seatID)
		return nil
	}
	seat, err := s.store.GetByID(ctx, seatID)
	if errors.Is(err, repository.ErrSeatNotFound) {
		return newError(ErrNotFound, "seat %d not found", seatID)
	}
	if err != nil {
		return err
	}
	if seat.Status == model.SeatLocked && !seat.LockedBy(userID) {
		return newError(ErrForbidden, "seat %s is held by another user", seat.Label)
	}
	return nil
}

// MarkBooked converts an AVAILABLE or LOCKED seat to BOOKED.  Booked or
// missing seats are left as they are.
func (s *SeatLockService) MarkBooked(ctx context.Context, seatID uint64) error {
	if err := s.store.MarkBooked(ctx, seatID); err != nil {
		return err
	}
	s.invalidateSeat(ctx, seatID)
	return nil
}

// ListAvailable returns the AVAILABLE seats of a resource, from the cache
// when the resource has not changed since the entry was written.  Lock
// remains the authority on whether a listed seat can still be taken.
func (s *SeatLockService) ListAvailable(ctx context.Context, resourceID uint64) ([]model.Seat, error) {
	var gen string
	cacheable := false
	if s.cache != nil {
		// generation first: an invalidation after this point orphans our Set
		gen, cacheable = s.cache.Generation(ctx, resourceID)
		if cacheable {
			if seats, ok := s.cache.Get(ctx, resourceID, gen); ok {
				return seats, nil
			}
		}
	}
	seats, err := s.store.ListAvailable(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if cacheable {
		s.cache.Set(ctx, resourceID, gen, seats)
	}
	return seats, nil
}

// ReleaseExpiredLocks returns every seat locked before cutoff to AVAILABLE
// in one statement and reports how many were released.
func (s *SeatLockService) ReleaseExpiredLocks(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := s.store.ReleaseExpired(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 && s.cache != nil {
		s.cache.InvalidateAll(ctx)
	}
	return n, nil
}

// lockSeatsTx row-locks the named seats for a booking transaction.
func (s *SeatLockService) lockSeatsTx(ctx context.Context, tx *sql.Tx, resourceID uint64, labels []string) ([]model.Seat, error) {
	seats, err := s.store.ForUpdateByLabelsTx(ctx, tx, resourceID, labels)
	if err != nil {
		return nil, fmt.Errorf("lock seats: %w", err)
	}
	return seats, nil
}

// markBookedTx converts validated, row-locked seats to BOOKED.
func (s *SeatLockService) markBookedTx(ctx context.Context, tx *sql.Tx, seatIDs []uint64) error {
	err := s.store.MarkBookedTx(ctx, tx, seatIDs)
	if errors.Is(err, repository.ErrConflict) {
		return newError(ErrConflict, "seat state changed concurrently")
	}
	return err
}

// releaseBookedTx returns a booking's BOOKED seats to AVAILABLE.
func (s *SeatLockService) releaseBookedTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (int64, error) {
	return s.store.ReleaseForBookingTx(ctx, tx, bookingID)
}

func (s *SeatLockService) invalidate(ctx context.Context, resourceID uint64) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, resourceID)
	}
}

func (s *SeatLockService) invalidateSeat(ctx context.Context, seatID uint64) {
	if s.cache == nil {
		return
	}
	seat, err := s.store.GetByID(ctx, seatID)
	if err != nil {
		return
	}
	s.cache.Invalidate(ctx, seat.ResourceID)
}
