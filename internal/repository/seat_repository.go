package repository // repository defines data access for seats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/seat-booking-service/internal/model"
)

const seatColumns = `id, resource_id, seat_label, status, locked_at, locked_by_user_id, created_at, updated_at`

// SeatRepo is the seat store.  Every state transition is a single guarded
// UPDATE so concurrent callers are serialised by the row lock InnoDB takes
// for the statement; callers never read-then-write.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSeat(sc rowScanner) (model.Seat, error) {
	var s model.Seat
	var status string
	var lockedAt sql.NullTime
	var lockedBy sql.NullInt64
	if err := sc.Scan(&s.ID, &s.ResourceID, &s.Label, &status, &lockedAt, &lockedBy, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return model.Seat{}, err
	}
	s.Status = model.SeatStatus(status)
	if lockedAt.Valid {
		t := lockedAt.Time.UTC()
		s.LockedAt = &t
	}
	if lockedBy.Valid {
		u := uint64(lockedBy.Int64)
		s.LockedByUserID = &u
	}
	return s, nil
}

func collectSeats(rows *sql.Rows) ([]model.Seat, error) {
	defer rows.Close()
	seats := []model.Seat{}
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}

// CreateGridTx inserts one AVAILABLE seat per label for the resource in a
// single statement.  Passing an empty slice has no effect.
func (r *SeatRepo) CreateGridTx(ctx context.Context, tx *sql.Tx, resourceID uint64, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	query := `INSERT INTO seats (resource_id, seat_label, status) VALUES `
	args := make([]any, 0, len(labels)*2)
	for i, l := range labels {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, 'AVAILABLE')"
		args = append(args, resourceID, l)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// CountByResource returns how many seats a resource has.
func (r *SeatRepo) CountByResource(ctx context.Context, resourceID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM seats WHERE resource_id = ?`, resourceID).Scan(&n)
	return n, err
}

// GetByID returns a seat by primary key or ErrSeatNotFound.
func (r *SeatRepo) GetByID(ctx context.Context, id uint64) (*model.Seat, error) {
	s, err := scanSeat(r.db.QueryRowContext(ctx, `SELECT `+seatColumns+` FROM seats WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSeatNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByLabel returns the seat with the given label on a resource or
// ErrSeatNotFound.
func (r *SeatRepo) GetByLabel(ctx context.Context, resourceID uint64, label string) (*model.Seat, error) {
	s, err := scanSeat(r.db.QueryRowContext(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE resource_id = ? AND seat_label = ?`, resourceID, label))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSeatNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListAvailable returns the AVAILABLE seats of a resource in creation order.
// An unknown resource yields an empty slice.
func (r *SeatRepo) ListAvailable(ctx context.Context, resourceID uint64) ([]model.Seat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE resource_id = ? AND status = 'AVAILABLE' ORDER BY id`, resourceID)
	if err != nil {
		return nil, err
	}
	return collectSeats(rows)
}

// TryLock moves the seat from AVAILABLE to LOCKED for userID.  It reports
// false without error when the seat does not exist or is not AVAILABLE.
func (r *SeatRepo) TryLock(ctx context.Context, resourceID uint64, label string, userID uint64, at time.Time) (bool, error) {
	const q = `UPDATE seats SET status = 'LOCKED', locked_at = ?, locked_by_user_id = ? WHERE resource_id = ? AND seat_label = ? AND status = 'AVAILABLE'`
	res, err := r.db.ExecContext(ctx, q, at.UTC(), userID, resourceID, label)
	if err != nil {
		return false, fmt.Errorf("lock seat: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Unlock returns a LOCKED seat to AVAILABLE and clears the lock fields.
// When ownerID is non-nil only a lock held by that user is released.  It
// reports whether a row changed.
func (r *SeatRepo) Unlock(ctx context.Context, seatID uint64, ownerID *uint64) (bool, error) {
	q := `UPDATE seats SET status = 'AVAILABLE', locked_at = NULL, locked_by_user_id = NULL WHERE id = ? AND status = 'LOCKED'`
	args := []any{seatID}
	if ownerID != nil {
		q += ` AND locked_by_user_id = ?`
		args = append(args, *ownerID)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, fmt.Errorf("unlock seat: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkBooked moves a single AVAILABLE or LOCKED seat to BOOKED.  Already
// booked or missing seats are left untouched.
func (r *SeatRepo) MarkBooked(ctx context.Context, seatID uint64) error {
	const q = `UPDATE seats SET status = 'BOOKED', locked_at = NULL, locked_by_user_id = NULL WHERE id = ? AND status <> 'BOOKED'`
	if _, err := r.db.ExecContext(ctx, q, seatID); err != nil {
		return fmt.Errorf("mark seat booked: %w", err)
	}
	return nil
}

// ForUpdateByLabelsTx selects the named seats of a resource with FOR UPDATE.
// Rows are locked in id order so two batches touching overlapping seats
// cannot deadlock.  Labels that do not exist are simply absent from the
// result.
func (r *SeatRepo) ForUpdateByLabelsTx(ctx context.Context, tx *sql.Tx, resourceID uint64, labels []string) ([]model.Seat, error) {
	if len(labels) == 0 {
		return []model.Seat{}, nil
	}
	q := `SELECT ` + seatColumns + ` FROM seats WHERE resource_id = ? AND seat_label IN (` + placeholders(len(labels)) + `) ORDER BY id FOR UPDATE`
	args := make([]any, 0, len(labels)+1)
	args = append(args, resourceID)
	for _, l := range labels {
		args = append(args, l)
	}
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectSeats(rows)
}

// MarkBookedTx moves every listed seat to BOOKED inside the caller's
// transaction.  The rows must already be locked FOR UPDATE and validated;
// if fewer rows change than requested ErrConflict is returned so the caller
// rolls back.
func (r *SeatRepo) MarkBookedTx(ctx context.Context, tx *sql.Tx, seatIDs []uint64) error {
	if len(seatIDs) == 0 {
		return nil
	}
	q := `UPDATE seats SET status = 'BOOKED', locked_at = NULL, locked_by_user_id = NULL WHERE status <> 'BOOKED' AND id IN (` + placeholders(len(seatIDs)) + `)`
	args := make([]any, len(seatIDs))
	for i, id := range seatIDs {
		args[i] = id
	}
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("mark seats booked: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != int64(len(seatIDs)) {
		return ErrConflict
	}
	return nil
}

// ReleaseExpired returns every LOCKED seat whose lock was taken before
// cutoff to AVAILABLE in one statement and reports how many were released.
// Running it twice with the same cutoff releases nothing the second time.
func (r *SeatRepo) ReleaseExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `UPDATE seats SET status = 'AVAILABLE', locked_at = NULL, locked_by_user_id = NULL WHERE status = 'LOCKED' AND locked_at < ?`
	res, err := r.db.ExecContext(ctx, q, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("release expired locks: %w", err)
	}
	return res.RowsAffected()
}

// ReleaseForBookingTx returns the BOOKED seats linked to a booking to
// AVAILABLE.  Used when a cancelled booking gives its seats back.
func (r *SeatRepo) ReleaseForBookingTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (int64, error) {
	const q = `UPDATE seats s JOIN booking_seats bs ON bs.seat_id = s.id SET s.status = 'AVAILABLE', s.locked_at = NULL, s.locked_by_user_id = NULL WHERE bs.booking_id = ? AND s.status = 'BOOKED'`
	res, err := tx.ExecContext(ctx, q, bookingID)
	if err != nil {
		return 0, fmt.Errorf("release booking seats: %w", err)
	}
	return res.RowsAffected()
}
