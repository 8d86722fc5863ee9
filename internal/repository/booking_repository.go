package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/seat-booking-service/internal/model"
)

const bookingColumns = `id, user_id, resource_id, status, number_of_tickets, start_time, end_time, notes, created_at, updated_at`

// BookingRepo is the booking ledger.  Bookings are created CONFIRMED inside
// the orchestrator's transaction and only ever move to CANCELLED.  Seats
// converted by a seat booking are linked through booking_seats.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

func scanBooking(sc rowScanner) (model.Booking, error) {
	var b model.Booking
	var status string
	var start, end sql.NullTime
	var notes sql.NullString
	if err := sc.Scan(&b.ID, &b.UserID, &b.ResourceID, &status, &b.NumberOfTickets,
		&start, &end, &notes, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return model.Booking{}, err
	}
	b.Status = model.BookingStatus(status)
	if start.Valid {
		t := start.Time.UTC()
		b.StartTime = &t
	}
	if end.Valid {
		t := end.Time.UTC()
		b.EndTime = &t
	}
	if notes.Valid {
		n := notes.String
		b.Notes = &n
	}
	return b, nil
}

// CreateTx inserts a booking within the scope of an existing transaction
// and reads the row back so generated ID and timestamps are populated on b.
// The caller must commit or rollback the transaction.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (user_id, resource_id, status, number_of_tickets, start_time, end_time, notes) VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, b.UserID, b.ResourceID, string(b.Status), b.NumberOfTickets,
		nullTime(b.StartTime), nullTime(b.EndTime), nullString(b.Notes))
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	labels := b.SeatLabels
	row, err := scanBooking(tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if err != nil {
		return err
	}
	*b = row
	b.SeatLabels = labels
	return nil
}

// AddSeatsTx links seats to a booking in a single statement.  Passing an
// empty slice has no effect and returns nil.
func (r *BookingRepo) AddSeatsTx(ctx context.Context, tx *sql.Tx, bookingID uint64, seatIDs []uint64) error {
	if len(seatIDs) == 0 {
		return nil
	}
	query := `INSERT INTO booking_seats (booking_id, seat_id) VALUES `
	args := make([]any, 0, len(seatIDs)*2)
	for i, sid := range seatIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, bookingID, sid)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// SumConfirmedTicketsTx returns the tickets held by CONFIRMED bookings of a
// resource.  Callers hold the resource row lock so the sum cannot change
// before their insert commits.
func (r *BookingRepo) SumConfirmedTicketsTx(ctx context.Context, tx *sql.Tx, resourceID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(number_of_tickets), 0) FROM bookings WHERE resource_id = ? AND status = 'CONFIRMED'`,
		resourceID).Scan(&n)
	return n, err
}

// GetByIDForUpdateTx locks and returns a booking or ErrBookingNotFound.
func (r *BookingRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	b, err := scanBooking(tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateStatusTx sets the status of a booking.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.BookingStatus) error {
	res, err := tx.ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// GetByID returns a booking with its seat labels or ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT bs.booking_id, s.seat_label FROM booking_seats bs JOIN seats s ON s.id = bs.seat_id WHERE bs.booking_id = ? ORDER BY s.id`, id)
	if err != nil {
		return nil, err
	}
	labels, err := collectLabels(rows)
	if err != nil {
		return nil, err
	}
	b.SeatLabels = labels[b.ID]
	return &b, nil
}

// ListByUser returns every booking of a user, newest first, with the seat
// labels of seat bookings filled in.  A user without bookings gets an empty
// slice.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	bookings := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(bookings) == 0 {
		return bookings, nil
	}

	seatRows, err := r.db.QueryContext(ctx,
		`SELECT bs.booking_id, s.seat_label FROM booking_seats bs JOIN seats s ON s.id = bs.seat_id JOIN bookings b ON b.id = bs.booking_id WHERE b.user_id = ? ORDER BY s.id`, userID)
	if err != nil {
		return nil, err
	}
	labels, err := collectLabels(seatRows)
	if err != nil {
		return nil, err
	}
	for i := range bookings {
		bookings[i].SeatLabels = labels[bookings[i].ID]
	}
	return bookings, nil
}

func collectLabels(rows *sql.Rows) (map[uint64][]string, error) {
	defer rows.Close()
	out := map[uint64][]string{}
	for rows.Next() {
		var id uint64
		var label string
		if err := rows.Scan(&id, &label); err != nil {
			return nil, err
		}
		out[id] = append(out[id], label)
	}
	return out, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
