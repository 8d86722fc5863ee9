package model

import "time"

// BookingStatus is the state of a booking.  CANCELLED is terminal.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// Booking records a user's claim on a resource.  Quantity bookings carry
// only a ticket count; seat bookings additionally list the seats they
// converted to BOOKED, and NumberOfTickets equals len(SeatLabels).
// StartTime and EndTime are copied from the resource at creation.
type Booking struct {
	ID              uint64        `json:"id"`                    // bookings.id
	UserID          uint64        `json:"user_id"`               // bookings.user_id
	ResourceID      uint64        `json:"resource_id"`           // bookings.resource_id
	Status          BookingStatus `json:"status"`                // bookings.status
	NumberOfTickets int           `json:"number_of_tickets"`     // bookings.number_of_tickets
	StartTime       *time.Time    `json:"start_time,omitempty"`  // bookings.start_time (nullable)
	EndTime         *time.Time    `json:"end_time,omitempty"`    // bookings.end_time (nullable)
	Notes           *string       `json:"notes,omitempty"`       // bookings.notes (nullable)
	SeatLabels      []string      `json:"seat_labels,omitempty"` // from booking_seats, seat mode only
	CreatedAt       time.Time     `json:"created_at"`            // bookings.created_at
	UpdatedAt       time.Time     `json:"updated_at"`            // bookings.updated_at
}
