// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/seat-booking-service/internal/model"
)

const (
	BookingConfirmedQueue = "booking.confirmed"
	BookingCancelledQueue = "booking.cancelled"
)

// BookingConfirmedEvent is published after a booking commits.  It carries
// enough for downstream consumers to log or notify without querying the
// primary database.  EventID is unique per message so consumers can drop
// redeliveries.
type BookingConfirmedEvent struct {
	EventID      string   `json:"event_id"`
	BookingID    uint64   `json:"booking_id"`
	UserID       uint64   `json:"user_id"`
	ResourceID   uint64   `json:"resource_id"`
	ResourceName string   `json:"resource_name"`
	Tickets      int      `json:"number_of_tickets"`
	SeatLabels   []string `json:"seats,omitempty"`
	StartsAt     string   `json:"starts_at,omitempty"`
	ConfirmedAt  string   `json:"confirmed_at"`
}

// BookingCancelledEvent is published when a booking moves to CANCELLED.
// SeatsReleased is zero unless seats are returned on cancellation.
type BookingCancelledEvent struct {
	EventID       string `json:"event_id"`
	BookingID     uint64 `json:"booking_id"`
	UserID        uint64 `json:"user_id"`
	ResourceID    uint64 `json:"resource_id"`
	Tickets       int    `json:"number_of_tickets"`
	SeatsReleased int64  `json:"seats_released"`
	CancelledAt   string `json:"cancelled_at"`
}

// NewBookingConfirmed builds the event for a freshly committed booking.
func NewBookingConfirmed(b model.Booking, resourceName string, at time.Time) BookingConfirmedEvent {
	ev := BookingConfirmedEvent{
		EventID:      uuid.NewString(),
		BookingID:    b.ID,
		UserID:       b.UserID,
		ResourceID:   b.ResourceID,
		ResourceName: resourceName,
		Tickets:      b.NumberOfTickets,
		SeatLabels:   b.SeatLabels,
		ConfirmedAt:  at.UTC().Format(time.RFC3339),
	}
	if b.StartTime != nil {
		ev.StartsAt = b.StartTime.UTC().Format(time.RFC3339)
	}
	return ev
}

// NewBookingCancelled builds the event for a cancelled booking.
func NewBookingCancelled(b model.Booking, released int64, at time.Time) BookingCancelledEvent {
	return BookingCancelledEvent{
		EventID:       uuid.NewString(),
		BookingID:     b.ID,
		UserID:        b.UserID,
		ResourceID:    b.ResourceID,
		Tickets:       b.NumberOfTickets,
		SeatsReleased: released,
		CancelledAt:   at.UTC().Format(time.RFC3339),
	}
}
