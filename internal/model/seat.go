package model

import "time"

// SeatStatus is the lifecycle state of a seat.  A seat moves
// AVAILABLE -> LOCKED -> BOOKED, and LOCKED -> AVAILABLE on unlock or
// lease expiry.  BOOKED seats only return to AVAILABLE when a cancelled
// booking releases them.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE"
	SeatLocked    SeatStatus = "LOCKED"
	SeatBooked    SeatStatus = "BOOKED"
)

// Seat is a single reservable unit belonging to a resource.
//
// Fields:
//
//	ID             – primary key identifier.
//	ResourceID     – resource the seat belongs to.
//	Label          – seat label such as "A1", unique per resource.
//	Status         – current SeatStatus.
//	LockedAt       – when the current lock was taken; set iff LOCKED.
//	LockedByUserID – holder of the current lock; set iff LOCKED.
type Seat struct {
	ID             uint64     `json:"id"`                          // seats.id
	ResourceID     uint64     `json:"resource_id"`                 // seats.resource_id
	Label          string     `json:"seat_label"`                  // seats.seat_label
	Status         SeatStatus `json:"status"`                      // seats.status
	LockedAt       *time.Time `json:"locked_at,omitempty"`         // seats.locked_at (nullable)
	LockedByUserID *uint64    `json:"locked_by_user_id,omitempty"` // seats.locked_by_user_id (nullable)
	CreatedAt      time.Time  `json:"created_at"`                  // seats.created_at
	UpdatedAt      time.Time  `json:"updated_at"`                  // seats.updated_at
}

// LockedBy reports whether the seat is currently locked by userID.
func (s Seat) LockedBy(userID uint64) bool {
	return s.Status == SeatLocked && s.LockedByUserID != nil && *s.LockedByUserID == userID
}
