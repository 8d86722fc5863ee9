package model

import "time"

// User is the minimal view of an account that bookings reference.
// Credentials and profile data live with the identity provider.
type User struct {
	ID        uint64    // users.id
	Email     string    // users.email
	CreatedAt time.Time // users.created_at
}
