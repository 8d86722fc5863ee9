// Package repository holds the MySQL data access for seats, bookings,
// resources and users.  Sentinel errors let the service layer tell a
// missing row apart from an infrastructure failure.
package repository

import (
	"errors"
	"strings"
)

var (
	ErrSeatNotFound     = errors.New("seat not found")
	ErrResourceNotFound = errors.New("resource not found")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrUserNotFound     = errors.New("user not found")
)

// ErrConflict is returned when a guarded update touched fewer rows than
// expected because another writer changed them first.
var ErrConflict = errors.New("conflict")

// ErrDuplicate is returned when an insert hits a unique key (MySQL 1062).
var ErrDuplicate = errors.New("duplicate entry")

func isDuplicate(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}

// placeholders returns "?,?,?" with n markers for IN clauses.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
