// Package repository defines error types that are reused across
// multiple repositories. These sentinel values allow higher layers
// to distinguish between different failure scenarios without string
// matching. For example, ErrTripNotFound signals a missing trip,
// while ErrConflict signals that a conditional update matched no
// rows because another writer changed the state first.
package repository

import "errors"

// ErrTripNotFound is returned when the requested trip does not exist.
var ErrTripNotFound = errors.New("trip not found")

// ErrBookingNotFound is returned when the requested booking does not
// exist.
var ErrBookingNotFound = errors.New("booking not found")

// ErrVoucherNotFound is returned when no usable voucher matches the
// supplied code, either because the code is unknown or because the
// voucher is inactive, outside its validity window or exhausted.
var ErrVoucherNotFound = errors.New("voucher not found or not applicable")

// ErrConflict is returned when a conditional update affects no rows,
// meaning the expected prior state was no longer present. Callers
// use this to detect lost races (e.g. confirming a booking that the
// sweeper cancelled a moment earlier).
var ErrConflict = errors.New("conflict")
