// Package booking implements the reservation lifecycle: holding
// seats under a time-bounded lease, confirming them into durable trip
// inventory and cancelling with a time-based refund policy.
package booking

import (
    "fmt"
    "strings"
)

// ValidationError reports malformed input.  It is raised before any
// lease or database state is touched.
type ValidationError struct {
    Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// ConflictError reports seats that are already leased or already
// booked.  It is user-correctable: the caller is expected to let the
// customer pick different seats rather than retry internally.
type ConflictError struct {
    Msg   string
    Seats []string
}

func (e *ConflictError) Error() string {
    if len(e.Seats) == 0 {
        return e.Msg
    }
    return fmt.Sprintf("%s: %s", e.Msg, strings.Join(e.Seats, ", "))
}

// ExpiredError reports that a hold's TTL lapsed before the attempted
// operation.  Callers should re-search and re-hold.
type ExpiredError struct {
    Msg string
}

func (e *ExpiredError) Error() string { return e.Msg }

// NotFoundError reports a missing booking or trip.
type NotFoundError struct {
    Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

// StateError reports an operation that is invalid for the current
// booking or trip status, such as confirming a cancelled booking.
type StateError struct {
    Msg    string
    Status string
}

func (e *StateError) Error() string {
    if e.Status == "" {
        return e.Msg
    }
    return fmt.Sprintf("%s (status %s)", e.Msg, e.Status)
}

// DownstreamError reports a failed collaborator call (payment,
// voucher).  It never undoes a booking-state transition that already
// succeeded; it is surfaced separately for reconciliation.
type DownstreamError struct {
    Op  string
    Err error
}

func (e *DownstreamError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

// Unwrap exposes the underlying collaborator error.
func (e *DownstreamError) Unwrap() error { return e.Err }
