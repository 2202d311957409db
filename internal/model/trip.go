package model

import "time"

// Trip statuses.  Only SCHEDULED trips accept new holds; DEPARTED and
// CANCELLED trips reject booking operations.
const (
    TripScheduled = "SCHEDULED"
    TripDeparted  = "DEPARTED"
    TripCancelled = "CANCELLED"
)

// Trip represents a scheduled, seat-limited departure that customers
// book against.  Seat occupancy is authoritative in BookedSeats;
// AvailableSeats is a derived counter recomputed from
// TotalSeats - len(BookedSeats) whenever occupancy changes.
//
// Fields:
//  ID             – primary key identifier.
//  Origin         – departure city or station.
//  Destination    – arrival city or station.
//  DepartureAt    – when the bus leaves; bookings are rejected after
//                   this moment.
//  TotalSeats     – capacity of the vehicle.
//  AvailableSeats – derived free-seat counter (never mutated blindly).
//  SeatPriceCents – price per seat in the smallest currency unit.
//  Status         – current state of the trip (SCHEDULED, DEPARTED,
//                   CANCELLED).
//  BookedSeats    – durably committed occupancy, ordered by seat number.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Trip struct {
    ID             uint64       // trips.id
    Origin         string       // trips.origin
    Destination    string       // trips.destination
    DepartureAt    time.Time    // trips.departure_at
    TotalSeats     int          // trips.total_seats
    AvailableSeats int          // trips.available_seats
    SeatPriceCents int64        // trips.seat_price_cents
    Status         string       // trips.status
    BookedSeats    []BookedSeat // joined from trip_seats
    CreatedAt      time.Time    // trips.created_at
    UpdatedAt      time.Time    // trips.updated_at
}

// IsBookable reports whether the trip accepts new holds at the given
// instant.  A trip must be SCHEDULED and its departure must still be
// in the future.
func (t *Trip) IsBookable(now time.Time) bool {
    return t.Status == TripScheduled && t.DepartureAt.After(now)
}

// HasSeat reports whether the seat number is already durably booked.
func (t *Trip) HasSeat(seatNumber string) bool {
    for _, bs := range t.BookedSeats {
        if bs.SeatNumber == seatNumber {
            return true
        }
    }
    return false
}

// BookedSeat records one durably committed seat on a trip together
// with the booking that owns it.
//
// Fields:
//  TripID      – trip the seat belongs to.
//  SeatNumber  – seat label, e.g. "A1".
//  BookingCode – booking that committed this seat.
//  CreatedAt   – when the seat was committed.
type BookedSeat struct {
    TripID      uint64    // trip_seats.trip_id
    SeatNumber  string    // trip_seats.seat_number
    BookingCode string    // trip_seats.booking_code
    CreatedAt   time.Time // trip_seats.created_at
}
