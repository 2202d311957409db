package model

import "time"

// Booking statuses.  The lifecycle is
// pending -> {confirmed, cancelled} and confirmed -> {cancelled,
// completed}.  No transition ever leaves cancelled or completed.
const (
    BookingPending   = "PENDING"
    BookingConfirmed = "CONFIRMED"
    BookingCancelled = "CANCELLED"
    BookingCompleted = "COMPLETED"
)

// Payment statuses tracked independently of the booking status.
const (
    PaymentPending  = "PENDING"
    PaymentPaid     = "PAID"
    PaymentFailed   = "FAILED"
    PaymentRefunded = "REFUNDED"
)

// Booking is the durable record of a reservation attempt.  A booking
// is created in PENDING state by a successful seat hold and carries
// the hold expiry so that every read path can detect a logically
// expired hold even before the sweeper runs.
//
// Fields:
//  ID              – primary key identifier.
//  Code            – unique public booking code.
//  TripID          – trip being booked.
//  HolderID        – opaque lease owner token (authenticated subject
//                    or generated guest token).
//  Status          – PENDING, CONFIRMED, CANCELLED or COMPLETED.
//  PaymentStatus   – PENDING, PAID, FAILED or REFUNDED.
//  IsHeld          – true while seats are leased for this booking.
//  HeldUntil       – when the hold expires (nil once released).
//  ContactName     – name of the person to contact.
//  ContactPhone    – phone number of the contact.
//  ContactEmail    – e-mail of the contact (optional).
//  TotalPriceCents – sum of seat prices before discounts.
//  DiscountCents   – voucher discount applied, zero when none.
//  FinalPriceCents – amount actually charged.
//  VoucherID       – applied voucher, nil when none.
//  Seats           – the seats reserved under this booking.
//  CancelReason    – why the booking was cancelled, if it was.
//  CancelledBy     – actor that cancelled (customer, operator, system).
//  CancelledAt     – when the cancellation happened.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Booking struct {
    ID              uint64        // bookings.id
    Code            string        // bookings.code
    TripID          uint64        // bookings.trip_id
    HolderID        string        // bookings.holder_id
    Status          string        // bookings.status
    PaymentStatus   string        // bookings.payment_status
    IsHeld          bool          // bookings.is_held
    HeldUntil       *time.Time    // bookings.held_until (nullable)
    ContactName     string        // bookings.contact_name
    ContactPhone    string        // bookings.contact_phone
    ContactEmail    string        // bookings.contact_email
    TotalPriceCents int64         // bookings.total_price_cents
    DiscountCents   int64         // bookings.discount_cents
    FinalPriceCents int64         // bookings.final_price_cents
    VoucherID       *uint64       // bookings.voucher_id (nullable)
    Seats           []BookingSeat // joined from booking_seats
    CancelReason    *string       // bookings.cancel_reason (nullable)
    CancelledBy     *string       // bookings.cancelled_by (nullable)
    CancelledAt     *time.Time    // bookings.cancelled_at (nullable)
    CreatedAt       time.Time     // bookings.created_at
    UpdatedAt       time.Time     // bookings.updated_at
}

// HoldExpired reports whether a PENDING booking's hold has lapsed at
// the given instant.  A pending booking whose hold expired is treated
// as invalid by every read path, not just by the sweeper.
func (b *Booking) HoldExpired(now time.Time) bool {
    return b.Status == BookingPending && b.HeldUntil != nil && !now.Before(*b.HeldUntil)
}

// SeatNumbers returns the seat labels of the booking in order.
func (b *Booking) SeatNumbers() []string {
    out := make([]string, 0, len(b.Seats))
    for _, s := range b.Seats {
        out = append(out, s.SeatNumber)
    }
    return out
}

// BookingSeat links a booking to one seat on the trip together with
// the passenger occupying it and the price paid for it.
//
// Fields:
//  ID             – primary key identifier.
//  BookingID      – reference to the booking.
//  SeatNumber     – seat label, e.g. "A1".
//  PriceCents     – price for this seat at booking time.
//  PassengerName  – name of the passenger (optional).
//  PassengerPhone – phone of the passenger (optional).
type BookingSeat struct {
    ID             uint64 // booking_seats.id
    BookingID      uint64 // booking_seats.booking_id
    SeatNumber     string // booking_seats.seat_number
    PriceCents     int64  // booking_seats.price_cents
    PassengerName  string // booking_seats.passenger_name
    PassengerPhone string // booking_seats.passenger_phone
}
