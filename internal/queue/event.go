// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedEvent is published when a booking is successfully confirmed.
// It contains enough information for downstream consumers to log, notify, or
// trigger analytics without querying the primary database.
type BookingConfirmedEvent struct {
    BookingCode     string   `json:"booking_code"`
    TripID          uint64   `json:"trip_id"`
    Origin          string   `json:"origin"`
    Destination     string   `json:"destination"`
    DepartureAt     string   `json:"departure_at"`
    SeatNumbers     []string `json:"seats"`
    ContactName     string   `json:"contact_name"`
    ContactPhone    string   `json:"contact_phone"`
    FinalPriceCents int64    `json:"final_price_cents"`
    ConfirmedAt     string   `json:"confirmed_at"`
}

// BookingCancelledEvent is published when a booking is cancelled, whether by
// the customer, an operator or the expiry sweeper.  RefundAmountCents is zero
// when no money moves.
type BookingCancelledEvent struct {
    BookingCode       string   `json:"booking_code"`
    TripID            uint64   `json:"trip_id"`
    SeatNumbers       []string `json:"seats"`
    Reason            string   `json:"reason"`
    Actor             string   `json:"actor"`
    RefundAmountCents int64    `json:"refund_amount_cents"`
    CancelledAt       string   `json:"cancelled_at"`
}

// RefundRequestedEvent asks the payment collaborator to move money back to
// the customer.  The payment wire protocol itself lives outside this
// service; this event is the boundary.
type RefundRequestedEvent struct {
    BookingCode string `json:"booking_code"`
    AmountCents int64  `json:"amount_cents"`
    Reason      string `json:"reason"`
    RequestedAt string `json:"requested_at"`
}
