package repository // repository for booking persistence

import (
    "context"
    "database/sql"
    "time"

    "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/model"
)

// BookingRepo encapsulates database operations for bookings and
// their seats.  State transitions are conditional updates keyed on
// the expected prior status so that racing writers (confirm vs.
// sweep, double cancel) resolve to exactly one winner; the loser
// observes ErrConflict.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo constructs a BookingRepo given a DB handle.
func NewBookingRepo(db *sql.DB) *BookingRepo {
    return &BookingRepo{db: db}
}

// Create inserts the booking header and its seats in one transaction.
// The caller supplies a fully populated model; the generated row id
// is written back into booking.ID.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    const qh = `INSERT INTO bookings
        (code, trip_id, holder_id, status, payment_status, is_held, held_until,
         contact_name, contact_phone, contact_email,
         total_price_cents, discount_cents, final_price_cents, voucher_id)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, qh,
        b.Code, b.TripID, b.HolderID, b.Status, b.PaymentStatus, b.IsHeld, b.HeldUntil,
        b.ContactName, b.ContactPhone, b.ContactEmail,
        b.TotalPriceCents, b.DiscountCents, b.FinalPriceCents, b.VoucherID,
    )
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    b.ID = uint64(id)
    if len(b.Seats) > 0 {
        query := `INSERT INTO booking_seats (booking_id, seat_number, price_cents, passenger_name, passenger_phone) VALUES `
        args := make([]interface{}, 0, len(b.Seats)*5)
        for i := range b.Seats {
            if i > 0 {
                query += ","
            }
            query += "(?, ?, ?, ?, ?)"
            b.Seats[i].BookingID = b.ID
            args = append(args, b.ID, b.Seats[i].SeatNumber, b.Seats[i].PriceCents,
                b.Seats[i].PassengerName, b.Seats[i].PassengerPhone)
        }
        if _, err := tx.ExecContext(ctx, query, args...); err != nil {
            return err
        }
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// GetByCode fetches a booking and its seats by public code.  Returns
// ErrBookingNotFound when no row matches.
func (r *BookingRepo) GetByCode(ctx context.Context, code string) (*model.Booking, error) {
    const q = `SELECT id, code, trip_id, holder_id, status, payment_status, is_held, held_until,
                      contact_name, contact_phone, contact_email,
                      total_price_cents, discount_cents, final_price_cents, voucher_id,
                      cancel_reason, cancelled_by, cancelled_at, created_at, updated_at
               FROM bookings WHERE code = ?`
    var b model.Booking
    err := r.db.QueryRowContext(ctx, q, code).Scan(
        &b.ID, &b.Code, &b.TripID, &b.HolderID, &b.Status, &b.PaymentStatus, &b.IsHeld, &b.HeldUntil,
        &b.ContactName, &b.ContactPhone, &b.ContactEmail,
        &b.TotalPriceCents, &b.DiscountCents, &b.FinalPriceCents, &b.VoucherID,
        &b.CancelReason, &b.CancelledBy, &b.CancelledAt, &b.CreatedAt, &b.UpdatedAt,
    )
    if err == sql.ErrNoRows {
        return nil, ErrBookingNotFound
    }
    if err != nil {
        return nil, err
    }
    const qs = `SELECT id, booking_id, seat_number, price_cents, passenger_name, passenger_phone
                FROM booking_seats WHERE booking_id = ? ORDER BY seat_number`
    rows, err := r.db.QueryContext(ctx, qs, b.ID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    for rows.Next() {
        var s model.BookingSeat
        if err := rows.Scan(&s.ID, &s.BookingID, &s.SeatNumber, &s.PriceCents, &s.PassengerName, &s.PassengerPhone); err != nil {
            return nil, err
        }
        b.Seats = append(b.Seats, s)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return &b, nil
}

// MarkConfirmed flips a PENDING booking to CONFIRMED and drops its
// hold flag.  When the booking is no longer pending the update
// matches no rows and ErrConflict is returned so the caller can
// re-read and report the real state.
func (r *BookingRepo) MarkConfirmed(ctx context.Context, code string) error {
    const q = `UPDATE bookings
               SET status = ?, is_held = 0, updated_at = UTC_TIMESTAMP()
               WHERE code = ? AND status = ?`
    res, err := r.db.ExecContext(ctx, q, model.BookingConfirmed, code, model.BookingPending)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrConflict
    }
    return nil
}

// MarkCancelled moves a booking from one of fromStatuses to
// CANCELLED, recording reason, actor and timestamp.  The conditional
// WHERE keeps the transition race-safe: only one of several
// concurrent cancellers (or the sweeper) wins; the rest observe
// ErrConflict.
func (r *BookingRepo) MarkCancelled(ctx context.Context, code, reason, actor string, at time.Time, fromStatuses ...string) error {
    query := `UPDATE bookings
              SET status = ?, is_held = 0, cancel_reason = ?, cancelled_by = ?, cancelled_at = ?,
                  updated_at = UTC_TIMESTAMP()
              WHERE code = ? AND status IN (`
    args := []interface{}{model.BookingCancelled, reason, actor, at.UTC(), code}
    for i, st := range fromStatuses {
        if i > 0 {
            query += ","
        }
        query += "?"
        args = append(args, st)
    }
    query += ")"
    res, err := r.db.ExecContext(ctx, query, args...)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrConflict
    }
    return nil
}

// MarkCompleted flips a CONFIRMED booking to COMPLETED once the trip
// has run.  Same conditional-update convention as MarkConfirmed.
func (r *BookingRepo) MarkCompleted(ctx context.Context, code string) error {
    const q = `UPDATE bookings
               SET status = ?, updated_at = UTC_TIMESTAMP()
               WHERE code = ? AND status = ?`
    res, err := r.db.ExecContext(ctx, q, model.BookingCompleted, code, model.BookingConfirmed)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrConflict
    }
    return nil
}

// UpdateHeldUntil extends the hold expiry of a PENDING, held booking.
func (r *BookingRepo) UpdateHeldUntil(ctx context.Context, code string, heldUntil time.Time) error {
    const q = `UPDATE bookings
               SET held_until = ?, updated_at = UTC_TIMESTAMP()
               WHERE code = ? AND status = ? AND is_held = 1`
    res, err := r.db.ExecContext(ctx, q, heldUntil.UTC(), code, model.BookingPending)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrConflict
    }
    return nil
}

// UpdatePaymentStatus records the outcome reported by the payment
// collaborator.  It is unconditional: payment state is tracked
// independently of the booking lifecycle.
func (r *BookingRepo) UpdatePaymentStatus(ctx context.Context, code, paymentStatus string) error {
    const q = `UPDATE bookings SET payment_status = ?, updated_at = UTC_TIMESTAMP() WHERE code = ?`
    res, err := r.db.ExecContext(ctx, q, paymentStatus, code)
    if err != nil {
        return err
    }
    if _, err := res.RowsAffected(); err != nil {
        return err
    }
    return nil
}

// ListExpiredPending returns up to limit PENDING bookings whose hold
// lapsed before the given instant.  Used by the sweeper; the same
// booking is never returned twice once cancelled.
func (r *BookingRepo) ListExpiredPending(ctx context.Context, before time.Time, limit int) ([]model.Booking, error) {
    const q = `SELECT id, code, trip_id, holder_id, status, payment_status, is_held, held_until,
                      total_price_cents, discount_cents, final_price_cents, voucher_id, created_at, updated_at
               FROM bookings
               WHERE status = ? AND held_until IS NOT NULL AND held_until < ?
               ORDER BY held_until
               LIMIT ?`
    rows, err := r.db.QueryContext(ctx, q, model.BookingPending, before.UTC(), limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.Booking
    for rows.Next() {
        var b model.Booking
        if err := rows.Scan(
            &b.ID, &b.Code, &b.TripID, &b.HolderID, &b.Status, &b.PaymentStatus, &b.IsHeld, &b.HeldUntil,
            &b.TotalPriceCents, &b.DiscountCents, &b.FinalPriceCents, &b.VoucherID, &b.CreatedAt, &b.UpdatedAt,
        ); err != nil {
            return nil, err
        }
        out = append(out, b)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    // Seats are needed to release leases; load them per booking.
    for i := range out {
        const qs = `SELECT id, booking_id, seat_number, price_cents, passenger_name, passenger_phone
                    FROM booking_seats WHERE booking_id = ? ORDER BY seat_number`
        seatRows, err := r.db.QueryContext(ctx, qs, out[i].ID)
        if err != nil {
            return nil, err
        }
        for seatRows.Next() {
            var s model.BookingSeat
            if err := seatRows.Scan(&s.ID, &s.BookingID, &s.SeatNumber, &s.PriceCents, &s.PassengerName, &s.PassengerPhone); err != nil {
                seatRows.Close()
                return nil, err
            }
            out[i].Seats = append(out[i].Seats, s)
        }
        if err := seatRows.Close(); err != nil {
            return nil, err
        }
    }
    return out, nil
}
