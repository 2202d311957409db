package repository // repository for trip inventory persistence

import (
    "context"
    "database/sql"
    "fmt"

    "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/model"
)

// TripRepo encapsulates database operations for trips and their
// durably committed seats.  Occupancy is authoritative in the
// trip_seats table; the trips.available_seats counter is never
// mutated independently but recomputed from
// total_seats - COUNT(trip_seats) inside the same statement, so
// concurrent commits and releases cannot make it drift.
type TripRepo struct {
    db *sql.DB
}

// NewTripRepo constructs a TripRepo given a DB handle.
func NewTripRepo(db *sql.DB) *TripRepo {
    return &TripRepo{db: db}
}

// DB exposes the underlying handle so callers can open transactions
// spanning multiple repositories.
func (r *TripRepo) DB() *sql.DB { return r.db }

// Load fetches a trip together with its committed seats, ordered by
// seat number.  Returns ErrTripNotFound when no row matches.
func (r *TripRepo) Load(ctx context.Context, tripID uint64) (*model.Trip, error) {
    const q = `SELECT id, origin, destination, departure_at, total_seats, available_seats,
                      seat_price_cents, status, created_at, updated_at
               FROM trips WHERE id = ?`
    var t model.Trip
    err := r.db.QueryRowContext(ctx, q, tripID).Scan(
        &t.ID, &t.Origin, &t.Destination, &t.DepartureAt, &t.TotalSeats, &t.AvailableSeats,
        &t.SeatPriceCents, &t.Status, &t.CreatedAt, &t.UpdatedAt,
    )
    if err == sql.ErrNoRows {
        return nil, ErrTripNotFound
    }
    if err != nil {
        return nil, err
    }
    const qs = `SELECT trip_id, seat_number, booking_code, created_at
                FROM trip_seats WHERE trip_id = ? ORDER BY seat_number`
    rows, err := r.db.QueryContext(ctx, qs, tripID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    for rows.Next() {
        var bs model.BookedSeat
        if err := rows.Scan(&bs.TripID, &bs.SeatNumber, &bs.BookingCode, &bs.CreatedAt); err != nil {
            return nil, err
        }
        t.BookedSeats = append(t.BookedSeats, bs)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return &t, nil
}

// IsSeatBooked reports whether the seat number is durably committed
// on the trip.
func (r *TripRepo) IsSeatBooked(ctx context.Context, tripID uint64, seatNumber string) (bool, error) {
    const q = `SELECT EXISTS(SELECT 1 FROM trip_seats WHERE trip_id = ? AND seat_number = ?)`
    var exists bool
    if err := r.db.QueryRowContext(ctx, q, tripID, seatNumber).Scan(&exists); err != nil {
        return false, err
    }
    return exists, nil
}

// CommitSeats durably books the given seats for bookingCode.  The
// insert is idempotent: a seat already committed for the same booking
// is left untouched, so a retried confirm cannot double-book or
// double-decrement.  A seat committed for a DIFFERENT booking makes
// the whole call fail with ErrConflict and nothing is applied.
// The available_seats counter is recomputed from the trip_seats count
// within the same transaction.
func (r *TripRepo) CommitSeats(ctx context.Context, tripID uint64, seats []string, bookingCode string) error {
    if len(seats) == 0 {
        return nil
    }
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
    for _, seat := range seats {
        // Reject seats owned by another booking before inserting.
        var owner string
        err := tx.QueryRowContext(ctx,
            `SELECT booking_code FROM trip_seats WHERE trip_id = ? AND seat_number = ?`,
            tripID, seat,
        ).Scan(&owner)
        switch {
        case err == sql.ErrNoRows:
            if _, err := tx.ExecContext(ctx,
                `INSERT INTO trip_seats (trip_id, seat_number, booking_code) VALUES (?, ?, ?)`,
                tripID, seat, bookingCode,
            ); err != nil {
                return fmt.Errorf("commit seat %s: %w", seat, err)
            }
        case err != nil:
            return err
        case owner != bookingCode:
            return fmt.Errorf("seat %s already booked by %s: %w", seat, owner, ErrConflict)
        }
        // owner == bookingCode: retried confirm, nothing to do.
    }
    if err := r.recomputeAvailableTx(ctx, tx, tripID); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// ReleaseSeats returns the given seats to the pool.  Deleting a seat
// that is not committed is not an error, which keeps the call
// idempotent for cancellation retries.
func (r *TripRepo) ReleaseSeats(ctx context.Context, tripID uint64, seats []string) error {
    if len(seats) == 0 {
        return nil
    }
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
    query := `DELETE FROM trip_seats WHERE trip_id = ? AND seat_number IN (`
    args := make([]interface{}, 0, len(seats)+1)
    args = append(args, tripID)
    for i, seat := range seats {
        if i > 0 {
            query += ","
        }
        query += "?"
        args = append(args, seat)
    }
    query += ")"
    if _, err := tx.ExecContext(ctx, query, args...); err != nil {
        return err
    }
    if err := r.recomputeAvailableTx(ctx, tx, tripID); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// recomputeAvailableTx derives available_seats from the committed
// seat count in a single conditional statement.  The counter is a
// read model; trip_seats stays the source of truth.
func (r *TripRepo) recomputeAvailableTx(ctx context.Context, tx *sql.Tx, tripID uint64) error {
    const q = `UPDATE trips
               SET available_seats = total_seats - (SELECT COUNT(*) FROM trip_seats WHERE trip_id = ?),
                   updated_at = UTC_TIMESTAMP()
               WHERE id = ?`
    // MySQL reports rows changed, not rows matched, so the affected
    // count is not checked here: a recompute that lands on the same
    // value within the same second is still a success.
    _, err := tx.ExecContext(ctx, q, tripID, tripID)
    return err
}
