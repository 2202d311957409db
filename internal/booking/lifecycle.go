package booking

import (
    "context"
    "errors"
    "log"
    "time"

    "github.com/google/uuid"

    "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/model"
    "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/policy"
    "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/repository"
)

// DefaultHoldTTL is how long a hold lives unless configured
// otherwise.  It is a policy constant, not baked into the lease
// manager's API.
const DefaultHoldTTL = 15 * time.Minute

// sweepBatchSize bounds how many expired bookings one sweep pass
// processes.
const sweepBatchSize = 100

// Config carries the booking policy knobs.
type Config struct {
    HoldTTL              time.Duration
    CancellationRules    []model.CancellationRule
    CancellationFeeCents int64
    MinimumRefundCents   int64
}

// Lifecycle orchestrates the booking state machine on top of the
// seat lease manager, the durable trip and booking stores and the
// payment and voucher collaborators.  Seat mutual exclusion comes
// solely from the lease store; the lifecycle adds the compensating
// actions that stand in for a multi-key transaction.
type Lifecycle struct {
    leases   SeatLeaser
    trips    TripStore
    bookings BookingStore
    payments PaymentGateway
    vouchers VoucherService
    cfg      Config

    now func() time.Time // injectable clock for expiry tests
}

// NewLifecycle wires the lifecycle.  Zero config values fall back to
// defaults (DefaultHoldTTL, policy.DefaultRules).
func NewLifecycle(leases SeatLeaser, trips TripStore, bookings BookingStore, payments PaymentGateway, vouchers VoucherService, cfg Config) *Lifecycle {
    if leases == nil || trips == nil || bookings == nil {
        panic("nil dependency passed to booking.NewLifecycle")
    }
    if cfg.HoldTTL <= 0 {
        cfg.HoldTTL = DefaultHoldTTL
    }
    if len(cfg.CancellationRules) == 0 {
        cfg.CancellationRules = policy.DefaultRules
    }
    return &Lifecycle{
        leases:   leases,
        trips:    trips,
        bookings: bookings,
        payments: payments,
        vouchers: vouchers,
        cfg:      cfg,
        now:      time.Now,
    }
}

// SeatRequest names one seat to hold together with its passenger.
type SeatRequest struct {
    SeatNumber     string `json:"seat_number"`
    PassengerName  string `json:"passenger_name"`
    PassengerPhone string `json:"passenger_phone"`
}

// HoldRequest is the input to Hold.  HolderID may be empty, in which
// case a fresh opaque guest token is generated.
type HoldRequest struct {
    TripID       uint64
    Seats        []SeatRequest
    ContactName  string
    ContactPhone string
    ContactEmail string
    VoucherCode  string
    HolderID     string
}

// HoldResult is returned by a successful Hold.
type HoldResult struct {
    Booking   *model.Booking
    HolderID  string
    HeldUntil time.Time
}

// RefundRequest describes the money movement a cancellation asked the
// payment collaborator for.  A zero amount is valid: it records that
// cancellation happened without any refund.
type RefundRequest struct {
    BookingCode string `json:"booking_code"`
    AmountCents int64  `json:"amount_cents"`
    Percentage  int    `json:"percentage"`
    Reason      string `json:"reason"`
    AppliedRule string `json:"applied_rule"`
}

// CancelResult is returned by Cancel.  RefundErr carries a refund
// initiation failure; the cancellation itself always stands.
type CancelResult struct {
    Booking   *model.Booking
    Refund    *RefundRequest
    RefundErr error
}

// Hold reserves seats for a limited time.  It validates the trip and
// the requested seats against durable inventory, acquires one lease
// per seat and creates a PENDING booking referencing the lease
// expiry.  The multi-seat acquire is not atomic as a unit: on any
// per-seat conflict every lease that was acquired is released again
// and the whole hold fails with a ConflictError listing the
// contested seats.
func (l *Lifecycle) Hold(ctx context.Context, req HoldRequest) (*HoldResult, error) {
    if req.TripID == 0 {
        return nil, &ValidationError{Msg: "trip id is required"}
    }
    if len(req.Seats) == 0 {
        return nil, &ValidationError{Msg: "at least one seat is required"}
    }
    if req.ContactName == "" || req.ContactPhone == "" {
        return nil, &ValidationError{Msg: "contact name and phone are required"}
    }
    seen := make(map[string]struct{}, len(req.Seats))
    seatNumbers := make([]string, 0, len(req.Seats))
    for _, s := range req.Seats {
        if s.SeatNumber == "" {
            return nil, &ValidationError{Msg: "seat number must not be empty"}
        }
        if _, dup := seen[s.SeatNumber]; dup {
            return nil, &ValidationError{Msg: "duplicate seat number " + s.SeatNumber}
        }
        seen[s.SeatNumber] = struct{}{}
        seatNumbers = append(seatNumbers, s.SeatNumber)
    }

    now := l.now()
    trip, err := l.trips.Load(ctx, req.TripID)
    if errors.Is(err, repository.ErrTripNotFound) {
        return nil, &NotFoundError{Msg: "trip not found"}
    }
    if err != nil {
        return nil, err
    }
    if !trip.IsBookable(now) {
        return nil, &StateError{Msg: "trip is not bookable", Status: trip.Status}
    }
    if len(seatNumbers) > trip.AvailableSeats {
        return nil, &ConflictError{Msg: "not enough available seats"}
    }
    var alreadyBooked []string
    for _, seat := range seatNumbers {
        if trip.HasSeat(seat) {
            alreadyBooked = append(alreadyBooked, seat)
        }
    }
    if len(alreadyBooked) > 0 {
        return nil, &ConflictError{Msg: "seats already booked", Seats: alreadyBooked}
    }

    holderID := req.HolderID
    if holderID == "" {
        holderID = uuid.NewString()
    }

    acquired, err := l.leases.Acquire(ctx, req.TripID, seatNumbers, holderID, l.cfg.HoldTTL)
    if err != nil {
        // Lease store errored partway; give back whatever stuck.
        l.releaseQuietly(ctx, req.TripID, acquired.Locked, holderID)
        return nil, err
    }
    if len(acquired.Failed) > 0 {
        l.releaseQuietly(ctx, req.TripID, acquired.Locked, holderID)
        conflicted := make([]string, 0, len(acquired.Failed))
        for _, f := range acquired.Failed {
            conflicted = append(conflicted, f.SeatNumber)
        }
        return nil, &ConflictError{Msg: "seats currently held by another customer", Seats: conflicted}
    }

    total := trip.SeatPriceCents * int64(len(seatNumbers))
    var discount int64
    var voucherID *uint64
    if req.VoucherCode != "" && l.vouchers != nil {
        v, err := l.vouchers.Validate(ctx, req.VoucherCode, total, now)
        if err != nil {
            // A failed voucher validation never fails the hold; the
            // booking simply proceeds without a discount.
            log.Printf("booking: voucher %q rejected: %v", req.VoucherCode, err)
        } else {
            discount = v.DiscountCents
            if discount > total {
                discount = total
            }
            voucherID = &v.ID
        }
    }

    heldUntil := now.Add(l.cfg.HoldTTL).UTC()
    b := &model.Booking{
        Code:            uuid.NewString(),
        TripID:          req.TripID,
        HolderID:        holderID,
        Status:          model.BookingPending,
        PaymentStatus:   model.PaymentPending,
        IsHeld:          true,
        HeldUntil:       &heldUntil,
        ContactName:     req.ContactName,
        ContactPhone:    req.ContactPhone,
        ContactEmail:    req.ContactEmail,
        TotalPriceCents: total,
        DiscountCents:   discount,
        FinalPriceCents: total - discount,
        VoucherID:       voucherID,
    }
    for _, s := range req.Seats {
        b.Seats = append(b.Seats, model.BookingSeat{
            SeatNumber:     s.SeatNumber,
            PriceCents:     trip.SeatPriceCents,
            PassengerName:  s.PassengerName,
            PassengerPhone: s.PassengerPhone,
        })
    }
    if err := l.bookings.Create(ctx, b); err != nil {
        l.releaseQuietly(ctx, req.TripID, seatNumbers, holderID)
        return nil, err
    }
    return &HoldResult{Booking: b, HolderID: holderID, HeldUntil: heldUntil}, nil
}

// Confirm converts a PENDING booking's leased seats into durable trip
// inventory and flips the booking to CONFIRMED.  A hold whose TTL has
// lapsed is rejected with an ExpiredError even when the lease keys
// have not physically expired yet.  holderID is optional: a payment
// callback confirming without the original session token passes ""
// and the ownership-checked lease release is skipped, leaving the
// stale leases to expire naturally by TTL.
func (l *Lifecycle) Confirm(ctx context.Context, code, holderID string) (*model.Booking, error) {
    b, err := l.getBooking(ctx, code)
    if err != nil {
        return nil, err
    }
    if b.Status != model.BookingPending {
        return nil, &StateError{Msg: "only pending bookings can be confirmed", Status: b.Status}
    }
    now := l.now()
    if b.HeldUntil == nil || !now.Before(*b.HeldUntil) {
        return nil, &ExpiredError{Msg: "hold has expired; search and hold seats again"}
    }

    seats := b.SeatNumbers()
    if err := l.trips.CommitSeats(ctx, b.TripID, seats, b.Code); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return nil, &ConflictError{Msg: "seats no longer available", Seats: seats}
        }
        return nil, err
    }
    if err := l.bookings.MarkConfirmed(ctx, b.Code); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            // Lost the race against a cancel or sweep; inventory is
            // idempotent, so give the seats back and report.
            l.releaseSeatsQuietly(ctx, b.TripID, seats)
            fresh, ferr := l.bookings.GetByCode(ctx, b.Code)
            status := ""
            if ferr == nil {
                status = fresh.Status
            }
            return nil, &StateError{Msg: "booking is no longer pending", Status: status}
        }
        return nil, err
    }
    if b.VoucherID != nil && l.vouchers != nil {
        if err := l.vouchers.ApplyUsage(ctx, *b.VoucherID); err != nil {
            // Usage accounting must not block a paid confirmation.
            log.Printf("booking: apply voucher usage %d: %v", *b.VoucherID, err)
        }
    }
    if holderID != "" {
        // Best-effort: a failed unlock leaves keys to expire by TTL.
        l.releaseQuietly(ctx, b.TripID, seats, holderID)
    }
    return l.bookings.GetByCode(ctx, b.Code)
}

// Cancel moves a PENDING or CONFIRMED booking to CANCELLED.  For a
// confirmed booking the committed seats return to the pool and any
// voucher usage is released.  When the booking was paid, the
// cancellation policy engine decides the refund and a refund request
// is sent to the payment collaborator; a refund initiation failure is
// reported in CancelResult.RefundErr but never rolls the cancellation
// back.
func (l *Lifecycle) Cancel(ctx context.Context, code, reason, actor string) (*CancelResult, error) {
    b, err := l.getBooking(ctx, code)
    if err != nil {
        return nil, err
    }
    if b.Status != model.BookingPending && b.Status != model.BookingConfirmed {
        return nil, &StateError{Msg: "booking cannot be cancelled", Status: b.Status}
    }
    trip, err := l.trips.Load(ctx, b.TripID)
    if errors.Is(err, repository.ErrTripNotFound) {
        return nil, &NotFoundError{Msg: "trip not found"}
    }
    if err != nil {
        return nil, err
    }
    now := l.now()
    if now.After(trip.DepartureAt) {
        return nil, &StateError{Msg: "trip already departed", Status: b.Status}
    }

    wasConfirmed := b.Status == model.BookingConfirmed
    if err := l.bookings.MarkCancelled(ctx, b.Code, reason, actor, now,
        model.BookingPending, model.BookingConfirmed); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return nil, &StateError{Msg: "booking is already finalized", Status: b.Status}
        }
        return nil, err
    }

    seats := b.SeatNumbers()
    if wasConfirmed {
        if err := l.trips.ReleaseSeats(ctx, b.TripID, seats); err != nil {
            // Seats will be reconciled by a retry; the cancellation
            // itself already happened.
            log.Printf("booking: release seats for %s: %v", b.Code, err)
        }
        if b.VoucherID != nil && l.vouchers != nil {
            if err := l.vouchers.ReleaseUsage(ctx, *b.VoucherID); err != nil {
                log.Printf("booking: release voucher usage %d: %v", *b.VoucherID, err)
            }
        }
    } else if b.IsHeld {
        l.releaseQuietly(ctx, b.TripID, seats, b.HolderID)
    }

    result := &CancelResult{}
    if b.PaymentStatus == model.PaymentPaid {
        quote, qerr := policy.Evaluate(trip.DepartureAt, now, l.cfg.CancellationRules,
            l.cfg.CancellationFeeCents, l.cfg.MinimumRefundCents, b.FinalPriceCents)
        if qerr != nil {
            // Departure was checked above; only a clock race lands
            // here.  Record a zero refund for reconciliation.
            quote = policy.Quote{AppliedRule: qerr.Error()}
        }
        result.Refund = &RefundRequest{
            BookingCode: b.Code,
            AmountCents: quote.RefundAmountCents,
            Percentage:  quote.RefundPercentage,
            Reason:      reason,
            AppliedRule: quote.AppliedRule,
        }
        if l.payments != nil {
            if err := l.payments.RequestRefund(ctx, b.Code, quote.RefundAmountCents, reason); err != nil {
                result.RefundErr = &DownstreamError{Op: "request refund", Err: err}
            } else if quote.RefundAmountCents > 0 {
                if err := l.bookings.UpdatePaymentStatus(ctx, b.Code, model.PaymentRefunded); err != nil {
                    log.Printf("booking: record refunded status for %s: %v", b.Code, err)
                }
            }
        }
    }

    fresh, err := l.bookings.GetByCode(ctx, b.Code)
    if err != nil {
        return nil, err
    }
    result.Booking = fresh
    return result, nil
}

// ExtendHold lengthens a live hold.  The lease extension happens
// first; only when every seat is still owned by holderID is the
// booking's heldUntil moved.  A hold that already lapsed, or whose
// seats were re-acquired by someone else, yields an ExpiredError and
// the caller must treat the hold as lost.
func (l *Lifecycle) ExtendHold(ctx context.Context, code, holderID string, extra time.Duration) (*model.Booking, error) {
    if extra <= 0 {
        return nil, &ValidationError{Msg: "extension must be positive"}
    }
    b, err := l.getBooking(ctx, code)
    if err != nil {
        return nil, err
    }
    if b.Status != model.BookingPending || !b.IsHeld || b.HeldUntil == nil {
        return nil, &StateError{Msg: "booking is not holding seats", Status: b.Status}
    }
    now := l.now()
    if b.HoldExpired(now) {
        return nil, &ExpiredError{Msg: "hold has expired; search and hold seats again"}
    }
    newHeldUntil := b.HeldUntil.Add(extra).UTC()
    ttl := newHeldUntil.Sub(now)
    ext, err := l.leases.Extend(ctx, b.TripID, b.SeatNumbers(), holderID, ttl)
    if err != nil {
        return nil, err
    }
    if len(ext.Failed) > 0 {
        return nil, &ExpiredError{Msg: "hold was lost; search and hold seats again"}
    }
    if err := l.bookings.UpdateHeldUntil(ctx, b.Code, newHeldUntil); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return nil, &StateError{Msg: "booking is no longer pending", Status: b.Status}
        }
        return nil, err
    }
    return l.bookings.GetByCode(ctx, b.Code)
}

// ReleaseHold voluntarily gives a hold back.  It is idempotent: a
// booking that already left PENDING is returned unchanged.  No refund
// logic runs because nothing was ever paid on a pure hold.
func (l *Lifecycle) ReleaseHold(ctx context.Context, code, holderID string) (*model.Booking, error) {
    b, err := l.getBooking(ctx, code)
    if err != nil {
        return nil, err
    }
    if b.Status != model.BookingPending {
        return b, nil
    }
    holder := holderID
    if holder == "" {
        holder = b.HolderID
    }
    l.releaseQuietly(ctx, b.TripID, b.SeatNumbers(), holder)
    err = l.bookings.MarkCancelled(ctx, b.Code, "holder released", "holder", l.now(), model.BookingPending)
    if err != nil && !errors.Is(err, repository.ErrConflict) {
        return nil, err
    }
    return l.bookings.GetByCode(ctx, b.Code)
}

// Complete marks a confirmed booking as used once the trip ran.
func (l *Lifecycle) Complete(ctx context.Context, code string) (*model.Booking, error) {
    b, err := l.getBooking(ctx, code)
    if err != nil {
        return nil, err
    }
    if b.Status != model.BookingConfirmed {
        return nil, &StateError{Msg: "only confirmed bookings can be completed", Status: b.Status}
    }
    if err := l.bookings.MarkCompleted(ctx, b.Code); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return nil, &StateError{Msg: "booking is no longer confirmed", Status: b.Status}
        }
        return nil, err
    }
    return l.bookings.GetByCode(ctx, b.Code)
}

// RecordPayment stores the outcome reported by the payment
// collaborator.  It does not confirm the booking; callers follow up
// with Confirm, which independently re-validates the hold.
func (l *Lifecycle) RecordPayment(ctx context.Context, code, paymentStatus string) (*model.Booking, error) {
    switch paymentStatus {
    case model.PaymentPaid, model.PaymentFailed:
    default:
        return nil, &ValidationError{Msg: "payment status must be PAID or FAILED"}
    }
    if _, err := l.getBooking(ctx, code); err != nil {
        return nil, err
    }
    if err := l.bookings.UpdatePaymentStatus(ctx, code, paymentStatus); err != nil {
        return nil, err
    }
    return l.bookings.GetByCode(ctx, code)
}

// GetBooking fetches a booking by code.
func (l *Lifecycle) GetBooking(ctx context.Context, code string) (*model.Booking, error) {
    return l.getBooking(ctx, code)
}

// SweepExpiredHolds cancels every PENDING booking whose hold lapsed.
// Individual failures are logged and skipped so one bad record cannot
// stall the sweep.  The conditional cancel makes a second sweep over
// the same booking a no-op.  Returns how many bookings were
// cancelled.
func (l *Lifecycle) SweepExpiredHolds(ctx context.Context) (int, error) {
    now := l.now()
    expired, err := l.bookings.ListExpiredPending(ctx, now, sweepBatchSize)
    if err != nil {
        return 0, err
    }
    count := 0
    for _, b := range expired {
        // The lease has already expired in the store; release is
        // best-effort cleanup of the advisory index.
        l.releaseQuietly(ctx, b.TripID, b.SeatNumbers(), b.HolderID)
        err := l.bookings.MarkCancelled(ctx, b.Code, "hold expired", "system", now, model.BookingPending)
        if errors.Is(err, repository.ErrConflict) {
            continue // confirmed or cancelled since listing; not ours
        }
        if err != nil {
            log.Printf("sweeper: cancel %s: %v", b.Code, err)
            continue
        }
        count++
    }
    return count, nil
}

func (l *Lifecycle) getBooking(ctx context.Context, code string) (*model.Booking, error) {
    if code == "" {
        return nil, &ValidationError{Msg: "booking code is required"}
    }
    b, err := l.bookings.GetByCode(ctx, code)
    if errors.Is(err, repository.ErrBookingNotFound) {
        return nil, &NotFoundError{Msg: "booking not found"}
    }
    if err != nil {
        return nil, err
    }
    return b, nil
}

// releaseQuietly drops leases without letting a lease-store hiccup
// bubble into the caller's flow.
func (l *Lifecycle) releaseQuietly(ctx context.Context, tripID uint64, seats []string, holderID string) {
    if len(seats) == 0 || holderID == "" {
        return
    }
    if _, err := l.leases.Release(ctx, tripID, seats, holderID); err != nil {
        log.Printf("booking: release leases trip=%d: %v", tripID, err)
    }
}

// releaseSeatsQuietly undoes a seat commit after a lost confirm race.
func (l *Lifecycle) releaseSeatsQuietly(ctx context.Context, tripID uint64, seats []string) {
    if err := l.trips.ReleaseSeats(ctx, tripID, seats); err != nil {
        log.Printf("booking: rollback seats trip=%d: %v", tripID, err)
    }
}
