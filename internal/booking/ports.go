package booking

import (
    "context"
    "time"

    "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/lease"
    "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/model"
)

// SeatLeaser is the slice of the lease manager the lifecycle needs.
// Acquisition is per-seat, never all-or-nothing; the lifecycle
// compensates on partial failure.
type SeatLeaser interface {
    Acquire(ctx context.Context, tripID uint64, seats []string, holderID string, ttl time.Duration) (lease.AcquireResult, error)
    Release(ctx context.Context, tripID uint64, seats []string, holderID string) (lease.ReleaseResult, error)
    Extend(ctx context.Context, tripID uint64, seats []string, holderID string, ttl time.Duration) (lease.ExtendResult, error)
}

// TripStore is the durable trip inventory.  CommitSeats and
// ReleaseSeats must be idempotent so partially applied confirms and
// cancels can be retried safely.
type TripStore interface {
    Load(ctx context.Context, tripID uint64) (*model.Trip, error)
    CommitSeats(ctx context.Context, tripID uint64, seats []string, bookingCode string) error
    ReleaseSeats(ctx context.Context, tripID uint64, seats []string) error
}

// BookingStore is the durable booking record store.  Mark* methods
// are conditional transitions that return repository.ErrConflict when
// the expected prior status was gone, which is how racing writers are
// resolved.
type BookingStore interface {
    Create(ctx context.Context, b *model.Booking) error
    GetByCode(ctx context.Context, code string) (*model.Booking, error)
    MarkConfirmed(ctx context.Context, code string) error
    MarkCancelled(ctx context.Context, code, reason, actor string, at time.Time, fromStatuses ...string) error
    MarkCompleted(ctx context.Context, code string) error
    UpdateHeldUntil(ctx context.Context, code string, heldUntil time.Time) error
    UpdatePaymentStatus(ctx context.Context, code, paymentStatus string) error
    ListExpiredPending(ctx context.Context, before time.Time, limit int) ([]model.Booking, error)
}

// PaymentGateway initiates refunds.  It may fail independently of the
// booking state; a failure is reported for reconciliation, never
// rolled back into the cancellation.
type PaymentGateway interface {
    RequestRefund(ctx context.Context, bookingCode string, amountCents int64, reason string) error
}

// VoucherService validates and tracks voucher usage.  A validation
// failure during hold is logged and ignored; the booking simply
// proceeds without a discount.
type VoucherService interface {
    Validate(ctx context.Context, code string, amountCents int64, now time.Time) (*model.Voucher, error)
    ApplyUsage(ctx context.Context, voucherID uint64) error
    ReleaseUsage(ctx context.Context, voucherID uint64) error
}
