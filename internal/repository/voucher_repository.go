package repository // repository for voucher persistence

import (
    "context"
    "database/sql"
    "time"

    "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/model"
)

// VoucherRepo encapsulates database operations for vouchers.  Usage
// counting is guarded by conditional updates so concurrent
// redemptions cannot push a voucher past its maximum usage.
type VoucherRepo struct {
    db *sql.DB
}

// NewVoucherRepo constructs a VoucherRepo given a DB handle.
func NewVoucherRepo(db *sql.DB) *VoucherRepo {
    return &VoucherRepo{db: db}
}

// Validate looks up a voucher by code and checks that it is active,
// inside its validity window, not exhausted and that the booking
// total meets the minimum amount.  On success the voucher row is
// returned; otherwise ErrVoucherNotFound.  Validate does not consume
// a usage; ApplyUsage does that at confirmation time.
func (r *VoucherRepo) Validate(ctx context.Context, code string, amountCents int64, now time.Time) (*model.Voucher, error) {
    const q = `SELECT id, code, discount_cents, min_amount_cents, max_usage, used_count,
                      valid_from, valid_until, active
               FROM vouchers WHERE code = ?`
    var v model.Voucher
    err := r.db.QueryRowContext(ctx, q, code).Scan(
        &v.ID, &v.Code, &v.DiscountCents, &v.MinAmountCents, &v.MaxUsage, &v.UsedCount,
        &v.ValidFrom, &v.ValidUntil, &v.Active,
    )
    if err == sql.ErrNoRows {
        return nil, ErrVoucherNotFound
    }
    if err != nil {
        return nil, err
    }
    now = now.UTC()
    if !v.Active || now.Before(v.ValidFrom) || now.After(v.ValidUntil) {
        return nil, ErrVoucherNotFound
    }
    if v.UsedCount >= v.MaxUsage {
        return nil, ErrVoucherNotFound
    }
    if amountCents < v.MinAmountCents {
        return nil, ErrVoucherNotFound
    }
    return &v, nil
}

// ApplyUsage consumes one usage of the voucher.  The conditional
// WHERE rejects the increment once max_usage is reached, returning
// ErrConflict so the caller can drop the discount.
func (r *VoucherRepo) ApplyUsage(ctx context.Context, voucherID uint64) error {
    const q = `UPDATE vouchers SET used_count = used_count + 1
               WHERE id = ? AND used_count < max_usage`
    res, err := r.db.ExecContext(ctx, q, voucherID)
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

// ReleaseUsage returns one usage to the voucher after a cancellation.
// Releasing a voucher that was never applied is a no-op.
func (r *VoucherRepo) ReleaseUsage(ctx context.Context, voucherID uint64) error {
    const q = `UPDATE vouchers SET used_count = used_count - 1
               WHERE id = ? AND used_count > 0`
    _, err := r.db.ExecContext(ctx, q, voucherID)
    return err
}
