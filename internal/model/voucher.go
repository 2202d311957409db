package model

import "time"

// Voucher represents a discount code that may be applied while
// holding seats.  Usage is counted so that a voucher cannot be
// redeemed more than MaxUsage times; cancelling a confirmed booking
// releases one usage again.
//
// Fields:
//  ID             – primary key identifier.
//  Code           – code entered by the customer.
//  DiscountCents  – flat discount applied to the booking total.
//  MinAmountCents – minimum booking total required to qualify.
//  MaxUsage       – how many times the voucher may be redeemed.
//  UsedCount      – how many times it has been redeemed so far.
//  ValidFrom      – start of the validity window.
//  ValidUntil     – end of the validity window.
//  Active         – soft enable/disable switch.
type Voucher struct {
    ID             uint64    // vouchers.id
    Code           string    // vouchers.code
    DiscountCents  int64     // vouchers.discount_cents
    MinAmountCents int64     // vouchers.min_amount_cents
    MaxUsage       int       // vouchers.max_usage
    UsedCount      int       // vouchers.used_count
    ValidFrom      time.Time // vouchers.valid_from
    ValidUntil     time.Time // vouchers.valid_until
    Active         bool      // vouchers.active
}
