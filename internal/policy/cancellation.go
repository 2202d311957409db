// Package policy computes refunds for booking cancellations.  The
// engine is a pure function of the departure time, the current time
// and an ordered rule table; it performs no I/O so it can be tested
// exhaustively with simulated clocks.
package policy

import (
    "errors"
    "fmt"
    "sort"
    "time"

    "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/model"
)

// ErrNotCancellable is returned when the trip has already departed.
// Callers must check booking eligibility (status, prior cancellation)
// before invoking the engine; the engine only guards the clock.
var ErrNotCancellable = errors.New("trip already departed")

// Quote is the outcome of a refund evaluation.
//
// Fields:
//  RefundPercentage  – percentage of the paid amount returned.
//  RefundAmountCents – concrete amount to refund, already clamped.
//  AppliedRule       – human-readable description of the matched rule.
type Quote struct {
    RefundPercentage  int    `json:"refund_percentage"`
    RefundAmountCents int64  `json:"refund_amount_cents"`
    AppliedRule       string `json:"applied_rule"`
}

// DefaultRules grants a full refund when cancelling at least two
// hours before departure and nothing below that.
var DefaultRules = []model.CancellationRule{
    {HoursBeforeDeparture: 2, RefundPercentage: 100},
}

// Evaluate finds the first rule, in descending threshold order, whose
// lead-time threshold the time remaining until departure satisfies,
// and turns its percentage into an amount:
//
//	amount = max(0, original*pct/100 - fee)
//
// A positive amount below minRefundCents is clamped up to
// minRefundCents (but never above the original amount).  When no rule
// matches, the refund is zero; a zero-amount quote is still a valid
// outcome and records that cancellation happened without any money
// movement.  A trip whose departure is already in the past yields
// ErrNotCancellable.
func Evaluate(departureAt, now time.Time, rules []model.CancellationRule, feeCents, minRefundCents, originalCents int64) (Quote, error) {
    lead := departureAt.Sub(now)
    if lead < 0 {
        return Quote{}, ErrNotCancellable
    }

    ordered := make([]model.CancellationRule, len(rules))
    copy(ordered, rules)
    sort.Slice(ordered, func(i, j int) bool {
        return ordered[i].HoursBeforeDeparture > ordered[j].HoursBeforeDeparture
    })

    leadHours := lead.Hours()
    pct := 0
    applied := "no rule matched; no refund"
    for _, r := range ordered {
        if leadHours >= float64(r.HoursBeforeDeparture) {
            pct = r.RefundPercentage
            applied = fmt.Sprintf("%d%% refund for cancellations at least %dh before departure", r.RefundPercentage, r.HoursBeforeDeparture)
            break
        }
    }

    amount := originalCents*int64(pct)/100 - feeCents
    if amount < 0 {
        amount = 0
    }
    if amount > 0 && amount < minRefundCents {
        amount = minRefundCents
    }
    if amount > originalCents {
        amount = originalCents
    }
    return Quote{RefundPercentage: pct, RefundAmountCents: amount, AppliedRule: applied}, nil
}
