package model

// CancellationRule maps a minimum lead time before departure to the
// refund percentage granted when cancelling at or above that lead
// time.  Rules are evaluated in descending threshold order; the first
// rule whose threshold the lead time satisfies wins.
//
// Fields:
//  HoursBeforeDeparture – minimum lead time in hours for this rule
//                         to apply.
//  RefundPercentage     – percentage of the paid amount returned.
type CancellationRule struct {
    HoursBeforeDeparture int // cancellation_rules.hours_before_departure
    RefundPercentage     int // cancellation_rules.refund_percentage
}
