package queue_publisher

import (
    "context"
    "time"

    q "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/queue"
)

// RefundGateway implements the booking.PaymentGateway contract by
// publishing refund requests to the payment.refund.requested queue.
// The payment service consumes the queue and moves the money; a
// broker failure here surfaces as a downstream error that the
// lifecycle reports without undoing the cancellation.
type RefundGateway struct{}

// NewRefundGateway returns a broker-backed refund gateway.
func NewRefundGateway() *RefundGateway { return &RefundGateway{} }

// RequestRefund publishes a RefundRequestedEvent.  Zero-amount
// requests are published too: they record that a cancellation
// happened without any money movement.
func (g *RefundGateway) RequestRefund(ctx context.Context, bookingCode string, amountCents int64, reason string) error {
    return PublishRefundRequested(ctx, q.RefundRequestedEvent{
        BookingCode: bookingCode,
        AmountCents: amountCents,
        Reason:      reason,
        RequestedAt: time.Now().UTC().Format(time.RFC3339),
    })
}
