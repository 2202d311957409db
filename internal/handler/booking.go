package handler

import (
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/booking"
    "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/middleware"
    "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/model"
    "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/queue"
    "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/repository"
    queuepub "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/service"
    "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/utils"
)

// BookingHandler exposes the booking lifecycle over HTTP.  The
// handler is a thin shell: validation of business rules, lease
// orchestration and the state machine all live in the booking
// package; this layer binds requests, resolves the holder identity
// and maps the error taxonomy onto status codes.
type BookingHandler struct {
    Lifecycle *booking.Lifecycle
    Trips     *repository.TripRepo
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(lc *booking.Lifecycle, trips *repository.TripRepo) *BookingHandler {
    if lc == nil || trips == nil {
        panic("nil dependency passed to NewBookingHandler")
    }
    return &BookingHandler{Lifecycle: lc, Trips: trips}
}

// seatInput mirrors booking.SeatRequest for request binding.
type seatInput struct {
    SeatNumber     string `json:"seat_number"`
    PassengerName  string `json:"passenger_name"`
    PassengerPhone string `json:"passenger_phone"`
}

// HoldSeats handles POST /v1/trips/:id/hold.  It acquires one lease
// per requested seat and creates a PENDING booking.  When any seat is
// contested the whole hold fails with 409 and the list of conflicting
// seat numbers so the customer can pick different seats.
func (h *BookingHandler) HoldSeats(c echo.Context) error {
    tripID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || tripID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
    }
    var body struct {
        Seats        []seatInput `json:"seats"`
        ContactName  string      `json:"contact_name"`
        ContactPhone string      `json:"contact_phone"`
        ContactEmail string      `json:"contact_email"`
        VoucherCode  string      `json:"voucher_code"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    req := booking.HoldRequest{
        TripID:       tripID,
        ContactName:  body.ContactName,
        ContactPhone: body.ContactPhone,
        ContactEmail: body.ContactEmail,
        VoucherCode:  body.VoucherCode,
        HolderID:     middleware.HolderID(c),
    }
    for _, s := range body.Seats {
        req.Seats = append(req.Seats, booking.SeatRequest{
            SeatNumber:     s.SeatNumber,
            PassengerName:  s.PassengerName,
            PassengerPhone: s.PassengerPhone,
        })
    }
    res, err := h.Lifecycle.Hold(c.Request().Context(), req)
    if err != nil {
        return writeBookingError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "booking":    bookingView(res.Booking, time.Now().UTC()),
        "holder_id":  res.HolderID,
        "held_until": res.HeldUntil.Format(time.RFC3339),
    })
}

// Confirm handles POST /v1/bookings/:code/confirm.  The holder id is
// optional: payment callbacks confirming without the original session
// omit it, and the stale leases are simply left to expire by TTL.  A
// lapsed hold yields 410 so the caller can re-search and re-hold.
func (h *BookingHandler) Confirm(c echo.Context) error {
    code := c.Param("code")
    b, err := h.Lifecycle.Confirm(c.Request().Context(), code, middleware.HolderID(c))
    if err != nil {
        return writeBookingError(c, err)
    }
    h.publishConfirmed(c, b)
    return c.JSON(http.StatusOK, echo.Map{"booking": bookingView(b, time.Now().UTC())})
}

// Cancel handles POST /v1/bookings/:code/cancel.  The cancellation
// always completes even when refund initiation fails; the refund
// error is reported alongside for reconciliation.
func (h *BookingHandler) Cancel(c echo.Context) error {
    code := c.Param("code")
    var body struct {
        Reason string `json:"reason"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.Reason == "" {
        body.Reason = "cancelled by customer"
    }
    res, err := h.Lifecycle.Cancel(c.Request().Context(), code, body.Reason, actorOf(c))
    if err != nil {
        return writeBookingError(c, err)
    }
    h.publishCancelled(c, res)
    resp := echo.Map{"booking": bookingView(res.Booking, time.Now().UTC())}
    if res.Refund != nil {
        resp["refund"] = res.Refund
    }
    if res.RefundErr != nil {
        resp["refund_error"] = res.RefundErr.Error()
    }
    return c.JSON(http.StatusOK, resp)
}

// ExtendHold handles POST /v1/bookings/:code/extend with a body of
// {"extra_seconds": n}.  A hold that was already lost yields 410 and
// the caller must treat it as a failed hold.
func (h *BookingHandler) ExtendHold(c echo.Context) error {
    code := c.Param("code")
    var body struct {
        ExtraSeconds int `json:"extra_seconds"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    b, err := h.Lifecycle.ExtendHold(c.Request().Context(), code, middleware.HolderID(c),
        time.Duration(body.ExtraSeconds)*time.Second)
    if err != nil {
        return writeBookingError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "booking":        bookingView(b, time.Now().UTC()),
        "new_held_until": formatHeldUntil(b),
    })
}

// ReleaseHold handles DELETE /v1/bookings/:code/hold.  Idempotent: a
// booking that already left PENDING is returned unchanged.
func (h *BookingHandler) ReleaseHold(c echo.Context) error {
    code := c.Param("code")
    b, err := h.Lifecycle.ReleaseHold(c.Request().Context(), code, middleware.HolderID(c))
    if err != nil {
        return writeBookingError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"booking": bookingView(b, time.Now().UTC())})
}

// Get handles GET /v1/bookings/:code.  The view reports logical hold
// expiry computed at read time, not just what the sweeper has
// persisted.
func (h *BookingHandler) Get(c echo.Context) error {
    code := c.Param("code")
    b, err := h.Lifecycle.GetBooking(c.Request().Context(), code)
    if err != nil {
        return writeBookingError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"booking": bookingView(b, time.Now().UTC())})
}

// RecordPayment handles POST /v1/bookings/:code/payment with a body
// of {"status": "PAID"|"FAILED"}.  It only records the outcome; the
// caller follows up with Confirm, which re-validates the hold.
func (h *BookingHandler) RecordPayment(c echo.Context) error {
    code := c.Param("code")
    var body struct {
        Status string `json:"status"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    b, err := h.Lifecycle.RecordPayment(c.Request().Context(), code, body.Status)
    if err != nil {
        return writeBookingError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"booking": bookingView(b, time.Now().UTC())})
}

// Complete handles POST /v1/bookings/:code/complete (operator only).
func (h *BookingHandler) Complete(c echo.Context) error {
    code := c.Param("code")
    b, err := h.Lifecycle.Complete(c.Request().Context(), code)
    if err != nil {
        return writeBookingError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"booking": bookingView(b, time.Now().UTC())})
}

// Sweep handles POST /v1/admin/sweep (operator only).  It runs one
// pass of the expired-hold sweeper, for external schedulers that
// prefer driving maintenance themselves.
func (h *BookingHandler) Sweep(c echo.Context) error {
    n, err := h.Lifecycle.SweepExpiredHolds(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sweep failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"cancelled": n})
}

// publishConfirmed emits the booking.confirmed event.  Best-effort:
// broker trouble is already logged by the publisher and never affects
// the response.
func (h *BookingHandler) publishConfirmed(c echo.Context, b *model.Booking) {
    trip, err := h.Trips.Load(c.Request().Context(), b.TripID)
    if err != nil {
        return
    }
    _ = queuepub.PublishBookingConfirmed(c.Request().Context(), queue.BookingConfirmedEvent{
        BookingCode:     b.Code,
        TripID:          b.TripID,
        Origin:          trip.Origin,
        Destination:     trip.Destination,
        DepartureAt:     trip.DepartureAt.UTC().Format(time.RFC3339),
        SeatNumbers:     b.SeatNumbers(),
        ContactName:     b.ContactName,
        ContactPhone:    b.ContactPhone,
        FinalPriceCents: b.FinalPriceCents,
        ConfirmedAt:     time.Now().UTC().Format(time.RFC3339),
    })
}

func (h *BookingHandler) publishCancelled(c echo.Context, res *booking.CancelResult) {
    b := res.Booking
    var refund int64
    if res.Refund != nil {
        refund = res.Refund.AmountCents
    }
    reason := ""
    if b.CancelReason != nil {
        reason = *b.CancelReason
    }
    _ = queuepub.PublishBookingCancelled(c.Request().Context(), queue.BookingCancelledEvent{
        BookingCode:       b.Code,
        TripID:            b.TripID,
        SeatNumbers:       b.SeatNumbers(),
        Reason:            reason,
        Actor:             actorOf(c),
        RefundAmountCents: refund,
        CancelledAt:       time.Now().UTC().Format(time.RFC3339),
    })
}

// actorOf labels who performed the operation for audit fields.
func actorOf(c echo.Context) string {
    if role, ok := c.Get("role").(string); ok {
        switch role {
        case "OPERATOR":
            return "operator"
        case "CUSTOMER":
            return "customer"
        }
    }
    return "guest"
}

// bookingView shapes a booking for JSON responses.
func bookingView(b *model.Booking, now time.Time) echo.Map {
    seats := make([]echo.Map, 0, len(b.Seats))
    for _, s := range b.Seats {
        seats = append(seats, echo.Map{
            "seat_number":     s.SeatNumber,
            "price_cents":     s.PriceCents,
            "passenger_name":  s.PassengerName,
            "passenger_phone": s.PassengerPhone,
        })
    }
    v := echo.Map{
        "code":              b.Code,
        "trip_id":           b.TripID,
        "status":            b.Status,
        "payment_status":    b.PaymentStatus,
        "is_held":           b.IsHeld,
        "hold_expired":      b.HoldExpired(now),
        "contact_name":      b.ContactName,
        "contact_phone":     b.ContactPhone,
        "contact_email":     b.ContactEmail,
        "total_price_cents": b.TotalPriceCents,
        "discount_cents":    b.DiscountCents,
        "final_price_cents": b.FinalPriceCents,
        "seats":             seats,
        "created_at":        b.CreatedAt.UTC().Format(time.RFC3339),
    }
    if hu := formatHeldUntil(b); hu != "" {
        v["held_until"] = hu
    }
    if b.CancelReason != nil {
        v["cancel_reason"] = *b.CancelReason
    }
    return v
}

func formatHeldUntil(b *model.Booking) string {
    if b.HeldUntil == nil {
        return ""
    }
    return b.HeldUntil.UTC().Format(time.RFC3339)
}

// writeBookingError maps the booking error taxonomy to HTTP status
// codes.  Conflicts carry the contested seat numbers so clients can
// offer alternatives.
func writeBookingError(c echo.Context, err error) error {
    var (
        vErr  *booking.ValidationError
        cErr  *booking.ConflictError
        eErr  *booking.ExpiredError
        nfErr *booking.NotFoundError
        sErr  *booking.StateError
        dErr  *booking.DownstreamError
    )
    switch {
    case errors.As(err, &vErr):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": vErr.Msg})
    case errors.As(err, &cErr):
        resp := echo.Map{"error": cErr.Msg}
        if len(cErr.Seats) > 0 {
            resp["seats"] = cErr.Seats
        }
        return c.JSON(http.StatusConflict, resp)
    case errors.As(err, &eErr):
        return c.JSON(http.StatusGone, echo.Map{"error": eErr.Msg})
    case errors.As(err, &nfErr):
        return c.JSON(http.StatusNotFound, echo.Map{"error": nfErr.Msg})
    case errors.As(err, &sErr):
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": sErr.Error()})
    case errors.As(err, &dErr):
        return c.JSON(http.StatusBadGateway, echo.Map{"error": dErr.Error()})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
    }
}

// GuestHolder handles POST /v1/holders/guest.  It issues an opaque
// holder id wrapped in a signed token; the guest presents the token
// on every booking request so all of them share one lease owner.
func GuestHolder(secret string, sessionTTL time.Duration) echo.HandlerFunc {
    return func(c echo.Context) error {
        tok, err := utils.NewHolderToken(secret, utils.NewHolderID(), sessionTTL)
        if err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue holder token"})
        }
        return c.JSON(http.StatusCreated, echo.Map{
            "holder_id":  tok.HolderID,
            "token":      tok.Token,
            "expires_at": tok.Exp.Format(time.RFC3339),
        })
    }
}
