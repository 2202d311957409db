package handler

import (
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/lease"
    "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/repository"
)

// TripHandler serves trip inventory reads.  Availability merges two
// sources: durable trip_seats rows (booked) and live leases (held).
// The merged view is advisory for display; only the lease acquire at
// hold time is authoritative.
type TripHandler struct {
    Trips  *repository.TripRepo
    Leases *lease.Manager
}

// NewTripHandler constructs a TripHandler.
func NewTripHandler(trips *repository.TripRepo, leases *lease.Manager) *TripHandler {
    if trips == nil || leases == nil {
        panic("nil dependency passed to NewTripHandler")
    }
    return &TripHandler{Trips: trips, Leases: leases}
}

// Get handles GET /v1/trips/:id.
func (h *TripHandler) Get(c echo.Context) error {
    tripID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || tripID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
    }
    trip, err := h.Trips.Load(c.Request().Context(), tripID)
    if err != nil {
        if err == repository.ErrTripNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "trip not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load trip"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "trip": echo.Map{
            "id":               trip.ID,
            "origin":           trip.Origin,
            "destination":      trip.Destination,
            "departure_at":     trip.DepartureAt.UTC().Format(time.RFC3339),
            "status":           trip.Status,
            "total_seats":      trip.TotalSeats,
            "available_seats":  trip.AvailableSeats,
            "seat_price_cents": trip.SeatPriceCents,
        },
    })
}

// Seats handles GET /v1/trips/:id/seats.  Each seat is reported as
// booked (committed inventory), held (live lease, with remaining TTL)
// or free.  A seat can appear booked and still carry a not-yet-lapsed
// lease during confirmation; booked wins in the report.
func (h *TripHandler) Seats(c echo.Context) error {
    tripID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || tripID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
    }
    ctx := c.Request().Context()
    trip, err := h.Trips.Load(ctx, tripID)
    if err != nil {
        if err == repository.ErrTripNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "trip not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load trip"})
    }

    booked := make(map[string]bool, len(trip.BookedSeats))
    bookedList := make([]string, 0, len(trip.BookedSeats))
    for _, s := range trip.BookedSeats {
        booked[s.SeatNumber] = true
        bookedList = append(bookedList, s.SeatNumber)
    }

    leased, err := h.Leases.ListLeased(ctx, tripID)
    if err != nil {
        // The lease index is advisory; degrade to booked-only rather
        // than failing the read.
        leased = nil
    }
    held := make([]echo.Map, 0, len(leased))
    for _, seat := range leased {
        if booked[seat] {
            continue
        }
        entry := echo.Map{"seat_number": seat}
        if ttl, err := h.Leases.RemainingTTL(ctx, tripID, seat); err == nil && ttl > 0 {
            entry["expires_in_seconds"] = int(ttl / time.Second)
        }
        held = append(held, entry)
    }

    return c.JSON(http.StatusOK, echo.Map{
        "trip_id":         trip.ID,
        "total_seats":     trip.TotalSeats,
        "available_seats": trip.AvailableSeats,
        "booked":          bookedList,
        "held":            held,
    })
}
