package router // package router defines how HTTP routes are registered for the API

import (
    "database/sql"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/config"
    "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/handler"
    "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/middleware"
)

// guestSessionTTL is how long an issued guest holder token stays
// valid.  It only needs to outlive the holds the guest owns.
const guestSessionTTL = 24 * time.Hour

// Deps bundles everything route registration needs.
type Deps struct {
    Bookings  *handler.BookingHandler
    Trips     *handler.TripHandler
    DB        *sql.DB
    Redis     *redis.Client
    JWTSecret string
    RateLimit config.RateLimitConfig
    Cache     config.CacheConfig
}

// RegisterRoutes wires the public API surface.
//
// Booking routes run under OptionalJWT: an authenticated customer's
// subject becomes the lease holder, while guests present the holder
// token from POST /v1/holders/guest (or the X-Holder-Id header).
// Operator maintenance lives under /v1/admin and requires an OPERATOR
// token.
func RegisterRoutes(e *echo.Echo, d Deps) {
    e.GET("/healthz", handler.Health(d.DB, d.Redis))

    e.POST("/v1/holders/guest", handler.GuestHolder(d.JWTSecret, guestSessionTTL))

    // Trip metadata moves slowly and may be cached briefly; the seat
    // view must stay live and is never cached.
    e.GET("/v1/trips/:id", d.Trips.Get, middleware.NewResponseCache(d.Cache, d.Redis))
    e.GET("/v1/trips/:id/seats", d.Trips.Seats)

    v1 := e.Group("/v1")
    v1.Use(middleware.OptionalJWT(d.JWTSecret))

    // Hold is the contended entry point; it alone carries the token
    // bucket so browsing and status polling stay unthrottled.
    v1.POST("/trips/:id/hold", d.Bookings.HoldSeats,
        middleware.NewTokenBucket(d.RateLimit, d.Redis))

    v1.GET("/bookings/:code", d.Bookings.Get)
    v1.POST("/bookings/:code/confirm", d.Bookings.Confirm)
    v1.POST("/bookings/:code/cancel", d.Bookings.Cancel)
    v1.POST("/bookings/:code/extend", d.Bookings.ExtendHold)
    v1.POST("/bookings/:code/payment", d.Bookings.RecordPayment)
    v1.DELETE("/bookings/:code/hold", d.Bookings.ReleaseHold)

    admin := e.Group("/v1/admin")
    admin.Use(middleware.JWTAuth(d.JWTSecret))
    admin.Use(middleware.RequireRole("OPERATOR"))
    admin.POST("/sweep", d.Bookings.Sweep)
    admin.POST("/bookings/:code/complete", d.Bookings.Complete)
}
