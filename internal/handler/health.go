package handler

import (
    "context"
    "database/sql"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
)

// Health returns a liveness/readiness handler.  It pings the database
// and the lease store with a short deadline; a failed ping degrades
// the response to 503 so load balancers stop routing bookings here.
func Health(db *sql.DB, rdb *redis.Client) echo.HandlerFunc {
    return func(c echo.Context) error {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()

        status := http.StatusOK
        checks := echo.Map{"database": "ok", "lease_store": "ok"}
        if err := db.PingContext(ctx); err != nil {
            checks["database"] = "unreachable"
            status = http.StatusServiceUnavailable
        }
        if err := rdb.Ping(ctx).Err(); err != nil {
            checks["lease_store"] = "unreachable"
            status = http.StatusServiceUnavailable
        }
        word := "ok"
        if status != http.StatusOK {
            word = "degraded"
        }
        return c.JSON(status, echo.Map{"status": word, "checks": checks})
    }
}
