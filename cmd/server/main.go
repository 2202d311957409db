package main // Entry point package

import (
    "context"
    "log"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"

    "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/booking"
    "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/config"
    "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/database"
    "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/handler"
    "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/lease"
    "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/queue"
    "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/repository"
    "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/router"
    queuepub "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/service"
)

func main() {
    // .env is optional; real deployments set variables directly.
    _ = godotenv.Load()

    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    // Redis is the seat lease store; without it no hold can be taken.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Fatal("redis: connection failed; the lease store is mandatory")
    }
    defer rdb.Close()

    leases := lease.NewManager(rdb)
    trips := repository.NewTripRepo(db)
    bookings := repository.NewBookingRepo(db)
    vouchers := repository.NewVoucherRepo(db)

    lifecycle := booking.NewLifecycle(leases, trips, bookings,
        queuepub.NewRefundGateway(), vouchers, booking.Config{
            HoldTTL:              cfg.HoldTTL,
            CancellationRules:    cfg.CancellationRules,
            CancellationFeeCents: cfg.CancellationFeeCents,
            MinimumRefundCents:   cfg.MinimumRefundCents,
        })

    // Background workers: the expiry sweeper reclaims lapsed holds and
    // the consumer drains booking events for notification logging.
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()
    go lifecycle.RunSweeper(ctx, cfg.SweepInterval)
    go func() {
        if err := queue.StartBookingConsumer(); err != nil {
            log.Printf("queue: consumer stopped: %v", err)
        }
    }()

    e := echo.New()
    router.RegisterRoutes(e, router.Deps{
        Bookings:  handler.NewBookingHandler(lifecycle, trips),
        Trips:     handler.NewTripHandler(trips, leases),
        DB:        db,
        Redis:     rdb,
        JWTSecret: cfg.JWTSecret,
        RateLimit: config.LoadRateLimitConfig(),
        Cache:     config.LoadCacheConfig(),
    })

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
