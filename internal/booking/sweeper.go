package booking

import (
    "context"
    "log"
    "time"
)

// RunSweeper periodically cancels expired holds until the context is
// done.  The sweep is idempotent, so it can run on any schedule and
// alongside external schedulers hitting the same operation; it is
// maintenance, never on the request path of a user action.
func (l *Lifecycle) RunSweeper(ctx context.Context, interval time.Duration) {
    if interval <= 0 {
        interval = time.Minute
    }
    ticker := time.NewTicker(interval)
    defer ticker.Stop()

    log.Printf("sweeper: started, interval %s", interval)
    for {
        select {
        case <-ctx.Done():
            log.Println("sweeper: stopped")
            return
        case <-ticker.C:
            n, err := l.SweepExpiredHolds(ctx)
            if err != nil {
                log.Printf("sweeper: pass failed: %v", err)
                continue
            }
            if n > 0 {
                log.Printf("sweeper: cancelled %d expired holds", n)
            }
        }
    }
}
