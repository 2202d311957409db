package middleware

import (
    "bytes"
    "crypto/sha1"
    "fmt"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/nhkhanhyn0410/ve-xe-nhanh/internal/config"
)

// cacheWriter tees the response body so a successful render can be
// stored after it has been sent to the client.
type cacheWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    limit  int
}

func (w *cacheWriter) WriteHeader(code int) {
    w.status = code
    w.ResponseWriter.WriteHeader(code)
}

func (w *cacheWriter) Write(b []byte) (int, error) {
    if w.buf.Len()+len(b) <= w.limit {
        w.buf.Write(b)
    } else {
        w.buf.Reset()
        w.limit = 0 // oversized; stop buffering for this response
    }
    return w.ResponseWriter.Write(b)
}

// NewResponseCache caches successful GET responses of the wrapped
// route in Redis for a short TTL.  Only 200s with a JSON body are
// stored.  It is meant for slow-moving reads like trip details; never
// wrap live seat availability with it.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc {
            return func(c echo.Context) error { return next(c) }
        }
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 10 * time.Second
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if c.Request().Method != http.MethodGet {
                return next(c)
            }
            ctx := c.Request().Context()
            key := cacheKey(cfg.Prefix, c)

            if body, err := rdb.Get(ctx, key).Bytes(); err == nil && len(body) > 0 {
                c.Response().Header().Set("X-Cache", "HIT")
                return c.JSONBlob(http.StatusOK, body)
            }

            w := &cacheWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = w
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if w.status == http.StatusOK && w.buf.Len() > 0 {
                _ = rdb.SetEx(ctx, key, w.buf.Bytes(), ttl).Err()
            }
            return nil
        }
    }
}

func cacheKey(prefix string, c echo.Context) string {
    r := c.Request()
    sum := sha1.Sum([]byte(r.URL.Path + "?" + r.URL.RawQuery))
    return fmt.Sprintf("%s:%x", prefix, sum)
}
