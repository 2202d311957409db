package middleware

// identity.go defines helper functions shared across middleware files.
// HolderID resolves the opaque lease-holder identity of the request:
// the authenticated subject when a JWT was presented, otherwise the
// guest holder token carried in the X-Holder-Id header.  The core
// treats the value as an uninterpreted string used solely for lease
// ownership.

import (
    "github.com/labstack/echo/v4"
)

// HolderID extracts the lease holder identity from the request.  It
// returns the empty string when neither an authenticated subject nor
// a guest holder header is present; callers that need an identity
// generate a fresh guest token in that case.
func HolderID(c echo.Context) string {
    if v := c.Get("user_id"); v != nil {
        if s, ok := v.(string); ok && s != "" {
            return s
        }
    }
    return c.Request().Header.Get("X-Holder-Id")
}
