package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
    "github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers
)

// parseBearer validates the Bearer token in the Authorization header
// and returns its claims.  An empty header yields (nil, nil) so that
// callers can distinguish "no token" from "bad token".
func parseBearer(c echo.Context, secret string) (jwt.MapClaims, error) {
    auth := c.Request().Header.Get("Authorization")
    if auth == "" {
        return nil, nil
    }
    if !strings.HasPrefix(auth, "Bearer ") {
        return nil, echo.ErrUnauthorized
    }
    raw := strings.TrimPrefix(auth, "Bearer ")
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, echo.ErrUnauthorized
        }
        return []byte(secret), nil
    })
    if err != nil || !tok.Valid {
        return nil, echo.ErrUnauthorized
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return nil, echo.ErrUnauthorized
    }
    return claims, nil
}

func storeClaims(c echo.Context, claims jwt.MapClaims) {
    // Handlers read these via c.Get(); type assertions stay with the
    // consumers.
    c.Set("user_id", claims["sub"])
    c.Set("role", claims["role"])
}

// JWTAuth returns an Echo middleware that requires a valid Bearer
// token signed with the provided secret and injects the token's
// subject and role claims into the request context.  Wrap operator
// routes with it so handlers can rely on c.Get("user_id") and
// c.Get("role").
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            claims, err := parseBearer(c, secret)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            if claims == nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            storeClaims(c, claims)
            return next(c)
        }
    }
}

// OptionalJWT behaves like JWTAuth when a token is present but lets
// anonymous requests through untouched.  Booking routes use it: an
// authenticated customer's subject becomes the lease holder id, while
// guests fall back to the holder token issued for their session.
func OptionalJWT(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            claims, err := parseBearer(c, secret)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            if claims != nil {
                storeClaims(c, claims)
            }
            return next(c)
        }
    }
}
