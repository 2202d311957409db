package utils // package utils provides helper functions for holder token creation

import (
    "time" // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
    "github.com/google/uuid"       // uuid generates opaque guest holder ids
)

// HolderToken represents a signed JWT identifying a guest booking
// session.  The Token field contains the JWT string; HolderID is the
// opaque subject embedded in it; Exp stores the expiration timestamp.
// Guests send the token in the Authorization header while holding and
// confirming seats so that all their requests share one lease owner.
type HolderToken struct {
    Token    string    // the serialized JWT string
    HolderID string    // the opaque holder identity (sub claim)
    Exp      time.Time // the UTC expiration time
}

// NewHolderID returns a fresh opaque holder identity for a guest.
func NewHolderID() string {
    return uuid.NewString()
}

// NewHolderToken builds and signs an HS256 JWT for a guest holder.
// The JWT carries the holder id as subject, a "guest" role, the
// expiration (exp) and issued-at (iat) claims.  The TTL should be
// comfortably longer than the seat hold TTL so a session outlives the
// holds it owns.
func NewHolderToken(secret, holderID string, ttl time.Duration) (HolderToken, error) {
    exp := time.Now().UTC().Add(ttl)
    claims := jwt.MapClaims{
        "sub":  holderID,
        "role": "guest",
        "exp":  exp.Unix(),
        "iat":  time.Now().UTC().Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return HolderToken{}, err
    }
    return HolderToken{Token: signed, HolderID: holderID, Exp: exp}, nil
}
