// Package utils provides helpers for access/refresh token creation and
// password hashing.
package utils

import (
    "crypto/rand"   // secure random number generation
    "crypto/sha256" // SHA‑256 hashing for refresh tokens
    "encoding/hex"  // hex encoding and decoding functions
    "time"          // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// AccessToken is a signed JWT sent as "Authorization: Bearer" on staff and
// member routes.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// RefreshToken is the long-lived token exchanged for new access tokens.
type RefreshToken struct {
    Raw string    // raw token string returned to the client
    Exp time.Time // UTC expiration time
}

// Identity is the set of claims an access token carries.  ChurchID scopes
// every tenant route; MemberID is only set for accounts linked to a member
// record and lets those accounts list their own certificates.
type Identity struct {
    UserID   uint64 // sub
    Role     string // role
    ChurchID string // church_id
    MemberID string // member_id, omitted when empty
}

// NewAccessToken builds and signs an HS256 JWT for an identity.  It takes the
// signing secret, the identity and a TTL in minutes, and returns the signed
// token with its expiration time.  Besides the identity claims the token
// carries exp and iat.
func NewAccessToken(secret string, id Identity, ttlMin int) (AccessToken, error) {
    now := time.Now().UTC()
    exp := now.Add(time.Duration(ttlMin) * time.Minute)
    claims := jwt.MapClaims{
        "sub":       id.UserID,
        "role":      id.Role,
        "church_id": id.ChurchID,
        "exp":       exp.Unix(),
        "iat":       now.Unix(),
    }
    if id.MemberID != "" {
        claims["member_id"] = id.MemberID
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// NewRefreshToken returns a random 96-character hex token valid for ttlDays.
// Only HashRefreshRaw of the raw value is ever persisted.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
    raw, err := randomHex(48)
    if err != nil {
        return RefreshToken{}, err
    }
    return RefreshToken{
        Raw: raw,
        Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
    }, nil
}

// HashRefreshRaw returns the SHA‑256 hex digest stored in refresh_tokens.
func HashRefreshRaw(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
    buf := make([]byte, n)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return hex.EncodeToString(buf), nil
}
