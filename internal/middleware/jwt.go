package middleware // reusable HTTP middleware: auth, roles, cache, rate limit

import (
    "errors"
    "net/http"
    "strings"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
)

// Context keys populated by JWTAuth.
const (
    CtxUserID   = "user_id"
    CtxRole     = "role"
    CtxChurchID = "church_id"
    CtxMemberID = "member_id"
)

var (
    errNoBearer      = errors.New("missing bearer token")
    errInvalidToken  = errors.New("invalid token")
    errInvalidClaims = errors.New("invalid claims")
)

type identity struct {
    userID   uint64
    role     string
    churchID string
    memberID string
}

// parseBearer validates the Authorization header and extracts the identity
// claims.  Tokens without sub or church_id are rejected: every protected
// route is tenant scoped.
func parseBearer(secret, header string) (identity, error) {
    if !strings.HasPrefix(header, "Bearer ") {
        return identity{}, errNoBearer
    }
    raw := strings.TrimPrefix(header, "Bearer ")

    // Only HMAC; anything else (including "none") is refused.
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, echo.ErrUnauthorized
        }
        return []byte(secret), nil
    })
    if err != nil || !tok.Valid {
        return identity{}, errInvalidToken
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return identity{}, errInvalidClaims
    }

    // JSON numbers decode as float64.
    sub, ok := claims["sub"].(float64)
    if !ok || sub <= 0 {
        return identity{}, errInvalidClaims
    }
    id := identity{userID: uint64(sub)}
    id.churchID, _ = claims["church_id"].(string)
    if id.churchID == "" {
        return identity{}, errInvalidClaims
    }
    id.role, _ = claims["role"].(string)
    id.memberID, _ = claims["member_id"].(string)
    return id, nil
}

func (id identity) store(c echo.Context) {
    c.Set(CtxUserID, id.userID)
    c.Set(CtxRole, id.role)
    c.Set(CtxChurchID, id.churchID)
    c.Set(CtxMemberID, id.memberID)
}

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// copies its identity claims into the request context (see the Ctx* keys).
// Requests without a valid token get 401.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id, err := parseBearer(secret, c.Request().Header.Get("Authorization"))
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
            }
            id.store(c)
            return next(c)
        }
    }
}

// OptionalJWT is JWTAuth without the rejection: a valid token populates the
// context, anything else leaves the request anonymous.  Used by logout, which
// also accepts a bare refresh token.
func OptionalJWT(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if id, err := parseBearer(secret, c.Request().Header.Get("Authorization")); err == nil {
                id.store(c)
            }
            return next(c)
        }
    }
}
