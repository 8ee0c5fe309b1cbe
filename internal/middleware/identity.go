package middleware

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// UserID returns the authenticated user's id, or false on public routes.
func UserID(c echo.Context) (uint64, bool) {
    id, ok := c.Get(CtxUserID).(uint64)
    return id, ok && id > 0
}

// Role returns the authenticated role, or "".
func Role(c echo.Context) string {
    s, _ := c.Get(CtxRole).(string)
    return s
}

// ChurchID returns the tenant of the authenticated user, or "".
func ChurchID(c echo.Context) string {
    s, _ := c.Get(CtxChurchID).(string)
    return s
}

// MemberID returns the member linked to the account, or "".
func MemberID(c echo.Context) string {
    s, _ := c.Get(CtxMemberID).(string)
    return s
}

// subject is the rate-limit identity of a request: the user id, or "anon".
func subject(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
