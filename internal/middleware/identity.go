package middleware

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth.
const (
    CtxUserID = "user_id"
    CtxRole   = "role"
)

// UserID returns the authenticated user id stored in the echo context.
// Values put there by other code paths (float64 from decoded JSON, numeric
// strings) are accepted too.
func UserID(c echo.Context) (uint64, bool) {
    switch v := c.Get(CtxUserID).(type) {
    case uint64:
        return v, v != 0
    case int64:
        return uint64(v), v > 0
    case int:
        return uint64(v), v > 0
    case float64:
        return uint64(v), v > 0
    case string:
        id, err := strconv.ParseUint(v, 10, 64)
        return id, err == nil && id != 0
    }
    return 0, false
}

// userKey identifies the caller for rate limiting: the user id when
// authenticated, "anon" otherwise.
func userKey(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
