package middleware

// identity.go holds helpers shared across middleware files for pulling
// the authenticated user out of the Echo context.

import (
    "fmt"
    "strconv"

    "github.com/labstack/echo/v4"
)

// userKey returns a string identifier for the authenticated user, used
// in rate-limit and cache keys. Unauthenticated requests map to "guest".
func userKey(c echo.Context) string {
    switch v := c.Get("user_id").(type) {
    case nil:
        return "guest"
    case string:
        if v == "" {
            return "guest"
        }
        return v
    case float64:
        return strconv.FormatUint(uint64(v), 10)
    case uint64:
        return strconv.FormatUint(v, 10)
    default:
        return fmt.Sprint(v)
    }
}

// contextUserID converts the "user_id" context value set by JWTAuth to
// uint64. MapClaims deliver numbers as float64; other shapes are
// handled for safety.
func contextUserID(c echo.Context) (uint64, bool) {
    switch v := c.Get("user_id").(type) {
    case uint64:
        return v, true
    case int:
        return uint64(v), true
    case int64:
        return uint64(v), true
    case float64:
        return uint64(v), true
    case string:
        if n, err := strconv.ParseUint(v, 10, 64); err == nil {
            return n, true
        }
    }
    return 0, false
}
