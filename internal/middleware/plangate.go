package middleware

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/homescope/viewing-api/internal/model"
)

// PlanChecker is the feature-gate query consulted before granting access
// to a subscription-tiered route. It matches the lifecycle manager's
// HasAtLeast method.
type PlanChecker func(ctx context.Context, userID uint64, required model.PlanType) (bool, error)

// RequirePlan enforces that the authenticated user's subscription is
// active, unexpired and ranked at or above the required tier. The check
// runs on every request and is never cached here: expiry depends on the
// current date. Routes gated at FREE admit any authenticated user
// without consulting the store, which is where the "no subscription
// means free tier" policy lives.
func RequirePlan(check PlanChecker, required model.PlanType) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if required.Rank() <= model.PlanFree.Rank() {
                return next(c)
            }
            uid, ok := contextUserID(c)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
            }
            allowed, err := check(c.Request().Context(), uid, required)
            if err != nil {
                return c.JSON(http.StatusInternalServerError, echo.Map{"error": "subscription check failed"})
            }
            if !allowed {
                return c.JSON(http.StatusForbidden, echo.Map{
                    "error":         "upgrade required",
                    "required_plan": string(required),
                })
            }
            return next(c)
        }
    }
}
