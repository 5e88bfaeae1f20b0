package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/homescope/viewing-api/internal/scheduler"
    "github.com/homescope/viewing-api/internal/subscription"
)

// AdminHandler exposes operator endpoints: reporting, hard deletes and
// manual runs of the background sweeps.
type AdminHandler struct {
    Sched *scheduler.Service
    Subs  *subscription.Manager
}

func NewAdminHandler(s *scheduler.Service, m *subscription.Manager) *AdminHandler {
    return &AdminHandler{Sched: s, Subs: m}
}

// DeleteViewing removes a viewing record entirely. Normal flows cancel
// instead; this exists for data-correction only.
func (h *AdminHandler) DeleteViewing(c echo.Context) error {
    uid, ok := getUserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid viewing id"})
    }

    if err := h.Sched.Delete(c.Request().Context(), id, uid); err != nil {
        return engineError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// ListViewingsInRange reports all viewings with dates in [start, end],
// both given as ?start=YYYY-MM-DD&end=YYYY-MM-DD.
func (h *AdminHandler) ListViewingsInRange(c echo.Context) error {
    start, err := time.Parse(dateLayout, c.QueryParam("start"))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "start must be YYYY-MM-DD"})
    }
    end, err := time.Parse(dateLayout, c.QueryParam("end"))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "end must be YYYY-MM-DD"})
    }
    if end.Before(start) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "end before start"})
    }

    vs, err := h.Sched.ListInDateRange(c.Request().Context(), start, end)
    if err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"viewings": newViewingList(vs)})
}

// RunSweeps triggers the subscription-expiry and overdue-viewing sweeps
// immediately instead of waiting for the next tick.
func (h *AdminHandler) RunSweeps(c echo.Context) error {
    ctx := c.Request().Context()

    expired, err := h.Subs.SweepExpired(ctx, time.Now().UTC())
    if err != nil {
        return engineError(c, err)
    }
    completed, err := h.Sched.CompleteOverdue(ctx)
    if err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "subscriptions_expired": expired,
        "viewings_completed":    completed,
    })
}
