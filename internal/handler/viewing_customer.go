package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/homescope/viewing-api/internal/model"
    "github.com/homescope/viewing-api/internal/scheduler"
)

// ViewingCustomerHandler exposes the endpoints a requesting user drives:
// scheduling, cancelling and listing their own viewings.
type ViewingCustomerHandler struct {
    Sched *scheduler.Service
}

func NewViewingCustomerHandler(s *scheduler.Service) *ViewingCustomerHandler {
    return &ViewingCustomerHandler{Sched: s}
}

type scheduleReq struct {
    PropertyID  uint64  `json:"property_id" validate:"required"`
    ViewingDate string  `json:"viewing_date" validate:"required,datetime=2006-01-02"`
    ViewingTime string  `json:"viewing_time" validate:"required,datetime=15:04"`
    Notes       *string `json:"notes" validate:"omitempty,max=1000"`
    Timezone    string  `json:"timezone" validate:"omitempty,max=64"`
}

// Schedule books a PENDING viewing for the authenticated user. The
// optional timezone names the IANA zone the date and time are expressed
// in; it defaults to UTC.
func (h *ViewingCustomerHandler) Schedule(c echo.Context) error {
    uid, ok := getUserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }

    var req scheduleReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := c.Validate(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }

    date, err := time.Parse(dateLayout, req.ViewingDate)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "viewing_date must be YYYY-MM-DD"})
    }
    loc := time.UTC
    if req.Timezone != "" {
        loc, err = time.LoadLocation(req.Timezone)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown timezone"})
        }
    }

    v, err := h.Sched.Schedule(c.Request().Context(), uid, req.PropertyID, date, req.ViewingTime, req.Notes, loc)
    if err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusCreated, newViewingResp(v))
}

// Cancel moves one of the user's viewings to CANCELLED. Authorization
// (requester or admin) is enforced by the scheduling engine.
func (h *ViewingCustomerHandler) Cancel(c echo.Context) error {
    uid, ok := getUserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid viewing id"})
    }

    v, err := h.Sched.Transition(c.Request().Context(), id, uid, model.ViewingCancelled, nil)
    if err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, newViewingResp(v))
}

// ListMine returns the user's viewings, optionally filtered by ?status=.
func (h *ViewingCustomerHandler) ListMine(c echo.Context) error {
    uid, ok := getUserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    st, err := statusFilter(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }

    vs, err := h.Sched.ListForUser(c.Request().Context(), uid, st)
    if err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"viewings": newViewingList(vs)})
}

// GetOne returns a single viewing visible to the caller.
func (h *ViewingCustomerHandler) GetOne(c echo.Context) error {
    uid, ok := getUserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid viewing id"})
    }

    v, err := h.Sched.Get(c.Request().Context(), id, uid)
    if err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, newViewingResp(v))
}
